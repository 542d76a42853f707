package triprepo

import (
	"context"
	"errors"
	"time"

	"github.com/tripboard/tripboard-api/internal/domain"
)

var (
	ErrNotFound = errors.New("trip not found")
	// ErrAlreadyExists is returned by Create when the ID is taken.
	ErrAlreadyExists = errors.New("trip already exists")
)

// Trip is the persistence shape used by the trip repository.
// It is not an HTTP DTO.
type Trip struct {
	ID domain.TripID

	Name        string
	Description *string

	// Image is nil when no image was uploaded.
	Image *domain.Image

	CreatorMemberID domain.MemberID

	// StartDate and EndDate are date-only; both set means the trip has a date range.
	StartDate *time.Time
	EndDate   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted trips.
type Repository interface {
	Create(ctx context.Context, t Trip) error
	Save(ctx context.Context, t Trip) error

	GetByID(ctx context.Context, id domain.TripID) (Trip, error)

	// ListByIDs returns existing trips among ids, ordered by start date ascending
	// (undated last), then CreatedAt, then ID. Image data is not loaded.
	ListByIDs(ctx context.Context, ids []domain.TripID) ([]Trip, error)

	Delete(ctx context.Context, id domain.TripID) error
}

package whiteboardrepo

import (
	"context"
	"errors"
	"time"

	"github.com/tripboard/tripboard-api/internal/domain"
)

var (
	ErrNotFound = errors.New("whiteboard not found")
	// ErrDayTaken indicates the trip already has a whiteboard for the day.
	ErrDayTaken = errors.New("whiteboard day already exists")
)

type Whiteboard struct {
	ID        domain.WhiteboardID
	TripID    domain.TripID
	Day       int
	CreatedAt time.Time
}

// Repository provides access to persisted whiteboards.
type Repository interface {
	// Create fails with ErrDayTaken when (TripID, Day) already exists.
	Create(ctx context.Context, w Whiteboard) error
	GetByID(ctx context.Context, id domain.WhiteboardID) (Whiteboard, error)

	// ListByTrip returns whiteboards ordered by day, then CreatedAt.
	ListByTrip(ctx context.Context, tripID domain.TripID) ([]Whiteboard, error)

	Delete(ctx context.Context, id domain.WhiteboardID) error
	DeleteByTrip(ctx context.Context, tripID domain.TripID) error
}

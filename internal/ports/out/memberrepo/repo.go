package memberrepo

import (
	"context"
	"time"

	"github.com/tripboard/tripboard-api/internal/domain"
)

// Member is the persistence shape used by the member repository.
// It's used as an internal record, not an HTTP DTO.
type Member struct {
	ID      domain.MemberID
	Subject domain.SubjectID
	// DisplayName is the member's preferred display name.
	DisplayName string
	// Email is stored for the member profile and used for "add by email" lookups.
	Email string
	// ProfileImageURL is an optional avatar URL; nil means unset.
	ProfileImageURL *string

	IsActive bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted members.
//
// Result ordering expectations:
// - List/Search methods should return results ordered by DisplayName ascending to keep behavior deterministic.
type Repository interface {
	Create(ctx context.Context, m Member) error
	Update(ctx context.Context, m Member) error

	GetByID(ctx context.Context, id domain.MemberID) (Member, error)
	GetBySubject(ctx context.Context, subject domain.SubjectID) (Member, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (Member, error)

	// ListByIDs returns the members that exist among ids. Unknown IDs are skipped.
	ListByIDs(ctx context.Context, ids []domain.MemberID) ([]Member, error)
	List(ctx context.Context, includeInactive bool) ([]Member, error)

	// SearchActiveByDisplayName searches active members by a tokenized, case-insensitive match on DisplayName.
	// The query validation (e.g. minimum length) is enforced at the application layer.
	SearchActiveByDisplayName(ctx context.Context, query string, limit int) ([]Member, error)
}

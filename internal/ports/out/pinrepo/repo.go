package pinrepo

import (
	"context"
	"errors"
	"time"

	"github.com/tripboard/tripboard-api/internal/domain"
)

var (
	ErrNotFound      = errors.New("pin not found")
	ErrAlreadyExists = errors.New("pin already exists")
	// ErrWhiteboardNotFound is returned when a write targets a whiteboard that no longer exists.
	ErrWhiteboardNotFound = errors.New("whiteboard not found")
)

// BoardChanges is a set of parent pointer changes for pins on one whiteboard.
type BoardChanges struct {
	WhiteboardID domain.WhiteboardID
	Changes      []domain.ParentChange
}

// Pin is the persistence shape used by the pin repository.
type Pin struct {
	ID           domain.PinID
	TripID       domain.TripID
	WhiteboardID domain.WhiteboardID
	ParentID     *domain.PinID

	Name        string
	Description *string
	Location    *domain.Location
	Image       *domain.Image

	Expenses       []domain.Expense
	ParticipantIDs []domain.MemberID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted pins.
//
// List methods never load image bytes; Pin.Image is then either nil or carries only the
// content type.
type Repository interface {
	// Create inserts p and applies relink to the pins of p.WhiteboardID in one atomic
	// write. It returns ErrWhiteboardNotFound when the whiteboard is gone.
	Create(ctx context.Context, p Pin, relink []domain.ParentChange) error
	// Save replaces all fields of an existing pin.
	Save(ctx context.Context, p Pin) error
	GetByID(ctx context.Context, id domain.PinID) (Pin, error)

	// ListByWhiteboard returns the whiteboard's pins in no particular order; callers
	// derive display order from parent pointers.
	ListByWhiteboard(ctx context.Context, whiteboardID domain.WhiteboardID) ([]Pin, error)
	ListByTrip(ctx context.Context, tripID domain.TripID) ([]Pin, error)
	// ListByParticipant returns pins listing the member as participant, ordered by CreatedAt.
	ListByParticipant(ctx context.Context, memberID domain.MemberID) ([]Pin, error)

	// UpdateParents applies every batch in one atomic write. A batch's WhiteboardID is
	// written to each pin it changes, so a pin can move between whiteboards in the same call.
	UpdateParents(ctx context.Context, at time.Time, batches ...BoardChanges) error

	// Delete removes the pin if it is still on whiteboardID and applies relink to the
	// remaining pins of that whiteboard in one atomic write. A pin that is missing or sits
	// on another whiteboard yields ErrNotFound.
	Delete(ctx context.Context, id domain.PinID, whiteboardID domain.WhiteboardID, relink []domain.ParentChange, at time.Time) error
	DeleteByWhiteboard(ctx context.Context, whiteboardID domain.WhiteboardID) error

	// RemoveParticipantFromTrip strips memberID from the participant list of every pin in tripID.
	RemoveParticipantFromTrip(ctx context.Context, tripID domain.TripID, memberID domain.MemberID) error
}

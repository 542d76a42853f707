package participantrepo

import (
	"context"
	"errors"
	"time"

	"github.com/tripboard/tripboard-api/internal/domain"
)

var ErrNotFound = errors.New("participant not found")

// Participant binds a member to a trip.
type Participant struct {
	TripID   domain.TripID
	MemberID domain.MemberID

	// Nickname is the per-trip display name; empty means unset.
	Nickname string
	JoinedAt time.Time
}

type Repository interface {
	// Add inserts the participant. Adding an existing (trip, member) pair is a no-op and
	// keeps the original record.
	Add(ctx context.Context, p Participant) error

	// Get returns the participant for (trip, member). If it does not exist, ErrNotFound is returned.
	Get(ctx context.Context, tripID domain.TripID, memberID domain.MemberID) (Participant, error)

	// Remove deletes the participant. Removing an absent pair is a no-op.
	Remove(ctx context.Context, tripID domain.TripID, memberID domain.MemberID) error

	// SetNickname updates the nickname. Returns ErrNotFound for unknown pairs.
	SetNickname(ctx context.Context, tripID domain.TripID, memberID domain.MemberID, nickname string) error

	// ListByTrip returns all participants of a trip ordered by JoinedAt, then MemberID.
	ListByTrip(ctx context.Context, tripID domain.TripID) ([]Participant, error)

	// ListTripIDsByMember returns the trips the member takes part in.
	ListTripIDsByMember(ctx context.Context, memberID domain.MemberID) ([]domain.TripID, error)

	DeleteByTrip(ctx context.Context, tripID domain.TripID) error
}

package events

import (
	"context"
	"time"

	"github.com/tripboard/tripboard-api/internal/domain"
)

type Type string

const (
	TripCreated         Type = "trip.created"
	TripUpdated         Type = "trip.updated"
	TripDeleted         Type = "trip.deleted"
	ParticipantsChanged Type = "participants.changed"
	// ParticipantRemoved carries the removed member in EntityID. Listeners must stop
	// serving that member the trip.
	ParticipantRemoved Type = "participant.removed"
	WhiteboardsSynced  Type = "whiteboards.synced"
	WhiteboardCreated  Type = "whiteboard.created"
	WhiteboardDeleted  Type = "whiteboard.deleted"
	PinCreated         Type = "pin.created"
	PinUpdated         Type = "pin.updated"
	PinDeleted         Type = "pin.deleted"
	PinsReordered      Type = "pins.reordered"
)

// Event notifies trip collaborators that something changed.
// EntityID names the changed whiteboard/pin/member when relevant.
type Event struct {
	Type     Type
	TripID   domain.TripID
	EntityID string
	ActorID  domain.MemberID
	At       time.Time
}

// Publisher delivers events to interested listeners. Publish must not block on slow
// consumers; delivery is best-effort.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Discard is a Publisher that drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}

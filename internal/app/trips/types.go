package trips

import (
	"time"

	"github.com/tripboard/tripboard-api/internal/domain"
)

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

type CreateTripInput struct {
	Name        string
	Description *string

	// StartDate and EndDate must be set together. Times are truncated to the day.
	StartDate *time.Time
	EndDate   *time.Time
}

type UpdateTripInput struct {
	// Name is optional and cannot be null.
	Name Optional[string]

	Description Optional[string]
	StartDate   Optional[time.Time]
	EndDate     Optional[time.Time]
}

type CreatePinInput struct {
	Name        string
	Description *string
	Location    *domain.Location

	Expenses       []domain.Expense
	ParticipantIDs []domain.MemberID

	// AfterPinID places the pin right after an existing pin; nil appends to the tail.
	AfterPinID *domain.PinID
}

// UpdatePinInput patches a pin. Expenses and ParticipantIDs replace the whole list.
type UpdatePinInput struct {
	// Name cannot be null.
	Name Optional[string]

	Description    Optional[string]
	Location       Optional[domain.Location]
	Expenses       Optional[[]domain.Expense]
	ParticipantIDs Optional[[]domain.MemberID]
}

type MovePinInput struct {
	// WhiteboardID is the destination; nil keeps the pin on its current whiteboard.
	WhiteboardID *domain.WhiteboardID
	// Index is the 0-based position in the destination order; larger values append.
	Index int
}

package domain

import "time"

// Image is an uploaded binary image attached to a trip or pin.
type Image struct {
	ContentType string
	Data        []byte
}

// Location is where a pin takes place. Only Label is required.
type Location struct {
	Label   string
	Address *string

	Latitude  *float64
	Longitude *float64
}

type TripSummary struct {
	ID          TripID
	Name        string
	Description *string
	StartDate   *time.Time // date-only semantics at the edges
	EndDate     *time.Time // date-only semantics at the edges
	HasImage    bool

	CreatorMemberID MemberID

	WhiteboardCount int
	// DayRange is the human label derived from whiteboard days, e.g. "Day 1 - Day 3".
	DayRange string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Participant is a member taking part in a trip.
type Participant struct {
	MemberID MemberID
	// Nickname is the per-trip display name; empty means "use DisplayName".
	Nickname        string
	DisplayName     string
	ProfileImageURL *string
	IsCreator       bool
	JoinedAt        time.Time
}

// Name returns the name to show for the participant within the trip.
func (p Participant) Name() string {
	if p.Nickname != "" {
		return p.Nickname
	}
	return p.DisplayName
}

// TripDetails is the full read model for a trip: the plan with its whiteboards and
// their pins in display order.
type TripDetails struct {
	TripSummary

	Participants []Participant
	Whiteboards  []WhiteboardWithPins
}

package domain

import "time"

// Expense is a single cost item attached to a pin.
type Expense struct {
	// MemberID is the member who paid; empty means unassigned.
	MemberID MemberID
	Name     string
	Amount   float64
}

// Pin is a point of interest on a whiteboard.
//
// Order within a whiteboard is encoded by ParentID: the head pin has a nil parent and every
// other pin points at the pin it follows.
type Pin struct {
	ID           PinID
	TripID       TripID
	WhiteboardID WhiteboardID
	ParentID     *PinID

	Name        string
	Description *string
	Location    *Location
	HasImage    bool

	Expenses       []Expense
	ParticipantIDs []MemberID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExpenseTotal sums the pin's expense amounts.
func (p Pin) ExpenseTotal() float64 {
	var total float64
	for _, e := range p.Expenses {
		total += e.Amount
	}
	return total
}

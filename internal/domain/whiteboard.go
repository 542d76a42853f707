package domain

import "time"

// Whiteboard is a per-day container of pins. Day is 1-based.
type Whiteboard struct {
	ID        WhiteboardID
	TripID    TripID
	Day       int
	CreatedAt time.Time
}

type WhiteboardWithPins struct {
	Whiteboard
	Pins []Pin
}

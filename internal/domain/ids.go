package domain

// SubjectID is the authenticated subject extracted from JWT claims (typically "sub").
// We model it as an opaque identifier: its format is controlled by the IdP.
type SubjectID string

// MemberID is an internal identifier for a member (user) record.
type MemberID string

// TripID is an internal identifier for a trip (plan) record.
type TripID string

// WhiteboardID identifies a single day's whiteboard within a trip.
type WhiteboardID string

// PinID identifies a pin on a whiteboard.
type PinID string

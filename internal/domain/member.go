package domain

import "time"

// Member is the domain representation of a member profile.
type Member struct {
	ID      MemberID
	Subject SubjectID

	DisplayName string
	Email       string
	// ProfileImageURL points at the member's avatar; nil means unset.
	ProfileImageURL *string

	IsActive bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

type MemberSummary struct {
	ID              MemberID
	DisplayName     string
	ProfileImageURL *string
}

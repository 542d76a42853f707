package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/tripboard/tripboard-api/internal/app/members"
	"github.com/tripboard/tripboard-api/internal/app/trips"
	"github.com/tripboard/tripboard-api/internal/domain"
)

// Members

type MemberProfile struct {
	MemberID        string              `json:"memberId"`
	DisplayName     string              `json:"displayName"`
	Email           openapi_types.Email `json:"email"`
	ProfileImageURL *string             `json:"profileImageUrl"`
	IsActive        bool                `json:"isActive"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

type MemberDirectoryEntry struct {
	MemberID        string  `json:"memberId"`
	DisplayName     string  `json:"displayName"`
	ProfileImageURL *string `json:"profileImageUrl"`
}

type CreateMyMemberRequest struct {
	DisplayName     string              `json:"displayName"`
	Email           openapi_types.Email `json:"email"`
	ProfileImageURL *string             `json:"profileImageUrl,omitempty"`
}

type UpdateMyMemberProfileRequest struct {
	DisplayName     *string                   `json:"displayName,omitempty"`
	Email           *openapi_types.Email      `json:"email,omitempty"`
	ProfileImageURL nullable.Nullable[string] `json:"profileImageUrl,omitempty"`
}

type MemberResponse struct {
	Member MemberProfile `json:"member"`
}

type MemberDirectoryEntryResponse struct {
	Member MemberDirectoryEntry `json:"member"`
}

type MembersResponse struct {
	Members []MemberDirectoryEntry `json:"members"`
}

// Trips

type TripSummary struct {
	TripID          string              `json:"tripId"`
	Name            string              `json:"name"`
	Description     *string             `json:"description"`
	StartDate       *openapi_types.Date `json:"startDate"`
	EndDate         *openapi_types.Date `json:"endDate"`
	HasImage        bool                `json:"hasImage"`
	CreatorMemberID string              `json:"creatorMemberId"`
	WhiteboardCount int                 `json:"whiteboardCount"`
	DayRange        string              `json:"dayRange"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

type TripDetails struct {
	TripSummary
	Participants []Participant        `json:"participants"`
	Whiteboards  []WhiteboardWithPins `json:"whiteboards"`
}

type CreateTripRequest struct {
	Name        string              `json:"name"`
	Description *string             `json:"description,omitempty"`
	StartDate   *openapi_types.Date `json:"startDate,omitempty"`
	EndDate     *openapi_types.Date `json:"endDate,omitempty"`
}

type UpdateTripRequest struct {
	Name        nullable.Nullable[string]             `json:"name,omitempty"`
	Description nullable.Nullable[string]             `json:"description,omitempty"`
	StartDate   nullable.Nullable[openapi_types.Date] `json:"startDate,omitempty"`
	EndDate     nullable.Nullable[openapi_types.Date] `json:"endDate,omitempty"`
}

type TripResponse struct {
	Trip TripDetails `json:"trip"`
}

type TripsResponse struct {
	Trips []TripSummary `json:"trips"`
}

// Participants

type Participant struct {
	MemberID string `json:"memberId"`
	// Name is the nickname when set, the display name otherwise.
	Name            string    `json:"name"`
	Nickname        *string   `json:"nickname"`
	DisplayName     string    `json:"displayName"`
	ProfileImageURL *string   `json:"profileImageUrl"`
	IsCreator       bool      `json:"isCreator"`
	JoinedAt        time.Time `json:"joinedAt"`
}

type AddParticipantsRequest struct {
	MemberIDs []string `json:"memberIds"`
}

type SetMyNicknameRequest struct {
	Nickname string `json:"nickname"`
}

type ParticipantsResponse struct {
	Participants []Participant `json:"participants"`
}

type ParticipantResponse struct {
	Participant Participant `json:"participant"`
}

// Whiteboards

type Whiteboard struct {
	WhiteboardID string    `json:"whiteboardId"`
	TripID       string    `json:"tripId"`
	Day          int       `json:"day"`
	CreatedAt    time.Time `json:"createdAt"`
}

type WhiteboardWithPins struct {
	Whiteboard
	Pins []Pin `json:"pins"`
}

type CreateWhiteboardRequest struct {
	Day int `json:"day"`
}

type WhiteboardResponse struct {
	Whiteboard WhiteboardWithPins `json:"whiteboard"`
}

type WhiteboardsResponse struct {
	Whiteboards []Whiteboard `json:"whiteboards"`
}

// Pins

type Location struct {
	Label     string   `json:"label"`
	Address   *string  `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type Expense struct {
	MemberID *string `json:"memberId,omitempty"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
}

type Pin struct {
	PinID          string    `json:"pinId"`
	TripID         string    `json:"tripId"`
	WhiteboardID   string    `json:"whiteboardId"`
	ParentPinID    *string   `json:"parentPinId"`
	Name           string    `json:"name"`
	Description    *string   `json:"description"`
	Location       *Location `json:"location"`
	HasImage       bool      `json:"hasImage"`
	Expenses       []Expense `json:"expenses"`
	ExpenseTotal   float64   `json:"expenseTotal"`
	ParticipantIDs []string  `json:"participantIds"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type CreatePinRequest struct {
	Name           string    `json:"name"`
	Description    *string   `json:"description,omitempty"`
	Location       *Location `json:"location,omitempty"`
	Expenses       []Expense `json:"expenses,omitempty"`
	ParticipantIDs []string  `json:"participantIds,omitempty"`
	// AfterPinID places the pin after an existing pin; empty appends.
	AfterPinID *string `json:"afterPinId,omitempty"`
}

type UpdatePinRequest struct {
	Name           nullable.Nullable[string]    `json:"name,omitempty"`
	Description    nullable.Nullable[string]    `json:"description,omitempty"`
	Location       nullable.Nullable[Location]  `json:"location,omitempty"`
	Expenses       nullable.Nullable[[]Expense] `json:"expenses,omitempty"`
	ParticipantIDs nullable.Nullable[[]string]  `json:"participantIds,omitempty"`
}

type MovePinRequest struct {
	WhiteboardID *string `json:"whiteboardId,omitempty"`
	Index        int     `json:"index"`
}

type PinResponse struct {
	Pin Pin `json:"pin"`
}

type PinsResponse struct {
	Pins []Pin `json:"pins"`
}

// Conversions

func memberProfileFromDomain(m domain.Member) MemberProfile {
	return MemberProfile{
		MemberID:        string(m.ID),
		DisplayName:     m.DisplayName,
		Email:           openapi_types.Email(m.Email),
		ProfileImageURL: m.ProfileImageURL,
		IsActive:        m.IsActive,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func memberDirectoryEntryFromDomain(m domain.Member) MemberDirectoryEntry {
	return MemberDirectoryEntry{
		MemberID:        string(m.ID),
		DisplayName:     m.DisplayName,
		ProfileImageURL: m.ProfileImageURL,
	}
}

func tripSummaryFromDomain(t domain.TripSummary) TripSummary {
	return TripSummary{
		TripID:          string(t.ID),
		Name:            t.Name,
		Description:     t.Description,
		StartDate:       datePtr(t.StartDate),
		EndDate:         datePtr(t.EndDate),
		HasImage:        t.HasImage,
		CreatorMemberID: string(t.CreatorMemberID),
		WhiteboardCount: t.WhiteboardCount,
		DayRange:        t.DayRange,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func tripDetailsFromDomain(t domain.TripDetails) TripDetails {
	out := TripDetails{
		TripSummary:  tripSummaryFromDomain(t.TripSummary),
		Participants: make([]Participant, 0, len(t.Participants)),
		Whiteboards:  make([]WhiteboardWithPins, 0, len(t.Whiteboards)),
	}
	for _, p := range t.Participants {
		out.Participants = append(out.Participants, participantFromDomain(p))
	}
	for _, w := range t.Whiteboards {
		out.Whiteboards = append(out.Whiteboards, whiteboardWithPinsFromDomain(w))
	}
	return out
}

func participantFromDomain(p domain.Participant) Participant {
	out := Participant{
		MemberID:        string(p.MemberID),
		Name:            p.Name(),
		DisplayName:     p.DisplayName,
		ProfileImageURL: p.ProfileImageURL,
		IsCreator:       p.IsCreator,
		JoinedAt:        p.JoinedAt,
	}
	if p.Nickname != "" {
		v := p.Nickname
		out.Nickname = &v
	}
	return out
}

func participantsFromDomain(ps []domain.Participant) []Participant {
	out := make([]Participant, 0, len(ps))
	for _, p := range ps {
		out = append(out, participantFromDomain(p))
	}
	return out
}

func whiteboardFromDomain(w domain.Whiteboard) Whiteboard {
	return Whiteboard{
		WhiteboardID: string(w.ID),
		TripID:       string(w.TripID),
		Day:          w.Day,
		CreatedAt:    w.CreatedAt,
	}
}

func whiteboardsFromDomain(ws []domain.Whiteboard) []Whiteboard {
	out := make([]Whiteboard, 0, len(ws))
	for _, w := range ws {
		out = append(out, whiteboardFromDomain(w))
	}
	return out
}

func whiteboardWithPinsFromDomain(w domain.WhiteboardWithPins) WhiteboardWithPins {
	return WhiteboardWithPins{
		Whiteboard: whiteboardFromDomain(w.Whiteboard),
		Pins:       pinsFromDomain(w.Pins),
	}
}

func pinFromDomain(p domain.Pin) Pin {
	out := Pin{
		PinID:          string(p.ID),
		TripID:         string(p.TripID),
		WhiteboardID:   string(p.WhiteboardID),
		Name:           p.Name,
		Description:    p.Description,
		HasImage:       p.HasImage,
		Expenses:       make([]Expense, 0, len(p.Expenses)),
		ExpenseTotal:   p.ExpenseTotal(),
		ParticipantIDs: make([]string, 0, len(p.ParticipantIDs)),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.ParentID != nil {
		v := string(*p.ParentID)
		out.ParentPinID = &v
	}
	if p.Location != nil {
		out.Location = &Location{
			Label:     p.Location.Label,
			Address:   p.Location.Address,
			Latitude:  p.Location.Latitude,
			Longitude: p.Location.Longitude,
		}
	}
	for _, e := range p.Expenses {
		dto := Expense{Name: e.Name, Amount: e.Amount}
		if e.MemberID != "" {
			v := string(e.MemberID)
			dto.MemberID = &v
		}
		out.Expenses = append(out.Expenses, dto)
	}
	for _, id := range p.ParticipantIDs {
		out.ParticipantIDs = append(out.ParticipantIDs, string(id))
	}
	return out
}

func pinsFromDomain(ps []domain.Pin) []Pin {
	out := make([]Pin, 0, len(ps))
	for _, p := range ps {
		out = append(out, pinFromDomain(p))
	}
	return out
}

func datePtr(t *time.Time) *openapi_types.Date {
	if t == nil {
		return nil
	}
	return &openapi_types.Date{Time: *t}
}

func timePtrFromDate(d *openapi_types.Date) *time.Time {
	if d == nil {
		return nil
	}
	v := d.Time
	return &v
}

func locationToDomain(l Location) domain.Location {
	return domain.Location{
		Label:     l.Label,
		Address:   l.Address,
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
	}
}

func expensesToDomain(es []Expense) []domain.Expense {
	out := make([]domain.Expense, 0, len(es))
	for _, e := range es {
		d := domain.Expense{Name: e.Name, Amount: e.Amount}
		if e.MemberID != nil {
			d.MemberID = domain.MemberID(*e.MemberID)
		}
		out = append(out, d)
	}
	return out
}

func memberIDsToDomain(ids []string) []domain.MemberID {
	out := make([]domain.MemberID, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.MemberID(id))
	}
	return out
}

func updateMyMemberProfileInputFromRequest(b UpdateMyMemberProfileRequest) members.UpdateMyMemberProfileInput {
	out := members.UpdateMyMemberProfileInput{}
	if b.DisplayName != nil {
		out.DisplayName = members.Some(*b.DisplayName)
	}
	if b.Email != nil {
		out.Email = members.Some(string(*b.Email))
	}
	out.ProfileImageURL = optionalFromNullable(b.ProfileImageURL, members.Unspecified[string], members.Null[string], members.Some[string])
	return out
}

func updateTripInputFromRequest(b UpdateTripRequest) trips.UpdateTripInput {
	return trips.UpdateTripInput{
		Name:        optionalFromNullable(b.Name, trips.Unspecified[string], trips.Null[string], trips.Some[string]),
		Description: optionalFromNullable(b.Description, trips.Unspecified[string], trips.Null[string], trips.Some[string]),
		StartDate:   optionalTimeFromNullableDate(b.StartDate),
		EndDate:     optionalTimeFromNullableDate(b.EndDate),
	}
}

func updatePinInputFromRequest(b UpdatePinRequest) trips.UpdatePinInput {
	out := trips.UpdatePinInput{
		Name:        optionalFromNullable(b.Name, trips.Unspecified[string], trips.Null[string], trips.Some[string]),
		Description: optionalFromNullable(b.Description, trips.Unspecified[string], trips.Null[string], trips.Some[string]),
	}
	if b.Location.IsSpecified() {
		if v, err := b.Location.Get(); err == nil {
			out.Location = trips.Some(locationToDomain(v))
		} else {
			out.Location = trips.Null[domain.Location]()
		}
	}
	if b.Expenses.IsSpecified() {
		if v, err := b.Expenses.Get(); err == nil {
			out.Expenses = trips.Some(expensesToDomain(v))
		} else {
			out.Expenses = trips.Null[[]domain.Expense]()
		}
	}
	if b.ParticipantIDs.IsSpecified() {
		if v, err := b.ParticipantIDs.Get(); err == nil {
			out.ParticipantIDs = trips.Some(memberIDsToDomain(v))
		} else {
			out.ParticipantIDs = trips.Null[[]domain.MemberID]()
		}
	}
	return out
}

// optionalFromNullable maps a JSON tri-state onto an application Optional using the
// given constructors.
func optionalFromNullable[T, O any](n nullable.Nullable[T], unspecified func() O, null func() O, some func(T) O) O {
	if !n.IsSpecified() {
		return unspecified()
	}
	if n.IsNull() {
		return null()
	}
	v, err := n.Get()
	if err != nil {
		return unspecified()
	}
	return some(v)
}

func optionalTimeFromNullableDate(n nullable.Nullable[openapi_types.Date]) trips.Optional[time.Time] {
	return optionalFromNullable(n, trips.Unspecified[time.Time], trips.Null[time.Time], func(d openapi_types.Date) trips.Optional[time.Time] {
		return trips.Some(d.Time)
	})
}

package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tripboard/tripboard-api/internal/domain"
	memberrepoport "github.com/tripboard/tripboard-api/internal/ports/out/memberrepo"
	participantrepoport "github.com/tripboard/tripboard-api/internal/ports/out/participantrepo"
	pinrepoport "github.com/tripboard/tripboard-api/internal/ports/out/pinrepo"
	triprepoport "github.com/tripboard/tripboard-api/internal/ports/out/triprepo"
	whiteboardrepoport "github.com/tripboard/tripboard-api/internal/ports/out/whiteboardrepo"
)

// Repos groups the repositories that share trip-scoped data. Suites seed through the
// whole set because storage backends may enforce references between them.
type Repos struct {
	Members      memberrepoport.Repository
	Trips        triprepoport.Repository
	Participants participantrepoport.Repository
	Whiteboards  whiteboardrepoport.Repository
	Pins         pinrepoport.Repository
}

type ReposFactory func(t *testing.T) (Repos, CleanupFunc)

func openRepos(t *testing.T, newRepos ReposFactory) Repos {
	t.Helper()
	repos, cleanup := newRepos(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	return repos
}

func seedMember(t *testing.T, ctx context.Context, repos Repos, name string, at time.Time) domain.MemberID {
	t.Helper()
	id := domain.MemberID(uuid.NewString())
	if err := repos.Members.Create(ctx, memberrepoport.Member{
		ID:          id,
		Subject:     domain.SubjectID("sub-" + string(id)),
		DisplayName: name,
		Email:       string(id) + "@example.com",
		IsActive:    true,
		CreatedAt:   at,
		UpdatedAt:   at,
	}); err != nil {
		t.Fatalf("seed member %q: %v", name, err)
	}
	return id
}

func seedTrip(t *testing.T, ctx context.Context, repos Repos, creator domain.MemberID, at time.Time) domain.TripID {
	t.Helper()
	id := domain.TripID(uuid.NewString())
	if err := repos.Trips.Create(ctx, triprepoport.Trip{
		ID:              id,
		Name:            "Trip " + string(id)[:8],
		CreatorMemberID: creator,
		CreatedAt:       at,
		UpdatedAt:       at,
	}); err != nil {
		t.Fatalf("seed trip: %v", err)
	}
	if err := repos.Participants.Add(ctx, participantrepoport.Participant{TripID: id, MemberID: creator, JoinedAt: at}); err != nil {
		t.Fatalf("seed creator participant: %v", err)
	}
	return id
}

func seedWhiteboard(t *testing.T, ctx context.Context, repos Repos, tripID domain.TripID, day int, at time.Time) domain.WhiteboardID {
	t.Helper()
	id := domain.WhiteboardID(uuid.NewString())
	if err := repos.Whiteboards.Create(ctx, whiteboardrepoport.Whiteboard{ID: id, TripID: tripID, Day: day, CreatedAt: at}); err != nil {
		t.Fatalf("seed whiteboard day %d: %v", day, err)
	}
	return id
}

func RunTripRepo(t *testing.T, newRepos ReposFactory) {
	t.Helper()
	ctx := context.Background()
	repos := openRepos(t, newRepos)

	now := time.Unix(2000, 0).UTC()
	creator := seedMember(t, ctx, repos, "Creator", now)

	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC)
	desc := "Coastal loop"
	tripID := domain.TripID(uuid.NewString())
	if err := repos.Trips.Create(ctx, triprepoport.Trip{
		ID:              tripID,
		Name:            "Big Sur",
		Description:     &desc,
		Image:           &domain.Image{ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}},
		CreatorMemberID: creator,
		StartDate:       &start,
		EndDate:         &end,
		CreatedAt:       now,
		UpdatedAt:       now,
	}); err != nil {
		t.Fatalf("Create trip: %v", err)
	}
	got, err := repos.Trips.GetByID(ctx, tripID)
	if err != nil {
		t.Fatalf("GetByID trip: %v", err)
	}
	if got.Name != "Big Sur" || got.Description == nil || *got.Description != desc || got.CreatorMemberID != creator {
		t.Fatalf("unexpected trip: %#v", got)
	}
	if got.StartDate == nil || !got.StartDate.Equal(start) || got.EndDate == nil || !got.EndDate.Equal(end) {
		t.Fatalf("unexpected trip dates: start=%v end=%v", got.StartDate, got.EndDate)
	}
	if got.Image == nil || got.Image.ContentType != "image/png" || len(got.Image.Data) != 4 {
		t.Fatalf("unexpected trip image: %#v", got.Image)
	}

	// Save replaces mutable fields, including clearing optional ones.
	got.Name = "Big Sur 2"
	got.Description = nil
	got.StartDate = nil
	got.EndDate = nil
	got.Image = nil
	got.UpdatedAt = now.Add(time.Hour)
	if err := repos.Trips.Save(ctx, got); err != nil {
		t.Fatalf("Save trip: %v", err)
	}
	got, err = repos.Trips.GetByID(ctx, tripID)
	if err != nil {
		t.Fatalf("GetByID after save: %v", err)
	}
	if got.Name != "Big Sur 2" || got.Description != nil || got.StartDate != nil || got.Image != nil {
		t.Fatalf("unexpected trip after save: %#v", got)
	}

	other := seedTrip(t, ctx, repos, creator, now.Add(time.Second))
	list, err := repos.Trips.ListByIDs(ctx, []domain.TripID{other, tripID, domain.TripID(uuid.NewString())})
	if err != nil {
		t.Fatalf("ListByIDs: %v", err)
	}
	if len(list) != 2 || list[0].ID != tripID || list[1].ID != other {
		t.Fatalf("unexpected ListByIDs: %#v", list)
	}

	if err := repos.Trips.Delete(ctx, other); err != nil {
		t.Fatalf("Delete trip: %v", err)
	}
	if _, err := repos.Trips.GetByID(ctx, other); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("GetByID deleted: err=%v, want ErrNotFound", err)
	}
	if err := repos.Trips.Save(ctx, triprepoport.Trip{ID: domain.TripID(uuid.NewString()), Name: "x", CreatorMemberID: creator}); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("Save unknown: err=%v, want ErrNotFound", err)
	}
}

func RunParticipantRepo(t *testing.T, newRepos ReposFactory) {
	t.Helper()
	ctx := context.Background()
	repos := openRepos(t, newRepos)

	now := time.Unix(3000, 0).UTC()
	creator := seedMember(t, ctx, repos, "Creator", now)
	guest := seedMember(t, ctx, repos, "Guest", now)
	tripID := seedTrip(t, ctx, repos, creator, now)

	if err := repos.Participants.Add(ctx, participantrepoport.Participant{TripID: tripID, MemberID: guest, Nickname: "G", JoinedAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("Add guest: %v", err)
	}
	// Re-adding keeps the original row.
	if err := repos.Participants.Add(ctx, participantrepoport.Participant{TripID: tripID, MemberID: guest, JoinedAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("Add guest again: %v", err)
	}
	ps, err := repos.Participants.ListByTrip(ctx, tripID)
	if err != nil {
		t.Fatalf("ListByTrip: %v", err)
	}
	if len(ps) != 2 || ps[0].MemberID != creator || ps[1].MemberID != guest || ps[1].Nickname != "G" {
		t.Fatalf("unexpected participants: %#v", ps)
	}

	if err := repos.Participants.SetNickname(ctx, tripID, guest, "Navigator"); err != nil {
		t.Fatalf("SetNickname: %v", err)
	}
	p, err := repos.Participants.Get(ctx, tripID, guest)
	if err != nil || p.Nickname != "Navigator" {
		t.Fatalf("Get after nickname: %#v err=%v", p, err)
	}

	trips, err := repos.Participants.ListTripIDsByMember(ctx, guest)
	if err != nil || len(trips) != 1 || trips[0] != tripID {
		t.Fatalf("ListTripIDsByMember: %v err=%v", trips, err)
	}

	if err := repos.Participants.Remove(ctx, tripID, guest); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := repos.Participants.Get(ctx, tripID, guest); !errors.Is(err, participantrepoport.ErrNotFound) {
		t.Fatalf("Get removed: err=%v, want ErrNotFound", err)
	}
	if err := repos.Participants.SetNickname(ctx, tripID, guest, "x"); !errors.Is(err, participantrepoport.ErrNotFound) {
		t.Fatalf("SetNickname removed: err=%v, want ErrNotFound", err)
	}

	if err := repos.Participants.DeleteByTrip(ctx, tripID); err != nil {
		t.Fatalf("DeleteByTrip: %v", err)
	}
	ps, _ = repos.Participants.ListByTrip(ctx, tripID)
	if len(ps) != 0 {
		t.Fatalf("participants after DeleteByTrip: %#v", ps)
	}
}

func RunWhiteboardRepo(t *testing.T, newRepos ReposFactory) {
	t.Helper()
	ctx := context.Background()
	repos := openRepos(t, newRepos)

	now := time.Unix(4000, 0).UTC()
	creator := seedMember(t, ctx, repos, "Creator", now)
	tripID := seedTrip(t, ctx, repos, creator, now)

	w2 := seedWhiteboard(t, ctx, repos, tripID, 2, now)
	w1 := seedWhiteboard(t, ctx, repos, tripID, 1, now)

	err := repos.Whiteboards.Create(ctx, whiteboardrepoport.Whiteboard{ID: domain.WhiteboardID(uuid.NewString()), TripID: tripID, Day: 1, CreatedAt: now})
	if !errors.Is(err, whiteboardrepoport.ErrDayTaken) {
		t.Fatalf("Create duplicate day: err=%v, want ErrDayTaken", err)
	}

	ws, err := repos.Whiteboards.ListByTrip(ctx, tripID)
	if err != nil {
		t.Fatalf("ListByTrip: %v", err)
	}
	if len(ws) != 2 || ws[0].ID != w1 || ws[1].ID != w2 {
		t.Fatalf("unexpected whiteboards: %#v", ws)
	}
	got, err := repos.Whiteboards.GetByID(ctx, w2)
	if err != nil || got.Day != 2 || got.TripID != tripID {
		t.Fatalf("GetByID: %#v err=%v", got, err)
	}

	if err := repos.Whiteboards.Delete(ctx, w2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repos.Whiteboards.GetByID(ctx, w2); !errors.Is(err, whiteboardrepoport.ErrNotFound) {
		t.Fatalf("GetByID deleted: err=%v, want ErrNotFound", err)
	}
	if err := repos.Whiteboards.Delete(ctx, w2); !errors.Is(err, whiteboardrepoport.ErrNotFound) {
		t.Fatalf("Delete twice: err=%v, want ErrNotFound", err)
	}
	if err := repos.Whiteboards.DeleteByTrip(ctx, tripID); err != nil {
		t.Fatalf("DeleteByTrip: %v", err)
	}
	ws, _ = repos.Whiteboards.ListByTrip(ctx, tripID)
	if len(ws) != 0 {
		t.Fatalf("whiteboards after DeleteByTrip: %#v", ws)
	}
}

func RunPinRepo(t *testing.T, newRepos ReposFactory) {
	t.Helper()
	ctx := context.Background()
	repos := openRepos(t, newRepos)

	now := time.Unix(5000, 0).UTC()
	creator := seedMember(t, ctx, repos, "Creator", now)
	guest := seedMember(t, ctx, repos, "Guest", now)
	tripID := seedTrip(t, ctx, repos, creator, now)
	if err := repos.Participants.Add(ctx, participantrepoport.Participant{TripID: tripID, MemberID: guest, JoinedAt: now}); err != nil {
		t.Fatalf("Add guest: %v", err)
	}
	wb1 := seedWhiteboard(t, ctx, repos, tripID, 1, now)
	wb2 := seedWhiteboard(t, ctx, repos, tripID, 2, now)

	addr := "1 Ocean Ave"
	lat, lng := 36.27, -121.80
	desc := "Sunset stop"
	first := domain.PinID(uuid.NewString())
	if err := repos.Pins.Create(ctx, pinrepoport.Pin{
		ID:           first,
		TripID:       tripID,
		WhiteboardID: wb1,
		Name:         "Viewpoint",
		Description:  &desc,
		Location:     &domain.Location{Label: "Bixby Bridge", Address: &addr, Latitude: &lat, Longitude: &lng},
		Image:        &domain.Image{ContentType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}},
		Expenses: []domain.Expense{
			{MemberID: creator, Name: "Parking", Amount: 10},
			{MemberID: guest, Name: "Snacks", Amount: 4.5},
		},
		ParticipantIDs: []domain.MemberID{creator, guest},
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil); err != nil {
		t.Fatalf("Create first pin: %v", err)
	}
	second := domain.PinID(uuid.NewString())
	if err := repos.Pins.Create(ctx, pinrepoport.Pin{
		ID:           second,
		TripID:       tripID,
		WhiteboardID: wb1,
		ParentID:     &first,
		Name:         "Lunch",
		CreatedAt:    now.Add(time.Second),
		UpdatedAt:    now.Add(time.Second),
	}, nil); err != nil {
		t.Fatalf("Create second pin: %v", err)
	}

	got, err := repos.Pins.GetByID(ctx, first)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Location == nil || got.Location.Label != "Bixby Bridge" || got.Location.Latitude == nil || *got.Location.Latitude != lat {
		t.Fatalf("unexpected location: %#v", got.Location)
	}
	if got.Image == nil || len(got.Image.Data) != 3 {
		t.Fatalf("unexpected image: %#v", got.Image)
	}
	if len(got.Expenses) != 2 || got.Expenses[1].Name != "Snacks" || got.Expenses[1].Amount != 4.5 {
		t.Fatalf("unexpected expenses: %#v", got.Expenses)
	}
	if len(got.ParticipantIDs) != 2 {
		t.Fatalf("unexpected participants: %#v", got.ParticipantIDs)
	}

	list, err := repos.Pins.ListByWhiteboard(ctx, wb1)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListByWhiteboard: %#v err=%v", list, err)
	}
	for _, p := range list {
		if p.Image != nil && len(p.Image.Data) != 0 {
			t.Fatalf("ListByWhiteboard loaded image bytes for %s", p.ID)
		}
	}
	ordered := domain.OrderPins([]domain.Pin{
		{ID: list[0].ID, ParentID: list[0].ParentID, CreatedAt: list[0].CreatedAt},
		{ID: list[1].ID, ParentID: list[1].ParentID, CreatedAt: list[1].CreatedAt},
	})
	if ordered[0].ID != first || ordered[1].ID != second {
		t.Fatalf("unexpected pin order: %v", domain.PinIDs(ordered))
	}

	// Move the second pin to the head of another whiteboard; the first one stays put.
	if err := repos.Pins.UpdateParents(ctx, now.Add(time.Minute), pinrepoport.BoardChanges{
		WhiteboardID: wb2,
		Changes:      []domain.ParentChange{{PinID: second}},
	}); err != nil {
		t.Fatalf("UpdateParents: %v", err)
	}
	moved, _ := repos.Pins.GetByID(ctx, second)
	if moved.WhiteboardID != wb2 || moved.ParentID != nil {
		t.Fatalf("unexpected moved pin: %#v", moved)
	}

	mine, err := repos.Pins.ListByParticipant(ctx, guest)
	if err != nil || len(mine) != 1 || mine[0].ID != first {
		t.Fatalf("ListByParticipant: %#v err=%v", mine, err)
	}
	if err := repos.Pins.RemoveParticipantFromTrip(ctx, tripID, guest); err != nil {
		t.Fatalf("RemoveParticipantFromTrip: %v", err)
	}
	mine, _ = repos.Pins.ListByParticipant(ctx, guest)
	if len(mine) != 0 {
		t.Fatalf("ListByParticipant after removal: %#v", mine)
	}

	got.Name = "Viewpoint North"
	got.Location = nil
	got.Image = nil
	got.Expenses = nil
	got.UpdatedAt = now.Add(time.Hour)
	if err := repos.Pins.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _ = repos.Pins.GetByID(ctx, first)
	if got.Name != "Viewpoint North" || got.Location != nil || got.Image != nil || len(got.Expenses) != 0 {
		t.Fatalf("unexpected pin after save: %#v", got)
	}

	all, _ := repos.Pins.ListByTrip(ctx, tripID)
	if len(all) != 2 {
		t.Fatalf("ListByTrip len=%d, want 2", len(all))
	}
	if err := repos.Pins.DeleteByWhiteboard(ctx, wb2); err != nil {
		t.Fatalf("DeleteByWhiteboard: %v", err)
	}
	if _, err := repos.Pins.GetByID(ctx, second); !errors.Is(err, pinrepoport.ErrNotFound) {
		t.Fatalf("GetByID after DeleteByWhiteboard: err=%v, want ErrNotFound", err)
	}
	if err := repos.Pins.Delete(ctx, first, wb2, nil, now); !errors.Is(err, pinrepoport.ErrNotFound) {
		t.Fatalf("Delete on other whiteboard: err=%v, want ErrNotFound", err)
	}
	if _, err := repos.Pins.GetByID(ctx, first); err != nil {
		t.Fatalf("pin deleted from the wrong whiteboard: %v", err)
	}
	if err := repos.Pins.Delete(ctx, first, wb1, nil, now); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repos.Pins.Delete(ctx, first, wb1, nil, now); !errors.Is(err, pinrepoport.ErrNotFound) {
		t.Fatalf("Delete twice: err=%v, want ErrNotFound", err)
	}
}

// RunPinRelink checks that pin writes which rewrite neighbours are all-or-nothing.
func RunPinRelink(t *testing.T, newRepos ReposFactory) {
	t.Helper()
	repos := openRepos(t, newRepos)
	ctx := context.Background()

	now := time.Unix(7000, 0).UTC()
	creator := seedMember(t, ctx, repos, "Creator", now)
	tripID := seedTrip(t, ctx, repos, creator, now)
	wb1 := seedWhiteboard(t, ctx, repos, tripID, 1, now)
	wb2 := seedWhiteboard(t, ctx, repos, tripID, 2, now)

	newPin := func(id domain.PinID, board domain.WhiteboardID, parent *domain.PinID, name string, at time.Time, relink []domain.ParentChange) domain.PinID {
		t.Helper()
		err := repos.Pins.Create(ctx, pinrepoport.Pin{
			ID:           id,
			TripID:       tripID,
			WhiteboardID: board,
			ParentID:     parent,
			Name:         name,
			CreatedAt:    at,
			UpdatedAt:    at,
		}, relink)
		if err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
		return id
	}
	fresh := func() domain.PinID { return domain.PinID(uuid.NewString()) }
	order := func(board domain.WhiteboardID) []domain.PinID {
		t.Helper()
		list, err := repos.Pins.ListByWhiteboard(ctx, board)
		if err != nil {
			t.Fatalf("ListByWhiteboard: %v", err)
		}
		ps := make([]domain.Pin, 0, len(list))
		for _, p := range list {
			ps = append(ps, domain.Pin{ID: p.ID, ParentID: p.ParentID, CreatedAt: p.CreatedAt})
		}
		return domain.PinIDs(domain.OrderPins(ps))
	}

	a := newPin(fresh(), wb1, nil, "A", now, nil)
	c := newPin(fresh(), wb1, &a, "C", now.Add(time.Second), nil)
	// B goes between A and C; C is relinked in the same write.
	b := fresh()
	newPin(b, wb1, &a, "B", now.Add(2*time.Second), []domain.ParentChange{{PinID: c, ParentID: &b}})
	if got := order(wb1); !equalPinIDs(got, []domain.PinID{a, b, c}) {
		t.Fatalf("order after insert: %v", got)
	}

	// A relink naming a pin on another whiteboard rejects the whole create.
	stray := newPin(fresh(), wb2, nil, "Stray", now, nil)
	if err := repos.Pins.Create(ctx, pinrepoport.Pin{
		ID:           fresh(),
		TripID:       tripID,
		WhiteboardID: wb1,
		ParentID:     &c,
		Name:         "D",
		CreatedAt:    now.Add(4 * time.Second),
		UpdatedAt:    now.Add(4 * time.Second),
	}, []domain.ParentChange{{PinID: stray, ParentID: &c}}); !errors.Is(err, pinrepoport.ErrNotFound) {
		t.Fatalf("Create with foreign relink: err=%v, want ErrNotFound", err)
	}
	if got := order(wb1); !equalPinIDs(got, []domain.PinID{a, b, c}) {
		t.Fatalf("order after rejected create: %v", got)
	}

	// Deleting B links C to A in the same write.
	if err := repos.Pins.Delete(ctx, b, wb1, []domain.ParentChange{{PinID: c, ParentID: &a}}, now.Add(5*time.Second)); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := repos.Pins.GetByID(ctx, c)
	if err != nil || got.ParentID == nil || *got.ParentID != a {
		t.Fatalf("C after delete: %#v err=%v", got, err)
	}

	// A failed relink keeps the pin.
	if err := repos.Pins.Delete(ctx, c, wb1, []domain.ParentChange{{PinID: stray}}, now.Add(6*time.Second)); !errors.Is(err, pinrepoport.ErrNotFound) {
		t.Fatalf("Delete with foreign relink: err=%v, want ErrNotFound", err)
	}
	if _, err := repos.Pins.GetByID(ctx, c); err != nil {
		t.Fatalf("C removed by a failed delete: %v", err)
	}

	// A cross-board move touches both whiteboards or neither.
	err = repos.Pins.UpdateParents(ctx, now.Add(7*time.Second),
		pinrepoport.BoardChanges{WhiteboardID: wb2, Changes: []domain.ParentChange{{PinID: c, ParentID: &stray}}},
		pinrepoport.BoardChanges{WhiteboardID: wb1, Changes: []domain.ParentChange{{PinID: fresh()}}},
	)
	if !errors.Is(err, pinrepoport.ErrNotFound) {
		t.Fatalf("UpdateParents with missing pin: err=%v, want ErrNotFound", err)
	}
	if got, _ := repos.Pins.GetByID(ctx, c); got.WhiteboardID != wb1 {
		t.Fatalf("C moved by a failed update: %#v", got)
	}
	if err := repos.Pins.UpdateParents(ctx, now.Add(8*time.Second),
		pinrepoport.BoardChanges{WhiteboardID: wb2, Changes: []domain.ParentChange{{PinID: c, ParentID: &stray}}},
		pinrepoport.BoardChanges{WhiteboardID: wb1},
	); err != nil {
		t.Fatalf("UpdateParents across whiteboards: %v", err)
	}
	if got := order(wb2); !equalPinIDs(got, []domain.PinID{stray, c}) {
		t.Fatalf("wb2 order after move: %v", got)
	}
	if got := order(wb1); !equalPinIDs(got, []domain.PinID{a}) {
		t.Fatalf("wb1 order after move: %v", got)
	}
}

func equalPinIDs(a, b []domain.PinID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// RunPinCreateOnDeletedWhiteboard covers adapters that enforce whiteboard existence
// when writing a pin.
func RunPinCreateOnDeletedWhiteboard(t *testing.T, newRepos ReposFactory) {
	t.Helper()
	repos := openRepos(t, newRepos)
	ctx := context.Background()

	now := time.Unix(9000, 0).UTC()
	creator := seedMember(t, ctx, repos, "Creator", now)
	tripID := seedTrip(t, ctx, repos, creator, now)
	wb := seedWhiteboard(t, ctx, repos, tripID, 1, now)
	if err := repos.Whiteboards.Delete(ctx, wb); err != nil {
		t.Fatalf("Delete whiteboard: %v", err)
	}

	err := repos.Pins.Create(ctx, pinrepoport.Pin{
		ID:           domain.PinID(uuid.NewString()),
		TripID:       tripID,
		WhiteboardID: wb,
		Name:         "Orphan",
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil)
	if !errors.Is(err, pinrepoport.ErrWhiteboardNotFound) {
		t.Fatalf("Create on deleted whiteboard: err=%v, want ErrWhiteboardNotFound", err)
	}
}

package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tripboard/tripboard-api/internal/domain"
	idempotencyport "github.com/tripboard/tripboard-api/internal/ports/out/idempotency"
	memberrepoport "github.com/tripboard/tripboard-api/internal/ports/out/memberrepo"
)

type CleanupFunc = func()

type MemberRepoFactory func(t *testing.T) (memberrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      "k-1",
		Subject:  domain.SubjectID("sub-1"),
		Method:   "PATCH",
		Route:    "/members/me",
		BodyHash: "",
	}
	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// Expiry drops only records created before the cutoff.
	fresh := fp
	fresh.Key = "k-2"
	if err := store.Put(ctx, fresh, idempotencyport.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"trip":{}}`),
		CreatedAt:   time.Unix(5000, 0).UTC(),
	}); err != nil {
		t.Fatalf("Put fresh: %v", err)
	}
	n, err := store.DeleteBefore(ctx, time.Unix(1000, 0).UTC())
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 1 {
		t.Fatalf("DeleteBefore removed %d, want 1", n)
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("expired record still present: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.Get(ctx, fresh); err != nil || !ok {
		t.Fatalf("fresh record missing: ok=%v err=%v", ok, err)
	}
}

func RunMemberRepo(t *testing.T, newRepo MemberRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	aID := domain.MemberID(uuid.NewString())
	sub := domain.SubjectID("sub-a")
	if err := repo.Create(ctx, memberrepoport.Member{
		ID:          aID,
		Subject:     sub,
		DisplayName: "Alice Johnson",
		Email:       "alice@example.com",
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	if _, err := repo.GetByID(ctx, aID); err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if _, err := repo.GetBySubject(ctx, sub); err != nil {
		t.Fatalf("GetBySubject: %v", err)
	}

	// Subject uniqueness.
	if err := repo.Create(ctx, memberrepoport.Member{
		ID:          domain.MemberID(uuid.NewString()),
		Subject:     sub,
		DisplayName: "Alice 2",
		Email:       "alice2@example.com",
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err == nil {
		t.Fatalf("expected subject uniqueness error")
	}

	// Deterministic list ordering by displayName (case-insensitive).
	bID := domain.MemberID(uuid.NewString())
	if err := repo.Create(ctx, memberrepoport.Member{
		ID:          bID,
		Subject:     domain.SubjectID("sub-b"),
		DisplayName: "bob",
		Email:       "bob@example.com",
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("Create b: %v", err)
	}
	cs, err := repo.List(ctx, true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(cs) < 2 || cs[0].DisplayName != "Alice Johnson" {
		t.Fatalf("unexpected ordering: %#v", cs)
	}

	// Search token match (AND across tokens), active-only, limit.
	inactiveID := domain.MemberID(uuid.NewString())
	if err := repo.Create(ctx, memberrepoport.Member{
		ID:          inactiveID,
		Subject:     domain.SubjectID("sub-c"),
		DisplayName: "Alice Inactive",
		Email:       "alice-inactive@example.com",
		IsActive:    false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("Create inactive: %v", err)
	}
	res, err := repo.SearchActiveByDisplayName(ctx, "ali jo", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].ID != aID {
		t.Fatalf("unexpected search result: %#v", res)
	}

	// Email lookup is case-insensitive.
	byEmail, err := repo.GetByEmail(ctx, "ALICE@example.com")
	if err != nil || byEmail.ID != aID {
		t.Fatalf("GetByEmail: id=%q err=%v", byEmail.ID, err)
	}
	if _, err := repo.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("GetByEmail unknown: err=%v, want ErrNotFound", err)
	}

	// Batch lookup skips unknown IDs.
	batch, err := repo.ListByIDs(ctx, []domain.MemberID{bID, domain.MemberID(uuid.NewString()), aID})
	if err != nil {
		t.Fatalf("ListByIDs: %v", err)
	}
	if len(batch) != 2 || batch[0].ID != aID || batch[1].ID != bID {
		t.Fatalf("unexpected ListByIDs result: %#v", batch)
	}

	// Profile image round-trip.
	a, _ := repo.GetByID(ctx, aID)
	url := "https://img.example/alice.png"
	a.ProfileImageURL = &url
	a.UpdatedAt = now.Add(time.Minute)
	if err := repo.Update(ctx, a); err != nil {
		t.Fatalf("Update: %v", err)
	}
	a, _ = repo.GetByID(ctx, aID)
	if a.ProfileImageURL == nil || *a.ProfileImageURL != url {
		t.Fatalf("ProfileImageURL=%v, want %q", a.ProfileImageURL, url)
	}
}

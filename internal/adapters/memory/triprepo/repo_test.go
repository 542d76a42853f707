package triprepo

import (
	"context"
	"testing"
	"time"

	"github.com/tripboard/tripboard-api/internal/domain"
	"github.com/tripboard/tripboard-api/internal/ports/out/triprepo"
)

func TestRepo_ListByIDs_SortsDatedFirst(t *testing.T) {
	t.Parallel()

	r := NewRepo()

	start1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	start2 := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	// Undated, created between the dated trips; sorts after all dated trips.
	tUndated := triprepo.Trip{ID: "t3", Name: "c", CreatedAt: time.Unix(20, 0).UTC()}
	tDated1 := triprepo.Trip{ID: "t1", Name: "a", StartDate: &start1, EndDate: &start1, CreatedAt: time.Unix(10, 0).UTC()}
	tDated2 := triprepo.Trip{ID: "t2", Name: "b", StartDate: &start2, EndDate: &start2, CreatedAt: time.Unix(30, 0).UTC()}
	tOther := triprepo.Trip{ID: "t4", Name: "d", CreatedAt: time.Unix(40, 0).UTC()}

	_ = r.Create(context.Background(), tUndated)
	_ = r.Create(context.Background(), tDated2)
	_ = r.Create(context.Background(), tDated1)
	_ = r.Create(context.Background(), tOther)

	got, err := r.ListByIDs(context.Background(), []domain.TripID{"t3", "t2", "t1", "missing"})
	if err != nil {
		t.Fatalf("ListByIDs() err=%v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len=%d, want 3", len(got))
	}
	if got[0].ID != "t1" || got[1].ID != "t2" || got[2].ID != "t3" {
		t.Fatalf("order=%v, want [t1 t2 t3]", []domain.TripID{got[0].ID, got[1].ID, got[2].ID})
	}
}

func TestRepo_ListByIDs_OmitsImageBytes(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	_ = r.Create(context.Background(), triprepo.Trip{
		ID:    "t1",
		Name:  "Coast",
		Image: &domain.Image{ContentType: "image/png", Data: []byte{1, 2, 3}},
	})

	got, err := r.ListByIDs(context.Background(), []domain.TripID{"t1"})
	if err != nil {
		t.Fatalf("ListByIDs() err=%v", err)
	}
	if got[0].Image == nil || got[0].Image.ContentType != "image/png" || len(got[0].Image.Data) != 0 {
		t.Fatalf("Image=%+v, want content type only", got[0].Image)
	}

	full, _ := r.GetByID(context.Background(), "t1")
	if len(full.Image.Data) != 3 {
		t.Fatalf("GetByID().Image.Data len=%d, want 3", len(full.Image.Data))
	}
}

func TestRepo_SaveAndDeleteRequireExisting(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	if err := r.Save(context.Background(), triprepo.Trip{ID: "t1"}); err != triprepo.ErrNotFound {
		t.Fatalf("Save(missing) err=%v, want %v", err, triprepo.ErrNotFound)
	}
	if err := r.Delete(context.Background(), "t1"); err != triprepo.ErrNotFound {
		t.Fatalf("Delete(missing) err=%v, want %v", err, triprepo.ErrNotFound)
	}

	_ = r.Create(context.Background(), triprepo.Trip{ID: "t1", Name: "x"})
	if err := r.Delete(context.Background(), "t1"); err != nil {
		t.Fatalf("Delete() err=%v", err)
	}
	if _, err := r.GetByID(context.Background(), "t1"); err != triprepo.ErrNotFound {
		t.Fatalf("GetByID(after delete) err=%v, want %v", err, triprepo.ErrNotFound)
	}
}

func TestRepo_CloneIsolatesCallerMutations(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	desc := "before"
	data := []byte{9}
	_ = r.Create(context.Background(), triprepo.Trip{ID: "t1", Description: &desc, Image: &domain.Image{ContentType: "image/gif", Data: data}})
	desc = "after"
	data[0] = 0

	got, _ := r.GetByID(context.Background(), "t1")
	if *got.Description != "before" || got.Image.Data[0] != 9 {
		t.Fatalf("stored trip was mutated: desc=%q data=%v", *got.Description, got.Image.Data)
	}
}

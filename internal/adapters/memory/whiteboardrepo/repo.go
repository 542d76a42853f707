package whiteboardrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/tripboard/tripboard-api/internal/domain"
	"github.com/tripboard/tripboard-api/internal/ports/out/whiteboardrepo"
)

type dayKey struct {
	tripID domain.TripID
	day    int
}

// Repo is an in-memory implementation of whiteboardrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu    sync.RWMutex
	byID  map[domain.WhiteboardID]whiteboardrepo.Whiteboard
	byDay map[dayKey]domain.WhiteboardID
}

func NewRepo() *Repo {
	return &Repo{
		byID:  make(map[domain.WhiteboardID]whiteboardrepo.Whiteboard),
		byDay: make(map[dayKey]domain.WhiteboardID),
	}
}

func (r *Repo) Create(ctx context.Context, w whiteboardrepo.Whiteboard) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	k := dayKey{tripID: w.TripID, day: w.Day}
	if _, ok := r.byDay[k]; ok {
		return whiteboardrepo.ErrDayTaken
	}
	r.byID[w.ID] = w
	r.byDay[k] = w.ID
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.WhiteboardID) (whiteboardrepo.Whiteboard, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.byID[id]
	if !ok {
		return whiteboardrepo.Whiteboard{}, whiteboardrepo.ErrNotFound
	}
	return w, nil
}

func (r *Repo) ListByTrip(ctx context.Context, tripID domain.TripID) ([]whiteboardrepo.Whiteboard, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]whiteboardrepo.Whiteboard, 0)
	for _, w := range r.byID {
		if w.TripID == tripID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *Repo) Delete(ctx context.Context, id domain.WhiteboardID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.byID[id]
	if !ok {
		return whiteboardrepo.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byDay, dayKey{tripID: w.TripID, day: w.Day})
	return nil
}

func (r *Repo) DeleteByTrip(ctx context.Context, tripID domain.TripID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, w := range r.byID {
		if w.TripID == tripID {
			delete(r.byID, id)
			delete(r.byDay, dayKey{tripID: w.TripID, day: w.Day})
		}
	}
	return nil
}

package pinrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tripboard/tripboard-api/internal/domain"
	"github.com/tripboard/tripboard-api/internal/ports/out/pinrepo"
)

// Repo is an in-memory implementation of pinrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.PinID]pinrepo.Pin
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.PinID]pinrepo.Pin)}
}

func (r *Repo) Create(ctx context.Context, p pinrepo.Pin, relink []domain.ParentChange) error {
	_ = ctx
	if p.ID == "" {
		return pinrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; ok {
		return pinrepo.ErrAlreadyExists
	}
	if err := r.checkLocked(p.WhiteboardID, relink); err != nil {
		return err
	}
	r.byID[p.ID] = clonePin(p, true)
	r.relinkLocked(p.WhiteboardID, relink, p.UpdatedAt)
	return nil
}

func (r *Repo) Save(ctx context.Context, p pinrepo.Pin) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; !ok {
		return pinrepo.ErrNotFound
	}
	r.byID[p.ID] = clonePin(p, true)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.PinID) (pinrepo.Pin, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return pinrepo.Pin{}, pinrepo.ErrNotFound
	}
	return clonePin(p, true), nil
}

func (r *Repo) ListByWhiteboard(ctx context.Context, whiteboardID domain.WhiteboardID) ([]pinrepo.Pin, error) {
	return r.list(ctx, func(p pinrepo.Pin) bool { return p.WhiteboardID == whiteboardID })
}

func (r *Repo) ListByTrip(ctx context.Context, tripID domain.TripID) ([]pinrepo.Pin, error) {
	return r.list(ctx, func(p pinrepo.Pin) bool { return p.TripID == tripID })
}

func (r *Repo) ListByParticipant(ctx context.Context, memberID domain.MemberID) ([]pinrepo.Pin, error) {
	return r.list(ctx, func(p pinrepo.Pin) bool {
		for _, id := range p.ParticipantIDs {
			if id == memberID {
				return true
			}
		}
		return false
	})
}

func (r *Repo) list(ctx context.Context, keep func(pinrepo.Pin) bool) ([]pinrepo.Pin, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]pinrepo.Pin, 0)
	for _, p := range r.byID {
		if keep(p) {
			out = append(out, clonePin(p, false))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repo) UpdateParents(ctx context.Context, at time.Time, batches ...pinrepo.BoardChanges) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	// Validate first so a bad change leaves nothing half-applied.
	for _, b := range batches {
		for _, c := range b.Changes {
			if _, ok := r.byID[c.PinID]; !ok {
				return pinrepo.ErrNotFound
			}
		}
	}
	for _, b := range batches {
		r.relinkLocked(b.WhiteboardID, b.Changes, at)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.PinID, whiteboardID domain.WhiteboardID, relink []domain.ParentChange, at time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.WhiteboardID != whiteboardID {
		return pinrepo.ErrNotFound
	}
	for _, c := range relink {
		if c.PinID == id {
			return pinrepo.ErrNotFound
		}
	}
	if err := r.checkLocked(whiteboardID, relink); err != nil {
		return err
	}
	delete(r.byID, id)
	r.relinkLocked(whiteboardID, relink, at)
	return nil
}

// checkLocked reports ErrNotFound unless every changed pin exists on whiteboardID.
func (r *Repo) checkLocked(whiteboardID domain.WhiteboardID, changes []domain.ParentChange) error {
	for _, c := range changes {
		p, ok := r.byID[c.PinID]
		if !ok || p.WhiteboardID != whiteboardID {
			return pinrepo.ErrNotFound
		}
	}
	return nil
}

func (r *Repo) relinkLocked(whiteboardID domain.WhiteboardID, changes []domain.ParentChange, at time.Time) {
	for _, c := range changes {
		p := r.byID[c.PinID]
		p.WhiteboardID = whiteboardID
		p.ParentID = clonePinIDPtr(c.ParentID)
		p.UpdatedAt = at
		r.byID[c.PinID] = p
	}
}

func (r *Repo) DeleteByWhiteboard(ctx context.Context, whiteboardID domain.WhiteboardID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.byID {
		if p.WhiteboardID == whiteboardID {
			delete(r.byID, id)
		}
	}
	return nil
}

func (r *Repo) RemoveParticipantFromTrip(ctx context.Context, tripID domain.TripID, memberID domain.MemberID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.byID {
		if p.TripID != tripID {
			continue
		}
		kept := p.ParticipantIDs[:0:0]
		for _, m := range p.ParticipantIDs {
			if m != memberID {
				kept = append(kept, m)
			}
		}
		if len(kept) != len(p.ParticipantIDs) {
			p.ParticipantIDs = kept
			r.byID[id] = p
		}
	}
	return nil
}

func clonePin(p pinrepo.Pin, withImage bool) pinrepo.Pin {
	cp := p
	cp.ParentID = clonePinIDPtr(p.ParentID)
	cp.Description = cloneStringPtr(p.Description)
	cp.Location = cloneLocation(p.Location)
	if p.Image != nil {
		img := domain.Image{ContentType: p.Image.ContentType}
		if withImage {
			img.Data = append([]byte(nil), p.Image.Data...)
		}
		cp.Image = &img
	}
	if p.Expenses != nil {
		cp.Expenses = append([]domain.Expense(nil), p.Expenses...)
	}
	if p.ParticipantIDs != nil {
		cp.ParticipantIDs = append([]domain.MemberID(nil), p.ParticipantIDs...)
	}
	return cp
}

func clonePinIDPtr(p *domain.PinID) *domain.PinID {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneLocation(l *domain.Location) *domain.Location {
	if l == nil {
		return nil
	}
	cp := *l
	cp.Address = cloneStringPtr(l.Address)
	if l.Latitude != nil {
		v := *l.Latitude
		cp.Latitude = &v
	}
	if l.Longitude != nil {
		v := *l.Longitude
		cp.Longitude = &v
	}
	return &cp
}

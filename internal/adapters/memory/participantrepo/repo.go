package participantrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/tripboard/tripboard-api/internal/domain"
	"github.com/tripboard/tripboard-api/internal/ports/out/participantrepo"
)

type key struct {
	tripID   domain.TripID
	memberID domain.MemberID
}

// Repo is an in-memory implementation of participantrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex
	m  map[key]participantrepo.Participant
}

func NewRepo() *Repo {
	return &Repo{m: make(map[key]participantrepo.Participant)}
}

func (r *Repo) Add(ctx context.Context, p participantrepo.Participant) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{tripID: p.TripID, memberID: p.MemberID}
	if _, ok := r.m[k]; ok {
		return nil
	}
	r.m[k] = p
	return nil
}

func (r *Repo) Get(ctx context.Context, tripID domain.TripID, memberID domain.MemberID) (participantrepo.Participant, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.m[key{tripID: tripID, memberID: memberID}]
	if !ok {
		return participantrepo.Participant{}, participantrepo.ErrNotFound
	}
	return v, nil
}

func (r *Repo) Remove(ctx context.Context, tripID domain.TripID, memberID domain.MemberID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, key{tripID: tripID, memberID: memberID})
	return nil
}

func (r *Repo) SetNickname(ctx context.Context, tripID domain.TripID, memberID domain.MemberID, nickname string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{tripID: tripID, memberID: memberID}
	v, ok := r.m[k]
	if !ok {
		return participantrepo.ErrNotFound
	}
	v.Nickname = nickname
	r.m[k] = v
	return nil
}

func (r *Repo) ListByTrip(ctx context.Context, tripID domain.TripID) ([]participantrepo.Participant, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]participantrepo.Participant, 0)
	for k, v := range r.m {
		if k.tripID == tripID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return string(out[i].MemberID) < string(out[j].MemberID)
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (r *Repo) ListTripIDsByMember(ctx context.Context, memberID domain.MemberID) ([]domain.TripID, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.TripID, 0)
	for k := range r.m {
		if k.memberID == memberID {
			out = append(out, k.tripID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *Repo) DeleteByTrip(ctx context.Context, tripID domain.TripID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.m {
		if k.tripID == tripID {
			delete(r.m, k)
		}
	}
	return nil
}

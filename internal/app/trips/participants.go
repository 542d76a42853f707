package trips

import (
	"context"
	"errors"
	"sort"

	"github.com/tripboard/tripboard-api/internal/domain"
	"github.com/tripboard/tripboard-api/internal/ports/out/events"
	"github.com/tripboard/tripboard-api/internal/ports/out/memberrepo"
	"github.com/tripboard/tripboard-api/internal/ports/out/participantrepo"
	"github.com/tripboard/tripboard-api/internal/ports/out/triprepo"
)

func (s *Service) ListParticipants(ctx context.Context, caller domain.MemberID, tripID domain.TripID) ([]domain.Participant, error) {
	t, err := s.requireParticipant(ctx, caller, tripID)
	if err != nil {
		return nil, err
	}
	return s.listParticipants(ctx, t)
}

// AddParticipants invites members to the trip. Members already taking part are left as they are.
func (s *Service) AddParticipants(ctx context.Context, caller domain.MemberID, tripID domain.TripID, memberIDs []domain.MemberID) ([]domain.Participant, error) {
	t, err := s.requireParticipant(ctx, caller, tripID)
	if err != nil {
		return nil, err
	}
	ids := dedupeMemberIDs(memberIDs)
	if len(ids) == 0 {
		return nil, validationError("memberIds", "invalid participants", "must contain at least one member")
	}
	if err := s.requireActiveMembers(ctx, "memberIds", ids); err != nil {
		return nil, err
	}

	now := s.clk.Now()
	for _, id := range ids {
		if err := s.participants.Add(ctx, participantrepo.Participant{TripID: t.ID, MemberID: id, JoinedAt: now}); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, events.ParticipantsChanged, t.ID, "", caller)
	return s.listParticipants(ctx, t)
}

// RemoveParticipant removes memberID from the trip and from every pin of the trip.
// The creator may remove anyone but themself; other participants may only leave.
func (s *Service) RemoveParticipant(ctx context.Context, caller domain.MemberID, tripID domain.TripID, memberID domain.MemberID) error {
	t, err := s.requireParticipant(ctx, caller, tripID)
	if err != nil {
		return err
	}
	if memberID == t.CreatorMemberID {
		return &Error{Status: 409, Code: "CREATOR_REQUIRED", Message: "the trip creator cannot be removed"}
	}
	if caller != t.CreatorMemberID && caller != memberID {
		return errForbidden("only the trip creator can remove other participants")
	}
	if _, err := s.participants.Get(ctx, t.ID, memberID); err != nil {
		if errors.Is(err, participantrepo.ErrNotFound) {
			return &Error{Status: 404, Code: "PARTICIPANT_NOT_FOUND", Message: "participant not found"}
		}
		return err
	}

	if err := s.pins.RemoveParticipantFromTrip(ctx, t.ID, memberID); err != nil {
		return err
	}
	if err := s.participants.Remove(ctx, t.ID, memberID); err != nil {
		return err
	}

	s.publish(ctx, events.ParticipantRemoved, t.ID, string(memberID), caller)
	return nil
}

// SetMyNickname sets the caller's per-trip display name. An empty nickname clears it.
func (s *Service) SetMyNickname(ctx context.Context, caller domain.MemberID, tripID domain.TripID, nickname string) (domain.Participant, error) {
	t, err := s.requireParticipant(ctx, caller, tripID)
	if err != nil {
		return domain.Participant{}, err
	}
	nickname = domain.NormalizeHumanName(nickname)
	if len([]rune(nickname)) > maxNicknameRunes {
		return domain.Participant{}, validationError("nickname", "invalid nickname", "must be at most 60 characters")
	}
	if err := s.participants.SetNickname(ctx, t.ID, caller, nickname); err != nil {
		if errors.Is(err, participantrepo.ErrNotFound) {
			return domain.Participant{}, errTripNotFound()
		}
		return domain.Participant{}, err
	}

	ps, err := s.listParticipants(ctx, t)
	if err != nil {
		return domain.Participant{}, err
	}
	s.publish(ctx, events.ParticipantsChanged, t.ID, string(caller), caller)
	for _, p := range ps {
		if p.MemberID == caller {
			return p, nil
		}
	}
	return domain.Participant{}, errTripNotFound()
}

// ListMyPins returns the pins the caller is a participant of, across all trips.
func (s *Service) ListMyPins(ctx context.Context, caller domain.MemberID) ([]domain.Pin, error) {
	ps, err := s.pins.ListByParticipant(ctx, caller)
	if err != nil {
		return nil, err
	}
	return toDomainPins(ps), nil
}

func (s *Service) listParticipants(ctx context.Context, t triprepo.Trip) ([]domain.Participant, error) {
	ps, err := s.participants.ListByTrip(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]domain.MemberID, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.MemberID)
	}
	ms, err := s.members.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[domain.MemberID]memberrepo.Member, len(ms))
	for _, m := range ms {
		byID[m.ID] = m
	}

	out := make([]domain.Participant, 0, len(ps))
	for _, p := range ps {
		m := byID[p.MemberID]
		out = append(out, domain.Participant{
			MemberID:        p.MemberID,
			Nickname:        p.Nickname,
			DisplayName:     m.DisplayName,
			ProfileImageURL: cloneStringPtr(m.ProfileImageURL),
			IsCreator:       p.MemberID == t.CreatorMemberID,
			JoinedAt:        p.JoinedAt,
		})
	}
	return out, nil
}

// requireActiveMembers fails with a validation error naming every id that is unknown or inactive.
func (s *Service) requireActiveMembers(ctx context.Context, field string, ids []domain.MemberID) error {
	if len(ids) == 0 {
		return nil
	}
	ms, err := s.members.ListByIDs(ctx, ids)
	if err != nil {
		return err
	}
	active := make(map[domain.MemberID]bool, len(ms))
	for _, m := range ms {
		if m.IsActive {
			active[m.ID] = true
		}
	}
	var unknown []string
	for _, id := range ids {
		if !active[id] {
			unknown = append(unknown, string(id))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "unknown members",
			Details: map[string]any{field: unknown},
		}
	}
	return nil
}

// requireTripParticipants fails with a validation error naming every id that does not take part in the trip.
func (s *Service) requireTripParticipants(ctx context.Context, field string, tripID domain.TripID, ids []domain.MemberID) error {
	if len(ids) == 0 {
		return nil
	}
	ps, err := s.participants.ListByTrip(ctx, tripID)
	if err != nil {
		return err
	}
	in := make(map[domain.MemberID]bool, len(ps))
	for _, p := range ps {
		in[p.MemberID] = true
	}
	var outsiders []string
	for _, id := range ids {
		if !in[id] {
			outsiders = append(outsiders, string(id))
		}
	}
	if len(outsiders) > 0 {
		sort.Strings(outsiders)
		return &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "members are not trip participants",
			Details: map[string]any{field: outsiders},
		}
	}
	return nil
}

func dedupeMemberIDs(ids []domain.MemberID) []domain.MemberID {
	out := make([]domain.MemberID, 0, len(ids))
	seen := make(map[domain.MemberID]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

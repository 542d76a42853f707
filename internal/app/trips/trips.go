package trips

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tripboard/tripboard-api/internal/domain"
	"github.com/tripboard/tripboard-api/internal/ports/out/events"
	"github.com/tripboard/tripboard-api/internal/ports/out/participantrepo"
	"github.com/tripboard/tripboard-api/internal/ports/out/triprepo"
	"github.com/tripboard/tripboard-api/internal/ports/out/whiteboardrepo"
)

// detailsConcurrency bounds parallel pin loading when assembling trip details.
const detailsConcurrency = 8

func (s *Service) CreateTrip(ctx context.Context, caller domain.MemberID, in CreateTripInput) (domain.TripDetails, error) {
	name, err := validateName("name", in.Name, true)
	if err != nil {
		return domain.TripDetails{}, err
	}
	start, end, err := s.validateDates(optionalTime(in.StartDate), optionalTime(in.EndDate))
	if err != nil {
		return domain.TripDetails{}, err
	}

	now := s.clk.Now()
	t := triprepo.Trip{
		ID:              s.newTripID(),
		Name:            name,
		Description:     normalizeText(in.Description),
		CreatorMemberID: caller,
		StartDate:       start,
		EndDate:         end,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.trips.Create(ctx, t); err != nil {
		if errors.Is(err, triprepo.ErrAlreadyExists) {
			return domain.TripDetails{}, &Error{Status: 409, Code: "TRIP_ALREADY_EXISTS", Message: "trip already exists"}
		}
		return domain.TripDetails{}, err
	}
	if err := s.participants.Add(ctx, participantrepo.Participant{TripID: t.ID, MemberID: caller, JoinedAt: now}); err != nil {
		return domain.TripDetails{}, err
	}
	if _, err := s.reconcile(ctx, t); err != nil {
		return domain.TripDetails{}, err
	}

	s.publish(ctx, events.TripCreated, t.ID, string(t.ID), caller)
	return s.details(ctx, t)
}

// ListMyTrips returns summaries of every trip the caller takes part in.
func (s *Service) ListMyTrips(ctx context.Context, caller domain.MemberID) ([]domain.TripSummary, error) {
	ids, err := s.participants.ListTripIDsByMember(ctx, caller)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.TripSummary{}, nil
	}
	ts, err := s.trips.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.TripSummary, len(ts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailsConcurrency)
	for i, t := range ts {
		g.Go(func() error {
			ws, err := s.whiteboards.ListByTrip(gctx, t.ID)
			if err != nil {
				return err
			}
			out[i] = toTripSummary(t, ws)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) GetTripDetails(ctx context.Context, caller domain.MemberID, tripID domain.TripID) (domain.TripDetails, error) {
	t, err := s.requireParticipant(ctx, caller, tripID)
	if err != nil {
		return domain.TripDetails{}, err
	}
	return s.details(ctx, t)
}

func (s *Service) UpdateTrip(ctx context.Context, caller domain.MemberID, tripID domain.TripID, in UpdateTripInput) (domain.TripDetails, error) {
	t, err := s.requireParticipant(ctx, caller, tripID)
	if err != nil {
		return domain.TripDetails{}, err
	}

	if in.Name.IsSpecified() {
		if in.Name.IsNull() {
			return domain.TripDetails{}, validationError("name", "invalid name", "must not be null")
		}
		name, err := validateName("name", in.Name.Value(), true)
		if err != nil {
			return domain.TripDetails{}, err
		}
		t.Name = name
	}
	if in.Description.IsSpecified() {
		if in.Description.IsNull() {
			t.Description = nil
		} else {
			v := in.Description.Value()
			t.Description = normalizeText(&v)
		}
	}

	start := applyTime(optionalTime(t.StartDate), in.StartDate)
	end := applyTime(optionalTime(t.EndDate), in.EndDate)
	t.StartDate, t.EndDate, err = s.validateDates(start, end)
	if err != nil {
		return domain.TripDetails{}, err
	}

	t.UpdatedAt = s.clk.Now()
	if err := s.trips.Save(ctx, t); err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return domain.TripDetails{}, errTripNotFound()
		}
		return domain.TripDetails{}, err
	}

	plan, err := s.reconcile(ctx, t)
	if err != nil {
		return domain.TripDetails{}, err
	}
	s.publish(ctx, events.TripUpdated, t.ID, string(t.ID), caller)
	if !plan.IsEmpty() {
		s.publish(ctx, events.WhiteboardsSynced, t.ID, "", caller)
	}
	return s.details(ctx, t)
}

func (s *Service) SetTripImage(ctx context.Context, caller domain.MemberID, tripID domain.TripID, img domain.Image) error {
	t, err := s.requireParticipant(ctx, caller, tripID)
	if err != nil {
		return err
	}
	img, err = s.validateImage(img)
	if err != nil {
		return err
	}
	t.Image = &img
	t.UpdatedAt = s.clk.Now()
	if err := s.trips.Save(ctx, t); err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return errTripNotFound()
		}
		return err
	}
	s.publish(ctx, events.TripUpdated, t.ID, string(t.ID), caller)
	return nil
}

func (s *Service) GetTripImage(ctx context.Context, caller domain.MemberID, tripID domain.TripID) (domain.Image, error) {
	t, err := s.requireParticipant(ctx, caller, tripID)
	if err != nil {
		return domain.Image{}, err
	}
	if t.Image == nil || len(t.Image.Data) == 0 {
		return domain.Image{}, errImageNotFound()
	}
	return *t.Image, nil
}

// DeleteTrip removes the trip with its whiteboards, pins and participants. Only the creator may delete.
func (s *Service) DeleteTrip(ctx context.Context, caller domain.MemberID, tripID domain.TripID) error {
	t, err := s.requireParticipant(ctx, caller, tripID)
	if err != nil {
		return err
	}
	if t.CreatorMemberID != caller {
		return errForbidden("only the trip creator can delete the trip")
	}

	ws, err := s.whiteboards.ListByTrip(ctx, t.ID)
	if err != nil {
		return err
	}
	for _, w := range ws {
		if err := s.deleteWhiteboard(ctx, w.ID); err != nil && !errors.Is(err, whiteboardrepo.ErrNotFound) {
			return err
		}
	}
	if err := s.whiteboards.DeleteByTrip(ctx, t.ID); err != nil {
		return err
	}
	if err := s.participants.DeleteByTrip(ctx, t.ID); err != nil {
		return err
	}
	if err := s.trips.Delete(ctx, t.ID); err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return errTripNotFound()
		}
		return err
	}

	s.publish(ctx, events.TripDeleted, t.ID, string(t.ID), caller)
	return nil
}

// validateDates enforces that the range is either fully set or fully unset and that it
// produces an acceptable number of days. Returned dates are date-only.
func (s *Service) validateDates(start, end Optional[time.Time]) (*time.Time, *time.Time, error) {
	hasStart := start.IsSpecified() && !start.IsNull()
	hasEnd := end.IsSpecified() && !end.IsNull()
	switch {
	case !hasStart && !hasEnd:
		return nil, nil, nil
	case !hasStart:
		return nil, nil, validationError("startDate", "invalid date range", "must be set together with endDate")
	case !hasEnd:
		return nil, nil, validationError("endDate", "invalid date range", "must be set together with startDate")
	}

	s0 := domain.DateOnly(start.Value())
	e0 := domain.DateOnly(end.Value())
	if _, err := domain.DayCount(s0, e0, s.maxTripDays); err != nil {
		if errors.Is(err, domain.ErrInvalidDateRange) {
			return nil, nil, validationError("endDate", "invalid date range", "must not be before startDate")
		}
		if errors.Is(err, domain.ErrDateRangeTooLong) {
			return nil, nil, &Error{
				Status:  422,
				Code:    "VALIDATION_ERROR",
				Message: "invalid date range",
				Details: map[string]any{"endDate": "trip is too long", "maxDays": s.maxTripDays},
			}
		}
		return nil, nil, err
	}
	return &s0, &e0, nil
}

// reconcile brings the trip's whiteboards in line with its date range. Trips without a
// date range are left alone.
func (s *Service) reconcile(ctx context.Context, t triprepo.Trip) (domain.WhiteboardPlan, error) {
	if t.StartDate == nil || t.EndDate == nil {
		return domain.WhiteboardPlan{}, nil
	}
	days, err := domain.DayCount(*t.StartDate, *t.EndDate, s.maxTripDays)
	if err != nil {
		return domain.WhiteboardPlan{}, err
	}
	ws, err := s.whiteboards.ListByTrip(ctx, t.ID)
	if err != nil {
		return domain.WhiteboardPlan{}, err
	}

	plan := domain.ReconcileWhiteboards(toDomainWhiteboards(ws), days)
	for _, id := range plan.Remove {
		if err := s.deleteWhiteboard(ctx, id); err != nil {
			return domain.WhiteboardPlan{}, err
		}
	}
	now := s.clk.Now()
	for _, day := range plan.Create {
		w := whiteboardrepo.Whiteboard{ID: s.newWhiteboardID(), TripID: t.ID, Day: day, CreatedAt: now}
		if err := s.whiteboards.Create(ctx, w); err != nil {
			// A concurrent reconciliation already created the day.
			if errors.Is(err, whiteboardrepo.ErrDayTaken) {
				continue
			}
			return domain.WhiteboardPlan{}, err
		}
	}
	return plan, nil
}

func (s *Service) details(ctx context.Context, t triprepo.Trip) (domain.TripDetails, error) {
	participants, err := s.listParticipants(ctx, t)
	if err != nil {
		return domain.TripDetails{}, err
	}
	ws, err := s.whiteboards.ListByTrip(ctx, t.ID)
	if err != nil {
		return domain.TripDetails{}, err
	}

	boards := make([]domain.WhiteboardWithPins, len(ws))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailsConcurrency)
	for i, w := range ws {
		g.Go(func() error {
			pins, err := s.orderedPins(gctx, w.ID)
			if err != nil {
				return err
			}
			boards[i] = domain.WhiteboardWithPins{Whiteboard: toDomainWhiteboard(w), Pins: pins}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.TripDetails{}, err
	}

	return domain.TripDetails{
		TripSummary:  toTripSummary(t, ws),
		Participants: participants,
		Whiteboards:  boards,
	}, nil
}

func toTripSummary(t triprepo.Trip, ws []whiteboardrepo.Whiteboard) domain.TripSummary {
	days := make([]int, 0, len(ws))
	for _, w := range ws {
		days = append(days, w.Day)
	}
	return domain.TripSummary{
		ID:              t.ID,
		Name:            t.Name,
		Description:     cloneStringPtr(t.Description),
		StartDate:       cloneTimePtr(t.StartDate),
		EndDate:         cloneTimePtr(t.EndDate),
		HasImage:        t.Image != nil,
		CreatorMemberID: t.CreatorMemberID,
		WhiteboardCount: len(ws),
		DayRange:        domain.DayRangeLabel(days),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func optionalTime(p *time.Time) Optional[time.Time] {
	if p == nil {
		return Null[time.Time]()
	}
	return Some(*p)
}

func applyTime(cur, patch Optional[time.Time]) Optional[time.Time] {
	if !patch.IsSpecified() {
		return cur
	}
	return patch
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

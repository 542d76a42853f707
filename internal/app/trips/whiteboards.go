package trips

import (
	"context"
	"errors"

	"github.com/tripboard/tripboard-api/internal/domain"
	"github.com/tripboard/tripboard-api/internal/ports/out/events"
	"github.com/tripboard/tripboard-api/internal/ports/out/whiteboardrepo"
)

func (s *Service) ListWhiteboards(ctx context.Context, caller domain.MemberID, tripID domain.TripID) ([]domain.Whiteboard, error) {
	if _, err := s.requireParticipant(ctx, caller, tripID); err != nil {
		return nil, err
	}
	ws, err := s.whiteboards.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return toDomainWhiteboards(ws), nil
}

// GetWhiteboard returns the whiteboard with its pins in display order.
func (s *Service) GetWhiteboard(ctx context.Context, caller domain.MemberID, id domain.WhiteboardID) (domain.WhiteboardWithPins, error) {
	w, _, err := s.loadWhiteboard(ctx, caller, id)
	if err != nil {
		return domain.WhiteboardWithPins{}, err
	}
	pins, err := s.orderedPins(ctx, w.ID)
	if err != nil {
		return domain.WhiteboardWithPins{}, err
	}
	return domain.WhiteboardWithPins{Whiteboard: toDomainWhiteboard(w), Pins: pins}, nil
}

// CreateWhiteboard adds a whiteboard for day. For trips with a date range the day must
// fall within it.
func (s *Service) CreateWhiteboard(ctx context.Context, caller domain.MemberID, tripID domain.TripID, day int) (domain.Whiteboard, error) {
	t, err := s.requireParticipant(ctx, caller, tripID)
	if err != nil {
		return domain.Whiteboard{}, err
	}
	if day < 1 {
		return domain.Whiteboard{}, validationError("day", "invalid day", "must be at least 1")
	}
	if t.StartDate != nil && t.EndDate != nil {
		n, err := domain.DayCount(*t.StartDate, *t.EndDate, s.maxTripDays)
		if err != nil {
			return domain.Whiteboard{}, err
		}
		if day > n {
			return domain.Whiteboard{}, &Error{
				Status:  422,
				Code:    "VALIDATION_ERROR",
				Message: "invalid day",
				Details: map[string]any{"day": "must be within the trip dates", "maxDay": n},
			}
		}
	}

	w := whiteboardrepo.Whiteboard{ID: s.newWhiteboardID(), TripID: t.ID, Day: day, CreatedAt: s.clk.Now()}
	if err := s.whiteboards.Create(ctx, w); err != nil {
		if errors.Is(err, whiteboardrepo.ErrDayTaken) {
			return domain.Whiteboard{}, &Error{
				Status:  409,
				Code:    "WHITEBOARD_DAY_EXISTS",
				Message: "a whiteboard for this day already exists",
				Details: map[string]any{"day": day},
			}
		}
		return domain.Whiteboard{}, err
	}

	s.publish(ctx, events.WhiteboardCreated, t.ID, string(w.ID), caller)
	return toDomainWhiteboard(w), nil
}

// DeleteWhiteboard removes the whiteboard and all of its pins.
func (s *Service) DeleteWhiteboard(ctx context.Context, caller domain.MemberID, id domain.WhiteboardID) error {
	w, _, err := s.loadWhiteboard(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.deleteWhiteboard(ctx, w.ID); err != nil {
		if errors.Is(err, whiteboardrepo.ErrNotFound) {
			return errWhiteboardNotFound()
		}
		return err
	}
	s.publish(ctx, events.WhiteboardDeleted, w.TripID, string(w.ID), caller)
	return nil
}

// SyncWhiteboards reconciles the trip's whiteboards with its date range and returns the result.
func (s *Service) SyncWhiteboards(ctx context.Context, caller domain.MemberID, tripID domain.TripID) ([]domain.Whiteboard, error) {
	t, err := s.requireParticipant(ctx, caller, tripID)
	if err != nil {
		return nil, err
	}
	if t.StartDate == nil || t.EndDate == nil {
		return nil, &Error{Status: 409, Code: "TRIP_DATES_UNSET", Message: "trip has no date range"}
	}
	plan, err := s.reconcile(ctx, t)
	if err != nil {
		return nil, err
	}
	if !plan.IsEmpty() {
		s.publish(ctx, events.WhiteboardsSynced, t.ID, "", caller)
	}
	ws, err := s.whiteboards.ListByTrip(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return toDomainWhiteboards(ws), nil
}

func (s *Service) deleteWhiteboard(ctx context.Context, id domain.WhiteboardID) error {
	unlock := s.boardLocks.Lock(string(id))
	defer unlock()

	if err := s.pins.DeleteByWhiteboard(ctx, id); err != nil {
		return err
	}
	return s.whiteboards.Delete(ctx, id)
}

func toDomainWhiteboard(w whiteboardrepo.Whiteboard) domain.Whiteboard {
	return domain.Whiteboard{ID: w.ID, TripID: w.TripID, Day: w.Day, CreatedAt: w.CreatedAt}
}

func toDomainWhiteboards(ws []whiteboardrepo.Whiteboard) []domain.Whiteboard {
	out := make([]domain.Whiteboard, 0, len(ws))
	for _, w := range ws {
		out = append(out, toDomainWhiteboard(w))
	}
	return out
}

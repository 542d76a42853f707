package trips

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/tripboard/tripboard-api/internal/domain"
	"github.com/tripboard/tripboard-api/internal/ports/out/events"
	"github.com/tripboard/tripboard-api/internal/ports/out/pinrepo"
	"github.com/tripboard/tripboard-api/internal/ports/out/whiteboardrepo"
)

// CreatePin adds a pin to the whiteboard, after AfterPinID when given and at the tail otherwise.
func (s *Service) CreatePin(ctx context.Context, caller domain.MemberID, whiteboardID domain.WhiteboardID, in CreatePinInput) (domain.Pin, error) {
	w, t, err := s.loadWhiteboard(ctx, caller, whiteboardID)
	if err != nil {
		return domain.Pin{}, err
	}

	name, err := validateName("name", in.Name, false)
	if err != nil {
		return domain.Pin{}, err
	}
	loc, err := validateLocation(in.Location)
	if err != nil {
		return domain.Pin{}, err
	}
	expenses, err := s.validateExpenses(ctx, t.ID, in.Expenses)
	if err != nil {
		return domain.Pin{}, err
	}
	participantIDs := dedupeMemberIDs(in.ParticipantIDs)
	if err := s.requireTripParticipants(ctx, "participantIds", t.ID, participantIDs); err != nil {
		return domain.Pin{}, err
	}

	unlock := s.boardLocks.Lock(string(w.ID))
	defer unlock()

	// The whiteboard may have been deleted while the lock was contended.
	if _, err := s.whiteboards.GetByID(ctx, w.ID); err != nil {
		if errors.Is(err, whiteboardrepo.ErrNotFound) {
			return domain.Pin{}, errWhiteboardNotFound()
		}
		return domain.Pin{}, err
	}

	current, err := s.currentPins(ctx, w.ID)
	if err != nil {
		return domain.Pin{}, err
	}
	id := s.newPinID()
	order, err := domain.InsertPinAfter(domain.PinIDs(domain.OrderPins(current)), id, in.AfterPinID)
	if err != nil {
		if errors.Is(err, domain.ErrPinNotInOrder) {
			return domain.Pin{}, validationError("afterPinId", "invalid position", "must be a pin on this whiteboard")
		}
		return domain.Pin{}, err
	}

	now := s.clk.Now()
	p := pinrepo.Pin{
		ID:             id,
		TripID:         t.ID,
		WhiteboardID:   w.ID,
		ParentID:       domain.Relink(order)[id],
		Name:           name,
		Description:    normalizeText(in.Description),
		Location:       loc,
		Expenses:       expenses,
		ParticipantIDs: participantIDs,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	// The new pin already carries its parent; only its successor may need relinking.
	var changes []domain.ParentChange
	for _, c := range domain.ParentChanges(current, order) {
		if c.PinID != id {
			changes = append(changes, c)
		}
	}
	if err := s.pins.Create(ctx, p, changes); err != nil {
		if errors.Is(err, pinrepo.ErrWhiteboardNotFound) {
			return domain.Pin{}, errWhiteboardNotFound()
		}
		return domain.Pin{}, err
	}

	s.publish(ctx, events.PinCreated, t.ID, string(p.ID), caller)
	return toDomainPin(p), nil
}

func (s *Service) GetPin(ctx context.Context, caller domain.MemberID, id domain.PinID) (domain.Pin, error) {
	p, err := s.loadPin(ctx, caller, id)
	if err != nil {
		return domain.Pin{}, err
	}
	return toDomainPin(p), nil
}

// UpdatePin applies a partial update. Expenses and ParticipantIDs replace the stored lists.
func (s *Service) UpdatePin(ctx context.Context, caller domain.MemberID, id domain.PinID, in UpdatePinInput) (domain.Pin, error) {
	p, err := s.loadPin(ctx, caller, id)
	if err != nil {
		return domain.Pin{}, err
	}

	if in.Name.IsSpecified() {
		if in.Name.IsNull() {
			return domain.Pin{}, validationError("name", "invalid name", "must not be null")
		}
		name, err := validateName("name", in.Name.Value(), false)
		if err != nil {
			return domain.Pin{}, err
		}
		p.Name = name
	}
	if in.Description.IsSpecified() {
		if in.Description.IsNull() {
			p.Description = nil
		} else {
			v := in.Description.Value()
			p.Description = normalizeText(&v)
		}
	}
	if in.Location.IsSpecified() {
		if in.Location.IsNull() {
			p.Location = nil
		} else {
			v := in.Location.Value()
			loc, err := validateLocation(&v)
			if err != nil {
				return domain.Pin{}, err
			}
			p.Location = loc
		}
	}
	if in.Expenses.IsSpecified() {
		var list []domain.Expense
		if !in.Expenses.IsNull() {
			list = in.Expenses.Value()
		}
		expenses, err := s.validateExpenses(ctx, p.TripID, list)
		if err != nil {
			return domain.Pin{}, err
		}
		p.Expenses = expenses
	}
	if in.ParticipantIDs.IsSpecified() {
		var ids []domain.MemberID
		if !in.ParticipantIDs.IsNull() {
			ids = dedupeMemberIDs(in.ParticipantIDs.Value())
		}
		if err := s.requireTripParticipants(ctx, "participantIds", p.TripID, ids); err != nil {
			return domain.Pin{}, err
		}
		p.ParticipantIDs = ids
	}

	p.UpdatedAt = s.clk.Now()
	if err := s.pins.Save(ctx, p); err != nil {
		if errors.Is(err, pinrepo.ErrNotFound) {
			return domain.Pin{}, errPinNotFound()
		}
		return domain.Pin{}, err
	}

	s.publish(ctx, events.PinUpdated, p.TripID, string(p.ID), caller)
	return toDomainPin(p), nil
}

// DeletePin removes the pin and links its successor to its parent.
func (s *Service) DeletePin(ctx context.Context, caller domain.MemberID, id domain.PinID) error {
	p, err := s.loadPin(ctx, caller, id)
	if err != nil {
		return err
	}

	unlock := s.boardLocks.Lock(string(p.WhiteboardID))
	defer unlock()

	if _, err := s.lockedPin(ctx, p.ID, p.WhiteboardID); err != nil {
		return err
	}
	current, err := s.currentPins(ctx, p.WhiteboardID)
	if err != nil {
		return err
	}
	order := domain.RemovePin(domain.PinIDs(domain.OrderPins(current)), p.ID)

	if err := s.pins.Delete(ctx, p.ID, p.WhiteboardID, domain.ParentChanges(current, order), s.clk.Now()); err != nil {
		if errors.Is(err, pinrepo.ErrNotFound) {
			return errPinNotFound()
		}
		return err
	}

	s.publish(ctx, events.PinDeleted, p.TripID, string(p.ID), caller)
	return nil
}

func (s *Service) SetPinImage(ctx context.Context, caller domain.MemberID, id domain.PinID, img domain.Image) error {
	p, err := s.loadPin(ctx, caller, id)
	if err != nil {
		return err
	}
	img, err = s.validateImage(img)
	if err != nil {
		return err
	}
	p.Image = &img
	p.UpdatedAt = s.clk.Now()
	if err := s.pins.Save(ctx, p); err != nil {
		if errors.Is(err, pinrepo.ErrNotFound) {
			return errPinNotFound()
		}
		return err
	}
	s.publish(ctx, events.PinUpdated, p.TripID, string(p.ID), caller)
	return nil
}

func (s *Service) GetPinImage(ctx context.Context, caller domain.MemberID, id domain.PinID) (domain.Image, error) {
	p, err := s.loadPin(ctx, caller, id)
	if err != nil {
		return domain.Image{}, err
	}
	if p.Image == nil || len(p.Image.Data) == 0 {
		return domain.Image{}, errImageNotFound()
	}
	return *p.Image, nil
}

// MovePin reorders a pin within its whiteboard or moves it to another whiteboard of the
// same trip. It returns the destination whiteboard in its new order.
func (s *Service) MovePin(ctx context.Context, caller domain.MemberID, id domain.PinID, in MovePinInput) (domain.WhiteboardWithPins, error) {
	if in.Index < 0 {
		return domain.WhiteboardWithPins{}, validationError("index", "invalid index", "must not be negative")
	}
	p, err := s.loadPin(ctx, caller, id)
	if err != nil {
		return domain.WhiteboardWithPins{}, err
	}

	source := p.WhiteboardID
	target := source
	if in.WhiteboardID != nil && *in.WhiteboardID != source {
		w, _, err := s.loadWhiteboard(ctx, caller, *in.WhiteboardID)
		if err != nil {
			return domain.WhiteboardWithPins{}, err
		}
		if w.TripID != p.TripID {
			return domain.WhiteboardWithPins{}, validationError("whiteboardId", "invalid whiteboard", "must belong to the pin's trip")
		}
		target = w.ID
	}

	unlock := s.boardLocks.Lock(string(source), string(target))
	defer unlock()

	if _, err := s.lockedPin(ctx, p.ID, source); err != nil {
		return domain.WhiteboardWithPins{}, err
	}
	if target != source {
		if _, err := s.whiteboards.GetByID(ctx, target); err != nil {
			if errors.Is(err, whiteboardrepo.ErrNotFound) {
				return domain.WhiteboardWithPins{}, errWhiteboardNotFound()
			}
			return domain.WhiteboardWithPins{}, err
		}
	}

	now := s.clk.Now()
	if source == target {
		current, err := s.currentPins(ctx, source)
		if err != nil {
			return domain.WhiteboardWithPins{}, err
		}
		order, err := domain.MovePin(domain.PinIDs(domain.OrderPins(current)), p.ID, in.Index)
		if err != nil {
			return domain.WhiteboardWithPins{}, fmt.Errorf("move pin %s: %w", p.ID, err)
		}
		if changes := domain.ParentChanges(current, order); len(changes) > 0 {
			if err := s.pins.UpdateParents(ctx, now, pinrepo.BoardChanges{WhiteboardID: source, Changes: changes}); err != nil {
				return domain.WhiteboardWithPins{}, err
			}
		}
	} else {
		srcPins, err := s.currentPins(ctx, source)
		if err != nil {
			return domain.WhiteboardWithPins{}, err
		}
		dstPins, err := s.currentPins(ctx, target)
		if err != nil {
			return domain.WhiteboardWithPins{}, err
		}
		srcOrder := domain.RemovePin(domain.PinIDs(domain.OrderPins(srcPins)), p.ID)
		dstOrder := domain.InsertPinAt(domain.PinIDs(domain.OrderPins(dstPins)), p.ID, in.Index)

		// The moved pin is unknown to the target list, so the target changes always carry it.
		err = s.pins.UpdateParents(ctx, now,
			pinrepo.BoardChanges{WhiteboardID: target, Changes: domain.ParentChanges(dstPins, dstOrder)},
			pinrepo.BoardChanges{WhiteboardID: source, Changes: domain.ParentChanges(srcPins, srcOrder)},
		)
		if err != nil {
			return domain.WhiteboardWithPins{}, err
		}
	}

	s.publish(ctx, events.PinsReordered, p.TripID, string(target), caller)

	w, err := s.whiteboards.GetByID(ctx, target)
	if err != nil {
		return domain.WhiteboardWithPins{}, err
	}
	pins, err := s.orderedPins(ctx, target)
	if err != nil {
		return domain.WhiteboardWithPins{}, err
	}
	return domain.WhiteboardWithPins{Whiteboard: toDomainWhiteboard(w), Pins: pins}, nil
}

// lockedPin re-reads the pin once the caller holds the lock for whiteboardID and fails
// when a concurrent request deleted it or moved it elsewhere.
func (s *Service) lockedPin(ctx context.Context, id domain.PinID, whiteboardID domain.WhiteboardID) (pinrepo.Pin, error) {
	p, err := s.pins.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pinrepo.ErrNotFound) {
			return pinrepo.Pin{}, errPinNotFound()
		}
		return pinrepo.Pin{}, err
	}
	if p.WhiteboardID != whiteboardID {
		return pinrepo.Pin{}, &Error{Status: 409, Code: "PIN_MOVED", Message: "pin was moved concurrently"}
	}
	return p, nil
}

// currentPins loads the whiteboard's pins as domain pins in storage order.
func (s *Service) currentPins(ctx context.Context, whiteboardID domain.WhiteboardID) ([]domain.Pin, error) {
	ps, err := s.pins.ListByWhiteboard(ctx, whiteboardID)
	if err != nil {
		return nil, err
	}
	return toDomainPins(ps), nil
}

// orderedPins loads the whiteboard's pins in display order.
func (s *Service) orderedPins(ctx context.Context, whiteboardID domain.WhiteboardID) ([]domain.Pin, error) {
	ps, err := s.currentPins(ctx, whiteboardID)
	if err != nil {
		return nil, err
	}
	return domain.OrderPins(ps), nil
}

func validateLocation(in *domain.Location) (*domain.Location, error) {
	if in == nil {
		return nil, nil
	}
	label := domain.NormalizeHumanName(in.Label)
	if label == "" {
		return nil, validationError("location.label", "invalid location", "must be non-empty")
	}
	if len([]rune(label)) > maxNameRunes {
		return nil, validationError("location.label", "invalid location", "must be at most 200 characters")
	}
	if in.Latitude != nil && (math.IsNaN(*in.Latitude) || *in.Latitude < -90 || *in.Latitude > 90) {
		return nil, validationError("location.latitude", "invalid location", "must be between -90 and 90")
	}
	if in.Longitude != nil && (math.IsNaN(*in.Longitude) || *in.Longitude < -180 || *in.Longitude > 180) {
		return nil, validationError("location.longitude", "invalid location", "must be between -180 and 180")
	}
	out := domain.Location{
		Label:   label,
		Address: normalizeText(in.Address),
	}
	if in.Latitude != nil {
		v := *in.Latitude
		out.Latitude = &v
	}
	if in.Longitude != nil {
		v := *in.Longitude
		out.Longitude = &v
	}
	return &out, nil
}

func (s *Service) validateExpenses(ctx context.Context, tripID domain.TripID, in []domain.Expense) ([]domain.Expense, error) {
	out := make([]domain.Expense, 0, len(in))
	var payers []domain.MemberID
	for i, e := range in {
		field := fmt.Sprintf("expenses[%d]", i)
		name := domain.NormalizeHumanName(e.Name)
		if name == "" {
			return nil, validationError(field+".name", "invalid expense", "must be non-empty")
		}
		if len([]rune(name)) > maxNameRunes {
			return nil, validationError(field+".name", "invalid expense", "must be at most 200 characters")
		}
		if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) || e.Amount < 0 {
			return nil, validationError(field+".amount", "invalid expense", "must be a finite amount of at least 0")
		}
		if e.MemberID != "" {
			payers = append(payers, e.MemberID)
		}
		out = append(out, domain.Expense{MemberID: e.MemberID, Name: name, Amount: e.Amount})
	}
	if err := s.requireTripParticipants(ctx, "expenses.memberId", tripID, dedupeMemberIDs(payers)); err != nil {
		return nil, err
	}
	return out, nil
}

func toDomainPin(p pinrepo.Pin) domain.Pin {
	out := domain.Pin{
		ID:           p.ID,
		TripID:       p.TripID,
		WhiteboardID: p.WhiteboardID,
		Name:         p.Name,
		Description:  cloneStringPtr(p.Description),
		HasImage:     p.Image != nil,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.ParentID != nil {
		v := *p.ParentID
		out.ParentID = &v
	}
	if p.Location != nil {
		loc := *p.Location
		out.Location = &loc
	}
	out.Expenses = append([]domain.Expense{}, p.Expenses...)
	out.ParticipantIDs = append([]domain.MemberID{}, p.ParticipantIDs...)
	return out
}

func toDomainPins(ps []pinrepo.Pin) []domain.Pin {
	out := make([]domain.Pin, 0, len(ps))
	for _, p := range ps {
		out = append(out, toDomainPin(p))
	}
	return out
}

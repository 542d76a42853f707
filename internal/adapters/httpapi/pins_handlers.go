package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tripboard/tripboard-api/internal/app/trips"
	"github.com/tripboard/tripboard-api/internal/domain"
)

func pinIDParam(r *http.Request) domain.PinID {
	return domain.PinID(chi.URLParam(r, "pinId"))
}

func (s *Server) CreatePin(w http.ResponseWriter, r *http.Request) {
	var body CreatePinRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	in := trips.CreatePinInput{
		Name:           body.Name,
		Description:    body.Description,
		ParticipantIDs: memberIDsToDomain(body.ParticipantIDs),
		Expenses:       expensesToDomain(body.Expenses),
	}
	if body.Location != nil {
		loc := locationToDomain(*body.Location)
		in.Location = &loc
	}
	if body.AfterPinID != nil && *body.AfterPinID != "" {
		after := domain.PinID(*body.AfterPinID)
		in.AfterPinID = &after
	}
	s.idempotent(w, r, "POST /whiteboards/{whiteboardId}/pins", body, func() (int, any, error) {
		p, err := s.Trips.CreatePin(r.Context(), callerMemberID(r), whiteboardIDParam(r), in)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, PinResponse{Pin: pinFromDomain(p)}, nil
	})
}

func (s *Server) GetPin(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		p, err := s.Trips.GetPin(r.Context(), callerMemberID(r), pinIDParam(r))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, PinResponse{Pin: pinFromDomain(p)}, nil
	})
}

func (s *Server) UpdatePin(w http.ResponseWriter, r *http.Request) {
	var body UpdatePinRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	s.respond(w, r, func() (int, any, error) {
		p, err := s.Trips.UpdatePin(r.Context(), callerMemberID(r), pinIDParam(r), updatePinInputFromRequest(body))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, PinResponse{Pin: pinFromDomain(p)}, nil
	})
}

func (s *Server) DeletePin(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		if err := s.Trips.DeletePin(r.Context(), callerMemberID(r), pinIDParam(r)); err != nil {
			return 0, nil, err
		}
		return http.StatusNoContent, nil, nil
	})
}

// MovePin reorders a pin and returns the destination whiteboard with its new order.
func (s *Server) MovePin(w http.ResponseWriter, r *http.Request) {
	var body MovePinRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	in := trips.MovePinInput{Index: body.Index}
	if body.WhiteboardID != nil && *body.WhiteboardID != "" {
		id := domain.WhiteboardID(*body.WhiteboardID)
		in.WhiteboardID = &id
	}
	s.respond(w, r, func() (int, any, error) {
		wb, err := s.Trips.MovePin(r.Context(), callerMemberID(r), pinIDParam(r), in)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, WhiteboardResponse{Whiteboard: whiteboardWithPinsFromDomain(wb)}, nil
	})
}

func (s *Server) SetPinImage(w http.ResponseWriter, r *http.Request) {
	img, err := s.readImage(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "could not read image body", nil)
		return
	}
	s.respond(w, r, func() (int, any, error) {
		if err := s.Trips.SetPinImage(r.Context(), callerMemberID(r), pinIDParam(r), img); err != nil {
			return 0, nil, err
		}
		return http.StatusNoContent, nil, nil
	})
}

func (s *Server) GetPinImage(w http.ResponseWriter, r *http.Request) {
	img, err := s.Trips.GetPinImage(r.Context(), callerMemberID(r), pinIDParam(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeImage(w, img)
}

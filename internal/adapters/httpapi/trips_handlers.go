package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tripboard/tripboard-api/internal/app/trips"
	"github.com/tripboard/tripboard-api/internal/domain"
)

func tripIDParam(r *http.Request) domain.TripID {
	return domain.TripID(chi.URLParam(r, "tripId"))
}

func (s *Server) ListMyTrips(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		ts, err := s.Trips.ListMyTrips(r.Context(), callerMemberID(r))
		if err != nil {
			return 0, nil, err
		}
		out := make([]TripSummary, 0, len(ts))
		for _, t := range ts {
			out = append(out, tripSummaryFromDomain(t))
		}
		return http.StatusOK, TripsResponse{Trips: out}, nil
	})
}

func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var body CreateTripRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	s.idempotent(w, r, "POST /trips", body, func() (int, any, error) {
		t, err := s.Trips.CreateTrip(r.Context(), callerMemberID(r), trips.CreateTripInput{
			Name:        body.Name,
			Description: body.Description,
			StartDate:   timePtrFromDate(body.StartDate),
			EndDate:     timePtrFromDate(body.EndDate),
		})
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, TripResponse{Trip: tripDetailsFromDomain(t)}, nil
	})
}

func (s *Server) GetTripDetails(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		t, err := s.Trips.GetTripDetails(r.Context(), callerMemberID(r), tripIDParam(r))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, TripResponse{Trip: tripDetailsFromDomain(t)}, nil
	})
}

func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	var body UpdateTripRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	s.respond(w, r, func() (int, any, error) {
		t, err := s.Trips.UpdateTrip(r.Context(), callerMemberID(r), tripIDParam(r), updateTripInputFromRequest(body))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, TripResponse{Trip: tripDetailsFromDomain(t)}, nil
	})
}

func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		if err := s.Trips.DeleteTrip(r.Context(), callerMemberID(r), tripIDParam(r)); err != nil {
			return 0, nil, err
		}
		return http.StatusNoContent, nil, nil
	})
}

func (s *Server) SetTripImage(w http.ResponseWriter, r *http.Request) {
	img, err := s.readImage(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "could not read image body", nil)
		return
	}
	s.respond(w, r, func() (int, any, error) {
		if err := s.Trips.SetTripImage(r.Context(), callerMemberID(r), tripIDParam(r), img); err != nil {
			return 0, nil, err
		}
		return http.StatusNoContent, nil, nil
	})
}

func (s *Server) GetTripImage(w http.ResponseWriter, r *http.Request) {
	img, err := s.Trips.GetTripImage(r.Context(), callerMemberID(r), tripIDParam(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeImage(w, img)
}

// Participants

func (s *Server) ListParticipants(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		ps, err := s.Trips.ListParticipants(r.Context(), callerMemberID(r), tripIDParam(r))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, ParticipantsResponse{Participants: participantsFromDomain(ps)}, nil
	})
}

func (s *Server) AddParticipants(w http.ResponseWriter, r *http.Request) {
	var body AddParticipantsRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	s.respond(w, r, func() (int, any, error) {
		ps, err := s.Trips.AddParticipants(r.Context(), callerMemberID(r), tripIDParam(r), memberIDsToDomain(body.MemberIDs))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, ParticipantsResponse{Participants: participantsFromDomain(ps)}, nil
	})
}

func (s *Server) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	memberID := domain.MemberID(chi.URLParam(r, "memberId"))
	s.respond(w, r, func() (int, any, error) {
		if err := s.Trips.RemoveParticipant(r.Context(), callerMemberID(r), tripIDParam(r), memberID); err != nil {
			return 0, nil, err
		}
		return http.StatusNoContent, nil, nil
	})
}

func (s *Server) SetMyNickname(w http.ResponseWriter, r *http.Request) {
	var body SetMyNicknameRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	s.respond(w, r, func() (int, any, error) {
		p, err := s.Trips.SetMyNickname(r.Context(), callerMemberID(r), tripIDParam(r), body.Nickname)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, ParticipantResponse{Participant: participantFromDomain(p)}, nil
	})
}

// Whiteboards

func whiteboardIDParam(r *http.Request) domain.WhiteboardID {
	return domain.WhiteboardID(chi.URLParam(r, "whiteboardId"))
}

func (s *Server) ListWhiteboards(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		ws, err := s.Trips.ListWhiteboards(r.Context(), callerMemberID(r), tripIDParam(r))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, WhiteboardsResponse{Whiteboards: whiteboardsFromDomain(ws)}, nil
	})
}

func (s *Server) CreateWhiteboard(w http.ResponseWriter, r *http.Request) {
	var body CreateWhiteboardRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	s.respond(w, r, func() (int, any, error) {
		wb, err := s.Trips.CreateWhiteboard(r.Context(), callerMemberID(r), tripIDParam(r), body.Day)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, WhiteboardResponse{Whiteboard: WhiteboardWithPins{
			Whiteboard: whiteboardFromDomain(wb),
			Pins:       []Pin{},
		}}, nil
	})
}

func (s *Server) SyncWhiteboards(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		ws, err := s.Trips.SyncWhiteboards(r.Context(), callerMemberID(r), tripIDParam(r))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, WhiteboardsResponse{Whiteboards: whiteboardsFromDomain(ws)}, nil
	})
}

func (s *Server) GetWhiteboard(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		wb, err := s.Trips.GetWhiteboard(r.Context(), callerMemberID(r), whiteboardIDParam(r))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, WhiteboardResponse{Whiteboard: whiteboardWithPinsFromDomain(wb)}, nil
	})
}

func (s *Server) DeleteWhiteboard(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		if err := s.Trips.DeleteWhiteboard(r.Context(), callerMemberID(r), whiteboardIDParam(r)); err != nil {
			return 0, nil, err
		}
		return http.StatusNoContent, nil, nil
	})
}

// Events

// StreamTripEvents upgrades to a websocket carrying the trip's change events.
func (s *Server) StreamTripEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "event stream not available", nil)
		return
	}
	tripID := tripIDParam(r)
	memberID := callerMemberID(r)
	ok, err := s.Trips.IsParticipant(r.Context(), memberID, tripID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, http.StatusNotFound, "TRIP_NOT_FOUND", "trip not found", nil)
		return
	}
	// The upgrader writes its own error response.
	if err := s.events.Serve(w, r, tripID, memberID); err != nil {
		s.log.Debug("event stream not established",
			zap.String("tripId", string(tripID)),
			zap.Error(err),
		)
	}
}

package httpapi

import (
	"net/http"
	"strconv"

	"github.com/tripboard/tripboard-api/internal/app/members"
)

func (s *Server) CreateMyMember(w http.ResponseWriter, r *http.Request) {
	var body CreateMyMemberRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	s.respond(w, r, func() (int, any, error) {
		m, err := s.Members.CreateMyMember(r.Context(), callerSubject(r), members.CreateMyMemberInput{
			DisplayName:     body.DisplayName,
			Email:           string(body.Email),
			ProfileImageURL: body.ProfileImageURL,
		})
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, MemberResponse{Member: memberProfileFromDomain(m)}, nil
	})
}

func (s *Server) GetMyMemberProfile(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		m, err := s.Members.GetMyMemberProfile(r.Context(), callerSubject(r))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, MemberResponse{Member: memberProfileFromDomain(m)}, nil
	})
}

func (s *Server) UpdateMyMemberProfile(w http.ResponseWriter, r *http.Request) {
	var body UpdateMyMemberProfileRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	s.idempotent(w, r, "PATCH /members/me", body, func() (int, any, error) {
		m, err := s.Members.UpdateMyMemberProfile(r.Context(), callerSubject(r), updateMyMemberProfileInputFromRequest(body))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, MemberResponse{Member: memberProfileFromDomain(m)}, nil
	})
}

func (s *Server) ListMembers(w http.ResponseWriter, r *http.Request) {
	includeInactive := false
	if raw := r.URL.Query().Get("includeInactive"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid query parameter", map[string]any{"includeInactive": "must be true or false"})
			return
		}
		includeInactive = v
	}
	s.respond(w, r, func() (int, any, error) {
		ms, err := s.Members.ListMembers(r.Context(), callerSubject(r), includeInactive)
		if err != nil {
			return 0, nil, err
		}
		out := make([]MemberDirectoryEntry, 0, len(ms))
		for _, m := range ms {
			out = append(out, memberDirectoryEntryFromDomain(m))
		}
		return http.StatusOK, MembersResponse{Members: out}, nil
	})
}

func (s *Server) SearchMembers(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		ms, err := s.Members.SearchMembers(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			return 0, nil, err
		}
		out := make([]MemberDirectoryEntry, 0, len(ms))
		for _, m := range ms {
			out = append(out, memberDirectoryEntryFromDomain(m))
		}
		return http.StatusOK, MembersResponse{Members: out}, nil
	})
}

// LookupMemberByEmail resolves an invitee by email address.
func (s *Server) LookupMemberByEmail(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		m, err := s.Members.GetMemberByEmail(r.Context(), r.URL.Query().Get("email"))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, MemberDirectoryEntryResponse{Member: memberDirectoryEntryFromDomain(m)}, nil
	})
}

func (s *Server) ListMyPins(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		ps, err := s.Trips.ListMyPins(r.Context(), callerMemberID(r))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, PinsResponse{Pins: pinsFromDomain(ps)}, nil
	})
}

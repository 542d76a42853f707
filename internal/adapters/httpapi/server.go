package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"go.uber.org/zap"

	"github.com/tripboard/tripboard-api/internal/app/members"
	"github.com/tripboard/tripboard-api/internal/app/trips"
	"github.com/tripboard/tripboard-api/internal/domain"
	"github.com/tripboard/tripboard-api/internal/platform/clock"
	clockport "github.com/tripboard/tripboard-api/internal/ports/out/clock"
	"github.com/tripboard/tripboard-api/internal/ports/out/idempotency"
)

// maxJSONBodyBytes bounds JSON request bodies. Images have their own limit.
const maxJSONBodyBytes = 1 << 20

// EventStream upgrades a request into a live subscription to a trip's change events.
type EventStream interface {
	Serve(w http.ResponseWriter, r *http.Request, tripID domain.TripID, memberID domain.MemberID) error
}

type ServerOptions struct {
	Logger *zap.Logger
	Clock  clockport.Clock
	// Events serves GET /trips/{tripId}/events. Nil disables the endpoint.
	Events        EventStream
	MaxImageBytes int64
}

// Server holds the HTTP handlers. It translates between wire DTOs and the application
// services and owns no business rules.
type Server struct {
	Members *members.Service
	Trips   *trips.Service
	Idem    idempotency.Store

	events        EventStream
	log           *zap.Logger
	clk           clockport.Clock
	maxImageBytes int64
}

func NewServer(membersSvc *members.Service, tripsSvc *trips.Service, idem idempotency.Store, opts ServerOptions) *Server {
	s := &Server{
		Members:       membersSvc,
		Trips:         tripsSvc,
		Idem:          idem,
		events:        opts.Events,
		log:           opts.Logger,
		clk:           opts.Clock,
		maxImageBytes: opts.MaxImageBytes,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.clk == nil {
		s.clk = clock.NewSystemClock()
	}
	if s.maxImageBytes <= 0 {
		s.maxImageBytes = trips.DefaultMaxImageBytes
	}
	return s
}

// decodeJSON reads a JSON body into v and writes the error response itself when it fails.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", map[string]any{"maxBytes": maxErr.Limit})
		case errors.Is(err, openapi_types.ErrValidationEmail):
			writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid email", map[string]any{"email": "must be a valid email address"})
		case errors.Is(err, io.EOF):
			writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "missing request body", nil)
		default:
			writeError(w, r, http.StatusBadRequest, "INVALID_JSON", "malformed JSON body", nil)
		}
		return false
	}
	if dec.More() {
		writeError(w, r, http.StatusBadRequest, "INVALID_JSON", "unexpected data after JSON body", nil)
		return false
	}
	return true
}

// readImage reads a raw image body. Bodies over the limit are cut at limit+1 bytes so
// the service can reject them without buffering the whole upload.
func (s *Server) readImage(r *http.Request) (domain.Image, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, s.maxImageBytes+1))
	if err != nil {
		return domain.Image{}, err
	}
	return domain.Image{ContentType: r.Header.Get("Content-Type"), Data: data}, nil
}

func writeImage(w http.ResponseWriter, img domain.Image) {
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=60")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

func callerSubject(r *http.Request) domain.SubjectID {
	sub, _ := SubjectFromContext(r.Context())
	return domain.SubjectID(sub)
}

func callerMemberID(r *http.Request) domain.MemberID {
	id, _ := MemberIDFromContext(r.Context())
	return id
}

func (s *Server) now() time.Time {
	return s.clk.Now().UTC()
}

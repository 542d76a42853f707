package trips

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tripboard/tripboard-api/internal/domain"
	clockport "github.com/tripboard/tripboard-api/internal/ports/out/clock"
	"github.com/tripboard/tripboard-api/internal/ports/out/events"
	"github.com/tripboard/tripboard-api/internal/ports/out/memberrepo"
	"github.com/tripboard/tripboard-api/internal/ports/out/participantrepo"
	"github.com/tripboard/tripboard-api/internal/ports/out/pinrepo"
	"github.com/tripboard/tripboard-api/internal/ports/out/triprepo"
	"github.com/tripboard/tripboard-api/internal/ports/out/whiteboardrepo"
)

// DefaultMaxImageBytes bounds uploaded trip and pin images.
const DefaultMaxImageBytes = 5 << 20

const (
	maxNameRunes     = 200
	maxNicknameRunes = 60
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Deps are the ports the service drives.
type Deps struct {
	Trips        triprepo.Repository
	Members      memberrepo.Repository
	Participants participantrepo.Repository
	Whiteboards  whiteboardrepo.Repository
	Pins         pinrepo.Repository
	Clock        clockport.Clock
	// Events is optional; nil drops events.
	Events events.Publisher
}

type Options struct {
	// MaxImageBytes defaults to DefaultMaxImageBytes.
	MaxImageBytes int64
	// MaxTripDays defaults to domain.DefaultMaxTripDays.
	MaxTripDays int
}

type Service struct {
	trips        triprepo.Repository
	members      memberrepo.Repository
	participants participantrepo.Repository
	whiteboards  whiteboardrepo.Repository
	pins         pinrepo.Repository
	clk          clockport.Clock
	events       events.Publisher

	maxImageBytes int64
	maxTripDays   int

	boardLocks keyedMutex

	newTripID       func() domain.TripID
	newWhiteboardID func() domain.WhiteboardID
	newPinID        func() domain.PinID
}

func NewService(deps Deps, opts Options) *Service {
	pub := deps.Events
	if pub == nil {
		pub = events.Discard{}
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = DefaultMaxImageBytes
	}
	if opts.MaxTripDays <= 0 {
		opts.MaxTripDays = domain.DefaultMaxTripDays
	}
	return &Service{
		trips:         deps.Trips,
		members:       deps.Members,
		participants:  deps.Participants,
		whiteboards:   deps.Whiteboards,
		pins:          deps.Pins,
		clk:           deps.Clock,
		events:        pub,
		maxImageBytes: opts.MaxImageBytes,
		maxTripDays:   opts.MaxTripDays,
		newTripID: func() domain.TripID {
			return domain.TripID(uuid.NewString())
		},
		newWhiteboardID: func() domain.WhiteboardID {
			return domain.WhiteboardID(uuid.NewString())
		},
		newPinID: func() domain.PinID {
			return domain.PinID(uuid.NewString())
		},
	}
}

// SetNewTripIDForTest overrides trip ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewTripIDForTest(fn func() domain.TripID) {
	if fn != nil {
		s.newTripID = fn
	}
}

// SetNewWhiteboardIDForTest overrides whiteboard ID generation for deterministic tests.
func (s *Service) SetNewWhiteboardIDForTest(fn func() domain.WhiteboardID) {
	if fn != nil {
		s.newWhiteboardID = fn
	}
}

// SetNewPinIDForTest overrides pin ID generation for deterministic tests.
func (s *Service) SetNewPinIDForTest(fn func() domain.PinID) {
	if fn != nil {
		s.newPinID = fn
	}
}

// IsParticipant reports whether caller takes part in tripID. Unknown trips report false.
func (s *Service) IsParticipant(ctx context.Context, caller domain.MemberID, tripID domain.TripID) (bool, error) {
	_, err := s.requireParticipant(ctx, caller, tripID)
	if err == nil {
		return true, nil
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Status == 404 {
		return false, nil
	}
	return false, err
}

func (s *Service) publish(ctx context.Context, typ events.Type, tripID domain.TripID, entityID string, actor domain.MemberID) {
	s.events.Publish(ctx, events.Event{
		Type:     typ,
		TripID:   tripID,
		EntityID: entityID,
		ActorID:  actor,
		At:       s.clk.Now(),
	})
}

// requireParticipant loads the trip and checks the caller takes part in it.
func (s *Service) requireParticipant(ctx context.Context, caller domain.MemberID, tripID domain.TripID) (triprepo.Trip, error) {
	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return triprepo.Trip{}, errTripNotFound()
		}
		return triprepo.Trip{}, err
	}
	if _, err := s.participants.Get(ctx, tripID, caller); err != nil {
		if errors.Is(err, participantrepo.ErrNotFound) {
			return triprepo.Trip{}, errTripNotFound()
		}
		return triprepo.Trip{}, err
	}
	return t, nil
}

func (s *Service) loadWhiteboard(ctx context.Context, caller domain.MemberID, id domain.WhiteboardID) (whiteboardrepo.Whiteboard, triprepo.Trip, error) {
	w, err := s.whiteboards.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, whiteboardrepo.ErrNotFound) {
			return whiteboardrepo.Whiteboard{}, triprepo.Trip{}, errWhiteboardNotFound()
		}
		return whiteboardrepo.Whiteboard{}, triprepo.Trip{}, err
	}
	t, err := s.requireParticipant(ctx, caller, w.TripID)
	if err != nil {
		var ae *Error
		if errors.As(err, &ae) && ae.Status == 404 {
			return whiteboardrepo.Whiteboard{}, triprepo.Trip{}, errWhiteboardNotFound()
		}
		return whiteboardrepo.Whiteboard{}, triprepo.Trip{}, err
	}
	return w, t, nil
}

func (s *Service) loadPin(ctx context.Context, caller domain.MemberID, id domain.PinID) (pinrepo.Pin, error) {
	p, err := s.pins.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pinrepo.ErrNotFound) {
			return pinrepo.Pin{}, errPinNotFound()
		}
		return pinrepo.Pin{}, err
	}
	if _, err := s.requireParticipant(ctx, caller, p.TripID); err != nil {
		var ae *Error
		if errors.As(err, &ae) && ae.Status == 404 {
			return pinrepo.Pin{}, errPinNotFound()
		}
		return pinrepo.Pin{}, err
	}
	return p, nil
}

// validateImage normalizes the content type and checks it against the sniffed bytes.
func (s *Service) validateImage(img domain.Image) (domain.Image, error) {
	if len(img.Data) == 0 {
		return domain.Image{}, validationError("image", "invalid image", "must not be empty")
	}
	if int64(len(img.Data)) > s.maxImageBytes {
		return domain.Image{}, &Error{
			Status:  413,
			Code:    "IMAGE_TOO_LARGE",
			Message: "image exceeds the maximum size",
			Details: map[string]any{"maxBytes": s.maxImageBytes},
		}
	}
	sniffed := http.DetectContentType(img.Data)
	declared := sniffed
	if img.ContentType != "" {
		mt, _, err := mime.ParseMediaType(img.ContentType)
		if err != nil {
			return domain.Image{}, validationError("contentType", "invalid image", "unparseable content type")
		}
		declared = strings.ToLower(mt)
	}
	if !allowedImageTypes[declared] {
		return domain.Image{}, validationError("contentType", "invalid image", "must be image/jpeg, image/png, image/gif or image/webp")
	}
	if sniffed != declared {
		return domain.Image{}, validationError("contentType", "invalid image", "content does not match "+declared)
	}
	return domain.Image{ContentType: declared, Data: img.Data}, nil
}

func validateName(field, raw string, required bool) (string, error) {
	name := domain.NormalizeHumanName(raw)
	if required && name == "" {
		return "", validationError(field, "invalid "+field, "must be non-empty")
	}
	if len([]rune(name)) > maxNameRunes {
		return "", validationError(field, "invalid "+field, "must be at most 200 characters")
	}
	return name, nil
}

// normalizeText trims s; empty text becomes nil.
func normalizeText(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

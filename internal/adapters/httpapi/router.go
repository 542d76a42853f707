package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type RouterOptions struct {
	// AuthMiddleware sets the request subject. Required.
	AuthMiddleware func(http.Handler) http.Handler
	Logger         *zap.Logger
	// CORSAllowedOrigins enables CORS for the listed origins when non-empty.
	CORSAllowedOrigins []string
}

// NewRouter constructs the API HTTP router.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewRequestLogger(log))
	r.Use(middleware.Recoverer)
	if len(opts.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", idempotencyKeyHeader, "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	// Health endpoint is unauthenticated (used for infra checks).
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(opts.AuthMiddleware)

		r.Post("/members", s.CreateMyMember)
		r.Get("/members/me", s.GetMyMemberProfile)

		r.Group(func(r chi.Router) {
			r.Use(s.requireMember)

			r.Get("/members", s.ListMembers)
			r.Get("/members/search", s.SearchMembers)
			r.Get("/members/lookup", s.LookupMemberByEmail)
			r.Patch("/members/me", s.UpdateMyMemberProfile)
			r.Get("/members/me/pins", s.ListMyPins)

			r.Route("/trips", func(r chi.Router) {
				r.Get("/", s.ListMyTrips)
				r.Post("/", s.CreateTrip)
				r.Route("/{tripId}", func(r chi.Router) {
					r.Get("/", s.GetTripDetails)
					r.Patch("/", s.UpdateTrip)
					r.Delete("/", s.DeleteTrip)
					r.Put("/image", s.SetTripImage)
					r.Get("/image", s.GetTripImage)
					r.Get("/participants", s.ListParticipants)
					r.Post("/participants", s.AddParticipants)
					r.Put("/participants/me", s.SetMyNickname)
					r.Delete("/participants/{memberId}", s.RemoveParticipant)
					r.Get("/whiteboards", s.ListWhiteboards)
					r.Post("/whiteboards", s.CreateWhiteboard)
					r.Post("/whiteboards/sync", s.SyncWhiteboards)
					r.Get("/events", s.StreamTripEvents)
				})
			})

			r.Route("/whiteboards/{whiteboardId}", func(r chi.Router) {
				r.Get("/", s.GetWhiteboard)
				r.Delete("/", s.DeleteWhiteboard)
				r.Post("/pins", s.CreatePin)
			})

			r.Route("/pins/{pinId}", func(r chi.Router) {
				r.Get("/", s.GetPin)
				r.Patch("/", s.UpdatePin)
				r.Delete("/", s.DeletePin)
				r.Put("/image", s.SetPinImage)
				r.Get("/image", s.GetPinImage)
				r.Post("/move", s.MovePin)
			})
		})
	})
	return r
}

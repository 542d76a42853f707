package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tripboard/tripboard-api/internal/adapters/httpapi"
	memidempotency "github.com/tripboard/tripboard-api/internal/adapters/memory/idempotency"
	memmemberrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/memberrepo"
	memparticipantrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/participantrepo"
	mempinrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/pinrepo"
	memtriprepo "github.com/tripboard/tripboard-api/internal/adapters/memory/triprepo"
	memwhiteboardrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/whiteboardrepo"
	postgres "github.com/tripboard/tripboard-api/internal/adapters/postgres"
	pgidempotency "github.com/tripboard/tripboard-api/internal/adapters/postgres/idempotency"
	pgmemberrepo "github.com/tripboard/tripboard-api/internal/adapters/postgres/memberrepo"
	pgparticipantrepo "github.com/tripboard/tripboard-api/internal/adapters/postgres/participantrepo"
	pgpinrepo "github.com/tripboard/tripboard-api/internal/adapters/postgres/pinrepo"
	pgtriprepo "github.com/tripboard/tripboard-api/internal/adapters/postgres/triprepo"
	pgwhiteboardrepo "github.com/tripboard/tripboard-api/internal/adapters/postgres/whiteboardrepo"
	"github.com/tripboard/tripboard-api/internal/adapters/realtime"
	"github.com/tripboard/tripboard-api/internal/app/members"
	"github.com/tripboard/tripboard-api/internal/app/trips"
	"github.com/tripboard/tripboard-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/tripboard/tripboard-api/internal/platform/clock"
	"github.com/tripboard/tripboard-api/internal/platform/config"
	"github.com/tripboard/tripboard-api/internal/platform/logging"
	clockport "github.com/tripboard/tripboard-api/internal/ports/out/clock"
	idempotencyport "github.com/tripboard/tripboard-api/internal/ports/out/idempotency"
	memberrepoport "github.com/tripboard/tripboard-api/internal/ports/out/memberrepo"
	participantrepoport "github.com/tripboard/tripboard-api/internal/ports/out/participantrepo"
	pinrepoport "github.com/tripboard/tripboard-api/internal/ports/out/pinrepo"
	triprepoport "github.com/tripboard/tripboard-api/internal/ports/out/triprepo"
	whiteboardrepoport "github.com/tripboard/tripboard-api/internal/ports/out/whiteboardrepo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

type repos struct {
	members      memberrepoport.Repository
	trips        triprepoport.Repository
	participants participantrepoport.Repository
	whiteboards  whiteboardrepoport.Repository
	pins         pinrepoport.Repository
	idem         idempotencyport.Store
}

func run() error {
	cfg, err := config.LoadServerConfigFromEnv()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Auth configuration:
	// - Production: require JWT_* env vars and enforce bearer auth
	// - Local dev: AUTH_MODE=dev bypasses JWT verification and uses X-Debug-Subject
	var authMW func(http.Handler) http.Handler
	authIssuer := ""
	switch cfg.AuthMode {
	case config.AuthModeDev:
		log.Warn("dev auth mode enabled; requests are trusted by X-Debug-Subject")
		authMW = httpapi.NewDevAuthMiddleware(cfg.DevSubject)
		authIssuer = cfg.DevIssuer
	default:
		jwtCfg, err := config.LoadJWTConfigFromEnv()
		if err != nil {
			return fmt.Errorf("invalid auth config: %w", err)
		}
		verifier := jwtverifier.NewWithOptions(jwtCfg, jwtverifier.Options{Logger: log.Named("jwt")})
		authMW = httpapi.NewAuthMiddleware(verifier)
		authIssuer = jwtCfg.Issuer
	}

	var r repos
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{MaxConns: cfg.DBMaxConns})
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		if cfg.DBAutoMigrate {
			if err := postgres.Migrate(ctx, pool, log.Named("migrate")); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		r = repos{
			members:      pgmemberrepo.NewRepo(pool, authIssuer),
			trips:        pgtriprepo.NewRepo(pool),
			participants: pgparticipantrepo.NewRepo(pool),
			whiteboards:  pgwhiteboardrepo.NewRepo(pool),
			pins:         pgpinrepo.NewRepo(pool),
			idem:         pgidempotency.NewStore(pool, authIssuer),
		}
	default:
		log.Warn("using in-memory storage; data is lost on restart")
		r = repos{
			members:      memmemberrepo.NewRepo(),
			trips:        memtriprepo.NewRepo(),
			participants: memparticipantrepo.NewRepo(),
			whiteboards:  memwhiteboardrepo.NewRepo(),
			pins:         mempinrepo.NewRepo(),
			idem:         memidempotency.NewStore(),
		}
	}

	clk := platformclock.NewSystemClock()
	origins := splitOrigins(cfg.CORSAllowedOrigin)
	hub := realtime.NewHub(log.Named("realtime"), realtime.HubOptions{AllowedOrigins: origins})
	defer hub.Close()

	memberSvc := members.NewService(r.members, clk)
	tripSvc := trips.NewService(trips.Deps{
		Trips:        r.trips,
		Members:      r.members,
		Participants: r.participants,
		Whiteboards:  r.whiteboards,
		Pins:         r.pins,
		Clock:        clk,
		Events:       hub,
	}, trips.Options{
		MaxImageBytes: cfg.MaxImageBytes,
		MaxTripDays:   cfg.MaxTripDays,
	})

	api := httpapi.NewServer(memberSvc, tripSvc, r.idem, httpapi.ServerOptions{
		Logger:        log.Named("http"),
		Clock:         clk,
		Events:        hub,
		MaxImageBytes: cfg.MaxImageBytes,
	})
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware:     authMW,
		Logger:             log.Named("http"),
		CORSAllowedOrigins: origins,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api listening",
			zap.String("addr", srv.Addr),
			zap.String("authMode", cfg.AuthMode),
			zap.String("storage", cfg.StorageBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		expireIdempotencyRecords(gctx, r.idem, clk, cfg.IdempotencyTTL, log.Named("idempotency"))
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		// Websocket connections are hijacked and not tracked by Shutdown.
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// expireIdempotencyRecords drops stored replays older than ttl until ctx is done.
func expireIdempotencyRecords(ctx context.Context, store idempotencyport.Store, clk clockport.Clock, ttl time.Duration, log *zap.Logger) {
	interval := ttl / 4
	if interval > time.Hour {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteBefore(ctx, clk.Now().Add(-ttl))
			if err != nil {
				if ctx.Err() == nil {
					log.Warn("expire idempotency records", zap.Error(err))
				}
				continue
			}
			if n > 0 {
				log.Debug("expired idempotency records", zap.Int("count", n))
			}
		}
	}
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Command devjwt is a tiny dev-only JWT issuer and JWKS server.
//
// It is not an OIDC provider. It lets local environments run the API with real RS256
// verification (iss/aud/exp + JWKS).
package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tripboard/tripboard-api/internal/platform/auth/jwks_testutil"
	"github.com/tripboard/tripboard-api/internal/platform/config"
	"github.com/tripboard/tripboard-api/internal/platform/logging"
)

func main() {
	logger, err := logging.New("info", "console")
	if err != nil {
		_, _ = os.Stderr.WriteString("init logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.LoadDevIssuerConfigFromEnv()
	if err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	kp, err := jwks_testutil.GenerateRSAKeypair(cfg.KID)
	if err != nil {
		logger.Fatal("generate key", zap.Error(err))
	}
	doc, err := jwks_testutil.MarshalJWKS([]jwks_testutil.Keypair{kp})
	if err != nil {
		logger.Fatal("marshal jwks", zap.Error(err))
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/.well-known/jwks.json", jwks_testutil.NewJWKSHandler(func() []byte { return doc }))

	// GET /token?sub=dev|alice
	r.Get("/token", func(w http.ResponseWriter, r *http.Request) {
		sub := strings.TrimSpace(r.URL.Query().Get("sub"))
		if sub == "" {
			http.Error(w, "missing sub", http.StatusBadRequest)
			return
		}

		now := time.Now().UTC()
		// Small nbf backdate tolerates skew between containers.
		nbf := -5 * time.Second
		token, err := jwks_testutil.MintRS256JWT(kp, cfg.Issuer, cfg.Audience, sub, now, cfg.TTL, &nbf)
		if err != nil {
			logger.Error("mint token", zap.Error(err))
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": token,
			"sub":   sub,
			"iss":   cfg.Issuer,
			"aud":   cfg.Audience,
			"exp":   now.Add(cfg.TTL).Unix(),
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("devjwt listening",
		zap.String("addr", srv.Addr),
		zap.String("iss", cfg.Issuer),
		zap.String("aud", cfg.Audience),
		zap.String("kid", cfg.KID),
		zap.Duration("ttl", cfg.TTL),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("listen", zap.Error(err))
	}
}

package config

import (
	"fmt"
	"os"
	"time"
)

// JWTConfig configures JWT verification against a JWKS endpoint.
type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string

	ClockSkew              time.Duration
	JWKSRefreshInterval    time.Duration
	JWKSMinRefreshInterval time.Duration

	HTTPTimeout time.Duration
}

func LoadJWTConfigFromEnv() (JWTConfig, error) {
	issuer := os.Getenv("JWT_ISSUER")
	audience := os.Getenv("JWT_AUDIENCE")
	jwksURL := os.Getenv("JWT_JWKS_URL")
	if issuer == "" || audience == "" || jwksURL == "" {
		return JWTConfig{}, fmt.Errorf("missing required env vars: JWT_ISSUER, JWT_AUDIENCE, JWT_JWKS_URL")
	}

	cfg := JWTConfig{
		Issuer:   issuer,
		Audience: audience,
		JWKSURL:  jwksURL,
	}

	var err error
	if cfg.ClockSkew, err = durationEnv("JWT_CLOCK_SKEW", 30*time.Second); err != nil {
		return JWTConfig{}, err
	}
	// Periodic refresh picks up key rotation even while an old key is still cached.
	if cfg.JWKSRefreshInterval, err = durationEnv("JWT_JWKS_REFRESH_INTERVAL", 5*time.Minute); err != nil {
		return JWTConfig{}, err
	}
	// Bounds refreshes triggered by unknown kids.
	if cfg.JWKSMinRefreshInterval, err = durationEnv("JWT_JWKS_MIN_REFRESH_INTERVAL", 10*time.Second); err != nil {
		return JWTConfig{}, err
	}
	if cfg.HTTPTimeout, err = durationEnv("JWT_HTTP_TIMEOUT", 5*time.Second); err != nil {
		return JWTConfig{}, err
	}
	return cfg, nil
}

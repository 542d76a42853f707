package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	AuthModeJWT = "jwt"
	AuthModeDev = "dev"

	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// ServerConfig is the process configuration read from the environment.
type ServerConfig struct {
	Port string

	AuthMode   string
	DevSubject string
	// DevIssuer namespaces dev-mode subjects in storage.
	DevIssuer string

	StorageBackend string
	DatabaseURL    string
	DBMaxConns     int32
	DBAutoMigrate  bool

	LogLevel  string
	LogFormat string

	MaxImageBytes int64
	MaxTripDays   int

	// IdempotencyTTL is how long replayable responses are kept.
	IdempotencyTTL time.Duration

	ShutdownTimeout   time.Duration
	CORSAllowedOrigin string
}

func LoadServerConfigFromEnv() (ServerConfig, error) {
	cfg := ServerConfig{
		Port:              getenv("PORT", "8080"),
		AuthMode:          strings.ToLower(getenv("AUTH_MODE", AuthModeJWT)),
		DevSubject:        getenv("DEV_SUBJECT", ""),
		DevIssuer:         getenv("DEV_ISSUER", "dev"),
		StorageBackend:    strings.ToLower(getenv("STORAGE_BACKEND", StorageMemory)),
		DatabaseURL:       getenv("DATABASE_URL", ""),
		LogLevel:          strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getenv("LOG_FORMAT", "json")),
		CORSAllowedOrigin: getenv("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),
	}

	switch cfg.AuthMode {
	case AuthModeJWT, AuthModeDev:
	default:
		return ServerConfig{}, fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeJWT, AuthModeDev, cfg.AuthMode)
	}
	switch cfg.StorageBackend {
	case StorageMemory:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return ServerConfig{}, fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	default:
		return ServerConfig{}, fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StorageMemory, StoragePostgres, cfg.StorageBackend)
	}
	switch cfg.LogFormat {
	case "json", "console":
	default:
		return ServerConfig{}, fmt.Errorf("LOG_FORMAT must be \"json\" or \"console\", got %q", cfg.LogFormat)
	}

	maxConns, err := intEnv("DB_MAX_CONNS", 10)
	if err != nil {
		return ServerConfig{}, err
	}
	if maxConns < 1 || maxConns > 1000 {
		return ServerConfig{}, fmt.Errorf("DB_MAX_CONNS must be between 1 and 1000, got %d", maxConns)
	}
	cfg.DBMaxConns = int32(maxConns)

	if cfg.DBAutoMigrate, err = boolEnv("DB_AUTO_MIGRATE", true); err != nil {
		return ServerConfig{}, err
	}
	if cfg.MaxImageBytes, err = intEnv("MAX_IMAGE_BYTES", 5<<20); err != nil {
		return ServerConfig{}, err
	}
	if cfg.MaxImageBytes <= 0 {
		return ServerConfig{}, fmt.Errorf("MAX_IMAGE_BYTES must be positive")
	}
	maxDays, err := intEnv("MAX_TRIP_DAYS", 366)
	if err != nil {
		return ServerConfig{}, err
	}
	if maxDays < 1 || maxDays > 3660 {
		return ServerConfig{}, fmt.Errorf("MAX_TRIP_DAYS must be between 1 and 3660, got %d", maxDays)
	}
	cfg.MaxTripDays = int(maxDays)

	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return ServerConfig{}, err
	}
	if cfg.IdempotencyTTL < time.Minute {
		return ServerConfig{}, fmt.Errorf("IDEMPOTENCY_TTL must be at least 1m, got %s", cfg.IdempotencyTTL)
	}
	if cfg.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

func (c ServerConfig) Addr() string { return ":" + c.Port }

// DevIssuerConfig configures the local token issuer in cmd/devjwt.
type DevIssuerConfig struct {
	Port     string
	Issuer   string
	Audience string
	KID      string
	TTL      time.Duration
}

func LoadDevIssuerConfigFromEnv() (DevIssuerConfig, error) {
	cfg := DevIssuerConfig{
		Port:     getenv("PORT", "5556"),
		Issuer:   getenv("ISSUER", "http://devjwt:5556"),
		Audience: getenv("AUDIENCE", "tripboard"),
		KID:      getenv("KID", "dev-kid-1"),
	}
	var err error
	if cfg.TTL, err = durationEnv("TTL", 30*time.Minute); err != nil {
		return DevIssuerConfig{}, err
	}
	return cfg, nil
}

package jwtverifier_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap/zaptest"

	memclock "github.com/tripboard/tripboard-api/internal/adapters/memory/clock"
	"github.com/tripboard/tripboard-api/internal/platform/auth/jwks_testutil"
	"github.com/tripboard/tripboard-api/internal/platform/auth/jwtverifier"
	"github.com/tripboard/tripboard-api/internal/platform/config"
)

func testConfig(jwksURL string) config.JWTConfig {
	return config.JWTConfig{
		Issuer:                 "test-iss",
		Audience:               "test-aud",
		JWKSURL:                jwksURL,
		ClockSkew:              0,
		JWKSRefreshInterval:    10 * time.Minute,
		JWKSMinRefreshInterval: 0,
		HTTPTimeout:            2 * time.Second,
	}
}

func newVerifier(t *testing.T, cfg config.JWTConfig, clk *memclock.ManualClock) *jwtverifier.Verifier {
	t.Helper()
	return jwtverifier.NewWithOptions(cfg, jwtverifier.Options{Clock: clk, Logger: zaptest.NewLogger(t)})
}

func TestVerifier_Verify_ValidToken(t *testing.T) {
	t.Parallel()

	jwksSrv, setKeys := jwks_testutil.NewRotatingJWKSServer()
	defer jwksSrv.Close()

	kp, err := jwks_testutil.GenerateRSAKeypair("kid-1")
	if err != nil {
		t.Fatalf("GenerateRSAKeypair: %v", err)
	}
	setKeys([]jwks_testutil.Keypair{kp})

	clk := memclock.NewManualClock(time.Unix(1700000000, 0))
	cfg := testConfig(jwksSrv.URL)
	v := newVerifier(t, cfg, clk)

	tok, err := jwks_testutil.MintRS256JWT(kp, cfg.Issuer, []string{"other", cfg.Audience}, "member-123", clk.Now(), 5*time.Minute, nil)
	if err != nil {
		t.Fatalf("MintRS256JWT: %v", err)
	}

	sub, err := v.Verify(context.Background(), tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if sub != "member-123" {
		t.Fatalf("sub mismatch: got %q", sub)
	}
}

func TestVerifier_Verify_ExpiredAndNotYetValid(t *testing.T) {
	t.Parallel()

	jwksSrv, setKeys := jwks_testutil.NewRotatingJWKSServer()
	defer jwksSrv.Close()

	kp, _ := jwks_testutil.GenerateRSAKeypair("kid-1")
	setKeys([]jwks_testutil.Keypair{kp})

	clk := memclock.NewManualClock(time.Unix(1700000000, 0))
	cfg := testConfig(jwksSrv.URL)
	v := newVerifier(t, cfg, clk)

	expired, _ := jwks_testutil.MintRS256JWT(kp, cfg.Issuer, cfg.Audience, "member-123", clk.Now(), -1*time.Minute, nil)
	if _, err := v.Verify(context.Background(), expired); !errors.Is(err, jwtverifier.ErrUnauthorized) {
		t.Fatalf("expired: err=%v", err)
	}

	nbf := time.Minute
	early, _ := jwks_testutil.MintRS256JWT(kp, cfg.Issuer, cfg.Audience, "member-123", clk.Now(), 5*time.Minute, &nbf)
	if _, err := v.Verify(context.Background(), early); err == nil {
		t.Fatalf("expected error for nbf in the future")
	}

	clk.Advance(2 * time.Minute)
	if _, err := v.Verify(context.Background(), early); err != nil {
		t.Fatalf("expected token to be valid after nbf: %v", err)
	}
}

func TestVerifier_Verify_ClockSkewTolerated(t *testing.T) {
	t.Parallel()

	jwksSrv, setKeys := jwks_testutil.NewRotatingJWKSServer()
	defer jwksSrv.Close()

	kp, _ := jwks_testutil.GenerateRSAKeypair("kid-1")
	setKeys([]jwks_testutil.Keypair{kp})

	clk := memclock.NewManualClock(time.Unix(1700000000, 0))
	cfg := testConfig(jwksSrv.URL)
	cfg.ClockSkew = 30 * time.Second
	v := newVerifier(t, cfg, clk)

	tok, _ := jwks_testutil.MintRS256JWT(kp, cfg.Issuer, cfg.Audience, "member-123", clk.Now(), -10*time.Second, nil)
	if _, err := v.Verify(context.Background(), tok); err != nil {
		t.Fatalf("expected skew to tolerate recently expired token: %v", err)
	}
}

func TestVerifier_Verify_WrongIssuerOrAudience(t *testing.T) {
	t.Parallel()

	jwksSrv, setKeys := jwks_testutil.NewRotatingJWKSServer()
	defer jwksSrv.Close()

	kp, _ := jwks_testutil.GenerateRSAKeypair("kid-1")
	setKeys([]jwks_testutil.Keypair{kp})

	clk := memclock.NewManualClock(time.Unix(1700000000, 0))
	cfg := testConfig(jwksSrv.URL)
	v := newVerifier(t, cfg, clk)

	wrongIss, _ := jwks_testutil.MintRS256JWT(kp, "wrong-iss", cfg.Audience, "member-123", clk.Now(), 5*time.Minute, nil)
	if _, err := v.Verify(context.Background(), wrongIss); err == nil {
		t.Fatalf("expected error for wrong iss")
	}

	wrongAud, _ := jwks_testutil.MintRS256JWT(kp, cfg.Issuer, "wrong-aud", "member-123", clk.Now(), 5*time.Minute, nil)
	if _, err := v.Verify(context.Background(), wrongAud); err == nil {
		t.Fatalf("expected error for wrong aud")
	}

	noSub, _ := jwks_testutil.MintRS256JWT(kp, cfg.Issuer, cfg.Audience, "", clk.Now(), 5*time.Minute, nil)
	if _, err := v.Verify(context.Background(), noSub); err == nil {
		t.Fatalf("expected error for empty sub")
	}
}

func TestVerifier_Verify_BadSignatureOrAlgorithm(t *testing.T) {
	t.Parallel()

	jwksSrv, setKeys := jwks_testutil.NewRotatingJWKSServer()
	defer jwksSrv.Close()

	kp, _ := jwks_testutil.GenerateRSAKeypair("kid-1")
	setKeys([]jwks_testutil.Keypair{kp})

	clk := memclock.NewManualClock(time.Unix(1700000000, 0))
	cfg := testConfig(jwksSrv.URL)
	v := newVerifier(t, cfg, clk)

	// Signed with a different private key than the one in JWKS.
	other, _ := rsa.GenerateKey(rand.Reader, 2048)
	otherKP := jwks_testutil.Keypair{Kid: "kid-1", Private: other}
	forged, _ := jwks_testutil.MintRS256JWT(otherKP, cfg.Issuer, cfg.Audience, "member-123", clk.Now(), 5*time.Minute, nil)
	if _, err := v.Verify(context.Background(), forged); err == nil {
		t.Fatalf("expected error for bad signature")
	}

	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": cfg.Issuer, "aud": cfg.Audience, "sub": "member-123", "exp": clk.Now().Add(time.Minute).Unix(),
	})
	hs.Header["kid"] = "kid-1"
	hsTok, err := hs.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	if _, err := v.Verify(context.Background(), hsTok); err == nil {
		t.Fatalf("expected error for HS256 token")
	}

	if _, err := v.Verify(context.Background(), "not-a-jwt"); err == nil {
		t.Fatalf("expected error for garbage token")
	}
}

func TestVerifier_Verify_JWKSRotation_OldKidRejected_NewKidAccepted(t *testing.T) {
	t.Parallel()

	jwksSrv, setKeys := jwks_testutil.NewRotatingJWKSServer()
	defer jwksSrv.Close()

	k1, _ := jwks_testutil.GenerateRSAKeypair("kid-1")
	k2, _ := jwks_testutil.GenerateRSAKeypair("kid-2")
	setKeys([]jwks_testutil.Keypair{k1})

	clk := memclock.NewManualClock(time.Unix(1700000000, 0))
	cfg := testConfig(jwksSrv.URL)
	cfg.JWKSRefreshInterval = 1 * time.Second
	v := newVerifier(t, cfg, clk)

	jwt1, _ := jwks_testutil.MintRS256JWT(k1, cfg.Issuer, cfg.Audience, "member-123", clk.Now(), 5*time.Minute, nil)
	if _, err := v.Verify(context.Background(), jwt1); err != nil {
		t.Fatalf("expected jwt1 to verify: %v", err)
	}

	// Rotate: JWKS now only contains kid-2.
	setKeys([]jwks_testutil.Keypair{k2})
	clk.Advance(2 * time.Second)

	if _, err := v.Verify(context.Background(), jwt1); err == nil {
		t.Fatalf("expected jwt1 to be rejected after rotation")
	}

	jwt2, _ := jwks_testutil.MintRS256JWT(k2, cfg.Issuer, cfg.Audience, "member-456", clk.Now(), 5*time.Minute, nil)
	sub, err := v.Verify(context.Background(), jwt2)
	if err != nil {
		t.Fatalf("expected jwt2 to verify: %v", err)
	}
	if sub != "member-456" {
		t.Fatalf("sub mismatch: got %q", sub)
	}
}

func TestVerifier_Verify_UnknownKidRefreshIsRateLimited(t *testing.T) {
	t.Parallel()

	kp, _ := jwks_testutil.GenerateRSAKeypair("kid-1")
	doc, err := jwks_testutil.MarshalJWKS([]jwks_testutil.Keypair{kp})
	if err != nil {
		t.Fatalf("MarshalJWKS: %v", err)
	}
	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		jwks_testutil.NewJWKSHandler(func() []byte { return doc }).ServeHTTP(w, r)
	}))
	defer srv.Close()

	clk := memclock.NewManualClock(time.Unix(1700000000, 0))
	cfg := testConfig(srv.URL)
	cfg.JWKSMinRefreshInterval = time.Minute
	v := newVerifier(t, cfg, clk)

	unknown, _ := jwks_testutil.GenerateRSAKeypair("kid-unknown")
	tok, _ := jwks_testutil.MintRS256JWT(unknown, cfg.Issuer, cfg.Audience, "member-123", clk.Now(), 5*time.Minute, nil)
	for i := 0; i < 3; i++ {
		if _, err := v.Verify(context.Background(), tok); err == nil {
			t.Fatalf("expected unknown kid to be rejected")
		}
	}
	if got := fetches.Load(); got != 1 {
		t.Fatalf("fetches=%d, want 1", got)
	}

	clk.Advance(time.Minute)
	_, _ = v.Verify(context.Background(), tok)
	if got := fetches.Load(); got != 2 {
		t.Fatalf("fetches=%d, want 2", got)
	}
}

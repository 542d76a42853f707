package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/tripboard/tripboard-api/internal/adapters/httpapi"
	memclock "github.com/tripboard/tripboard-api/internal/adapters/memory/clock"
	memidempotency "github.com/tripboard/tripboard-api/internal/adapters/memory/idempotency"
	memmemberrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/memberrepo"
	memparticipantrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/participantrepo"
	mempinrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/pinrepo"
	memtriprepo "github.com/tripboard/tripboard-api/internal/adapters/memory/triprepo"
	memwhiteboardrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/whiteboardrepo"
	pgidempotency "github.com/tripboard/tripboard-api/internal/adapters/postgres/idempotency"
	pgmemberrepo "github.com/tripboard/tripboard-api/internal/adapters/postgres/memberrepo"
	pgparticipantrepo "github.com/tripboard/tripboard-api/internal/adapters/postgres/participantrepo"
	pgpinrepo "github.com/tripboard/tripboard-api/internal/adapters/postgres/pinrepo"
	postgres_testutil "github.com/tripboard/tripboard-api/internal/adapters/postgres/testutil"
	pgtriprepo "github.com/tripboard/tripboard-api/internal/adapters/postgres/triprepo"
	pgwhiteboardrepo "github.com/tripboard/tripboard-api/internal/adapters/postgres/whiteboardrepo"
	"github.com/tripboard/tripboard-api/internal/adapters/realtime"
	"github.com/tripboard/tripboard-api/internal/app/members"
	"github.com/tripboard/tripboard-api/internal/app/trips"
	idempotencyport "github.com/tripboard/tripboard-api/internal/ports/out/idempotency"
	memberrepoport "github.com/tripboard/tripboard-api/internal/ports/out/memberrepo"
	participantrepoport "github.com/tripboard/tripboard-api/internal/ports/out/participantrepo"
	pinrepoport "github.com/tripboard/tripboard-api/internal/ports/out/pinrepo"
	triprepoport "github.com/tripboard/tripboard-api/internal/ports/out/triprepo"
	whiteboardrepoport "github.com/tripboard/tripboard-api/internal/ports/out/whiteboardrepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	const issuer = "itest-issuer"
	clk := memclock.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	var (
		memberRepo      memberrepoport.Repository
		tripRepo        triprepoport.Repository
		participantRepo participantrepoport.Repository
		whiteboardRepo  whiteboardrepoport.Repository
		pinRepo         pinrepoport.Repository
		idemStore       idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		memberRepo = pgmemberrepo.NewRepo(pool, issuer)
		tripRepo = pgtriprepo.NewRepo(pool)
		participantRepo = pgparticipantrepo.NewRepo(pool)
		whiteboardRepo = pgwhiteboardrepo.NewRepo(pool)
		pinRepo = pgpinrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool, issuer)
	case backendMemory:
		memberRepo = memmemberrepo.NewRepo()
		tripRepo = memtriprepo.NewRepo()
		participantRepo = memparticipantrepo.NewRepo()
		whiteboardRepo = memwhiteboardrepo.NewRepo()
		pinRepo = mempinrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	log := zaptest.NewLogger(t)
	hub := realtime.NewHub(log, realtime.HubOptions{})
	t.Cleanup(hub.Close)

	memberSvc := members.NewService(memberRepo, clk)
	tripSvc := trips.NewService(trips.Deps{
		Trips:        tripRepo,
		Members:      memberRepo,
		Participants: participantRepo,
		Whiteboards:  whiteboardRepo,
		Pins:         pinRepo,
		Clock:        clk,
		Events:       hub,
	}, trips.Options{})
	api := httpapi.NewServer(memberSvc, tripSvc, idemStore, httpapi.ServerOptions{
		Logger: log,
		Clock:  clk,
		Events: hub,
	})

	// Integration tests use the dev auth middleware to stay fully local and deterministic.
	// An empty default subject forces requests to provide X-Debug-Subject.
	authMW := httpapi.NewDevAuthMiddleware("")
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{AuthMiddleware: authMW, Logger: log})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, subject string, body any) (int, []byte, http.Header) {
	t.Helper()
	return s.doJSONWithHeaders(t, method, path, subject, body)
}

// doJSONWithHeaders is doJSON with extra header name/value pairs.
func (s *testServer) doJSONWithHeaders(t *testing.T, method string, path string, subject string, body any, headers ...string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if subject != "" {
		req.Header.Set("X-Debug-Subject", subject)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("status=%d want=%d body=%s", status, wantStatus, string(body))
	}
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}

package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	memclock "github.com/tripboard/tripboard-api/internal/adapters/memory/clock"
	memidempotency "github.com/tripboard/tripboard-api/internal/adapters/memory/idempotency"
	memmemberrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/memberrepo"
	memparticipantrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/participantrepo"
	mempinrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/pinrepo"
	memtriprepo "github.com/tripboard/tripboard-api/internal/adapters/memory/triprepo"
	memwhiteboardrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/whiteboardrepo"
	"github.com/tripboard/tripboard-api/internal/adapters/realtime"
	"github.com/tripboard/tripboard-api/internal/app/members"
	"github.com/tripboard/tripboard-api/internal/app/trips"
	"github.com/tripboard/tripboard-api/internal/domain"
)

type testAPI struct {
	h   http.Handler
	hub *realtime.Hub
	clk *memclock.ManualClock
}

type testAPIOptions struct {
	// Auth defaults to the dev middleware keyed on X-Debug-Subject.
	Auth          func(http.Handler) http.Handler
	MaxImageBytes int64
}

func newTestAPI(t *testing.T, opts testAPIOptions) *testAPI {
	t.Helper()

	log := zaptest.NewLogger(t)
	clk := memclock.NewManualClock(time.Unix(1700000000, 0).UTC())
	// Websocket handlers finish after the test returns, so nothing they log may reach t.
	hub := realtime.NewHub(zap.NewNop(), realtime.HubOptions{})
	t.Cleanup(hub.Close)

	memberRepo := memmemberrepo.NewRepo()
	memberSvc := members.NewService(memberRepo, clk)
	var memberN int
	memberSvc.SetNewMemberIDForTest(func() domain.MemberID {
		memberN++
		return domain.MemberID(fmt.Sprintf("m%d", memberN))
	})

	tripSvc := trips.NewService(trips.Deps{
		Trips:        memtriprepo.NewRepo(),
		Members:      memberRepo,
		Participants: memparticipantrepo.NewRepo(),
		Whiteboards:  memwhiteboardrepo.NewRepo(),
		Pins:         mempinrepo.NewRepo(),
		Clock:        clk,
		Events:       hub,
	}, trips.Options{MaxImageBytes: opts.MaxImageBytes})
	var tripN, boardN, pinN int
	tripSvc.SetNewTripIDForTest(func() domain.TripID {
		tripN++
		return domain.TripID(fmt.Sprintf("t%d", tripN))
	})
	tripSvc.SetNewWhiteboardIDForTest(func() domain.WhiteboardID {
		boardN++
		return domain.WhiteboardID(fmt.Sprintf("w%d", boardN))
	})
	tripSvc.SetNewPinIDForTest(func() domain.PinID {
		pinN++
		return domain.PinID(fmt.Sprintf("p%d", pinN))
	})

	auth := opts.Auth
	if auth == nil {
		auth = NewDevAuthMiddleware("")
	}
	api := NewServer(memberSvc, tripSvc, memidempotency.NewStore(), ServerOptions{
		Logger:        log,
		Clock:         clk,
		Events:        hub,
		MaxImageBytes: opts.MaxImageBytes,
	})
	return &testAPI{
		h:   NewRouter(api, RouterOptions{AuthMiddleware: auth, Logger: zap.NewNop()}),
		hub: hub,
		clk: clk,
	}
}

// do sends a request as subject through the dev auth middleware.
func (a *testAPI) do(t *testing.T, method, path, subject, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if subject != "" {
		req.Header.Set("X-Debug-Subject", subject)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	return rec
}

// provision creates a member for subject and returns its ID.
func (a *testAPI) provision(t *testing.T, subject, name string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/members", subject,
		fmt.Sprintf(`{"displayName":%q,"email":%q}`, name, subject+"@example.com"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("provision %s: status=%d body=%s", subject, rec.Code, rec.Body.String())
	}
	return decode[MemberResponse](t, rec).Member.MemberID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v body=%s", v, err, rec.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status=%d want %d body=%s", rec.Code, want, rec.Body.String())
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	expectStatus(t, rec, status)
	er := decode[ErrorResponse](t, rec)
	if er.Error.Code != code {
		t.Fatalf("code=%q want %q body=%s", er.Error.Code, code, rec.Body.String())
	}
	return er
}

package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripboard/tripboard-api/internal/domain"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func createTrip(t *testing.T, api *testAPI, subject, body string) TripDetails {
	t.Helper()
	rec := api.do(t, http.MethodPost, "/trips", subject, body)
	expectStatus(t, rec, http.StatusCreated)
	return decode[TripResponse](t, rec).Trip
}

func createPin(t *testing.T, api *testAPI, subject, whiteboardID, body string) Pin {
	t.Helper()
	rec := api.do(t, http.MethodPost, "/whiteboards/"+whiteboardID+"/pins", subject, body)
	expectStatus(t, rec, http.StatusCreated)
	return decode[PinResponse](t, rec).Pin
}

func pinIDs(ps []Pin) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.PinID)
	}
	return out
}

func TestTrips_CreateWithDates_ProvisionsWhiteboards(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, testAPIOptions{})
	alice := api.provision(t, "alice", "Alice")

	trip := createTrip(t, api, "alice", `{"name":"  Lisbon  ","startDate":"2026-03-01","endDate":"2026-03-03"}`)
	assert.Equal(t, "t1", trip.TripID)
	assert.Equal(t, "Lisbon", trip.Name)
	assert.Equal(t, alice, trip.CreatorMemberID)
	assert.Equal(t, 3, trip.WhiteboardCount)
	assert.Equal(t, "Day 1 - Day 3", trip.DayRange)
	require.NotNil(t, trip.StartDate)
	assert.Equal(t, "2026-03-01", trip.StartDate.Format("2006-01-02"))
	require.Len(t, trip.Participants, 1)
	assert.True(t, trip.Participants[0].IsCreator)
	require.Len(t, trip.Whiteboards, 3)
	for i, w := range trip.Whiteboards {
		assert.Equal(t, i+1, w.Day)
		assert.Empty(t, w.Pins)
	}

	rec := api.do(t, http.MethodGet, "/trips", "alice", "")
	expectStatus(t, rec, http.StatusOK)
	list := decode[TripsResponse](t, rec)
	require.Len(t, list.Trips, 1)
	assert.Equal(t, "t1", list.Trips[0].TripID)
}

func TestTrips_CreateValidation(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, testAPIOptions{})
	api.provision(t, "alice", "Alice")

	rec := api.do(t, http.MethodPost, "/trips", "alice", `{"name":""}`)
	expectError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = api.do(t, http.MethodPost, "/trips", "alice", `{"name":"X","startDate":"2026-03-05","endDate":"2026-03-01"}`)
	expectError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = api.do(t, http.MethodPost, "/trips", "alice", `{"name":"X","startDate":"March 1st"}`)
	expectError(t, rec, http.StatusBadRequest, "INVALID_JSON")
}

func TestTrips_CreateIsIdempotent(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, testAPIOptions{})
	api.provision(t, "alice", "Alice")

	rec1 := api.do(t, http.MethodPost, "/trips", "alice", `{"name":"Lisbon"}`, "Idempotency-Key", "k1")
	expectStatus(t, rec1, http.StatusCreated)
	rec2 := api.do(t, http.MethodPost, "/trips", "alice", `{"name":"Lisbon"}`, "Idempotency-Key", "k1")
	expectStatus(t, rec2, http.StatusCreated)
	assert.Equal(t, rec1.Body.String(), rec2.Body.String())

	rec := api.do(t, http.MethodGet, "/trips", "alice", "")
	assert.Len(t, decode[TripsResponse](t, rec).Trips, 1)

	rec3 := api.do(t, http.MethodPost, "/trips", "alice", `{"name":"Porto"}`, "Idempotency-Key", "k1")
	expectError(t, rec3, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE")
}

func TestTrips_ParticipantsAndAccess(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, testAPIOptions{})
	api.provision(t, "alice", "Alice")
	bob := api.provision(t, "bob", "Bob")
	trip := createTrip(t, api, "alice", `{"name":"Lisbon"}`)
	path := "/trips/" + trip.TripID

	// Non-participants cannot tell the trip exists.
	rec := api.do(t, http.MethodGet, path, "bob", "")
	expectError(t, rec, http.StatusNotFound, "TRIP_NOT_FOUND")

	rec = api.do(t, http.MethodPost, path+"/participants", "alice", `{"memberIds":["`+bob+`","nobody"]}`)
	expectError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = api.do(t, http.MethodPost, path+"/participants", "alice", `{"memberIds":["`+bob+`"]}`)
	expectStatus(t, rec, http.StatusOK)
	assert.Len(t, decode[ParticipantsResponse](t, rec).Participants, 2)

	rec = api.do(t, http.MethodPut, path+"/participants/me", "bob", `{"nickname":"  Bobby "}`)
	expectStatus(t, rec, http.StatusOK)
	me := decode[ParticipantResponse](t, rec).Participant
	assert.Equal(t, "Bobby", me.Name)
	require.NotNil(t, me.Nickname)

	rec = api.do(t, http.MethodGet, path, "bob", "")
	expectStatus(t, rec, http.StatusOK)

	// Only the creator can delete the trip, and the creator cannot be removed.
	rec = api.do(t, http.MethodDelete, path, "bob", "")
	expectError(t, rec, http.StatusForbidden, "FORBIDDEN")
	rec = api.do(t, http.MethodDelete, path+"/participants/"+trip.CreatorMemberID, "bob", "")
	expectError(t, rec, http.StatusConflict, "CREATOR_REQUIRED")

	rec = api.do(t, http.MethodDelete, path+"/participants/"+bob, "bob", "")
	expectStatus(t, rec, http.StatusNoContent)
	rec = api.do(t, http.MethodGet, path, "bob", "")
	expectError(t, rec, http.StatusNotFound, "TRIP_NOT_FOUND")
}

func TestTrips_UpdateDatesReconcilesWhiteboards(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, testAPIOptions{})
	api.provision(t, "alice", "Alice")
	trip := createTrip(t, api, "alice", `{"name":"Lisbon","startDate":"2026-03-01","endDate":"2026-03-03"}`)
	path := "/trips/" + trip.TripID

	rec := api.do(t, http.MethodPatch, path, "alice", `{"endDate":"2026-03-02","description":"food"}`)
	expectStatus(t, rec, http.StatusOK)
	got := decode[TripResponse](t, rec).Trip
	assert.Equal(t, 2, got.WhiteboardCount)
	require.NotNil(t, got.Description)
	assert.Equal(t, "food", *got.Description)

	rec = api.do(t, http.MethodPatch, path, "alice", `{"description":null}`)
	expectStatus(t, rec, http.StatusOK)
	assert.Nil(t, decode[TripResponse](t, rec).Trip.Description)

	rec = api.do(t, http.MethodPatch, path, "alice", `{"startDate":null}`)
	expectError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = api.do(t, http.MethodPatch, path, "alice", `{"name":null}`)
	expectError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestWhiteboards_CreateSyncDelete(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, testAPIOptions{})
	api.provision(t, "alice", "Alice")
	trip := createTrip(t, api, "alice", `{"name":"Open ended"}`)
	path := "/trips/" + trip.TripID

	rec := api.do(t, http.MethodPost, path+"/whiteboards/sync", "alice", "")
	expectError(t, rec, http.StatusConflict, "TRIP_DATES_UNSET")

	rec = api.do(t, http.MethodPost, path+"/whiteboards", "alice", `{"day":4}`)
	expectStatus(t, rec, http.StatusCreated)
	wb := decode[WhiteboardResponse](t, rec).Whiteboard
	assert.Equal(t, 4, wb.Day)

	rec = api.do(t, http.MethodPost, path+"/whiteboards", "alice", `{"day":4}`)
	expectError(t, rec, http.StatusConflict, "WHITEBOARD_DAY_EXISTS")
	rec = api.do(t, http.MethodPost, path+"/whiteboards", "alice", `{"day":0}`)
	expectError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = api.do(t, http.MethodGet, "/whiteboards/"+wb.WhiteboardID, "alice", "")
	expectStatus(t, rec, http.StatusOK)

	rec = api.do(t, http.MethodDelete, "/whiteboards/"+wb.WhiteboardID, "alice", "")
	expectStatus(t, rec, http.StatusNoContent)
	rec = api.do(t, http.MethodGet, "/whiteboards/"+wb.WhiteboardID, "alice", "")
	expectError(t, rec, http.StatusNotFound, "WHITEBOARD_NOT_FOUND")

	rec = api.do(t, http.MethodGet, path+"/whiteboards", "alice", "")
	expectStatus(t, rec, http.StatusOK)
	assert.Empty(t, decode[WhiteboardsResponse](t, rec).Whiteboards)
}

func TestPins_CreateOrderMoveDelete(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, testAPIOptions{})
	alice := api.provision(t, "alice", "Alice")
	trip := createTrip(t, api, "alice", `{"name":"Lisbon","startDate":"2026-03-01","endDate":"2026-03-02"}`)
	day1 := trip.Whiteboards[0].WhiteboardID
	day2 := trip.Whiteboards[1].WhiteboardID

	p1 := createPin(t, api, "alice", day1, `{"name":"Castle"}`)
	assert.Nil(t, p1.ParentPinID)
	p2 := createPin(t, api, "alice", day1, fmt.Sprintf(
		`{"name":"Lunch","location":{"label":"Time Out Market","latitude":38.707,"longitude":-9.146},"expenses":[{"memberId":%q,"name":"Food","amount":12.5},{"name":"Tip","amount":2}],"participantIds":[%q]}`,
		alice, alice))
	assert.Equal(t, 14.5, p2.ExpenseTotal)
	require.NotNil(t, p2.ParentPinID)
	assert.Equal(t, p1.PinID, *p2.ParentPinID)
	p3 := createPin(t, api, "alice", day1, `{"name":"Tram 28","afterPinId":"`+p1.PinID+`"}`)

	rec := api.do(t, http.MethodGet, "/whiteboards/"+day1, "alice", "")
	expectStatus(t, rec, http.StatusOK)
	assert.Equal(t, []string{p1.PinID, p3.PinID, p2.PinID}, pinIDs(decode[WhiteboardResponse](t, rec).Whiteboard.Pins))

	rec = api.do(t, http.MethodPost, "/pins/"+p2.PinID+"/move", "alice", `{"index":0}`)
	expectStatus(t, rec, http.StatusOK)
	assert.Equal(t, []string{p2.PinID, p1.PinID, p3.PinID}, pinIDs(decode[WhiteboardResponse](t, rec).Whiteboard.Pins))

	rec = api.do(t, http.MethodPost, "/pins/"+p1.PinID+"/move", "alice", `{"whiteboardId":"`+day2+`","index":5}`)
	expectStatus(t, rec, http.StatusOK)
	moved := decode[WhiteboardResponse](t, rec).Whiteboard
	assert.Equal(t, day2, moved.WhiteboardID)
	assert.Equal(t, []string{p1.PinID}, pinIDs(moved.Pins))

	rec = api.do(t, http.MethodGet, "/whiteboards/"+day1, "alice", "")
	assert.Equal(t, []string{p2.PinID, p3.PinID}, pinIDs(decode[WhiteboardResponse](t, rec).Whiteboard.Pins))

	rec = api.do(t, http.MethodPost, "/pins/"+p1.PinID+"/move", "alice", `{"index":-1}`)
	expectError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = api.do(t, http.MethodDelete, "/pins/"+p2.PinID, "alice", "")
	expectStatus(t, rec, http.StatusNoContent)
	rec = api.do(t, http.MethodGet, "/pins/"+p3.PinID, "alice", "")
	expectStatus(t, rec, http.StatusOK)
	assert.Nil(t, decode[PinResponse](t, rec).Pin.ParentPinID)

	rec = api.do(t, http.MethodGet, "/members/me/pins", "alice", "")
	expectStatus(t, rec, http.StatusOK)
	assert.Empty(t, decode[PinsResponse](t, rec).Pins)
}

func TestPins_UpdatePatchSemantics(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, testAPIOptions{})
	api.provision(t, "alice", "Alice")
	trip := createTrip(t, api, "alice", `{"name":"Lisbon","startDate":"2026-03-01","endDate":"2026-03-01"}`)
	p := createPin(t, api, "alice", trip.Whiteboards[0].WhiteboardID,
		`{"name":"Castle","description":"views","location":{"label":"São Jorge"}}`)

	rec := api.do(t, http.MethodPatch, "/pins/"+p.PinID, "alice", `{"description":null,"expenses":[{"name":"Tickets","amount":15}]}`)
	expectStatus(t, rec, http.StatusOK)
	got := decode[PinResponse](t, rec).Pin
	assert.Equal(t, "Castle", got.Name)
	assert.Nil(t, got.Description)
	require.NotNil(t, got.Location)
	assert.Equal(t, "São Jorge", got.Location.Label)
	assert.Equal(t, 15.0, got.ExpenseTotal)

	rec = api.do(t, http.MethodPatch, "/pins/"+p.PinID, "alice", `{"location":{"label":"X","latitude":123}}`)
	expectError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = api.do(t, http.MethodPatch, "/pins/"+p.PinID, "alice", `{"name":null}`)
	expectError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = api.do(t, http.MethodGet, "/pins/nope", "alice", "")
	expectError(t, rec, http.StatusNotFound, "PIN_NOT_FOUND")
}

func TestImages_TripAndPin(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, testAPIOptions{MaxImageBytes: 64})
	api.provision(t, "alice", "Alice")
	trip := createTrip(t, api, "alice", `{"name":"Lisbon","startDate":"2026-03-01","endDate":"2026-03-01"}`)
	p := createPin(t, api, "alice", trip.Whiteboards[0].WhiteboardID, `{"name":"Castle"}`)

	put := func(path, contentType string, body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(body))
		req.Header.Set("X-Debug-Subject", "alice")
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		api.h.ServeHTTP(rec, req)
		return rec
	}

	rec := api.do(t, http.MethodGet, "/trips/"+trip.TripID+"/image", "alice", "")
	expectError(t, rec, http.StatusNotFound, "IMAGE_NOT_FOUND")

	rec = put("/trips/"+trip.TripID+"/image", "image/png", pngHeader)
	expectStatus(t, rec, http.StatusNoContent)
	rec = api.do(t, http.MethodGet, "/trips/"+trip.TripID+"/image", "alice", "")
	expectStatus(t, rec, http.StatusOK)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, pngHeader, rec.Body.Bytes())

	rec = api.do(t, http.MethodGet, "/trips/"+trip.TripID, "alice", "")
	assert.True(t, decode[TripResponse](t, rec).Trip.HasImage)

	rec = put("/pins/"+p.PinID+"/image", "image/jpeg", pngHeader)
	expectError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = put("/pins/"+p.PinID+"/image", "image/png", append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...))
	expectError(t, rec, http.StatusRequestEntityTooLarge, "IMAGE_TOO_LARGE")

	rec = put("/pins/"+p.PinID+"/image", "image/png", pngHeader)
	expectStatus(t, rec, http.StatusNoContent)
	rec = api.do(t, http.MethodGet, "/pins/"+p.PinID+"/image", "alice", "")
	expectStatus(t, rec, http.StatusOK)
	assert.Equal(t, pngHeader, rec.Body.Bytes())
}

func TestEvents_NonParticipant404(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, testAPIOptions{})
	api.provision(t, "alice", "Alice")
	api.provision(t, "bob", "Bob")
	trip := createTrip(t, api, "alice", `{"name":"Lisbon"}`)

	rec := api.do(t, http.MethodGet, "/trips/"+trip.TripID+"/events", "bob", "")
	expectError(t, rec, http.StatusNotFound, "TRIP_NOT_FOUND")
}

func TestEvents_StreamsTripChanges(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, testAPIOptions{})
	api.provision(t, "alice", "Alice")
	trip := createTrip(t, api, "alice", `{"name":"Lisbon","startDate":"2026-03-01","endDate":"2026-03-01"}`)

	srv := httptest.NewServer(api.h)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/trips/" + trip.TripID + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"X-Debug-Subject": []string{"alice"}})
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool {
		return api.hub.SubscriberCount(domain.TripID(trip.TripID)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	pin := createPin(t, api, "alice", trip.Whiteboards[0].WhiteboardID, `{"name":"Castle"}`)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type     string `json:"type"`
		TripID   string `json:"tripId"`
		EntityID string `json:"entityId"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "pin.created", msg.Type)
	assert.Equal(t, trip.TripID, msg.TripID)
	assert.Equal(t, pin.PinID, msg.EntityID)
}

func TestEvents_RemovedParticipantStreamCloses(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, testAPIOptions{})
	api.provision(t, "alice", "Alice")
	bob := api.provision(t, "bob", "Bob")
	trip := createTrip(t, api, "alice", `{"name":"Lisbon","startDate":"2026-03-01","endDate":"2026-03-01"}`)
	path := "/trips/" + trip.TripID

	rec := api.do(t, http.MethodPost, path+"/participants", "alice", `{"memberIds":["`+bob+`"]}`)
	expectStatus(t, rec, http.StatusOK)

	srv := httptest.NewServer(api.h)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + path + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"X-Debug-Subject": []string{"bob"}})
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool {
		return api.hub.SubscriberCount(domain.TripID(trip.TripID)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	rec = api.do(t, http.MethodDelete, path+"/participants/"+bob, "alice", "")
	expectStatus(t, rec, http.StatusNoContent)
	assert.Equal(t, 0, api.hub.SubscriberCount(domain.TripID(trip.TripID)))

	// Later trip changes never reach the removed member.
	createPin(t, api, "alice", trip.Whiteboards[0].WhiteboardID, `{"name":"Castle"}`)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg struct {
		Type     string `json:"type"`
		EntityID string `json:"entityId"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "participant.removed", msg.Type)
	assert.Equal(t, bob, msg.EntityID)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "err=%v", err)
}

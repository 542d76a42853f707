package itest

import (
	"net/http"
	"testing"
)

type tripBody struct {
	Trip struct {
		TripID          string `json:"tripId"`
		WhiteboardCount int    `json:"whiteboardCount"`
		DayRange        string `json:"dayRange"`
		Participants    []struct {
			MemberID string `json:"memberId"`
		} `json:"participants"`
		Whiteboards []struct {
			WhiteboardID string `json:"whiteboardId"`
			Day          int    `json:"day"`
		} `json:"whiteboards"`
	} `json:"trip"`
}

type pinBody struct {
	Pin struct {
		PinID        string  `json:"pinId"`
		ParentPinID  *string `json:"parentPinId"`
		ExpenseTotal float64 `json:"expenseTotal"`
	} `json:"pin"`
}

type whiteboardBody struct {
	Whiteboard struct {
		WhiteboardID string `json:"whiteboardId"`
		Pins         []struct {
			PinID string `json:"pinId"`
		} `json:"pins"`
	} `json:"whiteboard"`
}

func (w whiteboardBody) pinIDs() []string {
	out := make([]string, 0, len(w.Whiteboard.Pins))
	for _, p := range w.Whiteboard.Pins {
		out = append(out, p.PinID)
	}
	return out
}

func requireOrder(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("order=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order=%v want=%v", got, want)
		}
	}
}

func TestTrips_ITest(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			srv := newTestServer(t, b)

			provision(t, srv, "itest|alice", "Alice", "alice@example.com")
			bobID := provision(t, srv, "itest|bob", "Bob", "bob@example.com")

			status, body, _ := srv.doJSON(t, http.MethodPost, "/trips", "itest|alice", map[string]any{
				"name":      "Lisbon",
				"startDate": "2024-05-01",
				"endDate":   "2024-05-03",
			})
			if status != http.StatusCreated {
				t.Fatalf("create trip: status=%d body=%s", status, string(body))
			}
			trip := mustUnmarshal[tripBody](t, body)
			if trip.Trip.WhiteboardCount != 3 || trip.Trip.DayRange != "Day 1 - Day 3" {
				t.Fatalf("trip=%+v", trip.Trip)
			}
			tripPath := "/trips/" + trip.Trip.TripID
			day1 := trip.Trip.Whiteboards[0].WhiteboardID

			status, body, _ = srv.doJSON(t, http.MethodGet, tripPath, "itest|bob", nil)
			requireErrorCode(t, status, body, http.StatusNotFound, "TRIP_NOT_FOUND")

			status, body, _ = srv.doJSON(t, http.MethodPost, tripPath+"/participants", "itest|alice", map[string]any{
				"memberIds": []string{bobID},
			})
			if status != http.StatusOK {
				t.Fatalf("add participants: status=%d body=%s", status, string(body))
			}

			// Bob builds the day 1 board.
			var pins []string
			for _, name := range []string{"Castle", "Lunch", "Fado"} {
				status, body, _ = srv.doJSON(t, http.MethodPost, "/whiteboards/"+day1+"/pins", "itest|bob", map[string]any{
					"name":     name,
					"expenses": []map[string]any{{"name": "Tickets", "amount": 10}},
				})
				if status != http.StatusCreated {
					t.Fatalf("create pin: status=%d body=%s", status, string(body))
				}
				p := mustUnmarshal[pinBody](t, body)
				if p.Pin.ExpenseTotal != 10 {
					t.Fatalf("expenseTotal=%v", p.Pin.ExpenseTotal)
				}
				pins = append(pins, p.Pin.PinID)
			}

			status, body, _ = srv.doJSON(t, http.MethodPost, "/pins/"+pins[2]+"/move", "itest|alice", map[string]any{"index": 0})
			if status != http.StatusOK {
				t.Fatalf("move: status=%d body=%s", status, string(body))
			}
			requireOrder(t, mustUnmarshal[whiteboardBody](t, body).pinIDs(), pins[2], pins[0], pins[1])

			// Shrinking the range drops day 3.
			status, body, _ = srv.doJSON(t, http.MethodPatch, tripPath, "itest|alice", map[string]any{"endDate": "2024-05-02"})
			if status != http.StatusOK {
				t.Fatalf("update trip: status=%d body=%s", status, string(body))
			}
			if got := mustUnmarshal[tripBody](t, body); got.Trip.WhiteboardCount != 2 {
				t.Fatalf("whiteboardCount=%d", got.Trip.WhiteboardCount)
			}

			// Idempotent pin creation replays instead of inserting twice.
			idem := map[string]any{"name": "Sunset"}
			status, first, _ := srv.doJSONWithHeaders(t, http.MethodPost, "/whiteboards/"+day1+"/pins", "itest|alice", idem, "Idempotency-Key", "itest-pin-1")
			if status != http.StatusCreated {
				t.Fatalf("idempotent create: status=%d body=%s", status, string(first))
			}
			status, second, hdr := srv.doJSONWithHeaders(t, http.MethodPost, "/whiteboards/"+day1+"/pins", "itest|alice", idem, "Idempotency-Key", "itest-pin-1")
			if status != http.StatusCreated || string(first) != string(second) {
				t.Fatalf("replay: status=%d body=%s", status, string(second))
			}
			requireHeaderPresent(t, hdr, "Idempotent-Replayed")

			status, body, _ = srv.doJSON(t, http.MethodGet, "/whiteboards/"+day1, "itest|bob", nil)
			if status != http.StatusOK {
				t.Fatalf("get whiteboard: status=%d body=%s", status, string(body))
			}
			requireOrder(t, mustUnmarshal[whiteboardBody](t, body).pinIDs(), pins[2], pins[0], pins[1], mustUnmarshal[pinBody](t, first).Pin.PinID)

			status, body, _ = srv.doJSON(t, http.MethodDelete, tripPath, "itest|bob", nil)
			requireErrorCode(t, status, body, http.StatusForbidden, "FORBIDDEN")

			status, body, _ = srv.doJSON(t, http.MethodDelete, tripPath, "itest|alice", nil)
			if status != http.StatusNoContent {
				t.Fatalf("delete trip: status=%d body=%s", status, string(body))
			}
			status, body, _ = srv.doJSON(t, http.MethodGet, "/pins/"+pins[0], "itest|bob", nil)
			requireErrorCode(t, status, body, http.StatusNotFound, "PIN_NOT_FOUND")
		})
	}
}

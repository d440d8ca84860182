package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/triplea-game/triplea-sub029/internal/config"
	"github.com/triplea-game/triplea-sub029/internal/game"
	"github.com/triplea-game/triplea-sub029/internal/odds"
)

type fixture struct {
	srv       *httptest.Server
	attackers []game.UnitID
	defenders []game.UnitID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	s := game.NewState(6)
	mustNil := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	mustNil(s.AddUnitType(game.UnitType{Name: "infantry", Attack: 1, Defense: 2, Cost: 3}))
	mustNil(s.AddPlayer("Germans"))
	mustNil(s.AddPlayer("Russians"))
	mustNil(s.AddTerritory("Poland", false))
	mustNil(s.AddTerritory("Ukraine", false))
	var f fixture
	for range 3 {
		id, err := s.PlaceUnit("infantry", "Germans", "Poland")
		mustNil(err)
		f.attackers = append(f.attackers, id)
		id, err = s.PlaceUnit("infantry", "Russians", "Ukraine")
		mustNil(err)
		f.defenders = append(f.defenders, id)
	}
	settings := config.DefaultSettings()
	settings.Seed = 3
	log := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	calc := odds.NewCalculator(s, settings, odds.WithLogger(log))
	f.srv = httptest.NewServer(New(s, calc, log, 1).Routes())
	t.Cleanup(f.srv.Close)
	return f
}

func (f fixture) request(runs int) odds.Request {
	return odds.Request{Attackers: f.attackers, Defenders: f.defenders, Location: "Ukraine", RunCount: runs}
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthzAndState(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/api/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	resp, err = http.Get(f.srv.URL + "/api/state")
	if err != nil {
		t.Fatalf("GET state: %v", err)
	}
	defer resp.Body.Close()
	var state struct {
		Units []game.Unit `json:"units"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(state.Units) != 6 {
		t.Fatalf("state has %d units, want 6", len(state.Units))
	}
}

func TestPostOdds(t *testing.T) {
	f := newFixture(t)
	resp := post(t, f.srv.URL+"/api/odds", f.request(200))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out oddsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Runs != 200 {
		t.Fatalf("runs = %d, want 200", out.Runs)
	}
	if sum := out.AttackerWin + out.DefenderWin + out.Draw; sum < 0.999 || sum > 1.001 {
		t.Fatalf("fractions sum to %v", sum)
	}

	req := f.request(10)
	req.Location = "Atlantis"
	if resp := post(t, f.srv.URL+"/api/odds", req); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown location status = %d, want 400", resp.StatusCode)
	}
	bad, err := http.Post(f.srv.URL+"/api/odds", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d, want 400", bad.StatusCode)
	}
}

func TestPostBatchAndCancel(t *testing.T) {
	f := newFixture(t)
	resp := post(t, f.srv.URL+"/api/odds/batch", []odds.Request{f.request(50), f.request(60)})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out []oddsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 || out[0].Runs != 50 || out[1].Runs != 60 {
		t.Fatalf("batch = %+v", out)
	}

	req, _ := http.NewRequest(http.MethodDelete, f.srv.URL+"/api/odds", nil)
	del, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	del.Body.Close()
	if del.StatusCode != http.StatusNoContent {
		t.Fatalf("cancel status = %d", del.StatusCode)
	}
}

func dial(t *testing.T, f fixture) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/odds"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	return conn
}

func calculate(t *testing.T, conn *websocket.Conn, id string, req odds.Request) {
	t.Helper()
	data, _ := json.Marshal(req)
	if err := conn.WriteJSON(Message{Type: MsgCalculate, ID: id, Data: data}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
}

func TestWebsocketStreamsProgress(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f)
	calculate(t, conn, "c1", f.request(5))

	var types []string
	var final odds.Summary
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		if msg.ID != "c1" {
			t.Fatalf("message for %q, want c1", msg.ID)
		}
		types = append(types, msg.Type)
		if msg.Type == MsgResult {
			if err := json.Unmarshal(msg.Data, &final); err != nil {
				t.Fatalf("decode result: %v", err)
			}
			break
		}
		if msg.Type == MsgError {
			t.Fatalf("error: %s", msg.Data)
		}
	}
	// accepted, progress after runs 1 to 4, result
	if len(types) != 6 || types[0] != MsgAccepted || types[1] != MsgProgress {
		t.Fatalf("message types = %v", types)
	}
	if final.Runs != 5 {
		t.Fatalf("result runs = %d, want 5", final.Runs)
	}
}

func TestWebsocketCancel(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f)
	const runs = 1_000_000
	calculate(t, conn, "long", f.request(runs))

	cancelled := false
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		switch msg.Type {
		case MsgProgress:
			if !cancelled {
				if err := conn.WriteJSON(Message{Type: MsgCancel, ID: "long"}); err != nil {
					t.Fatalf("WriteJSON: %v", err)
				}
				cancelled = true
			}
		case MsgResult:
			var s odds.Summary
			if err := json.Unmarshal(msg.Data, &s); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !s.Cancelled || s.Runs >= runs {
				t.Fatalf("result after cancel = %+v", s)
			}
			return
		case MsgError:
			t.Fatalf("error: %s", msg.Data)
		}
	}
}

func TestWebsocketRejectsRunningID(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f)
	const runs = 1_000_000
	calculate(t, conn, "dup", f.request(runs))

	rejected, cancelled := false, false
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		switch msg.Type {
		case MsgAccepted:
			if rejected {
				t.Fatalf("second calculation with a running id was accepted")
			}
			calculate(t, conn, "dup", f.request(10))
		case MsgError:
			if rejected || msg.ID != "dup" {
				t.Fatalf("unexpected error %+v", msg)
			}
			rejected = true
		case MsgProgress:
			if rejected && !cancelled {
				if err := conn.WriteJSON(Message{Type: MsgCancel, ID: "dup"}); err != nil {
					t.Fatalf("WriteJSON: %v", err)
				}
				cancelled = true
			}
		case MsgResult:
			var s odds.Summary
			if err := json.Unmarshal(msg.Data, &s); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !rejected || !s.Cancelled || s.Runs >= runs {
				t.Fatalf("result = %+v, rejected = %v", s, rejected)
			}
			return
		}
	}
}

func TestWebsocketRejectsUnknownType(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f)
	if err := conn.WriteJSON(Message{Type: "bogus", ID: "x"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if msg.Type != MsgError || msg.ID != "x" {
		t.Fatalf("reply = %+v", msg)
	}
}

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

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/wofa4-engine/internal/game"
	"github.com/park285/wofa4-engine/internal/identity"
	"github.com/park285/wofa4-engine/internal/monitor"
	"github.com/park285/wofa4-engine/internal/msgcat"
	"github.com/park285/wofa4-engine/internal/stats"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })

	mgr, err := game.NewManager(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("game.NewManager: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })

	rec := stats.NewMemoryRecorder()
	mgr.AttachRecorder(rec)
	metrics := monitor.NewMetrics("wofa4_test")
	mgr.AttachMetrics(metrics)

	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	ids := identity.StaticResolver{"host": "Host", "guest": "Guest"}

	srv := NewServer(mgr, rec, ids, cat, metrics)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	raw, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

type snapshotDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	HostID        string `json:"host_id"`
	HostName      string `json:"host_name"`
	GuestID       string `json:"guest_id"`
	GuestName     string `json:"guest_name"`
	HostReady     bool   `json:"host_ready"`
	GuestReady    bool   `json:"guest_ready"`
	CurrentTurnID string `json:"current_turn_id"`
	WinnerID      string `json:"winner_id"`
}

func decodeSnapshot(t *testing.T, raw []byte) snapshotDTO {
	t.Helper()
	var s snapshotDTO
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("decode snapshot: %v (%s)", err, raw)
	}
	return s
}

func errorCode(t *testing.T, raw []byte) string {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, raw)
	}
	if body.Error.Message == "" {
		t.Fatalf("error body has no message: %s", raw)
	}
	return body.Error.Code
}

// startGame drives a room to Playing with equal secrets so the test can pick
// the outcome of any guess regardless of who drew the first turn.
func startGame(t *testing.T, ts *httptest.Server) snapshotDTO {
	t.Helper()
	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/rooms", map[string]string{"host_id": "host", "name": "host's game"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create room: %d %s", resp.StatusCode, raw)
	}
	room := decodeSnapshot(t, raw)
	if room.HostName != "Host" {
		t.Fatalf("host name not resolved: %+v", room)
	}

	resp, raw = doJSON(t, http.MethodPost, ts.URL+"/api/rooms/"+room.ID+"/join", map[string]string{"guest_id": "guest"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join: %d %s", resp.StatusCode, raw)
	}

	for _, p := range []string{"host", "guest"} {
		resp, raw = doJSON(t, http.MethodPost, ts.URL+"/api/rooms/"+room.ID+"/secret", map[string]string{"player_id": p, "code": "1234"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("secret %s: %d %s", p, resp.StatusCode, raw)
		}
	}
	cur := decodeSnapshot(t, raw)
	if cur.Status != "PLAYING" || cur.CurrentTurnID == "" {
		t.Fatalf("game did not start: %+v", cur)
	}
	return cur
}

func TestFullGameOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	room := startGame(t, ts)

	mover := room.CurrentTurnID
	waiter := "host"
	if mover == "host" {
		waiter = "guest"
	}

	// out-of-turn guess is rejected with a conflict
	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/rooms/"+room.ID+"/guess", map[string]string{"player_id": waiter, "guess": "1234"})
	if resp.StatusCode != http.StatusConflict || errorCode(t, raw) != "not_your_turn" {
		t.Fatalf("out-of-turn: %d %s", resp.StatusCode, raw)
	}

	// a miss flips the turn
	resp, raw = doJSON(t, http.MethodPost, ts.URL+"/api/rooms/"+room.ID+"/guess", map[string]string{"player_id": mover, "guess": "5678"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("miss: %d %s", resp.StatusCode, raw)
	}
	var missResp struct {
		Round struct {
			MatchCount  int `json:"match_count"`
			RoundNumber int `json:"round_number"`
		} `json:"round"`
		Room snapshotDTO `json:"room"`
	}
	if err := json.Unmarshal(raw, &missResp); err != nil {
		t.Fatalf("decode guess response: %v (%s)", err, raw)
	}
	if missResp.Round.MatchCount != 0 || missResp.Round.RoundNumber != 1 {
		t.Fatalf("miss round = %+v", missResp.Round)
	}
	if missResp.Room.CurrentTurnID != waiter {
		t.Fatalf("turn did not flip: %+v", missResp.Room)
	}

	// the opponent wins with the exact code
	resp, raw = doJSON(t, http.MethodPost, ts.URL+"/api/rooms/"+room.ID+"/guess", map[string]string{"player_id": waiter, "guess": "1234"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("winning guess: %d %s", resp.StatusCode, raw)
	}
	var winResp struct {
		Round struct {
			MatchCount int `json:"match_count"`
		} `json:"round"`
		Room snapshotDTO `json:"room"`
	}
	if err := json.Unmarshal(raw, &winResp); err != nil {
		t.Fatalf("decode win response: %v (%s)", err, raw)
	}
	if winResp.Round.MatchCount != 4 || winResp.Room.Status != "COMPLETED" || winResp.Room.WinnerID != waiter {
		t.Fatalf("win response = %+v", winResp)
	}

	// rounds endpoint lists both guesses in order
	resp, raw = doJSON(t, http.MethodGet, ts.URL+"/api/rooms/"+room.ID+"/rounds", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rounds: %d %s", resp.StatusCode, raw)
	}
	var rounds []struct {
		PlayerID    string `json:"player_id"`
		RoundNumber int    `json:"round_number"`
	}
	if err := json.Unmarshal(raw, &rounds); err != nil {
		t.Fatalf("decode rounds: %v (%s)", err, raw)
	}
	if len(rounds) != 2 || rounds[0].PlayerID != mover || rounds[1].PlayerID != waiter {
		t.Fatalf("rounds = %+v", rounds)
	}

	// stats land asynchronously
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, raw = doJSON(t, http.MethodGet, ts.URL+"/api/players/"+waiter+"/stats", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("stats: %d %s", resp.StatusCode, raw)
		}
		var ps struct {
			Wins         int `json:"wins"`
			GamesPlayed  int `json:"games_played"`
			RoundsPlayed int `json:"rounds_played"`
		}
		if err := json.Unmarshal(raw, &ps); err != nil {
			t.Fatalf("decode stats: %v (%s)", err, raw)
		}
		if ps.Wins == 1 && ps.GamesPlayed == 1 {
			if ps.RoundsPlayed != 2 {
				t.Fatalf("rounds played = %d, want 2 (both guesses of the game)", ps.RoundsPlayed)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("winner stats never recorded: %s", raw)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSnapshotNeverLeaksSecrets(t *testing.T) {
	ts := newTestServer(t)
	room := startGame(t, ts)

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/api/rooms/"+room.ID+"/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get room: %d %s", resp.StatusCode, raw)
	}
	if bytes.Contains(raw, []byte(`"host_secret"`)) || bytes.Contains(raw, []byte(`"guest_secret"`)) {
		t.Fatalf("room payload exposes secrets: %s", raw)
	}
	cur := decodeSnapshot(t, raw)
	if !cur.HostReady || !cur.GuestReady {
		t.Fatalf("ready flags missing: %+v", cur)
	}
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)

	// unknown room
	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/api/rooms/missing/", nil)
	if resp.StatusCode != http.StatusNotFound || errorCode(t, raw) != "room_not_found" {
		t.Fatalf("missing room: %d %s", resp.StatusCode, raw)
	}

	// bad guess format
	room := startGame(t, ts)
	resp, raw = doJSON(t, http.MethodPost, ts.URL+"/api/rooms/"+room.ID+"/guess", map[string]string{"player_id": room.CurrentTurnID, "guess": "12ab"})
	if resp.StatusCode != http.StatusBadRequest || errorCode(t, raw) != "invalid_guess_format" {
		t.Fatalf("bad guess: %d %s", resp.StatusCode, raw)
	}

	// full room
	resp, raw = doJSON(t, http.MethodPost, ts.URL+"/api/rooms/"+room.ID+"/join", map[string]string{"guest_id": "third"})
	if resp.StatusCode != http.StatusConflict || errorCode(t, raw) != "room_full" {
		t.Fatalf("full room: %d %s", resp.StatusCode, raw)
	}

	// restart before the game finished
	resp, raw = doJSON(t, http.MethodPost, ts.URL+"/api/rooms/"+room.ID+"/restart", nil)
	if resp.StatusCode != http.StatusConflict || errorCode(t, raw) != "not_playable" {
		t.Fatalf("early restart: %d %s", resp.StatusCode, raw)
	}

	// outsider leaving
	resp, raw = doJSON(t, http.MethodPost, ts.URL+"/api/rooms/"+room.ID+"/leave", map[string]string{"player_id": "third"})
	if resp.StatusCode != http.StatusForbidden || errorCode(t, raw) != "player_not_in_game" {
		t.Fatalf("outsider leave: %d %s", resp.StatusCode, raw)
	}

	// malformed body
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/rooms", bytes.NewReader([]byte("{")))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post malformed: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed body: %d", resp2.StatusCode)
	}
}

func TestLobbyListing(t *testing.T) {
	ts := newTestServer(t)

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/rooms", map[string]string{"host_id": "host", "name": "open game"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %s", resp.StatusCode, raw)
	}
	room := decodeSnapshot(t, raw)

	resp, raw = doJSON(t, http.MethodGet, ts.URL+"/api/rooms", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: %d %s", resp.StatusCode, raw)
	}
	var rooms []snapshotDTO
	if err := json.Unmarshal(raw, &rooms); err != nil {
		t.Fatalf("decode list: %v (%s)", err, raw)
	}
	if len(rooms) != 1 || rooms[0].ID != room.ID {
		t.Fatalf("lobby = %+v", rooms)
	}

	// taken rooms disappear from the lobby
	if resp, raw = doJSON(t, http.MethodPost, ts.URL+"/api/rooms/"+room.ID+"/join", map[string]string{"guest_id": "guest"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("join: %d %s", resp.StatusCode, raw)
	}
	resp, raw = doJSON(t, http.MethodGet, ts.URL+"/api/rooms", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: %d %s", resp.StatusCode, raw)
	}
	rooms = nil
	if err := json.Unmarshal(raw, &rooms); err != nil {
		t.Fatalf("decode list: %v (%s)", err, raw)
	}
	if len(rooms) != 0 {
		t.Fatalf("lobby should be empty, got %+v", rooms)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	startGame(t, ts)

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics: %d", resp.StatusCode)
	}
	if !bytes.Contains(raw, []byte("wofa4_test_rooms_created_total")) {
		t.Fatalf("metrics output missing counter:\n%s", raw)
	}
}

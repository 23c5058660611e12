package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/bcrypt"
)

// ---------- helpers ----------

const testAdminPassword = "admin-pw"

// startTestServer spins up an httptest.Server with a Hub over a SQLite store
// and returns the server, the hub, and a cleanup func.
func startTestServer(t *testing.T) (*httptest.Server, *Hub, func()) {
	t.Helper()

	// Create a temp client dir with a minimal index.html
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte("<html>test</html>"), 0o644)

	db := openTestDB(t)
	ledger := newTestLedger(t, db)
	rules := quietRules()
	rules.TickInterval = 2 * time.Millisecond
	matches := NewMatchManager(rules, 5, 1, nil)
	hash, err := HashPassword(testAdminPassword, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	auth := NewAuth("test-secret", hash, db)
	analytics := NewAnalytics(db)

	hub := NewHub(matches, ledger, auth, db, analytics, "")
	srv := httptest.NewServer(SetupRoutes(hub, tmpDir))

	return srv, hub, func() {
		srv.Close()
		matches.Shutdown()
		analytics.Stop()
	}
}

// doJSON sends a request with an optional JSON body and bearer token and
// decodes the response into out when out is non-nil.
func doJSON(t *testing.T, method, url, token string, body interface{}, out interface{}) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decode %s %s (%d): %v: %s", method, url, resp.StatusCode, err, raw)
		}
	}
	return resp
}

// endDefaultRound forces the default match into a finished round
func endDefaultRound(hub *Hub, kills int) {
	m := hub.matches.Default()
	m.mu.Lock()
	m.ensureStateLocked()
	m.state.HordeKills = kills
	m.state.IsGameOver = true
	m.state.Message = MsgHordeReached
	m.mu.Unlock()
}

// stateEnvelope is a stream state message
type stateEnvelope struct {
	T string        `json:"t"`
	D StateSnapshot `json:"d"`
}

// dialWS opens a WebSocket connection to the test server.
func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial WS: %v", err)
	}
	return conn
}

// readRaw reads one message from the WebSocket.
func readRaw(t *testing.T, conn *websocket.Conn) (int, []byte) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read WS: %v", err)
	}
	return msgType, raw
}

// readState reads one JSON state message.
func readState(t *testing.T, conn *websocket.Conn) StateSnapshot {
	t.Helper()
	_, raw := readRaw(t, conn)
	var env stateEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.T != MsgState {
		t.Fatalf("expected state, got %s: %s", env.T, raw)
	}
	return env.D
}

// sendMsg sends a typed message over the WebSocket.
func sendMsg(t *testing.T, conn *websocket.Conn, msgType string, data interface{}) {
	t.Helper()
	env := Envelope{T: msgType, Data: data}
	raw, _ := json.Marshal(env)
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write WS: %v", err)
	}
}

// ---------- REST ----------

func TestStartAndState(t *testing.T) {
	srv, hub, cleanup := startTestServer(t)
	defer cleanup()

	var start StartResponse
	resp := doJSON(t, "POST", srv.URL+"/game/start", "", nil, &start)
	if resp.StatusCode != 200 {
		t.Fatalf("POST start status = %d, want 200", resp.StatusCode)
	}
	if start.Token == "" {
		t.Error("expected a match token")
	}
	if start.MatchID != DefaultMatchID || !start.Running {
		t.Errorf("expected running default match, got %s running=%v", start.MatchID, start.Running)
	}
	if start.Soldier.X != SoldierStartX {
		t.Errorf("expected soldier at %d, got %d", SoldierStartX, start.Soldier.X)
	}

	// Both prefixes serve the same API
	var state StateResponse
	resp = doJSON(t, "GET", srv.URL+"/Game/state", "", nil, &state)
	if resp.StatusCode != 200 {
		t.Fatalf("GET state status = %d, want 200", resp.StatusCode)
	}
	if state.MatchID != DefaultMatchID {
		t.Errorf("expected default match, got %s", state.MatchID)
	}
	if state.QualifiesForHighscore != nil {
		t.Error("qualifiesForHighscore should only be set once the round is over")
	}
	if hub.analytics.Count(EvtMatchStart) != 1 {
		t.Errorf("expected 1 start event, got %d", hub.analytics.Count(EvtMatchStart))
	}
}

func TestStateBeforeStart(t *testing.T) {
	srv, _, cleanup := startTestServer(t)
	defer cleanup()

	var state StateResponse
	resp := doJSON(t, "GET", srv.URL+"/game/state", "", nil, &state)
	if resp.StatusCode != 200 {
		t.Fatalf("GET state status = %d, want 200", resp.StatusCode)
	}
	if state.Running || state.IsGameOver {
		t.Errorf("expected idle fresh state, got running=%v over=%v", state.Running, state.IsGameOver)
	}
	if state.Chest == nil {
		t.Error("expected the opening chest")
	}
}

func TestMoveEndpoint(t *testing.T) {
	srv, _, cleanup := startTestServer(t)
	defer cleanup()

	var snap StateSnapshot
	resp := doJSON(t, "POST", srv.URL+"/game/soldier/move", "", MoveRequest{Direction: "LEFT"}, &snap)
	if resp.StatusCode != 200 {
		t.Fatalf("move status = %d, want 200", resp.StatusCode)
	}
	if snap.Soldier.X != SoldierStartX-MoveStep {
		t.Errorf("expected x=%d, got %d", SoldierStartX-MoveStep, snap.Soldier.X)
	}

	for _, body := range []interface{}{nil, MoveRequest{}, MoveRequest{Direction: "up"}} {
		var e ErrorMsg
		resp := doJSON(t, "POST", srv.URL+"/game/soldier/move", "", body, &e)
		if resp.StatusCode != 400 {
			t.Errorf("move %v status = %d, want 400", body, resp.StatusCode)
		}
		if e.Msg != ErrInvalidDirection.Error() {
			t.Errorf("expected %q, got %q", ErrInvalidDirection.Error(), e.Msg)
		}
	}
}

func TestMoveAfterGameOver(t *testing.T) {
	srv, hub, cleanup := startTestServer(t)
	defer cleanup()
	endDefaultRound(hub, 4)

	var e ErrorMsg
	resp := doJSON(t, "POST", srv.URL+"/game/soldier/move", "", MoveRequest{Direction: "right"}, &e)
	if resp.StatusCode != 400 || e.Msg != "Game Over" {
		t.Errorf("expected 400 Game Over, got %d %q", resp.StatusCode, e.Msg)
	}

	var state StateResponse
	doJSON(t, "GET", srv.URL+"/game/state", "", nil, &state)
	if !state.IsGameOver {
		t.Fatal("expected finished round")
	}
	if state.QualifiesForHighscore == nil || !*state.QualifiesForHighscore {
		t.Error("expected the round to qualify for an empty highscore list")
	}
	if state.TotalKills != 4 {
		t.Errorf("expected 4 total kills, got %d", state.TotalKills)
	}
}

func TestStopEndpoint(t *testing.T) {
	srv, hub, cleanup := startTestServer(t)
	defer cleanup()

	doJSON(t, "POST", srv.URL+"/game/start", "", nil, nil)
	var msg MessageResponse
	resp := doJSON(t, "POST", srv.URL+"/game/stop", "", nil, &msg)
	if resp.StatusCode != 200 || msg.Message != "Game stopped" {
		t.Errorf("expected Game stopped, got %d %q", resp.StatusCode, msg.Message)
	}
	if hub.matches.Default().Running() {
		t.Error("default match still running after stop")
	}
}

func TestHighscoreEndpoints(t *testing.T) {
	srv, _, cleanup := startTestServer(t)
	defer cleanup()

	var e ErrorMsg
	resp := doJSON(t, "POST", srv.URL+"/game/highscore", "", HighscoreRequest{TotalKills: 3}, &e)
	if resp.StatusCode != 400 || e.Msg != ErrNameRequired.Error() {
		t.Errorf("expected 400 name required, got %d %q", resp.StatusCode, e.Msg)
	}

	var list []Highscore
	resp = doJSON(t, "POST", srv.URL+"/game/highscore", "", HighscoreRequest{PlayerName: "ann", TotalKills: 3}, &list)
	if resp.StatusCode != 200 || len(list) != 1 {
		t.Fatalf("expected one entry, got %d %v", resp.StatusCode, list)
	}
	doJSON(t, "POST", srv.URL+"/game/highscore", "", HighscoreRequest{PlayerName: "ben", TotalKills: 8}, nil)

	list = nil
	doJSON(t, "GET", srv.URL+"/game/highscores", "", nil, &list)
	if len(list) != 2 || list[0].PlayerName != "ben" {
		t.Errorf("expected ben first, got %v", list)
	}
}

func TestResetHighscoresNeedsAdmin(t *testing.T) {
	srv, hub, cleanup := startTestServer(t)
	defer cleanup()
	hub.ledger.Add("ann", 3)

	resp := doJSON(t, "DELETE", srv.URL+"/game/highscores", "", nil, nil)
	if resp.StatusCode != 401 {
		t.Errorf("DELETE without credentials status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest("DELETE", srv.URL+"/game/highscores", nil)
	req.SetBasicAuth(adminUser, testAdminPassword)
	r, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	r.Body.Close()
	if r.StatusCode != 200 {
		t.Fatalf("DELETE with credentials status = %d, want 200", r.StatusCode)
	}
	if len(hub.ledger.List()) != 0 {
		t.Error("expected empty ledger after reset")
	}
}

func TestPrivateMatch(t *testing.T) {
	srv, hub, cleanup := startTestServer(t)
	defer cleanup()

	var start StartResponse
	doJSON(t, "POST", srv.URL+"/game/start", "", StartRequest{Private: true}, &start)
	if start.MatchID == DefaultMatchID || !uuidRegex.MatchString(start.MatchID) {
		t.Fatalf("expected a private match, got %q", start.MatchID)
	}

	doJSON(t, "POST", srv.URL+"/game/stop", start.Token, nil, nil)
	var snap StateSnapshot
	doJSON(t, "POST", srv.URL+"/game/soldier/move", start.Token, MoveRequest{Direction: "right"}, &snap)
	if snap.MatchID != start.MatchID || snap.Soldier.X != SoldierStartX+MoveStep {
		t.Errorf("move went to %s, x=%d", snap.MatchID, snap.Soldier.X)
	}

	// The default match is untouched
	var def StateResponse
	doJSON(t, "GET", srv.URL+"/game/state", "", nil, &def)
	if def.Soldier.X != SoldierStartX {
		t.Errorf("default match soldier moved to %d", def.Soldier.X)
	}

	// Query tokens work too
	var state StateResponse
	doJSON(t, "GET", srv.URL+"/game/state?token="+start.Token, "", nil, &state)
	if state.MatchID != start.MatchID {
		t.Errorf("query token addressed %s", state.MatchID)
	}

	resp := doJSON(t, "GET", srv.URL+"/game/state", "not-a-token", nil, nil)
	if resp.StatusCode != 401 {
		t.Errorf("bad token status = %d, want 401", resp.StatusCode)
	}

	hub.matches.Remove(start.MatchID)
	resp = doJSON(t, "GET", srv.URL+"/game/state", start.Token, nil, nil)
	if resp.StatusCode != 404 {
		t.Errorf("removed match status = %d, want 404", resp.StatusCode)
	}
}

func TestTooManyMatches(t *testing.T) {
	srv, _, cleanup := startTestServer(t)
	defer cleanup()

	// The default match counts toward the limit of 5
	for i := 0; i < 4; i++ {
		resp := doJSON(t, "POST", srv.URL+"/game/start", "", StartRequest{Private: true}, nil)
		if resp.StatusCode != 200 {
			t.Fatalf("start %d status = %d", i, resp.StatusCode)
		}
	}
	resp := doJSON(t, "POST", srv.URL+"/game/start", "", StartRequest{Private: true}, nil)
	if resp.StatusCode != 503 {
		t.Errorf("start over the limit status = %d, want 503", resp.StatusCode)
	}
}

func TestStatsRecordsFinishedRounds(t *testing.T) {
	srv, hub, cleanup := startTestServer(t)
	defer cleanup()

	var start StartResponse
	doJSON(t, "POST", srv.URL+"/game/start", "", StartRequest{Private: true}, &start)
	m, err := hub.matches.Get(start.MatchID)
	if err != nil {
		t.Fatal(err)
	}
	m.mu.Lock()
	m.state.HordeKills = 6
	m.state.Hordes = append(m.state.Hordes, &Horde{ID: 99, X: 30, Y: SoldierStartY - 1, SpeedY: 5, HitPoints: 1})
	m.mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	var stats StatsResponse
	for time.Now().Before(deadline) {
		doJSON(t, "GET", srv.URL+"/game/stats", "", nil, &stats)
		if stats.MatchesPlayed == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if stats.MatchesPlayed != 1 || stats.TotalKills != 6 {
		t.Fatalf("expected one recorded round with 6 kills, got %+v", stats)
	}
	if stats.BestMatch == nil || stats.BestMatch.MatchID != start.MatchID {
		t.Errorf("expected best match %s, got %+v", start.MatchID, stats.BestMatch)
	}
	if stats.LiveMatches != 0 {
		t.Errorf("expected no live matches, got %d", stats.LiveMatches)
	}
	if stats.RoundsStarted != 1 {
		t.Errorf("expected 1 round started, got %d", stats.RoundsStarted)
	}
}

func TestQREndpoint(t *testing.T) {
	srv, _, cleanup := startTestServer(t)
	defer cleanup()

	resp, err := http.Get(srv.URL + "/game/qr")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("GET qr status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %s", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Error("expected PNG data")
	}
}

func TestControllerURL(t *testing.T) {
	got := ControllerURL("http://example.test/", "a.b+c")
	if got != "http://example.test/?token=a.b%2Bc" {
		t.Errorf("unexpected controller URL %s", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _, cleanup := startTestServer(t)
	defer cleanup()

	resp := doJSON(t, "OPTIONS", srv.URL+"/game/start", "", nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestStaticFiles(t *testing.T) {
	srv, _, cleanup := startTestServer(t)
	defer cleanup()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("GET / status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "<html>") {
		t.Errorf("expected index.html, got %q", body)
	}
}

// ---------- stream ----------

func TestStreamJSON(t *testing.T) {
	srv, hub, cleanup := startTestServer(t)
	defer cleanup()

	conn := dialWS(t, srv, "")
	defer conn.Close()

	first := readState(t, conn)
	if first.MatchID != DefaultMatchID || first.Soldier.X != SoldierStartX {
		t.Fatalf("unexpected first snapshot %+v", first)
	}

	sendMsg(t, conn, MsgMove, MoveRequest{Direction: "left"})
	moved := readState(t, conn)
	if moved.Soldier.X != SoldierStartX-MoveStep {
		t.Errorf("expected x=%d, got %d", SoldierStartX-MoveStep, moved.Soldier.X)
	}

	sendMsg(t, conn, "dance", nil)
	_, raw := readRaw(t, conn)
	var env InEnvelope
	json.Unmarshal(raw, &env)
	if env.T != MsgError {
		t.Errorf("expected error for unknown message, got %s", raw)
	}

	if hub.TotalConns() != 1 {
		t.Errorf("expected 1 tracked connection, got %d", hub.TotalConns())
	}
}

func TestStreamPushesTicks(t *testing.T) {
	srv, hub, cleanup := startTestServer(t)
	defer cleanup()

	conn := dialWS(t, srv, "")
	defer conn.Close()
	readState(t, conn)

	hub.matches.Default().Start()
	var last StateSnapshot
	for i := 0; i < 5; i++ {
		last = readState(t, conn)
	}
	if !last.Running || last.GameTimeMs == 0 {
		t.Errorf("expected ticking snapshots, got running=%v time=%d", last.Running, last.GameTimeMs)
	}
}

func TestStreamMsgpack(t *testing.T) {
	srv, _, cleanup := startTestServer(t)
	defer cleanup()

	conn := dialWS(t, srv, "?enc=msgpack")
	defer conn.Close()

	msgType, raw := readRaw(t, conn)
	if msgType != websocket.BinaryMessage {
		t.Fatalf("expected binary message, got type %d", msgType)
	}
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.SetCustomStructTag("json")
	var snap StateSnapshot
	if err := dec.Decode(&snap); err != nil {
		t.Fatalf("msgpack unmarshal: %v", err)
	}
	if snap.MatchID != DefaultMatchID || snap.Soldier.Y != SoldierStartY {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestStreamStop(t *testing.T) {
	srv, hub, cleanup := startTestServer(t)
	defer cleanup()

	hub.matches.Default().Start()
	conn := dialWS(t, srv, "")
	defer conn.Close()
	sendMsg(t, conn, MsgStop, nil)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !readState(t, conn).Running {
			return
		}
	}
	t.Fatal("never saw a stopped snapshot")
}

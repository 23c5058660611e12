package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// API prefixes; the browser client uses the capitalized one
var apiPrefixes = []string{"/game", "/Game"}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The browser client is served from another origin; access is scoped by the match token
	CheckOrigin: func(r *http.Request) bool { return true },
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub, clientDir string) *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)

	for _, prefix := range apiPrefixes {
		api := r.PathPrefix(prefix).Subrouter()
		api.HandleFunc("/start", hub.handleStart).Methods("POST", "OPTIONS")
		api.HandleFunc("/state", hub.handleState).Methods("GET", "OPTIONS")
		api.HandleFunc("/soldier/move", hub.handleMove).Methods("POST", "OPTIONS")
		api.HandleFunc("/stop", hub.handleStop).Methods("POST", "OPTIONS")
		api.HandleFunc("/highscore", hub.handleAddHighscore).Methods("POST", "OPTIONS")
		api.HandleFunc("/highscores", hub.handleHighscores).Methods("GET", "OPTIONS")
		api.HandleFunc("/highscores", hub.handleResetHighscores).Methods("DELETE")
		api.HandleFunc("/stats", hub.handleStats).Methods("GET", "OPTIONS")
		api.HandleFunc("/qr", hub.handleQR).Methods("GET", "OPTIONS")
		api.HandleFunc("/ws", hub.handleWS).Methods("GET")
	}

	if clientDir != "" {
		// Serve static files with no-cache so browsers always revalidate
		fs := http.FileServer(http.Dir(clientDir))
		r.PathPrefix("/").Handler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			fs.ServeHTTP(w, req)
		}))
	}
	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorMsg{Msg: msg})
}

// decodeBody reads a JSON body; an empty body leaves v untouched
func decodeBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// resolveMatch picks the match addressed by the request token, or the default one
func (h *Hub) resolveMatch(w http.ResponseWriter, r *http.Request) (*Match, bool) {
	tok := bearerToken(r)
	if tok == "" {
		return h.matches.Default(), true
	}
	mid, err := h.auth.ValidateMatchToken(tok)
	if err != nil {
		writeError(w, http.StatusUnauthorized, ErrInvalidToken.Error())
		return nil, false
	}
	m, err := h.matches.Get(mid)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	m.Touch()
	return m, true
}

func (h *Hub) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var m *Match
	switch {
	case bearerToken(r) != "":
		var ok bool
		if m, ok = h.resolveMatch(w, r); !ok {
			return
		}
	case req.Private:
		var err error
		if m, err = h.matches.Create(); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	default:
		m = h.matches.Default()
	}

	snap := m.Start()
	tok, err := h.auth.IssueMatchToken(m.ID)
	if err != nil {
		log.Printf("match %s: issue token: %v", m.ID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, StartResponse{StateSnapshot: snap, Token: tok})
}

func (h *Hub) handleState(w http.ResponseWriter, r *http.Request) {
	m, ok := h.resolveMatch(w, r)
	if !ok {
		return
	}
	snap := m.Snapshot()
	resp := StateResponse{StateSnapshot: snap}
	if snap.IsGameOver {
		q := h.ledger.Qualifies(snap.TotalKills)
		resp.QualifiesForHighscore = &q
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Hub) handleMove(w http.ResponseWriter, r *http.Request) {
	m, ok := h.resolveMatch(w, r)
	if !ok {
		return
	}
	var req MoveRequest
	if err := decodeBody(r, &req); err != nil || req.Direction == "" {
		writeError(w, http.StatusBadRequest, ErrInvalidDirection.Error())
		return
	}
	dir := ParseDirection(req.Direction)
	if dir == "" {
		writeError(w, http.StatusBadRequest, ErrInvalidDirection.Error())
		return
	}
	snap, err := m.Move(dir)
	switch {
	case errors.Is(err, ErrGameOver):
		writeError(w, http.StatusBadRequest, "Game Over")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Hub) handleStop(w http.ResponseWriter, r *http.Request) {
	m, ok := h.resolveMatch(w, r)
	if !ok {
		return
	}
	m.Stop()
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Game stopped"})
}

func (h *Hub) handleAddHighscore(w http.ResponseWriter, r *http.Request) {
	var req HighscoreRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	added, err := h.ledger.Add(req.PlayerName, req.TotalKills)
	switch {
	case errors.Is(err, ErrNameRequired):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Printf("highscore: %v", err)
		writeError(w, http.StatusInternalServerError, "could not save highscore")
		return
	}
	if added && h.analytics != nil {
		h.analytics.Track(EvtHighscore, "", req)
	}
	writeJSON(w, http.StatusOK, h.ledger.List())
}

func (h *Hub) handleHighscores(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ledger.List())
}

func (h *Hub) handleResetHighscores(w http.ResponseWriter, r *http.Request) {
	if !h.auth.AdminEnabled() {
		writeError(w, http.StatusForbidden, "admin disabled")
		return
	}
	if !h.auth.CheckAdmin(r) {
		w.Header().Set("WWW-Authenticate", `Basic realm="horde"`)
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.ledger.Reset(); err != nil {
		log.Printf("highscore reset: %v", err)
		writeError(w, http.StatusInternalServerError, "could not reset highscores")
		return
	}
	log.Printf("highscores reset by %s", clientIP(r))
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Highscores reset"})
}

func (h *Hub) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats()
	if err != nil {
		log.Printf("stats: %v", err)
		writeError(w, http.StatusInternalServerError, "could not load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Hub) handleQR(w http.ResponseWriter, r *http.Request) {
	m, ok := h.resolveMatch(w, r)
	if !ok {
		return
	}
	tok, err := h.auth.IssueMatchToken(m.ID)
	if err != nil {
		log.Printf("match %s: issue token: %v", m.ID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	base := h.publicURL
	if base == "" {
		base = requestBaseURL(r)
	}
	png, err := QRCodePNG(ControllerURL(base, tok), qrSize)
	if err != nil {
		log.Printf("match %s: qr code: %v", m.ID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	m, ok := h.resolveMatch(w, r)
	if !ok {
		return
	}
	ip := clientIP(r)
	if !h.Admit(ip) {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Release(ip)
		log.Printf("upgrade error: %v", err)
		return
	}

	if h.analytics != nil {
		h.analytics.Track(EvtStreamOpen, m.ID, nil)
	}

	client := NewClient(h, m, conn, ip, r.URL.Query().Get("enc") == "msgpack")
	m.Subscribe(client)

	go client.WritePump()
	go client.ReadPump()
}

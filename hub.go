package main

import (
	"fmt"
	"log"
	"sync"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Hub ties the matches to the ledger, auth, storage and stream connections
type Hub struct {
	matches   *MatchManager
	ledger    *Ledger
	auth      *Auth
	db        *DB // nil with the flat-file store
	analytics *Analytics
	publicURL string

	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
}

// NewHub creates a Hub and installs the round hooks on every match
func NewHub(matches *MatchManager, ledger *Ledger, auth *Auth, db *DB, analytics *Analytics, publicURL string) *Hub {
	h := &Hub{
		matches:   matches,
		ledger:    ledger,
		auth:      auth,
		db:        db,
		analytics: analytics,
		publicURL: publicURL,
		ipConns:   make(map[string]int),
	}
	matches.SetHooks(h.roundStarted, h.roundEnded)
	return h
}

type matchEndPayload struct {
	HordeKills int    `json:"hordeKills"`
	BossKills  int    `json:"bossKills"`
	DurationMs int64  `json:"durationMs"`
	Cause      string `json:"cause"`
}

func (h *Hub) roundStarted(matchID string) {
	if h.analytics != nil {
		h.analytics.Track(EvtMatchStart, matchID, nil)
	}
}

func (h *Hub) roundEnded(r MatchResult) {
	if h.db != nil {
		if err := h.db.RecordMatch(r); err != nil {
			log.Printf("match %s: record result: %v", r.MatchID, err)
		}
	}
	if h.analytics != nil {
		h.analytics.Track(EvtMatchEnd, r.MatchID, matchEndPayload{
			HordeKills: r.HordeKills,
			BossKills:  r.BossKills,
			DurationMs: r.Duration.Milliseconds(),
			Cause:      r.Cause,
		})
	}
}

// Stats gathers the numbers served by GET stats
func (h *Hub) Stats() (StatsResponse, error) {
	resp := StatsResponse{
		LiveMatches: h.matches.RunningCount(),
		Highscores:  h.ledger.List(),
	}
	if h.analytics != nil {
		resp.RoundsStarted = h.analytics.Count(EvtMatchStart)
		resp.StreamsOpened = h.analytics.Count(EvtStreamOpen)
	}
	if h.db == nil {
		return resp, nil
	}
	played, kills, best, err := h.db.MatchSummary()
	if err != nil {
		return resp, fmt.Errorf("match summary: %w", err)
	}
	resp.MatchesPlayed = played
	resp.TotalKills = kills
	resp.BestMatch = best
	return resp, nil
}

// Admit reserves a stream slot for ip, or reports false when the caller
// already has maxConnsPerIP streams or the server is full
func (h *Hub) Admit(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns || h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	h.ipConns[ip]++
	h.totalConns++
	return true
}

// Release frees a slot taken by Admit
func (h *Hub) Release(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.ipConns[ip]--; h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// TotalConns returns the number of open streams
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}

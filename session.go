package main

import (
	"log"
	"sort"
	"sync"
	"time"
)

// DefaultMatchID serves requests that carry no match token
const DefaultMatchID = "default"

// SessionIdleTimeout is how long a private match may sit untouched before the
// reaper removes it
const SessionIdleTimeout = 10 * time.Minute

// MatchInfo is used in match listings
type MatchInfo struct {
	ID          string `json:"id"`
	Running     bool   `json:"running"`
	Subscribers int    `json:"subscribers"`
}

// MatchManager handles creation and lookup of matches
type MatchManager struct {
	mu         sync.RWMutex
	matches    map[string]*Match
	rules      Rules
	maxMatches int
	seed       int64
	logger     *log.Logger

	// hooks copied onto every match
	onGameOver func(MatchResult)
	onStart    func(matchID string)

	stop chan struct{}
	once sync.Once
}

// NewMatchManager creates a manager holding the default match
func NewMatchManager(rules Rules, maxMatches int, seed int64, logger *log.Logger) *MatchManager {
	if logger == nil {
		logger = log.Default()
	}
	mm := &MatchManager{
		matches:    make(map[string]*Match),
		rules:      rules,
		maxMatches: maxMatches,
		seed:       seed,
		logger:     logger,
		stop:       make(chan struct{}),
	}
	mm.matches[DefaultMatchID] = mm.newMatch(DefaultMatchID)
	return mm
}

// SetHooks installs the round start and game-over callbacks on existing and future matches
func (mm *MatchManager) SetHooks(onStart func(string), onGameOver func(MatchResult)) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.onStart = onStart
	mm.onGameOver = onGameOver
	for _, m := range mm.matches {
		m.OnStart = onStart
		m.OnGameOver = onGameOver
	}
}

func (mm *MatchManager) newMatch(id string) *Match {
	seed := mm.seed
	if seed != 0 {
		seed += int64(len(mm.matches))
	}
	m := NewMatch(id, mm.rules, NewRand(seed), mm.logger)
	m.OnStart = mm.onStart
	m.OnGameOver = mm.onGameOver
	return m
}

// Default returns the shared token-less match
func (mm *MatchManager) Default() *Match {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.matches[DefaultMatchID]
}

// Create makes a new private match
func (mm *MatchManager) Create() (*Match, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if mm.maxMatches > 0 && len(mm.matches) >= mm.maxMatches {
		return nil, ErrTooManyMatches
	}
	m := mm.newMatch(GenerateUUID())
	mm.matches[m.ID] = m
	return m, nil
}

// Get returns a match by ID
func (mm *MatchManager) Get(id string) (*Match, error) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	m, ok := mm.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return m, nil
}

// Remove stops and forgets a private match. The default match is never removed.
func (mm *MatchManager) Remove(id string) {
	if id == DefaultMatchID {
		return
	}
	mm.mu.Lock()
	m, ok := mm.matches[id]
	delete(mm.matches, id)
	mm.mu.Unlock()
	if ok {
		m.Close()
	}
}

// Count returns the number of matches, the default one included
func (mm *MatchManager) Count() int {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return len(mm.matches)
}

// List returns info about all matches
func (mm *MatchManager) List() []MatchInfo {
	mm.mu.RLock()
	matches := make([]*Match, 0, len(mm.matches))
	for _, m := range mm.matches {
		matches = append(matches, m)
	}
	mm.mu.RUnlock()

	list := make([]MatchInfo, 0, len(matches))
	for _, m := range matches {
		list = append(list, MatchInfo{
			ID:          m.ID,
			Running:     m.Running(),
			Subscribers: m.SubscriberCount(),
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// RunningCount returns how many matches currently tick
func (mm *MatchManager) RunningCount() int {
	n := 0
	for _, info := range mm.List() {
		if info.Running {
			n++
		}
	}
	return n
}

// ReapIdle removes private matches idle since before cutoff and returns how many went
func (mm *MatchManager) ReapIdle(cutoff time.Time) int {
	mm.mu.RLock()
	var idle []string
	for id, m := range mm.matches {
		if id == DefaultMatchID {
			continue
		}
		if m.SubscriberCount() == 0 && m.IdleSince().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	mm.mu.RUnlock()

	for _, id := range idle {
		mm.logger.Printf("match %s: removed after idle timeout", id)
		mm.Remove(id)
	}
	return len(idle)
}

// RunReaper removes private matches idle for longer than idle, checking
// every interval, until Shutdown
func (mm *MatchManager) RunReaper(every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			mm.ReapIdle(time.Now().Add(-idle))
		case <-mm.stop:
			return
		}
	}
}

// Shutdown stops the reaper and every match
func (mm *MatchManager) Shutdown() {
	mm.once.Do(func() { close(mm.stop) })
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	for _, m := range mm.matches {
		m.Close()
	}
}

package main

import (
	"log"
	"sync"
	"time"
)

// Subscriber receives state snapshots pushed by a match
type Subscriber interface {
	Deliver(snap *StateSnapshot)
}

// Match owns one round: its state, the lock guarding it and the ticker
// driving it. Every read and write of the state goes through mu.
type Match struct {
	ID string

	// OnGameOver is called, outside the lock, once per finished round.
	OnGameOver func(MatchResult)
	// OnStart is called, outside the lock, after every start.
	OnStart func(matchID string)

	mu         sync.Mutex
	state      *GameState
	rng        Rand
	rules      Rules
	logger     *log.Logger
	running    bool
	stop       chan struct{}
	tick       uint64
	subs       map[Subscriber]struct{}
	lastActive time.Time
}

// NewMatch creates an idle match; the state is built lazily on first use
func NewMatch(id string, rules Rules, r Rand, logger *log.Logger) *Match {
	if logger == nil {
		logger = log.Default()
	}
	if r == nil {
		r = NewRand(0)
	}
	if rules.TickInterval <= 0 {
		rules.TickInterval = TickDuration
	}
	if rules.BroadcastEvery <= 0 {
		rules.BroadcastEvery = 1
	}
	return &Match{
		ID:         id,
		rng:        r,
		rules:      rules,
		logger:     logger,
		subs:       make(map[Subscriber]struct{}),
		lastActive: time.Now(),
	}
}

// Start replaces the round with a fresh one and makes sure the ticker runs.
// Starting a running match only resets the state.
func (m *Match) Start() StateSnapshot {
	m.mu.Lock()
	m.logger.Printf("match %s: starting game loop", m.ID)
	m.state = NewGameState(m.rng)
	m.tick = 0
	m.lastActive = time.Now()
	if !m.running {
		m.running = true
		m.stop = make(chan struct{})
		go m.run(m.stop)
	}
	snap := m.snapshotLocked()
	m.broadcastLocked(&snap)
	m.mu.Unlock()

	if m.OnStart != nil {
		m.OnStart(m.ID)
	}
	return snap
}

// Stop disables the ticker and keeps the state
func (m *Match) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		m.logger.Printf("match %s: stopping game loop", m.ID)
	}
	m.stopLocked()
	m.lastActive = time.Now()
}

func (m *Match) stopLocked() {
	if m.running {
		m.running = false
		close(m.stop)
		m.stop = nil
	}
}

// Running reports whether the ticker is enabled
func (m *Match) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Snapshot returns the current state, initializing it on first use
func (m *Match) Snapshot() StateSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActive = time.Now()
	return m.snapshotLocked()
}

// Move applies a soldier move command
func (m *Match) Move(dir Direction) (StateSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActive = time.Now()
	m.ensureStateLocked()
	if err := m.state.MoveSoldier(dir); err != nil {
		return m.snapshotLocked(), err
	}
	return m.snapshotLocked(), nil
}

// Subscribe registers sub for pushed snapshots and sends it the current one
func (m *Match) Subscribe(sub Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub] = struct{}{}
	snap := m.snapshotLocked()
	sub.Deliver(&snap)
}

// Unsubscribe removes sub
func (m *Match) Unsubscribe(sub Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, sub)
	m.lastActive = time.Now()
}

// Touch marks the match as in use for the idle reaper
func (m *Match) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActive = time.Now()
}

// SubscriberCount returns the number of stream subscribers
func (m *Match) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// IdleSince returns the last time anyone touched the match
func (m *Match) IdleSince() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActive
}

// Close stops the ticker and drops all subscribers
func (m *Match) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	m.subs = make(map[Subscriber]struct{})
}

// run is the ticker goroutine. stop identifies this loop; once the match is
// stopped or restarted with a new loop, this one never touches the state again.
func (m *Match) run(stop chan struct{}) {
	ticker := time.NewTicker(m.rules.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			if m.stop != stop {
				m.mu.Unlock()
				return
			}
			result := m.updateLocked()
			m.mu.Unlock()
			m.finish(result)
		case <-stop:
			return
		}
	}
}

// update runs one tick regardless of the ticker
func (m *Match) update() {
	m.mu.Lock()
	result := m.updateLocked()
	m.mu.Unlock()
	m.finish(result)
}

// updateLocked runs one tick and returns the round result if it just ended
func (m *Match) updateLocked() *MatchResult {
	m.ensureStateLocked()
	res := Step(m.state, m.rng, m.rules)
	m.tick++

	if res.Bonus != BonusNone {
		m.logger.Printf("match %s: chest opened, bonus %s", m.ID, res.Bonus)
	}

	var result *MatchResult
	if res.GameOver {
		m.logger.Printf("match %s: %s (hordes %d, bosses %d)", m.ID, res.Cause, m.state.HordeKills, m.state.BossKills)
		m.stopLocked()
		result = &MatchResult{
			MatchID:    m.ID,
			HordeKills: m.state.HordeKills,
			BossKills:  m.state.BossKills,
			Duration:   m.state.GameTime,
			Cause:      res.Cause,
			EndedAt:    time.Now(),
		}
	}

	if res.GameOver || m.tick%uint64(m.rules.BroadcastEvery) == 0 {
		if len(m.subs) > 0 {
			snap := m.snapshotLocked()
			m.broadcastLocked(&snap)
		}
	}
	return result
}

func (m *Match) finish(result *MatchResult) {
	if result != nil && m.OnGameOver != nil {
		m.OnGameOver(*result)
	}
}

func (m *Match) ensureStateLocked() {
	if m.state == nil {
		m.logger.Printf("match %s: initializing game data", m.ID)
		m.state = NewGameState(m.rng)
	}
}

func (m *Match) snapshotLocked() StateSnapshot {
	m.ensureStateLocked()
	snap := m.state.ToState(m.ID)
	snap.Running = m.running
	return snap
}

func (m *Match) broadcastLocked(snap *StateSnapshot) {
	for sub := range m.subs {
		sub.Deliver(snap)
	}
}

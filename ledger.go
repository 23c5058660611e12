package main

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	maxHighscores = 10
	maxNameLen    = 16
	// createdAt layout shown by the browser client (yy/MM/dd_HH:mm)
	highscoreTimeLayout = "06/01/02_15:04"
)

// Highscore is one entry of the top-10 list
type Highscore struct {
	PlayerName string `json:"playerName"`
	CreatedAt  string `json:"createdAt"`
	TotalKills int    `json:"totalKills"`
}

// LedgerStore persists the top-10 list. SaveHighscores always receives the
// whole list and replaces whatever was stored.
type LedgerStore interface {
	LoadHighscores() ([]Highscore, error)
	SaveHighscores(list []Highscore) error
}

// Ledger keeps the bounded best-N list of finished rounds
type Ledger struct {
	mu      sync.Mutex
	entries []Highscore
	store   LedgerStore
	now     func() time.Time
}

// NewLedger loads the persisted list; a missing record starts empty
func NewLedger(store LedgerStore) (*Ledger, error) {
	l := &Ledger{store: store, now: time.Now}
	list, err := store.LoadHighscores()
	if err != nil {
		return nil, fmt.Errorf("load highscores: %w", err)
	}
	sortHighscores(list)
	if len(list) > maxHighscores {
		list = list[:maxHighscores]
	}
	l.entries = list
	return l, nil
}

// List returns a copy of the current top-10
func (l *Ledger) List() []Highscore {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Highscore, len(l.entries))
	copy(out, l.entries)
	return out
}

// Qualifies reports whether a round with this many kills would enter the list
func (l *Ledger) Qualifies(kills int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.qualifiesLocked(kills)
}

func (l *Ledger) qualifiesLocked(kills int) bool {
	if len(l.entries) < maxHighscores {
		return true
	}
	return kills > l.minLocked()
}

func (l *Ledger) minLocked() int {
	min := l.entries[0].TotalKills
	for _, h := range l.entries[1:] {
		if h.TotalKills < min {
			min = h.TotalKills
		}
	}
	return min
}

// Add inserts a score if it qualifies and persists the new list. It returns
// whether the score made the list. When persisting fails the list is left
// unchanged.
func (l *Ledger) Add(name string, kills int) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, ErrNameRequired
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		name = string([]rune(name)[:maxNameLen])
	}
	if kills < 0 {
		kills = 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.qualifiesLocked(kills) {
		return false, nil
	}

	next := make([]Highscore, len(l.entries), len(l.entries)+1)
	copy(next, l.entries)
	next = append(next, Highscore{
		PlayerName: name,
		CreatedAt:  l.now().Format(highscoreTimeLayout),
		TotalKills: kills,
	})
	sortHighscores(next)
	if len(next) > maxHighscores {
		next = next[:maxHighscores]
	}

	if err := l.store.SaveHighscores(next); err != nil {
		return false, fmt.Errorf("save highscores: %w", err)
	}
	l.entries = next
	return true, nil
}

// Reset empties the list
func (l *Ledger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.SaveHighscores([]Highscore{}); err != nil {
		return fmt.Errorf("save highscores: %w", err)
	}
	l.entries = nil
	return nil
}

// sortHighscores orders by kills, highest first; equal scores keep insertion order
func sortHighscores(list []Highscore) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].TotalKills > list[j].TotalKills
	})
}

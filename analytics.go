package main

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Event kinds recorded by the event log
const (
	EvtMatchStart = "match_start"
	EvtMatchEnd   = "match_end"
	EvtHighscore  = "highscore"
	EvtStreamOpen = "stream_open"
)

const (
	eventQueueSize  = 1024
	eventBatchSize  = 50
	eventFlushEvery = 5 * time.Second
)

// Event is one row of the event log
type Event struct {
	Kind    string
	MatchID string
	Payload string // JSON, empty when the event carries nothing
	At      time.Time
}

// Analytics counts round events in memory and, when a database is
// configured, appends them to analytics_events in batches.
type Analytics struct {
	db      *DB
	queue   chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	closing sync.Once

	mu     sync.RWMutex
	counts map[string]int
}

func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:     db,
		queue:  make(chan Event, eventQueueSize),
		done:   make(chan struct{}),
		counts: make(map[string]int),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

// Track records an event without blocking the caller. payload may be nil;
// anything else is stored as JSON.
func (a *Analytics) Track(kind, matchID string, payload any) {
	a.mu.Lock()
	a.counts[kind]++
	a.mu.Unlock()

	ev := Event{Kind: kind, MatchID: matchID, At: time.Now().UTC()}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			log.Printf("analytics: %s payload: %v", kind, err)
		} else {
			ev.Payload = string(b)
		}
	}

	select {
	case a.queue <- ev:
	default:
		// queue full, drop
	}
}

// Count returns how many events of a kind were tracked since startup
func (a *Analytics) Count(kind string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.counts[kind]
}

// Stop flushes queued events and ends the writer. Safe to call twice.
func (a *Analytics) Stop() {
	a.closing.Do(func() { close(a.done) })
	a.wg.Wait()
}

func (a *Analytics) run() {
	defer a.wg.Done()

	ticker := time.NewTicker(eventFlushEvery)
	defer ticker.Stop()

	pending := make([]Event, 0, eventBatchSize)
	for {
		select {
		case ev := <-a.queue:
			if pending = append(pending, ev); len(pending) >= eventBatchSize {
				pending = a.write(pending)
			}
		case <-ticker.C:
			pending = a.write(pending)
		case <-a.done:
			a.write(a.drain(pending))
			return
		}
	}
}

// drain moves whatever is still queued into pending
func (a *Analytics) drain(pending []Event) []Event {
	for {
		select {
		case ev := <-a.queue:
			pending = append(pending, ev)
		default:
			return pending
		}
	}
}

// write persists pending and returns it emptied for reuse
func (a *Analytics) write(pending []Event) []Event {
	if len(pending) == 0 || a.db == nil {
		return pending[:0]
	}
	if err := a.db.InsertEvents(pending); err != nil {
		log.Printf("analytics: dropped %d events: %v", len(pending), err)
	}
	return pending[:0]
}

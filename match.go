package main

import "time"

const (
	TickRate      = 60 // ticks per second
	BroadcastRate = 30 // stream pushes per second
	TickDuration  = 16 * time.Millisecond
)

// Rules holds the tunables of a round
type Rules struct {
	TickInterval        time.Duration
	HordeSpawnPerMille  int // chance per tick, out of 1000
	BossSpawnPerMille   int
	HordeSpeed          int
	BossSpeed           float64
	ChestRespawnPercent int
	BroadcastEvery      int // ticks between stream pushes
}

// DefaultRules returns the standard round tuning
func DefaultRules() Rules {
	return Rules{
		TickInterval:        TickDuration,
		HordeSpawnPerMille:  50,
		BossSpawnPerMille:   1,
		HordeSpeed:          1,
		BossSpeed:           0.5,
		ChestRespawnPercent: ChestRespawnPercent,
		BroadcastEvery:      TickRate / BroadcastRate,
	}
}

// MatchResult is handed to the game-over hook once a round ends
type MatchResult struct {
	MatchID    string
	HordeKills int
	BossKills  int
	Duration   time.Duration
	Cause      string
	EndedAt    time.Time
}

// TotalKills is the ledger score of the round
func (r MatchResult) TotalKills() int {
	return r.HordeKills + r.BossKills
}

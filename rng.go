package main

import (
	"math/rand"
	"time"
)

// Rand is the random draw source the engine rolls spawns and positions with.
// *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// NewRand returns a seeded generator. A zero seed means seed from the clock.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// rollPerMille returns true with probability chance/1000.
func rollPerMille(r Rand, chance int) bool {
	if chance <= 0 {
		return false
	}
	if chance >= 1000 {
		return true
	}
	return r.Intn(1000) < chance
}

// rollPercent returns true with probability chance/100.
func rollPercent(r Rand, chance int) bool {
	if chance <= 0 {
		return false
	}
	if chance >= 100 {
		return true
	}
	return r.Intn(100) < chance
}

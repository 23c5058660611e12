package main

import "time"

const (
	ChestStartY         = 50
	ChestSpeed          = 2.0
	ChestTouchRange     = 30
	ChestRespawnPercent = 20
	BonusDuration       = 10 * time.Second
	BonusMessageTime    = 3 * time.Second
)

// BonusType is the timed modifier a chest grants
type BonusType int

const (
	BonusNone BonusType = iota
	BonusPowerSoldier
	BonusPowerfulWeapon
	bonusCount
)

// String returns the display name of the bonus
func (b BonusType) String() string {
	switch b {
	case BonusPowerSoldier:
		return "PowerSoldier"
	case BonusPowerfulWeapon:
		return "PowerfulWeapon"
	default:
		return "None"
	}
}

// Message is the banner shown when the bonus is awarded
func (b BonusType) Message() string {
	switch b {
	case BonusPowerSoldier:
		return "Bonus: Power Soldier!"
	case BonusPowerfulWeapon:
		return "Bonus: Powerful Weapon!"
	default:
		return "Bonus received!"
	}
}

// Chest is a collectible drifting down the playfield
type Chest struct {
	X           int
	Y           float64
	SpeedY      float64
	IsDestroyed bool
	Bonus       BonusType
}

// NewChest respawns a chest near the top of the playfield
func NewChest(r Rand, width int) *Chest {
	span := width - SpawnMargin
	x := 0
	if span > 0 {
		x = r.Intn(span)
	}
	return &Chest{X: x, Y: ChestStartY, SpeedY: ChestSpeed}
}

// Touches reports whether the soldier is close enough to open the chest
func (c *Chest) Touches(s Soldier) bool {
	return !c.IsDestroyed &&
		AbsInt(c.X-s.X) < ChestTouchRange &&
		AbsFloat(c.Y-float64(s.Y)) < ChestTouchRange
}

// rollBonus picks a bonus uniformly from the non-None types
func rollBonus(r Rand) BonusType {
	return BonusType(1 + r.Intn(int(bonusCount)-1))
}

// ToState converts to protocol state
func (c *Chest) ToState() ChestState {
	return ChestState{
		X:           c.X,
		Y:           round1(c.Y),
		SpeedY:      c.SpeedY,
		IsDestroyed: c.IsDestroyed,
		Bonus:       c.Bonus,
	}
}

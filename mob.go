package main

const (
	HordeSize   = 30
	HordeMaxHP  = 1
	BossSize    = 50
	BossMaxHP   = 150
	SpawnMargin = 25 // keep spawns off the playfield edges
	AttackRange = 25 // horizontal half-width of the soldier's firing lane
)

// Horde is a basic, low-durability enemy descending at an integer speed
type Horde struct {
	ID        int
	X, Y      int
	SpeedY    int
	HitPoints int
}

// Boss is a rare, high-durability enemy; fractional speed lets it creep
// by sub-pixel amounts each tick
type Boss struct {
	ID        int
	X, Y      float64
	SpeedY    float64
	HitPoints int
}

// spawnX picks a horizontal spawn position inside the safe band
// [SpawnMargin, width-SpawnMargin), or anywhere when the band is empty.
func spawnX(r Rand, width int) int {
	band := width - 2*SpawnMargin
	if band > 0 {
		return SpawnMargin + r.Intn(band)
	}
	if width <= 0 {
		return 0
	}
	return r.Intn(width)
}

// NewHorde spawns a horde at the top of the playfield
func NewHorde(id int, r Rand, width, speed int) *Horde {
	return &Horde{
		ID:        id,
		X:         spawnX(r, width),
		Y:         0,
		SpeedY:    speed,
		HitPoints: HordeMaxHP,
	}
}

// NewBoss spawns a boss at the top of the playfield
func NewBoss(id int, r Rand, width int, speed float64) *Boss {
	return &Boss{
		ID:        id,
		X:         float64(spawnX(r, width)),
		Y:         0,
		SpeedY:    speed,
		HitPoints: BossMaxHP,
	}
}

// TakeHit removes one hit point and returns true if the horde died
func (h *Horde) TakeHit() bool {
	if h.HitPoints <= 0 {
		return false
	}
	h.HitPoints--
	return h.HitPoints <= 0
}

// Alive reports whether the horde still has hit points
func (h *Horde) Alive() bool { return h.HitPoints > 0 }

// InLane reports whether the soldier at (sx, sy) is firing at this horde
func (h *Horde) InLane(sx, sy int) bool {
	return AbsInt(h.X-sx) <= AttackRange && h.Y > 0 && h.Y < sy
}

// ToState converts to protocol state
func (h *Horde) ToState() HordeState {
	return HordeState{ID: h.ID, X: h.X, Y: h.Y, SpeedY: h.SpeedY, HitPoints: h.HitPoints}
}

// TakeHit removes one hit point and returns true if the boss died
func (b *Boss) TakeHit() bool {
	if b.HitPoints <= 0 {
		return false
	}
	b.HitPoints--
	return b.HitPoints <= 0
}

// Alive reports whether the boss still has hit points
func (b *Boss) Alive() bool { return b.HitPoints > 0 }

// InLane reports whether the soldier at (sx, sy) is firing at this boss
func (b *Boss) InLane(sx, sy int) bool {
	return AbsFloat(b.X-float64(sx)) <= AttackRange && b.Y > 0 && b.Y < float64(sy)
}

// ToState converts to protocol state
func (b *Boss) ToState() BossState {
	return BossState{ID: b.ID, X: round1(b.X), Y: round1(b.Y), SpeedY: b.SpeedY, HitPoints: b.HitPoints}
}

package main

const (
	ShotSpeed      = -30  // pixels/tick, negative is upward
	PowerShotSpeed = -45  // shot speed while the powerful weapon bonus is active
	ShotOffsetY    = 20   // spawn distance above the soldier
	ShotCullY      = -150 // shots above this line are discarded
	MaxShots       = 500
)

// Shot is a projectile fired upward by the soldier
type Shot struct {
	X, Y   int
	PrevY  int // position before the last move, for swept hit tests
	SpeedY int
}

// NewShot creates a shot just above the soldier at horizontal offset dx
func NewShot(s Soldier, dx int) *Shot {
	y := s.Y - ShotOffsetY
	return &Shot{
		X:      s.X + dx,
		Y:      y,
		PrevY:  y,
		SpeedY: ShotSpeed,
	}
}

// Update moves the shot one tick and reports whether it is still in play
func (p *Shot) Update() bool {
	p.PrevY = p.Y
	p.Y += p.SpeedY
	return p.Y >= ShotCullY
}

// ToState converts to protocol state
func (p *Shot) ToState() ShotState {
	return ShotState{X: p.X, Y: p.Y, SpeedY: p.SpeedY}
}

package main

// spanOverlap reports whether [a0, a1] and [b0, b1] intersect. Bounds may be
// given in either order.
func spanOverlap(a0, a1, b0, b1 float64) bool {
	if a0 > a1 {
		a0, a1 = a1, a0
	}
	if b0 > b1 {
		b0, b1 = b1, b0
	}
	return a0 <= b1 && b0 <= a1
}

// ShotHits checks a shot against an enemy at (ex, ey) with the given height.
// Horizontally the shot must be within AttackRange of ex, the same lane the
// soldier fires into, so every shot fired at an enemy can reach it. Vertically
// the segment the shot swept this tick must cross [ey, ey+size], so fast shots
// cannot tunnel through small enemies.
func ShotHits(p *Shot, ex, ey, size float64) bool {
	if AbsFloat(float64(p.X)-ex) > AttackRange {
		return false
	}
	return spanOverlap(float64(p.Y), float64(p.PrevY), ey, ey+size)
}

// ShotHitsHorde checks a shot against a horde in its lane, HordeSize tall
func ShotHitsHorde(p *Shot, h *Horde) bool {
	return ShotHits(p, float64(h.X), float64(h.Y), HordeSize)
}

// ShotHitsBoss checks a shot against a boss in its lane, BossSize tall
func ShotHitsBoss(p *Shot, b *Boss) bool {
	return ShotHits(p, b.X, b.Y, BossSize)
}

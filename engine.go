package main

// PowerSoldierFan is how many extra shots fire on each side of the soldier
// while the power soldier bonus is active; FanSpacing is the gap between them.
const (
	PowerSoldierFan = 2
	FanSpacing      = 10
)

// StepResult reports what happened during one tick
type StepResult struct {
	GameOver     bool
	Cause        string
	HordesKilled int
	BossesKilled int
	Bonus        BonusType // bonus awarded this tick, BonusNone if none
}

// Step advances s by one tick. The sub-steps run in a fixed order; each one
// sees the results of the ones before it. A finished round is never mutated.
func Step(s *GameState, r Rand, rules Rules) StepResult {
	var res StepResult
	if s.IsGameOver {
		return res
	}

	moveDown(s)
	moveShots(s)
	spawnEnemies(s, r, rules)
	soldierAttacks(s, &res)
	res.Bonus = chestInteraction(s, r, rules)
	if checkGameOver(s, &res) {
		return res
	}
	applyBonuses(s)

	s.GameTime += rules.TickInterval
	return res
}

// moveDown drifts enemies and the chest toward the soldier
func moveDown(s *GameState) {
	for _, h := range s.Hordes {
		h.Y += h.SpeedY
	}
	for _, b := range s.Bosses {
		b.Y += b.SpeedY
	}
	if s.Chest != nil {
		s.Chest.Y += s.Chest.SpeedY
	}
}

// moveShots flies shots upward and drops the ones that left the screen
func moveShots(s *GameState) {
	kept := s.Shots[:0]
	for _, p := range s.Shots {
		if p.Update() {
			kept = append(kept, p)
		}
	}
	clearTail(s.Shots, len(kept))
	s.Shots = kept
}

// spawnEnemies rolls independent per-tick spawn chances
func spawnEnemies(s *GameState, r Rand, rules Rules) {
	if rollPerMille(r, rules.HordeSpawnPerMille) {
		s.Hordes = append(s.Hordes, NewHorde(s.allocID(), r, s.ScreenWidth, rules.HordeSpeed))
	}
	if rollPerMille(r, rules.BossSpawnPerMille) {
		s.Bosses = append(s.Bosses, NewBoss(s.allocID(), r, s.ScreenWidth, rules.BossSpeed))
	}
}

// soldierAttacks resolves shot hits, removes dead enemies, then fires one new
// shot for every enemy left in the soldier's lane.
func soldierAttacks(s *GameState, res *StepResult) {
	var grid LaneGrid
	var buf []EntityRef
	buildLaneGrid(&grid, s)

	kept := s.Shots[:0]
	for _, p := range s.Shots {
		buf = grid.QueryBuf(float64(p.X), AttackRange, buf[:0])
		if !shotHitsAny(s, p, buf) {
			kept = append(kept, p)
		}
	}
	clearTail(s.Shots, len(kept))
	s.Shots = kept

	hordes := s.Hordes[:0]
	for _, h := range s.Hordes {
		if h.Alive() {
			hordes = append(hordes, h)
			continue
		}
		s.HordeKills++
		res.HordesKilled++
	}
	for i := len(hordes); i < len(s.Hordes); i++ {
		s.Hordes[i] = nil
	}
	s.Hordes = hordes

	bosses := s.Bosses[:0]
	for _, b := range s.Bosses {
		if b.Alive() {
			bosses = append(bosses, b)
			continue
		}
		s.BossKills++
		res.BossesKilled++
	}
	for i := len(bosses); i < len(s.Bosses); i++ {
		s.Bosses[i] = nil
	}
	s.Bosses = bosses

	sx, sy := s.Soldier.X, s.Soldier.Y
	for _, h := range s.Hordes {
		if h.InLane(sx, sy) {
			fire(s, 0)
		}
	}
	for _, b := range s.Bosses {
		if b.InLane(sx, sy) {
			fire(s, 0)
		}
	}
}

// shotHitsAny applies p to the first live enemy it overlaps among the lane
// candidates. Hordes are checked before bosses, each in list order.
func shotHitsAny(s *GameState, p *Shot, candidates []EntityRef) bool {
	horde, boss := -1, -1
	for _, ref := range candidates {
		switch ref.Kind {
		case KindHorde:
			h := s.Hordes[ref.Idx]
			if (horde < 0 || ref.Idx < horde) && h.Alive() && ShotHitsHorde(p, h) {
				horde = ref.Idx
			}
		case KindBoss:
			b := s.Bosses[ref.Idx]
			if (boss < 0 || ref.Idx < boss) && b.Alive() && ShotHitsBoss(p, b) {
				boss = ref.Idx
			}
		}
	}
	switch {
	case horde >= 0:
		s.Hordes[horde].TakeHit()
	case boss >= 0:
		s.Bosses[boss].TakeHit()
	default:
		return false
	}
	return true
}

// fire adds a shot at horizontal offset dx unless the shot cap is reached
func fire(s *GameState, dx int) {
	if len(s.Shots) >= MaxShots {
		return
	}
	s.Shots = append(s.Shots, NewShot(s.Soldier, dx))
}

// chestInteraction opens a touched chest and rolls respawns for a chest that
// is gone, either opened or fallen off the bottom.
func chestInteraction(s *GameState, r Rand, rules Rules) BonusType {
	c := s.Chest
	if c == nil {
		if rollPercent(r, rules.ChestRespawnPercent) {
			s.Chest = NewChest(r, s.ScreenWidth)
		}
		return BonusNone
	}

	awarded := BonusNone
	if c.Touches(s.Soldier) {
		c.IsDestroyed = true
		awarded = rollBonus(r)
		c.Bonus = awarded
		s.ActiveBonus = awarded
		s.BonusUntil = s.GameTime + BonusDuration
		s.setMessage(awarded.Message(), BonusMessageTime)
	}
	if c.IsDestroyed || c.Y > float64(s.ScreenHeight) {
		if rollPercent(r, rules.ChestRespawnPercent) {
			s.Chest = NewChest(r, s.ScreenWidth)
		}
	}
	return awarded
}

// checkGameOver ends the round when the first enemy, in list order, reaches
// the soldier's line. Hordes are checked before bosses.
func checkGameOver(s *GameState, res *StepResult) bool {
	for _, h := range s.Hordes {
		if h.Y >= s.Soldier.Y {
			endRound(s, res, MsgHordeReached)
			return true
		}
	}
	for _, b := range s.Bosses {
		if b.Y >= float64(s.Soldier.Y) {
			endRound(s, res, MsgBossReached)
			return true
		}
	}
	return false
}

func endRound(s *GameState, res *StepResult, msg string) {
	s.IsGameOver = true
	s.setMessage(msg, 0)
	res.GameOver = true
	res.Cause = msg
}

// applyBonuses expires timed effects and applies the active one
func applyBonuses(s *GameState) {
	if s.MessageUntil > 0 && s.GameTime >= s.MessageUntil {
		s.Message = ""
		s.MessageUntil = 0
	}
	if s.ActiveBonus != BonusNone && s.GameTime >= s.BonusUntil {
		s.ActiveBonus = BonusNone
		s.BonusUntil = 0
	}

	switch s.ActiveBonus {
	case BonusPowerSoldier:
		for i := -PowerSoldierFan; i <= PowerSoldierFan; i++ {
			fire(s, i*FanSpacing)
		}
	case BonusPowerfulWeapon:
		for _, p := range s.Shots {
			p.SpeedY = PowerShotSpeed
		}
	}
}

// clearTail nils out the unused tail of a filtered slice so removed shots
// can be collected.
func clearTail(shots []*Shot, from int) {
	for i := from; i < len(shots); i++ {
		shots[i] = nil
	}
}

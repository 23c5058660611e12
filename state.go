package main

import "time"

// Playfield and soldier geometry
const (
	ScreenWidth   = 300
	ScreenHeight  = 600
	SoldierStartX = 150
	SoldierStartY = 450
	SoldierWidth  = 50
	MoveStep      = 10
)

// Game over messages
const (
	MsgHordeReached = "Game Over! Hordes reached the soldier."
	MsgBossReached  = "Game Over! Boss reached the soldier."
)

// Soldier is the player-controlled unit at the bottom of the playfield
type Soldier struct {
	X, Y int
}

// GameState is the whole of one round. It is owned by a Match and only
// touched while the match lock is held.
type GameState struct {
	Soldier    Soldier
	Hordes     []*Horde
	Bosses     []*Boss
	Shots      []*Shot
	Chest      *Chest
	HordeKills int
	BossKills  int
	GameTime   time.Duration
	IsGameOver bool
	Message    string

	// MessageUntil is the game time at which Message is cleared; zero keeps it.
	MessageUntil time.Duration
	ActiveBonus  BonusType
	BonusUntil   time.Duration

	ScreenWidth  int
	ScreenHeight int

	nextID int
}

// NewGameState creates the opening state of a round
func NewGameState(r Rand) *GameState {
	s := &GameState{
		Soldier:      Soldier{X: SoldierStartX, Y: SoldierStartY},
		Hordes:       make([]*Horde, 0),
		Bosses:       make([]*Boss, 0),
		Shots:        make([]*Shot, 0),
		ScreenWidth:  ScreenWidth,
		ScreenHeight: ScreenHeight,
	}
	s.Chest = &Chest{X: r.Intn(ScreenWidth), Y: ChestStartY, SpeedY: ChestSpeed}
	return s
}

// TotalKills is the score a finished round submits to the ledger
func (s *GameState) TotalKills() int {
	return s.HordeKills + s.BossKills
}

// MoveSoldier shifts the soldier one step left or right, clamped to the playfield.
func (s *GameState) MoveSoldier(dir Direction) error {
	if s.IsGameOver {
		return ErrGameOver
	}
	switch dir {
	case DirLeft:
		s.Soldier.X -= MoveStep
	case DirRight:
		s.Soldier.X += MoveStep
	default:
		return ErrInvalidDirection
	}
	s.Soldier.X = Clamp(s.Soldier.X, 0, s.ScreenWidth-SoldierWidth)
	return nil
}

// setMessage shows msg for d of game time; d == 0 keeps it until replaced.
func (s *GameState) setMessage(msg string, d time.Duration) {
	s.Message = msg
	if d > 0 {
		s.MessageUntil = s.GameTime + d
	} else {
		s.MessageUntil = 0
	}
}

func (s *GameState) allocID() int {
	s.nextID++
	return s.nextID
}

// Clone returns a deep copy of the state
func (s *GameState) Clone() *GameState {
	out := *s
	out.Hordes = make([]*Horde, len(s.Hordes))
	for i, h := range s.Hordes {
		c := *h
		out.Hordes[i] = &c
	}
	out.Bosses = make([]*Boss, len(s.Bosses))
	for i, b := range s.Bosses {
		c := *b
		out.Bosses[i] = &c
	}
	out.Shots = make([]*Shot, len(s.Shots))
	for i, sh := range s.Shots {
		c := *sh
		out.Shots[i] = &c
	}
	if s.Chest != nil {
		c := *s.Chest
		out.Chest = &c
	}
	return &out
}

// ToState converts to the wire snapshot
func (s *GameState) ToState(matchID string) StateSnapshot {
	snap := StateSnapshot{
		MatchID:      matchID,
		Soldier:      SoldierState{X: s.Soldier.X, Y: s.Soldier.Y},
		Hordes:       make([]HordeState, 0, len(s.Hordes)),
		Bosses:       make([]BossState, 0, len(s.Bosses)),
		Shots:        make([]ShotState, 0, len(s.Shots)),
		HordeKills:   s.HordeKills,
		BossKills:    s.BossKills,
		TotalKills:   s.TotalKills(),
		GameTime:     FormatGameTime(s.GameTime),
		GameTimeMs:   s.GameTime.Milliseconds(),
		IsGameOver:   s.IsGameOver,
		Message:      s.Message,
		ScreenWidth:  s.ScreenWidth,
		ScreenHeight: s.ScreenHeight,
		ActiveBonus:  s.ActiveBonus,
	}
	for _, h := range s.Hordes {
		snap.Hordes = append(snap.Hordes, h.ToState())
	}
	for _, b := range s.Bosses {
		snap.Bosses = append(snap.Bosses, b.ToState())
	}
	for _, sh := range s.Shots {
		snap.Shots = append(snap.Shots, sh.ToState())
	}
	if s.Chest != nil {
		cs := s.Chest.ToState()
		snap.Chest = &cs
	}
	if s.ActiveBonus != BonusNone && s.BonusUntil > s.GameTime {
		snap.BonusRemainingMs = (s.BonusUntil - s.GameTime).Milliseconds()
	}
	return snap
}

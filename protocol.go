package main

import (
	"encoding/json"
	"strings"
)

// Client -> Server stream message types
const (
	MsgMove = "move"
	MsgStop = "stop"
)

// Server -> Client stream message types
const (
	MsgState = "state"
	MsgError = "error"
)

// Envelope wraps all outgoing stream messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; D is decoded once T is known
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// Direction is a soldier move command
type Direction string

const (
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

// ParseDirection normalizes a direction string; unknown values return ""
func ParseDirection(s string) Direction {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case DirLeft, DirRight:
		return d
	}
	return ""
}

// MoveRequest is the body of POST soldier/move and the stream move message
type MoveRequest struct {
	Direction string `json:"direction"`
}

// StartRequest is the optional body of POST start
type StartRequest struct {
	Private bool `json:"private"`
}

// HighscoreRequest is the body of POST highscore
type HighscoreRequest struct {
	PlayerName string `json:"playerName"`
	TotalKills int    `json:"totalKills"`
}

// SoldierState is the soldier position on the wire
type SoldierState struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// HordeState is sent per horde
type HordeState struct {
	ID        int `json:"id"`
	X         int `json:"x"`
	Y         int `json:"y"`
	SpeedY    int `json:"speedY"`
	HitPoints int `json:"hitPoints"`
}

// BossState is sent per boss
type BossState struct {
	ID        int     `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	SpeedY    float64 `json:"speedY"`
	HitPoints int     `json:"hitPoints"`
}

// ShotState is sent per shot
type ShotState struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	SpeedY int `json:"speedY"`
}

// ChestState is the chest on the wire
type ChestState struct {
	X           int       `json:"x"`
	Y           float64   `json:"y"`
	SpeedY      float64   `json:"speedY"`
	IsDestroyed bool      `json:"isDestroyed"`
	Bonus       BonusType `json:"bonus"`
}

// StateSnapshot is the full round state returned by the API and pushed on the stream
type StateSnapshot struct {
	MatchID          string       `json:"matchId"`
	Running          bool         `json:"running"`
	Soldier          SoldierState `json:"soldier"`
	Hordes           []HordeState `json:"hordes"`
	Bosses           []BossState  `json:"bosses"`
	Shots            []ShotState  `json:"shots"`
	Chest            *ChestState  `json:"chest,omitempty"`
	HordeKills       int          `json:"hordeKills"`
	BossKills        int          `json:"bossKills"`
	TotalKills       int          `json:"totalKills"`
	GameTime         string       `json:"gameTime"`
	GameTimeMs       int64        `json:"gameTimeMs"`
	IsGameOver       bool         `json:"isGameOver"`
	Message          string       `json:"message"`
	ScreenWidth      int          `json:"screenWidth"`
	ScreenHeight     int          `json:"screenHeight"`
	ActiveBonus      BonusType    `json:"activeBonus"`
	BonusRemainingMs int64        `json:"bonusRemainingMs"`
}

// StateResponse is GET state: the snapshot plus, once the round is over,
// whether its score would enter the top-10 list.
type StateResponse struct {
	StateSnapshot
	QualifiesForHighscore *bool `json:"qualifiesForHighscore,omitempty"`
}

// StartResponse is POST start: the fresh snapshot plus the match token
type StartResponse struct {
	StateSnapshot
	Token string `json:"token"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorMsg is the body of every error response
type ErrorMsg struct {
	Msg string `json:"error"`
}

// StatsResponse is GET stats
type StatsResponse struct {
	LiveMatches   int         `json:"liveMatches"`
	RoundsStarted int         `json:"roundsStarted"` // since startup
	StreamsOpened int         `json:"streamsOpened"` // since startup
	MatchesPlayed int         `json:"matchesPlayed"`
	TotalKills    int         `json:"totalKills"`
	BestMatch     *MatchRow   `json:"bestMatch,omitempty"`
	Highscores    []Highscore `json:"highscores"`
}

// Package match owns the authoritative state of a two-player duel: player
// slots, the phase state machine, combat resolution and the tick-driven engine
// that serializes every read and write of that state.
package match

import (
	"time"

	"github.com/vovakirdan/duel/internal/arena"
)

// PlayerNum identifies a slot. Only 1 and 2 are valid.
type PlayerNum int

const (
	Player1 PlayerNum = 1
	Player2 PlayerNum = 2
)

// Opponent returns the other player number.
func (p PlayerNum) Opponent() PlayerNum {
	if p == Player1 {
		return Player2
	}
	return Player1
}

// Valid reports whether p names one of the two slots.
func (p PlayerNum) Valid() bool {
	return p == Player1 || p == Player2
}

// MaxHealth is the health every slot starts and resets with.
const MaxHealth = 100

// Phase is the current stage of the match state machine.
type Phase int

const (
	PhaseWaitingForPlayers Phase = iota // fewer than two connections
	PhaseCharacterSelect                // both connected, nobody ready
	PhaseReadyCheck                     // at least one player ready
	PhaseInMatch                        // combat running, broadcasting every tick
	PhaseGameOver                       // death detected, result being sent
	PhaseResetting                      // slots are restored on the next tick
)

// String returns the wire name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseWaitingForPlayers:
		return "waiting_for_players"
	case PhaseCharacterSelect:
		return "character_select"
	case PhaseReadyCheck:
		return "ready_check"
	case PhaseInMatch:
		return "in_match"
	case PhaseGameOver:
		return "game_over"
	case PhaseResetting:
		return "resetting"
	default:
		return "unknown"
	}
}

// PlayerSlot is the server-side record for one player.
type PlayerSlot struct {
	Connected          bool
	Character          string // empty until the player selects one
	X, Y               float64
	Health             int
	IsDead             bool
	IsAttacking        bool
	IsSpecialAttacking bool
	FacingRight        bool
	Ready              bool

	lastBasic   time.Time
	lastSpecial time.Time
}

// newSlot returns a freshly connected slot at the player's spawn point.
func newSlot(num PlayerNum) *PlayerSlot {
	s := &PlayerSlot{Connected: true}
	s.respawn(num)
	return s
}

// respawn restores everything a match can change, except the character.
func (s *PlayerSlot) respawn(num PlayerNum) {
	s.X, s.Y, s.FacingRight = arena.Spawn(int(num))
	s.Health = MaxHealth
	s.IsDead = false
	s.IsAttacking = false
	s.IsSpecialAttacking = false
	s.Ready = false
	s.lastBasic = time.Time{}
	s.lastSpecial = time.Time{}
}

// Snapshot is a self-consistent copy of the match state.
// It is what sessions, observers and tests see; it never aliases engine state.
type Snapshot struct {
	Players    map[PlayerNum]PlayerSlot
	Platforms  []arena.Platform
	ReadyCount int
	Phase      Phase
	MatchID    string
}

// Player returns a copy of the slot for num and whether it exists.
func (s Snapshot) Player(num PlayerNum) (PlayerSlot, bool) {
	p, ok := s.Players[num]
	return p, ok
}

// Action is a validated-on-apply partial update sent by a player.
// Nil fields are left untouched.
type Action struct {
	X                  *float64
	Y                  *float64
	FacingRight        *bool
	IsAttacking        *bool
	IsSpecialAttacking *bool
	Attack             bool
	Damage             *float64
	AttackRange        *float64
}

// MatchRecord is the result handed to the persistence bridge when a match ends.
type MatchRecord struct {
	MatchID          string
	Winner           PlayerNum
	Loser            PlayerNum
	Player1Character string
	Player2Character string
	Duration         time.Duration
	EndedAt          time.Time
}

// Selection is the locked-in character pair saved when a match starts.
type Selection struct {
	MatchID          string
	Player1Character string
	Player2Character string
}

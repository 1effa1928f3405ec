// Package protocol defines the wire format spoken between duel clients and
// the server: typed envelopes, msgpack payloads and length-prefixed frames.
package protocol

import "github.com/vovakirdan/duel/internal/arena"

// Envelope kinds sent by clients.
const (
	KindCharacterSelect = "character_select"
	KindReady           = "ready"
	KindPlayerAction    = "player_action"
)

// Envelope kinds sent by the server.
const (
	KindConnectAck  = "connect_ack"
	KindRejected    = "rejected"
	KindMatchStart  = "match_start"
	KindStateUpdate = "state_update"
	KindGameOver    = "game_over"
)

// ReasonServerFull is the rejection reason for a third connection.
const ReasonServerFull = "server full"

// CharacterSelect picks a fighter. Later selections overwrite earlier ones.
type CharacterSelect struct {
	CharacterName string `msgpack:"character_name"`
}

// Ready signals the player is ready to fight. It has no fields.
type Ready struct{}

// PlayerAction is a partial update of the sender's slot. Absent fields are
// left untouched by the server.
type PlayerAction struct {
	X                  *float64 `msgpack:"x,omitempty"`
	Y                  *float64 `msgpack:"y,omitempty"`
	FacingRight        *bool    `msgpack:"facing_right,omitempty"`
	IsAttacking        *bool    `msgpack:"is_attacking,omitempty"`
	IsSpecialAttacking *bool    `msgpack:"is_special_attacking,omitempty"`
	Attack             *bool    `msgpack:"attack,omitempty"`
	Damage             *float64 `msgpack:"damage,omitempty"`
	AttackRange        *float64 `msgpack:"attack_range,omitempty"`
}

// ConnectAck tells a client which slot it occupies.
type ConnectAck struct {
	PlayerNum int `msgpack:"player_num"`
}

// Rejected is sent right before the server closes a refused connection.
type Rejected struct {
	Reason string `msgpack:"reason"`
}

// MatchStart is sent to both players when the ready check passes.
type MatchStart struct {
	State State `msgpack:"state"`
}

// StateUpdate is the full state, sent every tick while a match runs.
type StateUpdate struct {
	State State `msgpack:"state"`
}

// GameOver announces the winner with the state at the moment of death.
type GameOver struct {
	Winner int   `msgpack:"winner"`
	State  State `msgpack:"state"`
}

// State is the full serialized match state. It is never a delta.
type State struct {
	Players    map[int]PlayerState `msgpack:"players"`
	Platforms  []arena.Platform    `msgpack:"platforms"`
	ReadyCount int                 `msgpack:"ready_count"`
	Phase      string              `msgpack:"phase"`
}

// PlayerState is one slot as clients see it. Character is empty until chosen.
type PlayerState struct {
	Connected          bool    `msgpack:"connected"`
	Character          string  `msgpack:"character"`
	X                  float64 `msgpack:"x"`
	Y                  float64 `msgpack:"y"`
	Health             int     `msgpack:"health"`
	IsDead             bool    `msgpack:"is_dead"`
	IsAttacking        bool    `msgpack:"is_attacking"`
	IsSpecialAttacking bool    `msgpack:"is_special_attacking"`
	FacingRight        bool    `msgpack:"facing_right"`
	Ready              bool    `msgpack:"ready"`
}


package match

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/duel/internal/arena"
)

// ErrServerFull is returned by Join when both slots are connected.
var ErrServerFull = errors.New("match: server full")

// TickResult is everything a single tick asks the engine to do.
type TickResult struct {
	// Broadcast goes to both sessions. Nil when the phase sends nothing.
	Broadcast SessionEvent

	// Selection is set on the tick a match starts.
	Selection *Selection

	// Result is set on the tick a match ends with a winner.
	Result *MatchRecord
}

// State is the single mutable match state. It is not safe for concurrent use;
// the Engine serializes all access to it.
type State struct {
	players    map[PlayerNum]*PlayerSlot
	layout     arena.Layout
	readyCount int
	phase      Phase
	authority  Authority

	matchID   string
	startedAt time.Time
	newID     func() string
}

// NewState creates an empty state over layout.
func NewState(layout arena.Layout, authority Authority) *State {
	if authority == "" {
		authority = AuthorityClient
	}
	return &State{
		players:   make(map[PlayerNum]*PlayerSlot, 2),
		layout:    layout,
		phase:     PhaseWaitingForPlayers,
		authority: authority,
		newID:     uuid.NewString,
	}
}

// Phase returns the current phase.
func (s *State) Phase() Phase {
	return s.phase
}

// ReadyCount returns how many connected players are ready.
func (s *State) ReadyCount() int {
	return s.readyCount
}

// Snapshot returns a deep copy of the state.
func (s *State) Snapshot() Snapshot {
	players := make(map[PlayerNum]PlayerSlot, len(s.players))
	for num, slot := range s.players {
		players[num] = *slot
	}
	return Snapshot{
		Players:    players,
		Platforms:  s.layout.Platforms(),
		ReadyCount: s.readyCount,
		Phase:      s.phase,
		MatchID:    s.matchID,
	}
}

// Connected returns the number of connected slots.
func (s *State) Connected() int {
	n := 0
	for _, slot := range s.players {
		if slot.Connected {
			n++
		}
	}
	return n
}

// Join registers a new connection in the lowest free slot.
func (s *State) Join() (PlayerNum, error) {
	if s.Connected() >= 2 {
		return 0, ErrServerFull
	}

	num := Player1
	if slot, ok := s.players[Player1]; ok && slot.Connected {
		num = Player2
	}
	s.players[num] = newSlot(num)

	if s.Connected() == 2 && s.phase == PhaseWaitingForPlayers {
		s.phase = PhaseCharacterSelect
	}
	s.recountReady()
	return num, nil
}

// Leave marks the slot disconnected. It reports whether a running match was
// aborted. Leaving twice is a no-op.
func (s *State) Leave(num PlayerNum) (aborted bool) {
	slot, ok := s.players[num]
	if !ok || !slot.Connected {
		return false
	}
	slot.Connected = false
	slot.Ready = false
	s.recountReady()

	switch s.phase {
	case PhaseInMatch, PhaseGameOver:
		s.phase = PhaseResetting
		s.readyCount = 0
		return true
	case PhaseCharacterSelect, PhaseReadyCheck:
		s.phase = PhaseWaitingForPlayers
	}
	return false
}

// SelectCharacter sets the slot's character. Later calls overwrite earlier
// ones. Selection is only possible before the match starts.
func (s *State) SelectCharacter(num PlayerNum, name string) bool {
	slot := s.connectedSlot(num)
	if slot == nil {
		return false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	switch s.phase {
	case PhaseWaitingForPlayers, PhaseCharacterSelect, PhaseReadyCheck:
	default:
		return false
	}
	if c, ok := LookupCharacter(name); ok {
		name = c.Name
	}
	slot.Character = name
	return true
}

// Ready marks the player ready. Repeats and readiness after the match started
// have no effect.
func (s *State) Ready(num PlayerNum) bool {
	slot := s.connectedSlot(num)
	if slot == nil || slot.Ready {
		return false
	}
	switch s.phase {
	case PhaseWaitingForPlayers:
	case PhaseCharacterSelect:
		s.phase = PhaseReadyCheck
	case PhaseReadyCheck:
	default:
		return false
	}
	slot.Ready = true
	s.recountReady()
	return true
}

// Apply applies a player action. Only present fields are written; positions are
// clamped to the arena and non-finite values dropped. Attacks are resolved
// against the opponent. Actions outside PhaseInMatch are ignored.
func (s *State) Apply(num PlayerNum, act Action, now time.Time) (Outcome, bool) {
	slot := s.connectedSlot(num)
	if slot == nil || s.phase != PhaseInMatch || slot.IsDead {
		return Outcome{}, false
	}

	if act.X != nil && finite(*act.X) {
		slot.X = arena.ClampX(*act.X)
	}
	if act.Y != nil && finite(*act.Y) {
		slot.Y = arena.ClampY(*act.Y)
	}
	if act.FacingRight != nil {
		slot.FacingRight = *act.FacingRight
	}
	if act.IsAttacking != nil {
		slot.IsAttacking = *act.IsAttacking
	}
	if act.IsSpecialAttacking != nil {
		slot.IsSpecialAttacking = *act.IsSpecialAttacking
	}

	if !act.Attack {
		return Outcome{}, true
	}
	target, ok := s.players[num.Opponent()]
	if !ok {
		return Outcome{}, true
	}

	atk := Attack{Damage: act.Damage, Range: act.AttackRange}
	if s.authority == AuthorityServer {
		var ready bool
		atk, ready = serverAttack(slot, target, act, now)
		if !ready {
			return Outcome{}, true
		}
	}
	return ResolveAttack(slot, target, atk), true
}

// Tick advances the state machine by one step.
func (s *State) Tick(now time.Time) TickResult {
	switch s.phase {
	case PhaseCharacterSelect, PhaseReadyCheck:
		if s.readyCount < 2 || s.Connected() < 2 {
			return TickResult{}
		}
		s.phase = PhaseInMatch
		s.matchID = s.newID()
		s.startedAt = now

		p1, p2 := s.characters()
		return TickResult{
			Broadcast: MatchStartEvent{State: s.Snapshot()},
			Selection: &Selection{MatchID: s.matchID, Player1Character: p1, Player2Character: p2},
		}

	case PhaseInMatch:
		winner := s.winner()
		if winner == 0 {
			return TickResult{Broadcast: StateUpdateEvent{State: s.Snapshot()}}
		}

		s.phase = PhaseGameOver
		p1, p2 := s.characters()
		res := TickResult{
			Broadcast: GameOverEvent{Winner: winner, State: s.Snapshot()},
			Result: &MatchRecord{
				MatchID:          s.matchID,
				Winner:           winner,
				Loser:            winner.Opponent(),
				Player1Character: p1,
				Player2Character: p2,
				Duration:         now.Sub(s.startedAt),
				EndedAt:          now,
			},
		}
		s.phase = PhaseResetting
		s.reset()
		return res

	case PhaseResetting:
		s.reset()
	}
	return TickResult{}
}

// winner returns the surviving player, or 0 while both are alive.
// A double KO goes to player 1.
func (s *State) winner() PlayerNum {
	dead := func(num PlayerNum) bool {
		slot, ok := s.players[num]
		return ok && slot.IsDead
	}
	switch {
	case dead(Player2):
		return Player1
	case dead(Player1):
		return Player2
	}
	return 0
}

// reset restores both slots to spawn, keeping characters, and reopens the lobby.
func (s *State) reset() {
	for num, slot := range s.players {
		slot.respawn(num)
	}
	s.readyCount = 0
	s.matchID = ""
	s.startedAt = time.Time{}

	if s.Connected() == 2 {
		s.phase = PhaseCharacterSelect
	} else {
		s.phase = PhaseWaitingForPlayers
	}
}

func (s *State) characters() (p1, p2 string) {
	if slot, ok := s.players[Player1]; ok {
		p1 = slot.Character
	}
	if slot, ok := s.players[Player2]; ok {
		p2 = slot.Character
	}
	return p1, p2
}

func (s *State) connectedSlot(num PlayerNum) *PlayerSlot {
	slot, ok := s.players[num]
	if !ok || !slot.Connected {
		return nil
	}
	return slot
}

func (s *State) recountReady() {
	n := 0
	for _, slot := range s.players {
		if slot.Connected && slot.Ready {
			n++
		}
	}
	s.readyCount = n
}

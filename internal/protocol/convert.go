package protocol

import (
	"fmt"

	"github.com/vovakirdan/duel/internal/match"
)

// FromSnapshot converts an engine snapshot to its wire form.
func FromSnapshot(snap match.Snapshot) State {
	players := make(map[int]PlayerState, len(snap.Players))
	for num, p := range snap.Players {
		players[int(num)] = PlayerState{
			Connected:          p.Connected,
			Character:          p.Character,
			X:                  p.X,
			Y:                  p.Y,
			Health:             p.Health,
			IsDead:             p.IsDead,
			IsAttacking:        p.IsAttacking,
			IsSpecialAttacking: p.IsSpecialAttacking,
			FacingRight:        p.FacingRight,
			Ready:              p.Ready,
		}
	}
	return State{
		Players:    players,
		Platforms:  snap.Platforms,
		ReadyCount: snap.ReadyCount,
		Phase:      snap.Phase.String(),
	}
}

// ToAction converts a decoded player_action into an engine action.
func (a PlayerAction) ToAction() match.Action {
	return match.Action{
		X:                  a.X,
		Y:                  a.Y,
		FacingRight:        a.FacingRight,
		IsAttacking:        a.IsAttacking,
		IsSpecialAttacking: a.IsSpecialAttacking,
		Attack:             a.Attack != nil && *a.Attack,
		Damage:             a.Damage,
		AttackRange:        a.AttackRange,
	}
}

// EncodeEvent serializes an engine event as a server→client envelope.
func EncodeEvent(evt match.SessionEvent) ([]byte, error) {
	switch e := evt.(type) {
	case match.ConnectAckEvent:
		return Encode(KindConnectAck, ConnectAck{PlayerNum: int(e.Player)})
	case match.MatchStartEvent:
		return Encode(KindMatchStart, MatchStart{State: FromSnapshot(e.State)})
	case match.StateUpdateEvent:
		return Encode(KindStateUpdate, StateUpdate{State: FromSnapshot(e.State)})
	case match.GameOverEvent:
		return Encode(KindGameOver, GameOver{Winner: int(e.Winner), State: FromSnapshot(e.State)})
	default:
		return nil, fmt.Errorf("protocol: no envelope for event %T", evt)
	}
}

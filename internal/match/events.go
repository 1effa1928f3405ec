package match

// SessionEvent is an event the engine delivers to a connected player.
type SessionEvent interface {
	sessionEvent()
}

// ConnectAckEvent is the first event a session receives after joining.
type ConnectAckEvent struct {
	Player PlayerNum
}

func (ConnectAckEvent) sessionEvent() {}

// MatchStartEvent is sent to both players when the ready check passes.
type MatchStartEvent struct {
	State Snapshot
}

func (MatchStartEvent) sessionEvent() {}

// StateUpdateEvent carries the full state on every in-match tick.
type StateUpdateEvent struct {
	State Snapshot
}

func (StateUpdateEvent) sessionEvent() {}

// GameOverEvent is sent once when a death is detected.
// State is the state at the moment of death, before the reset.
type GameOverEvent struct {
	Winner PlayerNum
	State  Snapshot
}

func (GameOverEvent) sessionEvent() {}

// Session is the transport-neutral handle the engine sends events through.
// Send must not block; implementations buffer and drop when full.
type Session interface {
	Send(evt SessionEvent)
}

// Observer receives a snapshot after every tick, in any phase.
// Observe must not block the engine.
type Observer interface {
	Observe(snap Snapshot)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Snapshot)

// Observe calls f(snap).
func (f ObserverFunc) Observe(snap Snapshot) { f(snap) }

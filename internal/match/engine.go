package match

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/duel/internal/arena"
)

// ErrEngineStopped is returned by requests made after Run has returned.
var ErrEngineStopped = errors.New("match: engine stopped")

// EngineConfig holds configuration for the engine.
type EngineConfig struct {
	TickInterval time.Duration // Match loop period
	Authority    Authority     // Who computes attack damage
	PersistQueue int           // Pending persistence jobs before dropping
}

// DefaultEngineConfig returns the standard 50 ms, client-authoritative setup.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TickInterval: 50 * time.Millisecond,
		Authority:    AuthorityClient,
		PersistQueue: 16,
	}
}

// Engine is the single owner of the match state. Connection readers submit
// requests; the engine goroutine applies them between ticks, so a broadcast
// never observes a half-applied update.
type Engine struct {
	config    EngineConfig
	state     *State
	sessions  map[PlayerNum]Session
	observers []Observer
	persist   *persister
	logger    *log.Logger
	clock     func() time.Time

	msgChan chan engineMessage
	done    chan struct{}
}

// NewEngine creates an engine over layout. rec may be nil.
func NewEngine(cfg EngineConfig, layout arena.Layout, rec Recorder, logger *log.Logger) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultEngineConfig().TickInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		config:   cfg,
		state:    NewState(layout, cfg.Authority),
		sessions: make(map[PlayerNum]Session, 2),
		persist:  newPersister(rec, cfg.PersistQueue, logger),
		logger:   logger,
		clock:    time.Now,
		msgChan:  make(chan engineMessage, 256),
		done:     make(chan struct{}),
	}
}

// AddObserver registers an observer. Must be called before Run.
func (e *Engine) AddObserver(o Observer) {
	e.observers = append(e.observers, o)
}

// Run drives the match loop until ctx is cancelled. Queued persistence jobs
// are flushed before it returns.
func (e *Engine) Run(ctx context.Context) error {
	e.persist.start()
	defer func() {
		close(e.done)
		e.persist.stop()
	}()

	ticker := time.NewTicker(e.config.TickInterval)
	defer ticker.Stop()

	e.logger.Info("match loop started", "tick", e.config.TickInterval, "authority", e.config.Authority)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("match loop stopped")
			return nil
		case msg := <-e.msgChan:
			e.handleMessage(msg)
		case <-ticker.C:
			e.tick()
		}
	}
}

// Join registers a session. The session receives ConnectAckEvent before any
// other event. Returns ErrServerFull when both slots are taken.
func (e *Engine) Join(ctx context.Context, session Session) (PlayerNum, error) {
	reply := make(chan joinReply, 1)
	if err := e.submit(ctx, joinMsg{session: session, reply: reply}); err != nil {
		return 0, err
	}
	select {
	case r := <-reply:
		return r.player, r.err
	case <-e.done:
		return 0, ErrEngineStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Leave disconnects a player and waits until the engine has processed it.
func (e *Engine) Leave(ctx context.Context, player PlayerNum) error {
	reply := make(chan struct{}, 1)
	if err := e.submit(ctx, leaveMsg{player: player, reply: reply}); err != nil {
		return err
	}
	select {
	case <-reply:
		return nil
	case <-e.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SelectCharacter queues a character selection.
func (e *Engine) SelectCharacter(ctx context.Context, player PlayerNum, name string) error {
	return e.submit(ctx, selectMsg{player: player, name: name})
}

// Ready queues a ready-up.
func (e *Engine) Ready(ctx context.Context, player PlayerNum) error {
	return e.submit(ctx, readyMsg{player: player})
}

// Act queues a player action.
func (e *Engine) Act(ctx context.Context, player PlayerNum, action Action) error {
	return e.submit(ctx, actionMsg{player: player, action: action})
}

// Snapshot returns the current state as seen by the engine goroutine.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := e.submit(ctx, snapshotMsg{reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-e.done:
		return Snapshot{}, ErrEngineStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (e *Engine) submit(ctx context.Context, msg engineMessage) error {
	// msgChan is buffered, so a stopped engine must be checked first.
	select {
	case <-e.done:
		return ErrEngineStopped
	default:
	}

	select {
	case e.msgChan <- msg:
		return nil
	case <-e.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) handleMessage(msg engineMessage) {
	switch m := msg.(type) {
	case joinMsg:
		e.handleJoin(m)
	case leaveMsg:
		e.handleLeave(m)
	case selectMsg:
		if e.state.SelectCharacter(m.player, m.name) {
			e.logger.Info("character selected", "player", m.player, "character", m.name)
		} else {
			e.logger.Debug("character selection ignored", "player", m.player, "phase", e.state.Phase())
		}
	case readyMsg:
		if e.state.Ready(m.player) {
			e.logger.Info("player ready", "player", m.player, "ready", e.state.ReadyCount())
		}
	case actionMsg:
		e.handleAction(m)
	case snapshotMsg:
		m.reply <- e.state.Snapshot()
	}
}

func (e *Engine) handleJoin(msg joinMsg) {
	num, err := e.state.Join()
	if err != nil {
		e.logger.Info("rejected connection", "reason", err)
		msg.reply <- joinReply{err: err}
		return
	}

	e.sessions[num] = msg.session
	msg.session.Send(ConnectAckEvent{Player: num})
	e.logger.Info("player connected", "player", num, "phase", e.state.Phase())
	msg.reply <- joinReply{player: num}
}

func (e *Engine) handleLeave(msg leaveMsg) {
	defer close(msg.reply)

	if _, ok := e.sessions[msg.player]; !ok {
		return
	}
	delete(e.sessions, msg.player)

	if e.state.Leave(msg.player) {
		e.logger.Warn("match aborted by disconnect", "player", msg.player)
	}
	e.logger.Info("player disconnected", "player", msg.player, "phase", e.state.Phase())
}

func (e *Engine) handleAction(msg actionMsg) {
	out, applied := e.state.Apply(msg.player, msg.action, e.clock())
	if !applied {
		return
	}
	if out.Hit {
		target := e.state.players[msg.player.Opponent()]
		e.logger.Info("hit",
			"attacker", msg.player,
			"target", msg.player.Opponent(),
			"damage", out.Damage,
			"health", target.Health,
		)
		if out.Killed {
			e.logger.Info("player defeated", "player", msg.player.Opponent())
		}
	}
}

func (e *Engine) tick() {
	res := e.state.Tick(e.clock())

	if res.Selection != nil {
		e.logger.Info("match started",
			"match", res.Selection.MatchID,
			"p1", res.Selection.Player1Character,
			"p2", res.Selection.Player2Character,
		)
		e.persist.saveSelection(*res.Selection)
	}
	if res.Result != nil {
		e.logger.Info("game over", "match", res.Result.MatchID, "winner", res.Result.Winner)
		e.persist.recordMatch(*res.Result)
	}
	if res.Broadcast != nil {
		e.broadcast(res.Broadcast)
	}

	if len(e.observers) > 0 {
		snap := e.state.Snapshot()
		for _, o := range e.observers {
			o.Observe(snap)
		}
	}
}

func (e *Engine) broadcast(evt SessionEvent) {
	for _, num := range []PlayerNum{Player1, Player2} {
		if s, ok := e.sessions[num]; ok {
			s.Send(evt)
		}
	}
}

type engineMessage interface {
	engineMessage()
}

type joinReply struct {
	player PlayerNum
	err    error
}

type joinMsg struct {
	session Session
	reply   chan joinReply
}

type leaveMsg struct {
	player PlayerNum
	reply  chan struct{}
}

type selectMsg struct {
	player PlayerNum
	name   string
}

type readyMsg struct {
	player PlayerNum
}

type actionMsg struct {
	player PlayerNum
	action Action
}

type snapshotMsg struct {
	reply chan Snapshot
}

func (joinMsg) engineMessage()     {}
func (leaveMsg) engineMessage()    {}
func (selectMsg) engineMessage()   {}
func (readyMsg) engineMessage()    {}
func (actionMsg) engineMessage()   {}
func (snapshotMsg) engineMessage() {}

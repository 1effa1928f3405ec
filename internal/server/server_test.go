package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/duel/internal/arena"
	"github.com/vovakirdan/duel/internal/match"
	"github.com/vovakirdan/duel/internal/protocol"
)

func f64(v float64) *float64 { return &v }
func boolp(b bool) *bool     { return &b }

// startServer runs an engine and a server on a loopback port and returns the
// address to dial.
func startServer(t *testing.T) (string, *match.Engine) {
	t.Helper()
	logger := log.New(io.Discard)

	engCfg := match.DefaultEngineConfig()
	engCfg.TickInterval = 5 * time.Millisecond
	engine := match.NewEngine(engCfg, arena.DefaultLayout(), nil, logger)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}

	cfg := DefaultConfig()
	cfg.SendBuffer = 1024
	srv := New(cfg, engine, logger)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = engine.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := srv.Serve(ctx, ln); err != nil {
			t.Errorf("Serve() = %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
	return ln.Addr().String(), engine
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	fr   *protocol.FrameReader
}

func dial(t *testing.T, addr string) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn, fr: protocol.NewFrameReader(conn, 0)}
}

func (c *testClient) send(kind string, payload any) {
	c.t.Helper()
	if err := protocol.WriteMessage(c.conn, kind, payload); err != nil {
		c.t.Fatalf("WriteMessage(%s) failed: %v", kind, err)
	}
}

func (c *testClient) next() any {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	frame, err := c.fr.ReadFrame()
	if err != nil {
		c.t.Fatalf("ReadFrame() failed: %v", err)
	}
	msg, err := protocol.DecodeServer(frame)
	if err != nil {
		c.t.Fatalf("DecodeServer() failed: %v", err)
	}
	return msg
}

// await reads until a message of type T arrives, skipping everything else.
func await[T any](c *testClient) T {
	c.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msg, ok := c.next().(T); ok {
			return msg
		}
	}
	var zero T
	c.t.Fatalf("timed out waiting for %T", zero)
	return zero
}

func connectBoth(t *testing.T, addr string) (*testClient, *testClient) {
	t.Helper()
	c1 := dial(t, addr)
	if ack := await[protocol.ConnectAck](c1); ack.PlayerNum != 1 {
		t.Fatalf("first ConnectAck = %d, expected 1", ack.PlayerNum)
	}
	c2 := dial(t, addr)
	if ack := await[protocol.ConnectAck](c2); ack.PlayerNum != 2 {
		t.Fatalf("second ConnectAck = %d, expected 2", ack.PlayerNum)
	}
	return c1, c2
}

func startMatch(t *testing.T, c1, c2 *testClient) {
	t.Helper()
	c1.send(protocol.KindCharacterSelect, protocol.CharacterSelect{CharacterName: "Lucario"})
	c2.send(protocol.KindCharacterSelect, protocol.CharacterSelect{CharacterName: "Mewtwo"})
	c1.send(protocol.KindReady, protocol.Ready{})
	c2.send(protocol.KindReady, protocol.Ready{})

	start := await[protocol.MatchStart](c1)
	if start.State.Phase != "in_match" {
		t.Fatalf("MatchStart phase = %q, expected in_match", start.State.Phase)
	}
	if start.State.Players[1].Character != "Lucario" || start.State.Players[2].Character != "Mewtwo" {
		t.Fatalf("MatchStart characters = %q/%q", start.State.Players[1].Character, start.State.Players[2].Character)
	}
	await[protocol.MatchStart](c2)
}

// waitFor polls the engine until cond holds for a snapshot.
func waitFor(t *testing.T, e *match.Engine, what string, cond func(match.Snapshot) bool) match.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := e.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("Snapshot() failed: %v", err)
		}
		if cond(snap) {
			return snap
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
	return match.Snapshot{}
}

func TestThirdConnectionRejected(t *testing.T) {
	addr, engine := startServer(t)
	connectBoth(t, addr)

	c3 := dial(t, addr)
	rej, ok := c3.next().(protocol.Rejected)
	if !ok {
		t.Fatal("third connection did not receive Rejected first")
	}
	if rej.Reason != protocol.ReasonServerFull {
		t.Errorf("Reason = %q, expected %q", rej.Reason, protocol.ReasonServerFull)
	}

	// The server closes the socket after rejecting.
	_ = c3.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := c3.fr.ReadFrame(); !errors.Is(err, io.EOF) {
		t.Errorf("read after Rejected = %v, expected io.EOF", err)
	}

	snap, err := engine.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() failed: %v", err)
	}
	if len(snap.Players) != 2 {
		t.Errorf("len(Players) = %d, expected 2", len(snap.Players))
	}
}

func TestMatchOverNetwork(t *testing.T) {
	addr, engine := startServer(t)
	c1, c2 := connectBoth(t, addr)
	startMatch(t, c1, c2)

	// Player 1 at 300 facing right, player 2 at 450 facing left.
	c2.send(protocol.KindPlayerAction, protocol.PlayerAction{X: f64(450), FacingRight: boolp(false)})
	c1.send(protocol.KindPlayerAction, protocol.PlayerAction{X: f64(300), FacingRight: boolp(true)})
	waitFor(t, engine, "positions", func(snap match.Snapshot) bool {
		p1, _ := snap.Player(match.Player1)
		p2, _ := snap.Player(match.Player2)
		return p1.FacingRight && p2.X == 450
	})

	for i := 0; i < 10; i++ {
		c1.send(protocol.KindPlayerAction, protocol.PlayerAction{
			Attack:      boolp(true),
			Damage:      f64(10),
			AttackRange: f64(200),
		})
	}

	over := await[protocol.GameOver](c2)
	if over.Winner != 1 {
		t.Errorf("Winner = %d, expected 1", over.Winner)
	}
	p2 := over.State.Players[2]
	if p2.Health != 0 || !p2.IsDead {
		t.Errorf("player 2 health, dead = %d, %v, expected 0, true", p2.Health, p2.IsDead)
	}
	if await[protocol.GameOver](c1).Winner != 1 {
		t.Error("player 1 saw a different winner")
	}
}

func TestMalformedMessageIgnored(t *testing.T) {
	addr, engine := startServer(t)
	c1 := dial(t, addr)
	await[protocol.ConnectAck](c1)

	if err := protocol.WriteFrame(c1.conn, []byte{0xC1, 0xC1}); err != nil {
		t.Fatalf("WriteFrame() failed: %v", err)
	}
	c1.send("teleport", protocol.Ready{})
	c1.send(protocol.KindCharacterSelect, protocol.CharacterSelect{CharacterName: "Zeraora"})

	snap := waitFor(t, engine, "selection", func(snap match.Snapshot) bool {
		p1, _ := snap.Player(match.Player1)
		return p1.Character == "Zeraora"
	})
	if p1, _ := snap.Player(match.Player1); !p1.Connected {
		t.Error("player 1 disconnected by malformed message")
	}
}

func TestDisconnectMidMatchAborts(t *testing.T) {
	addr, engine := startServer(t)
	c1, c2 := connectBoth(t, addr)
	startMatch(t, c1, c2)

	c1.conn.Close()

	snap := waitFor(t, engine, "abort", func(snap match.Snapshot) bool {
		return snap.Phase == match.PhaseWaitingForPlayers
	})
	if snap.ReadyCount != 0 {
		t.Errorf("ReadyCount = %d, expected 0", snap.ReadyCount)
	}
	if p1, _ := snap.Player(match.Player1); p1.Connected {
		t.Error("player 1 still connected")
	}
	if p2, _ := snap.Player(match.Player2); p2.Character != "Mewtwo" || p2.Health != match.MaxHealth {
		t.Errorf("player 2 = %#v, expected Mewtwo at full health", p2)
	}

	// The survivor never sees a game over; only state updates, until it
	// stops receiving them.
	_ = c2.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	for {
		frame, err := c2.fr.ReadFrame()
		if err != nil {
			break
		}
		msg, err := protocol.DecodeServer(frame)
		if err != nil {
			t.Fatalf("DecodeServer() failed: %v", err)
		}
		if _, ok := msg.(protocol.GameOver); ok {
			t.Fatal("GameOver sent for an aborted match")
		}
	}

	// The freed slot can be taken again.
	c3 := dial(t, addr)
	if ack := await[protocol.ConnectAck](c3); ack.PlayerNum != 1 {
		t.Errorf("reconnect ConnectAck = %d, expected 1", ack.PlayerNum)
	}
}

func TestListenAndServeBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}
	defer ln.Close()

	cfg := DefaultConfig()
	cfg.Address = ln.Addr().String()
	srv := New(cfg, nil, log.New(io.Discard))
	if err := srv.ListenAndServe(context.Background()); err == nil {
		t.Error("ListenAndServe() on a bound port succeeded")
	}
}

func TestNextBackoff(t *testing.T) {
	d := time.Duration(0)
	for i := 0; i < 20; i++ {
		d = nextBackoff(d)
	}
	if d != time.Second {
		t.Errorf("backoff = %v, expected cap of 1s", d)
	}
}

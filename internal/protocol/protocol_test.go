package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/vovakirdan/duel/internal/arena"
	"github.com/vovakirdan/duel/internal/match"
)

func f64(v float64) *float64 { return &v }
func boolp(b bool) *bool     { return &b }

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	frames := [][]byte{[]byte("a"), {}, bytes.Repeat([]byte{0xAB}, 5000)}
	for _, f := range frames {
		if err := WriteFrame(&buf, f); err != nil {
			t.Fatalf("WriteFrame() failed: %v", err)
		}
	}

	fr := NewFrameReader(&buf, 0)
	for i, want := range frames {
		got, err := fr.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() #%d failed: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("ReadFrame() #%d = %d bytes, expected %d", i, len(got), len(want))
		}
	}
	if _, err := fr.ReadFrame(); !errors.Is(err, io.EOF) {
		t.Errorf("ReadFrame() at end = %v, expected io.EOF", err)
	}
}

func TestFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, make([]byte, 100)); err != nil {
		t.Fatalf("WriteFrame() failed: %v", err)
	}
	fr := NewFrameReader(&buf, 64)
	if _, err := fr.ReadFrame(); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("ReadFrame() = %v, expected ErrFrameTooLarge", err)
	}
}

func TestFrameTruncated(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte("hello")); err != nil {
		t.Fatalf("WriteFrame() failed: %v", err)
	}
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-2])
	fr := NewFrameReader(truncated, 0)
	if _, err := fr.ReadFrame(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadFrame() = %v, expected io.ErrUnexpectedEOF", err)
	}
}

func TestDecodeClient(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		payload any
		check   func(t *testing.T, msg any)
	}{
		{
			name:    "character select",
			kind:    KindCharacterSelect,
			payload: CharacterSelect{CharacterName: "Lucario"},
			check: func(t *testing.T, msg any) {
				cs, ok := msg.(CharacterSelect)
				if !ok || cs.CharacterName != "Lucario" {
					t.Errorf("DecodeClient() = %#v, expected Lucario selection", msg)
				}
			},
		},
		{
			name:    "ready",
			kind:    KindReady,
			payload: Ready{},
			check: func(t *testing.T, msg any) {
				if _, ok := msg.(Ready); !ok {
					t.Errorf("DecodeClient() = %#v, expected Ready", msg)
				}
			},
		},
		{
			name:    "partial action",
			kind:    KindPlayerAction,
			payload: PlayerAction{X: f64(420), Attack: boolp(true)},
			check: func(t *testing.T, msg any) {
				pa, ok := msg.(PlayerAction)
				if !ok {
					t.Fatalf("DecodeClient() = %#v, expected PlayerAction", msg)
				}
				if pa.X == nil || *pa.X != 420 {
					t.Errorf("X = %v, expected 420", pa.X)
				}
				if pa.Y != nil || pa.FacingRight != nil || pa.Damage != nil || pa.AttackRange != nil {
					t.Errorf("absent fields decoded as present: %#v", pa)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Encode(tt.kind, tt.payload)
			if err != nil {
				t.Fatalf("Encode() failed: %v", err)
			}
			msg, err := DecodeClient(b)
			if err != nil {
				t.Fatalf("DecodeClient() failed: %v", err)
			}
			tt.check(t, msg)
		})
	}
}

func TestDecodeClientErrors(t *testing.T) {
	unknown, err := Encode("teleport", Ready{})
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	if _, err := DecodeClient(unknown); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("DecodeClient(unknown) = %v, expected ErrUnknownKind", err)
	}

	// A server kind is not valid from a client.
	ack, _ := Encode(KindConnectAck, ConnectAck{PlayerNum: 1})
	if _, err := DecodeClient(ack); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("DecodeClient(connect_ack) = %v, expected ErrUnknownKind", err)
	}

	if _, err := DecodeClient([]byte{0xC1, 0x00}); err == nil {
		t.Error("DecodeClient(garbage) succeeded, expected error")
	}
	if _, err := DecodeClient(nil); err == nil {
		t.Error("DecodeClient(nil) succeeded, expected error")
	}
}

func TestEncodeRejectsBadInput(t *testing.T) {
	if _, err := Encode("", Ready{}); err == nil {
		t.Error("Encode with empty kind succeeded")
	}
	if _, err := Encode(KindReady, nil); err == nil {
		t.Error("Encode with nil payload succeeded")
	}
}

func testSnapshot() match.Snapshot {
	return match.Snapshot{
		Players: map[match.PlayerNum]match.PlayerSlot{
			match.Player1: {Connected: true, Character: "Lucario", X: 300, Y: 580, Health: 90, FacingRight: true},
			match.Player2: {Connected: false, Character: "Mewtwo", X: 700, Y: 580, Health: 0, IsDead: true},
		},
		Platforms:  arena.DefaultLayout().Platforms(),
		ReadyCount: 1,
		Phase:      match.PhaseInMatch,
	}
}

func TestEncodeEventCarriesFullState(t *testing.T) {
	b, err := EncodeEvent(match.GameOverEvent{Winner: match.Player1, State: testSnapshot()})
	if err != nil {
		t.Fatalf("EncodeEvent() failed: %v", err)
	}
	msg, err := DecodeServer(b)
	if err != nil {
		t.Fatalf("DecodeServer() failed: %v", err)
	}
	gameOver, ok := msg.(GameOver)
	if !ok {
		t.Fatalf("DecodeServer() = %T, expected GameOver", msg)
	}
	if gameOver.Winner != 1 {
		t.Errorf("Winner = %d, expected 1", gameOver.Winner)
	}

	st := gameOver.State
	if len(st.Players) != 2 {
		t.Fatalf("len(Players) = %d, expected 2", len(st.Players))
	}
	if p2 := st.Players[2]; p2.Connected || !p2.IsDead || p2.Character != "Mewtwo" {
		t.Errorf("player 2 = %#v, expected disconnected dead Mewtwo", p2)
	}
	if p1 := st.Players[1]; p1.Health != 90 || !p1.FacingRight {
		t.Errorf("player 1 = %#v, expected health 90 facing right", p1)
	}
	if len(st.Platforms) != 3 {
		t.Errorf("len(Platforms) = %d, expected 3", len(st.Platforms))
	}
	if st.ReadyCount != 1 || st.Phase != "in_match" {
		t.Errorf("ReadyCount, Phase = %d, %q, expected 1, in_match", st.ReadyCount, st.Phase)
	}
}

func TestEncodeEventKinds(t *testing.T) {
	tests := []struct {
		evt  match.SessionEvent
		kind string
	}{
		{match.ConnectAckEvent{Player: match.Player2}, KindConnectAck},
		{match.MatchStartEvent{State: testSnapshot()}, KindMatchStart},
		{match.StateUpdateEvent{State: testSnapshot()}, KindStateUpdate},
		{match.GameOverEvent{Winner: match.Player2, State: testSnapshot()}, KindGameOver},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			b, err := EncodeEvent(tt.evt)
			if err != nil {
				t.Fatalf("EncodeEvent() failed: %v", err)
			}
			env, err := DecodeEnvelope(b)
			if err != nil {
				t.Fatalf("DecodeEnvelope() failed: %v", err)
			}
			if env.T != tt.kind {
				t.Errorf("kind = %q, expected %q", env.T, tt.kind)
			}
		})
	}
}

func TestToAction(t *testing.T) {
	act := PlayerAction{FacingRight: boolp(false), Attack: boolp(true), Damage: f64(25)}.ToAction()
	if !act.Attack {
		t.Error("Attack = false, expected true")
	}
	if act.X != nil || act.Y != nil || act.AttackRange != nil {
		t.Errorf("absent fields became present: %#v", act)
	}
	if act.FacingRight == nil || *act.FacingRight {
		t.Errorf("FacingRight = %v, expected false", act.FacingRight)
	}

	if (PlayerAction{Attack: boolp(false)}).ToAction().Attack {
		t.Error("attack=false converted to an attack")
	}
	if (PlayerAction{}).ToAction().Attack {
		t.Error("missing attack converted to an attack")
	}
}

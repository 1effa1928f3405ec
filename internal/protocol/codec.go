package protocol

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrUnknownKind is returned for envelopes whose kind the receiver does not handle.
var ErrUnknownKind = errors.New("protocol: unknown envelope kind")

// Envelope is one protocol message: a kind and its msgpack-encoded payload.
type Envelope struct {
	T string             `msgpack:"t"`
	P msgpack.RawMessage `msgpack:"p"`
}

// Encode wraps payload in an envelope of kind t and serializes it.
func Encode(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, errors.New("protocol: empty envelope kind")
	}
	if payload == nil {
		return nil, fmt.Errorf("protocol: nil payload for %q", t)
	}
	pb, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s payload: %w", t, err)
	}
	b, err := msgpack.Marshal(Envelope{T: t, P: pb})
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s envelope: %w", t, err)
	}
	return b, nil
}

// DecodeEnvelope parses the outer envelope without touching the payload.
func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, errors.New("protocol: empty envelope")
	}
	var e Envelope
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return Envelope{}, fmt.Errorf("protocol: decode envelope: %w", err)
	}
	if e.T == "" {
		return Envelope{}, errors.New("protocol: envelope without kind")
	}
	return e, nil
}

// DecodePayload decodes the payload of env into a T.
// An empty payload yields the zero T, so field-less kinds like ready decode cleanly.
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.P) == 0 {
		return out, nil
	}
	if err := msgpack.Unmarshal(env.P, &out); err != nil {
		return out, fmt.Errorf("protocol: decode %s payload: %w", env.T, err)
	}
	return out, nil
}

// DecodeClient decodes a client→server envelope into one of
// CharacterSelect, Ready or PlayerAction.
func DecodeClient(b []byte) (any, error) {
	env, err := DecodeEnvelope(b)
	if err != nil {
		return nil, err
	}
	switch env.T {
	case KindCharacterSelect:
		return DecodePayload[CharacterSelect](env)
	case KindReady:
		return DecodePayload[Ready](env)
	case KindPlayerAction:
		return DecodePayload[PlayerAction](env)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.T)
	}
}

// DecodeServer decodes a server→client envelope into one of
// ConnectAck, Rejected, MatchStart, StateUpdate or GameOver.
func DecodeServer(b []byte) (any, error) {
	env, err := DecodeEnvelope(b)
	if err != nil {
		return nil, err
	}
	switch env.T {
	case KindConnectAck:
		return DecodePayload[ConnectAck](env)
	case KindRejected:
		return DecodePayload[Rejected](env)
	case KindMatchStart:
		return DecodePayload[MatchStart](env)
	case KindStateUpdate:
		return DecodePayload[StateUpdate](env)
	case KindGameOver:
		return DecodePayload[GameOver](env)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.T)
	}
}

// Package bot is a headless duel client: a thin protocol client plus a
// scripted fighter used for smoke tests and load checks.
package bot

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/vovakirdan/duel/internal/protocol"
)

// ErrRejected is returned by Dial when the server is full.
var ErrRejected = errors.New("bot: connection rejected")

// Client is one player connection.
type Client struct {
	conn   net.Conn
	fr     *protocol.FrameReader
	player int

	writeMu sync.Mutex
}

// Dial connects to addr and waits for the server's verdict.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bot: dial %s: %w", addr, err)
	}

	c := &Client{conn: conn, fr: protocol.NewFrameReader(conn, 0)}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	msg, err := c.Recv()
	if err != nil {
		conn.Close()
		return nil, err
	}
	switch m := msg.(type) {
	case protocol.ConnectAck:
		c.player = m.PlayerNum
		return c, nil
	case protocol.Rejected:
		conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrRejected, m.Reason)
	default:
		conn.Close()
		return nil, fmt.Errorf("bot: unexpected first message %T", msg)
	}
}

// Player returns the slot number the server assigned.
func (c *Client) Player() int {
	return c.player
}

// Recv blocks for the next server message.
func (c *Client) Recv() (any, error) {
	frame, err := c.fr.ReadFrame()
	if err != nil {
		return nil, err
	}
	return protocol.DecodeServer(frame)
}

// SelectCharacter picks a fighter.
func (c *Client) SelectCharacter(name string) error {
	return c.send(protocol.KindCharacterSelect, protocol.CharacterSelect{CharacterName: name})
}

// Ready signals readiness.
func (c *Client) Ready() error {
	return c.send(protocol.KindReady, protocol.Ready{})
}

// Act sends a partial slot update.
func (c *Client) Act(action protocol.PlayerAction) error {
	return c.send(protocol.KindPlayerAction, action)
}

func (c *Client) send(kind string, payload any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.WriteMessage(c.conn, kind, payload)
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Package server is the connection manager: it accepts player sockets,
// registers them with the match engine and runs one reader and one writer
// per connection.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/duel/internal/match"
	"github.com/vovakirdan/duel/internal/protocol"
)

// Config holds configuration for the server.
type Config struct {
	// Address is the host:port to listen on.
	Address string

	// MaxFrame is the largest inbound frame in bytes.
	MaxFrame int

	// SendBuffer is how many outbound events a connection queues before
	// dropping the oldest.
	SendBuffer int

	// WriteTimeout bounds a single frame write. Zero disables it.
	WriteTimeout time.Duration
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Address:      "0.0.0.0:5555",
		MaxFrame:     protocol.DefaultMaxFrame,
		SendBuffer:   64,
		WriteTimeout: 5 * time.Second,
	}
}

// Engine is the part of the match engine the server drives.
type Engine interface {
	Join(ctx context.Context, session match.Session) (match.PlayerNum, error)
	Leave(ctx context.Context, player match.PlayerNum) error
	SelectCharacter(ctx context.Context, player match.PlayerNum, name string) error
	Ready(ctx context.Context, player match.PlayerNum) error
	Act(ctx context.Context, player match.PlayerNum, action match.Action) error
}

// Server accepts player connections for one engine.
type Server struct {
	config Config
	engine Engine
	logger *log.Logger

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// New creates a server. logger may be nil.
func New(cfg Config, engine Engine, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		config: cfg,
		engine: engine,
		logger: logger,
		conns:  make(map[net.Conn]struct{}),
	}
}

// ListenAndServe binds the configured address and serves until ctx is done.
// Failing to bind is the only error it returns.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("server: cannot listen on %s: %w", s.config.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then closes every
// connection and waits for their handlers to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("listening", "address", ln.Addr().String())

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			backoff = nextBackoff(backoff)
			s.logger.Error("accept failed", "error", err, "retry_in", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
			}
			continue
		}
		backoff = 0

		s.track(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handleConn(ctx, conn)
		}()
	}

	s.closeAll()
	s.wg.Wait()
	s.logger.Info("server stopped")
	return nil
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()

	sess := newConnSession(conn, s.config.SendBuffer, s.config.WriteTimeout)
	defer sess.Close()

	num, err := s.engine.Join(ctx, sess)
	if errors.Is(err, match.ErrServerFull) {
		s.logger.Info("rejecting connection", "remote", remote, "reason", protocol.ReasonServerFull)
		s.reject(conn)
		return
	}
	if err != nil {
		s.logger.Warn("cannot register connection", "remote", remote, "error", err)
		return
	}

	logger := s.logger.With("player", int(num))
	logger.Info("connection accepted", "remote", remote)

	go sess.writeLoop(logger)
	s.readLoop(ctx, conn, num, logger)

	// Disconnect handling runs exactly once, after the reader has exited.
	// The engine may already be gone during shutdown.
	leaveCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.engine.Leave(leaveCtx, num); err != nil && !errors.Is(err, match.ErrEngineStopped) {
		logger.Warn("leave failed", "error", err)
	}
	logger.Info("connection closed", "remote", remote)
}

func (s *Server) reject(conn net.Conn) {
	if s.config.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	}
	err := protocol.WriteMessage(conn, protocol.KindRejected, protocol.Rejected{Reason: protocol.ReasonServerFull})
	if err != nil {
		s.logger.Warn("cannot send rejection", "remote", conn.RemoteAddr().String(), "error", err)
	}
}

// readLoop applies client messages until the connection fails.
// Protocol errors are logged and skipped; framing errors end the connection.
func (s *Server) readLoop(ctx context.Context, conn net.Conn, num match.PlayerNum, logger *log.Logger) {
	fr := protocol.NewFrameReader(conn, s.config.MaxFrame)
	for {
		frame, err := fr.ReadFrame()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
				logger.Debug("reader finished", "reason", err)
			default:
				logger.Warn("read failed", "error", err)
			}
			return
		}

		msg, err := protocol.DecodeClient(frame)
		if err != nil {
			logger.Warn("ignoring malformed message", "error", err)
			continue
		}

		if err := s.dispatch(ctx, num, msg); err != nil {
			logger.Debug("engine unavailable", "error", err)
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, num match.PlayerNum, msg any) error {
	switch m := msg.(type) {
	case protocol.CharacterSelect:
		return s.engine.SelectCharacter(ctx, num, m.CharacterName)
	case protocol.Ready:
		return s.engine.Ready(ctx, num)
	case protocol.PlayerAction:
		return s.engine.Act(ctx, num, m.ToAction())
	}
	return nil
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}

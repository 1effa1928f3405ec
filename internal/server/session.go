package server

import (
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/duel/internal/match"
	"github.com/vovakirdan/duel/internal/protocol"
)

// connSession is the match.Session for one TCP connection.
// The engine hands it events through Send; a writer goroutine drains them
// onto the socket so a slow client never stalls the tick.
type connSession struct {
	conn         net.Conn
	writeTimeout time.Duration

	mu      sync.Mutex
	queue   []match.SessionEvent
	limit   int
	pending chan struct{} // signalled when queue becomes non-empty

	done     chan struct{}
	doneOnce sync.Once
}

func newConnSession(conn net.Conn, bufferSize int, writeTimeout time.Duration) *connSession {
	if bufferSize < 1 {
		bufferSize = 64
	}
	return &connSession{
		conn:         conn,
		writeTimeout: writeTimeout,
		queue:        make([]match.SessionEvent, 0, bufferSize),
		limit:        bufferSize,
		pending:      make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
}

// Send queues evt for the writer.
// When the queue is full the oldest state update is evicted; the newer one
// carries the full state. One-shot events (connect ack, match start, game
// over) are never evicted. A state update arriving at a queue holding only
// one-shot events is dropped.
func (s *connSession) Send(evt match.SessionEvent) {
	select {
	case <-s.done:
		return
	default:
	}

	s.mu.Lock()
	if len(s.queue) >= s.limit && !s.evictStateUpdate() {
		if _, ok := evt.(match.StateUpdateEvent); ok {
			s.mu.Unlock()
			return
		}
	}
	s.queue = append(s.queue, evt)
	s.mu.Unlock()

	select {
	case s.pending <- struct{}{}:
	default:
	}
}

// evictStateUpdate removes the oldest queued state update. Callers hold mu.
func (s *connSession) evictStateUpdate() bool {
	for i, evt := range s.queue {
		if _, ok := evt.(match.StateUpdateEvent); ok {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return true
		}
	}
	return false
}

// drain takes every queued event in order.
func (s *connSession) drain() []match.SessionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	out := make([]match.SessionEvent, len(s.queue))
	copy(out, s.queue)
	s.queue = s.queue[:0]
	return out
}

// Close stops the writer. Safe to call multiple times.
func (s *connSession) Close() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}

// writeLoop encodes queued events and writes them as frames until the session
// closes or a write fails. A failed write closes the socket, which in turn
// unblocks the reader and triggers disconnect handling.
func (s *connSession) writeLoop(logger *log.Logger) {
	for {
		select {
		case <-s.done:
			return
		case <-s.pending:
		}

		for _, evt := range s.drain() {
			b, err := protocol.EncodeEvent(evt)
			if err != nil {
				logger.Error("cannot encode event", "event", evt, "error", err)
				continue
			}
			if s.writeTimeout > 0 {
				_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			}
			if err := protocol.WriteFrame(s.conn, b); err != nil {
				logger.Warn("write failed, closing connection", "error", err)
				s.conn.Close()
				s.Close()
				return
			}
		}
	}
}

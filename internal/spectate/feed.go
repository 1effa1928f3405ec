// Package spectate streams the live match to read-only viewers over SSH.
// It observes the engine like any other renderer and never holds a player slot.
package spectate

import (
	"sync"

	"github.com/vovakirdan/duel/internal/match"
)

// Feed is a match.Observer that fans snapshots out to subscribers.
// Each subscriber holds at most one pending snapshot; a slow viewer only ever
// skips frames and never delays the engine.
type Feed struct {
	mu     sync.Mutex
	latest match.Snapshot
	have   bool
	subs   map[chan match.Snapshot]struct{}
	closed bool
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[chan match.Snapshot]struct{})}
}

// Observe records snap and offers it to every subscriber.
func (f *Feed) Observe(snap match.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.latest = snap
	f.have = true
	for ch := range f.subs {
		offer(ch, snap)
	}
}

// offer replaces any pending snapshot in ch with snap.
func offer(ch chan match.Snapshot, snap match.Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

// Latest returns the most recent snapshot, if any arrived yet.
func (f *Feed) Latest() (match.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, f.have
}

// Subscribe returns a channel of snapshots and a function that cancels the
// subscription. The latest snapshot, if any, is delivered immediately.
func (f *Feed) Subscribe() (<-chan match.Snapshot, func()) {
	ch := make(chan match.Snapshot, 1)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	f.subs[ch] = struct{}{}
	if f.have {
		ch <- f.latest
	}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.subs[ch]; ok {
				delete(f.subs, ch)
				close(ch)
			}
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close ends every subscription. Later observations are ignored.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for ch := range f.subs {
		delete(f.subs, ch)
		close(ch)
	}
}

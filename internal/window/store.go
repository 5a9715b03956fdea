// Package window implements the per-type sliding event buffer of spec §4.1:
// admit appends, slice returns the events of a type within a lookback
// window, and expire drops entries older than the global retention
// horizon. Insertion order is preserved so callers see arrival order.
package window

import (
	"sync"
	"time"

	"github.com/sec-correlate/correlator/internal/event"
	"github.com/sec-correlate/correlator/internal/logging"
)

// entry pairs an event with the time it was admitted, since admission time
// (not the event's own timestamp) drives expiry per spec §4.1.
type entry struct {
	ev         event.Event
	ingestTime time.Time
}

// Store is a value type owning its buffers — no process-wide singleton,
// per spec §9's call-out against "object-with-methods instance holding
// window state". Every buffer is keyed by event type and kept in arrival
// order.
type Store struct {
	mu      sync.RWMutex
	buffers map[event.Type][]entry
	logger  logging.Logger
}

// New creates an empty window store.
func New(logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Store{
		buffers: make(map[event.Type][]entry),
		logger:  logger,
	}
}

// Admit appends ev to its type's buffer, recording ingestTime as the
// expiry anchor.
func (s *Store) Admit(ev event.Event, ingestTime time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffers[ev.Type] = append(s.buffers[ev.Type], entry{ev: ev, ingestTime: ingestTime})
}

// Slice returns the events of typ with now-e.Timestamp <= windowSeconds,
// in arrival order. The returned slice is a fresh copy: callers may not
// observe concurrent admissions.
func (s *Store) Slice(typ event.Type, now time.Time, windowSeconds int) []event.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buf := s.buffers[typ]
	if len(buf) == 0 {
		return nil
	}

	lookback := time.Duration(windowSeconds) * time.Second
	out := make([]event.Event, 0, len(buf))
	for _, e := range buf {
		if now.Sub(e.ev.Timestamp) <= lookback {
			out = append(out, e.ev)
		}
	}
	return out
}

// Expire drops entries whose ingest time is older than the retention
// horizon. Runs at the end of every admission (spec §4.1 Expiry policy);
// a type whose newest entry is already beyond retention is freed entirely.
func (s *Store) Expire(now time.Time, retention time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for typ, buf := range s.buffers {
		kept := buf[:0:0]
		for _, e := range buf {
			if now.Sub(e.ingestTime) <= retention {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(s.buffers, typ)
			continue
		}
		s.buffers[typ] = kept
	}
}

// TotalEvents reports the current number of retained events across all
// type buffers, for the stats gauge of spec §4.6.
func (s *Store) TotalEvents() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, buf := range s.buffers {
		total += len(buf)
	}
	return total
}

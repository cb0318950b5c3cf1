// Package timers provides a per-room registry of named one-shot callbacks.
//
// Each room owns one Service. Scheduling under a name replaces any pending
// callback with that name, so a state transition can supersede the timer that
// would have raced it. Stop makes the registry permanently inert, which is
// how room teardown guarantees no callback fires into a destroyed room.
package timers

import (
	"sort"
	"sync"
	"time"

	utilclock "k8s.io/utils/clock"
)

// Service is a cancellable one-shot timer registry. Safe for concurrent use.
type Service struct {
	clk utilclock.WithDelayedExecution

	mu      sync.Mutex
	gen     uint64
	pending map[string]entry
	stopped bool
}

type entry struct {
	timer utilclock.Timer
	gen   uint64
}

// New returns a Service driving callbacks off the given clock.
func New(clk utilclock.WithDelayedExecution) *Service {
	return &Service{
		clk:     clk,
		pending: make(map[string]entry),
	}
}

// Schedule registers fn to run once after d, replacing any pending callback
// with the same name. fn runs on the clock's timer goroutine; callers that
// need serialization must provide it inside fn.
func (s *Service) Schedule(name string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if old, ok := s.pending[name]; ok {
		old.timer.Stop()
	}

	s.gen++
	gen := s.gen
	timer := s.clk.AfterFunc(d, func() {
		// A fire can race Cancel or a replacing Schedule; the generation
		// check drops the stale one.
		s.mu.Lock()
		cur, ok := s.pending[name]
		if s.stopped || !ok || cur.gen != gen {
			s.mu.Unlock()
			return
		}
		delete(s.pending, name)
		s.mu.Unlock()

		fn()
	})
	s.pending[name] = entry{timer: timer, gen: gen}
}

// Cancel stops the pending callback with the given name, if any.
func (s *Service) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.pending[name]; ok {
		e.timer.Stop()
		delete(s.pending, name)
	}
}

// CancelAll stops every pending callback. The Service stays usable.
func (s *Service) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelAllLocked()
}

// Stop cancels everything and rejects all future scheduling. Used on room
// destruction; a stopped Service never runs another callback.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	s.cancelAllLocked()
}

func (s *Service) cancelAllLocked() {
	for name, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, name)
	}
}

// Pending returns the names of callbacks that have not yet fired, sorted.
func (s *Service) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.pending))
	for name := range s.pending {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

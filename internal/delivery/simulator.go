package delivery

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultDelay is how long a message stays unread before the simulated
// receipt arrives.
const DefaultDelay = time.Second

// Marker flips the read flag of a single message.
type Marker interface {
	MarkRead(id int64) bool
}

type pending struct {
	timer *time.Timer
	gen   uint64
}

// Simulator schedules one read receipt per message id. Timers wait without
// holding any lock; only the final MarkRead touches the store.
type Simulator struct {
	mu      sync.Mutex
	timers  map[int64]pending
	gen     uint64
	stopped bool

	delay  time.Duration
	marker Marker
	logger *zap.Logger
}

// NewSimulator creates a simulator that marks messages read on marker after delay.
func NewSimulator(marker Marker, delay time.Duration, logger *zap.Logger) *Simulator {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Simulator{
		timers: make(map[int64]pending),
		delay:  delay,
		marker: marker,
		logger: logger,
	}
}

// Schedule arms the receipt timer for id, replacing any earlier timer for
// the same id.
func (s *Simulator) Schedule(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if p, ok := s.timers[id]; ok {
		p.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timers[id] = pending{
		timer: time.AfterFunc(s.delay, func() { s.fire(id, gen) }),
		gen:   gen,
	}
}

// Cancel stops the pending timer for id, if any.
func (s *Simulator) Cancel(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.timers[id]; ok {
		p.timer.Stop()
		delete(s.timers, id)
	}
}

// Pending returns the number of armed timers.
func (s *Simulator) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every pending timer. Later Schedule calls are ignored.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, p := range s.timers {
		p.timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Simulator) fire(id int64, gen uint64) {
	s.mu.Lock()
	p, ok := s.timers[id]
	if !ok || p.gen != gen {
		// Cancelled or superseded after the timer had already started.
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	s.mu.Unlock()

	if s.marker.MarkRead(id) {
		s.logger.Debug("read receipt delivered", zap.Int64("message_id", id))
	}
}

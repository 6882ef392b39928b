package persist

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	minDebounce = 250 * time.Millisecond
	retryDelay  = time.Second
)

// Saver coalesces bursts of changes into a single write once the burst has
// been quiet for the debounce window.
type Saver struct {
	mu       sync.Mutex
	debounce time.Duration
	save     func() error
	now      func() time.Time

	pending  bool
	deadline time.Time
}

func NewSaver(debounce time.Duration, save func() error) *Saver {
	if debounce < minDebounce {
		debounce = minDebounce
	}
	return &Saver{debounce: debounce, save: save, now: time.Now}
}

// Queue marks state dirty and pushes the write out by the debounce window.
func (s *Saver) Queue() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = true
	s.deadline = s.now().Add(s.debounce)
}

func (s *Saver) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// FlushIfDue writes when a queued change has passed its deadline. A failed
// write stays pending and is retried a second later.
func (s *Saver) FlushIfDue() error {
	s.mu.Lock()
	if !s.pending || s.now().Before(s.deadline) {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.flush()
}

// Flush writes any pending change immediately.
func (s *Saver) Flush() error {
	if !s.Pending() {
		return nil
	}
	return s.flush()
}

func (s *Saver) flush() error {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()

	if err := s.save(); err != nil {
		s.mu.Lock()
		s.pending = true
		s.deadline = s.now().Add(retryDelay)
		s.mu.Unlock()
		log.Warn().Err(err).Msg("Failed to persist controller state, will retry")
		return err
	}

	log.Debug().Msg("Persisted controller state")
	return nil
}

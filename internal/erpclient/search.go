package erpclient

import (
	"context"
	"strings"
	"sync"
	"time"
)

const (
	searchDebounce = 300 * time.Millisecond
	searchMinChars = 2
)

// Searcher drives an incremental search box: it fires only after the
// operator pauses typing, ignores terms shorter than two characters, and
// guarantees last-write-wins on the results panel. Each keystroke bumps a
// generation counter; a response whose generation is no longer current is
// discarded, never delivered. Cancellation of an in-flight request is
// logical only, the request itself is left to finish and its result dropped.
type Searcher[T any] struct {
	mu       sync.Mutex
	fetch    func(ctx context.Context, term string) ([]T, error)
	deliver  func(term string, results []T, err error)
	debounce time.Duration
	gen      uint64
	timer    *time.Timer
}

// NewSearcher wires a fetch function to a deliver callback. deliver runs on
// the searcher's own goroutine; it receives an empty result set when the
// term is cleared or too short.
func NewSearcher[T any](
	fetch func(ctx context.Context, term string) ([]T, error),
	deliver func(term string, results []T, err error),
) *Searcher[T] {
	return &Searcher[T]{
		fetch:    fetch,
		deliver:  deliver,
		debounce: searchDebounce,
	}
}

// SetDebounce overrides the typing pause. Used by tests to keep them fast.
func (s *Searcher[T]) SetDebounce(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debounce = d
}

// Input registers one keystroke's worth of search term.
func (s *Searcher[T]) Input(ctx context.Context, term string) {
	term = strings.TrimSpace(term)

	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	if len([]rune(term)) < searchMinChars {
		s.mu.Unlock()
		s.deliver(term, nil, nil)
		return
	}

	s.timer = time.AfterFunc(s.debounce, func() {
		s.run(ctx, gen, term)
	})
	s.mu.Unlock()
}

// Cancel drops any pending or in-flight search without delivering anything.
func (s *Searcher[T]) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Searcher[T]) run(ctx context.Context, gen uint64, term string) {
	if s.stale(gen) {
		return
	}

	results, err := s.fetch(ctx, term)

	// A newer search may have started while this one was on the wire.
	if s.stale(gen) {
		return
	}
	s.deliver(term, results, err)
}

func (s *Searcher[T]) stale(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen != s.gen
}

package events

import "sync"

// Stream delivers events over a buffered channel. Emit never blocks: when
// the buffer is full the event is dropped and a warning logged.
type Stream struct {
	mu      sync.Mutex
	ch      chan Event
	closed  bool
	dropped uint64
	logger  Logger
}

// NewStream creates a stream with the given buffer size (at least 1).
func NewStream(logger Logger, bufferSize uint) *Stream {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Stream{
		ch:     make(chan Event, bufferSize),
		logger: logger,
	}
}

// Events returns a read-only channel of emitted events.
func (s *Stream) Events() <-chan Event {
	return s.ch
}

func (s *Stream) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.ch <- e:
	default:
		s.dropped++
		s.logger.Warn("Event stream buffer full; dropping event", "kind", e.Kind(), "dropped_total", s.dropped)
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (s *Stream) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close closes the channel. Later events are ignored.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

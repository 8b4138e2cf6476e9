package progress

import (
	"iter"
	"sync"

	"mirror-go/internal/mirror"
)

// Stream is a ProgressSink that hands events to a consumer goroutine.
// Emit blocks until the consumer takes the event or the stream is closed,
// so a slow consumer slows the run rather than dropping events.
type Stream struct {
	mu     sync.RWMutex
	closed bool
	events chan mirror.ProgressEvent
}

// NewStream creates a Stream holding up to buffer undelivered events.
func NewStream(buffer int) *Stream {
	if buffer < 0 {
		buffer = 0
	}
	return &Stream{events: make(chan mirror.ProgressEvent, buffer)}
}

func (s *Stream) Emit(event mirror.ProgressEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	s.events <- event
}

// Close ends the stream. Events emitted afterwards are dropped.
// Close waits for in-flight Emit calls, so the consumer must keep reading.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// CloseWhenDone closes the stream once done is closed, typically a
// RunHandle's Done channel.
func (s *Stream) CloseWhenDone(done <-chan struct{}) {
	go func() {
		<-done
		s.Close()
	}()
}

// Events yields events until the stream is closed and drained. If the
// consumer stops early, the remaining events are discarded in the
// background so producers never block.
func (s *Stream) Events() iter.Seq[mirror.ProgressEvent] {
	return func(yield func(mirror.ProgressEvent) bool) {
		for event := range s.events {
			if !yield(event) {
				go func() {
					for range s.events {
					}
				}()
				return
			}
		}
	}
}

var _ mirror.ProgressSink = (*Stream)(nil)

package testutil

import (
	"strings"
	"sync"

	"mirror-go/internal/mirror"
)

// RecordingSink stores every progress event it receives. Safe for concurrent use.
type RecordingSink struct {
	mu     sync.Mutex
	events []mirror.ProgressEvent
}

func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

func (s *RecordingSink) Emit(event mirror.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns a copy of the recorded events.
func (s *RecordingSink) Events() []mirror.ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mirror.ProgressEvent(nil), s.events...)
}

// Texts returns the text of every recorded event in order.
func (s *RecordingSink) Texts() []string {
	events := s.Events()
	texts := make([]string, len(events))
	for i, e := range events {
		texts[i] = e.Text
	}
	return texts
}

// CountPrefix returns how many events for hint start with prefix.
func (s *RecordingSink) CountPrefix(hint mirror.TargetHint, prefix string) int {
	n := 0
	for _, e := range s.Events() {
		if e.Target == hint && strings.HasPrefix(e.Text, prefix) {
			n++
		}
	}
	return n
}

// Last returns the most recent event, or the zero event if none were recorded.
func (s *RecordingSink) Last() mirror.ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return mirror.ProgressEvent{}
	}
	return s.events[len(s.events)-1]
}

package mirror

import (
	"fmt"
	"sync"
)

// TargetHint names the target an event pertains to: the index of the target
// root in the run (0 for the first target) or AllTargets.
type TargetHint int

// AllTargets marks events that pertain to every target.
const AllTargets TargetHint = -1

func (h TargetHint) String() string {
	if h == AllTargets {
		return "all"
	}
	return fmt.Sprintf("target %d", int(h)+1)
}

// ProgressEvent is one line of progress text. Events are immutable once emitted.
type ProgressEvent struct {
	Text   string
	Target TargetHint
}

// ProgressSink receives progress events. The coordinator calls Emit
// synchronously from its worker; concurrent target syncs are serialized
// before they reach the sink.
type ProgressSink interface {
	Emit(event ProgressEvent)
}

// SinkFunc adapts a function to the ProgressSink interface.
type SinkFunc func(ProgressEvent)

func (f SinkFunc) Emit(event ProgressEvent) { f(event) }

// DiscardSink drops every event.
var DiscardSink ProgressSink = SinkFunc(func(ProgressEvent) {})

// lockedSink delivers each event whole when several syncers share one sink.
type lockedSink struct {
	mu   sync.Mutex
	sink ProgressSink
}

func (s *lockedSink) Emit(event ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink.Emit(event)
}

// Event text, one constructor per line kind the collaborator may display.

const (
	completedText = "Backup completed."
	promptText    = "Please select the source folder and all target folders."
)

func copiedEvent(src, dst string, hint TargetHint) ProgressEvent {
	return ProgressEvent{Text: fmt.Sprintf("Copied: %s to %s", src, dst), Target: hint}
}

func skippedEvent(dst string, hint TargetHint) ProgressEvent {
	return ProgressEvent{Text: fmt.Sprintf("Skipped (same content): %s", dst), Target: hint}
}

func failedEvent(src, dst string, err error, hint TargetHint) ProgressEvent {
	return ProgressEvent{Text: fmt.Sprintf("Failed: %s to %s: %v", src, dst, err), Target: hint}
}

func targetDoneEvent(root string, hint TargetHint) ProgressEvent {
	return ProgressEvent{Text: fmt.Sprintf("Backup to %s completed.", root), Target: hint}
}

func targetFailedEvent(root string, err error, hint TargetHint) ProgressEvent {
	return ProgressEvent{Text: fmt.Sprintf("Backup to %s failed: %v", root, err), Target: hint}
}

func walkFailedEvent(err error) ProgressEvent {
	return ProgressEvent{Text: fmt.Sprintf("Failed: %v", err), Target: AllTargets}
}

func notStartedEvent(err error) ProgressEvent {
	return ProgressEvent{Text: fmt.Sprintf("Cannot start backup: %v", err), Target: AllTargets}
}

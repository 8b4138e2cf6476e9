package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"mirror-go/internal/mirror"
)

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiRed   = "\x1b[31m"
)

var targetColors = []string{"\x1b[36m", "\x1b[35m", "\x1b[33m", "\x1b[32m", "\x1b[34m"}

// ConsoleSink writes one line per event, prefixed with the target it
// pertains to. Events sent to every target are routed by text first.
type ConsoleSink struct {
	mu    sync.Mutex
	w     io.Writer
	roots []string
	color bool
}

// NewConsoleSink creates a sink writing to w. color enables ANSI colour and
// should only be set when w is a terminal.
func NewConsoleSink(w io.Writer, roots []string, color bool) *ConsoleSink {
	return &ConsoleSink{w: w, roots: roots, color: color}
}

func (s *ConsoleSink) Emit(event mirror.ProgressEvent) {
	hint := event.Target
	if hint == mirror.AllTargets {
		hint = Route(event.Text, s.roots)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s %s\n", s.prefix(hint), s.text(event.Text))
}

func (s *ConsoleSink) prefix(hint mirror.TargetHint) string {
	label := "[*]"
	if hint != mirror.AllTargets {
		label = fmt.Sprintf("[%d]", int(hint)+1)
	}
	if !s.color {
		return label
	}
	if hint == mirror.AllTargets {
		return ansiBold + label + ansiReset
	}
	return targetColors[int(hint)%len(targetColors)] + label + ansiReset
}

func (s *ConsoleSink) text(text string) string {
	if s.color && (strings.HasPrefix(text, "Failed:") || strings.Contains(text, " failed: ")) {
		return ansiRed + text + ansiReset
	}
	return text
}

var _ mirror.ProgressSink = (*ConsoleSink)(nil)

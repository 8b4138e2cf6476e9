package testutil

import (
	"strconv"
	"sync"
	"time"
)

// BaseTime is the instant every ManualClock in the test suite starts from.
// It is local time because summary lines are rendered in local time.
var BaseTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.Local)

// ManualClock is a mirror.Clock driven by the test. With a non-zero tick
// every reading moves the clock forward, so successive readings within one
// run are strictly ordered.
type ManualClock struct {
	mu   sync.Mutex
	at   time.Time
	tick time.Duration
}

// NewManualClock starts at BaseTime and advances by tick after each Now.
func NewManualClock(tick time.Duration) *ManualClock {
	return &ManualClock{at: BaseTime, tick: tick}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.at
	c.at = c.at.Add(c.tick)
	return now
}

// Peek returns the next reading without consuming a tick.
func (c *ManualClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

// Skip jumps the clock forward by d.
func (c *ManualClock) Skip(d time.Duration) {
	c.mu.Lock()
	c.at = c.at.Add(d)
	c.mu.Unlock()
}

// SequenceIDs is a mirror.IDGenerator handing out prefix-1, prefix-2, ...
type SequenceIDs struct {
	prefix string
	mu     sync.Mutex
	issued int
}

// NewSequenceIDs returns a generator for "<prefix>-N" identifiers.
func NewSequenceIDs(prefix string) *SequenceIDs {
	return &SequenceIDs{prefix: prefix}
}

func (g *SequenceIDs) New() string {
	g.mu.Lock()
	g.issued++
	n := g.issued
	g.mu.Unlock()
	return g.prefix + "-" + strconv.Itoa(n)
}

// Issued reports how many identifiers have been handed out.
func (g *SequenceIDs) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.issued
}

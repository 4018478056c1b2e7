// Package summary collects the log of a single run and renders it, together
// with the executed plan, as a human-readable document.
package summary

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/modforge/internal/task"
)

// MainLane is the lane of code not running below a parallel plan.
const MainLane = "main"

// Entry is one immutable log record.
type Entry struct {
	Level   slog.Level
	Message string
	// Thread is the lane that produced the entry.
	Thread  string
	Instant time.Time
}

// String renders the entry on a single line.
func (e Entry) String() string {
	return fmt.Sprintf("%s %-5s [%s] %s", e.Instant.UTC().Format(time.RFC3339Nano), e.Level, e.Thread, e.Message)
}

// Summary is an append-only, concurrency-safe log.
type Summary struct {
	mu      sync.Mutex
	entries []Entry
	lanes   atomic.Int64
	now     func() time.Time
}

// New creates an empty summary.
func New() *Summary {
	return &Summary{now: time.Now}
}

// Add appends an entry attributed to the lane stored in ctx.
func (s *Summary) Add(ctx context.Context, level slog.Level, message string) {
	e := Entry{Level: level, Message: message, Thread: Lane(ctx), Instant: s.now()}
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
}

// Entries returns a snapshot of all entries in append order.
func (s *Summary) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// Count returns the number of entries at or above level.
func (s *Summary) Count(level slog.Level) int {
	n := 0
	for _, e := range s.Entries() {
		if e.Level >= level {
			n++
		}
	}
	return n
}

// NextLane allocates a new lane name for a concurrently running branch.
func (s *Summary) NextLane() string {
	return fmt.Sprintf("worker-%d", s.lanes.Add(1))
}

type laneKey struct{}

// WithLane returns a context whose log entries are attributed to lane.
func WithLane(ctx context.Context, lane string) context.Context {
	return context.WithValue(ctx, laneKey{}, lane)
}

// Lane returns the lane stored in ctx, or MainLane.
func Lane(ctx context.Context) string {
	if ctx != nil {
		if l, ok := ctx.Value(laneKey{}).(string); ok {
			return l
		}
	}
	return MainLane
}

// Write renders the summary document: a Plan section listing every task of
// root and a Log section listing every entry in the order it was appended.
func (s *Summary) Write(w io.Writer, title string, root task.Task) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)

	b.WriteString("## Plan\n\n```text\n")
	if root != nil {
		task.Print(root, "  ", func(line string) {
			b.WriteString(line)
			b.WriteByte('\n')
		})
	}
	b.WriteString("```\n\n")

	entries := s.Entries()
	fmt.Fprintf(&b, "## Log\n\n%d entries, %d warnings, %d errors.\n\n```text\n",
		len(entries), s.Count(slog.LevelWarn)-s.Count(slog.LevelError), s.Count(slog.LevelError))
	for _, e := range entries {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	b.WriteString("```\n")

	_, err := io.WriteString(w, b.String())
	return err
}

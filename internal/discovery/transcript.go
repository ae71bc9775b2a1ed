package discovery

import (
	"fmt"
	"sync"
	"time"
)

const transcriptCap = 500

// Transcript collects a human-readable scan log for the UI, capped so a
// long sweep cannot grow it without bound.
type Transcript struct {
	mu    sync.Mutex
	lines []string
}

// Append formats a line, stamps it, and appends it.
func (t *Transcript) Append(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	t.lines = append(t.lines, line)
	if len(t.lines) > transcriptCap {
		t.lines = t.lines[len(t.lines)-transcriptCap:]
	}
}

// Lines returns a copy of the transcript so far.
func (t *Transcript) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}

// Reset clears the transcript for a fresh scan.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = nil
}

package monitor

import (
	"sync"
	"time"
)

// LogBuffer keeps the most recent session log lines, oldest first.
type LogBuffer struct {
	mu       sync.RWMutex
	entries  []string
	capacity int
	now      func() time.Time
}

// NewLogBuffer creates a buffer holding at most capacity lines.
func NewLogBuffer(capacity int, now func() time.Time) *LogBuffer {
	if capacity <= 0 {
		capacity = 50
	}
	if now == nil {
		now = time.Now
	}
	return &LogBuffer{
		entries:  make([]string, 0, capacity),
		capacity: capacity,
		now:      now,
	}
}

// Add appends "[HH:MM] msg", dropping the oldest line when full, and returns
// the stored line.
func (b *LogBuffer) Add(msg string) string {
	line := "[" + b.now().Format("15:04") + "] " + msg

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) == b.capacity {
		copy(b.entries, b.entries[1:])
		b.entries = b.entries[:len(b.entries)-1]
	}
	b.entries = append(b.entries, line)
	return line
}

// Recent returns up to n of the newest lines, oldest first. n <= 0 returns all.
func (b *LogBuffer) Recent(n int) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start := 0
	if n > 0 && len(b.entries) > n {
		start = len(b.entries) - n
	}
	out := make([]string, len(b.entries)-start)
	copy(out, b.entries[start:])
	return out
}

// Len returns the number of stored lines.
func (b *LogBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

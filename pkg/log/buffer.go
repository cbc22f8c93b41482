package log

import (
	"fmt"
	"io"
	"sync"
)

// CircularBuffer is a thread-safe ring of log entries implementing
// [io.Writer]. It keeps the most recent entries so that logs emitted while
// the terminal is occupied by the dashboard can be flushed afterwards.
type CircularBuffer struct {
	entries [][]byte
	size    int
	head    int
	mu      sync.RWMutex
}

// NewCircularBuffer creates a buffer retaining up to capacity entries.
func NewCircularBuffer(capacity int) *CircularBuffer {
	if capacity <= 0 {
		capacity = 100 // Default capacity.
	}

	return &CircularBuffer{
		entries: make([][]byte, capacity),
	}
}

// Write implements [io.Writer]. Each call stores one entry, overwriting the
// oldest once the buffer is full. The data is copied.
func (cb *CircularBuffer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	entry := make([]byte, len(p))
	copy(entry, p)

	cb.entries[cb.head] = entry
	cb.head = (cb.head + 1) % len(cb.entries)

	if cb.size < len(cb.entries) {
		cb.size++
	}

	return len(p), nil
}

// Entries returns a copy of all current entries, oldest first.
func (cb *CircularBuffer) Entries() [][]byte {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if cb.size == 0 {
		return nil
	}

	// Once the ring has wrapped, the oldest entry sits at head.
	start := 0
	if cb.size == len(cb.entries) {
		start = cb.head
	}

	result := make([][]byte, 0, cb.size)

	for n := range cb.size {
		i := (start + n) % len(cb.entries)
		if cb.entries[i] == nil {
			continue
		}

		entry := make([]byte, len(cb.entries[i]))
		copy(entry, cb.entries[i])

		result = append(result, entry)
	}

	return result
}

// Size returns the current number of entries.
func (cb *CircularBuffer) Size() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return cb.size
}

// Capacity returns the maximum number of retained entries.
func (cb *CircularBuffer) Capacity() int {
	return len(cb.entries)
}

// IsFull reports whether the oldest entries have been overwritten.
func (cb *CircularBuffer) IsFull() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return cb.size == len(cb.entries)
}

// Clear removes all entries.
func (cb *CircularBuffer) Clear() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.size = 0
	cb.head = 0

	for i := range cb.entries {
		cb.entries[i] = nil
	}
}

// WriteTo flushes all entries to w in chronological order.
func (cb *CircularBuffer) WriteTo(w io.Writer) (int64, error) {
	var total int64

	for _, entry := range cb.Entries() {
		written, err := w.Write(entry)
		total += int64(written)

		if err != nil {
			return total, fmt.Errorf("writing entry: %w", err)
		}
	}

	return total, nil
}

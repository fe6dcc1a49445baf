package orchestrator

import "sync"

// ProgressReporter fans log entries out through a buffered channel.
type ProgressReporter struct {
	mu     sync.Mutex
	ch     chan LogEntry
	closed bool
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan LogEntry, 64),
	}
}

// Emit sends an entry in a non-blocking fashion.
// If the channel is full or closed, the entry is dropped; the run log
// remains the source of truth.
func (pr *ProgressReporter) Emit(entry LogEntry) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.closed {
		return
	}
	select {
	case pr.ch <- entry:
	default:
	}
}

// Subscribe returns a read-only channel for consuming log entries.
func (pr *ProgressReporter) Subscribe() <-chan LogEntry {
	return pr.ch
}

// Close closes the channel. Calling it more than once is safe.
func (pr *ProgressReporter) Close() {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.closed {
		return
	}
	pr.closed = true
	close(pr.ch)
}

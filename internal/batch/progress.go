package batch

import "fmt"

// ProgressStatus is the lifecycle position of one file in a batch.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
	ProgressSkipped  ProgressStatus = "skipped"
)

// ProgressEvent reports a status change for one file.
type ProgressEvent struct {
	Path    string
	Status  ProgressStatus
	Records int    // set on complete
	Message string // set on failed and skipped
}

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full, the event is silently dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  ○ %s (pending)", event.Path)
	case ProgressWorking:
		return fmt.Sprintf("  ● %s...", event.Path)
	case ProgressComplete:
		return fmt.Sprintf("  ✓ %s: %d records", event.Path, event.Records)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", event.Path, event.Message)
	case ProgressSkipped:
		return fmt.Sprintf("  - %s skipped: %s", event.Path, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.Path)
	}
}

package sync

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Collect Phase = iota
	Merge
	Write
)

func (p Phase) String() string {
	switch p {
	case Collect:
		return "collect"
	case Merge:
		return "merge"
	case Write:
		return "write"
	default:
		return ""
	}
}

func collectingUpdate(step, total int, replica string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Collect,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Collecting from %s...", step, total, replica),
	}
}

func mergedUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Merge,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Merged %d unique tracks", count),
	}
}

func writingUpdate(step, total int, replica string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Write,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Writing playlist for %s...", step, total, replica),
	}
}

func writeDoneUpdate(step, total int, replica string, added int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Write,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (+%d)", step, total, replica, added),
	}
}

func writeFailedUpdate(step, total int, replica string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Write,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, replica, err),
	}
}

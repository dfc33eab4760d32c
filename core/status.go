package core

import "fmt"

// ProcessingStatus tracks a file through the asynchronous processing chain.
type ProcessingStatus string

const (
	// StatusPending is the only initial status, set when the record is created.
	StatusPending ProcessingStatus = "PENDING"
	// StatusParsing means text extraction and chunking are in progress.
	StatusParsing ProcessingStatus = "PARSING"
	// StatusVectorizing means embeddings are being generated and indexed.
	StatusVectorizing ProcessingStatus = "VECTORIZING"
	// StatusCompleted is terminal for a processing attempt.
	StatusCompleted ProcessingStatus = "COMPLETED"
	// StatusFailed is terminal for a processing attempt and carries a reason.
	StatusFailed ProcessingStatus = "FAILED"
)

// allowedTransitions is the explicit transition table. A transition from a
// terminal status back to StatusPending models resubmission of the file,
// which starts a new logical processing attempt.
var allowedTransitions = map[ProcessingStatus][]ProcessingStatus{
	StatusPending:     {StatusParsing, StatusFailed},
	StatusParsing:     {StatusVectorizing, StatusFailed},
	StatusVectorizing: {StatusCompleted, StatusFailed},
	StatusCompleted:   {StatusPending},
	StatusFailed:      {StatusPending},
}

// IsValid reports whether the status is one of the five known values.
func (s ProcessingStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusParsing, StatusVectorizing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status ends a processing attempt.
func (s ProcessingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is legal.
// A same-status write is always legal so that racing retries stay idempotent.
func (s ProcessingStatus) CanTransition(next ProcessingStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CheckTransition validates a status transition against the table.
func CheckTransition(from, to ProcessingStatus) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

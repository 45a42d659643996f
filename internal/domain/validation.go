package domain

import "fmt"

// ValidateBookStatus validates a book status
func ValidateBookStatus(status string) error {
	switch BookStatus(status) {
	case BookStatusReading, BookStatusCompleted, BookStatusOnHold:
		return nil
	default:
		return fmt.Errorf("invalid status: must be one of: reading, completed, on_hold")
	}
}

// ValidateMemoType validates a memo type
func ValidateMemoType(memoType string) error {
	switch MemoType(memoType) {
	case MemoTypeNormal, MemoTypeProgress:
		return nil
	default:
		return fmt.Errorf("invalid memo type: must be one of: normal, progress")
	}
}

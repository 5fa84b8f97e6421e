package enums

import "fmt"

// StatusCode tracks the lifecycle of a fabrication order.
type StatusCode string

const (
	StatusPending    StatusCode = "pending"
	StatusInProgress StatusCode = "in_progress"
	StatusReady      StatusCode = "ready"
	StatusRejected   StatusCode = "rejected"
	StatusArchived   StatusCode = "archived"
)

var validStatusCodes = []StatusCode{
	StatusPending,
	StatusInProgress,
	StatusReady,
	StatusRejected,
	StatusArchived,
}

// ActiveStatusCodes are the statuses staff work oldest-first.
var ActiveStatusCodes = []StatusCode{StatusPending, StatusInProgress}

// String implements fmt.Stringer.
func (s StatusCode) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StatusCode.
func (s StatusCode) IsValid() bool {
	for _, candidate := range validStatusCodes {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActive reports whether orders in this status sit in the staff work queue.
func (s StatusCode) IsActive() bool {
	for _, candidate := range ActiveStatusCodes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStatusCode converts raw input into a StatusCode.
func ParseStatusCode(value string) (StatusCode, error) {
	for _, candidate := range validStatusCodes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid status code %q", value)
}

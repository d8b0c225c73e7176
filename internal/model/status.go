package model

import "strings"

// Status is the lifecycle state of a transfer job as reported by the node.
type Status string

// Known statuses, in lifecycle order. A record never moves backwards
// through this list within a polling session; the node enforces that.
const (
	StatusQueued     Status = "queued"
	StatusPending    Status = "pending"
	StatusValidating Status = "validating"
	StatusCopying    Status = "copying"
	StatusVerifying  Status = "verifying"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"

	// StatusUnknown marks a wire value outside the closed enumeration.
	StatusUnknown Status = "unknown"
)

// KnownStatuses lists every status of the closed enumeration.
var KnownStatuses = []Status{
	StatusQueued,
	StatusPending,
	StatusValidating,
	StatusCopying,
	StatusVerifying,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

// ParseStatus maps a wire token onto the enumeration, ignoring case and
// surrounding whitespace. Unrecognized tokens yield StatusUnknown.
func ParseStatus(raw string) Status {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range KnownStatuses {
		if s == known {
			return s
		}
	}
	return StatusUnknown
}

// Known reports whether s belongs to the closed enumeration.
func (s Status) Known() bool {
	return ParseStatus(string(s)) != StatusUnknown
}

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Upper returns the badge label for the status.
func (s Status) Upper() string {
	return strings.ToUpper(string(s))
}

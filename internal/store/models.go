package store

import "time"

// Poll attempt outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// PollAttempt records one finished fetch of a poll subscription.
type PollAttempt struct {
	ID             int64
	SubscriptionID string
	Label          string
	Attempt        int
	StartedAt      time.Time
	Duration       time.Duration
	Outcome        string // "success" or "failure"
	StatusCode     int    // 0 for transport failures and successes without a code
	ErrorMessage   string
	NextDelay      time.Duration
}

// LabelHealth summarizes the journal for one widget label.
type LabelHealth struct {
	Label               string    `json:"label"`
	Attempts            int       `json:"attempts"`
	Failures            int       `json:"failures"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastSuccess         time.Time `json:"last_success,omitzero"`
	LastFailure         time.Time `json:"last_failure,omitzero"`
	LastError           string    `json:"last_error,omitempty"`
}

// Healthy reports whether the most recent attempt succeeded.
func (h LabelHealth) Healthy() bool {
	return h.ConsecutiveFailures == 0 && !h.LastSuccess.IsZero()
}

// ReportDownload records a report saved to disk or served through a
// transient URL.
type ReportDownload struct {
	ID           int64
	TransferID   string
	Filename     string
	Size         int64
	Destination  string // file path, or "url:<token>" when served by the dashboard
	DownloadedAt time.Time
}

// Action records a one-off operator action against the node.
type Action struct {
	ID           int64
	Action       string // "create", "cancel", "delete", "pause_watch", "resume_watch", "reload_volumes"
	TransferID   string
	StatusCode   int
	ErrorMessage string
	PerformedAt  time.Time
}

// Succeeded reports whether the node accepted the action.
func (a Action) Succeeded() bool {
	return a.ErrorMessage == ""
}

package viewmodel

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BadgerOps/transferwatch/internal/model"
)

// Audit feed defaults.
const (
	DefaultAuditLimit = 200
	DefaultAuditDays  = 1
)

// AuditEvent is one line of the audit feed built from recent transfers.
type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail"`
}

// AuditFeed maps up to limit recent transfers into audit lines. A limit
// of zero or less uses DefaultAuditLimit.
func AuditFeed(jobs []model.TransferJob, limit int) []AuditEvent {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	if len(jobs) < limit {
		limit = len(jobs)
	}

	out := make([]AuditEvent, 0, limit)
	for _, j := range jobs[:limit] {
		status := StatusLabel(j)
		label := upper(status)
		if label == "" {
			label = "UNKNOWN"
		}
		detail := j.ErrorMessage
		if detail == "" {
			detail = fmt.Sprintf("%s · %s", j.FileName, status)
		}
		out = append(out, AuditEvent{
			Timestamp: firstTime(j.CompletedAt, &j.UpdatedAt, &j.CreatedAt),
			Status:    label,
			Detail:    detail,
		})
	}
	return out
}

// LogLine is one rendered audit-log entry of a single transfer.
type LogLine struct {
	Event     string          `json:"event"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// LogLines humanizes the event tokens of a transfer's audit trail.
func LogLines(entries []model.AuditLogEntry) []LogLine {
	out := make([]LogLine, 0, len(entries))
	for _, e := range entries {
		out = append(out, LogLine{
			Event:     HumanizeEvent(e.EventType),
			Message:   e.Message,
			Timestamp: e.CreatedAt,
			Metadata:  e.Metadata,
		})
	}
	return out
}

func upper(s string) string {
	return strings.ToUpper(s)
}

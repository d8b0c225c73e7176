package viewmodel

import (
	"fmt"
	"time"

	"github.com/BadgerOps/transferwatch/internal/model"
)

// AlertTone is the severity of an operational alert.
type AlertTone string

const (
	AlertCritical AlertTone = "critical"
	AlertWarning  AlertTone = "warning"
	AlertInfo     AlertTone = "info"
	AlertSuccess  AlertTone = "success"
)

// DefaultAlertLimit bounds the alert list when no limit is given.
const DefaultAlertLimit = 6

var alertTones = map[model.Status]AlertTone{
	model.StatusFailed:     AlertCritical,
	model.StatusCancelled:  AlertWarning,
	model.StatusValidating: AlertWarning,
	model.StatusCopying:    AlertWarning,
	model.StatusVerifying:  AlertWarning,
	model.StatusPending:    AlertInfo,
	model.StatusCompleted:  AlertSuccess,
}

// Alert is one entry of the operational alerts panel.
type Alert struct {
	ID        string    `json:"id"`
	Tone      AlertTone `json:"tone"`
	Title     string    `json:"title"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertToneFor maps a status onto its alert severity; unmapped statuses
// are informational.
func AlertToneFor(s model.Status) AlertTone {
	if t, ok := alertTones[s]; ok {
		return t
	}
	return AlertInfo
}

// Alerts synthesizes at most limit alerts from jobs, which are expected
// newest first. Jobs without a status do not count toward the limit. A
// limit of zero or less uses DefaultAlertLimit.
func Alerts(jobs []model.TransferJob, limit int) []Alert {
	if limit <= 0 {
		limit = DefaultAlertLimit
	}

	out := make([]Alert, 0, min(limit, len(jobs)))
	for _, j := range jobs {
		if len(out) == limit {
			break
		}
		// Records without any status token are skipped, not shown as unknown.
		if j.RawStatus == "" && !j.Status.Known() {
			continue
		}
		status := StatusLabel(j)
		detail := j.ErrorMessage
		if detail == "" {
			detail = "Transfer " + status
		}
		out = append(out, Alert{
			ID:        "transfer-alert-" + j.ID,
			Tone:      AlertToneFor(j.Status),
			Title:     fmt.Sprintf("%s · %s", j.FileName, upper(status)),
			Detail:    detail,
			Timestamp: firstTime(&j.UpdatedAt, j.CompletedAt, &j.CreatedAt),
		})
	}
	return out
}

// firstTime returns the first non-nil, non-zero time.
func firstTime(ts ...*time.Time) time.Time {
	for _, t := range ts {
		if t != nil && !t.IsZero() {
			return *t
		}
	}
	return time.Time{}
}

// Package viewmodel derives renderable facts from parsed transfer records.
//
// Every function here is pure: no I/O, no clocks, no shared state.
package viewmodel

import "github.com/BadgerOps/transferwatch/internal/model"

// Tone is the display colour class of a status badge.
type Tone string

const (
	ToneWarning Tone = "warning"
	ToneInfo    Tone = "info"
	ToneSuccess Tone = "success"
	ToneDanger  Tone = "danger"
)

// FallbackTone is used for statuses outside the known enumeration.
const FallbackTone = ToneInfo

var statusTones = map[model.Status]Tone{
	model.StatusQueued:     ToneWarning,
	model.StatusPending:    ToneWarning,
	model.StatusValidating: ToneWarning,
	model.StatusCopying:    ToneInfo,
	model.StatusVerifying:  ToneInfo,
	model.StatusCompleted:  ToneSuccess,
	model.StatusFailed:     ToneDanger,
	model.StatusCancelled:  ToneDanger,
}

// StatusTone maps a status onto its badge tone.
func StatusTone(s model.Status) Tone {
	if t, ok := statusTones[s]; ok {
		return t
	}
	return FallbackTone
}

// IsActive reports whether the job is still in flight.
func IsActive(s model.Status) bool {
	switch s {
	case model.StatusPending, model.StatusQueued, model.StatusValidating,
		model.StatusCopying, model.StatusVerifying:
		return true
	}
	return false
}

// IsHistorical reports whether the job has reached a terminal status.
func IsHistorical(s model.Status) bool {
	switch s {
	case model.StatusCompleted, model.StatusFailed, model.StatusCancelled:
		return true
	}
	return false
}

// Partition splits jobs into the active and historical views, keeping
// input order. Jobs with an unknown status land in neither slice and are
// returned separately.
func Partition(jobs []model.TransferJob) (active, historical, unknown []model.TransferJob) {
	for _, j := range jobs {
		switch {
		case IsActive(j.Status):
			active = append(active, j)
		case IsHistorical(j.Status):
			historical = append(historical, j)
		default:
			unknown = append(unknown, j)
		}
	}
	return active, historical, unknown
}

// StatusLabel is the lower-case status as shown in prose. Unknown
// statuses show the raw wire token when there was one.
func StatusLabel(j model.TransferJob) string {
	if j.Status == model.StatusUnknown && j.RawStatus != "" {
		return j.RawStatus
	}
	return string(j.Status)
}

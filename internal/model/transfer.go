// Package model turns Automation Node JSON into validated records.
//
// Every fallback for a missing or malformed field is declared here once,
// so the view layer never has to guess at absent values.
package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Defaults applied when the node omits a field.
const (
	DefaultFileName          = "Unnamed transfer"
	DefaultSettleTimeSeconds = 30
	DefaultOperationMode     = "copy"
)

// TransferJob is one transfer as seen by the dashboard.
type TransferJob struct {
	ID               string     `json:"id"`
	Status           Status     `json:"status"`
	RawStatus        string     `json:"raw_status,omitempty"`
	SourcePath       string     `json:"source_path"`
	DestinationPath  string     `json:"destination_path"`
	FileName         string     `json:"file_name"`
	FileSize         int64      `json:"file_size"`
	FileCount        *int       `json:"file_count,omitempty"`
	IsFolderTransfer bool       `json:"is_folder_transfer"`
	WatchModeEnabled bool       `json:"watch_mode_enabled"`
	SettleTime       int        `json:"settle_time_seconds"`
	WatchContinuous  bool       `json:"watch_continuous"`
	OperationMode    string     `json:"operation_mode"`
	ProgressPercent  int        `json:"progress_percent"`
	BytesTransferred int64      `json:"bytes_transferred"`
	RetryCount       int        `json:"retry_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	WatchStartedAt   *time.Time `json:"watch_started_at,omitempty"`
	WatchTriggeredAt *time.Time `json:"watch_triggered_at,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
}

// TransferList is the paged response of the list and history endpoints.
type TransferList struct {
	Total int           `json:"total"`
	Items []TransferJob `json:"items"`
}

// ParseTransfer maps one raw transfer object.
func ParseTransfer(r gjson.Result) TransferJob {
	rawStatus := r.Get("status").String()
	job := TransferJob{
		ID:               idString(r.Get("id")),
		Status:           ParseStatus(rawStatus),
		SourcePath:       r.Get("source_path").String(),
		DestinationPath:  r.Get("destination_path").String(),
		FileName:         stringOr(r.Get("file_name"), DefaultFileName),
		FileSize:         nonNegative(r.Get("file_size").Int()),
		IsFolderTransfer: r.Get("is_folder_transfer").Bool(),
		WatchModeEnabled: r.Get("watch_mode_enabled").Bool(),
		SettleTime:       int(r.Get("settle_time_seconds").Int()),
		WatchContinuous:  r.Get("watch_continuous").Bool(),
		OperationMode:    stringOr(r.Get("operation_mode"), DefaultOperationMode),
		ProgressPercent:  clampPercent(r.Get("progress_percent").Int()),
		BytesTransferred: nonNegative(r.Get("bytes_transferred").Int()),
		RetryCount:       int(r.Get("retry_count").Int()),
		CreatedAt:        timeOrZero(r.Get("created_at")),
		UpdatedAt:        timeOrZero(r.Get("updated_at")),
		StartedAt:        optionalTime(r.Get("started_at")),
		CompletedAt:      optionalTime(r.Get("completed_at")),
		WatchStartedAt:   optionalTime(r.Get("watch_started_at")),
		WatchTriggeredAt: optionalTime(r.Get("watch_triggered_at")),
		ErrorMessage:     r.Get("error_message").String(),
	}
	if job.Status == StatusUnknown {
		job.RawStatus = rawStatus
	}
	if job.SettleTime <= 0 {
		job.SettleTime = DefaultSettleTimeSeconds
	}
	if fc := r.Get("file_count"); fc.Exists() && fc.Type == gjson.Number {
		n := int(fc.Int())
		job.FileCount = &n
	}
	return job
}

// ParseTransferList maps a list payload. A bare JSON array is accepted as
// well as the {"total", "items"} envelope; a missing total falls back to
// the number of items.
func ParseTransferList(r gjson.Result) TransferList {
	items := r.Get("items")
	if r.IsArray() {
		items = r
	}
	list := TransferList{Items: []TransferJob{}}
	items.ForEach(func(_, v gjson.Result) bool {
		if v.IsObject() {
			list.Items = append(list.Items, ParseTransfer(v))
		}
		return true
	})
	list.Total = len(list.Items)
	if t := r.Get("total"); t.Type == gjson.Number {
		list.Total = int(t.Int())
	}
	return list
}

// ChecksumRecord is one of the three independently computed digests.
type ChecksumRecord struct {
	Type            string     `json:"checksum_type"`
	Value           string     `json:"checksum_value"`
	DurationSeconds int        `json:"calculation_duration_seconds"`
	CalculatedAt    *time.Time `json:"calculated_at,omitempty"`
}

// ChecksumList groups the digests of one transfer.
type ChecksumList struct {
	TransferID string           `json:"transfer_id"`
	Items      []ChecksumRecord `json:"items"`
}

// ParseChecksumList maps the checksum endpoint payload.
func ParseChecksumList(r gjson.Result) ChecksumList {
	list := ChecksumList{TransferID: idString(r.Get("transfer_id")), Items: []ChecksumRecord{}}
	r.Get("items").ForEach(func(_, v gjson.Result) bool {
		list.Items = append(list.Items, ChecksumRecord{
			Type:            strings.ToLower(v.Get("checksum_type").String()),
			Value:           strings.ToLower(v.Get("checksum_value").String()),
			DurationSeconds: int(v.Get("calculation_duration_seconds").Int()),
			CalculatedAt:    optionalTime(v.Get("calculated_at")),
		})
		return true
	})
	return list
}

// AuditLogEntry is one audit event. Metadata is passed through untouched.
type AuditLogEntry struct {
	ID        string          `json:"id,omitempty"`
	EventType string          `json:"event_type"`
	Message   string          `json:"message"`
	CreatedAt time.Time       `json:"created_at"`
	Metadata  json.RawMessage `json:"event_metadata,omitempty"`
}

// AuditLogList is the audit trail of one transfer.
type AuditLogList struct {
	TransferID string          `json:"transfer_id"`
	Total      int             `json:"total"`
	Items      []AuditLogEntry `json:"items"`
}

// ParseAuditLogList maps the logs endpoint payload.
func ParseAuditLogList(r gjson.Result) AuditLogList {
	list := AuditLogList{TransferID: idString(r.Get("transfer_id")), Items: []AuditLogEntry{}}
	r.Get("items").ForEach(func(_, v gjson.Result) bool {
		entry := AuditLogEntry{
			ID:        idString(v.Get("id")),
			EventType: v.Get("event_type").String(),
			Message:   v.Get("message").String(),
			CreatedAt: timeOrZero(v.Get("created_at")),
		}
		if md := v.Get("event_metadata"); md.Exists() && md.Type != gjson.Null {
			entry.Metadata = json.RawMessage(md.Raw)
		}
		list.Items = append(list.Items, entry)
		return true
	})
	list.Total = len(list.Items)
	if t := r.Get("total"); t.Type == gjson.Number {
		list.Total = int(t.Int())
	}
	return list
}

// WatchFile is one file detected by a continuous watch.
type WatchFile struct {
	FileName            string     `json:"file_name"`
	FilePath            string     `json:"file_path"`
	FileSize            int64      `json:"file_size"`
	Status              Status     `json:"status"`
	ChecksumMatch       bool       `json:"checksum_match"`
	ErrorMessage        string     `json:"error_message,omitempty"`
	DetectedAt          time.Time  `json:"detected_at"`
	TransferCompletedAt *time.Time `json:"transfer_completed_at,omitempty"`
}

// WatchHistory summarizes what a watch-mode transfer has picked up.
type WatchHistory struct {
	TransferID     string      `json:"transfer_id"`
	TotalDetected  int         `json:"total_files_detected"`
	TotalCompleted int         `json:"total_files_completed"`
	TotalFailed    int         `json:"total_files_failed"`
	LastDetection  *time.Time  `json:"last_detection,omitempty"`
	WatchStartedAt *time.Time  `json:"watch_started_at,omitempty"`
	Files          []WatchFile `json:"files"`
}

// ParseWatchHistory maps the watch-history endpoint payload.
func ParseWatchHistory(r gjson.Result) WatchHistory {
	h := WatchHistory{
		TransferID:     idString(r.Get("transfer_id")),
		TotalDetected:  int(r.Get("total_files_detected").Int()),
		TotalCompleted: int(r.Get("total_files_completed").Int()),
		TotalFailed:    int(r.Get("total_files_failed").Int()),
		LastDetection:  optionalTime(r.Get("last_detection")),
		WatchStartedAt: optionalTime(r.Get("watch_started_at")),
		Files:          []WatchFile{},
	}
	r.Get("files").ForEach(func(_, v gjson.Result) bool {
		h.Files = append(h.Files, WatchFile{
			FileName:            stringOr(v.Get("file_name"), DefaultFileName),
			FilePath:            v.Get("file_path").String(),
			FileSize:            nonNegative(v.Get("file_size").Int()),
			Status:              ParseStatus(v.Get("status").String()),
			ChecksumMatch:       v.Get("checksum_match").Bool(),
			ErrorMessage:        v.Get("error_message").String(),
			DetectedAt:          timeOrZero(v.Get("detected_at")),
			TransferCompletedAt: optionalTime(v.Get("transfer_completed_at")),
		})
		return true
	})
	return h
}

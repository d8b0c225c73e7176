package model

import (
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"
)

// SystemStatus is the /status payload.
type SystemStatus struct {
	API       string    `json:"api"`
	Database  string    `json:"database"`
	Redis     string    `json:"redis"`
	Worker    string    `json:"worker"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// ParseSystemStatus maps the /status payload.
func ParseSystemStatus(r gjson.Result) SystemStatus {
	return SystemStatus{
		API:       stringOr(r.Get("api"), "Unknown"),
		Database:  stringOr(r.Get("database"), "Unknown"),
		Redis:     stringOr(r.Get("redis"), "Unknown"),
		Worker:    stringOr(r.Get("worker"), "Unknown"),
		Version:   r.Get("version").String(),
		Timestamp: timeOrZero(r.Get("timestamp")),
	}
}

// SystemHealth is the /health payload.
type SystemHealth struct {
	Status      string    `json:"status"`
	Service     string    `json:"service"`
	Version     string    `json:"version"`
	Environment string    `json:"environment"`
	Timestamp   time.Time `json:"timestamp"`
	Database    bool      `json:"database"`
	Redis       bool      `json:"redis"`
}

// ParseSystemHealth maps the /health payload.
func ParseSystemHealth(r gjson.Result) SystemHealth {
	return SystemHealth{
		Status:      stringOr(r.Get("status"), "Unknown"),
		Service:     stringOr(r.Get("service"), "ketter-api"),
		Version:     r.Get("version").String(),
		Environment: stringOr(r.Get("environment"), "development"),
		Timestamp:   timeOrZero(r.Get("timestamp")),
		Database:    r.Get("database").Bool(),
		Redis:       r.Get("redis").Bool(),
	}
}

// VolumeList is the /volumes and /volumes/available payload. Volume
// entries are node-defined and passed through for display.
type VolumeList struct {
	Server  json.RawMessage   `json:"server,omitempty"`
	Volumes []json.RawMessage `json:"volumes"`
}

// ParseVolumeList maps a volume listing.
func ParseVolumeList(r gjson.Result) VolumeList {
	list := VolumeList{Volumes: []json.RawMessage{}}
	if s := r.Get("server"); s.Exists() && s.Type != gjson.Null {
		list.Server = json.RawMessage(s.Raw)
	}
	r.Get("volumes").ForEach(func(_, v gjson.Result) bool {
		list.Volumes = append(list.Volumes, json.RawMessage(v.Raw))
		return true
	})
	return list
}

// PathValidation is the /volumes/validate payload.
type PathValidation struct {
	Valid bool   `json:"valid"`
	Path  string `json:"path"`
	Error string `json:"error,omitempty"`
}

// ParsePathValidation maps a path validation result.
func ParsePathValidation(r gjson.Result) PathValidation {
	return PathValidation{
		Valid: r.Get("valid").Bool(),
		Path:  r.Get("path").String(),
		Error: r.Get("error").String(),
	}
}

// ReloadResult is the /volumes/reload payload.
type ReloadResult struct {
	Message      string `json:"message"`
	VolumesCount int    `json:"volumes_count"`
}

// ParseReloadResult maps a reload acknowledgement.
func ParseReloadResult(r gjson.Result) ReloadResult {
	return ReloadResult{
		Message:      stringOr(r.Get("message"), "Configuration reloaded"),
		VolumesCount: int(r.Get("volumes_count").Int()),
	}
}

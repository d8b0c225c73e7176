package viewmodel

import "strings"

// HealthTone classifies a free-form component status string.
type HealthTone string

const (
	HealthOK       HealthTone = "ok"
	HealthWarn     HealthTone = "warn"
	HealthCritical HealthTone = "critical"
)

var (
	criticalMarkers = []string{"error", "fail", "unreachable", "disconnected", "unhealthy"}
	warnMarkers     = []string{"warn", "degrad", "pending"}
	okMarkers       = []string{"operational", "connected", "healthy"}
)

// HealthToneOf maps strings such as "operational", "degraded" or
// "connection failed" onto a tone. Critical markers are checked first so
// "disconnected" never reads as "connected". Empty and unrecognized
// values are warnings.
func HealthToneOf(value string) HealthTone {
	v := strings.ToLower(strings.TrimSpace(value))
	switch {
	case v == "":
		return HealthWarn
	case containsAny(v, criticalMarkers):
		return HealthCritical
	case containsAny(v, warnMarkers):
		return HealthWarn
	case v == "ok" || containsAny(v, okMarkers):
		return HealthOK
	}
	return HealthWarn
}

// HealthBool maps a boolean dependency flag from /health.
func HealthBool(up bool) HealthTone {
	if up {
		return HealthOK
	}
	return HealthCritical
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

package model

import (
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// timestamp layouts the node is known to emit; naive timestamps are UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTime parses a node timestamp, reporting false when absent or malformed.
func ParseTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func optionalTime(r gjson.Result) *time.Time {
	if r.Type != gjson.String {
		return nil
	}
	t, ok := ParseTime(r.Str)
	if !ok {
		return nil
	}
	return &t
}

func timeOrZero(r gjson.Result) time.Time {
	if t := optionalTime(r); t != nil {
		return *t
	}
	return time.Time{}
}

func stringOr(r gjson.Result, fallback string) string {
	if s := r.String(); r.Exists() && r.Type != gjson.Null && s != "" {
		return s
	}
	return fallback
}

// idString renders numeric and string identifiers alike.
func idString(r gjson.Result) string {
	switch r.Type {
	case gjson.Number:
		return strconv.FormatInt(r.Int(), 10)
	case gjson.String:
		return r.Str
	}
	return ""
}

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

func clampPercent(n int64) int {
	switch {
	case n < 0:
		return 0
	case n > 100:
		return 100
	}
	return int(n)
}

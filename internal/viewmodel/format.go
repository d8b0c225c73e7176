package viewmodel

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var byteUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FormatBytes renders n in the largest binary unit that keeps the
// magnitude at or above 1, rounded to two decimals. Zero and negative
// sizes render as "0 Bytes"; anything past TB stays in TB.
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	i, scaled := 0, float64(n)
	for scaled >= 1024 && i < len(byteUnits)-1 {
		scaled /= 1024
		i++
	}
	v := math.Round(scaled*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + byteUnits[i]
}

// HumanizeEvent turns an event token such as "transfer_created" into
// its badge label "TRANSFER CREATED".
func HumanizeEvent(eventType string) string {
	return strings.ToUpper(strings.ReplaceAll(eventType, "_", " "))
}

// WatchDuration formats the time between a watch starting and firing.
// The delta is floored to whole seconds. A negative delta is a data
// inconsistency: it renders as "0s" and anomaly is true.
func WatchDuration(started, triggered time.Time) (label string, anomaly bool) {
	d := triggered.Sub(started)
	if d < 0 {
		return "0s", true
	}
	return FormatSeconds(int64(d / time.Second)), false
}

// FormatSeconds renders whole seconds as "Ns", "Mm Ss" or "Hh Mm".
func FormatSeconds(secs int64) string {
	switch {
	case secs < 0:
		secs = 0
	case secs >= 3600:
		return fmt.Sprintf("%dh %dm", secs/3600, (secs%3600)/60)
	case secs >= 60:
		return fmt.Sprintf("%dm %ds", secs/60, secs%60)
	}
	return fmt.Sprintf("%ds", secs)
}

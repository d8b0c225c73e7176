package dashboard

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BadgerOps/transferwatch/internal/gateway"
)

// DefaultReleaseDelay is how long a report URL stays valid.
const DefaultReleaseDelay = 3 * time.Second

// ObjectURLs hands out short-lived URLs for in-memory report blobs. Each
// URL is released on first download or after the release delay,
// whichever comes first, and all of them on Close.
type ObjectURLs struct {
	delay    time.Duration
	onChange func(n int)

	mu      sync.Mutex
	entries map[string]*objectEntry
	closed  bool
}

type objectEntry struct {
	report *gateway.Report
	timer  *time.Timer
}

// NewObjectURLs creates a registry. onChange, when set, receives the
// number of live URLs after every change.
func NewObjectURLs(delay time.Duration, onChange func(n int)) *ObjectURLs {
	if delay <= 0 {
		delay = DefaultReleaseDelay
	}
	return &ObjectURLs{
		delay:    delay,
		onChange: onChange,
		entries:  make(map[string]*objectEntry),
	}
}

// Delay returns the release delay.
func (o *ObjectURLs) Delay() time.Duration { return o.delay }

// Create registers report and returns its token, or "" once closed.
func (o *ObjectURLs) Create(report *gateway.Report) string {
	token := uuid.NewString()

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ""
	}
	e := &objectEntry{report: report}
	e.timer = time.AfterFunc(o.delay, func() { o.Revoke(token) })
	o.entries[token] = e
	n := len(o.entries)
	o.mu.Unlock()

	o.notify(n)
	return token
}

// Take returns the report behind token and releases the URL.
func (o *ObjectURLs) Take(token string) (*gateway.Report, bool) {
	o.mu.Lock()
	e, ok := o.entries[token]
	if ok {
		e.timer.Stop()
		delete(o.entries, token)
	}
	n := len(o.entries)
	o.mu.Unlock()

	if !ok {
		return nil, false
	}
	o.notify(n)
	return e.report, true
}

// Revoke releases token without serving it.
func (o *ObjectURLs) Revoke(token string) bool {
	_, ok := o.Take(token)
	return ok
}

// Len returns the number of live URLs.
func (o *ObjectURLs) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

// Close releases every URL and refuses new ones.
func (o *ObjectURLs) Close() {
	o.mu.Lock()
	o.closed = true
	for token, e := range o.entries {
		e.timer.Stop()
		delete(o.entries, token)
	}
	o.mu.Unlock()
	o.notify(0)
}

func (o *ObjectURLs) notify(n int) {
	if o.onChange != nil {
		o.onChange(n)
	}
}

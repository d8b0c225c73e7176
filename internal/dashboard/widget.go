package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BadgerOps/transferwatch/internal/poller"
)

// State is the sync state a widget shows next to its data.
type State string

const (
	StateSyncing State = "syncing"
	StateOK      State = "ok"
	StateOffline State = "offline"
)

// Snapshot is the JSON view of one widget.
type Snapshot struct {
	Name        string    `json:"name"`
	State       State     `json:"state"`
	Data        any       `json:"data"`
	LastError   string    `json:"last_error,omitempty"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
	Interval    string    `json:"interval"`
	Fallback    string    `json:"fallback_interval"`
}

// Panel is a running dashboard widget.
type Panel interface {
	Name() string
	Start(ctx context.Context)
	Stop()
	Snapshot() Snapshot
}

// WidgetOptions carries the cadence and hooks of a widget.
type WidgetOptions struct {
	Interval         time.Duration
	FallbackInterval time.Duration
	Observer         poller.Observer
	Logger           *slog.Logger
	Clock            poller.Clock
}

// Widget is a subscription-backed presentation component: one poll
// subscription feeding one derived view.
type Widget[T any] struct {
	name   string
	fetch  poller.Fetcher[T]
	render func(T) any
	opts   WidgetOptions
	now    func() time.Time

	mu   sync.Mutex
	sub  *poller.Subscription
	gen  uint64
	snap Snapshot
}

// NewWidget builds a widget; render turns each fetched value into the
// snapshot data.
func NewWidget[T any](name string, fetch poller.Fetcher[T], render func(T) any, opts WidgetOptions) *Widget[T] {
	if opts.Interval <= 0 {
		opts.Interval = poller.DefaultInterval
	}
	if opts.FallbackInterval <= 0 {
		opts.FallbackInterval = poller.DefaultFallbackInterval
	}
	if opts.FallbackInterval < opts.Interval {
		opts.FallbackInterval = opts.Interval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Widget[T]{
		name:   name,
		fetch:  fetch,
		render: render,
		opts:   opts,
		now:    time.Now,
		snap: Snapshot{
			Name:     name,
			State:    StateSyncing,
			Interval: opts.Interval.String(),
			Fallback: opts.FallbackInterval.String(),
		},
	}
}

// Name returns the widget name used in routes and the journal.
func (w *Widget[T]) Name() string { return w.name }

// Start begins polling. Starting a running widget is a no-op.
func (w *Widget[T]) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sub != nil && w.sub.Active() {
		return
	}
	w.gen++
	gen := w.gen
	w.snap.State = StateSyncing
	w.sub = poller.Start(ctx, poller.Config[T]{
		Label:            w.name,
		Fetcher:          w.fetch,
		OnSuccess:        func(v T) { w.applySuccess(gen, v) },
		OnError:          func(err error) { w.applyError(gen, err) },
		Interval:         w.opts.Interval,
		FallbackInterval: w.opts.FallbackInterval,
		Observer:         w.opts.Observer,
		Logger:           w.opts.Logger,
		Clock:            w.opts.Clock,
	})
}

// Stop ends polling. A fetch already in flight finishes but its result
// is discarded.
func (w *Widget[T]) Stop() {
	w.mu.Lock()
	sub := w.sub
	w.mu.Unlock()
	if sub != nil {
		sub.Stop()
	}
}

// Snapshot returns a copy of the current view.
func (w *Widget[T]) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snap
}

// live reports whether gen is the running subscription. It must be
// called with w.mu held.
func (w *Widget[T]) live(gen uint64) bool {
	return gen == w.gen && w.sub != nil && w.sub.Active()
}

func (w *Widget[T]) applySuccess(gen uint64, v T) {
	data := w.render(v)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.live(gen) {
		w.opts.Logger.Debug("discarding result after stop", "widget", w.name)
		return
	}
	now := w.now()
	w.snap.State = StateOK
	w.snap.Data = data
	w.snap.LastError = ""
	w.snap.LastSuccess = now
	w.snap.UpdatedAt = now
}

func (w *Widget[T]) applyError(gen uint64, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.live(gen) {
		return
	}
	w.snap.State = StateOffline
	w.snap.LastError = err.Error()
	w.snap.UpdatedAt = w.now()
}

// Package poller runs a remote read forever on a dual cadence.
//
// Each subscription is one goroutine with its own timer. After a
// successful attempt the next one waits Interval; after a failure it
// waits FallbackInterval, which keeps a struggling node from being
// hammered. Attempts of one subscription never overlap, and retries never
// give up while the subscription is active.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Default cadences.
const (
	DefaultInterval         = 5 * time.Second
	DefaultFallbackInterval = 15 * time.Second
)

// Fetcher performs one read. The context is the one passed to Start;
// stopping a subscription does not cancel it.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Config describes one subscription.
type Config[T any] struct {
	Label            string
	Fetcher          Fetcher[T]
	OnSuccess        func(T)
	OnError          func(error)
	Interval         time.Duration
	FallbackInterval time.Duration
	Observer         Observer
	Logger           *slog.Logger
	Clock            Clock
}

func (c Config[T]) withDefaults() Config[T] {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.FallbackInterval <= 0 {
		c.FallbackInterval = DefaultFallbackInterval
	}
	if c.FallbackInterval < c.Interval {
		c.FallbackInterval = c.Interval
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Clock == nil {
		c.Clock = wallClock{}
	}
	if c.Label == "" {
		c.Label = "poll"
	}
	return c
}

// Attempt describes one finished fetch.
type Attempt struct {
	SubscriptionID string
	Label          string
	Number         int
	StartedAt      time.Time
	Duration       time.Duration
	Err            error
	NextDelay      time.Duration
}

// OK reports whether the attempt succeeded.
func (a Attempt) OK() bool { return a.Err == nil }

// Observer is notified after every attempt, once the callback has run.
type Observer interface {
	ObservePoll(Attempt)
}

// Observers fans one attempt out to several observers.
type Observers []Observer

func (o Observers) ObservePoll(a Attempt) {
	for _, obs := range o {
		if obs != nil {
			obs.ObservePoll(a)
		}
	}
}

// Subscription is the handle of a running poll loop.
type Subscription struct {
	id     string
	label  string
	active atomic.Bool
	done   chan struct{}
	exited chan struct{}

	mu       sync.Mutex
	timer    Timer
	inFlight bool
	stopOnce sync.Once
}

// Start launches a subscription. The first fetch is dispatched
// immediately. Cancelling ctx ends the loop the same way Stop does.
func Start[T any](ctx context.Context, cfg Config[T]) *Subscription {
	cfg = cfg.withDefaults()
	s := &Subscription{
		id:     uuid.NewString(),
		label:  cfg.Label,
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	s.active.Store(true)
	go run(ctx, s, cfg)
	return s
}

// ID uniquely identifies the subscription in logs and the journal.
func (s *Subscription) ID() string { return s.id }

// Label returns the diagnostic name given in Config.
func (s *Subscription) Label() string { return s.label }

// Active reports whether the subscription has not been stopped.
// Callbacks of an in-flight fetch can fire after Stop; owners check this
// before applying a result.
func (s *Subscription) Active() bool { return s.active.Load() }

// Done is closed by Stop.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Exited is closed once the loop goroutine has returned, after any
// in-flight fetch and its callback.
func (s *Subscription) Exited() <-chan struct{} { return s.exited }

// InFlight reports whether a fetch has been dispatched and its callback
// has not yet returned.
func (s *Subscription) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Stop clears the pending attempt and marks the subscription inactive.
// It is safe to call more than once. A fetch already in flight is not
// aborted. A fetch dispatched before Stop took the lock may begin
// executing after Stop returns; InFlight is true for it when Stop
// returns, and no other fetch starts afterwards.
func (s *Subscription) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.active.Store(false)
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
		close(s.done)
	})
}

// dispatch reports whether a new fetch may start and marks it in
// flight.
func (s *Subscription) dispatch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active.Load() {
		return false
	}
	s.inFlight = true
	return true
}

func (s *Subscription) settle() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

// arm records the pending timer, refusing it when already stopped.
func (s *Subscription) arm(t Timer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active.Load() {
		return false
	}
	s.timer = t
	return true
}

func run[T any](ctx context.Context, s *Subscription, cfg Config[T]) {
	defer close(s.exited)
	log := cfg.Logger.With("label", cfg.Label, "subscription", s.id)

	for n := 1; ; n++ {
		if ctx.Err() != nil {
			s.Stop()
			return
		}
		if !s.dispatch() {
			return
		}

		start := time.Now()
		err := attempt(ctx, cfg)
		elapsed := time.Since(start)

		delay := cfg.Interval
		if err != nil {
			delay = cfg.FallbackInterval
			log.Warn("poll attempt failed", "attempt", n, "error", err, "retry_in", delay)
			if cfg.OnError != nil {
				if perr := guard(func() { cfg.OnError(err) }); perr != nil {
					log.Error("error callback panicked", "attempt", n, "error", perr)
				}
			}
		}
		s.settle()

		if cfg.Observer != nil {
			cfg.Observer.ObservePoll(Attempt{
				SubscriptionID: s.id,
				Label:          cfg.Label,
				Number:         n,
				StartedAt:      start,
				Duration:       elapsed,
				Err:            err,
				NextDelay:      delay,
			})
		}

		timer := cfg.Clock.NewTimer(delay)
		if !s.arm(timer) {
			timer.Stop()
			return
		}
		select {
		case <-timer.C():
		case <-s.done:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			s.Stop()
			return
		}
	}
}

// attempt runs one fetch and its success callback. A panic in either is
// returned as an error so the loop keeps going at the fallback cadence.
func attempt[T any](ctx context.Context, cfg Config[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	result, err := cfg.Fetcher(ctx)
	if err != nil {
		return err
	}
	if cfg.OnSuccess != nil {
		cfg.OnSuccess(result)
	}
	return nil
}

// guard runs fn and converts a panic into an error.
func guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	fn()
	return nil
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}

package dashboard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions() WidgetOptions {
	return WidgetOptions{Interval: 10 * time.Millisecond, FallbackInterval: 20 * time.Millisecond}
}

func TestWidgetStartsSyncing(t *testing.T) {
	w := NewWidget("transfers", func(context.Context) (int, error) { return 1, nil },
		func(v int) any { return v }, WidgetOptions{})

	snap := w.Snapshot()
	assert.Equal(t, "transfers", snap.Name)
	assert.Equal(t, StateSyncing, snap.State)
	assert.Equal(t, "5s", snap.Interval)
	assert.Equal(t, "15s", snap.Fallback)
	assert.Nil(t, snap.Data)
}

func TestWidgetFallbackRaisedToInterval(t *testing.T) {
	w := NewWidget("status", func(context.Context) (int, error) { return 0, nil },
		func(v int) any { return v },
		WidgetOptions{Interval: 10 * time.Second, FallbackInterval: time.Second})
	assert.Equal(t, "10s", w.Snapshot().Fallback)
}

func TestWidgetGoesOfflineAndRecovers(t *testing.T) {
	var calls atomic.Int32
	w := NewWidget("health",
		func(context.Context) (string, error) {
			if calls.Add(1) == 1 {
				return "", errors.New("Network error: connection refused")
			}
			return "healthy", nil
		},
		func(v string) any { return v }, fastOptions())

	w.Start(context.Background())
	t.Cleanup(w.Stop)

	require.Eventually(t, func() bool {
		return w.Snapshot().State == StateOK
	}, 2*time.Second, 5*time.Millisecond)

	snap := w.Snapshot()
	assert.Equal(t, "healthy", snap.Data)
	assert.Empty(t, snap.LastError)
	assert.False(t, snap.LastSuccess.IsZero())
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestWidgetKeepsLastDataWhileOffline(t *testing.T) {
	var calls atomic.Int32
	w := NewWidget("transfers",
		func(context.Context) (int, error) {
			n := calls.Add(1)
			if n == 1 {
				return 42, nil
			}
			return 0, errors.New("boom")
		},
		func(v int) any { return v }, fastOptions())

	w.Start(context.Background())
	t.Cleanup(w.Stop)

	require.Eventually(t, func() bool {
		return w.Snapshot().State == StateOffline
	}, 2*time.Second, 5*time.Millisecond)

	snap := w.Snapshot()
	assert.Equal(t, 42, snap.Data)
	assert.Equal(t, "boom", snap.LastError)
}

func TestWidgetDiscardsResultAfterStop(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	w := NewWidget("alerts",
		func(context.Context) (int, error) {
			close(entered)
			<-release
			return 7, nil
		},
		func(v int) any { return v }, fastOptions())

	w.Start(context.Background())
	<-entered
	w.Stop()
	close(release)

	assert.Never(t, func() bool {
		return w.Snapshot().State != StateSyncing
	}, 100*time.Millisecond, 10*time.Millisecond)
	assert.Nil(t, w.Snapshot().Data)
}

func TestWidgetStartTwiceIsNoop(t *testing.T) {
	var calls atomic.Int32
	w := NewWidget("status",
		func(context.Context) (int, error) {
			calls.Add(1)
			return 0, nil
		},
		func(v int) any { return v },
		WidgetOptions{Interval: time.Hour, FallbackInterval: time.Hour})

	w.Start(context.Background())
	w.Start(context.Background())
	t.Cleanup(w.Stop)

	require.Eventually(t, func() bool { return w.Snapshot().State == StateOK }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWidgetIgnoresResultFromPreviousRun(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	w := NewWidget("transfers",
		func(context.Context) (int, error) {
			if calls.Add(1) == 1 {
				close(entered)
				<-release
				return 1, nil
			}
			return 2, nil
		},
		func(v int) any { return v },
		WidgetOptions{Interval: time.Hour, FallbackInterval: time.Hour})

	w.Start(context.Background())
	<-entered
	w.Stop()

	w.Start(context.Background())
	t.Cleanup(w.Stop)
	require.Eventually(t, func() bool { return w.Snapshot().Data == 2 }, 2*time.Second, 5*time.Millisecond)

	close(release)
	assert.Never(t, func() bool {
		return w.Snapshot().Data != 2
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestWidgetRenderPanicGoesOffline(t *testing.T) {
	w := NewWidget("status",
		func(context.Context) (int, error) { return 1, nil },
		func(int) any { panic("bad payload") },
		WidgetOptions{Interval: time.Hour, FallbackInterval: time.Hour})

	w.Start(context.Background())
	t.Cleanup(w.Stop)

	require.Eventually(t, func() bool { return w.Snapshot().State == StateOffline }, 2*time.Second, 5*time.Millisecond)
	assert.Contains(t, w.Snapshot().LastError, "bad payload")
}

package dashboard

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BadgerOps/transferwatch/internal/gateway"
)

func testReport() *gateway.Report {
	return &gateway.Report{TransferID: "1", Filename: "r.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}
}

func TestObjectURLsTakeOnce(t *testing.T) {
	o := NewObjectURLs(time.Minute, nil)
	defer o.Close()

	token := o.Create(testReport())
	require.NotEmpty(t, token)
	assert.Equal(t, 1, o.Len())

	r, ok := o.Take(token)
	require.True(t, ok)
	assert.Equal(t, "r.pdf", r.Filename)

	_, ok = o.Take(token)
	assert.False(t, ok)
	assert.Equal(t, 0, o.Len())
}

func TestObjectURLsReleasedAfterDelay(t *testing.T) {
	o := NewObjectURLs(20*time.Millisecond, nil)
	defer o.Close()

	token := o.Create(testReport())
	assert.Eventually(t, func() bool { return o.Len() == 0 }, time.Second, 5*time.Millisecond)

	_, ok := o.Take(token)
	assert.False(t, ok)
}

func TestObjectURLsCloseReleasesAll(t *testing.T) {
	var mu sync.Mutex
	var counts []int
	o := NewObjectURLs(time.Minute, func(n int) {
		mu.Lock()
		counts = append(counts, n)
		mu.Unlock()
	})

	o.Create(testReport())
	o.Create(testReport())
	o.Close()

	assert.Equal(t, 0, o.Len())
	assert.Empty(t, o.Create(testReport()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 0}, counts)
}

func TestObjectURLsDefaultDelay(t *testing.T) {
	o := NewObjectURLs(0, nil)
	defer o.Close()
	assert.Equal(t, DefaultReleaseDelay, o.Delay())
}

func TestObjectURLsRevoke(t *testing.T) {
	o := NewObjectURLs(time.Minute, nil)
	defer o.Close()

	token := o.Create(testReport())
	assert.True(t, o.Revoke(token))
	assert.False(t, o.Revoke(token))
}

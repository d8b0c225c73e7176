package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Options{BaseURL: srv.URL + "/api/v1", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://node", "http://user:pw@node", "node:8000"} {
		_, err := New(Options{BaseURL: raw})
		assert.Error(t, err, raw)
	}
}

func TestRequestSendsClientHeaderAndNormalizesPath(t *testing.T) {
	var gotPath, gotHeader, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeader = r.Header.Get("X-Ketter-Client")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	p, err := c.Request(context.Background(), "transfers", RequestOptions{
		Query: []Param{{"status", "copying"}, {"limit", 10}},
	})
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, "/api/v1/transfers", gotPath)
	assert.Equal(t, "UI", gotHeader)
	assert.Equal(t, "status=copying&limit=10", gotQuery)
	assert.True(t, p.JSON)
	assert.True(t, p.Result().Get("ok").Bool())
}

func TestBuildQuery(t *testing.T) {
	var nilInt *int
	seven := 7
	tests := []struct {
		name   string
		params []Param
		want   string
	}{
		{"empty", nil, ""},
		{"keeps order", []Param{{"b", 1}, {"a", 2}}, "?b=1&a=2"},
		{"skips nil and empty", []Param{{"a", nil}, {"b", ""}, {"c", nilInt}, {"d", "x"}}, "?d=x"},
		{"dereferences pointers", []Param{{"n", &seven}}, "?n=7"},
		{"zero is kept", []Param{{"offset", 0}}, "?offset=0"},
		{"encodes keys and values", []Param{{"a b", "/mnt/my dir&x"}}, "?a%20b=%2Fmnt%2Fmy%20dir%26x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildQuery(tt.params))
		})
	}
}

func TestRequestJSONBody(t *testing.T) {
	var gotType string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":1}`)
	})

	_, err := c.Request(context.Background(), "/transfers", RequestOptions{
		Method: http.MethodPost,
		Body:   map[string]any{"source_path": "/in"},
	})
	require.NoError(t, err)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "/in", gotBody["source_path"])
}

func TestRequestCallerContentTypeWins(t *testing.T) {
	var gotType string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusNoContent)
	})

	_, err := c.Request(context.Background(), "/x", RequestOptions{
		Method: http.MethodPost,
		Body:   map[string]string{"a": "b"},
		Header: http.Header{"content-type": []string{"application/vnd.node+json"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "application/vnd.node+json", gotType)
}

func TestRequestRawBodyPassesThrough(t *testing.T) {
	var gotType, gotBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusNoContent)
	})

	_, err := c.Request(context.Background(), "/upload", RequestOptions{
		Method: http.MethodPost,
		Body:   strings.NewReader("a=1&b=2"),
		Header: http.Header{"Content-Type": []string{"application/x-www-form-urlencoded"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "application/x-www-form-urlencoded", gotType)
	assert.Equal(t, "a=1&b=2", gotBody)
}

func TestRequestNoContentIsNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	p, err := c.Request(context.Background(), "/transfers/1", RequestOptions{Method: http.MethodDelete})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestRequestNonJSONSuccessReturnsText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})

	p, err := c.Request(context.Background(), "/ping", RequestOptions{})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.False(t, p.JSON)
	assert.Equal(t, "pong", p.Text())
	assert.False(t, p.Result().Exists())
	assert.Error(t, p.Decode(&struct{}{}))
}

func TestRequestHTTPErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail wins", http.StatusBadRequest, `{"detail":"D","message":"M"}`, "D"},
		{"message", http.StatusConflict, `{"message":"M"}`, "M"},
		{"error", http.StatusInternalServerError, `{"error":"E"}`, "E"},
		{"empty detail skipped", http.StatusBadRequest, `{"detail":"","error":"E"}`, "E"},
		{"structured detail", http.StatusUnprocessableEntity, `{"detail":[{"loc":"x"}]}`, `[{"loc":"x"}]`},
		{"plain text", http.StatusBadGateway, "oops", "oops"},
		{"json without keys", http.StatusBadRequest, `{"foo":1}`, `{"foo":1}`},
		{"empty body", http.StatusNotFound, "", "Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			p, err := c.Request(context.Background(), "/x", RequestOptions{})
			require.Error(t, err)
			assert.Nil(t, p)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, KindHTTP, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.want, apiErr.Message)
			assert.Equal(t, tt.status, StatusCode(err))
		})
	}
}

func TestRequestNetworkErrorHasZeroStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Options{BaseURL: base, Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.Request(context.Background(), "/status", RequestOptions{})
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.Equal(t, 0, StatusCode(err))
}

func TestRequestCancelledContextIsNetworkError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Request(ctx, "/status", RequestOptions{})
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.ErrorIs(t, err, context.Canceled)
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
	codes []int
}

func (o *recordingObserver) ObserveRequest(op string, code int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, op)
	o.codes = append(o.codes, code)
}

func TestRequestNotifiesObserver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	c, err := New(Options{BaseURL: srv.URL, Observer: obs})
	require.NoError(t, err)

	_, err = c.Status(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"status"}, obs.calls)
	assert.Equal(t, []int{http.StatusServiceUnavailable}, obs.codes)
}

func TestExtractMessage(t *testing.T) {
	assert.Equal(t, "D", ExtractMessage(`{"detail":"D","message":"M"}`, "fb"))
	assert.Equal(t, "M", ExtractMessage(`{"message":"M"}`, "fb"))
	assert.Equal(t, "oops", ExtractMessage("oops", "fb"))
	assert.Equal(t, "fb", ExtractMessage("  ", "fb"))
	assert.Equal(t, `["a"]`, ExtractMessage(`["a"]`, "fb"))
}

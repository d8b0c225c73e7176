// Package gateway is the HTTP client for the Automation Node REST API.
//
// Every call resolves against one base endpoint, carries the client
// identification header and comes back either as a *Payload (nil for an
// explicit null) or as an *APIError. The gateway never retries; retry
// policy belongs to the poller.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/BadgerOps/transferwatch/internal/safety"
)

const (
	// DefaultClientHeader is the identification header sent on every request.
	DefaultClientHeader = "X-Ketter-Client"
	// DefaultClientID is the value of the identification header.
	DefaultClientID = "UI"
	// DefaultMaxBodyBytes bounds JSON and error bodies.
	DefaultMaxBodyBytes = 32 << 20
	// DefaultMaxReportBytes bounds binary report downloads.
	DefaultMaxReportBytes = 512 << 20

	userAgent = "transferwatch/1.0"
)

// Options configures a Client. Only BaseURL is required.
type Options struct {
	BaseURL        string
	ClientHeader   string
	ClientID       string
	Timeout        time.Duration
	RateLimit      float64 // requests per second, 0 disables pacing
	MaxBodyBytes   int64
	MaxReportBytes int64
	HTTPClient     *http.Client
	Logger         *slog.Logger
	Observer       Observer
}

// Observer receives one call per completed request. StatusCode is 0 for
// transport failures.
type Observer interface {
	ObserveRequest(operation string, statusCode int, duration time.Duration)
}

// Client talks to one Automation Node. It holds read-only configuration
// and is safe for concurrent use.
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	logger         *slog.Logger
	defaultHeaders http.Header
	limiter        *rate.Limiter
	maxBodyBytes   int64
	maxReportBytes int64
	observer       Observer
}

// New validates opts and builds a Client.
func New(opts Options) (*Client, error) {
	base, err := safety.ParseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("configuring gateway: %w", err)
	}

	c := &Client{
		baseURL:        base,
		httpClient:     opts.HTTPClient,
		logger:         opts.Logger,
		defaultHeaders: http.Header{},
		maxBodyBytes:   opts.MaxBodyBytes,
		maxReportBytes: opts.MaxReportBytes,
		observer:       opts.Observer,
	}
	if c.httpClient == nil {
		c.httpClient = safety.NewHTTPClient(opts.Timeout)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.maxBodyBytes <= 0 {
		c.maxBodyBytes = DefaultMaxBodyBytes
	}
	if c.maxReportBytes <= 0 {
		c.maxReportBytes = DefaultMaxReportBytes
	}
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	header, id := opts.ClientHeader, opts.ClientID
	if header == "" {
		header = DefaultClientHeader
	}
	if id == "" {
		id = DefaultClientID
	}
	c.defaultHeaders.Set(header, id)
	c.defaultHeaders.Set("User-Agent", userAgent)

	return c, nil
}

// BaseURL returns the configured endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Param is one query parameter. Params keep their input order.
type Param struct {
	Key   string
	Value any
}

// RequestOptions describes a single call.
type RequestOptions struct {
	Method string
	Query  []Param
	// Body is JSON-encoded unless it is an io.Reader or []byte, which are
	// sent untouched (form and multipart payloads).
	Body   any
	Header http.Header
	// Operation names the call for logs and metrics.
	Operation string
}

// Payload is a successful, non-empty response body.
type Payload struct {
	StatusCode int
	Body       []byte
	// JSON is false when a 2xx body was not valid JSON; Body then holds
	// the raw text unchanged.
	JSON bool
}

// Text returns the body as a string.
func (p *Payload) Text() string {
	if p == nil {
		return ""
	}
	return string(p.Body)
}

// Result returns the parsed JSON document, or an empty result for a nil
// or non-JSON payload.
func (p *Payload) Result() gjson.Result {
	if p == nil || !p.JSON {
		return gjson.Result{}
	}
	return gjson.ParseBytes(p.Body)
}

// Decode unmarshals a JSON payload into v.
func (p *Payload) Decode(v any) error {
	if p == nil {
		return fmt.Errorf("decoding payload: null response")
	}
	if !p.JSON {
		return fmt.Errorf("decoding payload: response is not JSON")
	}
	return json.Unmarshal(p.Body, v)
}

// Request performs one JSON call. A 204 or empty 2xx response yields
// (nil, nil).
func (c *Client) Request(ctx context.Context, path string, opts RequestOptions) (*Payload, error) {
	resp, err := c.do(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.httpError(resp)
	}

	if resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	}

	body, err := safety.ReadAllWithLimit(resp.Body, c.maxBodyBytes)
	if err != nil {
		return nil, networkError(fmt.Errorf("reading response body: %w", err))
	}
	if len(body) == 0 {
		return nil, nil
	}

	payload := &Payload{StatusCode: resp.StatusCode, Body: body, JSON: gjson.ValidBytes(body)}
	if !payload.JSON {
		c.logger.Debug("non-JSON success response, returning raw text", "path", path, "bytes", len(body))
	}
	return payload, nil
}

// do builds and sends the request; the caller owns the response body.
func (c *Client) do(ctx context.Context, path string, opts RequestOptions) (*http.Response, error) {
	req, err := c.newRequest(ctx, path, opts)
	if err != nil {
		return nil, err
	}

	op := opts.Operation
	if op == "" {
		op = "request"
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, networkError(fmt.Errorf("waiting for request slot: %w", err))
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.observe(op, 0, elapsed)
		c.logger.Debug("gateway request failed", "operation", op, "method", req.Method, "path", req.URL.Path, "error", err)
		return nil, networkError(err)
	}

	c.observe(op, resp.StatusCode, elapsed)
	c.logger.Debug("gateway request", "operation", op, "method", req.Method, "path", req.URL.Path,
		"status", resp.StatusCode, "duration", elapsed)
	return resp, nil
}

func (c *Client) observe(op string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(op, status, d)
	}
}

func (c *Client) newRequest(ctx context.Context, path string, opts RequestOptions) (*http.Request, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	header := c.defaultHeaders.Clone()
	for k, vs := range opts.Header {
		header.Del(k)
		for _, v := range vs {
			header.Add(k, v)
		}
	}

	var body io.Reader
	switch b := opts.Body.(type) {
	case nil:
	case io.Reader:
		body = b
	case []byte:
		body = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, &APIError{Kind: KindValidation, StatusCode: 0, Message: fmt.Sprintf("encoding request body: %v", err), Err: err}
		}
		body = bytes.NewReader(data)
		if !hasHeader(header, "Content-Type") {
			header.Set("Content-Type", "application/json")
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path, opts.Query), body)
	if err != nil {
		return nil, networkError(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header = header
	return req, nil
}

// resolve joins path onto the base endpoint, normalizing the leading slash.
func (c *Client) resolve(path string, query []Param) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL.String() + path + BuildQuery(query)
}

// BuildQuery renders params as "?k=v&..." in input order, skipping nil and
// empty-string values. Keys and values are percent-encoded with %20 for
// spaces.
func BuildQuery(params []Param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		v, ok := queryValue(p.Value)
		if !ok {
			continue
		}
		parts = append(parts, encodeComponent(p.Key)+"="+encodeComponent(v))
	}
	if len(parts) == 0 {
		return ""
	}
	return "?" + strings.Join(parts, "&")
}

func queryValue(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		v = rv.Elem().Interface()
	}
	s := fmt.Sprint(v)
	if s == "" {
		return "", false
	}
	return s, true
}

func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func hasHeader(h http.Header, name string) bool {
	for k := range h {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// httpError builds the APIError for a non-2xx response, preferring the
// node's own message.
func (c *Client) httpError(resp *http.Response) *APIError {
	text := ""
	if body, err := safety.ReadAllWithLimit(resp.Body, c.maxBodyBytes); err == nil {
		text = string(body)
	}
	return &APIError{
		Kind:       KindHTTP,
		StatusCode: resp.StatusCode,
		Message:    ExtractMessage(text, statusPhrase(resp)),
	}
}

// ExtractMessage picks the human message out of an error body: the first
// truthy of detail, message, error; else the raw text; else fallback.
func ExtractMessage(text, fallback string) string {
	if strings.TrimSpace(text) == "" {
		return fallback
	}
	if gjson.Valid(text) {
		doc := gjson.Parse(text)
		if doc.IsObject() {
			for _, key := range []string{"detail", "message", "error"} {
				if v := doc.Get(key); truthy(v) {
					if v.Type == gjson.String {
						return v.Str
					}
					return v.Raw
				}
			}
		}
	}
	return text
}

func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.String:
		return v.Str != ""
	case gjson.Number:
		return v.Num != 0
	}
	return v.Exists()
}

func statusPhrase(resp *http.Response) string {
	if phrase := http.StatusText(resp.StatusCode); phrase != "" {
		return phrase
	}
	return "API request failed"
}

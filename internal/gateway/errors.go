package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies where a failed call broke down.
type Kind string

const (
	// KindNetwork means the transport itself failed: DNS, refused
	// connection, reset, cancelled context. StatusCode is always 0.
	KindNetwork Kind = "network"
	// KindHTTP means the node answered with a non-2xx status.
	KindHTTP Kind = "http"
	// KindValidation means a caller-side precondition failed before any
	// request was sent.
	KindValidation Kind = "validation"
)

// APIError is the single error type returned by the gateway.
type APIError struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	case KindValidation:
		return fmt.Sprintf("invalid request: %s", e.Message)
	}
	return fmt.Sprintf("network error: %s", e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func networkError(err error) *APIError {
	return &APIError{Kind: KindNetwork, StatusCode: 0, Message: err.Error(), Err: err}
}

func validationError(msg string) *APIError {
	return &APIError{Kind: KindValidation, StatusCode: 400, Message: msg}
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not
// an *APIError or the failure happened below HTTP.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindNetwork
}

// IsValidation reports whether err was raised locally before any request.
func IsValidation(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindValidation
}

// IsNotFound reports whether the node answered 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindHTTP && apiErr.StatusCode == 404
}

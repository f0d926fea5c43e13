package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError reports a non-2xx response from a Google API. Status 429 and
// 503 are transient and eligible for retry; everything else is terminal
// because it indicates a request or authorization problem a retry cannot
// fix.
type APIError struct {
	Status  int
	Message string
	Hint    string
	Body    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("API error (status %d): %s", e.Status, e.Message)
	if e.Hint != "" {
		msg += " — " + e.Hint
	}
	return msg
}

// Transient reports whether the error is expected to self-resolve with
// delay and may be retried.
func (e *APIError) Transient() bool {
	return e.Status == http.StatusTooManyRequests ||
		e.Status == http.StatusServiceUnavailable
}

// NetworkError reports a request that aborted before any response was
// obtained: connection failures and timeouts. Always retryable.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// googleErrorBody matches the standard Google API error envelope.
type googleErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// HintFor attaches a remediation hint to err when it is an APIError with
// the given status. Service clients use this to name the resource id the
// user should check on 403/404 responses.
func HintFor(err error, status int, hint string) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == status && apiErr.Hint == "" {
		apiErr.Hint = hint
	}
	return err
}

// newAPIError builds an APIError from a response body, extracting the
// structured message from the Google error envelope when present and
// falling back to the raw body text.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Body: string(body)}

	var parsed googleErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		apiErr.Message = parsed.Error.Message
	} else {
		apiErr.Message = string(body)
	}

	return apiErr
}

package cma

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// APIError is a non-2xx management API response.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	// ErrorID is the platform error id, e.g. NotFound, VersionMismatch, ValidationFailed.
	ErrorID   string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "management api %s %s failed: %s", e.Method, e.URL, e.Status)
	if e.ErrorID != "" {
		b.WriteString(": " + e.ErrorID)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.RequestID != "" {
		b.WriteString(" (request_id=" + e.RequestID + ")")
	}
	return b.String()
}

// IsNotFound reports whether err is a 404 from the management API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsVersionMismatch reports whether err is an optimistic-locking conflict.
func IsVersionMismatch(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusConflict || apiErr.ErrorID == "VersionMismatch")
}

func newAPIError(method, reqURL string, resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		Method:     method,
		URL:        safeURL(reqURL),
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		RequestID:  strings.TrimSpace(resp.Header.Get(requestIDHeader)),
	}
	if apiErr.Status == "" {
		apiErr.Status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var payload struct {
		Sys struct {
			ID string `json:"id"`
		} `json:"sys"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.ErrorID = strings.TrimSpace(payload.Sys.ID)
		apiErr.Message = strings.TrimSpace(payload.Message)
		if apiErr.RequestID == "" {
			apiErr.RequestID = strings.TrimSpace(payload.RequestID)
		}
		return apiErr
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" || strings.HasPrefix(msg, "<!DOCTYPE html") || strings.HasPrefix(msg, "<html") {
		return apiErr
	}
	msg = strings.Join(strings.Fields(msg), " ")
	const maxLen = 300
	if len(msg) > maxLen {
		msg = msg[:maxLen] + "..."
	}
	apiErr.Message = msg
	return apiErr
}

func safeURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Scheme + "://" + u.Host + u.Path
}

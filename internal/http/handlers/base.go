// Package handlers contains the JSON API handlers for the configuration screen and the entry
// editor.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ceros-embed/ceros-embed/internal/cma"
	"github.com/ceros-embed/ceros-embed/internal/config"
	"github.com/ceros-embed/ceros-embed/internal/configscreen"
	"github.com/ceros-embed/ceros-embed/internal/entryeditor"
	"github.com/ceros-embed/ceros-embed/internal/fieldmap"
	"github.com/ceros-embed/ceros-embed/internal/provision"
	"github.com/labstack/echo/v5"
)

const (
	// ContextKeyRequestID stores the request id (X-Request-ID) for logging and client error references.
	ContextKeyRequestID = "request_id"

	// InternalErrorCode is a stable error code safe to return to clients.
	InternalErrorCode = "INTERNAL_ERROR"

	maxBodyBytes = 1 << 20

	messageVersionConflict = "This entry was changed by someone else. Reload it and try again."
)

var errInvalidBody = errors.New("invalid request body")

// EntrySource loads a single entry for editing.
type EntrySource interface {
	LoadEntry(ctx context.Context, id string) (entryeditor.Entry, error)
}

// Handlers groups all HTTP handlers and shared dependencies.
type Handlers struct {
	Cfg     config.Config
	Screen  *configscreen.Screen
	Params  configscreen.ParameterStore
	Entries EntrySource
	Fetcher entryeditor.Fetcher
	Locks   *EntryLocks
	Logger  *slog.Logger
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	RequestID string            `json:"requestId,omitempty"`
	Entry     *entryeditor.View `json:"entry,omitempty"`
}

// HandleHealthz returns a simple health check response.
func (h *Handlers) HandleHealthz(c *echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// RenderError logs err and returns a generic 500 response carrying the request id.
func (h *Handlers) RenderError(c *echo.Context, err error) error {
	requestID := RequestID(c)
	method, path := "", ""
	if req := c.Request(); req != nil {
		method = req.Method
		if req.URL != nil {
			path = req.URL.Path
		}
	}
	c.Logger().Error("http error",
		"request_id", requestID,
		"method", method,
		"path", path,
		"ip", c.RealIP(),
		"error", err,
	)

	msg := "Internal server error."
	if requestID != "" {
		msg = fmt.Sprintf("%s Reference: %s.", msg, requestID)
	}
	msg = fmt.Sprintf("%s Code: %s.", msg, InternalErrorCode)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: InternalErrorCode, Message: msg, RequestID: requestID})
}

// renderFailure maps a domain error to its status code and user message. Unknown errors are
// rendered as internal errors.
func (h *Handlers) renderFailure(c *echo.Context, err error, view *entryeditor.View) error {
	status, code, msg := classify(err)
	if status == http.StatusInternalServerError {
		return h.RenderError(c, err)
	}
	if status >= http.StatusInternalServerError {
		c.Logger().Warn("upstream failure", "request_id", RequestID(c), "code", code, "error", err)
	}
	return c.JSON(status, ErrorResponse{Error: code, Message: msg, RequestID: RequestID(c), Entry: view})
}

func classify(err error) (int, string, string) {
	var (
		vErr    *fieldmap.ValidationError
		pErr    *provision.ProvisioningError
		lErr    *configscreen.LoadError
		sErr    *configscreen.SaveError
		perErr  *entryeditor.PersistError
		apiErr  *cma.APIError
		screenM = configscreen.UserMessage(err)
		entryM  = entryeditor.UserMessage(err)
	)
	switch {
	case errors.Is(err, errInvalidBody):
		return http.StatusBadRequest, "bad_request", "The request body is not valid JSON."
	case errors.As(err, &vErr):
		return http.StatusUnprocessableEntity, string(vErr.Kind), screenM
	case errors.As(err, &pErr):
		return http.StatusBadGateway, "provisioning_failed", screenM
	case errors.As(err, &sErr):
		return http.StatusBadGateway, "save_failed", screenM
	case errors.As(err, &lErr):
		return http.StatusBadGateway, "load_failed", screenM
	case errors.Is(err, entryeditor.ErrBusy):
		return http.StatusConflict, "busy", entryM
	case errors.Is(err, entryeditor.ErrInvalidState):
		return http.StatusConflict, "invalid_state", entryM
	case errors.Is(err, entryeditor.ErrNotConfigured):
		return http.StatusConflict, "not_configured", entryM
	case errors.Is(err, entryeditor.ErrContentTypeMismatch):
		return http.StatusConflict, "content_type_mismatch", entryM
	case errors.Is(err, entryeditor.ErrInvalidURL):
		return http.StatusUnprocessableEntity, "invalid_url", entryM
	case errors.Is(err, entryeditor.ErrRefreshFailed):
		return http.StatusUnprocessableEntity, "refresh_failed", entryM
	case cma.IsVersionMismatch(err):
		return http.StatusConflict, "version_conflict", messageVersionConflict
	case errors.As(err, &perErr):
		return http.StatusBadGateway, "persist_failed", entryM
	case cma.IsNotFound(err):
		return http.StatusNotFound, "not_found", "The entry could not be found."
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, "upstream_error", "The content platform rejected the request. Please try again."
	}
	return http.StatusInternalServerError, InternalErrorCode, ""
}

// RequestID returns the id assigned to the current request.
func RequestID(c *echo.Context) string {
	id, _ := c.Get(ContextKeyRequestID).(string)
	return id
}

func decodeJSON(c *echo.Context, v any) error {
	req := c.Request()
	if req.Body == nil {
		return errInvalidBody
	}
	dec := json.NewDecoder(io.LimitReader(req.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

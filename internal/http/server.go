package httpapp

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ceros-embed/ceros-embed/internal/http/handlers"
	"github.com/ceros-embed/ceros-embed/internal/logging"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
)

const maxRequestIDLength = 128

// EchoServer is the HTTP server wrapper.
type EchoServer struct {
	h *handlers.Handlers
	e *echo.Echo
}

// NewEchoServer creates a new HTTP server.
func NewEchoServer(h *handlers.Handlers, logger *slog.Logger) (*EchoServer, error) {
	if h == nil || h.Screen == nil || h.Params == nil || h.Entries == nil || h.Fetcher == nil {
		return nil, errors.New("http: handlers are missing dependencies")
	}
	if h.Locks == nil {
		h.Locks = handlers.NewEntryLocks()
	}
	logger = logging.OrDiscard(logger)
	if h.Logger == nil {
		h.Logger = logger
	}

	e := echo.New()
	e.Logger = logger.With("component", "http")
	es := &EchoServer{h: h, e: e}
	e.HTTPErrorHandler = es.httpErrorHandler
	e.Use(requestID)
	e.Use(middleware.Recover())
	if origins := h.Cfg.CORSOrigins; len(origins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: origins}))
	}
	es.registerRoutes()
	return es, nil
}

func (es *EchoServer) registerRoutes() {
	es.e.GET("/healthz", es.h.HandleHealthz)

	api := es.e.Group("/api")
	api.GET("/config", es.h.HandleGetConfig)
	api.POST("/config", es.h.HandleConfigure)
	api.POST("/config/derive", es.h.HandleDeriveConfig)
	api.GET("/entries/:id", es.h.HandleGetEntry)
	api.POST("/entries/:id/link", es.h.HandleLinkEntry)
	api.POST("/entries/:id/unlink", es.h.HandleUnlinkEntry)
	api.POST("/entries/:id/refresh", es.h.HandleRefreshEntry)
}

// Handler returns the root handler, for use in an http.Server.
func (es *EchoServer) Handler() http.Handler {
	return es.e
}

// requestID reuses a sane inbound X-Request-ID or assigns a new one.
func requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := strings.TrimSpace(c.Request().Header.Get(echo.HeaderXRequestID))
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		c.Set(handlers.ContextKeyRequestID, id)
		c.Response().Header().Set(echo.HeaderXRequestID, id)
		return next(c)
	}
}

type statusCoder interface {
	StatusCode() int
}

func httpStatusFromError(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code >= 400 && code <= 599 {
			return code
		}
	}
	return http.StatusInternalServerError
}

// httpErrorHandler renders router and middleware errors. Messages attached to them are never
// sent to the client.
func (es *EchoServer) httpErrorHandler(c *echo.Context, err error) {
	status := httpStatusFromError(err)
	if status == http.StatusInternalServerError {
		_ = es.h.RenderError(c, err)
		return
	}

	msg := http.StatusText(status)
	code := strings.ToLower(strings.ReplaceAll(msg, " ", "_"))
	if status == http.StatusNotFound {
		msg = "404 page not found"
	}
	_ = c.JSON(status, handlers.ErrorResponse{Error: code, Message: msg, RequestID: handlers.RequestID(c)})
}

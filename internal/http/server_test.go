package httpapp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ceros-embed/ceros-embed/internal/configscreen"
	"github.com/ceros-embed/ceros-embed/internal/entryeditor"
	"github.com/ceros-embed/ceros-embed/internal/fieldmap"
	"github.com/ceros-embed/ceros-embed/internal/http/handlers"
	"github.com/ceros-embed/ceros-embed/internal/oembed"
	"github.com/labstack/echo/v5"
)

type stubStore struct{ params fieldmap.Parameters }

func (s *stubStore) LoadParameters(context.Context) (fieldmap.Parameters, error) { return s.params, nil }
func (s *stubStore) SaveParameters(_ context.Context, p fieldmap.Parameters) error {
	s.params = p
	return nil
}

type stubTypes struct{}

func (stubTypes) ContentTypes(context.Context) ([]fieldmap.Descriptor, error) { return nil, nil }

type stubProvisioner struct{}

func (stubProvisioner) EnsureDefaultContentType(context.Context) (fieldmap.Parameters, error) {
	return fieldmap.NewDefaultContentType("cerosExperience").Mapping(), nil
}

func (stubProvisioner) EnsureEditorRegistration(context.Context, string) (bool, error) {
	return false, nil
}

type stubEntries struct{}

func (stubEntries) LoadEntry(context.Context, string) (entryeditor.Entry, error) {
	return nil, errors.New("not used")
}

type stubFetcher struct{}

func (stubFetcher) Fetch(context.Context, string) (oembed.Metadata, error) {
	return oembed.Metadata{}, oembed.ErrNoMetadata
}

func newTestServer(t *testing.T) *EchoServer {
	t.Helper()
	store := &stubStore{}
	def := fieldmap.NewDefaultContentType("cerosExperience")
	screen, err := configscreen.New(store, stubTypes{}, stubProvisioner{}, def, nil)
	if err != nil {
		t.Fatalf("configscreen.New error: %v", err)
	}
	es, err := NewEchoServer(&handlers.Handlers{
		Screen:  screen,
		Params:  store,
		Entries: stubEntries{},
		Fetcher: stubFetcher{},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewEchoServer error: %v", err)
	}
	return es
}

func TestNewEchoServerRequiresDependencies(t *testing.T) {
	if _, err := NewEchoServer(&handlers.Handlers{}, nil); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}

func TestRoutesAndRequestID(t *testing.T) {
	es := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	es.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "ok" {
		t.Fatalf("healthz status=%d body=%q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatal("missing generated request id")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/config", nil)
	req.Header.Set(echo.HeaderXRequestID, "client-id-1")
	rec = httptest.NewRecorder()
	es.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("config status=%d body=%s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(echo.HeaderXRequestID); got != "client-id-1" {
		t.Fatalf("request id = %q, want inbound id", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/config", strings.NewReader(`{"parameters":{"contentTypeId":"__create_default__"}}`))
	rec = httptest.NewRecorder()
	es.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("configure status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestHTTPErrorHandlerInternalErrorIsGeneric(t *testing.T) {
	es := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "http://example.com/test", nil)
	rec := httptest.NewRecorder()
	c := es.e.NewContext(req, rec)
	c.Set(handlers.ContextKeyRequestID, "req-123")

	es.httpErrorHandler(c, errors.New("very sensitive error"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusInternalServerError)
	}
	body := rec.Body.String()
	if strings.Contains(body, "very sensitive") {
		t.Fatalf("response leaked error details: %q", body)
	}
	if !strings.Contains(body, "Reference: req-123") {
		t.Fatalf("response missing request reference: %q", body)
	}
	if !strings.Contains(body, "Code: "+handlers.InternalErrorCode) {
		t.Fatalf("response missing error code: %q", body)
	}
}

func TestHTTPErrorHandlerNotFoundDoesNotLeakMessage(t *testing.T) {
	es := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "http://example.com/missing", nil)
	rec := httptest.NewRecorder()
	c := es.e.NewContext(req, rec)

	es.httpErrorHandler(c, echo.NewHTTPError(http.StatusNotFound, "leaky not found"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d want %d", rec.Code, http.StatusNotFound)
	}
	var resp handlers.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Contains(resp.Message, "leaky") || resp.Message != "404 page not found" || resp.Error != "not_found" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestUnknownRouteIsJSONNotFound(t *testing.T) {
	es := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	es.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "404 page not found") {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestHTTPStatusFromErrorUsesStatusCoder(t *testing.T) {
	if got := httpStatusFromError(echo.ErrNotFound); got != http.StatusNotFound {
		t.Fatalf("status=%d want %d", got, http.StatusNotFound)
	}
	if got := httpStatusFromError(echo.ErrForbidden); got != http.StatusForbidden {
		t.Fatalf("status=%d want %d", got, http.StatusForbidden)
	}
	if got := httpStatusFromError(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("status=%d want %d", got, http.StatusInternalServerError)
	}
}

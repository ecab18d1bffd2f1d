// Package cma is a small client for the content platform's Content Management API.
package cma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ceros-embed/ceros-embed/internal/metrics"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultPageSize  = 100
	defaultRateLimit = 7
	maxRetriesOn429  = 3
	maxErrorBodySize = 1 << 20 // 1 MiB

	contentTypeJSON = "application/vnd.contentful.management.v1+json"
	versionHeader   = "X-Contentful-Version"
	rateResetHeader = "X-Contentful-RateLimit-Reset"
	requestIDHeader = "X-Contentful-Request-Id"
)

type Client struct {
	BaseURL       string
	Token         string
	SpaceID       string
	EnvironmentID string
	HTTP          *http.Client
	Limiter       *rate.Limiter
}

type Options struct {
	BaseURL       string
	Token         string
	SpaceID       string
	EnvironmentID string
	// RateLimit caps outgoing requests per second. Zero uses the platform's default quota.
	RateLimit float64
	Timeout   time.Duration
}

// New creates a management API client scoped to one space environment.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	token := strings.TrimSpace(opts.Token)
	space := strings.TrimSpace(opts.SpaceID)
	env := strings.TrimSpace(opts.EnvironmentID)

	if base == "" {
		return nil, errors.New("management API base URL is required")
	}
	if token == "" {
		return nil, errors.New("management API token is required")
	}
	if space == "" {
		return nil, errors.New("space id is required")
	}
	if env == "" {
		env = "master"
	}
	limit := opts.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		BaseURL:       base,
		Token:         token,
		SpaceID:       space,
		EnvironmentID: env,
		HTTP:          &http.Client{Timeout: timeout},
		Limiter:       rate.NewLimiter(rate.Limit(limit), int(limit)+1),
	}, nil
}

func (c *Client) ensureClient() error {
	if c.BaseURL == "" {
		return errors.New("management API base URL is required")
	}
	if c.Token == "" || c.SpaceID == "" {
		return errors.New("management API token and space id are required")
	}
	if c.HTTP == nil {
		return errors.New("management API http client is not configured")
	}
	return nil
}

// ListContentTypes returns every content type in the environment.
func (c *Client) ListContentTypes(ctx context.Context) ([]ContentType, error) {
	var out []ContentType
	for skip := 0; ; {
		var page collection[ContentType]
		q := url.Values{}
		q.Set("limit", strconv.Itoa(defaultPageSize))
		q.Set("skip", strconv.Itoa(skip))
		if err := c.do(ctx, http.MethodGet, c.envPath("content_types"), q, 0, nil, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
		skip += len(page.Items)
		if len(page.Items) == 0 || skip >= page.Total {
			break
		}
	}
	return out, nil
}

// GetContentType returns the current (possibly unpublished) version of a content type.
func (c *Client) GetContentType(ctx context.Context, id string) (ContentType, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return ContentType{}, errors.New("content type id is required")
	}
	var out ContentType
	err := c.do(ctx, http.MethodGet, c.envPath("content_types", id), nil, 0, nil, &out)
	return out, err
}

// CreateContentTypeWithID creates a content type under a caller-chosen id.
func (c *Client) CreateContentTypeWithID(ctx context.Context, id string, draft ContentTypeDraft) (ContentType, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return ContentType{}, errors.New("content type id is required")
	}
	var out ContentType
	err := c.do(ctx, http.MethodPut, c.envPath("content_types", id), nil, 0, draft, &out)
	return out, err
}

// PublishContentType publishes version of the content type.
func (c *Client) PublishContentType(ctx context.Context, id string, version int) (ContentType, error) {
	var out ContentType
	err := c.do(ctx, http.MethodPut, c.envPath("content_types", id, "published"), nil, version, nil, &out)
	return out, err
}

func (c *Client) GetEditorInterface(ctx context.Context, contentTypeID string) (EditorInterface, error) {
	var out EditorInterface
	err := c.do(ctx, http.MethodGet, c.envPath("content_types", contentTypeID, "editor_interface"), nil, 0, nil, &out)
	return out, err
}

// UpdateEditorInterface persists ei using ei.Sys.Version for optimistic locking.
func (c *Client) UpdateEditorInterface(ctx context.Context, contentTypeID string, ei EditorInterface) (EditorInterface, error) {
	body := struct {
		Controls     json.RawMessage `json:"controls,omitempty"`
		Sidebar      json.RawMessage `json:"sidebar,omitempty"`
		EditorLayout json.RawMessage `json:"editorLayout,omitempty"`
		Editors      []Editor        `json:"editors"`
	}{
		Controls:     ei.Controls,
		Sidebar:      ei.Sidebar,
		EditorLayout: ei.EditorLayout,
		Editors:      ei.Editors,
	}
	if body.Editors == nil {
		body.Editors = []Editor{}
	}
	var out EditorInterface
	err := c.do(ctx, http.MethodPut, c.envPath("content_types", contentTypeID, "editor_interface"), nil, ei.Sys.Version, body, &out)
	return out, err
}

func (c *Client) GetEntry(ctx context.Context, id string) (Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Entry{}, errors.New("entry id is required")
	}
	var out Entry
	err := c.do(ctx, http.MethodGet, c.envPath("entries", id), nil, 0, nil, &out)
	return out, err
}

// UpdateEntry writes all fields of entry using entry.Sys.Version for optimistic locking.
func (c *Client) UpdateEntry(ctx context.Context, entry Entry) (Entry, error) {
	fields := entry.Fields
	if fields == nil {
		fields = map[string]map[string]any{}
	}
	body := struct {
		Fields map[string]map[string]any `json:"fields"`
	}{Fields: fields}
	var out Entry
	err := c.do(ctx, http.MethodPut, c.envPath("entries", entry.Sys.ID), nil, entry.Sys.Version, body, &out)
	return out, err
}

func (c *Client) GetAppInstallation(ctx context.Context, appDefinitionID string) (AppInstallation, error) {
	var out AppInstallation
	err := c.do(ctx, http.MethodGet, c.envPath("app_installations", appDefinitionID), nil, 0, nil, &out)
	return out, err
}

// PutAppInstallation installs the app or replaces its installation parameters wholesale.
func (c *Client) PutAppInstallation(ctx context.Context, appDefinitionID string, parameters any) (AppInstallation, error) {
	raw, err := json.Marshal(parameters)
	if err != nil {
		return AppInstallation{}, err
	}
	body := struct {
		Parameters json.RawMessage `json:"parameters"`
	}{Parameters: raw}
	var out AppInstallation
	err = c.do(ctx, http.MethodPut, c.envPath("app_installations", appDefinitionID), nil, 0, body, &out)
	return out, err
}

func (c *Client) envPath(parts ...string) string {
	segments := []string{"spaces", url.PathEscape(c.SpaceID), "environments", url.PathEscape(c.EnvironmentID)}
	for _, p := range parts {
		segments = append(segments, url.PathEscape(strings.TrimSpace(p)))
	}
	return "/" + strings.Join(segments, "/")
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, version int, in, out any) error {
	if err := c.ensureClient(); err != nil {
		return err
	}

	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return err
		}
	}

	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetriesOn429; attempt++ {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return err
			}
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.Token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "ceros-embed")
		if payload != nil {
			req.Header.Set("Content-Type", contentTypeJSON)
		}
		if version > 0 {
			req.Header.Set(versionHeader, strconv.Itoa(version))
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			metrics.CMARequestsTotal.WithLabelValues(method, "error").Inc()
			return err
		}
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		resp.Body.Close()
		metrics.CMARequestsTotal.WithLabelValues(method, statusClass(resp.StatusCode)).Inc()
		if readErr != nil {
			return readErr
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			metrics.CMARateLimitedTotal.Inc()
			lastErr = newAPIError(method, endpoint, resp, respBody)
			if attempt == maxRetriesOn429 {
				return lastErr
			}
			wait, ok := retryAfterDuration(resp.Header.Get(rateResetHeader))
			if !ok {
				wait, ok = retryAfterDuration(resp.Header.Get("Retry-After"))
			}
			if !ok {
				wait = time.Second
			}
			if err := sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return newAPIError(method, endpoint, resp, respBody)
		}
		if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, safeURL(endpoint), err)
		}
		return nil
	}
	if lastErr != nil {
		return lastErr
	}
	return errors.New("management API request failed")
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

func retryAfterDuration(header string) (time.Duration, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

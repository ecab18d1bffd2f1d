// Package oembed fetches embeddable metadata for Ceros experiences from an oEmbed endpoint.
package oembed

import (
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
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	defaultTimeout  = 30 * time.Second
	maxRetriesOn429 = 2
	maxBodySize     = 1 << 20 // 1 MiB
)

// ErrNoMetadata is returned (wrapped) for every fetch failure: an invalid URL, an unpublished
// experience and a network error all look the same to callers.
var ErrNoMetadata = errors.New("experience metadata unavailable")

// Metadata is the normalized oEmbed payload for one experience.
type Metadata struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	HTML         string `json:"html"`
	Type         string `json:"type,omitempty"`
	Version      string `json:"version,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
	ProviderURL  string `json:"provider_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
}

type Client struct {
	Endpoint     string
	AllowedHosts []string
	HTTP         *http.Client
}

// New creates an oEmbed client. An empty allowedHosts list accepts experience URLs on any host.
func New(endpoint string, allowedHosts []string) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("oembed endpoint is required")
	}
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("oembed endpoint %q is not an absolute http(s) URL", endpoint)
	}

	hosts := make([]string, 0, len(allowedHosts))
	for _, h := range allowedHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hosts = append(hosts, h)
		}
	}

	return &Client{
		Endpoint:     endpoint,
		AllowedHosts: hosts,
		HTTP:         &http.Client{Timeout: defaultTimeout},
	}, nil
}

// Fetch retrieves metadata for experienceURL. All failures wrap ErrNoMetadata.
func (c *Client) Fetch(ctx context.Context, experienceURL string) (Metadata, error) {
	start := time.Now()
	md, err := c.fetch(ctx, experienceURL)
	status := "ok"
	if err != nil {
		status = "failed"
	}
	metrics.OEmbedFetchesTotal.WithLabelValues(status).Inc()
	metrics.OEmbedFetchDuration.Observe(time.Since(start).Seconds())
	return md, err
}

func (c *Client) fetch(ctx context.Context, experienceURL string) (Metadata, error) {
	if c.HTTP == nil {
		return Metadata{}, errors.New("oembed http client is not configured")
	}
	target, err := c.NormalizeURL(experienceURL)
	if err != nil {
		return Metadata{}, err
	}

	endpoint, err := c.endpoint(target)
	if err != nil {
		return Metadata{}, err
	}
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return Metadata{}, err
	}

	var payload struct {
		Title        string          `json:"title"`
		URL          string          `json:"url"`
		HTML         string          `json:"html"`
		Type         string          `json:"type"`
		Version      json.RawMessage `json:"version"`
		ProviderName string          `json:"provider_name"`
		ProviderURL  string          `json:"provider_url"`
		ThumbnailURL string          `json:"thumbnail_url"`
		Width        json.RawMessage `json:"width"`
		Height       json.RawMessage `json:"height"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Metadata{}, fmt.Errorf("%w: decode response: %w", ErrNoMetadata, err)
	}

	md := Metadata{
		Title:        strings.TrimSpace(payload.Title),
		URL:          strings.TrimSpace(payload.URL),
		HTML:         strings.TrimSpace(payload.HTML),
		Type:         strings.TrimSpace(payload.Type),
		Version:      looseString(payload.Version),
		ProviderName: strings.TrimSpace(payload.ProviderName),
		ProviderURL:  strings.TrimSpace(payload.ProviderURL),
		ThumbnailURL: strings.TrimSpace(payload.ThumbnailURL),
		Width:        looseInt(payload.Width),
		Height:       looseInt(payload.Height),
	}
	if md.URL == "" {
		md.URL = target
	}
	if md.Title == "" {
		return Metadata{}, fmt.Errorf("%w: response has no title", ErrNoMetadata)
	}
	if !HasMarkup(md.HTML) {
		return Metadata{}, fmt.Errorf("%w: response has no embeddable markup", ErrNoMetadata)
	}
	return md, nil
}

// NormalizeURL trims and validates an experience URL against the allowed hosts.
func (c *Client) NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: experience URL is empty", ErrNoMetadata)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: parse experience URL: %w", ErrNoMetadata, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: experience URL must use http or https", ErrNoMetadata)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: experience URL has no host", ErrNoMetadata)
	}
	if !c.hostAllowed(host) {
		return "", fmt.Errorf("%w: host %q is not an experience host", ErrNoMetadata, host)
	}
	if strings.Trim(u.Path, "/") == "" {
		return "", fmt.Errorf("%w: experience URL has no path", ErrNoMetadata)
	}
	u.Fragment = ""
	return u.String(), nil
}

func (c *Client) hostAllowed(host string) bool {
	if len(c.AllowedHosts) == 0 {
		return true
	}
	for _, allowed := range c.AllowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

func (c *Client) endpoint(target string) (string, error) {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("url", target)
	q.Set("format", "json")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "ceros-embed")

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoMetadata, err)
		}
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoMetadata, readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRetriesOn429 {
			wait, ok := retryAfterDuration(resp.Header.Get("Retry-After"))
			if !ok {
				wait = time.Second
			}
			if err := sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrNoMetadata, err)
			}
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: oembed endpoint returned %s", ErrNoMetadata, resp.Status)
		}
		return body, nil
	}
}

// HasMarkup reports whether s parses as an HTML fragment with at least one element.
func HasMarkup(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	nodes, err := html.ParseFragment(strings.NewReader(s), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return false
	}
	for _, n := range nodes {
		if containsElement(n) {
			return true
		}
	}
	return false
}

func containsElement(n *html.Node) bool {
	if n.Type == html.ElementNode {
		return true
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if containsElement(child) {
			return true
		}
	}
	return false
}

func looseString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

func looseInt(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(s, "px"))); err == nil {
			return v
		}
	}
	return 0
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

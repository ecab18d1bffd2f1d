package oembed

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
)

func jsonResponse(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

func newTestClient(t *testing.T, rt roundTripperFunc) *Client {
	t.Helper()
	c, err := New("https://view.ceros.com/oembed", []string{"view.ceros.com"})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	c.HTTP.Transport = rt
	return c
}

func TestFetchReturnsMetadata(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/oembed" {
			t.Fatalf("unexpected path %q", req.URL.Path)
		}
		if got := req.URL.Query().Get("url"); got != "https://view.ceros.com/acct/good-slug" {
			t.Fatalf("url query = %q", got)
		}
		if got := req.URL.Query().Get("format"); got != "json" {
			t.Fatalf("format query = %q", got)
		}
		return jsonResponse(req, http.StatusOK, `{
			"type":"rich","version":"1.0","title":"Demo",
			"url":"https://view.ceros.com/acct/good-slug",
			"html":"<iframe src=\"https://view.ceros.com/acct/good-slug\"></iframe>",
			"provider_name":"Ceros","width":"800px","height":600
		}`), nil
	})

	md, err := c.Fetch(context.Background(), "  https://view.ceros.com/acct/good-slug  ")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if md.Title != "Demo" || md.URL != "https://view.ceros.com/acct/good-slug" {
		t.Fatalf("unexpected metadata: %#v", md)
	}
	if !strings.HasPrefix(md.HTML, "<iframe") {
		t.Fatalf("html = %q", md.HTML)
	}
	if md.Width != 800 || md.Height != 600 || md.Version != "1.0" || md.ProviderName != "Ceros" {
		t.Fatalf("unexpected optional fields: %#v", md)
	}
}

func TestFetchFallsBackToRequestedURL(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(req, http.StatusOK, `{"title":"Demo","html":"<div class=\"ceros\"></div>"}`), nil
	})

	md, err := c.Fetch(context.Background(), "https://view.ceros.com/acct/good-slug#frag")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if md.URL != "https://view.ceros.com/acct/good-slug" {
		t.Fatalf("URL = %q", md.URL)
	}
}

func TestFetchFailuresWrapErrNoMetadata(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		status int
		body   string
		netErr error
	}{
		{name: "unpublished", url: "https://view.ceros.com/acct/bad-slug", status: http.StatusNotFound, body: `{"error":"not found"}`},
		{name: "server error", url: "https://view.ceros.com/acct/slug", status: http.StatusInternalServerError},
		{name: "no html", url: "https://view.ceros.com/acct/slug", status: http.StatusOK, body: `{"title":"Demo","html":""}`},
		{name: "text html", url: "https://view.ceros.com/acct/slug", status: http.StatusOK, body: `{"title":"Demo","html":"just text"}`},
		{name: "no title", url: "https://view.ceros.com/acct/slug", status: http.StatusOK, body: `{"html":"<iframe></iframe>"}`},
		{name: "bad json", url: "https://view.ceros.com/acct/slug", status: http.StatusOK, body: `<html>`},
		{name: "network", url: "https://view.ceros.com/acct/slug", netErr: errors.New("connection reset")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
				if tt.netErr != nil {
					return nil, tt.netErr
				}
				return jsonResponse(req, tt.status, tt.body), nil
			})
			_, err := c.Fetch(context.Background(), tt.url)
			if !errors.Is(err, ErrNoMetadata) {
				t.Fatalf("Fetch error = %v, want ErrNoMetadata", err)
			}
		})
	}
}

func TestFetchRejectsInvalidURLsWithoutCalling(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(req, http.StatusOK, `{}`), nil
	})

	for _, raw := range []string{
		"",
		"not a url",
		"ftp://view.ceros.com/acct/slug",
		"https://example.com/acct/slug",
		"https://view.ceros.com/",
	} {
		if _, err := c.Fetch(context.Background(), raw); !errors.Is(err, ErrNoMetadata) {
			t.Fatalf("Fetch(%q) error = %v, want ErrNoMetadata", raw, err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("expected no requests, got %d", got)
	}
}

func TestNormalizeURLAllowsSubdomainsAndAnyHostWhenUnrestricted(t *testing.T) {
	c := &Client{AllowedHosts: []string{"ceros.com"}}
	if _, err := c.NormalizeURL("https://view.ceros.com/acct/slug"); err != nil {
		t.Fatalf("subdomain rejected: %v", err)
	}
	if _, err := c.NormalizeURL("https://evilceros.com/acct/slug"); err == nil {
		t.Fatal("expected suffix-only match to be rejected")
	}

	open := &Client{}
	if _, err := open.NormalizeURL("https://experiences.example.test/acct/slug"); err != nil {
		t.Fatalf("unrestricted client rejected host: %v", err)
	}
}

func TestFetchRetriesOn429(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			resp := jsonResponse(req, http.StatusTooManyRequests, `{}`)
			resp.Header.Set("Retry-After", "0")
			return resp, nil
		}
		return jsonResponse(req, http.StatusOK, `{"title":"Demo","html":"<iframe></iframe>"}`), nil
	})

	if _, err := c.Fetch(context.Background(), "https://view.ceros.com/acct/slug"); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 requests, got %d", got)
	}
}

func TestNewValidatesEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "view.ceros.com/oembed", "file:///tmp/x"} {
		if _, err := New(endpoint, nil); err == nil {
			t.Fatalf("New(%q) expected error", endpoint)
		}
	}
}

func TestHasMarkup(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{in: "", want: false},
		{in: "plain text", want: false},
		{in: "<iframe src=\"x\"></iframe>", want: true},
		{in: "<div style=\"position:relative\"><iframe></iframe></div><script src=\"x\"></script>", want: true},
	}
	for _, tt := range tests {
		if got := HasMarkup(tt.in); got != tt.want {
			t.Fatalf("HasMarkup(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Package testsite serves fake web pages and images for tests.
package testsite

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Site is an httptest server with configurable pages and images
type Site struct {
	server *httptest.Server

	mu             sync.RWMutex
	pages          map[string]string
	assets         map[string]asset
	errorResponses map[string]int           // path -> status code
	delays         map[string]time.Duration // path -> response delay
	allowOrigin    string
	requests       []Request

	requestCount int32
}

type asset struct {
	contentType string
	body        []byte
}

// Request records what the site saw for one request
type Request struct {
	Path   string
	Header http.Header
}

// New starts a site. Close it when done.
func New() *Site {
	s := &Site{
		pages:          make(map[string]string),
		assets:         make(map[string]asset),
		errorResponses: make(map[string]int),
		delays:         make(map[string]time.Duration),
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

func (s *Site) handle(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&s.requestCount, 1)

	s.mu.Lock()
	s.requests = append(s.requests, Request{Path: r.URL.Path, Header: r.Header.Clone()})
	delay := s.delays[r.URL.Path]
	code := s.errorResponses[r.URL.Path]
	page, isPage := s.pages[r.URL.Path]
	a, isAsset := s.assets[r.URL.Path]
	allow := s.allowOrigin
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if code > 0 {
		http.Error(w, http.StatusText(code), code)
		return
	}
	if allow != "" {
		w.Header().Set("Access-Control-Allow-Origin", allow)
	}

	switch {
	case isPage:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(strings.ReplaceAll(page, "{{site}}", s.server.URL)))
	case isAsset:
		w.Header().Set("Content-Type", a.contentType)
		w.Write(a.body)
	default:
		http.NotFound(w, r)
	}
}

// Page serves html at path. "{{site}}" in html is replaced by the site URL.
func (s *Site) Page(path, html string) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[path] = html
	return s
}

// Asset serves body with the given content type at path
func (s *Site) Asset(path, contentType string, body []byte) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[path] = asset{contentType: contentType, body: body}
	return s
}

// PNG serves a small generated PNG at path
func (s *Site) PNG(path string) *Site {
	return s.Asset(path, "image/png", PNG(4, 4))
}

// SetErrorResponse makes path answer with code
func (s *Site) SetErrorResponse(path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorResponses[path] = code
}

// ClearErrorResponse removes a configured error
func (s *Site) ClearErrorResponse(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.errorResponses, path)
}

// SetDelay delays every response for path
func (s *Site) SetDelay(path string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[path] = delay
}

// AllowOrigin sets the Access-Control-Allow-Origin header on every response
func (s *Site) AllowOrigin(origin string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowOrigin = origin
}

// URL returns the base URL of the site
func (s *Site) URL() string {
	return s.server.URL
}

// RequestCount returns the number of requests served
func (s *Site) RequestCount() int {
	return int(atomic.LoadInt32(&s.requestCount))
}

// Requests returns the recorded requests for path
func (s *Site) Requests(path string) []Request {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Request
	for _, r := range s.requests {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// ResetCounters clears recorded requests
func (s *Site) ResetCounters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
	atomic.StoreInt32(&s.requestCount, 0)
}

// Close shuts the server down
func (s *Site) Close() {
	s.server.Close()
}

// PNG returns an encoded solid-color PNG of the given size
func PNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

package page

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"imgharvest/pkg/config"
	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/fetcher"
	"imgharvest/pkg/logger"
)

type stubFetcher struct {
	docs   map[string]*fetcher.Document
	sheets map[string]string
}

func (s *stubFetcher) LoadDocument(ctx context.Context, url string) (*fetcher.Document, error) {
	if d, ok := s.docs[url]; ok {
		return d, nil
	}
	return nil, errs.FromStatus(404, url)
}

func (s *stubFetcher) LoadStylesheet(ctx context.Context, url string) (*fetcher.Document, error) {
	if css, ok := s.sheets[url]; ok {
		return &fetcher.Document{URL: url, Body: []byte(css)}, nil
	}
	return nil, errs.FromStatus(404, url)
}

func pageConfig() config.PageConfig {
	return config.DefaultConfig().Page
}

func TestLoadURLWithStylesheets(t *testing.T) {
	f := &stubFetcher{
		docs: map[string]*fetcher.Document{
			"https://example.com/": {
				URL:         "https://example.com/home",
				ContentType: "text/html",
				Body: []byte(`<html><head>
					<link rel="stylesheet" href="/site.css">
					<link rel="stylesheet" href="/missing.css">
				</head><body><img src="a.png"><div class="hero"></div></body></html>`),
			},
		},
		sheets: map[string]string{
			"https://example.com/site.css": `.hero { background-image: url(/img/hero.jpg) }`,
		},
	}

	p, err := NewLoader(f, pageConfig(), logger.NewTestLogger()).LoadURL(context.Background(), "https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/home", p.URL)
	assert.Equal(t, 1, p.Stylesheets)
	assert.Equal(t, []string{
		"https://example.com/a.png",
		"https://example.com/img/hero.jpg",
	}, p.Discoverer.Collect())
}

func TestLoadURLStylesheetsDisabled(t *testing.T) {
	f := &stubFetcher{
		docs: map[string]*fetcher.Document{
			"https://example.com/": {URL: "https://example.com/", Body: []byte(`<link rel="stylesheet" href="/site.css"><div class="hero"></div>`)},
		},
		sheets: map[string]string{"https://example.com/site.css": `.hero { background-image: url(/img/hero.jpg) }`},
	}
	cfg := pageConfig()
	cfg.FetchStylesheets = false

	p, err := NewLoader(f, cfg, logger.NewTestLogger()).LoadURL(context.Background(), "https://example.com/")
	require.NoError(t, err)
	assert.Zero(t, p.Stylesheets)
	assert.Empty(t, p.Discoverer.Collect())
}

func TestLoadURLFailureIsDiscoveryUnavailable(t *testing.T) {
	_, err := NewLoader(&stubFetcher{}, pageConfig(), logger.NewTestLogger()).LoadURL(context.Background(), "https://example.com/")
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeDiscoveryUnavailable, errs.TypeOf(err))
	assert.Contains(t, err.Error(), "Unable to access current page")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.html")
	require.NoError(t, os.WriteFile(path, []byte(`<img src="photos/cat">`), 0644))

	p, err := NewLoader(nil, pageConfig(), logger.NewTestLogger()).LoadFile(context.Background(), path, "https://pets.example/gallery/")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://pets.example/gallery/photos/cat"}, p.Discoverer.Collect())

	_, err = NewLoader(nil, pageConfig(), logger.NewTestLogger()).LoadFile(context.Background(), path+".missing", "https://pets.example/")
	assert.Equal(t, errs.ErrorTypeDiscoveryUnavailable, errs.TypeOf(err))
}

func TestParseDecodesCharset(t *testing.T) {
	// "caf\xe9" is café in ISO-8859-1
	body := []byte("<html><body><img src=\"/img/caf\xe9.png\"></body></html>")

	p, err := NewLoader(nil, pageConfig(), logger.NewTestLogger()).Parse(context.Background(), body, "text/html; charset=iso-8859-1", "https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/img/caf%C3%A9.png"}, p.Discoverer.Collect())
}

func TestServeAnswersBridge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<img src="/a.png"><img src="/b.gif">`)
	}))
	defer srv.Close()

	f := fetcher.New(fetcher.Options{Logger: logger.NewTestLogger()})
	p, err := NewLoader(f, pageConfig(), logger.NewTestLogger()).LoadURL(context.Background(), srv.URL+"/")
	require.NoError(t, err)

	agent := p.Serve(context.Background(), logger.NewTestLogger())
	defer agent.Stop()

	images, err := agent.Client().GetImages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/a.png", srv.URL + "/b.gif"}, images)
}

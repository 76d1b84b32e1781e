package page

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/sync/errgroup"

	"imgharvest/pkg/bridge"
	"imgharvest/pkg/config"
	"imgharvest/pkg/discovery"
	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/fetcher"
	"imgharvest/pkg/logger"
)

// stylesheetWorkers bounds concurrent stylesheet requests
const stylesheetWorkers = 4

// DocumentFetcher loads pages and stylesheets
type DocumentFetcher interface {
	LoadDocument(ctx context.Context, url string) (*fetcher.Document, error)
	LoadStylesheet(ctx context.Context, url string) (*fetcher.Document, error)
}

// Loader turns a URL or a saved HTML file into a Page
type Loader struct {
	fetcher          DocumentFetcher
	fetchStylesheets bool
	maxStylesheets   int
	logger           logger.Logger
}

// Page is a parsed document ready for discovery
type Page struct {
	URL         string
	Document    *goquery.Document
	Discoverer  *discovery.Discoverer
	Stylesheets int
}

// NewLoader creates a Loader. f may be nil when only local files without
// linked stylesheets are loaded.
func NewLoader(f DocumentFetcher, cfg config.PageConfig, log logger.Logger) *Loader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Loader{
		fetcher:          f,
		fetchStylesheets: cfg.FetchStylesheets,
		maxStylesheets:   cfg.MaxStylesheets,
		logger:           log,
	}
}

// LoadURL fetches and parses the page at rawURL
func (l *Loader) LoadURL(ctx context.Context, rawURL string) (*Page, error) {
	if l.fetcher == nil {
		return nil, errs.New(errs.ErrorTypeDiscoveryUnavailable, "Unable to access current page: no fetcher configured")
	}

	doc, err := l.fetcher.LoadDocument(ctx, rawURL)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeDiscoveryUnavailable, err, fmt.Sprintf("Unable to access current page: %v", err))
	}
	// Relative references resolve against the post-redirect address
	return l.Parse(ctx, doc.Body, doc.ContentType, doc.URL)
}

// LoadFile parses a saved HTML file as if it had been served from baseURL
func (l *Loader) LoadFile(ctx context.Context, path, baseURL string) (*Page, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeDiscoveryUnavailable, err, fmt.Sprintf("Unable to access current page: %v", err))
	}
	return l.Parse(ctx, body, "text/html", baseURL)
}

// Parse builds a Page from raw HTML. contentType selects the character set
// when the document does not declare one.
func (l *Loader) Parse(ctx context.Context, body []byte, contentType, pageURL string) (*Page, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeDiscoveryUnavailable, err, fmt.Sprintf("unsupported document encoding: %v", err))
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeDiscoveryUnavailable, err, fmt.Sprintf("failed to parse document: %v", err))
	}

	d, err := discovery.New(doc, pageURL, discovery.WithLogger(l.logger))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeDiscoveryUnavailable, err, "")
	}

	sheets := l.loadStylesheets(ctx, d.StylesheetURLs())
	if len(sheets) > 0 {
		d, err = discovery.New(doc, pageURL, discovery.WithLogger(l.logger), discovery.WithStylesheets(sheets))
		if err != nil {
			return nil, errs.Wrap(errs.ErrorTypeDiscoveryUnavailable, err, "")
		}
	}

	return &Page{
		URL:         pageURL,
		Document:    doc,
		Discoverer:  d,
		Stylesheets: len(sheets),
	}, nil
}

// loadStylesheets fetches linked stylesheets in parallel. A stylesheet that
// fails to load is skipped.
func (l *Loader) loadStylesheets(ctx context.Context, urls []string) map[string]string {
	if !l.fetchStylesheets || l.fetcher == nil || len(urls) == 0 {
		return nil
	}
	if l.maxStylesheets > 0 && len(urls) > l.maxStylesheets {
		l.logger.DebugWithFields("stylesheet limit reached", map[string]interface{}{
			"linked": len(urls),
			"limit":  l.maxStylesheets,
		})
		urls = urls[:l.maxStylesheets]
	}

	var (
		mu     sync.Mutex
		sheets = make(map[string]string, len(urls))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stylesheetWorkers)
	for _, u := range urls {
		u := u
		g.Go(func() error {
			doc, err := l.fetcher.LoadStylesheet(gctx, u)
			if err != nil {
				l.logger.DebugWithFields("skipping stylesheet", map[string]interface{}{
					"url":   u,
					"error": err.Error(),
				})
				return nil
			}
			mu.Lock()
			sheets[u] = string(doc.Body)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return sheets
}

// Serve starts a bridge agent answering for this page. Stop the agent when
// the run is over.
func (p *Page) Serve(ctx context.Context, log logger.Logger) *bridge.Agent {
	agent := bridge.NewAgent(p.Discoverer, log)
	agent.Start(ctx)
	return agent
}

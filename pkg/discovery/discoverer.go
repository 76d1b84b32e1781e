package discovery

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"imgharvest/pkg/logger"
)

// imgAttributes are read from every <img> in this order
var imgAttributes = []string{"src", "data-src", "data-lazy-src", "data-original", "srcset"}

// Discoverer inspects one parsed document and collects image URLs from it
type Discoverer struct {
	doc         *goquery.Document
	pageURL     *url.URL
	base        *url.URL
	stylesheets map[string]string
	log         logger.Logger
}

// Option configures a Discoverer
type Option func(*Discoverer)

// WithStylesheets supplies the text of linked stylesheets keyed by their
// absolute URL. Links without an entry are ignored.
func WithStylesheets(sheets map[string]string) Option {
	return func(d *Discoverer) {
		d.stylesheets = sheets
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(l logger.Logger) Option {
	return func(d *Discoverer) {
		d.log = l
	}
}

// New creates a Discoverer over doc. pageURL is the address the document was
// loaded from. Attribute references resolve against it; a <base href> only
// affects stylesheet backgrounds.
func New(doc *goquery.Document, pageURL string, opts ...Option) (*Discoverer, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}

	d := &Discoverer{
		doc:     doc,
		pageURL: u,
		base:    u,
		log:     logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			d.base = u.ResolveReference(ref)
		}
	}

	return d, nil
}

// PageURL returns the address the document was loaded from
func (d *Discoverer) PageURL() string {
	return d.pageURL.String()
}

// BaseURL returns the document base that stylesheet references resolve against
func (d *Discoverer) BaseURL() string {
	return d.base.String()
}

// StylesheetURLs returns the absolute URL of every linked stylesheet in
// document order.
func (d *Discoverer) StylesheetURLs() []string {
	return StylesheetLinks(d.doc, d.base)
}

// Collect returns the deduplicated absolute URLs of every image the document
// references, in first-seen order. It does not modify the document.
func (d *Discoverer) Collect() []string {
	set := newURLSet()

	d.collectImgTags(set)
	d.collectInlineStyles(set)
	d.collectComputedStyles(set)
	d.collectSources(set)
	d.collectIcons(set)

	d.log.DebugWithFields("discovery complete", map[string]interface{}{
		"page":   d.pageURL.String(),
		"images": set.Len(),
	})
	return set.List()
}

func (d *Discoverer) collectImgTags(set *urlSet) {
	d.doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range imgAttributes {
			value, ok := s.Attr(attr)
			if !ok || value == "" {
				continue
			}
			if attr == "srcset" {
				for _, u := range SplitSrcset(value) {
					d.addImage(set, d.pageURL, u)
				}
				continue
			}
			d.addImage(set, d.pageURL, value)
		}
	})
}

func (d *Discoverer) collectInlineStyles(set *urlSet) {
	d.doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		style, ok := s.Attr("style")
		if !ok || style == "" {
			return
		}
		if m := inlineBackgroundPattern.FindStringSubmatch(style); m != nil {
			d.addImage(set, d.pageURL, m[1])
		}
	})
}

func (d *Discoverer) collectComputedStyles(set *urlSet) {
	values := cascade(d.doc, d.styleRules(), d.base)

	d.doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		v, ok := values[s.Get(0)]
		if !ok {
			return
		}
		if ref := extractURL(v.image); ref != "" {
			d.addImage(set, v.base, ref)
		}
	})
}

func (d *Discoverer) collectSources(set *urlSet) {
	d.doc.Find("picture source, source").Each(func(_ int, s *goquery.Selection) {
		srcset, ok := s.Attr("srcset")
		if !ok {
			return
		}
		for _, u := range SplitSrcset(srcset) {
			d.addImage(set, d.pageURL, u)
		}
	})
}

// collectIcons keeps every icon link without classifying it. rel is matched
// ignoring ASCII case, as HTML does.
func (d *Discoverer) collectIcons(set *urlSet) {
	d.doc.Find("link[rel]").Each(func(_ int, s *goquery.Selection) {
		rel, _ := s.Attr("rel")
		if !strings.Contains(strings.ToLower(rel), "icon") {
			return
		}
		href, ok := s.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "data:") {
			return
		}
		if abs, ok := resolve(d.pageURL, href); ok {
			set.Add(abs)
		}
	})
}

// styleRules gathers rules from <style> elements and supplied linked
// stylesheets in document order.
func (d *Discoverer) styleRules() []styleRule {
	var rules []styleRule

	d.doc.Find(`style, link[rel~="stylesheet"]`).Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "style" {
			rules = append(rules, parseStylesheet(s.Text(), d.base)...)
			return
		}

		href, _ := s.Attr("href")
		abs, ok := resolve(d.base, href)
		if !ok {
			return
		}
		css, ok := d.stylesheets[abs]
		if !ok {
			return
		}
		sheetURL, err := url.Parse(abs)
		if err != nil {
			return
		}
		rules = append(rules, parseStylesheet(css, sheetURL)...)
	})

	return rules
}

func (d *Discoverer) addImage(set *urlSet, base *url.URL, ref string) {
	if strings.HasPrefix(ref, "data:") {
		return
	}
	abs, ok := resolve(base, ref)
	if !ok || !IsImageURL(abs) {
		return
	}
	set.Add(abs)
}

// StylesheetLinks returns the absolute href of every <link rel="stylesheet">
// in doc, resolved against base.
func StylesheetLinks(doc *goquery.Document, base *url.URL) []string {
	var links []string
	doc.Find(`link[rel~="stylesheet"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if abs, ok := resolve(base, href); ok && !strings.HasPrefix(abs, "data:") {
			links = append(links, abs)
		}
	})
	return links
}

// resolve makes ref absolute against base and normalizes it, so one resource
// always yields the same string
func resolve(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	return normalize(base.ResolveReference(u)).String(), true
}

var defaultPorts = map[string]string{"http": "80", "https": "443"}

// normalize lowercases scheme and host, drops the scheme's default port and
// gives an empty path on a host-based URL the root path
func normalize(u *url.URL) *url.URL {
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	if n.Host == "" {
		return &n
	}

	host, port := strings.ToLower(n.Hostname()), n.Port()
	if port == defaultPorts[n.Scheme] {
		port = ""
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		host += ":" + port
	}
	n.Host = host

	if n.Path == "" && n.Opaque == "" {
		n.Path = "/"
	}
	return &n
}

// urlSet is an insertion-ordered set of strings
type urlSet struct {
	seen  map[string]struct{}
	order []string
}

func newURLSet() *urlSet {
	return &urlSet{seen: make(map[string]struct{})}
}

func (s *urlSet) Add(u string) {
	if _, ok := s.seen[u]; ok {
		return
	}
	s.seen[u] = struct{}{}
	s.order = append(s.order, u)
}

func (s *urlSet) Len() int { return len(s.order) }

func (s *urlSet) List() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

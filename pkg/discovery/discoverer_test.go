package discovery

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageURL = "https://example.com/blog/post.html"

func newDiscoverer(t *testing.T, body string, opts ...Option) *Discoverer {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	d, err := New(doc, pageURL, opts...)
	require.NoError(t, err)
	return d
}

func TestCollectBasicPage(t *testing.T) {
	d := newDiscoverer(t, `<html><body>
		<img src="/a.png">
		<img data-src="/b.JPG?x=1">
		<div style="background-image: url('/assets/c.gif')"></div>
	</body></html>`)

	assert.Equal(t, []string{
		"https://example.com/a.png",
		"https://example.com/b.JPG?x=1",
		"https://example.com/assets/c.gif",
	}, d.Collect())
}

func TestCollectImgAttributes(t *testing.T) {
	d := newDiscoverer(t, `<body>
		<img src="one.png" data-lazy-src="two.webp" data-original="/media/three" srcset="four.jpg 1x, five.jpg 2x">
		<img src="../up/six.gif">
		<img src="/not-an-image">
	</body>`)

	assert.Equal(t, []string{
		"https://example.com/blog/one.png",
		"https://example.com/blog/two.webp",
		"https://example.com/media/three",
		"https://example.com/blog/four.jpg",
		"https://example.com/blog/five.jpg",
		"https://example.com/up/six.gif",
	}, d.Collect())
}

func TestCollectDropsDataURLsAndDuplicates(t *testing.T) {
	d := newDiscoverer(t, `<body>
		<img src="data:image/png;base64,iVBORw0KGgo=">
		<img src="/x.png" srcset="/x.png 1x, /x.png 2x">
		<div style="background: url(data:image/gif;base64,R0lGOD)"></div>
		<picture><source srcset="/x.png"></picture>
		<link rel="icon" href="data:image/x-icon;base64,AAAB">
	</body>`)

	urls := d.Collect()
	assert.Equal(t, []string{"https://example.com/x.png"}, urls)
	for _, u := range urls {
		assert.False(t, strings.HasPrefix(u, "data:"))
	}
}

func TestCollectIconsBypassClassifier(t *testing.T) {
	d := newDiscoverer(t, `<head>
		<link rel="shortcut icon" href="/favicon">
		<link rel="apple-touch-icon" href="/touch">
		<link rel="preload" href="/preload">
	</head><body><img src="/favicon"></body>`)

	assert.Equal(t, []string{
		"https://example.com/favicon",
		"https://example.com/touch",
	}, d.Collect())
}

func TestCollectSources(t *testing.T) {
	d := newDiscoverer(t, `<body>
		<picture>
			<source srcset="/hero.avif 1x, /hero@2x.avif 2x" type="image/avif">
			<img src="/hero.jpg">
		</picture>
		<video><source srcset="/poster.webp"></video>
	</body>`)

	assert.ElementsMatch(t, []string{
		"https://example.com/hero.jpg",
		"https://example.com/hero.avif",
		"https://example.com/hero@2x.avif",
		"https://example.com/poster.webp",
	}, d.Collect())
}

func TestCollectBaseHrefOnlyAffectsStylesheets(t *testing.T) {
	d := newDiscoverer(t, `<head>
		<base href="https://cdn.example.net/static/">
		<style>.hero { background-image: url(hero.jpg) }</style>
		<link rel="icon" href="favicon.ico">
	</head><body>
		<img src="x.png">
		<div class="hero"></div>
		<div style="background-image: url('inline.gif')"></div>
		<picture><source srcset="wide.webp"></picture>
	</body>`)

	assert.Equal(t, "https://cdn.example.net/static/", d.BaseURL())
	assert.Equal(t, []string{
		"https://example.com/blog/x.png",
		"https://example.com/blog/inline.gif",
		// computed styles resolve against the document base
		"https://cdn.example.net/static/hero.jpg",
		"https://cdn.example.net/static/inline.gif",
		"https://example.com/blog/wide.webp",
		"https://example.com/blog/favicon.ico",
	}, d.Collect())
}

func TestCollectNormalizesEquivalentURLs(t *testing.T) {
	d := newDiscoverer(t, `<body>
		<img src="https://EXAMPLE.com/a.png">
		<img src="https://example.com/a.png">
		<img src="https://example.com:443/a.png">
		<img src="HTTPS://Example.COM:443/a.png">
		<img src="http://example.com:80/b.png">
		<img src="http://example.com:8080/b.png">
		<link rel="icon" href="https://example.com">
		<link rel="icon" href="https://EXAMPLE.com:443/">
	</body>`)

	assert.Equal(t, []string{
		"https://example.com/a.png",
		"http://example.com/b.png",
		"http://example.com:8080/b.png",
		"https://example.com/",
	}, d.Collect())
}

func TestCollectIconRelIgnoresCase(t *testing.T) {
	d := newDiscoverer(t, `<head>
		<link rel="SHORTCUT ICON" href="/favicon">
		<link rel="Apple-Touch-Icon" href="/touch">
	</head>`)

	assert.Equal(t, []string{
		"https://example.com/favicon",
		"https://example.com/touch",
	}, d.Collect())
}

func TestCollectStyleBlocks(t *testing.T) {
	d := newDiscoverer(t, `<head><style>
		/* .commented { background-image: url(commented.png) } */
		.hero { background: #fff url("hero.jpg") no-repeat; }
		@media (min-width: 10px) { .card { background-image: url(/img/card) } }
		.gone { background-image: url(gone.png) }
		.gone { background: red }
		a:hover { background-image: url(hover.png) }
		::: { background-image: url(broken.png) }
	</style></head><body>
		<div class="hero"></div>
		<div class="card"></div>
		<div class="gone"></div>
		<div class="commented"></div>
		<a href="#">link</a>
	</body>`)

	assert.Equal(t, []string{
		"https://example.com/blog/hero.jpg",
		"https://example.com/img/card",
	}, d.Collect())
}

func TestCollectInlineOverridesRules(t *testing.T) {
	d := newDiscoverer(t, `<head><style>
		.banner { background-image: url(banner.png) }
		.swap { background-image: url(old.png) }
	</style></head><body>
		<div class="banner" style="background-image: none"></div>
		<div class="swap" style="color: red; background-image: url(new.png)"></div>
	</body>`)

	assert.Equal(t, []string{"https://example.com/blog/new.png"}, d.Collect())
}

func TestCollectLinkedStylesheet(t *testing.T) {
	sheets := map[string]string{
		"https://example.com/css/site.css": `.logo { background-image: url(../img/logo.png) }`,
	}
	d := newDiscoverer(t, `<head>
		<link rel="stylesheet" href="/css/site.css">
		<link rel="stylesheet" href="/css/missing.css">
	</head><body><span class="logo"></span></body>`, WithStylesheets(sheets))

	assert.Equal(t, []string{
		"https://example.com/css/site.css",
		"https://example.com/css/missing.css",
	}, d.StylesheetURLs())
	assert.Equal(t, []string{"https://example.com/img/logo.png"}, d.Collect())
}

func TestCollectEmptyDocument(t *testing.T) {
	d := newDiscoverer(t, `<html><body><p>nothing here</p></body></html>`)
	assert.Empty(t, d.Collect())
}

func TestNewInvalidPageURL(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html></html>"))
	require.NoError(t, err)

	_, err = New(doc, "://bad")
	assert.Error(t, err)
}

package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"imgharvest/pkg/config"
	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/ratelimit"
	"imgharvest/pkg/retry"
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	UserAgent       string
	DocumentTimeout time.Duration
	ImageTimeout    time.Duration
	// MaxDocumentSize caps page and stylesheet bodies, 0 means no limit
	MaxDocumentSize int64
	// MaxImageSize caps image bodies, 0 means no limit
	MaxImageSize int64
	// EnforceCORS rejects cross-origin CORS responses that do not grant the page origin
	EnforceCORS bool
	// Limiter throttles image requests, nil disables throttling
	Limiter    ratelimit.Limiter
	Retry      *retry.Config
	HTTPClient *http.Client
	Logger     logger.Logger
}

// Client performs every HTTP request of a run
type Client struct {
	httpClient      *http.Client
	userAgent       string
	documentTimeout time.Duration
	imageTimeout    time.Duration
	maxDocumentSize int64
	maxImageSize    int64
	enforceCORS     bool
	limiter         ratelimit.Limiter
	retry           *retry.Config
	logger          logger.Logger
}

// Document is a loaded page or stylesheet
type Document struct {
	// URL is the final address after redirects
	URL         string
	ContentType string
	Body        []byte
}

// Image is a fetched image resource
type Image struct {
	URL         string
	ContentType string
	Data        []byte
}

// New creates a Client
func New(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = config.DefaultUserAgent
	}
	if opts.DocumentTimeout <= 0 {
		opts.DocumentTimeout = 30 * time.Second
	}
	if opts.ImageTimeout <= 0 {
		opts.ImageTimeout = 30 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Retry == nil {
		opts.Retry = retry.DefaultConfig()
		opts.Retry.Logger = opts.Logger
	}

	return &Client{
		httpClient:      opts.HTTPClient,
		userAgent:       opts.UserAgent,
		documentTimeout: opts.DocumentTimeout,
		imageTimeout:    opts.ImageTimeout,
		maxDocumentSize: opts.MaxDocumentSize,
		maxImageSize:    opts.MaxImageSize,
		enforceCORS:     opts.EnforceCORS,
		limiter:         opts.Limiter,
		retry:           opts.Retry,
		logger:          opts.Logger,
	}
}

// NewFromConfig creates a Client from application configuration
func NewFromConfig(cfg *config.Config, log logger.Logger) *Client {
	return New(Options{
		UserAgent:       cfg.Page.UserAgent,
		DocumentTimeout: cfg.Page.Timeout,
		ImageTimeout:    cfg.Download.Timeout,
		MaxDocumentSize: cfg.Page.MaxBodySize,
		MaxImageSize:    cfg.Download.MaxFileSize,
		EnforceCORS:     cfg.Download.EnforceCORS,
		Limiter:         ratelimit.New(cfg.RateLimit),
		Retry: &retry.Config{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Backoff: &retry.ExponentialBackoff{
				BaseDelay:    cfg.Retry.InitialBackoff,
				MaxDelay:     cfg.Retry.MaxBackoff,
				Multiplier:   cfg.Retry.Multiplier,
				JitterFactor: 0.1,
			},
			RetryIf: retry.DefaultRetryIf,
			Logger:  log,
		},
		Logger: log,
	})
}

// LoadDocument fetches the page at rawURL. Transient failures are retried
// with backoff; this is the only retried request.
func (c *Client) LoadDocument(ctx context.Context, rawURL string) (*Document, error) {
	return retry.DoWithResult(ctx, func(ctx context.Context) (*Document, error) {
		return c.loadText(ctx, rawURL, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8", "document")
	}, c.retry)
}

// LoadStylesheet fetches a linked stylesheet once
func (c *Client) LoadStylesheet(ctx context.Context, rawURL string) (*Document, error) {
	return c.loadText(ctx, rawURL, "text/css,*/*;q=0.1", "style")
}

func (c *Client) loadText(ctx context.Context, rawURL, accept, dest string) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, c.documentTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Sec-Fetch-Dest", dest)
	req.Header.Set("Sec-Fetch-Mode", "navigate")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readLimited(resp.Body, c.maxDocumentSize, rawURL)
	if err != nil {
		return nil, err
	}

	return &Document{
		URL:         resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// FetchCORS fetches rawURL the way a cross-origin fetch with credentials
// omitted does. origin is the page origin sent in the Origin header.
func (c *Client) FetchCORS(ctx context.Context, rawURL, origin string) (*Image, error) {
	if err := c.waitLimiter(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.imageTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if c.enforceCORS && origin != "" && Origin(rawURL) != origin {
		allowed := resp.Header.Get("Access-Control-Allow-Origin")
		if allowed != "*" && allowed != origin {
			return nil, errs.New(errs.ErrorTypeCORS,
				fmt.Sprintf("%s does not allow origin %s", rawURL, origin))
		}
	}

	return c.readImage(resp, rawURL)
}

// FetchImage fetches rawURL the way an anonymous <img> load does
func (c *Client) FetchImage(ctx context.Context, rawURL string) (*Image, error) {
	if err := c.waitLimiter(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.imageTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Sec-Fetch-Dest", "image")
	req.Header.Set("Sec-Fetch-Mode", "no-cors")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return c.readImage(resp, rawURL)
}

func (c *Client) readImage(resp *http.Response, rawURL string) (*Image, error) {
	data, err := readLimited(resp.Body, c.maxImageSize, rawURL)
	if err != nil {
		return nil, err
	}
	return &Image{
		URL:         rawURL,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// newRequest builds a credential-free GET request
func (c *Client) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, fmt.Sprintf("failed to create request: %v", err))
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	return req, nil
}

// do sends req and converts transport failures and non-2xx statuses into
// typed errors. The caller closes the body of a successful response.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, fmt.Sprintf("network error: %v", err))
	}

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, duration)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		e := errs.FromStatus(resp.StatusCode, req.URL.String())
		e.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return nil, e
	}
	return resp, nil
}

// parseRetryAfter reads a Retry-After value given in seconds or as an HTTP date
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}

func (c *Client) waitLimiter(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return errs.Wrap(errs.ErrorTypeRateLimit, err, "rate limiter wait interrupted")
	}
	return nil
}

// readLimited reads r fully, failing once more than limit bytes arrive
func readLimited(r io.Reader, limit int64, rawURL string) ([]byte, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, fmt.Sprintf("failed to read response body: %v", err))
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, errs.New(errs.ErrorTypeTooLarge,
			fmt.Sprintf("%s exceeds %d bytes", rawURL, limit))
	}
	return data, nil
}

// Origin returns the scheme://host[:port] origin of rawURL, or "" when it
// cannot be parsed.
func Origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

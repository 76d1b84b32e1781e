// Package retry provides backoff strategies and a context-aware retry loop.
//
// It is used for exactly one thing in imgharvest: loading the page document.
// Candidate image fetches are never retried; a failed candidate is logged and
// dropped.
//
//	doc, err := retry.DoWithResult(ctx, func(ctx context.Context) ([]byte, error) {
//		return fetchDocument(ctx, pageURL)
//	}, &retry.Config{MaxAttempts: 3, Backoff: retry.DefaultExponentialBackoff()})
package retry

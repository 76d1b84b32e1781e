// Package fetcher performs the HTTP requests of a harvest run.
//
// Requests never carry cookies or authorization headers. FetchCORS mirrors a
// cross-origin fetch: it sends the page Origin and, when CORS enforcement is
// on, rejects a cross-origin response whose Access-Control-Allow-Origin does
// not grant that origin. FetchImage mirrors an anonymous image element load
// and performs no CORS check.
//
// Only LoadDocument is retried. Image requests pass through the optional rate
// limiter and are attempted exactly once.
package fetcher

// Package page loads the document a run harvests and serves it to the
// orchestrator over the bridge.
//
// A page comes from a URL, fetched with retries, or from a saved HTML file
// with an explicit base URL. Linked stylesheets are fetched in parallel, up
// to the configured limit, so discovery can resolve background images
// declared in them.
package page

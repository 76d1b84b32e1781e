// Package bridge carries requests between the orchestrator and the page
// agent that owns the parsed document.
//
// The protocol has a single message pair. A Request with Action "getImages"
// is answered by a Response listing the page's image URLs:
//
//	{"action": "getImages"}
//	{"images": ["https://example.com/a.png"]}
//
// Requests to a stopped agent fail with ErrUnavailable.
package bridge

// Package orchestrator drives a harvest run from discovery to saved archive.
//
// A run moves through these states:
//
//	idle -> scanning -> downloading -> archiving -> saving -> idle
//	scanning -> empty      (no candidates)
//	any active state -> error
//
// Each candidate is fetched as a CORS request and converted to WebP. When
// that fails it is loaded again as a plain image and re-encoded. A candidate
// that fails both paths is logged and dropped; the user only sees alerts for
// failures that end the run.
//
// Usage:
//
//	o := orchestrator.New(agent.Client(), fetch, conv, saver, orchestrator.Options{
//	    PageURL:     page.URL,
//	    Concurrency: 4,
//	    Reporter:    display,
//	})
//	result, err := o.Run(ctx)
//
// Archive entries keep candidate order even when Concurrency is above one.
package orchestrator

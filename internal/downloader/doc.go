// Package downloader runs candidate processing on a bounded worker pool.
//
// Results leave the pool in completion order. Feed them through a Sequencer
// to consume them in job index order.
package downloader

// Package tui is the optional full-screen interface of the download command.
// It receives the same events as the plain progress display.
package tui

// Package ui provides the plain terminal output of imgharvest: colors, alerts,
// a one-line progress display driven by orchestrator events, and desktop
// notifications.
package ui

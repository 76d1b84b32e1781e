// Package logger provides structured logging for imgharvest.
//
// It wraps zerolog behind a small Logger interface with field support, a
// pretty console writer on stderr, optional file output and a global
// instance:
//
//	logger.Initialize(&cfg.Logging)
//	logger.WithField("page", pageURL).Info("Scan started")
//
// Components take a Logger in their constructors and fall back to
// GetLogger() when given nil. Tests use NewTestLogger to capture and assert
// on emitted messages.
package logger

// Package storage saves finished archives to disk.
//
// Writes are atomic: data goes to a temporary file in the target directory
// and is renamed into place, so an interrupted save never leaves a partial
// archive. Existing files are kept; a new save gets a " (1)", " (2)" suffix.
//
// A save-as request asks the Prompter for a location. TerminalPrompter shows
// the default path and accepts it on an empty line. When stdin is not a
// terminal it accepts the default without asking.
//
//	saver, err := storage.NewSaver("downloads")
//	path, err := saver.Save(ctx, blob, "example_com_images_2026-10-14T09-30-05.zip", false)
package storage

package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
)

// Saver writes finished archives into an output directory
type Saver struct {
	outputDir string
	prompter  Prompter
	mu        sync.Mutex
	logger    logger.Logger
}

// Option configures a Saver
type Option func(*Saver)

// WithPrompter sets the prompter used for save-as requests
func WithPrompter(p Prompter) Option {
	return func(s *Saver) {
		s.prompter = p
	}
}

// WithLogger sets the Saver's logger
func WithLogger(l logger.Logger) Option {
	return func(s *Saver) {
		s.logger = l
	}
}

// NewSaver creates a Saver for outputDir, creating the directory if needed
func NewSaver(outputDir string, opts ...Option) (*Saver, error) {
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	s := &Saver{
		outputDir: outputDir,
		prompter:  NewTerminalPrompter(os.Stdin, os.Stderr),
		logger:    logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// OutputDir returns the output directory path
func (s *Saver) OutputDir() string {
	return s.outputDir
}

// Save writes blob as name and returns the path written. With saveAs the
// prompter may choose another location. An existing file is never replaced:
// the name gets a " (n)" suffix instead.
func (s *Saver) Save(ctx context.Context, blob io.Reader, name string, saveAs bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(errs.ErrorTypeSave, err, "Download canceled")
	}
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", errs.New(errs.ErrorTypeSave, fmt.Sprintf("Invalid filename %q", name))
	}

	target := filepath.Join(s.outputDir, name)
	if saveAs && s.prompter != nil {
		chosen, err := s.prompter.Prompt(target)
		if err != nil {
			return "", errs.Wrap(errs.ErrorTypeSave, err, "Download canceled")
		}
		target = resolveChoice(chosen, target, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", errs.Wrap(errs.ErrorTypeSave, err, fmt.Sprintf("Failed to create directory: %v", err))
	}
	target = uniquePath(target)

	if err := writeAtomic(target, blob); err != nil {
		return "", err
	}

	s.logger.InfoWithFields("archive saved", map[string]interface{}{
		"path": target,
	})
	return target, nil
}

// resolveChoice interprets the prompter's answer. Empty keeps the default, a
// directory receives the default name.
func resolveChoice(chosen, def, name string) string {
	chosen = strings.TrimSpace(chosen)
	if chosen == "" {
		return def
	}
	if strings.HasPrefix(chosen, "~"+string(filepath.Separator)) {
		if home, err := os.UserHomeDir(); err == nil {
			chosen = filepath.Join(home, chosen[2:])
		}
	}
	if info, err := os.Stat(chosen); err == nil && info.IsDir() {
		return filepath.Join(chosen, name)
	}
	if strings.HasSuffix(chosen, string(filepath.Separator)) {
		return filepath.Join(chosen, name)
	}
	return chosen
}

// uniquePath returns path, or path with the smallest free " (n)" suffix
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// writeAtomic writes r to a temporary file next to path and renames it
func writeAtomic(path string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errs.Wrap(errs.ErrorTypeSave, err, fmt.Sprintf("Failed to create temporary file: %v", err))
	}
	tmpName := tmp.Name()

	_, err = io.Copy(tmp, r)
	closeErr := tmp.Close()

	if err != nil {
		os.Remove(tmpName)
		return errs.Wrap(errs.ErrorTypeSave, err, fmt.Sprintf("Failed to write archive: %v", err))
	}
	if closeErr != nil {
		os.Remove(tmpName)
		return errs.Wrap(errs.ErrorTypeSave, closeErr, fmt.Sprintf("Failed to close file: %v", closeErr))
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errs.Wrap(errs.ErrorTypeSave, err, fmt.Sprintf("Failed to rename temporary file: %v", err))
	}
	return nil
}

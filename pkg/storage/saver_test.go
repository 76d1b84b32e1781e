package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
)

type fixedPrompter struct {
	answer string
	err    error
	asked  string
}

func (f *fixedPrompter) Prompt(defaultPath string) (string, error) {
	f.asked = defaultPath
	return f.answer, f.err
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func newTestSaver(t *testing.T, dir string, p Prompter) *Saver {
	t.Helper()
	s, err := NewSaver(dir, WithPrompter(p), WithLogger(logger.NewTestLogger()))
	require.NoError(t, err)
	return s
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s := newTestSaver(t, dir, nil)

	path, err := s.Save(context.Background(), bytes.NewReader([]byte("zipdata")), "site_images.zip", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "site_images.zip"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "zipdata", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestSaveNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	s := newTestSaver(t, dir, nil)

	var paths []string
	for _, body := range []string{"one", "two", "three"} {
		p, err := s.Save(context.Background(), strings.NewReader(body), "a.zip", false)
		require.NoError(t, err)
		paths = append(paths, filepath.Base(p))
	}

	assert.Equal(t, []string{"a.zip", "a (1).zip", "a (2).zip"}, paths)
	data, _ := os.ReadFile(filepath.Join(dir, "a.zip"))
	assert.Equal(t, "one", string(data))
}

func TestSaveAsPrompt(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "elsewhere")
	require.NoError(t, os.Mkdir(other, 0755))

	p := &fixedPrompter{answer: other}
	s := newTestSaver(t, dir, p)

	path, err := s.Save(context.Background(), strings.NewReader("x"), "a.zip", true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.zip"), p.asked)
	assert.Equal(t, filepath.Join(other, "a.zip"), path)

	p.answer = filepath.Join(dir, "renamed.zip")
	path, err = s.Save(context.Background(), strings.NewReader("x"), "a.zip", true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "renamed.zip"), path)

	p.answer = ""
	path, err = s.Save(context.Background(), strings.NewReader("x"), "b.zip", true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "b.zip"), path)
}

func TestSaveAsCancelled(t *testing.T) {
	s := newTestSaver(t, t.TempDir(), &fixedPrompter{err: io.EOF})

	_, err := s.Save(context.Background(), strings.NewReader("x"), "a.zip", true)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeSave, errs.TypeOf(err))

	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "Download canceled", e.Message)
}

func TestSaveWriteFailureCleansUp(t *testing.T) {
	dir := t.TempDir()
	s := newTestSaver(t, dir, nil)

	_, err := s.Save(context.Background(), failingReader{}, "a.zip", false)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeSave, errs.TypeOf(err))
	assert.Contains(t, err.Error(), "disk on fire")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveRejectsBadNames(t *testing.T) {
	s := newTestSaver(t, t.TempDir(), nil)

	_, err := s.Save(context.Background(), strings.NewReader("x"), "../escape.zip", false)
	assert.Error(t, err)
	_, err = s.Save(context.Background(), strings.NewReader("x"), "", false)
	assert.Error(t, err)
}

func TestSaveCancelledContext(t *testing.T) {
	s := newTestSaver(t, t.TempDir(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Save(ctx, strings.NewReader("x"), "a.zip", false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTerminalPrompter(t *testing.T) {
	var out bytes.Buffer
	p := &TerminalPrompter{in: strings.NewReader("/tmp/custom.zip\n"), out: &out}

	got, err := p.Prompt("/default.zip")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.zip", got)
	assert.Contains(t, out.String(), "[/default.zip]")

	p = &TerminalPrompter{in: strings.NewReader("\n"), out: &out}
	got, err = p.Prompt("/default.zip")
	require.NoError(t, err)
	assert.Equal(t, "", got)

	p = &TerminalPrompter{in: strings.NewReader(""), out: &out}
	_, err = p.Prompt("/default.zip")
	assert.ErrorIs(t, err, io.EOF)

	p = &TerminalPrompter{in: strings.NewReader("ignored\n"), out: &out, interactive: func() bool { return false }}
	got, err = p.Prompt("/default.zip")
	require.NoError(t, err)
	assert.Equal(t, "/default.zip", got)
}

package archive

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	errs "imgharvest/pkg/errors"
)

const (
	// DefaultFolder holds every entry of the archive
	DefaultFolder = "images_webp"
	// CompressionLevel is the deflate level entries are written with
	CompressionLevel = 6
)

// ErrFinalized is returned when a Builder is used after Finalize
var ErrFinalized = errors.New("archive already finalized")

type entry struct {
	name string
	data []byte
}

// Builder collects named entries under a single folder and writes them as a
// zip archive once.
type Builder struct {
	folder    string
	entries   []entry
	taken     map[string]bool
	modified  time.Time
	finalized bool
}

// NewBuilder creates an empty Builder using DefaultFolder
func NewBuilder() *Builder {
	return &Builder{
		folder:   DefaultFolder,
		taken:    make(map[string]bool),
		modified: time.Now(),
	}
}

// Folder sets the folder entries are stored under
func (b *Builder) Folder(name string) *Builder {
	b.folder = name
	return b
}

// Add stores data under name. A name already in the archive gets a numeric
// suffix; the stored name is returned.
func (b *Builder) Add(name string, data []byte) (string, error) {
	if b.finalized {
		return "", ErrFinalized
	}
	if name == "" {
		return "", errs.New(errs.ErrorTypeArchive, "empty entry name")
	}

	name = uniqueName(name, b.taken)
	b.taken[strings.ToLower(name)] = true
	b.entries = append(b.entries, entry{name: name, data: data})
	return name, nil
}

// Len returns the number of entries
func (b *Builder) Len() int {
	return len(b.entries)
}

// Names returns the entry names in insertion order, without the folder
func (b *Builder) Names() []string {
	names := make([]string, len(b.entries))
	for i, e := range b.entries {
		names[i] = e.name
	}
	return names
}

// Finalize writes every entry into a deflate-compressed zip and releases the
// entries. The Builder cannot be used afterwards.
func (b *Builder) Finalize() (*bytes.Buffer, error) {
	if b.finalized {
		return nil, ErrFinalized
	}
	b.finalized = true
	defer func() { b.entries = nil }()

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, CompressionLevel)
	})

	if b.folder != "" {
		if _, err := zw.CreateHeader(&zip.FileHeader{
			Name:     b.folder + "/",
			Method:   zip.Store,
			Modified: b.modified,
		}); err != nil {
			return nil, errs.Wrap(errs.ErrorTypeArchive, err, fmt.Sprintf("failed to create folder: %v", err))
		}
	}

	for _, e := range b.entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     path.Join(b.folder, e.name),
			Method:   zip.Deflate,
			Modified: b.modified,
		})
		if err != nil {
			return nil, errs.Wrap(errs.ErrorTypeArchive, err, fmt.Sprintf("failed to add %s: %v", e.name, err))
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, errs.Wrap(errs.ErrorTypeArchive, err, fmt.Sprintf("failed to write %s: %v", e.name, err))
		}
	}

	if err := zw.Close(); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeArchive, err, fmt.Sprintf("failed to finalize archive: %v", err))
	}
	return buf, nil
}

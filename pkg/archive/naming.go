package archive

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Extension is appended to every entry name
const Extension = ".webp"

var (
	lastExtPattern    = regexp.MustCompile(`\.[^.]+$`)
	unsafeRunePattern = regexp.MustCompile(`(?i)[^a-z0-9_-]`)
	hostUnsafePattern = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// FileName derives an archive entry name from an image URL. index is the
// candidate's zero-based position and only used for the fallback name.
func FileName(rawURL string, index int) string {
	fallback := fmt.Sprintf("image_%d%s", index+1, Extension)

	u, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}

	path := u.EscapedPath()
	name := path[strings.LastIndex(path, "/")+1:]
	name, _, _ = strings.Cut(name, "?")
	name = lastExtPattern.ReplaceAllString(name, "")
	name = unsafeRunePattern.ReplaceAllString(name, "_")

	if name == "" || name == "_" || utf8.RuneCountInString(name) < 3 {
		return fallback
	}
	return name + Extension
}

// ArchiveName returns the file name of the archive for a page, stamped with
// the run start time in UTC.
func ArchiveName(pageURL string, start time.Time) string {
	host := "page"
	if u, err := url.Parse(pageURL); err == nil && u.Hostname() != "" {
		host = strings.ToLower(u.Hostname())
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
	}
	host = hostUnsafePattern.ReplaceAllString(host, "_")

	return fmt.Sprintf("%s_images_%s.zip", host, start.UTC().Format("2006-01-02T15-04-05"))
}

// uniqueName returns name, or name with the smallest free _<n> suffix (n >= 2)
// inserted before the extension. taken holds lowercased names so entries that
// differ only in case never land on the same file when extracted.
func uniqueName(name string, taken map[string]bool) string {
	if !taken[strings.ToLower(name)] {
		return name
	}

	stem, ext := name, ""
	if i := strings.LastIndex(name, "."); i > 0 {
		stem, ext = name[:i], name[i:]
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if !taken[strings.ToLower(candidate)] {
			return candidate
		}
	}
}

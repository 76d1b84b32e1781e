package discovery

import (
	"regexp"
	"strings"
)

// imageExtensions are matched anywhere in the lowercased URL as ".<ext>"
var imageExtensions = []string{
	"jpg", "jpeg", "png", "gif", "webp", "svg", "bmp", "tiff", "tif",
	"heif", "heic", "avif", "ico", "jxr", "jp2", "j2k",
}

var imagePathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/images?/`),
	regexp.MustCompile(`(?i)/img/`),
	regexp.MustCompile(`(?i)/assets/`),
	regexp.MustCompile(`(?i)/media/`),
	regexp.MustCompile(`(?i)/uploads/`),
	regexp.MustCompile(`(?i)/photos?/`),
	regexp.MustCompile(`(?i)/gallery/`),
	regexp.MustCompile(`(?i)/pictures?/`),
}

var formatPattern = regexp.MustCompile(`\.(jpg|jpeg|png|gif|webp|svg|bmp)`)

// IsImageURL reports whether u looks like an image resource. It rejects empty
// and data: URLs, then accepts a known image extension or a conventional image
// directory in the path. The check is a substring match, so an extension in
// the query string counts too.
func IsImageURL(u string) bool {
	if u == "" || strings.HasPrefix(u, "data:") {
		return false
	}

	lower := strings.ToLower(u)
	for _, ext := range imageExtensions {
		if strings.Contains(lower, "."+ext) {
			return true
		}
	}

	for _, p := range imagePathPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// DetectFormats returns the distinct upper-cased format of each URL's first
// recognised extension, in first-seen order. It returns ["Various"] when none match.
func DetectFormats(urls []string) []string {
	seen := make(map[string]bool)
	var formats []string

	for _, u := range urls {
		m := formatPattern.FindStringSubmatch(strings.ToLower(u))
		if m == nil {
			continue
		}
		f := strings.ToUpper(m[1])
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}

	if len(formats) == 0 {
		return []string{"Various"}
	}
	return formats
}

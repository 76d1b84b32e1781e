package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsImageURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"", false},
		{"data:image/png;base64,iVBORw0KGgo=", false},
		{"https://example.com/a.png", true},
		{"https://example.com/A.PNG", true},
		{"https://example.com/pic.jpeg?w=200", true},
		{"https://example.com/render?format=.webp", true},
		{"https://example.com/icon.svg", true},
		{"https://example.com/favicon.ico", true},
		{"https://example.com/scan.j2k", true},
		{"https://example.com/photo/123", true},
		{"https://example.com/Images/abc", true},
		{"https://example.com/wp-content/uploads/2024/01/file", true},
		{"https://example.com/gallery/summer", true},
		{"https://example.com/page", false},
		{"https://example.com/imagery/x", false},
		{"https://example.com/script.js", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, IsImageURL(tt.url))
		})
	}
}

func TestDetectFormats(t *testing.T) {
	assert.Equal(t, []string{"Various"}, DetectFormats(nil))
	assert.Equal(t, []string{"Various"}, DetectFormats([]string{"https://example.com/media/x"}))
	assert.Equal(t, []string{"PNG", "JPG", "JPEG"}, DetectFormats([]string{
		"https://example.com/a.png",
		"https://example.com/b.JPG?x=1",
		"https://example.com/c.png",
		"https://example.com/d.jpeg",
		"https://example.com/e",
	}))
}

func TestSplitSrcset(t *testing.T) {
	assert.Equal(t,
		[]string{"a.png", "b.png", "c.png"},
		SplitSrcset(" a.png   1x, b.png 2x,, data:image/gif, c.png"),
	)
	assert.Empty(t, SplitSrcset(""))
}

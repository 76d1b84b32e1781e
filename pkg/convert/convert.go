package convert

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"mime"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
)

const (
	// TargetType is the media type every archive entry is stored as
	TargetType = "image/webp"
	// Quality is the lossy WebP quality, 0.85 on the 0..1 scale
	Quality = 85
)

// Encoder writes img in the target format
type Encoder interface {
	Encode(w io.Writer, img image.Image) error
}

// WebPEncoder encodes lossy WebP through libwebp
type WebPEncoder struct {
	Quality float32
}

func (e WebPEncoder) Encode(w io.Writer, img image.Image) error {
	opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, e.Quality)
	if err != nil {
		return err
	}
	return webp.Encode(w, img, opts)
}

// Converter turns fetched image bytes into WebP
type Converter struct {
	encoder Encoder
	logger  logger.Logger
}

// New creates a Converter. A nil enc selects libwebp at Quality.
func New(enc Encoder, log logger.Logger) *Converter {
	if enc == nil {
		enc = WebPEncoder{Quality: Quality}
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Converter{encoder: enc, logger: log}
}

// Convert returns data unchanged when contentType already is the target type,
// otherwise it re-encodes.
func (c *Converter) Convert(data []byte, contentType string) ([]byte, error) {
	if IsTargetType(contentType) {
		return data, nil
	}
	return c.Reencode(data)
}

// Reencode decodes data in any supported format and encodes it as WebP at its
// natural dimensions. Animated sources contribute their first frame.
func (c *Converter) Reencode(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeDecode, err, fmt.Sprintf("failed to decode image: %v", err))
	}

	var buf bytes.Buffer
	if err := c.encoder.Encode(&buf, img); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeEncode, err, fmt.Sprintf("failed to convert: %v", err))
	}
	if buf.Len() == 0 {
		return nil, errs.New(errs.ErrorTypeEncode, "failed to convert: encoder produced no data")
	}

	b := img.Bounds()
	c.logger.DebugWithFields("image re-encoded", map[string]interface{}{
		"width":  b.Dx(),
		"height": b.Dy(),
		"in":     len(data),
		"out":    buf.Len(),
	})
	return buf.Bytes(), nil
}

// IsTargetType reports whether a Content-Type header names the target type.
// Parameters and case are ignored.
func IsTargetType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(contentType, ";")
	}
	return strings.EqualFold(strings.TrimSpace(mediaType), TargetType)
}

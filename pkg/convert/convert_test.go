package convert

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
)

type recordingEncoder struct {
	bounds image.Rectangle
	err    error
}

func (r *recordingEncoder) Encode(w io.Writer, img image.Image) error {
	if r.err != nil {
		return r.err
	}
	r.bounds = img.Bounds()
	_, err := w.Write([]byte("WEBP"))
	return err
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.NRGBA{R: 255, A: 128})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestIsTargetType(t *testing.T) {
	assert.True(t, IsTargetType("image/webp"))
	assert.True(t, IsTargetType("IMAGE/WEBP; charset=binary"))
	assert.False(t, IsTargetType("image/png"))
	assert.False(t, IsTargetType(""))
	assert.False(t, IsTargetType("image/webp-x"))
}

func TestConvertPassesThroughTargetType(t *testing.T) {
	enc := &recordingEncoder{}
	c := New(enc, logger.NewTestLogger())

	in := []byte("already webp, not decoded")
	out, err := c.Convert(in, "image/webp")
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.True(t, enc.bounds.Empty())
}

func TestConvertReencodesAtNaturalSize(t *testing.T) {
	enc := &recordingEncoder{}
	c := New(enc, logger.NewTestLogger())

	out, err := c.Convert(pngBytes(t, 7, 3), "image/png")
	require.NoError(t, err)
	assert.Equal(t, []byte("WEBP"), out)
	assert.Equal(t, 7, enc.bounds.Dx())
	assert.Equal(t, 3, enc.bounds.Dy())
}

func TestReencodeIgnoresDeclaredType(t *testing.T) {
	enc := &recordingEncoder{}
	c := New(enc, logger.NewTestLogger())

	_, err := c.Reencode(pngBytes(t, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, enc.bounds.Dx())
}

func TestConvertDecodeError(t *testing.T) {
	c := New(&recordingEncoder{}, logger.NewTestLogger())

	_, err := c.Convert([]byte("<html>not an image</html>"), "text/html")
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeDecode, errs.TypeOf(err))
}

func TestConvertEncodeError(t *testing.T) {
	c := New(&recordingEncoder{err: errors.New("encoder exploded")}, logger.NewTestLogger())

	_, err := c.Convert(pngBytes(t, 1, 1), "image/png")
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeEncode, errs.TypeOf(err))
	assert.Contains(t, err.Error(), "encoder exploded")
}

func TestWebPEncoderProducesRIFF(t *testing.T) {
	c := New(nil, logger.NewTestLogger())

	out, err := c.Convert(pngBytes(t, 16, 16), "image/png")
	require.NoError(t, err)
	require.Greater(t, len(out), 12)
	assert.Equal(t, "RIFF", string(out[:4]))
	assert.Equal(t, "WEBP", string(out[8:12]))
}

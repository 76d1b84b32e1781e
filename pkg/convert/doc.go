// Package convert re-encodes fetched images as lossy WebP at quality 85.
//
// Sources are decoded with imaging, which applies EXIF orientation, plus the
// BMP, TIFF and WebP decoders from golang.org/x/image. Bytes declared as
// image/webp are passed through untouched.
package convert

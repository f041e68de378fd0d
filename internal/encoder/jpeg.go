package encoder

import (
	"bytes"
	"image"
	"image/jpeg"
)

// jpegEncoder encodes images to JPEG using Go's standard library.
type jpegEncoder struct{}

func (e *jpegEncoder) Format() Format     { return JPEG }
func (e *jpegEncoder) Extension() string  { return "jpg" }
func (e *jpegEncoder) Available() bool    { return true }

func (e *jpegEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = 82
	}

	var buf bytes.Buffer
	buf.Grow(256 * 1024) // pre-alloc 256KB — avoids repeated grow for typical photos

	err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

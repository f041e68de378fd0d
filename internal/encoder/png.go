package encoder

import (
	"bytes"
	"image"
	"image/png"
)

// pngEncoder encodes images to PNG using Go's standard library.
// Quality has no effect; size is driven purely by dimensions, which is
// why the search degrades to a dimension-only ladder for PNG.
type pngEncoder struct{}

func (e *pngEncoder) Format() Format    { return PNG }
func (e *pngEncoder) Extension() string { return "png" }
func (e *pngEncoder) Available() bool   { return true }

func (e *pngEncoder) Encode(img image.Image, _ int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(512 * 1024) // pre-alloc 512KB

	enc := &png.Encoder{CompressionLevel: png.BestCompression}
	err := enc.Encode(&buf, img)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

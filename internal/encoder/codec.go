package encoder

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Std is the default in-memory codec backed by the stdlib decoders
// (plus x/image formats) and the per-format encoder registry.
type Std struct {
	registry *Registry
}

// NewStd creates a codec, probing encoder availability once.
func NewStd() *Std {
	return &Std{registry: NewRegistry()}
}

func (c *Std) Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}

func (c *Std) Encode(img image.Image, quality int, format Format) (Blob, error) {
	enc := c.registry.Get(format)
	if enc == nil {
		return Blob{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	data, err := enc.Encode(img, quality)
	if err != nil {
		return Blob{}, err
	}
	b := img.Bounds()
	return Blob{
		Data:    data,
		Quality: quality,
		Width:   b.Dx(),
		Height:  b.Dy(),
	}, nil
}

func (c *Std) Resize(img image.Image, width, height int) image.Image {
	return imaging.Resize(img, width, height, imaging.Linear)
}

// Formats returns the formats this codec can encode to.
func (c *Std) Formats() []Format {
	return c.registry.Available()
}

// DetectFormat sniffs the container format from magic bytes. Returns ""
// when the header matches none of the supported formats.
func DetectFormat(data []byte) Format {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return JPEG
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}):
		return PNG
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return WebP
	default:
		return ""
	}
}

// Dimensions reads image dimensions from the header without a full
// pixel decode. Returns (0, 0) when the header cannot be parsed.
func Dimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

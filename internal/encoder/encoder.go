package encoder

import (
	"errors"
	"image"
)

// Format identifies an output image format.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	WebP Format = "webp"
)

// ErrUnsupportedFormat is returned when no encoder can handle the
// requested format.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ErrUnavailable signals that a codec exists but cannot run here
// (external binary missing, etc).
var ErrUnavailable = errors.New("codec unavailable")

// Blob is one encoded candidate produced by a single trial.
type Blob struct {
	Data    []byte
	Quality int
	Width   int
	Height  int
}

// Size returns the encoded byte length.
func (b Blob) Size() int { return len(b.Data) }

// Codec is the pure in-memory capability the search engine runs against:
// decode source bytes, re-encode a decoded image at a given quality, and
// resize. Implementations must be deterministic for a fixed
// (image, quality, format) triple; encoded size may still be
// non-monotonic in quality and the search tolerates that.
type Codec interface {
	// Decode parses source bytes into a pixel buffer.
	Decode(data []byte) (image.Image, error)

	// Encode converts the image to bytes at the given quality (1-100).
	// Quality is ignored for PNG.
	Encode(img image.Image, quality int, format Format) (Blob, error)

	// Resize scales the image to width x height with linear interpolation.
	Resize(img image.Image, width, height int) image.Image
}

// FileCodec is the platform-level path: re-encode an image file directly
// from disk, bypassing the in-memory decode. keepEXIF only has meaning
// for JPEG output.
type FileCodec interface {
	EncodeFile(path string, quality int, format Format, keepEXIF bool) ([]byte, error)

	// Available reports whether the codec is ready to use.
	Available() bool
}

// perFormat encodes an image to one specific format. The registry probes
// each implementation for availability at startup.
type perFormat interface {
	// Format returns the output format this encoder produces.
	Format() Format

	// Encode converts the image to bytes at the given quality (1-100).
	Encode(img image.Image, quality int) ([]byte, error)

	// Available returns true if the encoder is ready to use.
	// External encoders (cwebp) may not be installed.
	Available() bool

	// Extension returns the file extension without dot.
	Extension() string
}

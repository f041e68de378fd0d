package compress

import (
	"fmt"

	"github.com/ke112/nice-image-compress/internal/encoder"
	"github.com/ke112/nice-image-compress/internal/hasher"
)

// PassthroughQuality is reported when the input already satisfied the
// budget and was returned unchanged.
const PassthroughQuality = 100

// Result is the outcome of one compression request. Data is the chosen
// encoded buffer; persistence is the caller's business.
type Result struct {
	Data         []byte
	Quality      int
	Width        int
	Height       int
	OriginalSize int
	Hash         string
	Passthrough  bool
}

// Size returns the output byte length.
func (r *Result) Size() int { return len(r.Data) }

// Ratio is output size over input size.
func (r *Result) Ratio() float64 {
	if r.OriginalSize == 0 {
		return 0
	}
	return float64(r.Size()) / float64(r.OriginalSize)
}

func (r *Result) String() string {
	if r.Passthrough {
		return fmt.Sprintf("passthrough %d bytes (%dx%d)", r.Size(), r.Width, r.Height)
	}
	return fmt.Sprintf("%d -> %d bytes (%.1f%%) q=%d %dx%d",
		r.OriginalSize, r.Size(), r.Ratio()*100, r.Quality, r.Width, r.Height)
}

// resultFromBlob stamps the chosen blob with its content hash.
func resultFromBlob(b encoder.Blob, originalSize int) *Result {
	return &Result{
		Data:         b.Data,
		Quality:      b.Quality,
		Width:        b.Width,
		Height:       b.Height,
		OriginalSize: originalSize,
		Hash:         hasher.ContentHash(b.Data, 16),
	}
}

// passthroughResult wraps the unchanged input. Dimensions are sniffed
// from the header when it parses.
func passthroughResult(data []byte) *Result {
	w, h := encoder.Dimensions(data)
	return &Result{
		Data:         data,
		Quality:      PassthroughQuality,
		Width:        w,
		Height:       h,
		OriginalSize: len(data),
		Hash:         hasher.ContentHash(data, 16),
		Passthrough:  true,
	}
}

package encoder

import "image"

// FitLongSide returns the dimensions that scale (w, h) so the longer
// side equals maxSide, preserving aspect ratio. When the image is
// already within maxSide the original dimensions come back unchanged
// (never upscale).
func FitLongSide(w, h, maxSide int) (int, int) {
	long := w
	if h > w {
		long = h
	}
	if maxSide <= 0 || long <= maxSide {
		return w, h
	}
	scale := float64(maxSide) / float64(long)
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

// FitBox returns dimensions capped to maxW x maxH, preserving aspect
// ratio. Zero caps mean unconstrained on that axis.
func FitBox(w, h, maxW, maxH int) (int, int) {
	scale := 1.0
	if maxW > 0 && w > maxW {
		scale = float64(maxW) / float64(w)
	}
	if maxH > 0 && h > maxH {
		if s := float64(maxH) / float64(h); s < scale {
			scale = s
		}
	}
	if scale >= 1.0 {
		return w, h
	}
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

// LongSide returns the longer side of an image's bounds.
func LongSide(img image.Image) int {
	b := img.Bounds()
	if b.Dx() >= b.Dy() {
		return b.Dx()
	}
	return b.Dy()
}

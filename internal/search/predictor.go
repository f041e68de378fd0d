package search

import (
	"context"
	"image"
	"math"

	"github.com/ke112/nice-image-compress/internal/encoder"
)

// Probe qualities for the linear size model. The first pair samples
// the full-resolution image; the second re-samples after a predicted
// downscale. Probes are capped by the request's upper quality bound so
// no candidate ever exceeds it.
const (
	probeHi = 85
	probeLo = 35

	rescanHi = 80
	rescanLo = 50

	// minProbeSpread is the smallest probe distance worth fitting a
	// line through.
	minProbeSpread = 5

	// estimateQuality is where the fitted line is evaluated to derive
	// the downscale factor.
	estimateQuality = 75

	// predictorFloor bounds every predicted quality from below.
	predictorFloor = 10

	// minDimScale stops the downscale estimate from collapsing the
	// image entirely.
	minDimScale = 0.1
)

// linearModel is the two-probe fit size(q) ≈ a*q + b.
type linearModel struct {
	a, b float64
}

func fitLinear(qHi, sHi, qLo, sLo int) linearModel {
	a := float64(sHi-sLo) / float64(qHi-qLo)
	return linearModel{a: a, b: float64(sLo) - a*float64(qLo)}
}

// degenerate reports a near-flat fit where solving for quality is
// numerically meaningless.
func (m linearModel) degenerate() bool { return math.Abs(m.a) <= 1e-6 }

// solve returns the quality predicted to land on target, clamped to
// [predictorFloor, 100].
func (m linearModel) solve(target int) int {
	q := int(math.Round((float64(target) - m.b) / m.a))
	if q < predictorFloor {
		return predictorFloor
	}
	if q > 100 {
		return 100
	}
	return q
}

// at evaluates the fitted size at quality q.
func (m linearModel) at(q int) float64 { return m.a*float64(q) + m.b }

// predictorPass encodes two probes, fits the linear model and tries
// the predicted quality plus a ±5 bracket. If even the low probe
// overshoots the target it estimates a downscale factor from the
// fitted size at q=75 and repeats the probe-fit-try cycle on the
// shrunk image.
func (r *run) predictorPass(ctx context.Context, img image.Image, minQuality, maxQuality int) error {
	qHi, qLo := min(probeHi, maxQuality), min(probeLo, maxQuality)
	if qHi-qLo < minProbeSpread {
		return nil
	}

	sHi, okHi, err := r.encode(ctx, img, qHi)
	if err != nil {
		return err
	}
	sLo, okLo, err := r.encode(ctx, img, qLo)
	if err != nil {
		return err
	}
	if !okHi || !okLo {
		return nil
	}
	if r.tr.bandHit(r.bd) {
		return nil
	}

	model := fitLinear(qHi, sHi.Size(), qLo, sLo.Size())

	if !model.degenerate() {
		if err := r.tryPredicted(ctx, img, model.solve(r.target), minQuality, maxQuality, qHi, qLo); err != nil {
			return err
		}
	}
	if r.tr.bandHit(r.bd) {
		return nil
	}

	// Even the low probe overshot: quality alone cannot reach the
	// target, shrink pixels instead.
	if sLo.Size() > r.target {
		return r.downscalePass(ctx, img, model, sHi.Size(), sLo.Size(), maxQuality)
	}
	return nil
}

// tryPredicted encodes {q, q+5, q-5}, filtered to the active
// [minQuality, maxQuality] band. Qualities already probed at this
// scale are skipped.
func (r *run) tryPredicted(ctx context.Context, img image.Image, q, minQuality, maxQuality int, probed ...int) error {
	tried := make(map[int]bool, len(probed)+3)
	for _, p := range probed {
		tried[p] = true
	}
	for _, cand := range []int{q, q + 5, q - 5} {
		if cand < minQuality || cand > maxQuality || tried[cand] {
			continue
		}
		tried[cand] = true
		if _, _, err := r.encode(ctx, img, cand); err != nil {
			return err
		}
		if r.tr.bandHit(r.bd) {
			return nil
		}
	}
	return nil
}

func (r *run) downscalePass(ctx context.Context, img image.Image, model linearModel, sHi, sLo, maxQuality int) error {
	estimate := model.at(estimateQuality)
	if model.degenerate() {
		estimate = float64(sHi+sLo) / 2
	}
	if estimate <= 0 {
		return nil
	}

	byteScale := float64(r.target) / estimate
	dimScale := math.Sqrt(byteScale)
	if dimScale < minDimScale {
		dimScale = minDimScale
	}

	long := encoder.LongSide(img)
	newSide := int(float64(long) * dimScale)
	if newSide < 1 || newSide >= long {
		return nil
	}

	b := img.Bounds()
	w, h := encoder.FitLongSide(b.Dx(), b.Dy(), newSide)
	scaled := r.codec.Resize(img, w, h)
	r.log.Debug("predictor downscale",
		"scale", dimScale, "width", w, "height", h)

	qHi, qLo := min(rescanHi, maxQuality), min(rescanLo, maxQuality)
	if qHi-qLo < minProbeSpread {
		return nil
	}

	pHi, okHi, err := r.encode(ctx, scaled, qHi)
	if err != nil {
		return err
	}
	pLo, okLo, err := r.encode(ctx, scaled, qLo)
	if err != nil {
		return err
	}
	if !okHi || !okLo || r.tr.bandHit(r.bd) {
		return nil
	}

	rescaled := fitLinear(qHi, pHi.Size(), qLo, pLo.Size())
	if rescaled.degenerate() {
		return nil
	}
	return r.tryPredicted(ctx, scaled, rescaled.solve(r.target), predictorFloor, maxQuality, qHi, qLo)
}

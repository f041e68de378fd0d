package search

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ke112/nice-image-compress/internal/encoder"
)

// dimImage is a bounds-only image; trials never look at pixels, so
// tests can pretend to hold arbitrarily large photos for free.
type dimImage struct{ w, h int }

func (d dimImage) ColorModel() color.Model { return color.NRGBAModel }
func (d dimImage) Bounds() image.Rectangle { return image.Rect(0, 0, d.w, d.h) }
func (d dimImage) At(_, _ int) color.Color { return color.NRGBA{} }

type trialRec struct {
	side    int
	quality int
}

// fakeCodec scripts encoded size as a function of (longest side,
// quality) and records every call.
type fakeCodec struct {
	sizeFn  func(side, quality int) int
	encodes []trialRec
	resizes []int
}

func (f *fakeCodec) Decode(_ []byte) (image.Image, error) {
	return dimImage{w: 4000, h: 3000}, nil
}

func (f *fakeCodec) Encode(img image.Image, quality int, _ encoder.Format) (encoder.Blob, error) {
	side := encoder.LongSide(img)
	f.encodes = append(f.encodes, trialRec{side: side, quality: quality})
	b := img.Bounds()
	return encoder.Blob{
		Data:    make([]byte, f.sizeFn(side, quality)),
		Quality: quality,
		Width:   b.Dx(),
		Height:  b.Dy(),
	}, nil
}

func (f *fakeCodec) Resize(_ image.Image, w, h int) image.Image {
	side := w
	if h > w {
		side = h
	}
	f.resizes = append(f.resizes, side)
	return dimImage{w: w, h: h}
}

// linearSize scales bytes linearly with quality and quadratically with
// pixel count, the rough shape of a real JPEG encoder.
func linearSize(fullSide, bytesAtQ100 int) func(side, quality int) int {
	return func(side, quality int) int {
		area := float64(side*side) / float64(fullSide*fullSide)
		return int(area * float64(bytesAtQ100) * float64(quality) / 100)
	}
}

func newAdaptive(fc *fakeCodec) *Adaptive {
	return &Adaptive{Codec: fc, Policy: DefaultPolicy()}
}

func TestTrackerTieBreaks(t *testing.T) {
	tr := newTracker(1000)

	tr.observe(encoder.Blob{Data: make([]byte, 400), Quality: 40})
	tr.observe(encoder.Blob{Data: make([]byte, 900), Quality: 70})
	tr.observe(encoder.Blob{Data: make([]byte, 1500), Quality: 90})
	tr.observe(encoder.Blob{Data: make([]byte, 600), Quality: 55})

	require.NotNil(t, tr.bestUnder)
	assert.Equal(t, 900, tr.bestUnder.Size(), "largest under-target wins")
	require.NotNil(t, tr.smallest)
	assert.Equal(t, 400, tr.smallest.Size(), "smallest overall is remembered")
}

func TestTrackerBestUnderMonotone(t *testing.T) {
	tr := newTracker(10000)
	sizes := []int{3000, 8000, 2000, 9000, 1000, 9500, 400}

	prev := 0
	for _, n := range sizes {
		tr.observe(encoder.Blob{Data: make([]byte, n)})
		require.NotNil(t, tr.bestUnder)
		assert.GreaterOrEqual(t, tr.bestUnder.Size(), prev,
			"best-under must never decrease")
		prev = tr.bestUnder.Size()
	}
}

func TestQualitySearchFindsLargestUnderTarget(t *testing.T) {
	fc := &fakeCodec{sizeFn: func(_, q int) int { return q * 1000 }}
	r := &run{
		codec:  fc,
		log:    (&Adaptive{}).logger(),
		format: encoder.JPEG,
		target: 70000,
		bd:     newBand(70000, 0.999), // [69930, 70000]: only the exact hit at q=70 stops early
		bud:    NewBudget(24),
		tr:     newTracker(70000),
	}

	err := r.qualitySearch(context.Background(), dimImage{100, 100}, 40, 92, 10)
	require.NoError(t, err)
	require.NotNil(t, r.tr.bestUnder)
	assert.Equal(t, 70, r.tr.bestUnder.Quality)
	assert.Equal(t, 70000, r.tr.bestUnder.Size())
}

func TestQualitySearchEarlyStopBand(t *testing.T) {
	fc := &fakeCodec{sizeFn: func(_, q int) int { return q * 1000 }}
	target := 70000
	r := &run{
		codec:  fc,
		log:    (&Adaptive{}).logger(),
		format: encoder.JPEG,
		target: target,
		bd:     newBand(target, 0.90), // [63000, 70000]
		bud:    NewBudget(24),
		tr:     newTracker(target),
	}

	// First mid is (40+92)/2 = 66 → 66000, inside the band: stop.
	err := r.qualitySearch(context.Background(), dimImage{100, 100}, 40, 92, 10)
	require.NoError(t, err)
	assert.Len(t, fc.encodes, 1)
	assert.Equal(t, 66, fc.encodes[0].quality)
}

func TestQualitySearchRespectsAttemptCap(t *testing.T) {
	fc := &fakeCodec{sizeFn: func(_, q int) int { return q * 1000 }}
	r := &run{
		codec:  fc,
		log:    (&Adaptive{}).logger(),
		format: encoder.JPEG,
		target: 1, // nothing ever fits; the range alone would take 6 steps
		bd:     newBand(1, 0.95),
		bud:    NewBudget(100),
		tr:     newTracker(1),
	}

	err := r.qualitySearch(context.Background(), dimImage{100, 100}, 1, 100, 3)
	require.NoError(t, err)
	assert.Len(t, fc.encodes, 3)
}

func TestQualitySearchStopsWhenBudgetExhausted(t *testing.T) {
	fc := &fakeCodec{sizeFn: func(_, q int) int { return q * 1000 }}
	r := &run{
		codec:  fc,
		log:    (&Adaptive{}).logger(),
		format: encoder.JPEG,
		target: 1,
		bd:     newBand(1, 0.95),
		bud:    NewBudget(2),
		tr:     newTracker(1),
	}

	err := r.qualitySearch(context.Background(), dimImage{100, 100}, 1, 100, 10)
	require.NoError(t, err)
	assert.Len(t, fc.encodes, 2)
}

func TestQualitySearchDegeneratesToSingleProbe(t *testing.T) {
	fc := &fakeCodec{sizeFn: func(_, q int) int { return q * 100 }}
	r := &run{
		codec:  fc,
		log:    (&Adaptive{}).logger(),
		format: encoder.JPEG,
		target: 10000,
		bd:     newBand(10000, 0.95),
		bud:    NewBudget(24),
		tr:     newTracker(10000),
	}

	// min == max: exactly one probe.
	err := r.qualitySearch(context.Background(), dimImage{100, 100}, 92, 92, 5)
	require.NoError(t, err)
	assert.Len(t, fc.encodes, 1)
	assert.Equal(t, 92, fc.encodes[0].quality)
}

func TestQualitySearchPNGSingleTrial(t *testing.T) {
	fc := &fakeCodec{sizeFn: func(side, _ int) int { return side * 10 }}
	r := &run{
		codec:  fc,
		log:    (&Adaptive{}).logger(),
		format: encoder.PNG,
		target: 10000,
		bd:     newBand(10000, 0.95),
		bud:    NewBudget(24),
		tr:     newTracker(10000),
	}

	err := r.qualitySearch(context.Background(), dimImage{100, 100}, 40, 92, 5)
	require.NoError(t, err)
	assert.Len(t, fc.encodes, 1, "PNG has no quality axis")
}

func TestPredictorLandsInBand(t *testing.T) {
	// size(q) = 1000*q. Target 80000, band [76000, 80000].
	// Probes: 85 → 85000 (over), 35 → 35000 (under, not in band).
	// Fit: a=1000, b=0 → q* = 80 → 80000 lands in the band.
	fc := &fakeCodec{sizeFn: func(_, q int) int { return q * 1000 }}
	ad := newAdaptive(fc)

	rep, err := ad.Run(context.Background(), Request{
		Img:        dimImage{800, 600},
		Format:     encoder.JPEG,
		Target:     80000,
		MinQuality: 40,
		MaxQuality: 92,
	}, NewBudget(24))
	require.NoError(t, err)

	require.NotNil(t, rep.Best)
	assert.Equal(t, 80000, rep.Best.Size())
	assert.Equal(t, 80, rep.Best.Quality)
	// Two probes plus exactly one predicted trial.
	assert.Len(t, fc.encodes, 3)
}

func TestPredictorTrialsRespectQualityFloor(t *testing.T) {
	// q* = 30 sits below the floor of 60, so the first trial set is
	// filtered out entirely. The low probe overshoots, so the downscale
	// pass runs next; its trials are bounded only by the predictor floor
	// of 10, and q=30 lands in the band there.
	fc := &fakeCodec{sizeFn: func(_, q int) int { return q * 1000 }}
	ad := newAdaptive(fc)

	_, err := ad.Run(context.Background(), Request{
		Img:        dimImage{800, 600},
		Format:     encoder.JPEG,
		Target:     30000,
		MinQuality: 60,
		MaxQuality: 92,
	}, NewBudget(24))
	require.NoError(t, err)

	for _, tr := range fc.encodes[2:] { // skip the two fixed probes
		assert.GreaterOrEqual(t, tr.quality, 10)
	}
}

func TestPredictorDownscaleEngages(t *testing.T) {
	// Full size: even q=35 vastly overshoots → downscale must kick in.
	fc := &fakeCodec{sizeFn: linearSize(4000, 8<<20)}
	ad := newAdaptive(fc)

	target := 50 * 1024
	rep, err := ad.Run(context.Background(), Request{
		Img:        dimImage{4000, 3000},
		Format:     encoder.JPEG,
		Target:     target,
		MinQuality: 40,
		MaxQuality: 92,
	}, NewBudget(24))
	require.NoError(t, err)

	assert.NotEmpty(t, fc.resizes, "predictor must propose a downscale")
	require.NotNil(t, rep.Best)
	assert.LessOrEqual(t, rep.Best.Size(), target)
	assert.GreaterOrEqual(t, rep.Best.Quality, 10)
}

func TestAdaptiveHonorsTrialBudget(t *testing.T) {
	// Nothing ever fits: every trial is spent, none wasted past the cap.
	fc := &fakeCodec{sizeFn: func(_, _ int) int { return 1 << 30 }}
	ad := newAdaptive(fc)

	bud := NewBudget(24)
	rep, err := ad.Run(context.Background(), Request{
		Img:        dimImage{4000, 3000},
		Format:     encoder.JPEG,
		Target:     10 * 1024,
		MinQuality: 40,
		MaxQuality: 92,
	}, bud)
	require.NoError(t, err)

	assert.Nil(t, rep.Best)
	assert.LessOrEqual(t, len(fc.encodes), 24)
	assert.Equal(t, 0, bud.Remaining())
}

func TestAdaptiveFallbackWidensQuality(t *testing.T) {
	// Only low qualities at the small fallback rungs fit; the step in
	// the size function defeats the linear predictor so the fallback
	// ladder has to do the rescue.
	fc := &fakeCodec{sizeFn: func(side, q int) int {
		if side <= 360 && q <= 20 {
			return 8000
		}
		return 1 << 20
	}}
	ad := newAdaptive(fc)

	rep, err := ad.Run(context.Background(), Request{
		Img:        dimImage{4000, 3000},
		Format:     encoder.JPEG,
		Target:     9000,
		MinQuality: 40,
		MaxQuality: 92,
	}, NewBudget(120))
	require.NoError(t, err)

	require.NotNil(t, rep.Best)
	assert.LessOrEqual(t, rep.Best.Size(), 9000)
	assert.Less(t, rep.Best.Quality, 40, "fallback must widen below the floor")
	assert.GreaterOrEqual(t, rep.Best.Quality, fallbackQualityFloor)
}

func TestEnforceSweepsAtQualityOne(t *testing.T) {
	// Only tiny dimensions at quality 1 fit.
	fc := &fakeCodec{sizeFn: func(side, q int) int { return side * q * 40 }}
	ad := newAdaptive(fc)

	out, err := ad.Enforce(context.Background(), dimImage{4000, 3000}, encoder.JPEG, 10*1024)
	require.NoError(t, err)

	require.True(t, out.Found)
	assert.LessOrEqual(t, out.Blob.Size(), 10*1024)
	assert.Equal(t, 1, out.Blob.Quality)
	for _, tr := range fc.encodes {
		assert.Equal(t, 1, tr.quality)
	}
}

func TestEnforceGivesUpWhenNothingFits(t *testing.T) {
	fc := &fakeCodec{sizeFn: func(_, _ int) int { return 1 << 30 }}
	ad := newAdaptive(fc)

	out, err := ad.Enforce(context.Background(), dimImage{4000, 3000}, encoder.JPEG, 10*1024)
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.LessOrEqual(t, len(fc.encodes), len(ad.Policy.EnforcementLadder))
}

func TestRunCancelled(t *testing.T) {
	fc := &fakeCodec{sizeFn: func(_, _ int) int { return 1 << 30 }}
	ad := newAdaptive(fc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ad.Run(ctx, Request{
		Img:        dimImage{4000, 3000},
		Format:     encoder.JPEG,
		Target:     10 * 1024,
		MinQuality: 40,
		MaxQuality: 92,
	}, NewBudget(24))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fc.encodes)
}

func TestLadderSkipsUpscaleRungs(t *testing.T) {
	// A 300px image: every rung ≥ 300 is a no-op and must be skipped,
	// not re-encoded.
	fc := &fakeCodec{sizeFn: func(_, _ int) int { return 1 << 30 }}
	ad := newAdaptive(fc)

	_, err := ad.Run(context.Background(), Request{
		Img:        dimImage{300, 200},
		Format:     encoder.JPEG,
		Target:     10 * 1024,
		MinQuality: 40,
		MaxQuality: 92,
	}, NewBudget(200))
	require.NoError(t, err)

	for _, side := range fc.resizes {
		assert.Less(t, side, 300)
	}
}

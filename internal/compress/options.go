package compress

import (
	"fmt"

	"github.com/ke112/nice-image-compress/internal/encoder"
)

// Defaults applied by normalize for zero-valued fields.
const (
	DefaultInitialQuality      = 92
	DefaultMinQuality          = 40
	DefaultEarlyStopRatio      = 0.95
	DefaultNearTargetFactor    = 1.2
	DefaultPreferredMinQuality = 80
	DefaultMaxAttemptsPerDim   = 5
	DefaultMaxTotalTrials      = 24
)

// safeTargetFloorBytes keeps pathological targets from driving the
// search into degenerate territory.
const safeTargetFloorBytes = 10 * 1024

// Options configures one compression request.
type Options struct {
	// TargetSizeKB is the byte budget in KiB. Required, > 0.
	TargetSizeKB int

	// InitialQuality is the inclusive upper quality bound.
	InitialQuality int

	// MinQuality is the inclusive lower bound for non-fallback passes.
	MinQuality int

	// Format selects the output codec. Quality only varies for
	// JPEG/WebP; the PNG path degrades to dimension-only search.
	Format encoder.Format

	// KeepEXIF forwards EXIF preservation to the platform codec.
	// JPEG only.
	KeepEXIF bool

	// EarlyStopRatio defines the stop band [ratio*target, target].
	EarlyStopRatio float64

	// NearTargetFactor triggers the high-quality fast path when the
	// input is within factor*target.
	NearTargetFactor float64

	// PreferredMinQuality replaces the quality floor during the
	// near-target path (the larger of it and MinQuality wins).
	PreferredMinQuality int

	// MaxAttemptsPerDim caps binary-search steps per ladder rung.
	MaxAttemptsPerDim int

	// MaxTotalTrials caps encoder calls for the adaptive tiers.
	MaxTotalTrials int

	// MaxWidth / MaxHeight cap dimensions before the ladder runs.
	// Zero means unconstrained.
	MaxWidth  int
	MaxHeight int
}

// DefaultOptions returns options for the given KiB budget with every
// other knob at its default.
func DefaultOptions(targetKB int) Options {
	o := Options{TargetSizeKB: targetKB}
	o.normalize()
	return o
}

// normalize fills zero-valued fields with defaults.
func (o *Options) normalize() {
	if o.InitialQuality == 0 {
		o.InitialQuality = DefaultInitialQuality
	}
	if o.MinQuality == 0 {
		o.MinQuality = DefaultMinQuality
	}
	if o.Format == "" {
		o.Format = encoder.JPEG
	}
	if o.EarlyStopRatio == 0 {
		o.EarlyStopRatio = DefaultEarlyStopRatio
	}
	if o.NearTargetFactor == 0 {
		o.NearTargetFactor = DefaultNearTargetFactor
	}
	if o.PreferredMinQuality == 0 {
		o.PreferredMinQuality = DefaultPreferredMinQuality
	}
	if o.MaxAttemptsPerDim == 0 {
		o.MaxAttemptsPerDim = DefaultMaxAttemptsPerDim
	}
	if o.MaxTotalTrials == 0 {
		o.MaxTotalTrials = DefaultMaxTotalTrials
	}
}

// validate rejects out-of-range option combinations.
func (o *Options) validate() error {
	switch {
	case o.TargetSizeKB <= 0:
		return fmt.Errorf("target size must be positive, got %d KB", o.TargetSizeKB)
	case o.InitialQuality <= 0 || o.InitialQuality > 100:
		return fmt.Errorf("initial quality %d out of (0,100]", o.InitialQuality)
	case o.MinQuality <= 0 || o.MinQuality > o.InitialQuality:
		return fmt.Errorf("min quality %d out of (0,%d]", o.MinQuality, o.InitialQuality)
	case o.EarlyStopRatio <= 0 || o.EarlyStopRatio > 1:
		return fmt.Errorf("early stop ratio %v out of (0,1]", o.EarlyStopRatio)
	case o.NearTargetFactor < 1:
		return fmt.Errorf("near target factor %v below 1.0", o.NearTargetFactor)
	case o.PreferredMinQuality <= 0 || o.PreferredMinQuality > 100:
		return fmt.Errorf("preferred min quality %d out of (0,100]", o.PreferredMinQuality)
	case o.MaxAttemptsPerDim <= 0:
		return fmt.Errorf("max attempts per dim must be positive")
	case o.MaxTotalTrials <= 0:
		return fmt.Errorf("max total trials must be positive")
	}
	switch o.Format {
	case encoder.JPEG, encoder.PNG, encoder.WebP:
	default:
		return fmt.Errorf("%w: %s", encoder.ErrUnsupportedFormat, o.Format)
	}
	return nil
}

// targetBytes is the raw byte budget.
func (o *Options) targetBytes() int { return o.TargetSizeKB * 1024 }

// safeTargetBytes is the working budget with the 10 KiB floor applied.
func (o *Options) safeTargetBytes() int {
	t := o.targetBytes()
	if t < safeTargetFloorBytes {
		return safeTargetFloorBytes
	}
	return t
}

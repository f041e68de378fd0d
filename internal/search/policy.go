package search

// Policy is pure data shaping the adaptive search: the dimension
// ladders, per-pass attempt caps and the early-stop band width.
type Policy struct {
	// PrimaryLadder lists maximum longest-side caps tried in order.
	// 0 means "no downscale" and comes first so the engine tries to
	// meet the target at full resolution before shrinking.
	PrimaryLadder []int

	// FallbackLadder is retried with the quality floor widened to
	// fallbackQualityFloor when the primary ladder found nothing.
	FallbackLadder []int

	// EnforcementLadder is swept at quality 1 as the last resort.
	EnforcementLadder []int

	// MaxAttemptsPerDim caps binary-search steps at one dimension.
	MaxAttemptsPerDim int

	// MaxTotalTrials caps encoder calls across the predictor and the
	// ladders for one request.
	MaxTotalTrials int

	// EarlyStopRatio defines the band [ratio*target, target]; a
	// candidate inside it stops the search.
	EarlyStopRatio float64
}

// fallbackQualityFloor is the widened lower quality bound used by the
// fallback ladder pass.
const fallbackQualityFloor = 10

// enforcementQuality is the quality the enforcement sweep encodes at.
const enforcementQuality = 1

// DefaultPolicy returns the standard ladders and caps.
func DefaultPolicy() Policy {
	return Policy{
		PrimaryLadder: []int{
			0, 3000, 2048, 1600, 1280, 1024, 800, 640, 480,
			360, 320, 256, 224, 200, 180, 160, 128,
		},
		FallbackLadder: []int{
			360, 320, 256, 224, 200, 180, 160, 128,
		},
		EnforcementLadder: []int{
			640, 480, 360, 320, 256, 224, 200, 180, 160, 128, 112, 96, 80,
		},
		MaxAttemptsPerDim: 5,
		MaxTotalTrials:    24,
		EarlyStopRatio:    0.95,
	}
}

// band is the early-stop window [lo, hi]. Any candidate size inside it
// is close enough to the budget to stop searching.
type band struct {
	lo int
	hi int
}

func newBand(target int, ratio float64) band {
	return band{lo: int(ratio * float64(target)), hi: target}
}

func (b band) contains(n int) bool { return n >= b.lo && n <= b.hi }

// Budget counts down remaining encoder trials for one request. The
// orchestrator shares a single budget between its tiers so the trial
// cap holds per request, not per pass.
type Budget struct {
	remaining int
}

// NewBudget returns a trial budget of n encoder calls.
func NewBudget(n int) *Budget { return &Budget{remaining: n} }

// Remaining reports how many trials are left.
func (b *Budget) Remaining() int { return b.remaining }

// spend consumes one trial; false means the budget is exhausted.
func (b *Budget) spend() bool {
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

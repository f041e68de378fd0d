package search

import "github.com/ke112/nice-image-compress/internal/encoder"

// Outcome is the tagged result of a search pass.
type Outcome struct {
	Found bool
	Blob  encoder.Blob
}

// found wraps a blob in a positive outcome.
func found(b encoder.Blob) Outcome { return Outcome{Found: true, Blob: b} }

// tracker accumulates the two candidates every pass cares about:
// the largest blob still under the target (closest to the budget from
// below) and the smallest blob seen at all. Best-under only ever grows
// toward the target, never shrinks.
type tracker struct {
	target    int
	bestUnder *encoder.Blob
	smallest  *encoder.Blob
}

func newTracker(target int) *tracker { return &tracker{target: target} }

func (t *tracker) observe(b encoder.Blob) {
	n := b.Size()
	if n == 0 {
		return
	}
	if n <= t.target && (t.bestUnder == nil || n > t.bestUnder.Size()) {
		c := b
		t.bestUnder = &c
	}
	if t.smallest == nil || n < t.smallest.Size() {
		c := b
		t.smallest = &c
	}
}

// bandHit reports whether the current best-under candidate terminates
// the search.
func (t *tracker) bandHit(bd band) bool {
	return t.bestUnder != nil && bd.contains(t.bestUnder.Size())
}

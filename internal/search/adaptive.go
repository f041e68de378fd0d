// Package search implements the byte-budget search over the
// two-dimensional (quality, dimension) space: a predictor-assisted,
// trial-bounded walk down the dimension ladders with a bounded binary
// search over quality at each rung.
package search

import (
	"context"
	"image"
	"io"
	"log/slog"

	"github.com/ke112/nice-image-compress/internal/encoder"
)

type logsink = *slog.Logger

// Adaptive drives a decoded image through the predictor and the
// dimension ladders, tracking the best-under-target and
// smallest-overall candidates across every trial.
type Adaptive struct {
	Codec  encoder.Codec
	Policy Policy
	Log    *slog.Logger
}

// Request describes one search over a decoded image.
type Request struct {
	Img        image.Image
	Format     encoder.Format
	Target     int // safe target bytes
	MinQuality int
	MaxQuality int
}

// Report is the accumulated result of a search. Best is nil when no
// candidate landed under the target.
type Report struct {
	Best     *encoder.Blob
	Smallest *encoder.Blob
	Trials   int
}

func (a *Adaptive) logger() *slog.Logger {
	if a.Log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return a.Log
}

// Run executes the search: predictor pass, primary ladder, then a
// widened fallback ladder when nothing fit. The budget is shared with
// the caller and may already be partially spent.
func (a *Adaptive) Run(ctx context.Context, req Request, bud *Budget) (Report, error) {
	r := &run{
		codec:  a.Codec,
		log:    a.logger(),
		format: req.Format,
		target: req.Target,
		bd:     newBand(req.Target, a.Policy.EarlyStopRatio),
		bud:    bud,
		tr:     newTracker(req.Target),
	}
	start := bud.remaining

	// PNG has no quality axis; the ladder alone does the work.
	if req.Format != encoder.PNG {
		if err := r.predictorPass(ctx, req.Img, req.MinQuality, req.MaxQuality); err != nil {
			return a.report(r, start), err
		}
	}

	if !r.tr.bandHit(r.bd) {
		err := r.ladderPass(ctx, req.Img, a.Policy.PrimaryLadder,
			req.MinQuality, req.MaxQuality, a.Policy.MaxAttemptsPerDim, false)
		if err != nil {
			return a.report(r, start), err
		}
	}

	// Nothing under target and the floor leaves room: widen quality to
	// the fallback floor and take the first hit on the smaller rungs.
	if r.tr.bestUnder == nil && req.MinQuality > fallbackQualityFloor {
		err := r.ladderPass(ctx, req.Img, a.Policy.FallbackLadder,
			fallbackQualityFloor, req.MaxQuality, a.Policy.MaxAttemptsPerDim, true)
		if err != nil {
			return a.report(r, start), err
		}
	}

	return a.report(r, start), nil
}

func (a *Adaptive) report(r *run, startBudget int) Report {
	rep := Report{
		Best:     r.tr.bestUnder,
		Smallest: r.tr.smallest,
		Trials:   startBudget - r.bud.remaining,
	}
	if rep.Best != nil {
		a.logger().Debug("search done", "best", rep.Best.Size(),
			"quality", rep.Best.Quality, "trials", rep.Trials)
	}
	return rep
}

// ladderPass resizes once per rung and runs the quality search there.
// firstHit stops at the first under-target candidate instead of
// polishing toward the band.
func (r *run) ladderPass(ctx context.Context, img image.Image, ladder []int, lo, hi, maxAttempts int, firstHit bool) error {
	long := encoder.LongSide(img)
	b := img.Bounds()

	for _, dim := range ladder {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.exhausted() {
			return nil
		}

		work := img
		if dim > 0 {
			if dim >= long {
				// Scale factor >= 1: identical pixels to the rung
				// already tried, skip instead of burning trials.
				continue
			}
			w, h := encoder.FitLongSide(b.Dx(), b.Dy(), dim)
			work = r.codec.Resize(img, w, h)
		}

		if err := r.qualitySearch(ctx, work, lo, hi, maxAttempts); err != nil {
			return err
		}
		if r.tr.bandHit(r.bd) {
			return nil
		}
		if firstHit && r.tr.bestUnder != nil {
			return nil
		}
	}
	return nil
}

// Enforce sweeps the enforcement ladder at quality 1 and returns the
// first candidate under target. It runs outside the trial budget; it
// exists to guarantee termination with something, not to be frugal.
func (a *Adaptive) Enforce(ctx context.Context, img image.Image, format encoder.Format, target int) (Outcome, error) {
	long := encoder.LongSide(img)
	b := img.Bounds()
	lastSide := -1

	for _, dim := range a.Policy.EnforcementLadder {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}

		side := dim
		if side > long {
			side = long
		}
		if side == lastSide {
			continue
		}
		lastSide = side

		work := img
		if side < long {
			w, h := encoder.FitLongSide(b.Dx(), b.Dy(), side)
			work = a.Codec.Resize(img, w, h)
		}

		blob, err := a.Codec.Encode(work, enforcementQuality, format)
		if err != nil {
			continue
		}
		a.logger().Debug("enforce trial", "dim", side, "size", blob.Size())
		if blob.Size() <= target {
			return found(blob), nil
		}
	}
	return Outcome{}, nil
}

package search

import (
	"context"
	"image"

	"github.com/ke112/nice-image-compress/internal/encoder"
)

// run carries the shared state of one adaptive search: the codec, the
// trial budget, the early-stop band and the candidate tracker.
type run struct {
	codec  encoder.Codec
	log    logsink
	format encoder.Format
	target int
	bd     band
	bud    *Budget
	tr     *tracker
}

func (r *run) exhausted() bool { return r.bud.remaining <= 0 }

// encode performs one trial: spends budget, encodes, observes the
// candidate. ok is false when the budget ran out or the encoder
// refused the call; encoder failures are swallowed per tier policy.
func (r *run) encode(ctx context.Context, img image.Image, quality int) (encoder.Blob, bool, error) {
	if err := ctx.Err(); err != nil {
		return encoder.Blob{}, false, err
	}
	if !r.bud.spend() {
		return encoder.Blob{}, false, nil
	}
	blob, err := r.codec.Encode(img, quality, r.format)
	if err != nil {
		r.log.Debug("trial failed", "quality", quality, "err", err)
		return encoder.Blob{}, false, nil
	}
	r.tr.observe(blob)
	r.log.Debug("trial", "quality", quality,
		"width", blob.Width, "height", blob.Height,
		"size", blob.Size(), "target", r.target)
	return blob, true, nil
}

// qualitySearch binary-searches quality in [lo, hi] at a fixed
// dimension. Under-target candidates push lo up (seek higher quality
// still under target); oversize candidates pull hi down. The tracker
// keeps the tie-breaks: largest under target wins, smallest overall is
// remembered for the give-up path.
func (r *run) qualitySearch(ctx context.Context, img image.Image, lo, hi, maxAttempts int) error {
	if r.format == encoder.PNG {
		// Quality does not vary for PNG; one probe per dimension.
		_, _, err := r.encode(ctx, img, hi)
		return err
	}

	attempts := 0
	for lo <= hi && attempts < maxAttempts && !r.exhausted() {
		mid := (lo + hi) / 2
		blob, ok, err := r.encode(ctx, img, mid)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		attempts++

		if blob.Size() <= r.target {
			if r.tr.bandHit(r.bd) {
				return nil
			}
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return nil
}

package compress

import (
	"context"
	"log/slog"

	"github.com/ke112/nice-image-compress/internal/encoder"
	"github.com/ke112/nice-image-compress/internal/search"
)

// fastPathMaxAttempts is the hard cap on platform-codec calls per
// request, shared across tiers.
const fastPathMaxAttempts = 6

// fastPath binary-searches quality through the platform file codec:
// no resize, small attempt cap, every failure swallowed. It succeeds
// only with an under-target candidate; anything else means "fall
// through to the next tier".
type fastPath struct {
	codec    encoder.FileCodec
	log      *slog.Logger
	attempts int
}

func (f *fastPath) run(ctx context.Context, path string, target, minQ, maxQ int, stopRatio float64, format encoder.Format, keepEXIF bool) search.Outcome {
	if f.codec == nil || !f.codec.Available() || path == "" {
		return search.Outcome{}
	}
	// Quality does not vary for PNG; nothing for this tier to search.
	if format == encoder.PNG {
		return search.Outcome{}
	}

	bandLo := int(stopRatio * float64(target))
	var best *encoder.Blob

	lo, hi := minQ, maxQ
	for lo <= hi && f.attempts < fastPathMaxAttempts {
		if ctx.Err() != nil {
			return search.Outcome{}
		}
		mid := (lo + hi) / 2
		f.attempts++

		data, err := f.codec.EncodeFile(path, mid, format, keepEXIF)
		if err != nil || len(data) == 0 {
			// Platform codec refused; this tier is done.
			f.log.Debug("fast path unavailable", "err", err)
			return search.Outcome{}
		}
		f.log.Debug("fast path trial", "quality", mid, "size", len(data), "target", target)

		if len(data) <= target {
			if best == nil || len(data) > best.Size() {
				w, h := encoder.Dimensions(data)
				best = &encoder.Blob{Data: data, Quality: mid, Width: w, Height: h}
			}
			if len(data) >= bandLo {
				break
			}
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	if best == nil {
		return search.Outcome{}
	}
	return search.Outcome{Found: true, Blob: *best}
}

// Package compress is the top-level entry of the recompression
// engine: it tiers a platform fast path, the adaptive search and a
// last-resort enforcement sweep under a process-wide concurrency gate.
package compress

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/ke112/nice-image-compress/internal/encoder"
	"github.com/ke112/nice-image-compress/internal/search"
)

// ErrUnreadableSource is the only error surfaced for inputs the engine
// cannot even return verbatim.
var ErrUnreadableSource = errors.New("unreadable source")

// Compressor owns the codecs and the gate. The zero-config constructor
// wires the stdlib codec, the ImageMagick file codec and the shared
// process gate.
type Compressor struct {
	codec  encoder.Codec
	file   encoder.FileCodec
	gate   *semaphore.Weighted
	policy search.Policy
	log    *slog.Logger
}

// Option configures a Compressor.
type Option func(*Compressor)

// WithCodec replaces the in-memory codec.
func WithCodec(c encoder.Codec) Option {
	return func(cp *Compressor) { cp.codec = c }
}

// WithFileCodec replaces the platform file codec. nil disables the
// fast-path tier.
func WithFileCodec(f encoder.FileCodec) Option {
	return func(cp *Compressor) { cp.file = f }
}

// WithGate replaces the shared concurrency gate.
func WithGate(g *semaphore.Weighted) Option {
	return func(cp *Compressor) { cp.gate = g }
}

// WithLogger attaches a logger. Nil logs nothing.
func WithLogger(l *slog.Logger) Option {
	return func(cp *Compressor) { cp.log = l }
}

// New creates a Compressor.
func New(opts ...Option) *Compressor {
	c := &Compressor{
		codec:  encoder.NewStd(),
		file:   &encoder.Magick{},
		policy: search.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.gate == nil {
		c.gate = sharedCompressionGate()
	}
	return c
}

func (c *Compressor) logger() *slog.Logger {
	if c.log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.log
}

// CompressFile reads path and compresses it to the byte budget. The
// file path additionally enables the platform fast path.
func (c *Compressor) CompressFile(ctx context.Context, path string, opts Options) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnreadableSource, err)
	}
	return c.compress(ctx, data, path, opts)
}

// CompressBytes compresses an in-memory buffer to the byte budget.
func (c *Compressor) CompressBytes(ctx context.Context, data []byte, opts Options) (*Result, error) {
	return c.compress(ctx, data, "", opts)
}

func (c *Compressor) compress(ctx context.Context, data []byte, path string, opts Options) (*Result, error) {
	opts.normalize()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	// Passthrough short-circuits before the gate: no decode, no
	// encoder calls, quality reported as 100.
	if len(data) <= opts.targetBytes() {
		return passthroughResult(data), nil
	}

	// One permit per request, held to every exit path. Acquire honors
	// cancellation while queued.
	if err := c.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.gate.Release(1)

	log := c.logger().With("request", uuid.NewString())
	safe := opts.safeTargetBytes()
	log.Debug("compress", "bytes", len(data),
		"target", opts.targetBytes(), "safe_target", safe, "format", opts.Format)

	fp := &fastPath{codec: c.file, log: log}

	pol := c.policy
	pol.MaxAttemptsPerDim = opts.MaxAttemptsPerDim
	pol.MaxTotalTrials = opts.MaxTotalTrials
	pol.EarlyStopRatio = opts.EarlyStopRatio
	ad := &search.Adaptive{Codec: c.codec, Policy: pol, Log: log}
	bud := search.NewBudget(opts.MaxTotalTrials)

	// The near-target tier reruns the same two strategies with an
	// elevated quality floor before the general tier gets its turn.
	// Budgets are shared so per-request caps hold across tiers.
	floors := []int{opts.MinQuality}
	if nearTarget := len(data) <= int(float64(safe)*opts.NearTargetFactor); nearTarget {
		if elevated := max(opts.PreferredMinQuality, opts.MinQuality); elevated > opts.MinQuality {
			floors = append([]int{elevated}, floors...)
			log.Debug("near target", "floor", elevated)
		}
	}

	// Decode is deferred until the first adaptive tier actually needs
	// pixels; the fast path works on the file as-is.
	var (
		img       image.Image
		decodeErr error
		decoded   bool
	)
	var smallest *encoder.Blob

	for _, floor := range floors {
		if out := fp.run(ctx, path, safe, floor, opts.InitialQuality,
			opts.EarlyStopRatio, opts.Format, opts.KeepEXIF); out.Found {
			return resultFromBlob(out.Blob, len(data)), nil
		}

		if !decoded {
			decoded = true
			img, decodeErr = c.codec.Decode(data)
			if decodeErr == nil {
				// Hard dimension ceiling, applied once before any
				// ladder runs.
				if b := img.Bounds(); opts.MaxWidth > 0 || opts.MaxHeight > 0 {
					if w, h := encoder.FitBox(b.Dx(), b.Dy(), opts.MaxWidth, opts.MaxHeight); w != b.Dx() || h != b.Dy() {
						img = c.codec.Resize(img, w, h)
						log.Debug("pre-scale cap", "width", w, "height", h)
					}
				}
			}
		}
		if decodeErr != nil {
			continue
		}

		rep, err := ad.Run(ctx, search.Request{
			Img:        img,
			Format:     opts.Format,
			Target:     safe,
			MinQuality: floor,
			MaxQuality: opts.InitialQuality,
		}, bud)
		if err != nil {
			return nil, err
		}
		smallest = smallerBlob(smallest, rep.Smallest)
		if rep.Best != nil {
			return resultFromBlob(*rep.Best, len(data)), nil
		}
	}

	// Neither the platform codec nor the pure tiers could run.
	if decodeErr != nil {
		return nil, fmt.Errorf("decode: %w", decodeErr)
	}

	// Final enforcement: quality 1 down the enforcement ladder.
	if smallest == nil || smallest.Size() > safe {
		out, err := ad.Enforce(ctx, img, opts.Format, safe)
		if err != nil {
			return nil, err
		}
		if out.Found {
			return resultFromBlob(out.Blob, len(data)), nil
		}
	}

	// No candidate fit the budget; hand back the smallest thing seen
	// if it at least beats the original.
	if smallest != nil && smallest.Size() < len(data) {
		log.Debug("returning smallest over-target candidate", "size", smallest.Size())
		return resultFromBlob(*smallest, len(data)), nil
	}

	// Nothing beat the original; return it unchanged.
	log.Debug("no candidate beat the original")
	res := passthroughResult(data)
	res.Passthrough = false
	return res, nil
}

func smallerBlob(a, b *encoder.Blob) *encoder.Blob {
	if a == nil {
		return b
	}
	if b == nil || a.Size() <= b.Size() {
		return a
	}
	return b
}

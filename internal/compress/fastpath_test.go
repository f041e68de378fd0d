package compress

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ke112/nice-image-compress/internal/encoder"
)

// fakeFileCodec scripts EncodeFile sizes by quality.
type fakeFileCodec struct {
	sizeFn func(quality int) int
	err    error
	avail  bool
	calls  int
}

func (f *fakeFileCodec) Available() bool { return f.avail }

func (f *fakeFileCodec) EncodeFile(_ string, quality int, _ encoder.Format, _ bool) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return make([]byte, f.sizeFn(quality)), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFastPathFindsUnderTarget(t *testing.T) {
	fc := &fakeFileCodec{avail: true, sizeFn: func(q int) int { return q * 1000 }}
	fp := &fastPath{codec: fc, log: discardLogger()}

	out := fp.run(context.Background(), "/tmp/x.jpg", 70000, 40, 92, 0.95, encoder.JPEG, false)
	require.True(t, out.Found)
	assert.LessOrEqual(t, out.Blob.Size(), 70000)
	assert.LessOrEqual(t, fc.calls, fastPathMaxAttempts)
}

func TestFastPathAttemptCap(t *testing.T) {
	// Nothing fits, so every call lowers hi; the call count must never
	// pass the cap.
	fc := &fakeFileCodec{avail: true, sizeFn: func(_ int) int { return 1 << 30 }}
	fp := &fastPath{codec: fc, log: discardLogger()}

	out := fp.run(context.Background(), "/tmp/x.jpg", 70000, 1, 100, 0.95, encoder.JPEG, false)
	assert.False(t, out.Found)
	assert.LessOrEqual(t, fc.calls, fastPathMaxAttempts)
}

func TestFastPathUnavailable(t *testing.T) {
	fc := &fakeFileCodec{avail: false, sizeFn: func(q int) int { return q }}
	fp := &fastPath{codec: fc, log: discardLogger()}

	out := fp.run(context.Background(), "/tmp/x.jpg", 70000, 40, 92, 0.95, encoder.JPEG, false)
	assert.False(t, out.Found)
	assert.Zero(t, fc.calls)
}

func TestFastPathSwallowsCodecErrors(t *testing.T) {
	fc := &fakeFileCodec{avail: true, err: errors.New("boom")}
	fp := &fastPath{codec: fc, log: discardLogger()}

	out := fp.run(context.Background(), "/tmp/x.jpg", 70000, 40, 92, 0.95, encoder.JPEG, false)
	assert.False(t, out.Found)
	assert.Equal(t, 1, fc.calls)
}

func TestFastPathSkipsPNG(t *testing.T) {
	fc := &fakeFileCodec{avail: true, sizeFn: func(q int) int { return q }}
	fp := &fastPath{codec: fc, log: discardLogger()}

	out := fp.run(context.Background(), "/tmp/x.png", 70000, 40, 92, 0.95, encoder.PNG, false)
	assert.False(t, out.Found)
	assert.Zero(t, fc.calls)
}

func TestFastPathSharedCapAcrossTiers(t *testing.T) {
	fc := &fakeFileCodec{avail: true, sizeFn: func(_ int) int { return 1 << 30 }}
	fp := &fastPath{codec: fc, log: discardLogger()}

	fp.run(context.Background(), "/tmp/x.jpg", 70000, 80, 92, 0.95, encoder.JPEG, false)
	fp.run(context.Background(), "/tmp/x.jpg", 70000, 40, 92, 0.95, encoder.JPEG, false)
	assert.LessOrEqual(t, fc.calls, fastPathMaxAttempts,
		"the platform-codec cap is per request, not per tier")
}

func TestFastPathNoPath(t *testing.T) {
	fc := &fakeFileCodec{avail: true, sizeFn: func(q int) int { return q }}
	fp := &fastPath{codec: fc, log: discardLogger()}

	out := fp.run(context.Background(), "", 70000, 40, 92, 0.95, encoder.JPEG, false)
	assert.False(t, out.Found)
	assert.Zero(t, fc.calls)
}

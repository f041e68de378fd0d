package encoder

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
)

// Magick re-encodes image files by shelling out to ImageMagick.
// It is the platform-codec tier: quality-only, no resize, and the
// caller treats any failure as "unavailable, try the next tier".
// Install: brew install imagemagick / apt install imagemagick
type Magick struct {
	once      sync.Once
	available bool
	binPath   string
}

func (m *Magick) Available() bool {
	m.once.Do(func() {
		// ImageMagick 7 ships `magick`; older installs only have `convert`.
		for _, name := range []string{"magick", "convert"} {
			if path, err := exec.LookPath(name); err == nil {
				m.available = true
				m.binPath = path
				return
			}
		}
	})
	return m.available
}

func (m *Magick) EncodeFile(path string, quality int, format Format, keepEXIF bool) ([]byte, error) {
	if !m.Available() {
		return nil, fmt.Errorf("imagemagick not found in PATH: %w", ErrUnavailable)
	}
	if quality <= 0 || quality > 100 {
		quality = 82
	}

	ext := "jpg"
	switch format {
	case PNG:
		ext = "png"
	case WebP:
		ext = "webp"
	}

	id := tempCounter.Add(1)
	dstFile, err := os.CreateTemp("", fmt.Sprintf("nic_magick_%d_*.%s", id, ext))
	if err != nil {
		return nil, fmt.Errorf("create temp: %w", err)
	}
	dstPath := dstFile.Name()
	dstFile.Close()
	defer os.Remove(dstPath)

	args := []string{path, "-quality", fmt.Sprintf("%d", quality)}
	// EXIF survives only on the JPEG path; everything else is stripped.
	if !keepEXIF || format != JPEG {
		args = append(args, "-strip")
	}
	args = append(args, dstPath)

	cmd := exec.Command(m.binPath, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("imagemagick: %w: %s", err, string(out))
	}

	return os.ReadFile(dstPath)
}

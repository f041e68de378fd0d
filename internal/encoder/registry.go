package encoder

import (
	"fmt"
	"strings"
)

// Registry holds all available per-format encoders.
type Registry struct {
	encoders map[Format]perFormat
}

// NewRegistry creates a registry, probing all encoders for availability.
func NewRegistry() *Registry {
	r := &Registry{
		encoders: make(map[Format]perFormat),
	}

	// Register all encoders. Only available ones will be used.
	all := []perFormat{
		&jpegEncoder{},
		&pngEncoder{},
		&webpEncoder{},
	}

	for _, enc := range all {
		if enc.Available() {
			r.encoders[enc.Format()] = enc
		}
	}

	return r
}

// Get returns an encoder for the given format, or nil if unavailable.
func (r *Registry) Get(format Format) perFormat {
	return r.encoders[Format(strings.ToLower(string(format)))]
}

// Available returns all available format names.
func (r *Registry) Available() []Format {
	var result []Format
	// Maintain priority order.
	for _, f := range []Format{JPEG, WebP, PNG} {
		if _, ok := r.encoders[f]; ok {
			result = append(result, f)
		}
	}
	return result
}

// String returns a summary of available encoders.
func (r *Registry) String() string {
	avail := r.Available()
	if len(avail) == 0 {
		return "no encoders available"
	}
	names := make([]string, len(avail))
	for i, f := range avail {
		names[i] = string(f)
	}
	return fmt.Sprintf("encoders: %s", strings.Join(names, ", "))
}

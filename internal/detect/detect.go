// Package detect locates candidate face regions in a canonical pixel buffer.
// Two interchangeable strategies are provided: a fast classical cascade that
// tolerates non-photographic input (sketches, line art) and a heavier learned
// detector tuned for photographs.
package detect

import (
	"errors"
	"fmt"

	"github.com/caseboard/suspect-search/internal/imaging"
)

// ErrInvalidImage means the input buffer violates the detector's invariants
// (wrong channel count, inconsistent length). Detection is never attempted on
// such input; failing early beats propagating a detector crash.
var ErrInvalidImage = errors.New("invalid image for face detection")

// Strategy selects a detection implementation.
type Strategy string

const (
	// Fast is a classical cascade: cheap, lower recall, tolerant of
	// stylized line art. Used exclusively on the sketch path.
	Fast Strategy = "fast"
	// Accurate is the learned CNN detector used for photographs.
	Accurate Strategy = "accurate"
)

// Region is a face bounding rectangle in pixel coordinates, in (top, right,
// bottom, left) order.
type Region struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Width returns the region width in pixels.
func (r Region) Width() int { return r.Right - r.Left }

// Height returns the region height in pixels.
func (r Region) Height() int { return r.Bottom - r.Top }

// Locator finds face regions in an image. An empty result with a nil error
// means no face was found, which is a normal outcome rather than a failure.
type Locator interface {
	Locate(img *imaging.PixelImage) ([]Region, error)
}

// Detector routes between the two strategies.
type Detector struct {
	fast     Locator
	accurate Locator
}

// NewDetector builds a Detector from the two strategy implementations.
func NewDetector(fast, accurate Locator) *Detector {
	return &Detector{fast: fast, accurate: accurate}
}

// Locate runs the requested strategy over the image.
func (d *Detector) Locate(img *imaging.PixelImage, strategy Strategy) ([]Region, error) {
	switch strategy {
	case Fast:
		return d.fast.Locate(img)
	case Accurate:
		return d.accurate.Locate(img)
	default:
		return nil, fmt.Errorf("unknown detection strategy %q", strategy)
	}
}

// validate checks detector input invariants: 8-bit samples (implied by the
// buffer type), 1 or 3 channels, contiguous layout.
func validate(img *imaging.PixelImage) error {
	if img == nil || len(img.Pix) == 0 {
		return fmt.Errorf("%w: nil or empty buffer", ErrInvalidImage)
	}
	if !img.Valid() {
		return fmt.Errorf("%w: %dx%dx%d with %d samples",
			ErrInvalidImage, img.Width, img.Height, img.Channels, len(img.Pix))
	}
	return nil
}

// IoU computes intersection over union between two regions.
func IoU(a, b Region) float64 {
	top := max(a.Top, b.Top)
	left := max(a.Left, b.Left)
	bottom := min(a.Bottom, b.Bottom)
	right := min(a.Right, b.Right)

	if bottom <= top || right <= left {
		return 0
	}
	intersection := float64((bottom - top) * (right - left))

	areaA := float64(a.Width() * a.Height())
	areaB := float64(b.Width() * b.Height())
	union := areaA + areaB - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// dedupeRegions drops regions that heavily overlap an earlier (larger-first
// is not guaranteed, first-wins) region. Detectors occasionally report the
// same face at two nearby scales.
func dedupeRegions(regions []Region, iouCutoff float64) []Region {
	out := regions[:0:0]
	for _, r := range regions {
		dup := false
		for _, kept := range out {
			if IoU(r, kept) >= iouCutoff {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return out
}

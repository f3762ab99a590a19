package imaging

import (
	"github.com/disintegration/imaging"
)

// DefaultSketchValueCutoff is the unique-sample-value count below which an
// image is treated as a sketch. Thresholded line art collapses to a handful
// of distinct values; photographs use most of the 8-bit range. Tunable via
// configuration, not a fixed law.
const DefaultSketchValueCutoff = 20

// adaptiveWindow and adaptiveOffset control the local-mean threshold used by
// Enhance. An 11px neighborhood with a small offset keeps pencil strokes
// while suppressing paper texture.
const (
	adaptiveWindow = 11
	adaptiveOffset = 2
)

// UniqueSampleValues counts distinct 8-bit sample values across the whole
// buffer, all channels included.
func UniqueSampleValues(p *PixelImage) int {
	if p == nil {
		return 0
	}
	var seen [256]bool
	count := 0
	for _, v := range p.Pix {
		if !seen[v] {
			seen[v] = true
			count++
		}
	}
	return count
}

// LooksLikeSketch classifies the image as hand-drawn/thresholded art when its
// sample-value cardinality falls below cutoff. Sketches defeat detectors
// trained on photographs, so classification drives detector routing.
func LooksLikeSketch(p *PixelImage, cutoff int) bool {
	if cutoff <= 0 {
		cutoff = DefaultSketchValueCutoff
	}
	return UniqueSampleValues(p) < cutoff
}

// Enhance prepares a sketch for detection: grayscale, local adaptive
// threshold, binary denoise, back to 3 channels. It is a pure transform and
// never fails; if the input is unusable it is returned unchanged so that
// detection degrades instead of aborting the request.
func Enhance(p *PixelImage) *PixelImage {
	if !p.Valid() {
		return p
	}

	gray := imaging.Grayscale(p.ToImage())
	// Blurred copy approximates the local mean for the adaptive threshold.
	blurred := imaging.Blur(gray, float64(adaptiveWindow)/3)

	w, h := p.Width, p.Height
	bin := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := gray.NRGBAAt(x, y).R
			mean := blurred.NRGBAAt(x, y).R
			if int(v) > int(mean)-adaptiveOffset {
				bin[y*w+x] = 255
			}
		}
	}

	denoised := denoiseBinary(bin, w, h)
	return fromGrayBuffer(denoised, w, h).ToRGB()
}

// denoiseBinary removes isolated speckles from a binary buffer with a 3x3
// majority vote.
func denoiseBinary(bin []uint8, w, h int) []uint8 {
	out := make([]uint8, len(bin))
	copy(out, bin)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			white := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if bin[(y+dy)*w+(x+dx)] == 255 {
						white++
					}
				}
			}
			if white >= 5 {
				out[y*w+x] = 255
			} else {
				out[y*w+x] = 0
			}
		}
	}
	return out
}

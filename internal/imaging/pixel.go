// Package imaging turns arbitrary input images into the canonical pixel
// buffer the detection and encoding stages operate on, and implements the
// sketch classification and enhancement path for hand-drawn composites.
package imaging

import (
	"image"
	"image/color"
)

// PixelImage is the canonical in-memory image: 8-bit samples, interleaved,
// row-major, 1 or 3 channels. It is created per request and never persisted.
type PixelImage struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// Valid reports whether the buffer is consistent with its declared shape.
func (p *PixelImage) Valid() bool {
	if p == nil || p.Width <= 0 || p.Height <= 0 {
		return false
	}
	if p.Channels != 1 && p.Channels != 3 {
		return false
	}
	return len(p.Pix) == p.Width*p.Height*p.Channels
}

// ToRGB returns a 3-channel view of the image. Grayscale input is expanded
// by channel replication; 3-channel input is returned as-is.
func (p *PixelImage) ToRGB() *PixelImage {
	if p.Channels == 3 {
		return p
	}
	out := &PixelImage{Width: p.Width, Height: p.Height, Channels: 3}
	out.Pix = make([]uint8, p.Width*p.Height*3)
	for i, v := range p.Pix {
		out.Pix[i*3] = v
		out.Pix[i*3+1] = v
		out.Pix[i*3+2] = v
	}
	return out
}

// Gray returns a single-channel luma buffer (ITU-R BT.601), one byte per pixel.
func (p *PixelImage) Gray() []uint8 {
	if p.Channels == 1 {
		out := make([]uint8, len(p.Pix))
		copy(out, p.Pix)
		return out
	}
	out := make([]uint8, p.Width*p.Height)
	for i := range out {
		r := float64(p.Pix[i*3])
		g := float64(p.Pix[i*3+1])
		b := float64(p.Pix[i*3+2])
		out[i] = uint8(0.299*r + 0.587*g + 0.114*b)
	}
	return out
}

// ToImage converts the buffer back to a stdlib image for re-encoding.
func (p *PixelImage) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, p.Width, p.Height))
	rgb := p.ToRGB()
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			i := (y*p.Width + x) * 3
			img.SetNRGBA(x, y, color.NRGBA{
				R: rgb.Pix[i],
				G: rgb.Pix[i+1],
				B: rgb.Pix[i+2],
				A: 255,
			})
		}
	}
	return img
}

// fromGrayBuffer builds a 1-channel PixelImage around an existing luma buffer.
func fromGrayBuffer(gray []uint8, width, height int) *PixelImage {
	return &PixelImage{Width: width, Height: height, Channels: 1, Pix: gray}
}

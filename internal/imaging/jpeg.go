package imaging

import (
	"bytes"
	"fmt"
	"image/jpeg"
)

// jpegQuality matches the quality used elsewhere in the system for derived
// images; the embedding model is insensitive to mild compression.
const jpegQuality = 92

// EncodeJPEG re-encodes the canonical buffer as JPEG bytes. The dlib-based
// detector and encoder consume JPEG input.
func EncodeJPEG(p *PixelImage) ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: invalid buffer", ErrUnsupportedShape)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, p.ToImage(), &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Crop returns a copy of the sub-rectangle [left,right)×[top,bottom),
// clamped to the image bounds. Used to cut face regions out for encoding.
func Crop(p *PixelImage, top, right, bottom, left int) *PixelImage {
	rgb := p.ToRGB()
	if top < 0 {
		top = 0
	}
	if left < 0 {
		left = 0
	}
	if bottom > p.Height {
		bottom = p.Height
	}
	if right > p.Width {
		right = p.Width
	}
	if bottom <= top || right <= left {
		return &PixelImage{Width: 0, Height: 0, Channels: 3, Pix: nil}
	}

	w := right - left
	h := bottom - top
	out := &PixelImage{Width: w, Height: h, Channels: 3}
	out.Pix = make([]uint8, w*h*3)
	for y := 0; y < h; y++ {
		srcOff := ((top+y)*p.Width + left) * 3
		copy(out.Pix[y*w*3:(y+1)*w*3], rgb.Pix[srcOff:srcOff+w*3])
	}
	return out
}

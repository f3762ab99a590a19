package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	_ "github.com/chai2010/webp"
	_ "golang.org/x/image/bmp"
)

var (
	// ErrDecode means the input could not be turned into an image at all.
	ErrDecode = errors.New("image could not be decoded")

	// ErrUnsupportedShape means the decoded image has a channel layout that
	// does not reduce cleanly to 1 or 3 channels.
	ErrUnsupportedShape = errors.New("unsupported image shape")
)

// Source is an image input: a filesystem path or raw bytes. Bytes may be an
// encoded image directly or a base64 wrapping of one (with or without a
// data-URL prefix), matching what upload forms and text transports deliver.
type Source struct {
	path string
	data []byte
}

// FromPath builds a Source referencing an image file on disk.
func FromPath(path string) Source {
	return Source{path: path}
}

// FromBytes builds a Source around in-memory image bytes.
func FromBytes(data []byte) Source {
	return Source{data: data}
}

// Normalize decodes a source into the canonical 3-channel pixel buffer.
// Grayscale input is expanded by replication, alpha is flattened over white.
func Normalize(src Source) (*PixelImage, error) {
	data := src.data
	if src.path != "" {
		b, err := os.ReadFile(src.path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrDecode, src.path, err)
		}
		data = b
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		// The surrounding system moves images through text transports as
		// base64; retry the payload as a base64 wrapping of an image.
		decoded, b64err := decodeBase64Payload(data)
		if b64err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		img, _, err = image.Decode(bytes.NewReader(decoded))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}

	return fromStdImage(img)
}

// decodeBase64Payload strips an optional data-URL prefix and base64-decodes.
func decodeBase64Payload(data []byte) ([]byte, error) {
	s := strings.TrimSpace(string(data))
	if i := strings.Index(s, ";base64,"); i >= 0 {
		s = s[i+len(";base64,"):]
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return base64.RawStdEncoding.DecodeString(s)
	}
	return decoded, nil
}

// fromStdImage maps a stdlib image onto the canonical buffer, applying the
// channel normalization rules.
func fromStdImage(img image.Image) (*PixelImage, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: empty bounds", ErrUnsupportedShape)
	}

	switch src := img.(type) {
	case *image.Gray:
		gray := make([]uint8, w*h)
		for y := 0; y < h; y++ {
			copy(gray[y*w:(y+1)*w], src.Pix[y*src.Stride:y*src.Stride+w])
		}
		return fromGrayBuffer(gray, w, h).ToRGB(), nil
	case *image.Gray16:
		gray := make([]uint8, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				gray[y*w+x] = uint8(src.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y >> 8)
			}
		}
		return fromGrayBuffer(gray, w, h).ToRGB(), nil
	case *image.CMYK:
		return nil, fmt.Errorf("%w: 4-channel CMYK", ErrUnsupportedShape)
	}

	// Everything else (YCbCr, paletted, RGBA variants) reduces cleanly to
	// 3 channels; alpha is flattened over a white background.
	out := &PixelImage{Width: w, Height: h, Channels: 3}
	out.Pix = make([]uint8, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := (y*w + x) * 3
			out.Pix[i] = flattenSample(r, a)
			out.Pix[i+1] = flattenSample(g, a)
			out.Pix[i+2] = flattenSample(b, a)
		}
	}
	return out, nil
}

// flattenSample composites a premultiplied 16-bit sample over white and
// reduces it to 8 bits.
func flattenSample(c, a uint32) uint8 {
	if a == 0xffff {
		return uint8(c >> 8)
	}
	// RGBA() returns alpha-premultiplied values; white contributes the
	// remaining (0xffff - a) of the dynamic range.
	v := c + (0xffff - a)
	if v > 0xffff {
		v = 0xffff
	}
	return uint8(v >> 8)
}

package detect

import (
	"fmt"

	face "github.com/Kagami/go-face"
	"go.uber.org/zap"

	"github.com/caseboard/suspect-search/internal/imaging"
)

// CNNBackend runs the dlib CNN face detector over JPEG bytes. The dlib
// handle is shared with descriptor extraction and is not safe for concurrent
// calls, so the implementation owns the lock that serializes both.
type CNNBackend interface {
	DetectFaces(data []byte) ([]face.Face, error)
}

// CNNDetector is the accurate strategy backed by the dlib CNN face detector.
type CNNDetector struct {
	backend CNNBackend
	log     *zap.Logger
}

// NewCNNDetector wraps a detection backend.
func NewCNNDetector(backend CNNBackend, log *zap.Logger) *CNNDetector {
	return &CNNDetector{backend: backend, log: log}
}

// Locate runs the CNN detector over the image. The detector consumes JPEG
// bytes, so the canonical buffer is re-encoded first.
func (d *CNNDetector) Locate(img *imaging.PixelImage) ([]Region, error) {
	if err := validate(img); err != nil {
		return nil, err
	}

	data, err := imaging.EncodeJPEG(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	faces, err := d.backend.DetectFaces(data)
	if err != nil {
		return nil, fmt.Errorf("cnn face detection: %w", err)
	}

	regions := make([]Region, 0, len(faces))
	for _, f := range faces {
		r := Region{
			Top:    f.Rectangle.Min.Y,
			Right:  f.Rectangle.Max.X,
			Bottom: f.Rectangle.Max.Y,
			Left:   f.Rectangle.Min.X,
		}
		regions = append(regions, clampRegion(r, img.Width, img.Height))
	}

	d.log.Debug("cnn detection finished", zap.Int("regions", len(regions)))
	return regions, nil
}

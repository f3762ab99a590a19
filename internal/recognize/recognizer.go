package recognize

import (
	"errors"
	"fmt"
	"sync"

	face "github.com/Kagami/go-face"
	"go.uber.org/zap"

	"github.com/caseboard/suspect-search/internal/detect"
	"github.com/caseboard/suspect-search/internal/imaging"
)

// ErrEncodingFailed means no usable embedding could be produced from any of
// the supplied face regions.
var ErrEncodingFailed = errors.New("face encoding failed")

// cropMargin widens each region before encoding. The landmark aligner wants
// context around the chin and forehead that tight detector boxes cut off.
const cropMargin = 0.25

// RegionEncoding pairs a face region with its embedding.
type RegionEncoding struct {
	Region    detect.Region
	Embedding Embedding
}

// Extractor produces embeddings for face regions in an image.
type Extractor interface {
	Encode(img *imaging.PixelImage, regions []detect.Region) ([]RegionEncoding, error)
}

// DlibExtractor runs the dlib ResNet descriptor model. The underlying
// recognizer is not safe for concurrent calls, so a mutex serializes access.
type DlibExtractor struct {
	mu  sync.Mutex
	rec *face.Recognizer
	log *zap.Logger
}

// NewDlibExtractor loads the dlib model files (shape predictor, ResNet
// descriptor net and CNN detector) from modelsDir.
func NewDlibExtractor(modelsDir string, log *zap.Logger) (*DlibExtractor, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("loading face models from %s: %w", modelsDir, err)
	}
	log.Info("face recognition models loaded", zap.String("dir", modelsDir))
	return &DlibExtractor{rec: rec, log: log}, nil
}

// DetectFaces runs the CNN face detector over JPEG bytes under the same
// lock that guards descriptor extraction, so the accurate detection strategy
// can share the loaded models without racing on the dlib handle.
func (e *DlibExtractor) DetectFaces(data []byte) ([]face.Face, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.RecognizeCNN(data)
}

// Close releases the dlib resources.
func (e *DlibExtractor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec != nil {
		e.rec.Close()
		e.rec = nil
	}
}

// Encode produces one embedding per region. Each region is cropped with a
// margin and encoded independently, so a region the model cannot handle is
// skipped without affecting the others. ErrEncodingFailed is returned only
// when every region fails. When regions is empty the whole image is run
// through the CNN detector and every face it finds is encoded.
func (e *DlibExtractor) Encode(img *imaging.PixelImage, regions []detect.Region) ([]RegionEncoding, error) {
	if len(regions) == 0 {
		return e.encodeWholeImage(img)
	}

	out := make([]RegionEncoding, 0, len(regions))
	for _, region := range regions {
		emb, err := e.encodeRegion(img, region)
		if err != nil {
			e.log.Warn("skipping face region",
				zap.Int("top", region.Top),
				zap.Int("left", region.Left),
				zap.Error(err))
			continue
		}
		out = append(out, RegionEncoding{Region: region, Embedding: emb})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: none of %d regions produced an embedding",
			ErrEncodingFailed, len(regions))
	}
	return out, nil
}

// encodeWholeImage detects and encodes in one dlib pass. Used when the
// caller skipped the locate stage.
func (e *DlibExtractor) encodeWholeImage(img *imaging.PixelImage) ([]RegionEncoding, error) {
	data, err := imaging.EncodeJPEG(img)
	if err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}

	faces, err := e.DetectFaces(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailed, err)
	}

	out := make([]RegionEncoding, 0, len(faces))
	for _, f := range faces {
		out = append(out, RegionEncoding{
			Region: detect.Region{
				Top:    f.Rectangle.Min.Y,
				Right:  f.Rectangle.Max.X,
				Bottom: f.Rectangle.Max.Y,
				Left:   f.Rectangle.Min.X,
			},
			Embedding: widen(f.Descriptor),
		})
	}
	return out, nil
}

func (e *DlibExtractor) encodeRegion(img *imaging.PixelImage, region detect.Region) (Embedding, error) {
	marginX := int(float64(region.Width()) * cropMargin)
	marginY := int(float64(region.Height()) * cropMargin)
	crop := imaging.Crop(img,
		region.Top-marginY,
		region.Right+marginX,
		region.Bottom+marginY,
		region.Left-marginX)

	data, err := imaging.EncodeJPEG(crop)
	if err != nil {
		return nil, fmt.Errorf("encoding crop: %w", err)
	}

	e.mu.Lock()
	f, err := e.rec.RecognizeSingle(data)
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("recognizing face: %w", err)
	}
	if f == nil {
		return nil, errors.New("no face found inside region crop")
	}
	return widen(f.Descriptor), nil
}

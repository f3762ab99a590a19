package detect

import (
	"fmt"
	"os"

	pigo "github.com/esimov/pigo/core"
	"go.uber.org/zap"

	"github.com/caseboard/suspect-search/internal/config"
	"github.com/caseboard/suspect-search/internal/imaging"
)

// Cascade detector tuning. Faces in composites and mugshots dominate the
// frame, so the size range is generous; the quality cutoff trades precision
// for recall on stylized input. Min face size and quality cutoff come from
// configuration, these are the fallbacks.
const (
	cascadeMinFace      = 20
	cascadeShiftFactor  = 0.1
	cascadeScaleFactor  = 1.1
	cascadeClusterIoU   = 0.2
	cascadeQualityScore = 5.0
	cascadeDedupeIoU    = 0.6
)

// CascadeDetector is the fast strategy: a pixel-intensity-comparison cascade
// running on a grayscale derivative of the image. The classifier is read-only
// after Unpack and safe for concurrent use.
type CascadeDetector struct {
	classifier   *pigo.Pigo
	minFace      int
	qualityScore float32
	log          *zap.Logger
}

// resolveCascadeTuning applies the fallback constants to unset config values.
func resolveCascadeTuning(tuning config.DetectThresholds) (int, float32) {
	minFace := tuning.MinFaceSize
	if minFace <= 0 {
		minFace = cascadeMinFace
	}
	quality := float32(tuning.QualityScore)
	if quality <= 0 {
		quality = cascadeQualityScore
	}
	return minFace, quality
}

// NewCascadeDetector loads the binary cascade file (the pigo facefinder
// format) from disk.
func NewCascadeDetector(cascadePath string, tuning config.DetectThresholds, log *zap.Logger) (*CascadeDetector, error) {
	data, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("reading cascade file %s: %w", cascadePath, err)
	}
	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpacking cascade file %s: %w", cascadePath, err)
	}
	minFace, quality := resolveCascadeTuning(tuning)
	return &CascadeDetector{
		classifier:   classifier,
		minFace:      minFace,
		qualityScore: quality,
		log:          log,
	}, nil
}

// Locate runs the cascade over the grayscale image and returns clustered
// detections above the quality cutoff.
func (d *CascadeDetector) Locate(img *imaging.PixelImage) ([]Region, error) {
	if err := validate(img); err != nil {
		return nil, err
	}

	gray := img.Gray()
	maxFace := img.Width
	if img.Height < maxFace {
		maxFace = img.Height
	}

	params := pigo.CascadeParams{
		MinSize:     d.minFace,
		MaxSize:     maxFace,
		ShiftFactor: cascadeShiftFactor,
		ScaleFactor: cascadeScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: gray,
			Rows:   img.Height,
			Cols:   img.Width,
			Dim:    img.Width,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, cascadeClusterIoU)

	var regions []Region
	for _, det := range dets {
		if det.Q < d.qualityScore {
			continue
		}
		half := det.Scale / 2
		r := Region{
			Top:    det.Row - half,
			Right:  det.Col + half,
			Bottom: det.Row + half,
			Left:   det.Col - half,
		}
		regions = append(regions, clampRegion(r, img.Width, img.Height))
	}
	regions = dedupeRegions(regions, cascadeDedupeIoU)

	d.log.Debug("cascade detection finished",
		zap.Int("raw", len(dets)),
		zap.Int("regions", len(regions)))
	return regions, nil
}

// clampRegion restricts a region to the image bounds.
func clampRegion(r Region, width, height int) Region {
	if r.Top < 0 {
		r.Top = 0
	}
	if r.Left < 0 {
		r.Left = 0
	}
	if r.Bottom > height {
		r.Bottom = height
	}
	if r.Right > width {
		r.Right = width
	}
	return r
}

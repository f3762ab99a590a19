// Package pipeline orchestrates the lookup flow: normalize the image, pick
// the detection path, encode faces and rank them against enrolled subjects.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/caseboard/suspect-search/internal/config"
	"github.com/caseboard/suspect-search/internal/database"
	"github.com/caseboard/suspect-search/internal/detect"
	"github.com/caseboard/suspect-search/internal/facecode"
	"github.com/caseboard/suspect-search/internal/imaging"
	"github.com/caseboard/suspect-search/internal/match"
	"github.com/caseboard/suspect-search/internal/recognize"
)

var (
	// ErrNoFaceForEnrollment means the enrollment image contained no usable face.
	ErrNoFaceForEnrollment = errors.New("no face found in enrollment image")
	// ErrMultipleFaces means the enrollment image contained more than one face.
	ErrMultipleFaces = errors.New("enrollment image contains multiple faces")
	// ErrSelfCheckFailed means the stored encoding did not survive its own
	// round trip. Nothing is persisted when this happens.
	ErrSelfCheckFailed = errors.New("encoding round-trip self-check failed")
)

// nearestFetchLimit bounds how many candidates the database pre-selects when
// the full table is too large to scan per query.
const nearestFetchLimit = 2048

// Detector locates face regions using a named strategy.
type Detector interface {
	Locate(img *imaging.PixelImage, strategy detect.Strategy) ([]detect.Region, error)
}

// Pipeline wires the collaborators together. All dependencies are injected
// so tests can swap the heavy ones out.
type Pipeline struct {
	repo       database.Repository
	detector   Detector
	extractor  recognize.Extractor
	matcher    *match.Matcher
	thresholds config.ThresholdsConfig
	log        *zap.Logger
}

// New builds a Pipeline.
func New(repo database.Repository, detector Detector, extractor recognize.Extractor,
	matcher *match.Matcher, thresholds config.ThresholdsConfig, log *zap.Logger) *Pipeline {
	return &Pipeline{
		repo:       repo,
		detector:   detector,
		extractor:  extractor,
		matcher:    matcher,
		thresholds: thresholds,
		log:        log,
	}
}

// Search looks a query image up against the enrolled subjects using the
// configured distance threshold. Sketch-like images get enhanced and routed
// through the fast detector; photographs go through the accurate one.
func (p *Pipeline) Search(ctx context.Context, src imaging.Source) (*SearchResult, error) {
	return p.SearchAt(ctx, src, 0)
}

// SearchAt runs a search with a caller-supplied distance threshold. Different
// entry points want different operating points, so the threshold is per call;
// a non-positive value falls back to the configured default.
func (p *Pipeline) SearchAt(ctx context.Context, src imaging.Source, threshold float64) (*SearchResult, error) {
	started := time.Now()

	matcher := p.matcher
	if threshold > 0 {
		matcher = match.NewMatcher(threshold, p.thresholds.Index.CandidateCutoff, p.log)
	}

	img, err := imaging.Normalize(src)
	if err != nil {
		return nil, err
	}

	sketch := imaging.LooksLikeSketch(img, p.thresholds.Sketch.UniqueValueCutoff)
	strategy := detect.Accurate
	if sketch {
		img = imaging.Enhance(img)
		strategy = detect.Fast
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	regions, err := p.detector.Locate(img, strategy)
	if err != nil {
		return nil, fmt.Errorf("locating faces: %w", err)
	}
	if len(regions) == 0 {
		p.log.Info("no face found in query image", zap.Bool("sketch", sketch))
		return &SearchResult{Outcome: OutcomeNoFace, Sketch: sketch, Elapsed: time.Since(started)}, nil
	}

	encoded, err := p.extractor.Encode(img, regions)
	if err != nil {
		if errors.Is(err, recognize.ErrEncodingFailed) {
			p.log.Info("faces located but none encodable", zap.Int("regions", len(regions)))
			return &SearchResult{Outcome: OutcomeNoFace, Sketch: sketch, Regions: regions, Elapsed: time.Since(started)}, nil
		}
		return nil, fmt.Errorf("encoding faces: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source, err := p.newCandidateSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading candidates: %w", err)
	}

	// Multiple faces in the query: the best match over all of them wins.
	// Each face gets its own candidate set, so database-side narrowing for
	// one face cannot hide another face's nearest subjects.
	var best *match.Result
	for _, enc := range encoded {
		candidates, err := source.forQuery(ctx, enc.Embedding)
		if err != nil {
			return nil, fmt.Errorf("loading candidates: %w", err)
		}
		res, err := matcher.FindBestMatch(enc.Embedding, candidates)
		if err != nil {
			return nil, fmt.Errorf("matching: %w", err)
		}
		if res != nil && (best == nil || res.Distance < best.Distance) {
			best = res
		}
	}

	result := &SearchResult{
		Outcome: OutcomeNoMatch,
		Sketch:  sketch,
		Regions: regions,
		Elapsed: time.Since(started),
	}
	if best == nil {
		p.log.Info("no subject matched",
			zap.Int("faces", len(encoded)),
			zap.Int("stored_encodings", source.total))
		return result, nil
	}

	subject, err := p.repo.GetSubject(ctx, best.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("loading matched subject %s: %w", best.SubjectID, err)
	}

	result.Outcome = OutcomeMatch
	result.Subject = subject
	result.Distance = best.Distance
	result.Similarity = best.Similarity
	p.log.Info("subject matched",
		zap.String("subject_id", subject.ID),
		zap.Float64("distance", best.Distance))
	return result, nil
}

// candidateSource snapshots the candidate set for one request. Small tables
// are loaded whole and shared across query embeddings; large ones are
// narrowed per embedding by the database's vector index, with the exact
// pass still deciding.
type candidateSource struct {
	repo   database.Repository
	total  int
	shared []match.Candidate
}

func (p *Pipeline) newCandidateSource(ctx context.Context) (*candidateSource, error) {
	total, err := p.repo.CountEncodings(ctx)
	if err != nil {
		return nil, err
	}
	source := &candidateSource{repo: p.repo, total: total}

	if total <= nearestFetchLimit {
		stored, err := p.repo.ListEncodings(ctx)
		if err != nil {
			return nil, err
		}
		source.shared = toCandidates(stored)
	}
	return source, nil
}

func (s *candidateSource) forQuery(ctx context.Context, query recognize.Embedding) ([]match.Candidate, error) {
	if s.shared != nil {
		return s.shared, nil
	}
	stored, err := s.repo.ListNearestEncodings(ctx, query, nearestFetchLimit)
	if err != nil {
		return nil, err
	}
	return toCandidates(stored), nil
}

func toCandidates(stored []database.StoredEncoding) []match.Candidate {
	candidates := make([]match.Candidate, len(stored))
	for i, enc := range stored {
		candidates[i] = match.Candidate{SubjectID: enc.SubjectID, Encoding: enc.Encoding}
	}
	return candidates
}

// fetchCandidates loads the candidate set for a single query embedding.
func (p *Pipeline) fetchCandidates(ctx context.Context, query recognize.Embedding) ([]match.Candidate, error) {
	source, err := p.newCandidateSource(ctx)
	if err != nil {
		return nil, err
	}
	return source.forQuery(ctx, query)
}

// EnrollRequest carries one enrollment image. Exactly one of SubjectID and
// Meta is used: an existing subject gains another encoding, otherwise a new
// subject is created.
type EnrollRequest struct {
	Source      imaging.Source
	SubjectID   string
	Meta        database.SubjectMeta
	SourceLabel string
}

// Enroll registers a face encoding for a subject. The image must contain
// exactly one face. The stored text is verified to round-trip bit for bit
// before anything is persisted.
func (p *Pipeline) Enroll(ctx context.Context, req EnrollRequest) (*EnrollmentReceipt, error) {
	img, err := imaging.Normalize(req.Source)
	if err != nil {
		return nil, err
	}

	regions, err := p.detector.Locate(img, detect.Accurate)
	if err != nil {
		return nil, fmt.Errorf("locating faces: %w", err)
	}
	if len(regions) == 0 {
		return nil, ErrNoFaceForEnrollment
	}
	if len(regions) > 1 {
		return nil, fmt.Errorf("%w: %d faces", ErrMultipleFaces, len(regions))
	}

	encoded, err := p.extractor.Encode(img, regions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoFaceForEnrollment, err)
	}
	embedding := encoded[0].Embedding

	text, err := facecode.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("encoding embedding: %w", err)
	}
	if err := verifyRoundTrip(text, embedding); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	duplicateOf, err := p.findDuplicate(ctx, embedding, req.SubjectID)
	if err != nil {
		return nil, err
	}

	subject, err := p.resolveSubject(ctx, req)
	if err != nil {
		return nil, err
	}

	id, err := p.repo.SaveEncoding(ctx, subject.ID, text, req.SourceLabel)
	if err != nil {
		return nil, fmt.Errorf("storing encoding: %w", err)
	}

	p.log.Info("subject enrolled",
		zap.String("subject_id", subject.ID),
		zap.Int64("encoding_id", id),
		zap.String("duplicate_of", duplicateOf))
	return &EnrollmentReceipt{
		Subject:     *subject,
		EncodingID:  id,
		Region:      encoded[0].Region,
		SourceLabel: req.SourceLabel,
		DuplicateOf: duplicateOf,
	}, nil
}

// findDuplicate checks whether the new embedding sits closer than the
// duplicate threshold to a subject other than the enrollment target.
// A hit is reported, not fatal: aliases get enrolled on purpose.
func (p *Pipeline) findDuplicate(ctx context.Context, embedding recognize.Embedding, targetID string) (string, error) {
	threshold := p.thresholds.Match.EnrollDuplicateThreshold
	if threshold <= 0 {
		return "", nil
	}

	candidates, err := p.fetchCandidates(ctx, embedding)
	if err != nil {
		return "", fmt.Errorf("loading candidates for duplicate check: %w", err)
	}

	dup := match.NewMatcher(threshold, p.thresholds.Index.CandidateCutoff, p.log)
	res, err := dup.FindBestMatch(embedding, candidates)
	if err != nil {
		return "", err
	}
	if res == nil || res.SubjectID == targetID {
		return "", nil
	}
	p.log.Warn("enrollment resembles an existing subject",
		zap.String("existing_subject_id", res.SubjectID),
		zap.Float64("distance", res.Distance))
	return res.SubjectID, nil
}

func (p *Pipeline) resolveSubject(ctx context.Context, req EnrollRequest) (*database.SubjectRecord, error) {
	if req.SubjectID != "" {
		subject, err := p.repo.GetSubject(ctx, req.SubjectID)
		if err != nil {
			return nil, fmt.Errorf("loading subject %s: %w", req.SubjectID, err)
		}
		return subject, nil
	}
	subject, err := p.repo.CreateSubject(ctx, req.Meta)
	if err != nil {
		return nil, fmt.Errorf("creating subject: %w", err)
	}
	return subject, nil
}

// verifyRoundTrip confirms the text form decodes to the exact bits that
// were encoded. The comparison is per-component bitwise, so NaN payloads
// survive and a ±0 swap would be caught.
func verifyRoundTrip(text string, original recognize.Embedding) error {
	decoded, err := facecode.Unmarshal(text)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSelfCheckFailed, err)
	}
	if len(decoded) != len(original) {
		return ErrSelfCheckFailed
	}
	for i := range original {
		if math.Float64bits(original[i]) != math.Float64bits(decoded[i]) {
			return ErrSelfCheckFailed
		}
	}
	return nil
}

// Mode selects what a submitted request does.
type Mode string

const (
	ModeSearch Mode = "search"
	ModeEnroll Mode = "enroll"
)

// Request is one asynchronous pipeline invocation.
type Request struct {
	Mode   Mode
	Source imaging.Source

	// Search mode only; non-positive uses the configured threshold.
	Threshold float64

	// Enroll mode only.
	SubjectID   string
	Meta        database.SubjectMeta
	SourceLabel string
}

// Response is delivered on the channel returned by Submit. Exactly one of
// Search and Receipt is set on success, matching the request mode.
type Response struct {
	Search  *SearchResult
	Receipt *EnrollmentReceipt
	Err     error
}

// Submit runs one request asynchronously and delivers the result on the
// returned channel. The channel is buffered, so an abandoned submission
// does not leak the goroutine.
func (p *Pipeline) Submit(ctx context.Context, req Request) <-chan Response {
	out := make(chan Response, 1)
	go func() {
		defer close(out)
		switch req.Mode {
		case ModeEnroll:
			receipt, err := p.Enroll(ctx, EnrollRequest{
				Source:      req.Source,
				SubjectID:   req.SubjectID,
				Meta:        req.Meta,
				SourceLabel: req.SourceLabel,
			})
			out <- Response{Receipt: receipt, Err: err}
		default:
			res, err := p.SearchAt(ctx, req.Source, req.Threshold)
			out <- Response{Search: res, Err: err}
		}
	}()
	return out
}

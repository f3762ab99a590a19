// Package match ranks enrolled subjects against a query embedding. Distances
// are exact float64 Euclidean distances over the decoded interchange vectors;
// the approximate index only narrows the candidate set, it never decides.
package match

import (
	"math"

	"go.uber.org/zap"

	"github.com/caseboard/suspect-search/internal/facecode"
	"github.com/caseboard/suspect-search/internal/recognize"
)

// DefaultThreshold is the strict upper bound on the match distance. A best
// distance equal to the threshold is not a match.
const DefaultThreshold = 0.6

// defaultIndexCutoff is the candidate count above which the approximate
// index pre-selects before the exact pass. Below it a straight scan is
// cheaper than building a graph.
const defaultIndexCutoff = 512

// preselect is how many approximate neighbors survive into the exact pass.
const preselect = 64

// Candidate is one stored encoding of an enrolled subject. A subject may
// appear multiple times, once per enrolled image.
type Candidate struct {
	SubjectID string
	Encoding  string
}

// Result describes the winning subject of a search.
type Result struct {
	SubjectID  string  `json:"subject_id"`
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"`
}

// Matcher compares query embeddings against candidate sets.
type Matcher struct {
	threshold   float64
	indexCutoff int
	log         *zap.Logger
}

// NewMatcher builds a Matcher; non-positive values fall back to
// DefaultThreshold and defaultIndexCutoff.
func NewMatcher(threshold float64, indexCutoff int, log *zap.Logger) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if indexCutoff <= 0 {
		indexCutoff = defaultIndexCutoff
	}
	return &Matcher{threshold: threshold, indexCutoff: indexCutoff, log: log}
}

// Threshold returns the configured match cutoff.
func (m *Matcher) Threshold() float64 { return m.threshold }

// FindBestMatch returns the subject whose closest stored encoding is nearest
// to the query, provided that distance is strictly below the threshold. A nil
// result with a nil error means no subject matched, which includes the empty
// candidate set. Candidates whose encoding cannot be decoded are skipped.
func (m *Matcher) FindBestMatch(query recognize.Embedding, candidates []Candidate) (*Result, error) {
	if len(candidates) > m.indexCutoff {
		candidates = m.narrow(query, candidates)
	}

	// Per-subject minimum: a subject is as close as its closest encoding.
	best := make(map[string]float64)
	for _, c := range candidates {
		stored, err := facecode.Unmarshal(c.Encoding)
		if err != nil {
			m.log.Warn("skipping candidate with malformed encoding",
				zap.String("subject_id", c.SubjectID),
				zap.Error(err))
			continue
		}
		d := recognize.Distance(query, stored)
		if prev, ok := best[c.SubjectID]; !ok || d < prev {
			best[c.SubjectID] = d
		}
	}

	winner := ""
	winning := math.Inf(1)
	for id, d := range best {
		if d < winning {
			winner, winning = id, d
		}
	}

	if winner == "" || winning >= m.threshold {
		return nil, nil
	}
	return &Result{
		SubjectID:  winner,
		Distance:   winning,
		Similarity: recognize.Similarity(winning),
	}, nil
}

package pipeline

import (
	"time"

	"github.com/caseboard/suspect-search/internal/database"
	"github.com/caseboard/suspect-search/internal/detect"
)

// Outcome classifies what a search produced. All three are normal results;
// none of them is an error.
type Outcome string

const (
	// OutcomeMatch means a subject scored strictly below the threshold.
	OutcomeMatch Outcome = "match"
	// OutcomeNoMatch means faces were found but no subject was close enough.
	OutcomeNoMatch Outcome = "no_match"
	// OutcomeNoFace means no usable face was found in the image.
	OutcomeNoFace Outcome = "no_face"
)

// SearchResult is the answer to a lookup query.
type SearchResult struct {
	Outcome    Outcome                 `json:"outcome"`
	Subject    *database.SubjectRecord `json:"subject,omitempty"`
	Distance   float64                 `json:"distance,omitempty"`
	Similarity float64                 `json:"similarity,omitempty"`
	Regions    []detect.Region         `json:"regions,omitempty"`
	Sketch     bool                    `json:"sketch"`
	Elapsed    time.Duration           `json:"elapsed"`
}

// EnrollmentReceipt describes a completed enrollment.
type EnrollmentReceipt struct {
	Subject     database.SubjectRecord `json:"subject"`
	EncodingID  int64                  `json:"encoding_id"`
	Region      detect.Region          `json:"region"`
	SourceLabel string                 `json:"source_label,omitempty"`
	// DuplicateOf is set when the enrolled face sits suspiciously close to
	// an already enrolled subject other than the target.
	DuplicateOf string `json:"duplicate_of,omitempty"`
}

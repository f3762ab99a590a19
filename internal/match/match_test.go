package match

import (
	"fmt"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/caseboard/suspect-search/internal/facecode"
	"github.com/caseboard/suspect-search/internal/recognize"
)

// vectorAt returns a 128-dim embedding whose distance to the zero vector is
// exactly d (all mass in the first component).
func vectorAt(d float64) recognize.Embedding {
	v := make(recognize.Embedding, facecode.Dim)
	v[0] = d
	return v
}

func encodeAt(t *testing.T, d float64) string {
	t.Helper()
	s, err := facecode.Marshal(vectorAt(d))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return s
}

func TestFindBestMatch_PicksGlobalMinimum(t *testing.T) {
	m := NewMatcher(0.6, 0, zap.NewNop())
	query := vectorAt(0)

	candidates := []Candidate{
		{SubjectID: "alpha", Encoding: encodeAt(t, 0.5)},
		{SubjectID: "beta", Encoding: encodeAt(t, 0.2)},
		{SubjectID: "gamma", Encoding: encodeAt(t, 0.4)},
	}

	res, err := m.FindBestMatch(query, candidates)
	if err != nil {
		t.Fatalf("FindBestMatch failed: %v", err)
	}
	if res == nil {
		t.Fatal("expected a match")
	}
	if res.SubjectID != "beta" {
		t.Errorf("winner = %s, want beta", res.SubjectID)
	}
	if math.Abs(res.Distance-0.2) > 1e-9 {
		t.Errorf("distance = %v, want 0.2", res.Distance)
	}
	if math.Abs(res.Similarity-1/1.2) > 1e-9 {
		t.Errorf("similarity = %v, want %v", res.Similarity, 1/1.2)
	}
}

func TestFindBestMatch_PerSubjectMinimum(t *testing.T) {
	m := NewMatcher(0.6, 0, zap.NewNop())
	query := vectorAt(0)

	// Subject "multi" is enrolled three times. Its distance must be the
	// minimum over its encodings, beating the single-encoding subject.
	candidates := []Candidate{
		{SubjectID: "multi", Encoding: encodeAt(t, 0.9)},
		{SubjectID: "multi", Encoding: encodeAt(t, 0.3)},
		{SubjectID: "multi", Encoding: encodeAt(t, 0.7)},
		{SubjectID: "single", Encoding: encodeAt(t, 0.31)},
	}

	res, err := m.FindBestMatch(query, candidates)
	if err != nil {
		t.Fatalf("FindBestMatch failed: %v", err)
	}
	if res == nil || res.SubjectID != "multi" {
		t.Fatalf("result = %+v, want subject multi", res)
	}
	if math.Abs(res.Distance-0.3) > 1e-9 {
		t.Errorf("distance = %v, want 0.3", res.Distance)
	}
}

func TestFindBestMatch_ThresholdIsStrict(t *testing.T) {
	m := NewMatcher(0.6, 0, zap.NewNop())
	query := vectorAt(0)

	// Exactly at the threshold: no match.
	res, err := m.FindBestMatch(query, []Candidate{
		{SubjectID: "edge", Encoding: encodeAt(t, 0.6)},
	})
	if err != nil {
		t.Fatalf("FindBestMatch failed: %v", err)
	}
	if res != nil {
		t.Errorf("distance equal to threshold matched: %+v", res)
	}

	// Just under: match.
	res, err = m.FindBestMatch(query, []Candidate{
		{SubjectID: "edge", Encoding: encodeAt(t, 0.5999)},
	})
	if err != nil {
		t.Fatalf("FindBestMatch failed: %v", err)
	}
	if res == nil || res.SubjectID != "edge" {
		t.Errorf("distance under threshold did not match: %+v", res)
	}
}

func TestFindBestMatch_EmptySet(t *testing.T) {
	m := NewMatcher(0.6, 0, zap.NewNop())

	res, err := m.FindBestMatch(vectorAt(0), nil)
	if err != nil {
		t.Fatalf("empty set returned error: %v", err)
	}
	if res != nil {
		t.Errorf("empty set returned a match: %+v", res)
	}
}

func TestFindBestMatch_SkipsMalformedCandidates(t *testing.T) {
	m := NewMatcher(0.6, 0, zap.NewNop())
	query := vectorAt(0)

	candidates := []Candidate{
		{SubjectID: "broken-b64", Encoding: "%%% not base64 %%%"},
		{SubjectID: "broken-len", Encoding: "QUJD"}, // decodes to 3 bytes
		{SubjectID: "good", Encoding: encodeAt(t, 0.25)},
	}

	res, err := m.FindBestMatch(query, candidates)
	if err != nil {
		t.Fatalf("FindBestMatch failed: %v", err)
	}
	if res == nil || res.SubjectID != "good" {
		t.Fatalf("result = %+v, want subject good", res)
	}
}

func TestFindBestMatch_AllMalformed(t *testing.T) {
	m := NewMatcher(0.6, 0, zap.NewNop())

	res, err := m.FindBestMatch(vectorAt(0), []Candidate{
		{SubjectID: "a", Encoding: "junk"},
		{SubjectID: "b", Encoding: "more junk"},
	})
	if err != nil {
		t.Fatalf("FindBestMatch failed: %v", err)
	}
	if res != nil {
		t.Errorf("all-malformed set returned a match: %+v", res)
	}
}

func TestNewMatcher_Defaults(t *testing.T) {
	m := NewMatcher(0, 0, zap.NewNop())
	if m.Threshold() != DefaultThreshold {
		t.Errorf("threshold = %v, want %v", m.Threshold(), DefaultThreshold)
	}
	if m.indexCutoff != defaultIndexCutoff {
		t.Errorf("index cutoff = %d, want %d", m.indexCutoff, defaultIndexCutoff)
	}

	m = NewMatcher(0.45, 1024, zap.NewNop())
	if m.Threshold() != 0.45 {
		t.Errorf("threshold = %v, want 0.45", m.Threshold())
	}
	if m.indexCutoff != 1024 {
		t.Errorf("index cutoff = %d, want 1024", m.indexCutoff)
	}
}

func TestFindBestMatch_LargeSetUsesIndex(t *testing.T) {
	m := NewMatcher(0.6, 0, zap.NewNop())
	query := vectorAt(0)

	// Well above the cutoff so the approximate pre-selection runs. The
	// nearest candidate is unambiguous, so the exact pass must still find it.
	candidates := make([]Candidate, 0, defaultIndexCutoff+100)
	for i := 0; i < defaultIndexCutoff+99; i++ {
		candidates = append(candidates, Candidate{
			SubjectID: fmt.Sprintf("filler-%d", i),
			Encoding:  encodeAt(t, 5.0+float64(i)*0.01),
		})
	}
	candidates = append(candidates, Candidate{
		SubjectID: "needle",
		Encoding:  encodeAt(t, 0.1),
	})

	res, err := m.FindBestMatch(query, candidates)
	if err != nil {
		t.Fatalf("FindBestMatch failed: %v", err)
	}
	if res == nil || res.SubjectID != "needle" {
		t.Fatalf("result = %+v, want subject needle", res)
	}
	if math.Abs(res.Distance-0.1) > 1e-6 {
		t.Errorf("distance = %v, want 0.1", res.Distance)
	}
}

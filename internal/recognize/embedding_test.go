package recognize

import (
	"math"
	"testing"

	"github.com/caseboard/suspect-search/internal/facecode"
)

func TestDistance(t *testing.T) {
	a := make(Embedding, facecode.Dim)
	b := make(Embedding, facecode.Dim)

	if got := Distance(a, b); got != 0 {
		t.Errorf("distance of identical vectors = %v, want 0", got)
	}

	// Single differing component of 3 and another of 4 gives 5.
	b[0] = 3
	b[1] = 4
	if got := Distance(a, b); math.Abs(got-5) > 1e-12 {
		t.Errorf("distance = %v, want 5", got)
	}

	if got := Distance(a, Embedding{1, 2}); !math.IsInf(got, 1) {
		t.Errorf("dimension mismatch distance = %v, want +Inf", got)
	}
	if got := Distance(nil, nil); !math.IsInf(got, 1) {
		t.Errorf("empty vectors distance = %v, want +Inf", got)
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity(0); got != 1 {
		t.Errorf("similarity at distance 0 = %v, want 1", got)
	}
	if got := Similarity(1); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("similarity at distance 1 = %v, want 0.5", got)
	}
	if got := Similarity(9); math.Abs(got-0.1) > 1e-12 {
		t.Errorf("similarity at distance 9 = %v, want 0.1", got)
	}
}

func TestWiden(t *testing.T) {
	var desc [facecode.Dim]float32
	desc[0] = 0.5
	desc[1] = -1.25
	desc[127] = 3

	emb := widen(desc)
	if len(emb) != facecode.Dim {
		t.Fatalf("widened length = %d, want %d", len(emb), facecode.Dim)
	}
	if emb[0] != 0.5 || emb[1] != -1.25 || emb[127] != 3 {
		t.Errorf("widened values wrong: %v %v %v", emb[0], emb[1], emb[127])
	}
	// float32 values survive the widening bit for bit.
	if float32(emb[1]) != desc[1] {
		t.Error("widening lost precision")
	}
}

// Package recognize turns face regions into 128-dimensional embeddings using
// the dlib ResNet face recognition model.
package recognize

import (
	"math"

	"github.com/caseboard/suspect-search/internal/facecode"
)

// Embedding is a face descriptor. All stored and compared embeddings have
// exactly facecode.Dim components.
type Embedding []float64

// Distance is the Euclidean distance between two embeddings, computed in
// float64 throughout. Returns +Inf when the dimensions disagree so a bad
// vector can never rank as a best match.
func Distance(a, b Embedding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Similarity maps a distance to (0, 1], higher meaning more alike.
func Similarity(distance float64) float64 {
	return 1 / (1 + distance)
}

// widen converts the model's float32 descriptor to the float64 interchange
// representation. Each float32 is exactly representable as a float64, so
// the conversion is lossless.
func widen(desc [facecode.Dim]float32) Embedding {
	out := make(Embedding, facecode.Dim)
	for i, v := range desc {
		out[i] = float64(v)
	}
	return out
}

package match

import (
	"github.com/coder/hnsw"
	"go.uber.org/zap"

	"github.com/caseboard/suspect-search/internal/facecode"
)

const (
	hnswMaxNeighbors = 16
)

// narrow builds a transient HNSW graph over the candidate set and keeps the
// approximate nearest encodings for the exact pass. The graph uses float32
// internally, which is fine for pre-selection since the exact float64 scan
// over the survivors makes the final call.
func (m *Matcher) narrow(query []float64, candidates []Candidate) []Candidate {
	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	indexed := 0
	for i, c := range candidates {
		stored, err := facecode.Unmarshal(c.Encoding)
		if err != nil {
			// The exact pass logs and skips these; here they just stay
			// out of the graph.
			continue
		}
		g.Add(hnsw.MakeNode(i, shrink(stored)))
		indexed++
	}
	if indexed <= preselect {
		return candidates
	}

	neighbors := g.Search(shrink(query), preselect)
	out := make([]Candidate, 0, len(neighbors))
	for _, n := range neighbors {
		out = append(out, candidates[n.Key])
	}

	m.log.Debug("index narrowed candidate set",
		zap.Int("candidates", len(candidates)),
		zap.Int("kept", len(out)))
	return out
}

func shrink(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/caseboard/suspect-search/internal/imaging"
	"github.com/caseboard/suspect-search/internal/pipeline"
)

// Searcher is the pipeline surface the search handler needs.
type Searcher interface {
	SearchAt(ctx context.Context, src imaging.Source, threshold float64) (*pipeline.SearchResult, error)
}

// SearchHandler serves lookup queries.
type SearchHandler struct {
	pipeline Searcher
	log      *zap.Logger
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(p Searcher, log *zap.Logger) *SearchHandler {
	return &SearchHandler{pipeline: p, log: log}
}

// Search runs a query image against the enrolled subjects. No face, no
// match and a match are all 200 responses distinguished by the outcome
// field. An optional "threshold" form field overrides the configured
// distance threshold for this request.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	src, filename, err := imageFromRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var threshold float64
	if raw := r.FormValue("threshold"); raw != "" {
		threshold, err = strconv.ParseFloat(raw, 64)
		if err != nil || threshold <= 0 {
			respondError(w, http.StatusBadRequest, "threshold must be a positive number")
			return
		}
	}

	result, err := h.pipeline.SearchAt(r.Context(), src, threshold)
	if err != nil {
		if errors.Is(err, imaging.ErrDecode) || errors.Is(err, imaging.ErrUnsupportedShape) {
			respondError(w, http.StatusBadRequest, "image could not be decoded")
			return
		}
		h.log.Error("search failed",
			zap.String("filename", sanitizeForLog(filename)),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

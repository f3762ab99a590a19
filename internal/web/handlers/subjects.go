package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/caseboard/suspect-search/internal/database"
	"github.com/caseboard/suspect-search/internal/imaging"
	"github.com/caseboard/suspect-search/internal/pipeline"
)

// Enroller is the pipeline surface the enrollment endpoints need.
type Enroller interface {
	Enroll(ctx context.Context, req pipeline.EnrollRequest) (*pipeline.EnrollmentReceipt, error)
}

// SubjectsHandler serves subject management endpoints.
type SubjectsHandler struct {
	repo     database.Repository
	enroller Enroller
	log      *zap.Logger
}

// NewSubjectsHandler creates a new subjects handler.
func NewSubjectsHandler(repo database.Repository, enroller Enroller, log *zap.Logger) *SubjectsHandler {
	return &SubjectsHandler{repo: repo, enroller: enroller, log: log}
}

// List returns all subjects, optionally filtered by normalized name.
func (h *SubjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		subjects []database.SubjectRecord
		err      error
	)
	if name := r.URL.Query().Get("name"); name != "" {
		subjects, err = h.repo.FindSubjectsByName(r.Context(), name)
	} else {
		subjects, err = h.repo.ListSubjects(r.Context())
	}
	if err != nil {
		h.log.Error("listing subjects failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list subjects")
		return
	}

	if subjects == nil {
		subjects = []database.SubjectRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"subjects": subjects,
		"count":    len(subjects),
	})
}

// Get returns one subject with its stored encodings.
func (h *SubjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	subject, err := h.repo.GetSubject(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "subject not found")
		return
	}
	if err != nil {
		h.log.Error("loading subject failed", zap.String("id", sanitizeForLog(id)), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load subject")
		return
	}

	encodings, err := h.repo.ListEncodingsBySubject(r.Context(), id)
	if err != nil {
		h.log.Error("loading encodings failed", zap.String("id", sanitizeForLog(id)), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load encodings")
		return
	}

	// Strip the bulky base64 payloads; clients only need the inventory.
	type encodingInfo struct {
		ID          int64  `json:"id"`
		SourceLabel string `json:"source_label,omitempty"`
	}
	infos := make([]encodingInfo, len(encodings))
	for i, enc := range encodings {
		infos[i] = encodingInfo{ID: enc.ID, SourceLabel: enc.SourceLabel}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"subject":   subject,
		"encodings": infos,
	})
}

// metaFromForm reads subject metadata from multipart form values.
func metaFromForm(r *http.Request) database.SubjectMeta {
	return database.SubjectMeta{
		Name:              r.FormValue("name"),
		DateOfBirth:       r.FormValue("date_of_birth"),
		Description:       r.FormValue("description"),
		Status:            r.FormValue("status"),
		Notes:             r.FormValue("notes"),
		LastKnownLocation: r.FormValue("last_known_location"),
	}
}

// Enroll creates a new subject from a face image plus metadata form fields.
func (h *SubjectsHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	src, filename, err := imageFromRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	meta := metaFromForm(r)
	if meta.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	receipt, err := h.enroller.Enroll(r.Context(), pipeline.EnrollRequest{
		Source:      src,
		Meta:        meta,
		SourceLabel: filename,
	})
	if err != nil {
		h.respondEnrollError(w, filename, err)
		return
	}

	respondJSON(w, http.StatusCreated, receipt)
}

// AddEncoding enrolls another image under an existing subject.
func (h *SubjectsHandler) AddEncoding(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	src, filename, err := imageFromRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt, err := h.enroller.Enroll(r.Context(), pipeline.EnrollRequest{
		Source:      src,
		SubjectID:   id,
		SourceLabel: filename,
	})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "subject not found")
			return
		}
		h.respondEnrollError(w, filename, err)
		return
	}

	respondJSON(w, http.StatusCreated, receipt)
}

func (h *SubjectsHandler) respondEnrollError(w http.ResponseWriter, filename string, err error) {
	switch {
	case errors.Is(err, pipeline.ErrNoFaceForEnrollment):
		respondError(w, http.StatusUnprocessableEntity, "no face found in image")
	case errors.Is(err, pipeline.ErrMultipleFaces):
		respondError(w, http.StatusUnprocessableEntity, "image contains multiple faces")
	case errors.Is(err, imaging.ErrDecode), errors.Is(err, imaging.ErrUnsupportedShape):
		respondError(w, http.StatusBadRequest, "image could not be decoded")
	default:
		h.log.Error("enrollment failed",
			zap.String("filename", sanitizeForLog(filename)),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "enrollment failed")
	}
}

// Update replaces a subject's metadata.
func (h *SubjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var meta database.SubjectMeta
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if meta.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	err := h.repo.UpdateSubject(r.Context(), id, meta)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "subject not found")
		return
	}
	if err != nil {
		h.log.Error("updating subject failed", zap.String("id", sanitizeForLog(id)), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to update subject")
		return
	}

	subject, err := h.repo.GetSubject(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load subject")
		return
	}
	respondJSON(w, http.StatusOK, subject)
}

// Delete removes a subject and its encodings.
func (h *SubjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.repo.DeleteSubject(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "subject not found")
		return
	}
	if err != nil {
		h.log.Error("deleting subject failed", zap.String("id", sanitizeForLog(id)), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to delete subject")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// Stats reports basic corpus counts.
func (h *SubjectsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.repo.CountSubjects(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count subjects")
		return
	}
	encodings, err := h.repo.CountEncodings(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count encodings")
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{
		"subjects":  subjects,
		"encodings": encodings,
	})
}

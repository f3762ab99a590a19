// Package handlers implements the HTTP API endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/caseboard/suspect-search/internal/imaging"
)

// maxUploadSize caps the request body for image uploads.
const maxUploadSize = 20 << 20

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// imageFromRequest extracts the query image from a request. Multipart
// uploads use the "image" form file; JSON bodies carry base64 in "image".
func imageFromRequest(r *http.Request) (imaging.Source, string, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			return imaging.Source{}, "", errors.New("failed to parse multipart form")
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			return imaging.Source{}, "", errors.New("image file is required")
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
		if err != nil {
			return imaging.Source{}, "", errors.New("failed to read image file")
		}
		return imaging.FromBytes(data), header.Filename, nil
	}

	var body struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadSize)).Decode(&body); err != nil {
		return imaging.Source{}, "", errors.New(errInvalidRequestBody)
	}
	if body.Image == "" {
		return imaging.Source{}, "", errors.New("image is required")
	}
	return imaging.FromBytes([]byte(body.Image)), "", nil
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

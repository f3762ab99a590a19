// Package database defines the storage model and repository contracts for
// enrolled subjects and their face encodings.
package database

import (
	"time"
)

// SubjectMeta is the descriptive record attached to an enrolled subject.
// Only Name is required.
type SubjectMeta struct {
	Name              string `json:"name"`
	DateOfBirth       string `json:"date_of_birth,omitempty"`
	Description       string `json:"description,omitempty"`
	Status            string `json:"status,omitempty"`
	Notes             string `json:"notes,omitempty"`
	LastKnownLocation string `json:"last_known_location,omitempty"`
}

// SubjectRecord is an enrolled subject.
type SubjectRecord struct {
	ID        string      `json:"id"`
	Meta      SubjectMeta `json:"meta"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// StoredEncoding is one face encoding belonging to a subject. A subject may
// carry several, one per enrolled image. Encoding holds the base64
// interchange form, which is the source of truth for matching.
type StoredEncoding struct {
	ID          int64     `json:"id"`
	SubjectID   string    `json:"subject_id"`
	Encoding    string    `json:"encoding"`
	SourceLabel string    `json:"source_label,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

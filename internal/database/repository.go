package database

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a subject does not exist.
var ErrNotFound = errors.New("subject not found")

// SubjectReader provides read access to enrolled subjects.
type SubjectReader interface {
	// GetSubject retrieves a subject by ID.
	GetSubject(ctx context.Context, id string) (*SubjectRecord, error)
	// ListSubjects returns all enrolled subjects ordered by name.
	ListSubjects(ctx context.Context) ([]SubjectRecord, error)
	// FindSubjectsByName returns subjects whose normalized name matches the
	// normalized query (lowercase, no diacritics, dashes as spaces).
	FindSubjectsByName(ctx context.Context, name string) ([]SubjectRecord, error)
	// CountSubjects returns the number of enrolled subjects.
	CountSubjects(ctx context.Context) (int, error)
}

// SubjectWriter provides write access to enrolled subjects.
type SubjectWriter interface {
	SubjectReader

	// CreateSubject stores a new subject and returns its record.
	CreateSubject(ctx context.Context, meta SubjectMeta) (*SubjectRecord, error)
	// UpdateSubject replaces the metadata of an existing subject.
	UpdateSubject(ctx context.Context, id string, meta SubjectMeta) error
	// DeleteSubject removes a subject and all of its encodings.
	DeleteSubject(ctx context.Context, id string) error
}

// EncodingReader provides read access to stored face encodings.
type EncodingReader interface {
	// ListEncodings returns every stored encoding. The matcher consumes this
	// as the candidate set for a search.
	ListEncodings(ctx context.Context) ([]StoredEncoding, error)
	// ListEncodingsBySubject returns the encodings of one subject.
	ListEncodingsBySubject(ctx context.Context, subjectID string) ([]StoredEncoding, error)
	// CountEncodings returns the total number of stored encodings.
	CountEncodings(ctx context.Context) (int, error)
	// ListNearestEncodings returns up to limit encodings ordered by distance
	// to the query embedding. Backends may use an approximate index; callers
	// must re-rank with exact distances before deciding a match.
	ListNearestEncodings(ctx context.Context, embedding []float64, limit int) ([]StoredEncoding, error)
}

// EncodingWriter provides write access to stored face encodings.
type EncodingWriter interface {
	EncodingReader

	// SaveEncoding stores an encoding for a subject and returns its ID.
	SaveEncoding(ctx context.Context, subjectID, encoding, sourceLabel string) (int64, error)
	// DeleteEncoding removes a single encoding.
	DeleteEncoding(ctx context.Context, id int64) error
}

// Repository is the full storage contract the pipeline depends on.
type Repository interface {
	SubjectWriter
	EncodingWriter
}

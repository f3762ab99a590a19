// Package mock provides an in-memory implementation of the repository
// contracts for testing.
package mock

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caseboard/suspect-search/internal/database"
	"github.com/caseboard/suspect-search/internal/facecode"
)

// MockRepository is an in-memory database.Repository with error injection.
type MockRepository struct {
	mu        sync.RWMutex
	subjects  map[string]database.SubjectRecord
	encodings map[int64]database.StoredEncoding
	nextID    int64

	// Error injection
	CreateError error
	GetError    error
	ListError   error
	UpdateError error
	DeleteError error
	SaveError   error
}

var _ database.Repository = (*MockRepository)(nil)

// NewMockRepository creates an empty mock repository.
func NewMockRepository() *MockRepository {
	return &MockRepository{
		subjects:  make(map[string]database.SubjectRecord),
		encodings: make(map[int64]database.StoredEncoding),
		nextID:    1,
	}
}

// CreateSubject stores a new subject.
func (m *MockRepository) CreateSubject(ctx context.Context, meta database.SubjectMeta) (*database.SubjectRecord, error) {
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	rec := database.SubjectRecord{
		ID:        uuid.NewString(),
		Meta:      meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.subjects[rec.ID] = rec
	return &rec, nil
}

// GetSubject retrieves a subject by ID.
func (m *MockRepository) GetSubject(ctx context.Context, id string) (*database.SubjectRecord, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.subjects[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &rec, nil
}

// ListSubjects returns all subjects ordered by name.
func (m *MockRepository) ListSubjects(ctx context.Context) ([]database.SubjectRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]database.SubjectRecord, 0, len(m.subjects))
	for _, rec := range m.subjects {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		a := database.NormalizeName(out[i].Meta.Name)
		b := database.NormalizeName(out[j].Meta.Name)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// FindSubjectsByName returns subjects matching the normalized name.
func (m *MockRepository) FindSubjectsByName(ctx context.Context, name string) ([]database.SubjectRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	want := database.NormalizeName(name)
	var out []database.SubjectRecord
	for _, rec := range m.subjects {
		if database.NormalizeName(rec.Meta.Name) == want {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CountSubjects returns the number of subjects.
func (m *MockRepository) CountSubjects(ctx context.Context) (int, error) {
	if m.ListError != nil {
		return 0, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subjects), nil
}

// UpdateSubject replaces a subject's metadata.
func (m *MockRepository) UpdateSubject(ctx context.Context, id string, meta database.SubjectMeta) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.subjects[id]
	if !ok {
		return database.ErrNotFound
	}
	rec.Meta = meta
	rec.UpdatedAt = time.Now().UTC()
	m.subjects[id] = rec
	return nil
}

// DeleteSubject removes a subject and its encodings.
func (m *MockRepository) DeleteSubject(ctx context.Context, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subjects[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.subjects, id)
	for encID, enc := range m.encodings {
		if enc.SubjectID == id {
			delete(m.encodings, encID)
		}
	}
	return nil
}

// SaveEncoding stores an encoding for a subject.
func (m *MockRepository) SaveEncoding(ctx context.Context, subjectID, encoding, sourceLabel string) (int64, error) {
	if m.SaveError != nil {
		return 0, m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.encodings[id] = database.StoredEncoding{
		ID:          id,
		SubjectID:   subjectID,
		Encoding:    encoding,
		SourceLabel: sourceLabel,
		CreatedAt:   time.Now().UTC(),
	}
	return id, nil
}

// AddRawEncoding inserts an encoding without validation. Tests use it to
// plant malformed payloads.
func (m *MockRepository) AddRawEncoding(subjectID, encoding string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.encodings[id] = database.StoredEncoding{
		ID:        id,
		SubjectID: subjectID,
		Encoding:  encoding,
		CreatedAt: time.Now().UTC(),
	}
	return id
}

// ListEncodings returns every stored encoding ordered by ID.
func (m *MockRepository) ListEncodings(ctx context.Context) ([]database.StoredEncoding, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]database.StoredEncoding, 0, len(m.encodings))
	for _, enc := range m.encodings {
		out = append(out, enc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListEncodingsBySubject returns the encodings of one subject.
func (m *MockRepository) ListEncodingsBySubject(ctx context.Context, subjectID string) ([]database.StoredEncoding, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []database.StoredEncoding
	for _, enc := range m.encodings {
		if enc.SubjectID == subjectID {
			out = append(out, enc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CountEncodings returns the total number of encodings.
func (m *MockRepository) CountEncodings(ctx context.Context) (int, error) {
	if m.ListError != nil {
		return 0, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.encodings), nil
}

// ListNearestEncodings returns up to limit encodings ordered by exact L2
// distance. Undecodable encodings sort last.
func (m *MockRepository) ListNearestEncodings(ctx context.Context, embedding []float64, limit int) ([]database.StoredEncoding, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	all, err := m.ListEncodings(ctx)
	if err != nil {
		return nil, err
	}

	dist := func(enc database.StoredEncoding) float64 {
		stored, err := facecode.Unmarshal(enc.Encoding)
		if err != nil || len(stored) != len(embedding) {
			return math.Inf(1)
		}
		var sum float64
		for i := range stored {
			d := stored[i] - embedding[i]
			sum += d * d
		}
		return sum
	}
	sort.Slice(all, func(i, j int) bool { return dist(all[i]) < dist(all[j]) })

	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// DeleteEncoding removes a single encoding.
func (m *MockRepository) DeleteEncoding(ctx context.Context, id int64) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.encodings, id)
	return nil
}

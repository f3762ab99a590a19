package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/caseboard/suspect-search/internal/database"
)

// SubjectRepository provides PostgreSQL-backed subject storage.
type SubjectRepository struct {
	pool *Pool
}

// NewSubjectRepository creates a new PostgreSQL subject repository.
func NewSubjectRepository(pool *Pool) *SubjectRepository {
	return &SubjectRepository{pool: pool}
}

const subjectColumns = `id, name, date_of_birth, description, status, notes, last_known_location, created_at, updated_at`

func scanSubject(row interface{ Scan(...any) error }) (*database.SubjectRecord, error) {
	var rec database.SubjectRecord
	err := row.Scan(
		&rec.ID,
		&rec.Meta.Name,
		&rec.Meta.DateOfBirth,
		&rec.Meta.Description,
		&rec.Meta.Status,
		&rec.Meta.Notes,
		&rec.Meta.LastKnownLocation,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func scanSubjects(rows *sql.Rows) ([]database.SubjectRecord, error) {
	var out []database.SubjectRecord
	for rows.Next() {
		rec, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return out, nil
}

// CreateSubject stores a new subject and returns its record.
func (r *SubjectRepository) CreateSubject(ctx context.Context, meta database.SubjectMeta) (*database.SubjectRecord, error) {
	if meta.Name == "" {
		return nil, errors.New("subject name is required")
	}

	now := time.Now().UTC()
	rec := &database.SubjectRecord{
		ID:        uuid.NewString(),
		Meta:      meta,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO subjects (id, name, date_of_birth, description, status, notes, last_known_location, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		rec.ID, meta.Name, meta.DateOfBirth, meta.Description,
		meta.Status, meta.Notes, meta.LastKnownLocation,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert subject: %w", err)
	}
	return rec, nil
}

// GetSubject retrieves a subject by ID.
func (r *SubjectRepository) GetSubject(ctx context.Context, id string) (*database.SubjectRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+subjectColumns+` FROM subjects WHERE id = $1`, id)

	rec, err := scanSubject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query subject: %w", err)
	}
	return rec, nil
}

// ListSubjects returns all enrolled subjects ordered by name.
func (r *SubjectRepository) ListSubjects(ctx context.Context) ([]database.SubjectRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+subjectColumns+` FROM subjects ORDER BY LOWER(name), id`)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	return scanSubjects(rows)
}

// FindSubjectsByName returns subjects whose normalized name matches the
// query. Normalization happens in Go for the input and in SQL for the stored
// name so both sides agree on diacritics and dashes.
func (r *SubjectRepository) FindSubjectsByName(ctx context.Context, name string) ([]database.SubjectRecord, error) {
	normalized := database.NormalizeName(name)

	rows, err := r.pool.Query(ctx, `
		SELECT `+subjectColumns+`
		FROM subjects
		WHERE LOWER(REPLACE(unaccent(name), '-', ' ')) = $1
		ORDER BY id
	`, normalized)
	if err != nil {
		return nil, fmt.Errorf("query subjects by name: %w", err)
	}
	defer rows.Close()

	return scanSubjects(rows)
}

// CountSubjects returns the number of enrolled subjects.
func (r *SubjectRepository) CountSubjects(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM subjects").Scan(&count); err != nil {
		return 0, fmt.Errorf("count subjects: %w", err)
	}
	return count, nil
}

// UpdateSubject replaces the metadata of an existing subject.
func (r *SubjectRepository) UpdateSubject(ctx context.Context, id string, meta database.SubjectMeta) error {
	if meta.Name == "" {
		return errors.New("subject name is required")
	}

	res, err := r.pool.Exec(ctx, `
		UPDATE subjects
		SET name = $2, date_of_birth = $3, description = $4, status = $5,
		    notes = $6, last_known_location = $7, updated_at = NOW()
		WHERE id = $1
	`, id, meta.Name, meta.DateOfBirth, meta.Description, meta.Status, meta.Notes, meta.LastKnownLocation)
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// DeleteSubject removes a subject; encodings go with it via the foreign key.
func (r *SubjectRepository) DeleteSubject(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, "DELETE FROM subjects WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/caseboard/suspect-search/internal/database"
	"github.com/caseboard/suspect-search/internal/facecode"
)

// EncodingRepository provides PostgreSQL-backed face encoding storage. The
// base64 text column is the source of truth; the vector column is derived
// from it at write time and only used for approximate ordering.
type EncodingRepository struct {
	pool *Pool
}

// NewEncodingRepository creates a new PostgreSQL encoding repository.
func NewEncodingRepository(pool *Pool) *EncodingRepository {
	return &EncodingRepository{pool: pool}
}

const encodingColumns = `id, subject_id, encoding, source_label, created_at`

func scanEncodings(rows *sql.Rows) ([]database.StoredEncoding, error) {
	var out []database.StoredEncoding
	for rows.Next() {
		var enc database.StoredEncoding
		err := rows.Scan(&enc.ID, &enc.SubjectID, &enc.Encoding, &enc.SourceLabel, &enc.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan encoding: %w", err)
		}
		out = append(out, enc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate encodings: %w", err)
	}
	return out, nil
}

// SaveEncoding stores an encoding for a subject. The vector column is
// populated from the decoded payload so both representations always agree.
func (r *EncodingRepository) SaveEncoding(ctx context.Context, subjectID, encoding, sourceLabel string) (int64, error) {
	values, err := facecode.Unmarshal(encoding)
	if err != nil {
		return 0, fmt.Errorf("refusing to store undecodable encoding: %w", err)
	}

	vec := make([]float32, len(values))
	for i, v := range values {
		vec[i] = float32(v)
	}

	var id int64
	err = r.pool.QueryRow(ctx, `
		INSERT INTO encodings (subject_id, encoding, embedding, source_label)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, subjectID, encoding, pgvector.NewVector(vec), sourceLabel).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert encoding: %w", err)
	}
	return id, nil
}

// ListEncodings returns every stored encoding.
func (r *EncodingRepository) ListEncodings(ctx context.Context) ([]database.StoredEncoding, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+encodingColumns+` FROM encodings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query encodings: %w", err)
	}
	defer rows.Close()

	return scanEncodings(rows)
}

// ListEncodingsBySubject returns the encodings of one subject.
func (r *EncodingRepository) ListEncodingsBySubject(ctx context.Context, subjectID string) ([]database.StoredEncoding, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+encodingColumns+` FROM encodings WHERE subject_id = $1 ORDER BY id`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("query encodings by subject: %w", err)
	}
	defer rows.Close()

	return scanEncodings(rows)
}

// CountEncodings returns the total number of stored encodings.
func (r *EncodingRepository) CountEncodings(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM encodings").Scan(&count); err != nil {
		return 0, fmt.Errorf("count encodings: %w", err)
	}
	return count, nil
}

// ListNearestEncodings returns up to limit encodings ordered by L2 distance
// using the pgvector index.
func (r *EncodingRepository) ListNearestEncodings(ctx context.Context, embedding []float64, limit int) ([]database.StoredEncoding, error) {
	vec := make([]float32, len(embedding))
	for i, v := range embedding {
		vec[i] = float32(v)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+encodingColumns+`
		FROM encodings
		ORDER BY embedding <-> $1
		LIMIT $2
	`, pgvector.NewVector(vec), limit)
	if err != nil {
		return nil, fmt.Errorf("query nearest encodings: %w", err)
	}
	defer rows.Close()

	return scanEncodings(rows)
}

// DeleteEncoding removes a single encoding.
func (r *EncodingRepository) DeleteEncoding(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM encodings WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete encoding: %w", err)
	}
	return nil
}

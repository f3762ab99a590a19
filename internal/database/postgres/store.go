package postgres

import (
	"github.com/caseboard/suspect-search/internal/database"
)

// Store bundles the subject and encoding repositories behind the combined
// repository contract.
type Store struct {
	*SubjectRepository
	*EncodingRepository
	pool *Pool
}

var _ database.Repository = (*Store)(nil)

// NewStore builds a Store on top of an open pool.
func NewStore(pool *Pool) *Store {
	return &Store{
		SubjectRepository:  NewSubjectRepository(pool),
		EncodingRepository: NewEncodingRepository(pool),
		pool:               pool,
	}
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

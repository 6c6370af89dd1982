package memory

import (
	"context"
	"fmt"

	"github.com/vstudent/schedule-agent/internal/domain"
)

// RawQueryStore satisfies the passthrough port for the memory backend.
// Raw document queries need a real database underneath; the collection
// listing still answers with the fixed schema.
type RawQueryStore struct{}

func NewRawQueryStore() *RawQueryStore {
	return &RawQueryStore{}
}

func (s *RawQueryStore) ExecuteRaw(ctx context.Context, q domain.RawQuery) (any, error) {
	return nil, fmt.Errorf("raw queries require the mongo storage backend: %w", domain.ErrUpstream)
}

func (s *RawQueryStore) CollectionNames(ctx context.Context) ([]string, error) {
	return []string{"users", "students", "courses", "tags", "weekly_time_tables", "schedules", "conversations"}, nil
}

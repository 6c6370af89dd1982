package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vstudent/schedule-agent/internal/domain"
)

type TagStore struct {
	mu   sync.RWMutex
	tags map[string]*domain.Tag
}

func NewTagStore() *TagStore {
	return &TagStore{tags: make(map[string]*domain.Tag)}
}

func (s *TagStore) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Tag, 0, len(s.tags))
	for _, t := range s.tags {
		tp := *t
		out = append(out, &tp)
	}
	return out, nil
}

func (s *TagStore) GetTag(ctx context.Context, id string) (*domain.Tag, error) {
	if _, err := validateID(id, "id"); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tags[id]
	if !ok {
		return nil, nil
	}
	tp := *t
	return &tp, nil
}

func (s *TagStore) CreateTag(ctx context.Context, t *domain.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = newID()
	tp := *t
	s.tags[t.ID] = &tp
	return nil
}

func (s *TagStore) UpdateTag(ctx context.Context, id string, fields map[string]any) (*domain.Tag, error) {
	if _, err := validateID(id, "id"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tags[id]
	if !ok {
		return nil, fmt.Errorf("tag %s: %w", id, domain.ErrNotFound)
	}

	for k, v := range fields {
		switch k {
		case "title":
			t.Title, _ = v.(string)
		case "color":
			t.Color, _ = v.(string)
		}
	}
	t.UpdatedAt = time.Now().UTC()

	tp := *t
	return &tp, nil
}

func (s *TagStore) DeleteTag(ctx context.Context, id string) error {
	if _, err := validateID(id, "id"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tags[id]; !ok {
		return fmt.Errorf("tag %s: %w", id, domain.ErrNotFound)
	}
	delete(s.tags, id)
	return nil
}

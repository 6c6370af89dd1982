package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vstudent/schedule-agent/internal/domain"
)

type CourseStore struct {
	mu      sync.RWMutex
	courses map[string]*domain.Course
}

func NewCourseStore() *CourseStore {
	return &CourseStore{courses: make(map[string]*domain.Course)}
}

func (s *CourseStore) ListCourses(ctx context.Context) ([]*domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Course, 0, len(s.courses))
	for _, c := range s.courses {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (s *CourseStore) GetCourse(ctx context.Context, id string) (*domain.Course, error) {
	if _, err := validateID(id, "id"); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.courses[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *CourseStore) CreateCourse(ctx context.Context, c *domain.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = newID()
	cp := *c
	s.courses[c.ID] = &cp
	return nil
}

func (s *CourseStore) UpdateCourse(ctx context.Context, id string, fields map[string]any) (*domain.Course, error) {
	if _, err := validateID(id, "id"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[id]
	if !ok {
		return nil, fmt.Errorf("course %s: %w", id, domain.ErrNotFound)
	}

	for k, v := range fields {
		switch k {
		case "name":
			c.Name, _ = v.(string)
		case "short":
			c.Short, _ = v.(string)
		case "code":
			c.Code, _ = v.(string)
		case "description":
			c.Description, _ = v.(string)
		}
	}
	c.UpdatedAt = time.Now().UTC()

	cp := *c
	return &cp, nil
}

func (s *CourseStore) DeleteCourse(ctx context.Context, id string) error {
	if _, err := validateID(id, "id"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses[id]; !ok {
		return fmt.Errorf("course %s: %w", id, domain.ErrNotFound)
	}
	delete(s.courses, id)
	return nil
}

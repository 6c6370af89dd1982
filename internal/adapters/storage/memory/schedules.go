package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vstudent/schedule-agent/internal/domain"
)

type ScheduleStore struct {
	mu        sync.RWMutex
	schedules map[string]*domain.Schedule
	courses   *CourseStore
	tags      *TagStore
}

func NewScheduleStore(courses *CourseStore, tags *TagStore) *ScheduleStore {
	return &ScheduleStore{
		schedules: make(map[string]*domain.Schedule),
		courses:   courses,
		tags:      tags,
	}
}

func matchesFilter(s *domain.Schedule, f domain.ScheduleFilter) bool {
	if f.CourseID != "" && s.CourseID != f.CourseID {
		return false
	}
	if f.TagID != "" && s.TagID != f.TagID {
		return false
	}
	if f.Date != nil && !s.Date.Equal(*f.Date) {
		return false
	}
	if f.StartDate != nil && s.Date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && s.Date.After(*f.EndDate) {
		return false
	}
	if f.Before != nil && !s.Date.Before(*f.Before) {
		return false
	}
	return true
}

func (s *ScheduleStore) ListSchedules(ctx context.Context, f domain.ScheduleFilter) ([]*domain.Schedule, error) {
	if f.CourseID != "" {
		if _, err := validateID(f.CourseID, "courseId"); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Schedule
	for _, sch := range s.schedules {
		if matchesFilter(sch, f) {
			cp := *sch
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *ScheduleStore) ListSchedulesJoined(ctx context.Context) ([]*domain.ScheduleJoined, error) {
	schedules, err := s.ListSchedules(ctx, domain.ScheduleFilter{})
	if err != nil {
		return nil, err
	}

	out := make([]*domain.ScheduleJoined, 0, len(schedules))
	for _, sch := range schedules {
		joined := &domain.ScheduleJoined{Schedule: *sch}
		if course, _ := s.courses.GetCourse(ctx, sch.CourseID); course != nil {
			joined.Course = course
		}
		if s.tags != nil {
			// tagId may be an enum name rather than an id; a failed lookup
			// just leaves the tag unresolved.
			if tag, err := s.tags.GetTag(ctx, sch.TagID); err == nil && tag != nil {
				joined.Tag = tag
			}
		}
		out = append(out, joined)
	}
	return out, nil
}

func (s *ScheduleStore) GetSchedule(ctx context.Context, id string) (*domain.Schedule, error) {
	if _, err := validateID(id, "id"); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sch, ok := s.schedules[id]
	if !ok {
		return nil, nil
	}
	cp := *sch
	return &cp, nil
}

func (s *ScheduleStore) CreateSchedule(ctx context.Context, sch *domain.Schedule) error {
	if _, err := validateID(sch.CourseID, "courseId"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sch.ID = newID()
	cp := *sch
	s.schedules[sch.ID] = &cp
	return nil
}

func (s *ScheduleStore) UpdateSchedule(ctx context.Context, id string, fields map[string]any) (*domain.Schedule, error) {
	if _, err := validateID(id, "id"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sch, ok := s.schedules[id]
	if !ok {
		return nil, fmt.Errorf("schedule %s: %w", id, domain.ErrNotFound)
	}

	for k, v := range fields {
		switch k {
		case "courseId":
			hex, _ := v.(string)
			if _, err := validateID(hex, "courseId"); err != nil {
				return nil, err
			}
			sch.CourseID = hex
		case "date":
			if d, ok := v.(time.Time); ok {
				sch.Date = d
			}
		case "tagId":
			sch.TagID, _ = v.(string)
		case "description":
			sch.Description, _ = v.(string)
		}
	}
	sch.UpdatedAt = time.Now().UTC()

	cp := *sch
	return &cp, nil
}

func (s *ScheduleStore) DeleteSchedule(ctx context.Context, id string) error {
	if _, err := validateID(id, "id"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[id]; !ok {
		return fmt.Errorf("schedule %s: %w", id, domain.ErrNotFound)
	}
	delete(s.schedules, id)
	return nil
}

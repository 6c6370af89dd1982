package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vstudent/schedule-agent/internal/domain"
)

// TimeTableStore keeps weekly slots in memory; joins are resolved against
// the sibling CourseStore, with dangling courseIds tolerated.
type TimeTableStore struct {
	mu      sync.RWMutex
	entries map[string]*domain.TimeTableEntry
	courses *CourseStore
}

func NewTimeTableStore(courses *CourseStore) *TimeTableStore {
	return &TimeTableStore{
		entries: make(map[string]*domain.TimeTableEntry),
		courses: courses,
	}
}

func (s *TimeTableStore) ListTimeTables(ctx context.Context) ([]*domain.TimeTableEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.TimeTableEntry, 0, len(s.entries))
	for _, e := range s.entries {
		ep := *e
		out = append(out, &ep)
	}
	sortEntries(out)
	return out, nil
}

func (s *TimeTableStore) ListTimeTablesJoined(ctx context.Context) ([]*domain.TimeTableJoined, error) {
	entries, err := s.ListTimeTables(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.TimeTableJoined, 0, len(entries))
	for _, e := range entries {
		joined := &domain.TimeTableJoined{TimeTableEntry: *e}
		if course, _ := s.courses.GetCourse(ctx, e.CourseID); course != nil {
			joined.Course = course
		}
		out = append(out, joined)
	}
	return out, nil
}

func (s *TimeTableStore) ListTimeTablesByCourse(ctx context.Context, courseID string) ([]*domain.TimeTableEntry, error) {
	if _, err := validateID(courseID, "courseId"); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.TimeTableEntry
	for _, e := range s.entries {
		if e.CourseID == courseID {
			ep := *e
			out = append(out, &ep)
		}
	}
	sortEntries(out)
	return out, nil
}

func (s *TimeTableStore) CreateTimeTable(ctx context.Context, e *domain.TimeTableEntry) error {
	if _, err := validateID(e.CourseID, "courseId"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = newID()
	ep := *e
	s.entries[e.ID] = &ep
	return nil
}

func (s *TimeTableStore) UpdateTimeTable(ctx context.Context, id string, fields map[string]any) (*domain.TimeTableEntry, error) {
	if _, err := validateID(id, "id"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("timetable entry %s: %w", id, domain.ErrNotFound)
	}

	for k, v := range fields {
		switch k {
		case "courseId":
			hex, _ := v.(string)
			if _, err := validateID(hex, "courseId"); err != nil {
				return nil, err
			}
			e.CourseID = hex
		case "day":
			e.Day, _ = v.(string)
		case "startTime":
			e.StartTime, _ = v.(string)
		case "endTime":
			e.EndTime, _ = v.(string)
		case "location":
			e.Location, _ = v.(string)
		}
	}
	e.UpdatedAt = time.Now().UTC()

	ep := *e
	return &ep, nil
}

func (s *TimeTableStore) DeleteTimeTable(ctx context.Context, id string) error {
	if _, err := validateID(id, "id"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("timetable entry %s: %w", id, domain.ErrNotFound)
	}
	delete(s.entries, id)
	return nil
}

func sortEntries(entries []*domain.TimeTableEntry) {
	sort.Slice(entries, func(i, j int) bool {
		di, dj := domain.WeekdayIndex(entries[i].Day), domain.WeekdayIndex(entries[j].Day)
		if di != dj {
			return di < dj
		}
		return entries[i].StartTime < entries[j].StartTime
	})
}

// Package schedule implements the domain operations over courses, tags,
// weekly timetables and dated schedule entries. Both the HTTP surface and the
// model-facing function catalog call into this service, so validation and
// ownership stamping live here once.
package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vstudent/schedule-agent/internal/config"
	"github.com/vstudent/schedule-agent/internal/domain"
)

type Service struct {
	courses    domain.CourseStore
	tags       domain.TagStore
	timetables domain.TimeTableStore
	schedules  domain.ScheduleStore
	raw        domain.RawQueryExecutor
	tagMode    config.TagMode
	now        func() time.Time
}

func NewService(
	courses domain.CourseStore,
	tags domain.TagStore,
	timetables domain.TimeTableStore,
	schedules domain.ScheduleStore,
	raw domain.RawQueryExecutor,
	tagMode config.TagMode,
) *Service {
	return &Service{
		courses:    courses,
		tags:       tags,
		timetables: timetables,
		schedules:  schedules,
		raw:        raw,
		tagMode:    tagMode,
		now:        time.Now,
	}
}

// ---- courses ----

type CreateCourseInput struct {
	Name        string `json:"name"`
	Short       string `json:"short"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (s *Service) ListCourses(ctx context.Context) ([]*domain.Course, error) {
	return s.courses.ListCourses(ctx)
}

func (s *Service) GetCourse(ctx context.Context, id string) (*domain.Course, error) {
	return s.courses.GetCourse(ctx, id)
}

func (s *Service) CreateCourse(ctx context.Context, in CreateCourseInput) (*domain.Course, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: course name is required", domain.ErrInvalidArgument)
	}
	now := s.now()
	c := &domain.Course{
		UserID:      domain.SystemUserID,
		Name:        in.Name,
		Short:       in.Short,
		Code:        in.Code,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.courses.CreateCourse(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) UpdateCourse(ctx context.Context, id string, body map[string]any) (*domain.Course, error) {
	fields, err := pickFields(body, "name", "short", "code", "description")
	if err != nil {
		return nil, err
	}
	return s.courses.UpdateCourse(ctx, id, fields)
}

func (s *Service) DeleteCourse(ctx context.Context, id string) error {
	return s.courses.DeleteCourse(ctx, id)
}

// ---- tags ----

// ListTags returns the stored tags in collection tag mode, and the fixed tag
// set rendered as pseudo-tags otherwise.
func (s *Service) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	if s.tagMode == config.TagModeCollection {
		return s.tags.ListTags(ctx)
	}
	tags := make([]*domain.Tag, 0, len(domain.ValidTags))
	for _, t := range domain.ValidTags {
		tags = append(tags, &domain.Tag{ID: t, Title: t})
	}
	return tags, nil
}

func (s *Service) validateTag(ctx context.Context, tagID string) error {
	if tagID == "" {
		return nil
	}
	if s.tagMode == config.TagModeCollection {
		tag, err := s.tags.GetTag(ctx, tagID)
		if err != nil {
			return err
		}
		if tag == nil {
			return fmt.Errorf("%w: unknown tag %q", domain.ErrInvalidArgument, tagID)
		}
		return nil
	}
	if !domain.IsValidTag(tagID) {
		return fmt.Errorf("%w: tag must be one of %s", domain.ErrInvalidArgument, strings.Join(domain.ValidTags, ", "))
	}
	return nil
}

// ---- timetables ----

type CreateTimeTableInput struct {
	CourseID  string `json:"courseId"`
	Day       string `json:"day"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Location  string `json:"location"`
}

func (s *Service) ListTimeTables(ctx context.Context) ([]*domain.TimeTableJoined, error) {
	return s.timetables.ListTimeTablesJoined(ctx)
}

func (s *Service) ListTimeTablesByCourse(ctx context.Context, courseID string) ([]*domain.TimeTableEntry, error) {
	return s.timetables.ListTimeTablesByCourse(ctx, courseID)
}

func (s *Service) CreateTimeTable(ctx context.Context, in CreateTimeTableInput) (*domain.TimeTableEntry, error) {
	if in.CourseID == "" || in.Day == "" || in.StartTime == "" || in.EndTime == "" {
		return nil, fmt.Errorf("%w: courseId, day, startTime and endTime are required", domain.ErrInvalidArgument)
	}
	if domain.WeekdayIndex(in.Day) < 0 {
		return nil, fmt.Errorf("%w: unknown day %q", domain.ErrInvalidArgument, in.Day)
	}
	for _, t := range []string{in.StartTime, in.EndTime} {
		if _, _, err := parseClock(t); err != nil {
			return nil, err
		}
	}
	now := s.now()
	e := &domain.TimeTableEntry{
		UserID:    domain.SystemUserID,
		CourseID:  in.CourseID,
		Day:       in.Day,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Location:  in.Location,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.timetables.CreateTimeTable(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) UpdateTimeTable(ctx context.Context, id string, body map[string]any) (*domain.TimeTableEntry, error) {
	fields, err := pickFields(body, "courseId", "day", "startTime", "endTime", "location")
	if err != nil {
		return nil, err
	}
	if day, ok := fields["day"].(string); ok && domain.WeekdayIndex(day) < 0 {
		return nil, fmt.Errorf("%w: unknown day %q", domain.ErrInvalidArgument, day)
	}
	for _, key := range []string{"startTime", "endTime"} {
		if t, ok := fields[key].(string); ok {
			if _, _, err := parseClock(t); err != nil {
				return nil, err
			}
		}
	}
	return s.timetables.UpdateTimeTable(ctx, id, fields)
}

func (s *Service) DeleteTimeTable(ctx context.Context, id string) error {
	return s.timetables.DeleteTimeTable(ctx, id)
}

// NextSlot returns the first weekly slot of the course strictly after ref,
// scanning today plus the next seven days so a slot earlier today resolves to
// the same weekday next week. The second return is false when the course has
// no slots at all.
func (s *Service) NextSlot(ctx context.Context, courseID string, ref time.Time) (time.Time, bool, error) {
	entries, err := s.timetables.ListTimeTablesByCourse(ctx, courseID)
	if err != nil {
		return time.Time{}, false, err
	}
	next, ok := nextSlotAfter(entries, ref)
	return next, ok, nil
}

func nextSlotAfter(entries []*domain.TimeTableEntry, ref time.Time) (time.Time, bool) {
	var best time.Time
	for offset := 0; offset <= 7; offset++ {
		day := ref.AddDate(0, 0, offset)
		for _, e := range entries {
			if domain.WeekdayIndex(e.Day) != int(day.Weekday()) {
				continue
			}
			h, m, err := parseClock(e.StartTime)
			if err != nil {
				continue
			}
			candidate := time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, ref.Location())
			if !candidate.After(ref) {
				continue
			}
			if best.IsZero() || candidate.Before(best) {
				best = candidate
			}
		}
		if !best.IsZero() {
			return best, true
		}
	}
	return time.Time{}, false
}

// ---- schedules ----

type CreateScheduleInput struct {
	CourseID    string `json:"courseId"`
	Date        string `json:"date"`
	TagID       string `json:"tagId"`
	Description string `json:"description"`
}

func (s *Service) ListSchedules(ctx context.Context, f domain.ScheduleFilter) ([]*domain.Schedule, error) {
	return s.schedules.ListSchedules(ctx, f)
}

func (s *Service) ListSchedulesJoined(ctx context.Context) ([]*domain.ScheduleJoined, error) {
	return s.schedules.ListSchedulesJoined(ctx)
}

func (s *Service) GetSchedule(ctx context.Context, id string) (*domain.Schedule, error) {
	return s.schedules.GetSchedule(ctx, id)
}

func (s *Service) CreateSchedule(ctx context.Context, in CreateScheduleInput) (*domain.Schedule, error) {
	if in.CourseID == "" || in.Date == "" {
		return nil, fmt.Errorf("%w: courseId and date are required", domain.ErrInvalidArgument)
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, err
	}
	if err := s.validateTag(ctx, in.TagID); err != nil {
		return nil, err
	}
	now := s.now()
	sc := &domain.Schedule{
		UserID:      domain.SystemUserID,
		CourseID:    in.CourseID,
		Date:        date,
		TagID:       in.TagID,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.schedules.CreateSchedule(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *Service) UpdateSchedule(ctx context.Context, id string, body map[string]any) (*domain.Schedule, error) {
	fields, err := pickFields(body, "courseId", "date", "tagId", "description")
	if err != nil {
		return nil, err
	}
	if raw, ok := fields["date"]; ok {
		str, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: date must be a string", domain.ErrInvalidArgument)
		}
		date, err := ParseDate(str)
		if err != nil {
			return nil, err
		}
		fields["date"] = date
	}
	if tag, ok := fields["tagId"].(string); ok {
		if err := s.validateTag(ctx, tag); err != nil {
			return nil, err
		}
	}
	return s.schedules.UpdateSchedule(ctx, id, fields)
}

func (s *Service) DeleteSchedule(ctx context.Context, id string) error {
	return s.schedules.DeleteSchedule(ctx, id)
}

// SchedulesOn returns schedules dated exactly on the given day.
func (s *Service) SchedulesOn(ctx context.Context, date time.Time) ([]*domain.Schedule, error) {
	return s.schedules.ListSchedules(ctx, domain.ScheduleFilter{Date: &date})
}

// SchedulesInRange returns schedules with start <= date <= end.
func (s *Service) SchedulesInRange(ctx context.Context, start, end time.Time) ([]*domain.Schedule, error) {
	return s.schedules.ListSchedules(ctx, domain.ScheduleFilter{StartDate: &start, EndDate: &end})
}

// SchedulesBefore returns schedules strictly before the given date.
func (s *Service) SchedulesBefore(ctx context.Context, before time.Time) ([]*domain.Schedule, error) {
	return s.schedules.ListSchedules(ctx, domain.ScheduleFilter{Before: &before})
}

// ---- raw passthrough ----

func (s *Service) ExecuteRaw(ctx context.Context, q domain.RawQuery) (any, error) {
	return s.raw.ExecuteRaw(ctx, q)
}

func (s *Service) CollectionNames(ctx context.Context) ([]string, error) {
	return s.raw.CollectionNames(ctx)
}

// ---- model context snapshot ----

// ScheduleSummary is the compact form of a schedule shown to the model.
type ScheduleSummary struct {
	CourseID    string `json:"courseId"`
	Date        string `json:"date"`
	TagID       string `json:"tagId,omitempty"`
	Description string `json:"description,omitempty"`
}

// Snapshot returns the id-to-name maps the system instruction embeds so the
// model can resolve natural-language references to stored ids.
func (s *Service) Snapshot(ctx context.Context) (courses, tags map[string]string, schedules map[string]ScheduleSummary, err error) {
	courseList, err := s.courses.ListCourses(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	courses = make(map[string]string, len(courseList))
	for _, c := range courseList {
		courses[c.ID] = c.Name
	}

	tagList, err := s.ListTags(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	tags = make(map[string]string, len(tagList))
	for _, t := range tagList {
		tags[t.ID] = t.Title
	}

	scheduleList, err := s.schedules.ListSchedules(ctx, domain.ScheduleFilter{})
	if err != nil {
		return nil, nil, nil, err
	}
	schedules = make(map[string]ScheduleSummary, len(scheduleList))
	for _, sc := range scheduleList {
		schedules[sc.ID] = ScheduleSummary{
			CourseID:    sc.CourseID,
			Date:        sc.Date.Format(time.RFC3339),
			TagID:       sc.TagID,
			Description: sc.Description,
		}
	}
	return courses, tags, schedules, nil
}

// ---- helpers ----

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// ParseDate accepts the date shapes the model and the HTTP clients send:
// RFC 3339, a bare datetime, or a bare date.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q", domain.ErrInvalidArgument, s)
}

func parseClock(s string) (hour, minute int, err error) {
	if _, perr := fmt.Sscanf(s, "%d:%d", &hour, &minute); perr != nil {
		return 0, 0, fmt.Errorf("%w: invalid time %q, want HH:MM", domain.ErrInvalidArgument, s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: invalid time %q, want HH:MM", domain.ErrInvalidArgument, s)
	}
	return hour, minute, nil
}

// pickFields keeps only the allowed keys of a partial-update body and rejects
// an update that ends up empty.
func pickFields(body map[string]any, allowed ...string) (map[string]any, error) {
	fields := make(map[string]any, len(body))
	for _, key := range allowed {
		if v, ok := body[key]; ok {
			fields[key] = v
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no updatable fields provided", domain.ErrInvalidArgument)
	}
	return fields, nil
}

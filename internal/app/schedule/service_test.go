package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vstudent/schedule-agent/internal/adapters/storage/memory"
	"github.com/vstudent/schedule-agent/internal/config"
	"github.com/vstudent/schedule-agent/internal/domain"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	courses := memory.NewCourseStore()
	tags := memory.NewTagStore()
	return NewService(
		courses,
		tags,
		memory.NewTimeTableStore(courses),
		memory.NewScheduleStore(courses, tags),
		memory.NewRawQueryStore(),
		config.TagModeEnum,
	)
}

func mustCreateCourse(t *testing.T, svc *Service, name string) *domain.Course {
	t.Helper()
	course, err := svc.CreateCourse(context.Background(), CreateCourseInput{Name: name})
	if err != nil {
		t.Fatalf("creating course: %v", err)
	}
	return course
}

func TestCreateCourseRequiresName(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.CreateCourse(context.Background(), CreateCourseInput{Short: "ALG"}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestScheduleRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	course := mustCreateCourse(t, svc, "Algorithms")

	created, err := svc.CreateSchedule(ctx, CreateScheduleInput{
		CourseID:    course.ID,
		Date:        "2026-09-15",
		TagID:       "quiz",
		Description: "graphs",
	})
	if err != nil {
		t.Fatalf("creating schedule: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created schedule has no id")
	}
	if created.UserID != domain.SystemUserID {
		t.Fatalf("owner not stamped: %q", created.UserID)
	}

	got, err := svc.GetSchedule(ctx, created.ID)
	if err != nil {
		t.Fatalf("getting schedule: %v", err)
	}
	if got == nil || got.Description != "graphs" || got.TagID != "quiz" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestCreateScheduleRejectsUnknownTag(t *testing.T) {
	svc := newTestService(t)
	course := mustCreateCourse(t, svc, "Algorithms")

	_, err := svc.CreateSchedule(context.Background(), CreateScheduleInput{
		CourseID: course.ID,
		Date:     "2026-09-15",
		TagID:    "homework",
	})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestUpdateScheduleMergesFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	course := mustCreateCourse(t, svc, "Algorithms")

	created, err := svc.CreateSchedule(ctx, CreateScheduleInput{
		CourseID:    course.ID,
		Date:        "2026-09-15",
		TagID:       "quiz",
		Description: "graphs",
	})
	if err != nil {
		t.Fatalf("creating schedule: %v", err)
	}

	updated, err := svc.UpdateSchedule(ctx, created.ID, map[string]any{"date": "2026-09-22"})
	if err != nil {
		t.Fatalf("updating schedule: %v", err)
	}
	if got, want := updated.Date.Format("2006-01-02"), "2026-09-22"; got != want {
		t.Fatalf("date not updated: got %s want %s", got, want)
	}
	// Untouched fields survive the merge.
	if updated.Description != "graphs" || updated.TagID != "quiz" {
		t.Fatalf("merge clobbered fields: %+v", updated)
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Fatal("updatedAt went backwards")
	}
}

func TestUpdateScheduleRejectsEmptyBody(t *testing.T) {
	svc := newTestService(t)
	course := mustCreateCourse(t, svc, "Algorithms")
	created, _ := svc.CreateSchedule(context.Background(), CreateScheduleInput{CourseID: course.ID, Date: "2026-09-15"})

	if _, err := svc.UpdateSchedule(context.Background(), created.ID, map[string]any{"bogus": 1}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestScheduleDateQueries(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	course := mustCreateCourse(t, svc, "Algorithms")

	for _, date := range []string{"2026-09-01", "2026-09-10", "2026-09-20"} {
		if _, err := svc.CreateSchedule(ctx, CreateScheduleInput{CourseID: course.ID, Date: date}); err != nil {
			t.Fatalf("creating schedule on %s: %v", date, err)
		}
	}

	day := func(s string) time.Time {
		d, err := ParseDate(s)
		if err != nil {
			t.Fatalf("parsing %s: %v", s, err)
		}
		return d
	}

	inRange, err := svc.SchedulesInRange(ctx, day("2026-09-05"), day("2026-09-15"))
	if err != nil {
		t.Fatalf("range query: %v", err)
	}
	if len(inRange) != 1 || !inRange[0].Date.Equal(day("2026-09-10")) {
		t.Fatalf("unexpected range result: %+v", inRange)
	}

	before, err := svc.SchedulesBefore(ctx, day("2026-09-10"))
	if err != nil {
		t.Fatalf("before query: %v", err)
	}
	if len(before) != 1 || !before[0].Date.Equal(day("2026-09-01")) {
		t.Fatalf("before must be exclusive: %+v", before)
	}

	on, err := svc.SchedulesOn(ctx, day("2026-09-20"))
	if err != nil {
		t.Fatalf("date query: %v", err)
	}
	if len(on) != 1 {
		t.Fatalf("unexpected date result: %+v", on)
	}
}

func TestParseDateShapes(t *testing.T) {
	for _, raw := range []string{"2026-09-15", "2026-09-15T10:30:00", "2026-09-15T10:30:00Z"} {
		if _, err := ParseDate(raw); err != nil {
			t.Fatalf("ParseDate(%q): %v", raw, err)
		}
	}
	if _, err := ParseDate("next tuesday"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestNextSlotAfter(t *testing.T) {
	entries := []*domain.TimeTableEntry{
		{Day: "Monday", StartTime: "09:00"},
		{Day: "Monday", StartTime: "14:00"},
		{Day: "Thursday", StartTime: "11:00"},
	}

	// Monday 2026-09-14 at 10:00: the 14:00 slot the same day wins.
	ref := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)
	next, ok := nextSlotAfter(entries, ref)
	if !ok {
		t.Fatal("expected a slot")
	}
	if want := time.Date(2026, 9, 14, 14, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("got %v, want %v", next, want)
	}

	// Monday at 15:00: Thursday is next.
	ref = time.Date(2026, 9, 14, 15, 0, 0, 0, time.UTC)
	next, _ = nextSlotAfter(entries, ref)
	if want := time.Date(2026, 9, 17, 11, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("got %v, want %v", next, want)
	}

	// Friday: wraps to Monday next week.
	ref = time.Date(2026, 9, 18, 12, 0, 0, 0, time.UTC)
	next, _ = nextSlotAfter(entries, ref)
	if want := time.Date(2026, 9, 21, 9, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("got %v, want %v", next, want)
	}

	// A course with a single weekly slot at exactly the reference time rolls
	// over to the same weekday next week.
	single := []*domain.TimeTableEntry{{Day: "Monday", StartTime: "09:00"}}
	ref = time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	next, _ = nextSlotAfter(single, ref)
	if want := time.Date(2026, 9, 21, 9, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("got %v, want %v", next, want)
	}

	if _, ok := nextSlotAfter(nil, ref); ok {
		t.Fatal("no entries must yield no slot")
	}
}

func TestCreateTimeTableValidation(t *testing.T) {
	svc := newTestService(t)
	course := mustCreateCourse(t, svc, "Algorithms")

	cases := []CreateTimeTableInput{
		{CourseID: course.ID, Day: "Funday", StartTime: "09:00", EndTime: "10:30"},
		{CourseID: course.ID, Day: "Monday", StartTime: "25:00", EndTime: "10:30"},
		{CourseID: course.ID, Day: "Monday", StartTime: "09:00"},
	}
	for _, in := range cases {
		if _, err := svc.CreateTimeTable(context.Background(), in); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected invalid argument for %+v, got %v", in, err)
		}
	}

	entry, err := svc.CreateTimeTable(context.Background(), CreateTimeTableInput{
		CourseID: course.ID, Day: "Monday", StartTime: "09:00", EndTime: "10:30", Location: "B-204",
	})
	if err != nil {
		t.Fatalf("creating timetable entry: %v", err)
	}
	if entry.ID == "" || entry.UserID != domain.SystemUserID {
		t.Fatalf("entry not stamped: %+v", entry)
	}
}

func TestSnapshotListsEverything(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	course := mustCreateCourse(t, svc, "Algorithms")
	created, _ := svc.CreateSchedule(ctx, CreateScheduleInput{CourseID: course.ID, Date: "2026-09-15", TagID: "final"})

	courses, tags, schedules, err := svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if courses[course.ID] != "Algorithms" {
		t.Fatalf("course missing from snapshot: %v", courses)
	}
	if _, ok := tags["final"]; !ok {
		t.Fatalf("enum tags missing from snapshot: %v", tags)
	}
	if schedules[created.ID].TagID != "final" {
		t.Fatalf("schedule missing from snapshot: %v", schedules)
	}
}

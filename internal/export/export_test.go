package export_test

import (
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/vstudent/schedule-agent/internal/domain"
	"github.com/vstudent/schedule-agent/internal/export"
)

func sampleSchedules() []*domain.ScheduleJoined {
	date := time.Date(2026, 10, 1, 14, 0, 0, 0, time.UTC)
	return []*domain.ScheduleJoined{
		{
			Schedule: domain.Schedule{
				ID:          "68b1a2b3c4d5e6f7a8b9c0d1",
				CourseID:    "68b1a2b3c4d5e6f7a8b9c0d2",
				Date:        date,
				TagID:       "mid",
				Description: "chapters 1-4",
				CreatedAt:   date,
				UpdatedAt:   date,
			},
			Course: &domain.Course{ID: "68b1a2b3c4d5e6f7a8b9c0d2", Name: "Networks"},
		},
		{
			// Dangling course reference: falls back to the raw id.
			Schedule: domain.Schedule{
				ID:       "68b1a2b3c4d5e6f7a8b9c0d3",
				CourseID: "68b1a2b3c4d5e6f7a8b9c0d4",
				Date:     date.AddDate(0, 0, 7),
			},
		},
	}
}

func TestICalendar(t *testing.T) {
	out := string(export.ICalendar(sampleSchedules()))

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"END:VCALENDAR",
		"SUMMARY:Networks (mid)",
		"DESCRIPTION:chapters 1-4",
		"68b1a2b3c4d5e6f7a8b9c0d1@vstudent",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("calendar missing %q:\n%s", want, out)
		}
	}
	if got := strings.Count(out, "BEGIN:VEVENT"); got != 2 {
		t.Fatalf("expected 2 events, got %d", got)
	}
}

func TestWorkbook(t *testing.T) {
	buf, err := export.Workbook(sampleSchedules())
	if err != nil {
		t.Fatalf("Workbook: %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("reading workbook back: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Schedules")
	if err != nil {
		t.Fatalf("reading rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Date" || rows[0][1] != "Course" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "Networks" {
		t.Fatalf("course name missing: %v", rows[1])
	}
	// The dangling reference row keeps the raw course id.
	if rows[2][1] != "68b1a2b3c4d5e6f7a8b9c0d4" {
		t.Fatalf("dangling course fallback missing: %v", rows[2])
	}
}

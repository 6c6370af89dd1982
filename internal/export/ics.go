// Package export renders the schedule in formats external tools consume:
// an iCalendar feed and a spreadsheet.
package export

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/vstudent/schedule-agent/internal/domain"
)

// ICalendar renders the joined schedules as an all-day-style calendar feed.
// Entries are one hour long starting at the stored date.
func ICalendar(schedules []*domain.ScheduleJoined) []byte {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//vstudent//schedule-agent//EN")

	for _, s := range schedules {
		event := cal.AddEvent(fmt.Sprintf("%s@vstudent", s.ID))
		event.SetCreatedTime(s.CreatedAt)
		event.SetModifiedAt(s.UpdatedAt)
		event.SetStartAt(s.Date)
		event.SetEndAt(s.Date.Add(time.Hour))
		event.SetSummary(eventSummary(s))
		if s.Description != "" {
			event.SetDescription(s.Description)
		}
	}
	return []byte(cal.Serialize())
}

func eventSummary(s *domain.ScheduleJoined) string {
	course := s.CourseID
	if s.Course != nil {
		course = s.Course.Name
	}
	tag := s.TagID
	if s.Tag != nil {
		tag = s.Tag.Title
	}
	if tag == "" {
		return course
	}
	return fmt.Sprintf("%s (%s)", course, tag)
}

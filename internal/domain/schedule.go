package domain

import "time"

// Course is a subject the user is enrolled in.
type Course struct {
	ID          string    `json:"_id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Short       string    `json:"short,omitempty"`
	Code        string    `json:"code,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Tag classifies schedule entries (assignment, quiz, exam, ...).
// Depending on configuration tags are either this free-form entity or the
// fixed ValidTags set; see config.TagMode.
type Tag struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ValidTags is the closed tag set accepted in enum tag mode.
var ValidTags = []string{"assignment", "quiz", "mid", "viva", "final", "ccp", "project", "other"}

func IsValidTag(tag string) bool {
	for _, t := range ValidTags {
		if t == tag {
			return true
		}
	}
	return false
}

// TimeTableEntry is a recurring weekly slot for a course, not a dated event.
// Times are "HH:MM" strings.
type TimeTableEntry struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"userId"`
	CourseID  string    `json:"courseId"`
	Day       string    `json:"day"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Schedule is one concrete deadline or event, linked to a course and a tag.
type Schedule struct {
	ID          string    `json:"_id"`
	UserID      string    `json:"userId"`
	CourseID    string    `json:"courseId"`
	Date        time.Time `json:"date"`
	TagID       string    `json:"tagId"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ScheduleJoined is a schedule with its course and tag resolved. A dangling
// courseId or tagId leaves the join target nil rather than failing the read.
type ScheduleJoined struct {
	Schedule
	Course *Course `json:"course,omitempty"`
	Tag    *Tag    `json:"tag,omitempty"`
}

// TimeTableJoined is a timetable entry with its course resolved.
type TimeTableJoined struct {
	TimeTableEntry
	Course *Course `json:"course,omitempty"`
}

// ScheduleFilter narrows schedule listings. Zero values mean "no constraint".
type ScheduleFilter struct {
	CourseID  string
	TagID     string
	Date      *time.Time
	StartDate *time.Time
	EndDate   *time.Time
	Before    *time.Time
}

package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const instructionTemplate = `You are a scheduling assistant for a university student.
You manage the student's courses, weekly timetable, and dated schedule entries
(deadlines, quizzes, exams) through the functions declared to you.

Rules:
- Call at most one function per turn.
- When the user's request maps to a function, call it instead of describing it.
- Use askUser when you are missing information only the user can supply.
- Use ignorePrompt when the message is not a scheduling request at all.
- Dates you produce are ISO-8601. Resolve relative dates ("next Friday")
  against the current date below.
- Refer to courses, tags and schedules by the ids listed below, never by
  guessing new ids.

Current date: {currentDay}, {currentMonth} {currentDate}, {currentYear}.

Known courses (id -> name):
{currentCourses}

Known tags (id -> title):
{currentTags}

Existing schedules (id -> entry):
{currentSchedules}
`

// BuildSystemInstruction renders the per-request system instruction: the
// static rules plus a live snapshot of the data the model may reference, so
// it can resolve names like "the algorithms quiz" to stored ids.
func BuildSystemInstruction(now time.Time, courses, tags map[string]string, schedules any) string {
	replacer := strings.NewReplacer(
		"{currentYear}", fmt.Sprintf("%d", now.Year()),
		"{currentMonth}", now.Month().String(),
		"{currentDate}", fmt.Sprintf("%d", now.Day()),
		"{currentDay}", now.Weekday().String(),
		"{currentCourses}", toJSON(courses),
		"{currentTags}", toJSON(tags),
		"{currentSchedules}", toJSON(schedules),
	)
	return replacer.Replace(instructionTemplate)
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

package domain

type Role string

const (
	RoleUser     Role = "user"
	RoleModel    Role = "model"
	RoleFunction Role = "function"
)

// The app runs single-user for now: every document is owned by this pair.
const (
	SystemUserID    = "6651234a1f1f1f1f1f1f1f1f"
	SystemStudentID = "6651234b1f1f1f1f1f1f1f10"
)

// Weekdays orders day names the way timetable entries store them,
// Sunday first so an index lines up with time.Weekday.
var Weekdays = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// WeekdayIndex returns the position of a day name in Weekdays, or -1.
func WeekdayIndex(day string) int {
	for i, d := range Weekdays {
		if d == day {
			return i
		}
	}
	return -1
}

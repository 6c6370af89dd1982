package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vstudent/schedule-agent/internal/app/conversation"
	"github.com/vstudent/schedule-agent/internal/app/schedule"
	"github.com/vstudent/schedule-agent/internal/domain"
)

// BuildCatalog registers every operation the model may invoke against the
// schedule and conversation services, plus the reserved declarations the
// dispatch loop intercepts.
func BuildCatalog(svc *schedule.Service, conv *conversation.Service, now func() time.Time) (*Catalog, error) {
	if now == nil {
		now = time.Now
	}
	c := NewCatalog()
	var err error
	reg := func(decl domain.FunctionDeclaration, fn Func) {
		if err == nil {
			err = c.Register(decl, fn)
		}
	}

	// ---- schedule reads ----

	reg(domain.FunctionDeclaration{
		Name:        "getAllSchedules",
		Description: "List every schedule entry (deadlines, quizzes, exams) with course and tag ids.",
	}, func(ctx context.Context, _ map[string]any) (any, error) {
		return svc.ListSchedules(ctx, domain.ScheduleFilter{})
	})

	reg(domain.FunctionDeclaration{
		Name:        "getScheduleById",
		Description: "Fetch a single schedule entry by its id.",
		Parameters: obj([]string{"scheduleId"}, map[string]*domain.Schema{
			"scheduleId": str("Id of the schedule entry."),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		id, err := GetString(args, "scheduleId")
		if err != nil {
			return nil, err
		}
		sc, err := svc.GetSchedule(ctx, id)
		if err != nil {
			return nil, err
		}
		if sc == nil {
			return nil, fmt.Errorf("%w: no schedule with id %q", domain.ErrNotFound, id)
		}
		return sc, nil
	})

	reg(domain.FunctionDeclaration{
		Name:        "getSchedulesByDateRange",
		Description: "List schedule entries dated between startDate and endDate inclusive.",
		Parameters: obj([]string{"startDate", "endDate"}, map[string]*domain.Schema{
			"startDate": str("Start of the range, ISO-8601."),
			"endDate":   str("End of the range, ISO-8601."),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		start, err := dateArg(args, "startDate")
		if err != nil {
			return nil, err
		}
		end, err := dateArg(args, "endDate")
		if err != nil {
			return nil, err
		}
		return svc.SchedulesInRange(ctx, start, end)
	})

	reg(domain.FunctionDeclaration{
		Name:        "getSchedulesByCourseId",
		Description: "List schedule entries belonging to one course.",
		Parameters: obj([]string{"courseId"}, map[string]*domain.Schema{
			"courseId": str("Id of the course."),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		id, err := GetString(args, "courseId")
		if err != nil {
			return nil, err
		}
		return svc.ListSchedules(ctx, domain.ScheduleFilter{CourseID: id})
	})

	reg(domain.FunctionDeclaration{
		Name:        "getSchedulesByTag",
		Description: "List schedule entries carrying one tag.",
		Parameters: obj([]string{"tagId"}, map[string]*domain.Schema{
			"tagId": str("Id of the tag."),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		id, err := GetString(args, "tagId")
		if err != nil {
			return nil, err
		}
		return svc.ListSchedules(ctx, domain.ScheduleFilter{TagID: id})
	})

	reg(domain.FunctionDeclaration{
		Name:        "getSchedulesByDate",
		Description: "List schedule entries dated exactly on the given day.",
		Parameters: obj([]string{"date"}, map[string]*domain.Schema{
			"date": str("The day, ISO-8601."),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		date, err := dateArg(args, "date")
		if err != nil {
			return nil, err
		}
		return svc.SchedulesOn(ctx, date)
	})

	reg(domain.FunctionDeclaration{
		Name:        "getSchedulesBeforeDate",
		Description: "List schedule entries dated strictly before the given date.",
		Parameters: obj([]string{"date"}, map[string]*domain.Schema{
			"date": str("The cutoff date, ISO-8601."),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		date, err := dateArg(args, "date")
		if err != nil {
			return nil, err
		}
		return svc.SchedulesBefore(ctx, date)
	})

	// ---- schedule writes ----

	reg(domain.FunctionDeclaration{
		Name:        "addNewSchedule",
		Description: "Create a schedule entry for a course on a date, with an optional tag and description.",
		Parameters: obj([]string{"courseId", "date"}, map[string]*domain.Schema{
			"courseId":    str("Id of the course the entry belongs to."),
			"date":        str("Date of the entry, ISO-8601."),
			"tagId":       str("Tag classifying the entry."),
			"description": str("Free-form description."),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		courseID, err := GetString(args, "courseId")
		if err != nil {
			return nil, err
		}
		date, err := GetString(args, "date")
		if err != nil {
			return nil, err
		}
		return svc.CreateSchedule(ctx, schedule.CreateScheduleInput{
			CourseID:    courseID,
			Date:        date,
			TagID:       OptString(args, "tagId", ""),
			Description: OptString(args, "description", ""),
		})
	})

	scheduleUpdate := func(ctx context.Context, args map[string]any, keys ...string) (any, error) {
		id, err := GetString(args, "scheduleId")
		if err != nil {
			return nil, err
		}
		fields := make(map[string]any, len(keys))
		for _, key := range keys {
			if v, ok := args[key]; ok {
				fields[key] = v
			}
		}
		return svc.UpdateSchedule(ctx, id, fields)
	}

	reg(domain.FunctionDeclaration{
		Name:        "updateSchedule",
		Description: "Update any combination of a schedule entry's course, date, tag and description.",
		Parameters: obj([]string{"scheduleId"}, map[string]*domain.Schema{
			"scheduleId":  str("Id of the schedule entry."),
			"courseId":    str("New course id."),
			"date":        str("New date, ISO-8601."),
			"tagId":       str("New tag."),
			"description": str("New description."),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return scheduleUpdate(ctx, args, "courseId", "date", "tagId", "description")
	})

	reg(domain.FunctionDeclaration{
		Name:        "updateScheduleDescription",
		Description: "Replace a schedule entry's description.",
		Parameters: obj([]string{"scheduleId", "description"}, map[string]*domain.Schema{
			"scheduleId":  str("Id of the schedule entry."),
			"description": str("New description."),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return scheduleUpdate(ctx, args, "description")
	})

	reg(domain.FunctionDeclaration{
		Name:        "updateScheduleDate",
		Description: "Move a schedule entry to a new date.",
		Parameters: obj([]string{"scheduleId", "date"}, map[string]*domain.Schema{
			"scheduleId": str("Id of the schedule entry."),
			"date":       str("New date, ISO-8601."),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return scheduleUpdate(ctx, args, "date")
	})

	reg(domain.FunctionDeclaration{
		Name:        "updateScheduleTag",
		Description: "Replace a schedule entry's tag.",
		Parameters: obj([]string{"scheduleId", "tagId"}, map[string]*domain.Schema{
			"scheduleId": str("Id of the schedule entry."),
			"tagId":      str("New tag."),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return scheduleUpdate(ctx, args, "tagId")
	})

	reg(domain.FunctionDeclaration{
		Name:        "updateScheduleCourseId",
		Description: "Move a schedule entry to another course.",
		Parameters: obj([]string{"scheduleId", "courseId"}, map[string]*domain.Schema{
			"scheduleId": str("Id of the schedule entry."),
			"courseId":   str("New course id."),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return scheduleUpdate(ctx, args, "courseId")
	})

	reg(domain.FunctionDeclaration{
		Name:        "deleteSchedule",
		Description: "Delete a schedule entry by id.",
		Parameters: obj([]string{"scheduleId"}, map[string]*domain.Schema{
			"scheduleId": str("Id of the schedule entry."),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		id, err := GetString(args, "scheduleId")
		if err != nil {
			return nil, err
		}
		if err := svc.DeleteSchedule(ctx, id); err != nil {
			return nil, err
		}
		return "deleted", nil
	})

	// ---- courses and timetables ----

	reg(domain.FunctionDeclaration{
		Name:        "getAllCourses",
		Description: "List every course with its id, name, short name and code.",
	}, func(ctx context.Context, _ map[string]any) (any, error) {
		return svc.ListCourses(ctx)
	})

	reg(domain.FunctionDeclaration{
		Name:        "getCourseById",
		Description: "Fetch a single course by its id.",
		Parameters: obj([]string{"courseId"}, map[string]*domain.Schema{
			"courseId": str("Id of the course."),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		id, err := GetString(args, "courseId")
		if err != nil {
			return nil, err
		}
		course, err := svc.GetCourse(ctx, id)
		if err != nil {
			return nil, err
		}
		if course == nil {
			return nil, fmt.Errorf("%w: no course with id %q", domain.ErrNotFound, id)
		}
		return course, nil
	})

	reg(domain.FunctionDeclaration{
		Name:        "getAllTimeTables",
		Description: "List every weekly timetable slot with its course resolved.",
	}, func(ctx context.Context, _ map[string]any) (any, error) {
		return svc.ListTimeTables(ctx)
	})

	reg(domain.FunctionDeclaration{
		Name:        "getTimeTableByCourseId",
		Description: "List the weekly timetable slots of one course, ordered by day and start time.",
		Parameters: obj([]string{"courseId"}, map[string]*domain.Schema{
			"courseId": str("Id of the course."),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		id, err := GetString(args, "courseId")
		if err != nil {
			return nil, err
		}
		return svc.ListTimeTablesByCourse(ctx, id)
	})

	reg(domain.FunctionDeclaration{
		Name:        "getSlotAfter",
		Description: "Find the next weekly timetable slot of a course after a reference time (defaults to now).",
		Parameters: obj([]string{"courseId"}, map[string]*domain.Schema{
			"courseId": str("Id of the course."),
			"date":     str("Reference time, ISO-8601. Defaults to the current time."),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		id, err := GetString(args, "courseId")
		if err != nil {
			return nil, err
		}
		ref := now()
		if raw := OptString(args, "date", ""); raw != "" {
			ref, err = schedule.ParseDate(raw)
			if err != nil {
				return nil, err
			}
		}
		next, ok, err := svc.NextSlot(ctx, id, ref)
		if err != nil {
			return nil, err
		}
		if !ok {
			return "the course has no timetable slots", nil
		}
		return next.Format(time.RFC3339), nil
	})

	// ---- utility ----

	reg(domain.FunctionDeclaration{
		Name:        "getTime",
		Description: "Return the current date and time.",
	}, func(_ context.Context, _ map[string]any) (any, error) {
		t := now()
		return fmt.Sprintf("%s, %s", t.Weekday(), t.Format(time.RFC3339)), nil
	})

	reg(domain.FunctionDeclaration{
		Name:        "getCollectionNames",
		Description: "List the database collection names available to runCustomDatabaseQuery.",
	}, func(ctx context.Context, _ map[string]any) (any, error) {
		return svc.CollectionNames(ctx)
	})

	reg(domain.FunctionDeclaration{
		Name: "runCustomDatabaseQuery",
		Description: "Run a raw database operation when no dedicated function fits. " +
			"For insert operations the document(s) go in the filter field.",
		Parameters: obj([]string{"collection", "operation"}, map[string]*domain.Schema{
			"collection": str("Target collection name."),
			"operation": {
				Type:        "string",
				Description: "Operation to run.",
				Enum:        []string{"find", "aggregate", "insertOne", "insertMany", "updateOne", "updateMany", "deleteOne", "deleteMany"},
			},
			"filter":   {Type: "object", Description: "Filter document, or the document(s) to insert."},
			"sort":     {Type: "object", Description: "Sort document for find."},
			"limit":    {Type: "integer", Description: "Result limit for find."},
			"pipeline": {Type: "array", Description: "Aggregation pipeline stages.", Items: &domain.Schema{Type: "object"}},
			"update":   {Type: "object", Description: "Update document for update operations."},
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		var q domain.RawQuery
		b, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
		}
		if err := json.Unmarshal(b, &q); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
		}
		if q.Collection == "" || q.Operation == "" {
			return nil, fmt.Errorf("%w: collection and operation are required", domain.ErrInvalidArgument)
		}
		return svc.ExecuteRaw(ctx, q)
	})

	// ---- conversations ----

	reg(domain.FunctionDeclaration{
		Name:        "checkPreviousInteractions",
		Description: "Review recent completed conversations, either this assistant's or other users'.",
		Parameters: obj(nil, map[string]*domain.Schema{
			"fromOthers": {Type: "boolean", Description: "True to read other users' conversations."},
			"n":          {Type: "integer", Description: "How many conversations to return. Defaults to 5."},
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return conv.Interactions(ctx, OptBool(args, "fromOthers", false), OptInt(args, "n", 5))
	})

	reg(domain.FunctionDeclaration{
		Name:        "sendToAdmin",
		Description: "Forward a question to the assistant's owner when no function and no user input can answer it.",
		Parameters: obj([]string{"question"}, map[string]*domain.Schema{
			"question": str("The question for the owner."),
		}),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		question, err := GetString(args, "question")
		if err != nil {
			return nil, err
		}
		id, err := conv.AskAdmin(ctx, question)
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("question recorded in conversation %s", id), nil
	})

	// ---- reserved, intercepted by the dispatch loop ----

	if err == nil {
		err = c.RegisterReserved(domain.FunctionDeclaration{
			Name:        ReservedAskUser,
			Description: "Ask the user for information only they can supply, then wait for their answer.",
			Parameters: obj([]string{"question"}, map[string]*domain.Schema{
				"question": str("The question for the user."),
			}),
		})
	}
	if err == nil {
		err = c.RegisterReserved(domain.FunctionDeclaration{
			Name:        ReservedIgnorePrompt,
			Description: "Call when the message is not a scheduling request and should be ignored.",
		})
	}

	if err != nil {
		return nil, err
	}
	return c, nil
}

func str(desc string) *domain.Schema {
	return &domain.Schema{Type: "string", Description: desc}
}

func obj(required []string, props map[string]*domain.Schema) *domain.Schema {
	return &domain.Schema{Type: "object", Properties: props, Required: required}
}

func dateArg(args map[string]any, name string) (time.Time, error) {
	raw, err := GetString(args, name)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.ParseDate(raw)
}

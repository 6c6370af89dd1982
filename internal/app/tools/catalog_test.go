package tools_test

import (
	"context"
	"testing"
	"time"

	"github.com/vstudent/schedule-agent/internal/adapters/storage/memory"
	"github.com/vstudent/schedule-agent/internal/app/conversation"
	"github.com/vstudent/schedule-agent/internal/app/schedule"
	"github.com/vstudent/schedule-agent/internal/app/tools"
	"github.com/vstudent/schedule-agent/internal/config"
	"github.com/vstudent/schedule-agent/internal/domain"
)

func noop(context.Context, map[string]any) (any, error) { return "ok", nil }

func TestRegisterRejectsReservedNames(t *testing.T) {
	c := tools.NewCatalog()
	for _, name := range []string{"askUser", "ignorePrompt"} {
		if err := c.Register(domain.FunctionDeclaration{Name: name}, noop); err == nil {
			t.Fatalf("reserved name %q must be rejected", name)
		}
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	c := tools.NewCatalog()
	if err := c.Register(domain.FunctionDeclaration{Name: "getTime"}, noop); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if err := c.Register(domain.FunctionDeclaration{Name: "getTime"}, noop); err == nil {
		t.Fatal("duplicate registration must be rejected")
	}
}

func TestBuildCatalogDeclaresEverything(t *testing.T) {
	courses := memory.NewCourseStore()
	tags := memory.NewTagStore()
	scheduleSvc := schedule.NewService(
		courses,
		tags,
		memory.NewTimeTableStore(courses),
		memory.NewScheduleStore(courses, tags),
		memory.NewRawQueryStore(),
		config.TagModeEnum,
	)
	conversationSvc := conversation.NewService(memory.NewConversationStore())

	c, err := tools.BuildCatalog(scheduleSvc, conversationSvc, time.Now)
	if err != nil {
		t.Fatalf("BuildCatalog: %v", err)
	}

	want := []string{
		"getAllSchedules", "getScheduleById", "getSchedulesByDateRange",
		"getSchedulesByCourseId", "getSchedulesByTag", "getSchedulesByDate",
		"getSchedulesBeforeDate", "addNewSchedule", "updateSchedule",
		"updateScheduleDescription", "updateScheduleDate", "updateScheduleTag",
		"updateScheduleCourseId", "deleteSchedule", "getAllCourses",
		"getCourseById", "getAllTimeTables", "getTimeTableByCourseId",
		"getSlotAfter", "getTime", "getCollectionNames",
		"runCustomDatabaseQuery", "checkPreviousInteractions", "sendToAdmin",
		"askUser", "ignorePrompt",
	}

	declared := make(map[string]bool)
	for _, d := range c.Declarations() {
		declared[d.Name] = true
	}
	for _, name := range want {
		if !declared[name] {
			t.Fatalf("function %q not declared", name)
		}
	}
	if len(declared) != len(want) {
		t.Fatalf("expected %d declarations, got %d", len(want), len(declared))
	}

	// Reserved names are declared but not executable.
	if _, ok := c.Lookup("askUser"); ok {
		t.Fatal("askUser must not be executable")
	}
	if _, ok := c.Lookup("getTime"); !ok {
		t.Fatal("getTime must be executable")
	}
}

func TestGetTimeReportsFixedClock(t *testing.T) {
	courses := memory.NewCourseStore()
	tags := memory.NewTagStore()
	scheduleSvc := schedule.NewService(
		courses,
		tags,
		memory.NewTimeTableStore(courses),
		memory.NewScheduleStore(courses, tags),
		memory.NewRawQueryStore(),
		config.TagModeEnum,
	)
	conversationSvc := conversation.NewService(memory.NewConversationStore())

	fixed := time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC) // a Monday
	c, err := tools.BuildCatalog(scheduleSvc, conversationSvc, func() time.Time { return fixed })
	if err != nil {
		t.Fatalf("BuildCatalog: %v", err)
	}

	entry, _ := c.Lookup("getTime")
	out, err := entry.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("getTime: %v", err)
	}
	if out != "Monday, 2026-08-31T09:30:00Z" {
		t.Fatalf("unexpected getTime output: %v", out)
	}
}

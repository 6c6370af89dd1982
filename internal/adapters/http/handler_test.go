package httpadapter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/vstudent/schedule-agent/internal/adapters/http"
	"github.com/vstudent/schedule-agent/internal/adapters/llm"
	"github.com/vstudent/schedule-agent/internal/adapters/storage/memory"
	"github.com/vstudent/schedule-agent/internal/app/conversation"
	"github.com/vstudent/schedule-agent/internal/app/dispatch"
	"github.com/vstudent/schedule-agent/internal/app/schedule"
	"github.com/vstudent/schedule-agent/internal/app/tools"
	"github.com/vstudent/schedule-agent/internal/config"
	"github.com/vstudent/schedule-agent/internal/domain"
)

func newTestServer(t *testing.T, replies ...*domain.ModelReply) http.Handler {
	t.Helper()

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

	catalog, err := tools.BuildCatalog(scheduleSvc, conversationSvc, time.Now)
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}

	model := llm.NewScriptedModel(replies...)
	instruction := func(context.Context) (string, error) { return "test instruction", nil }
	dispatcher := dispatch.NewService(model, conversationSvc, catalog, instruction, 4, 10)

	return httpadapter.NewServer(scheduleSvc, conversationSvc, dispatcher)
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()
	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding envelope: %v (%s)", err, w.Body.String())
	}
	if envelope.Error != "" {
		t.Fatalf("unexpected error: %s", envelope.Error)
	}
	if into != nil {
		if err := json.Unmarshal(envelope.Data, into); err != nil {
			t.Fatalf("decoding data: %v (%s)", err, w.Body.String())
		}
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestCourseAndScheduleScenario(t *testing.T) {
	srv := newTestServer(t)

	// Create a course.
	w := do(t, srv, http.MethodPost, "/courses", map[string]any{"name": "Algorithms", "short": "ALG"})
	if w.Code != http.StatusCreated {
		t.Fatalf("creating course: %d %s", w.Code, w.Body.String())
	}
	var course domain.Course
	decodeData(t, w, &course)

	// Create a schedule for it.
	w = do(t, srv, http.MethodPost, "/schedules", map[string]any{
		"courseId": course.ID, "date": "2026-09-15", "tagId": "quiz", "description": "graphs",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("creating schedule: %d %s", w.Code, w.Body.String())
	}
	var created domain.Schedule
	decodeData(t, w, &created)

	// Fetch it by id.
	w = do(t, srv, http.MethodGet, "/schedules?id="+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("getting schedule: %d %s", w.Code, w.Body.String())
	}
	var got domain.Schedule
	decodeData(t, w, &got)
	if got.Description != "graphs" {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	// Joined listing resolves the course.
	w = do(t, srv, http.MethodGet, "/schedules?aggregate=true", nil)
	var joined []domain.ScheduleJoined
	decodeData(t, w, &joined)
	if len(joined) != 1 || joined[0].Course == nil || joined[0].Course.Name != "Algorithms" {
		t.Fatalf("join did not resolve the course: %s", w.Body.String())
	}

	// Update it.
	w = do(t, srv, http.MethodPut, "/schedules?id="+created.ID, map[string]any{"description": "trees"})
	if w.Code != http.StatusOK {
		t.Fatalf("updating schedule: %d %s", w.Code, w.Body.String())
	}

	// Delete it.
	w = do(t, srv, http.MethodDelete, "/schedules?id="+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("deleting schedule: %d %s", w.Code, w.Body.String())
	}
	w = do(t, srv, http.MethodGet, "/schedules?id="+created.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestMalformedIDIsBadRequest(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/schedules?id=not-an-id", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"error"`) {
		t.Fatalf("error envelope missing: %s", w.Body.String())
	}
}

func TestScheduleFilterRejectsBadDate(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/schedules?date=tomorrowish", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestNextSlotRequiresCourseID(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/timetables/next-slot", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestNextSlotScenario(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/courses", map[string]any{"name": "Databases"})
	var course domain.Course
	decodeData(t, w, &course)

	w = do(t, srv, http.MethodPost, "/timetables", map[string]any{
		"courseId": course.ID, "day": "Wednesday", "startTime": "10:00", "endTime": "11:30",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("creating timetable entry: %d %s", w.Code, w.Body.String())
	}

	// Monday before the slot: Wednesday of the same week.
	w = do(t, srv, http.MethodGet, "/timetables/next-slot?courseId="+course.ID+"&date=2026-09-14", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("next-slot: %d %s", w.Code, w.Body.String())
	}
	var next string
	decodeData(t, w, &next)
	if !strings.HasPrefix(next, "2026-09-16T10:00:00") {
		t.Fatalf("unexpected next slot: %q", next)
	}
}

func TestAskAdminEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/prompts/askAdmin", map[string]any{"question": "extension?"})
	if w.Code != http.StatusCreated {
		t.Fatalf("askAdmin: %d %s", w.Code, w.Body.String())
	}

	// A second question while one is open is rejected.
	w = do(t, srv, http.MethodPost, "/prompts/askAdmin", map[string]any{"question": "another?"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	// Ignoring open conversations unblocks it.
	w = do(t, srv, http.MethodPost, "/prompts/ignorePrompt", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ignorePrompt: %d %s", w.Code, w.Body.String())
	}
	var ignored struct {
		Ignored int `json:"ignored"`
	}
	decodeData(t, w, &ignored)
	if ignored.Ignored != 1 {
		t.Fatalf("expected 1 ignored conversation, got %d", ignored.Ignored)
	}
}

func TestAIFunctionCallEndpoint(t *testing.T) {
	srv := newTestServer(t, &domain.ModelReply{Text: "Nothing due this week."})

	w := do(t, srv, http.MethodPost, "/ai-function-call", map[string]any{"query": "anything due?"})
	if w.Code != http.StatusOK {
		t.Fatalf("ai-function-call: %d %s", w.Code, w.Body.String())
	}
	var result struct {
		ConversationID string `json:"conversationId"`
		Text           string `json:"text"`
	}
	decodeData(t, w, &result)
	if result.Text != "Nothing due this week." || result.ConversationID == "" {
		t.Fatalf("unexpected result: %+v", result)
	}

	// The conversation is readable afterwards.
	w = do(t, srv, http.MethodGet, "/ai-function-call?conversationId="+result.ConversationID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reading conversation: %d %s", w.Code, w.Body.String())
	}
	var conv struct {
		Completed bool             `json:"completed"`
		Messages  []domain.Message `json:"messages"`
	}
	decodeData(t, w, &conv)
	if !conv.Completed || len(conv.Messages) != 2 {
		t.Fatalf("unexpected conversation: %+v", conv)
	}
}

func TestAIFunctionCallRequiresQuery(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodPost, "/ai-function-call", map[string]any{"query": " "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCollectionsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/collections", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("collections: %d %s", w.Code, w.Body.String())
	}
	var names []string
	decodeData(t, w, &names)
	found := false
	for _, n := range names {
		if n == "schedules" {
			found = true
		}
	}
	if !found {
		t.Fatalf("schedules collection missing: %v", names)
	}
}

func TestExportICS(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/courses", map[string]any{"name": "Networks"})
	var course domain.Course
	decodeData(t, w, &course)
	w = do(t, srv, http.MethodPost, "/schedules", map[string]any{
		"courseId": course.ID, "date": "2026-10-01", "tagId": "mid",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("creating schedule: %d %s", w.Code, w.Body.String())
	}

	w = do(t, srv, http.MethodGet, "/export/schedule.ics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export: %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "BEGIN:VCALENDAR") || !strings.Contains(body, "Networks") {
		t.Fatalf("unexpected calendar output: %s", body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodDelete, "/collections", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

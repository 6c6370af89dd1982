package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vstudent/schedule-agent/internal/app/conversation"
	"github.com/vstudent/schedule-agent/internal/app/dispatch"
	"github.com/vstudent/schedule-agent/internal/app/schedule"
	"github.com/vstudent/schedule-agent/internal/domain"
	"github.com/vstudent/schedule-agent/internal/export"
)

type Server struct {
	schedules     *schedule.Service
	conversations *conversation.Service
	dispatcher    *dispatch.Service
}

func NewServer(schedules *schedule.Service, conversations *conversation.Service, dispatcher *dispatch.Service) http.Handler {
	s := &Server{schedules: schedules, conversations: conversations, dispatcher: dispatcher}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)

	mux.HandleFunc("/courses", s.handleCourses)
	mux.HandleFunc("/schedules", s.handleSchedules)
	mux.HandleFunc("/timetables", s.handleTimeTables)
	mux.HandleFunc("/timetables/next-slot", s.handleNextSlot)

	mux.HandleFunc("/conversations", s.handleConversations)
	mux.HandleFunc("/interactions", s.handleInteractions)
	mux.HandleFunc("/prompts/askAdmin", s.handleAskAdmin)
	mux.HandleFunc("/prompts/ignorePrompt", s.handleIgnorePrompt)
	mux.HandleFunc("/ai-function-call", s.handleAIFunctionCall)

	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/collections", s.handleCollections)

	mux.HandleFunc("/export/schedule.ics", s.handleExportICS)
	mux.HandleFunc("/export/schedule.xlsx", s.handleExportXLSX)

	return chainMiddlewares(mux, withLogging, withCORS, withRequestID)
}

// ─────────────────────────────────────────────
// Health
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeData(w, http.StatusOK, "ok")
}

// ─────────────────────────────────────────────
// Courses
// ─────────────────────────────────────────────

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if id := r.URL.Query().Get("id"); id != "" {
			course, err := s.schedules.GetCourse(r.Context(), id)
			if err != nil {
				writeError(w, err)
				return
			}
			if course == nil {
				writeErrorMessage(w, http.StatusNotFound, "course not found")
				return
			}
			writeData(w, http.StatusOK, course)
			return
		}
		courses, err := s.schedules.ListCourses(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, courses)

	case http.MethodPost:
		var in schedule.CreateCourseInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		course, err := s.schedules.CreateCourse(r.Context(), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusCreated, course)

	case http.MethodPut:
		id, body, ok := updateRequest(w, r)
		if !ok {
			return
		}
		course, err := s.schedules.UpdateCourse(r.Context(), id, body)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, course)

	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			writeErrorMessage(w, http.StatusBadRequest, "id is required")
			return
		}
		if err := s.schedules.DeleteCourse(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, map[string]any{"deleted": true})

	default:
		methodNotAllowed(w)
	}
}

// ─────────────────────────────────────────────
// Schedules
// ─────────────────────────────────────────────

func (s *Server) handleSchedules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		if id := query.Get("id"); id != "" {
			sc, err := s.schedules.GetSchedule(r.Context(), id)
			if err != nil {
				writeError(w, err)
				return
			}
			if sc == nil {
				writeErrorMessage(w, http.StatusNotFound, "schedule not found")
				return
			}
			writeData(w, http.StatusOK, sc)
			return
		}
		if query.Get("aggregate") == "true" {
			joined, err := s.schedules.ListSchedulesJoined(r.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			writeData(w, http.StatusOK, joined)
			return
		}
		filter, err := scheduleFilterFromQuery(query)
		if err != nil {
			writeError(w, err)
			return
		}
		list, err := s.schedules.ListSchedules(r.Context(), filter)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, list)

	case http.MethodPost:
		var in schedule.CreateScheduleInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		sc, err := s.schedules.CreateSchedule(r.Context(), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusCreated, sc)

	case http.MethodPut:
		id, body, ok := updateRequest(w, r)
		if !ok {
			return
		}
		sc, err := s.schedules.UpdateSchedule(r.Context(), id, body)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, sc)

	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			writeErrorMessage(w, http.StatusBadRequest, "id is required")
			return
		}
		if err := s.schedules.DeleteSchedule(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, map[string]any{"deleted": true})

	default:
		methodNotAllowed(w)
	}
}

func scheduleFilterFromQuery(query map[string][]string) (domain.ScheduleFilter, error) {
	get := func(key string) string {
		if vs := query[key]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}

	f := domain.ScheduleFilter{
		CourseID: get("courseId"),
		TagID:    get("tagId"),
	}
	for key, dst := range map[string]**time.Time{
		"date":      &f.Date,
		"startDate": &f.StartDate,
		"endDate":   &f.EndDate,
		"before":    &f.Before,
	} {
		raw := get(key)
		if raw == "" {
			continue
		}
		t, err := schedule.ParseDate(raw)
		if err != nil {
			return domain.ScheduleFilter{}, err
		}
		*dst = &t
	}
	return f, nil
}

// ─────────────────────────────────────────────
// Timetables
// ─────────────────────────────────────────────

func (s *Server) handleTimeTables(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if courseID := r.URL.Query().Get("courseId"); courseID != "" {
			entries, err := s.schedules.ListTimeTablesByCourse(r.Context(), courseID)
			if err != nil {
				writeError(w, err)
				return
			}
			writeData(w, http.StatusOK, entries)
			return
		}
		entries, err := s.schedules.ListTimeTables(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, entries)

	case http.MethodPost:
		var in schedule.CreateTimeTableInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		entry, err := s.schedules.CreateTimeTable(r.Context(), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusCreated, entry)

	case http.MethodPut:
		id, body, ok := updateRequest(w, r)
		if !ok {
			return
		}
		entry, err := s.schedules.UpdateTimeTable(r.Context(), id, body)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, entry)

	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			writeErrorMessage(w, http.StatusBadRequest, "id is required")
			return
		}
		if err := s.schedules.DeleteTimeTable(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, map[string]any{"deleted": true})

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleNextSlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	courseID := r.URL.Query().Get("courseId")
	if courseID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "courseId is required")
		return
	}
	ref := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		t, err := schedule.ParseDate(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		ref = t
	}
	next, ok, err := s.schedules.NextSlot(r.Context(), courseID, ref)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeData(w, http.StatusOK, nil)
		return
	}
	writeData(w, http.StatusOK, next.Format(time.RFC3339))
}

// ─────────────────────────────────────────────
// Conversations
// ─────────────────────────────────────────────

type saveConversationRequest struct {
	ConversationID string           `json:"conversationId"`
	Messages       []domain.Message `json:"messages"`
	Completed      bool             `json:"completed"`
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		completed := query.Get("completed") == "true"
		limit := intParam(query.Get("limit"), 10)
		if query.Get("newest") == "true" {
			convs, err := s.conversations.List(r.Context(), completed, 1)
			if err != nil {
				writeError(w, err)
				return
			}
			if len(convs) == 0 {
				writeData(w, http.StatusOK, nil)
				return
			}
			writeData(w, http.StatusOK, convs[0])
			return
		}
		convs, err := s.conversations.List(r.Context(), completed, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, convs)

	case http.MethodPost:
		var req saveConversationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.ConversationID == "" || len(req.Messages) == 0 {
			writeErrorMessage(w, http.StatusBadRequest, "conversationId and messages are required")
			return
		}
		if err := s.conversations.Save(r.Context(), req.ConversationID, req.Messages, req.Completed); err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, map[string]any{"success": true})

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleInteractions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	query := r.URL.Query()
	convs, err := s.conversations.Interactions(
		r.Context(),
		query.Get("fromOthers") == "true",
		intParam(query.Get("n"), 5),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, convs)
}

func (s *Server) handleAskAdmin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	id, err := s.conversations.AskAdmin(r.Context(), req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]any{"conversationId": id})
}

func (s *Server) handleIgnorePrompt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	count, err := s.conversations.IgnoreOpen(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"ignored": count})
}

// ─────────────────────────────────────────────
// Dispatch loop
// ─────────────────────────────────────────────

func (s *Server) handleAIFunctionCall(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		id := r.URL.Query().Get("conversationId")
		if id == "" {
			writeErrorMessage(w, http.StatusBadRequest, "conversationId is required")
			return
		}
		conv, err := s.conversations.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if conv == nil {
			writeErrorMessage(w, http.StatusNotFound, "conversation not found")
			return
		}
		writeData(w, http.StatusOK, map[string]any{
			"conversationId": conv.ConversationID,
			"messages":       conv.Messages,
			"completed":      conv.Completed,
		})

	case http.MethodPost:
		var req struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			writeErrorMessage(w, http.StatusBadRequest, "query is required")
			return
		}
		result, err := s.dispatcher.HandleCommand(r.Context(), req.Query)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, result)

	default:
		methodNotAllowed(w)
	}
}

// ─────────────────────────────────────────────
// Raw queries
// ─────────────────────────────────────────────

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Query domain.RawQuery `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Query.Collection == "" || req.Query.Operation == "" {
		writeErrorMessage(w, http.StatusBadRequest, "query.collection and query.operation are required")
		return
	}
	result, err := s.schedules.ExecuteRaw(r.Context(), req.Query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	names, err := s.schedules.CollectionNames(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, names)
}

// ─────────────────────────────────────────────
// Exports
// ─────────────────────────────────────────────

func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	joined, err := s.schedules.ListSchedulesJoined(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.ics"`)
	_, _ = w.Write(export.ICalendar(joined))
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	joined, err := s.schedules.ListSchedulesJoined(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	buf, err := export.Workbook(joined)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.xlsx"`)
	_, _ = w.Write(buf.Bytes())
}

// ─────────────────────────────────────────────
// HTTP helpers
// ─────────────────────────────────────────────

// writeData wraps the payload in the {"data": ...} envelope. A nil payload
// writes an empty envelope.
func writeData(w http.ResponseWriter, status int, data any) {
	body := map[string]any{}
	if data != nil {
		body["data"] = data
	}
	writeJSON(w, status, body)
}

// writeError maps a service error onto the envelope's error shape. The error
// text is exposed verbatim.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	default:
		writeErrorMessage(w, http.StatusInternalServerError, err.Error())
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
}

// updateRequest reads the id query parameter and the partial-update body
// shared by every PUT handler.
func updateRequest(w http.ResponseWriter, r *http.Request) (string, map[string]any, bool) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeErrorMessage(w, http.StatusBadRequest, "id is required")
		return "", nil, false
	}
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return "", nil, false
	}
	return id, body, true
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

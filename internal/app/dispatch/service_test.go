package dispatch_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vstudent/schedule-agent/internal/adapters/llm"
	"github.com/vstudent/schedule-agent/internal/adapters/storage/memory"
	"github.com/vstudent/schedule-agent/internal/app/conversation"
	"github.com/vstudent/schedule-agent/internal/app/dispatch"
	"github.com/vstudent/schedule-agent/internal/app/schedule"
	"github.com/vstudent/schedule-agent/internal/app/tools"
	"github.com/vstudent/schedule-agent/internal/config"
	"github.com/vstudent/schedule-agent/internal/domain"
)

func newTestDispatcher(t *testing.T, model domain.ModelClient) (*dispatch.Service, *conversation.Service) {
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

	instruction := func(context.Context) (string, error) { return "test instruction", nil }
	return dispatch.NewService(model, conversationSvc, catalog, instruction, 4, 10), conversationSvc
}

func TestTextReplyCompletesConversation(t *testing.T) {
	model := llm.NewScriptedModel(&domain.ModelReply{Text: "You have nothing due tomorrow."})
	svc, convs := newTestDispatcher(t, model)

	result, err := svc.HandleCommand(context.Background(), "anything due tomorrow?")
	if err != nil {
		t.Fatalf("HandleCommand: %v", err)
	}
	if result.Text != "You have nothing due tomorrow." {
		t.Fatalf("unexpected text: %q", result.Text)
	}

	conv, err := convs.Get(context.Background(), result.ConversationID)
	if err != nil || conv == nil {
		t.Fatalf("conversation not stored: %v", err)
	}
	if !conv.Completed {
		t.Fatal("conversation should be completed")
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("expected user+model messages, got %d", len(conv.Messages))
	}
	if conv.Messages[0].Role != domain.RoleUser || conv.Messages[1].Role != domain.RoleModel {
		t.Fatalf("unexpected roles: %v %v", conv.Messages[0].Role, conv.Messages[1].Role)
	}
}

func TestFunctionCallThenText(t *testing.T) {
	model := llm.NewScriptedModel(
		&domain.ModelReply{FunctionCall: &domain.FunctionCall{Name: "getTime"}},
		&domain.ModelReply{Text: "It is late."},
	)
	svc, convs := newTestDispatcher(t, model)

	result, err := svc.HandleCommand(context.Background(), "what time is it?")
	if err != nil {
		t.Fatalf("HandleCommand: %v", err)
	}
	if result.Text != "It is late." {
		t.Fatalf("unexpected text: %q", result.Text)
	}

	conv, _ := convs.Get(context.Background(), result.ConversationID)
	// user, functionCall, functionResponse, model text
	if len(conv.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(conv.Messages))
	}
	fr := conv.Messages[2].Parts[0].FunctionResponse
	if fr == nil || fr.Name != "getTime" {
		t.Fatalf("expected a getTime function response, got %+v", conv.Messages[2])
	}
	if fr.Response.Output == "" || fr.Response.Error != "" {
		t.Fatalf("expected a successful result, got %+v", fr.Response)
	}

	// The second model round trip must see the function response.
	if len(model.Requests) != 2 {
		t.Fatalf("expected 2 model calls, got %d", len(model.Requests))
	}
	second := model.Requests[1].History
	if second[len(second)-1].Parts[0].FunctionResponse == nil {
		t.Fatal("function response missing from the second request history")
	}
}

func TestUnknownFunctionFedBackAsError(t *testing.T) {
	model := llm.NewScriptedModel(
		&domain.ModelReply{FunctionCall: &domain.FunctionCall{Name: "notARealFunction"}},
		&domain.ModelReply{Text: "Sorry, I could not do that."},
	)
	svc, convs := newTestDispatcher(t, model)

	result, err := svc.HandleCommand(context.Background(), "do the impossible")
	if err != nil {
		t.Fatalf("HandleCommand: %v", err)
	}
	if result.Text == "" {
		t.Fatal("expected a final text answer")
	}

	conv, _ := convs.Get(context.Background(), result.ConversationID)
	fr := conv.Messages[2].Parts[0].FunctionResponse
	if fr == nil || fr.Response.Error == "" {
		t.Fatalf("expected an error result, got %+v", conv.Messages[2])
	}
	if !strings.Contains(fr.Response.Error, "notARealFunction") {
		t.Fatalf("error should name the function: %q", fr.Response.Error)
	}
}

func TestIgnorePromptCompletesSilently(t *testing.T) {
	model := llm.NewScriptedModel(
		&domain.ModelReply{FunctionCall: &domain.FunctionCall{Name: "ignorePrompt"}},
	)
	svc, convs := newTestDispatcher(t, model)

	result, err := svc.HandleCommand(context.Background(), "how about that weather")
	if err != nil {
		t.Fatalf("HandleCommand: %v", err)
	}
	if result.FunctionResponse == nil || result.FunctionResponse.Name != "ignorePrompt" {
		t.Fatalf("expected an ignorePrompt response, got %+v", result)
	}
	if result.FunctionResponse.Response.Output != "" {
		t.Fatalf("ignorePrompt output should be empty, got %q", result.FunctionResponse.Response.Output)
	}

	conv, _ := convs.Get(context.Background(), result.ConversationID)
	if !conv.Completed {
		t.Fatal("ignored conversation should be completed")
	}
}

func TestAskUserSuspendsAndResumes(t *testing.T) {
	model := llm.NewScriptedModel(
		&domain.ModelReply{FunctionCall: &domain.FunctionCall{
			Name: "askUser",
			Args: map[string]any{"question": "Which course?"},
		}},
		&domain.ModelReply{Text: "Scheduled."},
	)
	svc, convs := newTestDispatcher(t, model)

	first, err := svc.HandleCommand(context.Background(), "add a quiz next week")
	if err != nil {
		t.Fatalf("first HandleCommand: %v", err)
	}
	if first.FunctionResponse == nil || first.FunctionResponse.Response.Output != "Which course?" {
		t.Fatalf("expected the question back, got %+v", first)
	}

	conv, _ := convs.Get(context.Background(), first.ConversationID)
	if conv.Completed {
		t.Fatal("conversation should stay open after askUser")
	}

	second, err := svc.HandleCommand(context.Background(), "algorithms")
	if err != nil {
		t.Fatalf("second HandleCommand: %v", err)
	}
	if second.ConversationID != first.ConversationID {
		t.Fatalf("expected the open conversation to resume, got %s and %s", first.ConversationID, second.ConversationID)
	}
	if second.Text != "Scheduled." {
		t.Fatalf("unexpected text: %q", second.Text)
	}

	conv, _ = convs.Get(context.Background(), second.ConversationID)
	if !conv.Completed {
		t.Fatal("resumed conversation should be completed")
	}
}

func TestAskUserWithoutQuestionFallsBack(t *testing.T) {
	model := llm.NewScriptedModel(
		&domain.ModelReply{FunctionCall: &domain.FunctionCall{Name: "askUser"}},
	)
	svc, _ := newTestDispatcher(t, model)

	result, err := svc.HandleCommand(context.Background(), "add something")
	if err != nil {
		t.Fatalf("HandleCommand: %v", err)
	}
	if result.FunctionResponse.Response.Output != "Can you provide relevant information?" {
		t.Fatalf("unexpected fallback question: %q", result.FunctionResponse.Response.Output)
	}
}

func TestHopLimitTerminatesLoop(t *testing.T) {
	// The scripted model repeats its last reply, so the loop would never
	// terminate on its own.
	model := llm.NewScriptedModel(
		&domain.ModelReply{FunctionCall: &domain.FunctionCall{Name: "getTime"}},
	)
	svc, convs := newTestDispatcher(t, model)

	_, err := svc.HandleCommand(context.Background(), "loop forever")
	if err == nil {
		t.Fatal("expected the hop limit error")
	}
	if !errors.Is(err, domain.ErrDispatch) {
		t.Fatalf("expected a dispatch error, got %v", err)
	}
	if len(model.Requests) != 4 {
		t.Fatalf("expected exactly 4 model calls, got %d", len(model.Requests))
	}

	open, _ := convs.Incomplete(context.Background())
	if open != nil {
		t.Fatal("conversation should be closed after the hop limit")
	}
}

func TestEmptyQueryRejected(t *testing.T) {
	svc, _ := newTestDispatcher(t, llm.NewScriptedModel())
	if _, err := svc.HandleCommand(context.Background(), ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

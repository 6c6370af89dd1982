// Package dispatch runs the function-dispatch loop between the user, the
// generative model and the operation catalog. One HandleCommand call is one
// user turn: the loop feeds the model, executes the functions it asks for,
// feeds results back, and stops on a text answer, an interception, or the
// hop limit.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/vstudent/schedule-agent/internal/app/conversation"
	"github.com/vstudent/schedule-agent/internal/app/tools"
	"github.com/vstudent/schedule-agent/internal/domain"
	"github.com/vstudent/schedule-agent/internal/observability"
)

// askUserFallback is returned when the model calls askUser without a question.
const askUserFallback = "Can you provide relevant information?"

// InstructionFunc renders the system instruction for the current request.
type InstructionFunc func(ctx context.Context) (string, error)

type Service struct {
	model         domain.ModelClient
	conversations *conversation.Service
	catalog       *tools.Catalog
	instruction   InstructionFunc
	maxHops       int
	memoryWindow  int
	newID         func() string
}

func NewService(
	model domain.ModelClient,
	conversations *conversation.Service,
	catalog *tools.Catalog,
	instruction InstructionFunc,
	maxHops, memoryWindow int,
) *Service {
	return &Service{
		model:         model,
		conversations: conversations,
		catalog:       catalog,
		instruction:   instruction,
		maxHops:       maxHops,
		memoryWindow:  memoryWindow,
		newID:         uuid.NewString,
	}
}

// Result is the terminal outcome of one user turn. Exactly one of Text or
// FunctionResponse is set.
type Result struct {
	ConversationID   string                   `json:"conversationId"`
	Text             string                   `json:"text,omitempty"`
	FunctionResponse *domain.FunctionResponse `json:"functionResponse,omitempty"`
}

// HandleCommand runs one user turn. An open conversation is resumed with the
// new message appended; otherwise a fresh conversation starts, seeded with
// the last messages of recent completed conversations. The conversation is
// persisted before and after every model round trip, so a crash mid-loop
// leaves a resumable record.
func (s *Service) HandleCommand(ctx context.Context, query string) (*Result, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidArgument)
	}

	open, err := s.conversations.Incomplete(ctx)
	if err != nil {
		return nil, err
	}

	var conversationID string
	var history []domain.Message
	if open != nil {
		conversationID = open.ConversationID
		history = append(history, open.Messages...)
	} else {
		conversationID = s.newID()
		recent, err := s.conversations.RecentMessages(ctx, s.memoryWindow)
		if err != nil {
			// Memory is best effort; a fresh conversation still works.
			observability.LoggerFromContext(ctx).Warn("recent messages unavailable", "error", err)
		} else {
			history = append(history, recent...)
		}
	}

	ctx = observability.WithConversationID(ctx, conversationID)
	logger := observability.LoggerFromContext(ctx)

	history = append(history, domain.TextMessage(domain.RoleUser, query))
	if err := s.conversations.Save(ctx, conversationID, history, false); err != nil {
		return nil, err
	}

	instruction, err := s.instruction(ctx)
	if err != nil {
		return nil, err
	}
	declarations := s.catalog.Declarations()

	for hop := 0; hop < s.maxHops; hop++ {
		reply, err := s.model.Generate(ctx, domain.ModelRequest{
			Instruction: instruction,
			History:     history,
			Functions:   declarations,
		})
		if err != nil {
			s.saveFinal(ctx, conversationID, history)
			return nil, fmt.Errorf("model generate: %w: %w", domain.ErrUpstream, err)
		}

		if reply.FunctionCall == nil {
			if reply.Text == "" {
				logger.Warn("model returned neither text nor function call")
				s.saveFinal(ctx, conversationID, history)
				return &Result{
					ConversationID: conversationID,
					FunctionResponse: &domain.FunctionResponse{
						Response: domain.FunctionResult{Error: "no response or function call received"},
					},
				}, nil
			}
			history = append(history, domain.TextMessage(domain.RoleModel, reply.Text))
			if err := s.conversations.Save(ctx, conversationID, history, true); err != nil {
				return nil, err
			}
			return &Result{ConversationID: conversationID, Text: reply.Text}, nil
		}

		call := reply.FunctionCall
		history = append(history, domain.FunctionCallMessage(call.Name, call.Args))
		logger.Info("function call", "function", call.Name, "hop", hop)

		switch call.Name {
		case tools.ReservedIgnorePrompt:
			if err := s.conversations.Save(ctx, conversationID, history, true); err != nil {
				return nil, err
			}
			return &Result{
				ConversationID: conversationID,
				FunctionResponse: &domain.FunctionResponse{
					Name:     call.Name,
					Response: domain.FunctionResult{Output: ""},
				},
			}, nil
		case tools.ReservedAskUser:
			if err := s.conversations.Save(ctx, conversationID, history, false); err != nil {
				return nil, err
			}
			question := tools.OptString(call.Args, "question", askUserFallback)
			return &Result{
				ConversationID: conversationID,
				FunctionResponse: &domain.FunctionResponse{
					Name:     call.Name,
					Response: domain.FunctionResult{Output: question},
				},
			}, nil
		}

		if err := s.conversations.Save(ctx, conversationID, history, false); err != nil {
			return nil, err
		}

		result := s.execute(ctx, call)
		history = append(history, domain.FunctionResponseMessage(call.Name, result))
		if err := s.conversations.Save(ctx, conversationID, history, false); err != nil {
			return nil, err
		}
	}

	logger.Warn("function hop limit reached", "limit", s.maxHops)
	s.saveFinal(ctx, conversationID, history)
	return nil, fmt.Errorf("%w: function hop limit of %d exceeded", domain.ErrDispatch, s.maxHops)
}

// execute runs one cataloged function. Failures become an error result fed
// back to the model rather than an error up the stack, so the model can
// correct itself on the next hop.
func (s *Service) execute(ctx context.Context, call *domain.FunctionCall) domain.FunctionResult {
	logger := observability.LoggerFromContext(ctx)

	entry, ok := s.catalog.Lookup(call.Name)
	if !ok {
		logger.Warn("unknown function requested", "function", call.Name)
		return domain.FunctionResult{Error: fmt.Sprintf("unknown function %q", call.Name)}
	}

	out, err := entry.Run(ctx, call.Args)
	if err != nil {
		logger.Warn("function failed", "function", call.Name, "error", err)
		return domain.FunctionResult{Error: err.Error()}
	}

	switch v := out.(type) {
	case nil:
		return domain.FunctionResult{Output: "ok"}
	case string:
		return domain.FunctionResult{Output: v}
	default:
		b, err := json.Marshal(v)
		if err != nil {
			logger.Error("function result not serializable", "function", call.Name, "error", err)
			return domain.FunctionResult{Error: "result could not be serialized"}
		}
		return domain.FunctionResult{Output: string(b)}
	}
}

// saveFinal closes the conversation on a terminal failure path. The save
// error is only logged: the caller already has a more useful error to return.
func (s *Service) saveFinal(ctx context.Context, conversationID string, history []domain.Message) {
	if err := s.conversations.Save(ctx, conversationID, history, true); err != nil {
		observability.LoggerFromContext(ctx).Error("closing conversation failed", "error", err)
	}
}

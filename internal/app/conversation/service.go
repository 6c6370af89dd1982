// Package conversation manages stored conversations: the dispatch loop's
// short-term memory, the admin question channel, and the interaction log.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vstudent/schedule-agent/internal/domain"
)

type Service struct {
	store domain.ConversationStore
	now   func() time.Time
	newID func() string
}

func NewService(store domain.ConversationStore) *Service {
	return &Service{store: store, now: time.Now, newID: uuid.NewString}
}

// Save upserts the conversation's messages and completed flag.
func (s *Service) Save(ctx context.Context, conversationID string, messages []domain.Message, completed bool) error {
	return s.store.SaveConversation(ctx, conversationID, messages, completed)
}

// Get returns the conversation, or nil when the id is unknown.
func (s *Service) Get(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	return s.store.GetConversation(ctx, conversationID)
}

// Incomplete returns the open conversation to resume, or nil.
func (s *Service) Incomplete(ctx context.Context) (*domain.Conversation, error) {
	return s.store.IncompleteConversation(ctx)
}

func (s *Service) List(ctx context.Context, completed bool, limit int) ([]*domain.Conversation, error) {
	return s.store.ListConversations(ctx, completed, limit)
}

// RecentMessages returns the final message of each of the newest completed
// conversations, oldest first, to seed a new conversation with short-term
// memory.
func (s *Service) RecentMessages(ctx context.Context, limit int) ([]domain.Message, error) {
	convs, err := s.store.ListConversations(ctx, true, limit)
	if err != nil {
		return nil, err
	}
	messages := make([]domain.Message, 0, len(convs))
	// ListConversations is newest first; memory reads oldest first.
	for i := len(convs) - 1; i >= 0; i-- {
		if last := convs[i].LastMessage(); last != nil {
			messages = append(messages, *last)
		}
	}
	return messages, nil
}

// Interactions returns completed conversations for review, either the
// assistant owner's or everyone else's.
func (s *Service) Interactions(ctx context.Context, fromOthers bool, limit int) ([]*domain.Conversation, error) {
	return s.store.ListInteractions(ctx, fromOthers, limit)
}

// IgnoreOpen marks every open conversation ignored so it is never resumed,
// and reports how many were affected.
func (s *Service) IgnoreOpen(ctx context.Context) (int64, error) {
	return s.store.IgnoreOpenConversations(ctx)
}

// AskAdmin records a question for the assistant's owner as a new open
// conversation. Only one conversation may be open at a time, so an existing
// open conversation rejects the question.
func (s *Service) AskAdmin(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: question is required", domain.ErrInvalidArgument)
	}
	open, err := s.Incomplete(ctx)
	if err != nil {
		return "", err
	}
	if open != nil {
		return "", fmt.Errorf("%w: an open conversation already exists", domain.ErrInvalidArgument)
	}
	now := s.now()
	conv := &domain.Conversation{
		ConversationID: s.newID(),
		UserID:         domain.SystemUserID,
		StudentID:      domain.SystemStudentID,
		Messages:       []domain.Message{domain.TextMessage(domain.RoleUser, question)},
		Completed:      false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.InsertConversation(ctx, conv); err != nil {
		return "", err
	}
	return conv.ConversationID, nil
}

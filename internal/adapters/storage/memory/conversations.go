package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vstudent/schedule-agent/internal/domain"
)

type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*domain.Conversation // keyed by ConversationID
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{conversations: make(map[string]*domain.Conversation)}
}

func (s *ConversationStore) SaveConversation(ctx context.Context, conversationID string, messages []domain.Message, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	conv, ok := s.conversations[conversationID]
	if !ok {
		conv = &domain.Conversation{
			ID:             newID(),
			ConversationID: conversationID,
			UserID:         domain.SystemUserID,
			StudentID:      domain.SystemStudentID,
			CreatedAt:      now,
		}
		s.conversations[conversationID] = conv
	}

	conv.Messages = append([]domain.Message(nil), messages...)
	conv.Completed = completed
	conv.UpdatedAt = now
	return nil
}

func (s *ConversationStore) GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, nil
	}
	cp := *conv
	return &cp, nil
}

func (s *ConversationStore) IncompleteConversation(ctx context.Context) (*domain.Conversation, error) {
	convs, err := s.ListConversations(ctx, false, 1)
	if err != nil || len(convs) == 0 {
		return nil, err
	}
	return convs[0], nil
}

func (s *ConversationStore) ListConversations(ctx context.Context, completed bool, limit int) ([]*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Conversation
	for _, conv := range s.conversations {
		if conv.UserID == domain.SystemUserID && conv.Completed == completed && conv.Status != domain.StatusIgnored {
			cp := *conv
			out = append(out, &cp)
		}
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *ConversationStore) ListInteractions(ctx context.Context, fromOthers bool, limit int) ([]*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Conversation
	for _, conv := range s.conversations {
		if !conv.Completed {
			continue
		}
		mine := conv.UserID == domain.SystemUserID
		if fromOthers == mine {
			continue
		}
		cp := *conv
		out = append(out, &cp)
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *ConversationStore) IgnoreOpenConversations(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	now := time.Now().UTC()
	for _, conv := range s.conversations {
		if conv.UserID == domain.SystemUserID && !conv.Completed && conv.Status != domain.StatusIgnored {
			conv.Status = domain.StatusIgnored
			conv.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *ConversationStore) InsertConversation(ctx context.Context, conv *domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv.ID = newID()
	cp := *conv
	s.conversations[conv.ConversationID] = &cp
	return nil
}

func sortNewestFirst(convs []*domain.Conversation) {
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
}

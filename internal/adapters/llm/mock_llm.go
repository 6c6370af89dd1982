package llm

import (
	"context"
	"sync"

	"github.com/vstudent/schedule-agent/internal/domain"
)

// ScriptedModel replays a fixed sequence of replies and records every
// request it saw. Once the script is exhausted it keeps returning the last
// reply, which lets tests simulate a model that never terminates.
type ScriptedModel struct {
	mu       sync.Mutex
	replies  []*domain.ModelReply
	next     int
	Requests []domain.ModelRequest
}

func NewScriptedModel(replies ...*domain.ModelReply) *ScriptedModel {
	return &ScriptedModel{replies: replies}
}

func (m *ScriptedModel) Generate(ctx context.Context, req domain.ModelRequest) (*domain.ModelReply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)

	if len(m.replies) == 0 {
		return &domain.ModelReply{Text: "I noted that."}, nil
	}
	reply := m.replies[m.next]
	if m.next < len(m.replies)-1 {
		m.next++
	}
	return reply, nil
}

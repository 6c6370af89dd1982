package domain

import "time"

// FunctionCall is the model asking for one cataloged operation by name.
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// FunctionResult carries the outcome of executing a function call. Exactly
// one of Output or Error is meaningful; the model reads whichever is set.
type FunctionResult struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// FunctionResponse pairs a result with the function it answers.
type FunctionResponse struct {
	Name     string         `json:"name"`
	Response FunctionResult `json:"response"`
}

// Part is exactly one of plain text, a function call or a function response.
type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// Message is one turn in a conversation. Messages are append-only: once
// written to a conversation they are never mutated.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

func TextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []Part{{Text: text}}}
}

func FunctionCallMessage(name string, args map[string]any) Message {
	if args == nil {
		args = map[string]any{}
	}
	return Message{Role: RoleModel, Parts: []Part{{FunctionCall: &FunctionCall{Name: name, Args: args}}}}
}

func FunctionResponseMessage(name string, result FunctionResult) Message {
	return Message{Role: RoleFunction, Parts: []Part{{FunctionResponse: &FunctionResponse{Name: name, Response: result}}}}
}

// Text returns the concatenated text parts of the message.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		out += p.Text
	}
	return out
}

const StatusIgnored = "ignored"

// Conversation is a persisted exchange, stable across HTTP calls via
// ConversationID. At most one conversation per user should be incomplete and
// non-ignored at a time; that is enforced by query discipline only, so two
// concurrent requests can still open two conversations (documented race).
type Conversation struct {
	ID             string    `json:"_id,omitempty"`
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	StudentID      string    `json:"studentId,omitempty"`
	Messages       []Message `json:"messages"`
	Summary        string    `json:"summary"`
	Completed      bool      `json:"completed"`
	Status         string    `json:"status,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// LastMessage returns the final message of the conversation, or nil.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

package conversation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vstudent/schedule-agent/internal/adapters/storage/memory"
	"github.com/vstudent/schedule-agent/internal/app/conversation"
	"github.com/vstudent/schedule-agent/internal/domain"
)

func insertCompleted(t *testing.T, store *memory.ConversationStore, id, lastText string, updatedAt time.Time) {
	t.Helper()
	err := store.InsertConversation(context.Background(), &domain.Conversation{
		ConversationID: id,
		UserID:         domain.SystemUserID,
		Messages: []domain.Message{
			domain.TextMessage(domain.RoleUser, "question for "+id),
			domain.TextMessage(domain.RoleModel, lastText),
		},
		Completed: true,
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	})
	if err != nil {
		t.Fatalf("inserting conversation: %v", err)
	}
}

func TestRecentMessagesOldestFirst(t *testing.T) {
	store := memory.NewConversationStore()
	svc := conversation.NewService(store)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	insertCompleted(t, store, "a", "first answer", base)
	insertCompleted(t, store, "b", "second answer", base.Add(time.Hour))
	insertCompleted(t, store, "c", "third answer", base.Add(2*time.Hour))

	msgs, err := svc.RecentMessages(context.Background(), 2)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	// Two newest conversations, replayed oldest first.
	if msgs[0].Text() != "second answer" || msgs[1].Text() != "third answer" {
		t.Fatalf("unexpected order: %q, %q", msgs[0].Text(), msgs[1].Text())
	}
}

func TestAskAdminRejectsSecondOpenConversation(t *testing.T) {
	svc := conversation.NewService(memory.NewConversationStore())
	ctx := context.Background()

	id, err := svc.AskAdmin(ctx, "can I get an extension?")
	if err != nil {
		t.Fatalf("AskAdmin: %v", err)
	}
	if id == "" {
		t.Fatal("expected a conversation id")
	}

	open, err := svc.Incomplete(ctx)
	if err != nil || open == nil {
		t.Fatalf("question should be an open conversation: %v", err)
	}
	if open.ConversationID != id {
		t.Fatalf("open conversation mismatch: %s vs %s", open.ConversationID, id)
	}

	if _, err := svc.AskAdmin(ctx, "another question"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("second question should be rejected, got %v", err)
	}
}

func TestAskAdminRequiresQuestion(t *testing.T) {
	svc := conversation.NewService(memory.NewConversationStore())
	if _, err := svc.AskAdmin(context.Background(), "  "); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestIgnoreOpenUnblocksAskAdmin(t *testing.T) {
	svc := conversation.NewService(memory.NewConversationStore())
	ctx := context.Background()

	if _, err := svc.AskAdmin(ctx, "first"); err != nil {
		t.Fatalf("AskAdmin: %v", err)
	}

	n, err := svc.IgnoreOpen(ctx)
	if err != nil {
		t.Fatalf("IgnoreOpen: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 ignored conversation, got %d", n)
	}

	open, err := svc.Incomplete(ctx)
	if err != nil {
		t.Fatalf("Incomplete: %v", err)
	}
	if open != nil {
		t.Fatalf("ignored conversation must not resume: %+v", open)
	}

	if _, err := svc.AskAdmin(ctx, "second"); err != nil {
		t.Fatalf("AskAdmin after ignore: %v", err)
	}
}

func TestInteractionsSplitByOwner(t *testing.T) {
	store := memory.NewConversationStore()
	svc := conversation.NewService(store)
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	insertCompleted(t, store, "mine", "my answer", now)
	if err := store.InsertConversation(ctx, &domain.Conversation{
		ConversationID: "theirs",
		UserID:         "6651234c1f1f1f1f1f1f1f11",
		Messages:       []domain.Message{domain.TextMessage(domain.RoleUser, "hello")},
		Completed:      true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		t.Fatalf("inserting conversation: %v", err)
	}

	mine, err := svc.Interactions(ctx, false, 5)
	if err != nil {
		t.Fatalf("Interactions: %v", err)
	}
	if len(mine) != 1 || mine[0].ConversationID != "mine" {
		t.Fatalf("unexpected own interactions: %+v", mine)
	}

	others, err := svc.Interactions(ctx, true, 5)
	if err != nil {
		t.Fatalf("Interactions: %v", err)
	}
	if len(others) != 1 || others[0].ConversationID != "theirs" {
		t.Fatalf("unexpected foreign interactions: %+v", others)
	}
}

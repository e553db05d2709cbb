package skills

import (
	"context"
	"log/slog"

	"skillchat/internal/models"
)

// ConversationID is the fallback skill identifier.
const ConversationID = "conversation"

// Completer produces a conversational reply from the message history.
// Implemented by services.ChatService.
type Completer interface {
	Complete(ctx context.Context, messages []models.CompletionMessage) (string, error)
}

// ConversationSkill is the fallback: it handles every utterance by asking
// the configured language model for a reply.
type ConversationSkill struct {
	completer Completer
}

// NewConversationSkill creates the fallback conversation skill.
func NewConversationSkill(completer Completer) *ConversationSkill {
	return &ConversationSkill{completer: completer}
}

func (s *ConversationSkill) ID() string   { return ConversationID }
func (s *ConversationSkill) Name() string { return "General Conversation" }

func (s *ConversationSkill) Patterns() []string { return []string{".*"} }

// CanHandle always returns true: this is the catch-all.
func (s *ConversationSkill) CanHandle(_ string, _ Context) bool { return true }

// Execute asks the model for a reply to the conversation so far. Upstream
// failures degrade to an apology so a model outage never becomes a
// user-visible system error.
func (s *ConversationSkill) Execute(ctx context.Context, message string, sctx Context) (*Result, error) {
	history := make([]models.CompletionMessage, 0, len(sctx.Messages)+1)
	history = append(history, sctx.Messages...)
	history = append(history, models.CompletionMessage{Role: "user", Content: message})

	content, err := s.completer.Complete(ctx, history)
	if err != nil {
		slog.Error("conversation completion failed", "error", err)
		return &Result{
			Content: "I'm sorry, I had trouble processing that. Please try again.",
			Role:    RoleAssistant,
		}, nil
	}

	return &Result{
		Content: content,
		Role:    RoleAssistant,
	}, nil
}

package skills

import (
	"context"
	"errors"

	"skillchat/internal/models"
)

// RoleAssistant is the role every skill result carries.
const RoleAssistant = "assistant"

// ErrSkillNotFound is returned by the registry for unknown skill IDs.
var ErrSkillNotFound = errors.New("skill not found")

// Context is the read-only input handed to CanHandle and Execute.
// Messages holds the prior turns of the conversation, oldest first.
type Context struct {
	UserID   string
	Messages []models.CompletionMessage
}

// Result is the normalized output of a skill execution.
type Result struct {
	Content  string         `json:"content"`
	Role     string         `json:"role"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Skill is a named handler for one category of user intent.
//
// CanHandle must be pure and side-effect-free; it is called for every
// registered skill on every dispatch. Execute may call external services.
type Skill interface {
	ID() string
	Name() string

	// Patterns returns the trigger expressions as human-readable
	// documentation of the skill's intent.
	Patterns() []string

	CanHandle(message string, sctx Context) bool
	Execute(ctx context.Context, message string, sctx Context) (*Result, error)
}

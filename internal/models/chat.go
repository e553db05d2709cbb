package models

import "time"

// ChatMessage represents a single message in a user's transcript
type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Role      string    `json:"role"` // "user", "assistant", "system"
	Content   string    `json:"content"`
	SkillID   string    `json:"skillId,omitempty"` // skill that produced an assistant message
	CreatedAt time.Time `json:"createdAt"`
}

// ChatRequest is the request body for POST /api/chat
type ChatRequest struct {
	Message string `json:"message"`
}

// CompletionMessage is one entry of a completions request payload
type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the request body for the chat fallback endpoint
type CompletionRequest struct {
	Messages []CompletionMessage `json:"messages"`
}

// CompletionResponse is the response of the chat fallback endpoint
type CompletionResponse struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

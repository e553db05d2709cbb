package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"skillchat/internal/middleware"
	"skillchat/internal/models"
	"skillchat/internal/services"
	"skillchat/internal/skills"
)

// ChatHandler routes chat requests through the skill dispatcher and keeps
// the per-user transcript.
type ChatHandler struct {
	dispatcher  *skills.Dispatcher
	chatService *services.ChatService
	transcripts *services.TranscriptService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(dispatcher *skills.Dispatcher, chatService *services.ChatService, transcripts *services.TranscriptService) *ChatHandler {
	return &ChatHandler{
		dispatcher:  dispatcher,
		chatService: chatService,
		transcripts: transcripts,
	}
}

// HandleChat dispatches one utterance to exactly one skill and appends both
// sides of the exchange to the transcript.
// POST /api/chat
func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil || req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "message is required",
		})
	}

	history, err := h.transcripts.ContextMessages(c.Context(), userID)
	if err != nil {
		log.Printf("❌ [CHAT] Failed to load history for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load conversation history",
		})
	}

	result, err := h.dispatcher.Dispatch(c.Context(), req.Message, skills.Context{
		UserID:   userID,
		Messages: history,
	})
	if err != nil {
		log.Printf("❌ [CHAT] Dispatch failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process message",
		})
	}

	skillID, _ := result.Metadata["skillId"].(string)

	// Transcript persistence is best-effort; a storage hiccup must not turn
	// a successful skill response into a user-facing error.
	if err := h.transcripts.Append(c.Context(), &models.ChatMessage{
		UserID:  userID,
		Role:    "user",
		Content: req.Message,
	}); err != nil {
		log.Printf("⚠️ [CHAT] Failed to persist user message: %v", err)
	}
	if err := h.transcripts.Append(c.Context(), &models.ChatMessage{
		UserID:  userID,
		Role:    result.Role,
		Content: result.Content,
		SkillID: skillID,
	}); err != nil {
		log.Printf("⚠️ [CHAT] Failed to persist assistant message: %v", err)
	}

	return c.JSON(fiber.Map{
		"content":  result.Content,
		"role":     result.Role,
		"metadata": result.Metadata,
	})
}

// HandleCompletions forwards a raw message history to the completion
// provider, bypassing skill dispatch.
// POST /api/chat/completions
func (h *ChatHandler) HandleCompletions(c *fiber.Ctx) error {
	var req models.CompletionRequest
	if err := c.BodyParser(&req); err != nil || len(req.Messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "messages are required",
		})
	}

	content, err := h.chatService.Complete(c.Context(), req.Messages)
	if err != nil {
		log.Printf("❌ [CHAT] Completion failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to generate response",
		})
	}

	return c.JSON(models.CompletionResponse{
		Content: content,
		Role:    skills.RoleAssistant,
	})
}

// HandleHistory returns the caller's recent transcript.
// GET /api/chat/history
func (h *ChatHandler) HandleHistory(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	limit := c.QueryInt("limit", services.DefaultHistoryLimit)

	messages, err := h.transcripts.History(c.Context(), userID, limit)
	if err != nil {
		log.Printf("❌ [CHAT] Failed to load history for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load conversation history",
		})
	}

	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return c.JSON(fiber.Map{
		"messages": messages,
		"count":    len(messages),
	})
}

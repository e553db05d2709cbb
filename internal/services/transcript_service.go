package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"

	"skillchat/internal/database"
	"skillchat/internal/models"
)

// DefaultHistoryLimit is how many recent messages are handed to skills as
// conversation context.
const DefaultHistoryLimit = 20

// TranscriptService is the append-only per-user chat transcript.
type TranscriptService struct {
	db *database.DB

	// historyCache keeps recently read transcripts out of the hot path;
	// invalidated on every append for the affected user.
	historyCache *cache.Cache
}

// NewTranscriptService creates a transcript store.
func NewTranscriptService(db *database.DB) *TranscriptService {
	return &TranscriptService{
		db:           db,
		historyCache: cache.New(30*time.Minute, 10*time.Minute),
	}
}

// cachedHistory is one cached read window. complete means the window holds
// the user's entire transcript, so it can serve any requested limit.
type cachedHistory struct {
	messages []models.ChatMessage
	complete bool
}

// Append stores one message at the end of the user's transcript.
func (s *TranscriptService) Append(ctx context.Context, msg *models.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, user_id, role, content, skill_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.UserID, msg.Role, msg.Content, msg.SkillID, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	s.historyCache.Delete(msg.UserID)
	return nil
}

// History returns the user's most recent messages in chronological order.
func (s *TranscriptService) History(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	// A cached window can only serve a request it fully covers: either it
	// holds at least limit messages, or it holds the whole transcript.
	if cached, ok := s.historyCache.Get(userID); ok {
		window := cached.(cachedHistory)
		if len(window.messages) >= limit {
			return window.messages[len(window.messages)-limit:], nil
		}
		if window.complete {
			return window.messages, nil
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, role, content, skill_id, created_at
		FROM chat_messages
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	defer rows.Close()

	var reversed []models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.Role, &msg.Content,
			&msg.SkillID, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		reversed = append(reversed, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}

	messages := make([]models.ChatMessage, len(reversed))
	for i, msg := range reversed {
		messages[len(reversed)-1-i] = msg
	}

	s.historyCache.Set(userID, cachedHistory{
		messages: messages,
		complete: len(messages) < limit,
	}, cache.DefaultExpiration)
	return messages, nil
}

// ContextMessages returns the history shaped as completion messages for
// skill context.
func (s *TranscriptService) ContextMessages(ctx context.Context, userID string) ([]models.CompletionMessage, error) {
	history, err := s.History(ctx, userID, DefaultHistoryLimit)
	if err != nil {
		return nil, err
	}

	messages := make([]models.CompletionMessage, len(history))
	for i, msg := range history {
		messages[i] = models.CompletionMessage{Role: msg.Role, Content: msg.Content}
	}
	return messages, nil
}

// DeleteOlderThan removes messages older than the cutoff and reports how
// many were deleted. Used by the retention job.
func (s *TranscriptService) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM chat_messages WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old messages: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete old messages: %w", err)
	}

	if deleted > 0 {
		s.historyCache.Flush()
	}
	return deleted, nil
}

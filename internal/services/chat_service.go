package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"skillchat/internal/config"
	"skillchat/internal/models"
)

const defaultSystemPrompt = "Be precise and concise. Always respond to the most recent user message."

// ChatService produces conversational replies from an OpenAI-compatible
// chat/completions endpoint. It backs the fallback skill and the raw
// completions endpoint.
type ChatService struct {
	apiKey  string
	baseURL string
	model   string

	httpClient *http.Client
	metrics    *Metrics
}

// NewChatService creates a chat service. metrics may be nil.
func NewChatService(cfg *config.Config, metrics *Metrics) *ChatService {
	return &ChatService{
		apiKey:     cfg.OpenAIAPIKey,
		baseURL:    cfg.OpenAIBaseURL,
		model:      cfg.OpenAIModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		metrics:    metrics,
	}
}

type completionPayload struct {
	Model       string                     `json:"model"`
	Messages    []models.CompletionMessage `json:"messages"`
	Temperature float64                    `json:"temperature"`
}

type completionResult struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the message history to the model and returns the reply.
// A system prompt is prepended unless the history already starts with one.
func (s *ChatService) Complete(ctx context.Context, messages []models.CompletionMessage) (string, error) {
	if s.apiKey == "" {
		return "", errors.New("OPENAI_API_KEY is not set")
	}
	if len(messages) == 0 {
		return "", errors.New("messages are required")
	}

	payload := completionPayload{
		Model:       s.model,
		Temperature: 0.7,
	}
	if messages[0].Role != "system" {
		payload.Messages = append(payload.Messages, models.CompletionMessage{
			Role:    "system",
			Content: defaultSystemPrompt,
		})
	}
	payload.Messages = append(payload.Messages, messages...)

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var result completionResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if result.Error != nil && result.Error.Message != "" {
			return "", fmt.Errorf("completion provider error: %s", result.Error.Message)
		}
		return "", fmt.Errorf("completion provider error: status %d", resp.StatusCode)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("completion response contained no choices")
	}

	if s.metrics != nil {
		s.metrics.CompletionLatency.Observe(time.Since(start).Seconds())
	}

	return result.Choices[0].Message.Content, nil
}

// SetBaseURL overrides the provider endpoint (tests).
func (s *ChatService) SetBaseURL(baseURL string) { s.baseURL = baseURL }

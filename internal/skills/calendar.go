package skills

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"skillchat/internal/models"
	"skillchat/internal/services"
	"skillchat/internal/slots"
)

// CalendarID is the calendar skill identifier.
const CalendarID = "calendar"

// CalendarManager is the credential lifecycle and event creation surface
// the skill needs. Implemented by services.CalendarService.
type CalendarManager interface {
	IsConnected(ctx context.Context, userID string) (bool, error)
	AuthorizationURL(userID string) string
	ValidAccessToken(ctx context.Context, userID string) (string, error)
	CreateEvent(ctx context.Context, accessToken string, ev slots.EventSlots) (*models.CalendarEvent, error)
}

// CalendarSkill adds events to the user's Google Calendar.
type CalendarSkill struct {
	intentRules []*regexp.Regexp
	timeRules   []*regexp.Regexp
	calendar    CalendarManager
}

// NewCalendarSkill creates the calendar skill. Eligibility requires both an
// intent rule and a time rule to match: intent keywords alone would fire on
// casual mentions of "meeting" with no scheduling intent.
func NewCalendarSkill(intentTriggers, timeTriggers []string, calendar CalendarManager) *CalendarSkill {
	return &CalendarSkill{
		intentRules: compileRules(intentTriggers),
		timeRules:   compileRules(timeTriggers),
		calendar:    calendar,
	}
}

func (s *CalendarSkill) ID() string   { return CalendarID }
func (s *CalendarSkill) Name() string { return "Google Calendar Integration" }

func (s *CalendarSkill) Patterns() []string { return patternStrings(s.intentRules) }

func (s *CalendarSkill) CanHandle(message string, _ Context) bool {
	return anyMatch(s.intentRules, message) && anyMatch(s.timeRules, message)
}

// Execute walks the credential lifecycle: prompt for authorization when no
// credential exists, otherwise create the event with a valid access token,
// refreshing transparently when the stored token has expired.
func (s *CalendarSkill) Execute(ctx context.Context, message string, sctx Context) (*Result, error) {
	connected, err := s.calendar.IsConnected(ctx, sctx.UserID)
	if err != nil {
		return s.failure(err), nil
	}

	if !connected {
		authURL := s.calendar.AuthorizationURL(sctx.UserID)
		return &Result{
			Content: fmt.Sprintf("I'd like to add this event to your calendar, but you need to connect "+
				"to Google Calendar first. [Click here to connect](%s)", authURL),
			Role: RoleAssistant,
			Metadata: map[string]any{
				"skillId":      CalendarID,
				"requiresAuth": true,
				"authUrl":      authURL,
			},
		}, nil
	}

	token, err := s.calendar.ValidAccessToken(ctx, sctx.UserID)
	if err != nil {
		if isAuthShaped(err) {
			return s.reconnectPrompt(sctx.UserID), nil
		}
		return s.failure(err), nil
	}

	event, err := s.calendar.CreateEvent(ctx, token, slots.Extract(message))
	if err != nil {
		// A stale connection is distinguished from "never connected": the
		// user gets a reconnect prompt, not a generic error.
		if isAuthShaped(err) {
			return s.reconnectPrompt(sctx.UserID), nil
		}
		return s.failure(err), nil
	}

	content := fmt.Sprintf("I've added the event %q to your calendar", event.Title)
	if event.Date != "" {
		content += fmt.Sprintf(" on %s", event.Date)
	}
	if event.Time != "" {
		content += fmt.Sprintf(" at %s", event.Time)
	}
	content += fmt.Sprintf(". [View in Google Calendar](%s)", event.HTMLLink)

	return &Result{
		Content: content,
		Role:    RoleAssistant,
		Metadata: map[string]any{
			"skillId": CalendarID,
			"event":   event,
		},
	}, nil
}

func (s *CalendarSkill) reconnectPrompt(userID string) *Result {
	authURL := s.calendar.AuthorizationURL(userID)
	return &Result{
		Content: fmt.Sprintf("I need to reconnect to your Google Calendar. [Click here to reconnect](%s)", authURL),
		Role:    RoleAssistant,
		Metadata: map[string]any{
			"skillId":      CalendarID,
			"requiresAuth": true,
			"authUrl":      authURL,
		},
	}
}

// failure folds an unexpected provider-side error into user-visible content
// with the underlying message kept for diagnostics. The skill deliberately
// does not return an error: re-dispatching a scheduling request to the
// conversational fallback would not help the user.
func (s *CalendarSkill) failure(err error) *Result {
	slog.Error("calendar skill error", "error", err)
	return &Result{
		Content: fmt.Sprintf("I had trouble adding that to your calendar: %v. Please try again with "+
			"more specific details like \"Schedule a meeting with John tomorrow at 3pm.\"", err),
		Role: RoleAssistant,
		Metadata: map[string]any{
			"skillId": CalendarID,
		},
	}
}

func isAuthShaped(err error) bool {
	return errors.Is(err, services.ErrNotConnected) ||
		errors.Is(err, services.ErrTokenExchangeFailed) ||
		errors.Is(err, services.ErrAuthRequired)
}

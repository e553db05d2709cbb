package skills

import (
	"context"
	"strings"
	"testing"

	"skillchat/internal/models"
	"skillchat/internal/services"
	"skillchat/internal/slots"
)

// fakeCalendar is a scriptable CalendarManager.
type fakeCalendar struct {
	connected    bool
	connectedErr error
	tokenErr     error
	createErr    error
	created      *models.CalendarEvent
	createCalls  int
}

func (f *fakeCalendar) IsConnected(_ context.Context, _ string) (bool, error) {
	return f.connected, f.connectedErr
}

func (f *fakeCalendar) AuthorizationURL(userID string) string {
	return "https://accounts.example.com/auth?state=" + userID
}

func (f *fakeCalendar) ValidAccessToken(_ context.Context, _ string) (string, error) {
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return "access-token", nil
}

func (f *fakeCalendar) CreateEvent(_ context.Context, _ string, ev slots.EventSlots) (*models.CalendarEvent, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.created != nil {
		return f.created, nil
	}
	return &models.CalendarEvent{
		ID:       "evt-1",
		Title:    ev.Title,
		Date:     ev.Date,
		Time:     ev.Time,
		HTMLLink: "https://calendar.example.com/evt-1",
	}, nil
}

func newCalendarSkillForTest(calendar CalendarManager) *CalendarSkill {
	rules := DefaultRules()
	return NewCalendarSkill(rules.CalendarIntent, rules.CalendarTime, calendar)
}

func TestCalendarCanHandleRequiresIntentAndTime(t *testing.T) {
	skill := newCalendarSkillForTest(&fakeCalendar{})

	tests := []struct {
		message string
		want    bool
	}{
		{"Schedule a meeting with John tomorrow at 3pm", true},
		{"add an appointment for Friday morning", true},
		{"I had a meeting yesterday", false}, // intent without time
		{"see you at 3pm", false},           // time without intent
		{"hello there", false},
	}

	for _, tt := range tests {
		if got := skill.CanHandle(tt.message, Context{}); got != tt.want {
			t.Errorf("CanHandle(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}

func TestCalendarNotConnectedPromptsForAuth(t *testing.T) {
	calendar := &fakeCalendar{connected: false}
	skill := newCalendarSkillForTest(calendar)

	result, err := skill.Execute(context.Background(),
		"Schedule a meeting with John tomorrow at 3pm", Context{UserID: "u1"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.Metadata["requiresAuth"] != true {
		t.Error("expected requiresAuth metadata")
	}
	authURL, _ := result.Metadata["authUrl"].(string)
	if !strings.Contains(authURL, "state=u1") {
		t.Errorf("expected auth URL for user, got %q", authURL)
	}
	if !strings.Contains(result.Content, authURL) {
		t.Error("expected auth URL embedded in content")
	}
	if calendar.createCalls != 0 {
		t.Error("event must not be created while unauthorized")
	}
}

func TestCalendarCreatesEventWhenConnected(t *testing.T) {
	calendar := &fakeCalendar{connected: true}
	skill := newCalendarSkillForTest(calendar)

	result, err := skill.Execute(context.Background(),
		"Schedule a meeting with John tomorrow at 3pm", Context{UserID: "u1"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if calendar.createCalls != 1 {
		t.Fatalf("expected 1 create call, got %d", calendar.createCalls)
	}
	for _, want := range []string{`"John"`, "tomorrow", "3pm", "https://calendar.example.com/evt-1"} {
		if !strings.Contains(result.Content, want) {
			t.Errorf("expected content to contain %q, got %q", want, result.Content)
		}
	}
	if result.Metadata["skillId"] != CalendarID {
		t.Errorf("expected calendar skillId, got %v", result.Metadata["skillId"])
	}
}

func TestCalendarExpiredAuthPromptsReconnect(t *testing.T) {
	calendar := &fakeCalendar{connected: true, tokenErr: services.ErrTokenExchangeFailed}
	skill := newCalendarSkillForTest(calendar)

	result, err := skill.Execute(context.Background(),
		"Schedule a meeting with John tomorrow at 3pm", Context{UserID: "u1"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.Metadata["requiresAuth"] != true {
		t.Error("expected requiresAuth metadata on stale credential")
	}
	if !strings.Contains(result.Content, "reconnect") {
		t.Errorf("expected reconnect prompt, got %q", result.Content)
	}
}

func TestCalendarProviderRejectionPromptsReconnect(t *testing.T) {
	calendar := &fakeCalendar{connected: true, createErr: services.ErrAuthRequired}
	skill := newCalendarSkillForTest(calendar)

	result, err := skill.Execute(context.Background(),
		"Schedule a meeting with John tomorrow at 3pm", Context{UserID: "u1"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Metadata["requiresAuth"] != true {
		t.Error("expected requiresAuth metadata on provider rejection")
	}
}

func TestCalendarProviderFailureStaysInSkill(t *testing.T) {
	calendar := &fakeCalendar{connected: true, createErr: services.ErrProviderAPI}
	skill := newCalendarSkillForTest(calendar)

	result, err := skill.Execute(context.Background(),
		"Schedule a meeting with John tomorrow at 3pm", Context{UserID: "u1"})
	if err != nil {
		t.Fatalf("expected nil error so dispatch does not fall back, got %v", err)
	}
	if !strings.Contains(result.Content, "trouble adding that to your calendar") {
		t.Errorf("expected in-skill failure message, got %q", result.Content)
	}
}

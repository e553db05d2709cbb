package skills

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// stubSkill is a configurable skill for dispatcher tests.
type stubSkill struct {
	id        string
	canHandle func(string) bool
	execute   func(context.Context, string, Context) (*Result, error)
}

func (s *stubSkill) ID() string         { return s.id }
func (s *stubSkill) Name() string       { return s.id }
func (s *stubSkill) Patterns() []string { return nil }

func (s *stubSkill) CanHandle(message string, _ Context) bool {
	if s.canHandle == nil {
		return false
	}
	return s.canHandle(message)
}

func (s *stubSkill) Execute(ctx context.Context, message string, sctx Context) (*Result, error) {
	if s.execute == nil {
		return &Result{Content: "from " + s.id}, nil
	}
	return s.execute(ctx, message, sctx)
}

func newTestRegistry(extra ...Skill) *Registry {
	registry := NewRegistry()
	for _, skill := range extra {
		registry.Register(skill)
	}
	registry.Register(&stubSkill{
		id:        "fallback",
		canHandle: func(string) bool { return true },
	})
	return registry
}

func TestRegistryOrderAndReplace(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&stubSkill{id: "a"})
	registry.Register(&stubSkill{id: "b"})
	registry.Register(&stubSkill{id: "c"})

	// Replacing keeps the original position.
	registry.Register(&stubSkill{id: "a", canHandle: func(string) bool { return true }})

	all := registry.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 skills, got %d", len(all))
	}
	for i, want := range []string{"a", "b", "c"} {
		if all[i].ID() != want {
			t.Errorf("position %d: expected %s, got %s", i, want, all[i].ID())
		}
	}

	if _, err := registry.Get("missing"); !errors.Is(err, ErrSkillNotFound) {
		t.Errorf("expected ErrSkillNotFound, got %v", err)
	}
}

func TestDispatchSelectsFirstEligibleSkill(t *testing.T) {
	registry := newTestRegistry(
		&stubSkill{id: "first", canHandle: func(m string) bool { return strings.Contains(m, "x") }},
		&stubSkill{id: "second", canHandle: func(m string) bool { return strings.Contains(m, "x") }},
	)
	d := NewDispatcher(registry, "fallback", nil)

	result, err := d.Dispatch(context.Background(), "x marks the spot", Context{UserID: "u1"})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if result.Metadata["skillId"] != "first" {
		t.Errorf("expected first skill to win, got %v", result.Metadata["skillId"])
	}
}

func TestDispatchFallsBackWhenNoSkillEligible(t *testing.T) {
	registry := newTestRegistry(
		&stubSkill{id: "never", canHandle: func(string) bool { return false }},
	)
	d := NewDispatcher(registry, "fallback", nil)

	result, err := d.Dispatch(context.Background(), "hello", Context{UserID: "u1"})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if result.Metadata["skillId"] != "fallback" {
		t.Errorf("expected fallback, got %v", result.Metadata["skillId"])
	}
}

func TestDispatchIsDeterministic(t *testing.T) {
	registry := newTestRegistry(
		&stubSkill{id: "first", canHandle: func(string) bool { return true }},
		&stubSkill{id: "second", canHandle: func(string) bool { return true }},
	)
	d := NewDispatcher(registry, "fallback", nil)

	for i := 0; i < 20; i++ {
		result, err := d.Dispatch(context.Background(), "same input", Context{UserID: "u1"})
		if err != nil {
			t.Fatalf("dispatch failed: %v", err)
		}
		if result.Metadata["skillId"] != "first" {
			t.Fatalf("iteration %d: selection changed to %v", i, result.Metadata["skillId"])
		}
	}
}

func TestDispatchFailedSkillRedispatchesToFallback(t *testing.T) {
	registry := newTestRegistry(
		&stubSkill{
			id:        "broken",
			canHandle: func(string) bool { return true },
			execute: func(context.Context, string, Context) (*Result, error) {
				return nil, errors.New("boom")
			},
		},
	)
	d := NewDispatcher(registry, "fallback", nil)

	result, err := d.Dispatch(context.Background(), "anything", Context{UserID: "u1"})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if result.Metadata["skillId"] != "fallback" {
		t.Errorf("expected fallback after failure, got %v", result.Metadata["skillId"])
	}
}

func TestDispatchPanickingSkillRedispatchesToFallback(t *testing.T) {
	registry := newTestRegistry(
		&stubSkill{
			id:        "panicky",
			canHandle: func(string) bool { return true },
			execute: func(context.Context, string, Context) (*Result, error) {
				panic("unexpected")
			},
		},
	)
	d := NewDispatcher(registry, "fallback", nil)

	result, err := d.Dispatch(context.Background(), "anything", Context{UserID: "u1"})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if result.Metadata["skillId"] != "fallback" {
		t.Errorf("expected fallback after panic, got %v", result.Metadata["skillId"])
	}
}

func TestDispatchPanickingCanHandleIsIneligible(t *testing.T) {
	registry := newTestRegistry(
		&stubSkill{
			id:        "panicky",
			canHandle: func(string) bool { panic("bad rule") },
		},
		&stubSkill{id: "steady", canHandle: func(string) bool { return true }},
	)
	d := NewDispatcher(registry, "fallback", nil)

	result, err := d.Dispatch(context.Background(), "anything", Context{UserID: "u1"})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if result.Metadata["skillId"] != "steady" {
		t.Errorf("expected steady skill, got %v", result.Metadata["skillId"])
	}
}

func TestDispatchFailingFallbackReturnsError(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&stubSkill{
		id:        "fallback",
		canHandle: func(string) bool { return true },
		execute: func(context.Context, string, Context) (*Result, error) {
			return nil, errors.New("model down")
		},
	})
	d := NewDispatcher(registry, "fallback", nil)

	if _, err := d.Dispatch(context.Background(), "hello", Context{UserID: "u1"}); err == nil {
		t.Fatal("expected error when fallback fails")
	}
}

func TestDispatchMissingFallbackReturnsError(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&stubSkill{id: "only", canHandle: func(string) bool { return false }})
	d := NewDispatcher(registry, "fallback", nil)

	if _, err := d.Dispatch(context.Background(), "hello", Context{UserID: "u1"}); !errors.Is(err, ErrSkillNotFound) {
		t.Fatalf("expected ErrSkillNotFound, got %v", err)
	}
}

func TestDispatchNormalizesResult(t *testing.T) {
	registry := newTestRegistry(
		&stubSkill{
			id:        "bare",
			canHandle: func(string) bool { return true },
			execute: func(context.Context, string, Context) (*Result, error) {
				// No role, no metadata.
				return &Result{Content: "plain"}, nil
			},
		},
	)
	d := NewDispatcher(registry, "fallback", nil)

	result, err := d.Dispatch(context.Background(), "anything", Context{UserID: "u1"})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if result.Role != RoleAssistant {
		t.Errorf("expected assistant role, got %q", result.Role)
	}
	if result.Metadata["skillId"] != "bare" {
		t.Errorf("expected skillId stamped, got %v", result.Metadata["skillId"])
	}
}

func TestDispatchEndToEndWithDefaultRules(t *testing.T) {
	rules := DefaultRules()

	registry := NewRegistry()
	registry.Register(NewCalculatorSkill(rules.Calculator))
	registry.Register(NewWeatherSkill(rules.Weather))
	registry.Register(&stubSkill{
		id:        ConversationID,
		canHandle: func(string) bool { return true },
		execute: func(context.Context, string, Context) (*Result, error) {
			return &Result{Content: "chat reply", Role: RoleAssistant}, nil
		},
	})
	d := NewDispatcher(registry, ConversationID, nil)

	tests := []struct {
		message     string
		wantSkill   string
		wantContent string
	}{
		{"what is 2 + 2", CalculatorID, "4"},
		{"calculate 10 * 5", CalculatorID, "50"},
		{"what's the weather like today?", WeatherID, "weather data"},
		{"hello there", ConversationID, "chat reply"},
	}

	for _, tt := range tests {
		result, err := d.Dispatch(context.Background(), tt.message, Context{UserID: "u1"})
		if err != nil {
			t.Fatalf("%q: dispatch failed: %v", tt.message, err)
		}
		if result.Metadata["skillId"] != tt.wantSkill {
			t.Errorf("%q: expected skill %s, got %v", tt.message, tt.wantSkill, result.Metadata["skillId"])
		}
		if !strings.Contains(result.Content, tt.wantContent) {
			t.Errorf("%q: expected content containing %q, got %q", tt.message, tt.wantContent, result.Content)
		}
	}
}

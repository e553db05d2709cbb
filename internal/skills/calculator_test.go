package skills

import (
	"context"
	"strings"
	"testing"
)

func TestCalculatorCanHandle(t *testing.T) {
	skill := NewCalculatorSkill(DefaultRules().Calculator)

	tests := []struct {
		message string
		want    bool
	}{
		{"what is 2 + 2", true},
		{"calculate the tip", true},
		{"compute 7*6 for me", true},
		{"100/4", true},
		{"solve this equation", true},
		{"hello there", false},
		{"what's the weather", false},
	}

	for _, tt := range tests {
		if got := skill.CanHandle(tt.message, Context{}); got != tt.want {
			t.Errorf("CanHandle(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}

func TestCalculatorExecute(t *testing.T) {
	skill := NewCalculatorSkill(DefaultRules().Calculator)

	tests := []struct {
		message string
		want    string
	}{
		{"what is 2 + 2", "The result of 2 + 2 is 4"},
		{"calculate 10 * 5", "The result of 10 * 5 is 50"},
		{"7 - 12", "The result of 7 - 12 is -5"},
		{"what is 10 / 4", "The result of 10 / 4 is 2.5"},
		{"calculate 1.5 + 2.25", "The result of 1.5 + 2.25 is 3.75"},
	}

	for _, tt := range tests {
		result, err := skill.Execute(context.Background(), tt.message, Context{})
		if err != nil {
			t.Fatalf("Execute(%q) failed: %v", tt.message, err)
		}
		if result.Content != tt.want {
			t.Errorf("Execute(%q) = %q, want %q", tt.message, result.Content, tt.want)
		}
	}
}

func TestCalculatorDivideByZero(t *testing.T) {
	skill := NewCalculatorSkill(DefaultRules().Calculator)

	result, err := skill.Execute(context.Background(), "what is 5 / 0", Context{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result.Content, "divide by zero") {
		t.Errorf("expected divide-by-zero message, got %q", result.Content)
	}
}

func TestCalculatorNoExpressionGivesGuidance(t *testing.T) {
	skill := NewCalculatorSkill(DefaultRules().Calculator)

	result, err := skill.Execute(context.Background(), "calculate my mortgage", Context{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result.Content, "couldn't find a valid expression") {
		t.Errorf("expected guidance message, got %q", result.Content)
	}
}

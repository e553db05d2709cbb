package skills

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRulesOverridesListedSkillsOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := []byte("calculator:\n  - '(?i)arithmetic'\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write rules file: %v", err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules failed: %v", err)
	}

	if len(rules.Calculator) != 1 || rules.Calculator[0] != "(?i)arithmetic" {
		t.Errorf("expected calculator rules replaced, got %v", rules.Calculator)
	}
	if len(rules.Weather) != len(DefaultRules().Weather) {
		t.Error("expected weather rules to keep defaults")
	}

	skill := NewCalculatorSkill(rules.Calculator)
	if !skill.CanHandle("do some Arithmetic please", Context{}) {
		t.Error("expected override rule to match")
	}
	if skill.CanHandle("calculate 2 + 2", Context{}) {
		t.Error("expected default rules to be fully replaced")
	}
}

func TestLoadRulesMissingFileReturnsError(t *testing.T) {
	if _, err := LoadRules("/nonexistent/rules.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCompileRulesSkipsInvalidExpressions(t *testing.T) {
	compiled := compileRules([]string{`(?i)valid`, `([unclosed`, `\d+`})
	if len(compiled) != 2 {
		t.Fatalf("expected 2 compiled rules, got %d", len(compiled))
	}
}

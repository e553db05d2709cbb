package skills

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// CalculatorID is the calculator skill identifier.
const CalculatorID = "calculator"

var expressionRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([+\-*/])\s*(\d+(?:\.\d+)?)`)

// CalculatorSkill evaluates simple binary arithmetic expressions.
type CalculatorSkill struct {
	rules []*regexp.Regexp
}

// NewCalculatorSkill creates the calculator skill with the given trigger
// rules (see Rules.Calculator).
func NewCalculatorSkill(triggers []string) *CalculatorSkill {
	return &CalculatorSkill{rules: compileRules(triggers)}
}

func (s *CalculatorSkill) ID() string   { return CalculatorID }
func (s *CalculatorSkill) Name() string { return "Calculator" }

func (s *CalculatorSkill) Patterns() []string { return patternStrings(s.rules) }

// CanHandle reports whether the message contains calculator keywords or a
// recognizable arithmetic expression.
func (s *CalculatorSkill) CanHandle(message string, _ Context) bool {
	return anyMatch(s.rules, message)
}

// Execute evaluates the first binary expression in the message. Unparseable
// or undefined input produces guidance content, never an error: there is
// nothing for the fallback skill to do better here.
func (s *CalculatorSkill) Execute(_ context.Context, message string, _ Context) (*Result, error) {
	groups := expressionRe.FindStringSubmatch(message)
	if groups == nil {
		return &Result{
			Content: "I detected a calculation request, but couldn't find a valid expression. " +
				"Please provide a calculation in the format of number operator number (e.g., 2 + 2).",
			Role: RoleAssistant,
		}, nil
	}

	expression := strings.Join([]string{groups[1], groups[2], groups[3]}, " ")

	left, _ := strconv.ParseFloat(groups[1], 64)
	right, _ := strconv.ParseFloat(groups[3], 64)

	var value float64
	switch groups[2] {
	case "+":
		value = left + right
	case "-":
		value = left - right
	case "*":
		value = left * right
	case "/":
		if right == 0 {
			return &Result{
				Content: "I can't divide by zero. Please try a different calculation.",
				Role:    RoleAssistant,
			}, nil
		}
		value = left / right
	}

	formatted := strconv.FormatFloat(value, 'f', -1, 64)

	return &Result{
		Content: fmt.Sprintf("The result of %s is %s", expression, formatted),
		Role:    RoleAssistant,
		Metadata: map[string]any{
			"skillId":    CalculatorID,
			"expression": expression,
			"result":     value,
		},
	}, nil
}

package skills

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Rules holds the trigger expressions for every rule-based skill.
// Each entry is a regular expression; a skill is eligible when any of its
// expressions matches the utterance. The defaults can be overridden per
// skill from a YAML file without recompiling.
type Rules struct {
	Calculator []string `yaml:"calculator"`
	Weather    []string `yaml:"weather"`

	// Calendar eligibility requires one match from each list: intent
	// keywords alone must not trigger scheduling.
	CalendarIntent []string `yaml:"calendar_intent"`
	CalendarTime   []string `yaml:"calendar_time"`
}

// DefaultRules returns the built-in trigger rules.
func DefaultRules() Rules {
	return Rules{
		Calculator: []string{
			`(?i)calculate`,
			`\d+\s*[+\-*/]\s*\d+`,
			`(?i)what is\s+\d+\s*[+\-*/]\s*\d+`,
			`(?i)compute`,
			`(?i)math`,
			`(?i)equation`,
			`(?i)solve`,
		},
		Weather: []string{
			`(?i)weather`,
			`(?i)temperature`,
			`(?i)forecast`,
			`(?i)rain`,
			`(?i)snow`,
			`(?i)sunny`,
			`(?i)cloudy`,
			`(?i)humidity`,
		},
		CalendarIntent: []string{
			`(?i)schedule`,
			`(?i)meeting`,
			`(?i)appointment`,
			`(?i)calendar`,
			`(?i)remind`,
			`(?i)event`,
			`(?i)tomorrow`,
			`(?i)next\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)`,
		},
		CalendarTime: []string{
			`(?i)\b(\d{1,2})(:\d{2})?\s*(am|pm|o'clock)\b`,
			`(?i)\b(morning|afternoon|evening|night)\b`,
		},
	}
}

// LoadRules reads rule overrides from a YAML file and merges them over the
// defaults. Lists present in the file replace the corresponding default
// list wholesale; absent lists keep their defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("failed to read skill rules file: %w", err)
	}

	var overrides Rules
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return rules, fmt.Errorf("failed to parse skill rules file: %w", err)
	}

	if len(overrides.Calculator) > 0 {
		rules.Calculator = overrides.Calculator
	}
	if len(overrides.Weather) > 0 {
		rules.Weather = overrides.Weather
	}
	if len(overrides.CalendarIntent) > 0 {
		rules.CalendarIntent = overrides.CalendarIntent
	}
	if len(overrides.CalendarTime) > 0 {
		rules.CalendarTime = overrides.CalendarTime
	}

	return rules, nil
}

// compileRules compiles trigger expressions, skipping any that fail to
// compile so a bad override cannot take a skill offline.
func compileRules(exprs []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			slog.Warn("skipping invalid skill trigger expression", "expr", expr, "error", err)
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled
}

func anyMatch(rules []*regexp.Regexp, message string) bool {
	for _, re := range rules {
		if re.MatchString(message) {
			return true
		}
	}
	return false
}

func patternStrings(rules []*regexp.Regexp) []string {
	out := make([]string, len(rules))
	for i, re := range rules {
		out[i] = re.String()
	}
	return out
}

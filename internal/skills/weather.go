package skills

import (
	"context"
	"regexp"
)

// WeatherID is the weather skill identifier.
const WeatherID = "weather"

// WeatherSkill answers weather questions. It is a mock: no weather provider
// is wired up, so it explains that instead of guessing.
type WeatherSkill struct {
	rules []*regexp.Regexp
}

// NewWeatherSkill creates the weather skill with the given trigger rules.
func NewWeatherSkill(triggers []string) *WeatherSkill {
	return &WeatherSkill{rules: compileRules(triggers)}
}

func (s *WeatherSkill) ID() string   { return WeatherID }
func (s *WeatherSkill) Name() string { return "Weather Information" }

func (s *WeatherSkill) Patterns() []string { return patternStrings(s.rules) }

func (s *WeatherSkill) CanHandle(message string, _ Context) bool {
	return anyMatch(s.rules, message)
}

func (s *WeatherSkill) Execute(_ context.Context, _ string, _ Context) (*Result, error) {
	return &Result{
		Content: "I'm sorry, I don't have access to real-time weather data at the moment. " +
			"In a production environment, this skill would connect to a weather API to provide accurate forecasts.",
		Role: RoleAssistant,
		Metadata: map[string]any{
			"skillId":  WeatherID,
			"mockData": true,
		},
	}, nil
}

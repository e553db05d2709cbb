// Package slots extracts best-effort event details (date, time, title)
// from free text. The extraction is a heuristic: absent date/time slots are
// a valid output, not an error, and downstream event creation must treat
// every slot as a hint rather than an authoritative value.
package slots

import (
	"regexp"
	"strings"
)

// DefaultTitle is used when no title template matches the utterance.
const DefaultTitle = "New Event"

// EventSlots is the parse result for one utterance.
type EventSlots struct {
	Title string
	Date  string // empty when no date phrase was found
	Time  string // empty when no time phrase was found
}

// matcher is one extraction strategy. Strategies are tried in fixed
// priority order; the first match wins and later strategies for the same
// slot are not attempted.
type matcher struct {
	name string
	re   *regexp.Regexp
}

var dateMatchers = []matcher{
	{"relative-day", regexp.MustCompile(`(?i)\btomorrow\b`)},
	{"weekday", regexp.MustCompile(`(?i)\b(next\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)},
	{"month-day", regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}(st|nd|rd|th)?\b`)},
	{"numeric-date", regexp.MustCompile(`\b\d{1,2}/\d{1,2}(/\d{2,4})?\b`)},
}

var timeMatchers = []matcher{
	{"twelve-hour", regexp.MustCompile(`(?i)\b(at\s+)?(\d{1,2})(:\d{2})?\s*(am|pm)\b`)},
	{"twenty-four-hour", regexp.MustCompile(`\b(at\s+)?(\d{1,2})(:\d{2})\b`)},
}

// titleTemplates capture the event subject from common scheduling phrasings.
var titleTemplates = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmeeting\s+(?:with|about)\s+([^.,]+)`),
	regexp.MustCompile(`(?i)\bcall\s+(?:with|about)\s+([^.,]+)`),
	regexp.MustCompile(`(?i)\bappointment\s+(?:with|for)\s+([^.,]+)`),
	regexp.MustCompile(`(?i)\bschedule\s+(?:a|an)\s+([^.,]+)`),
	regexp.MustCompile(`(?i)\badd\s+(?:a|an)\s+([^.,]+)\s+to\s+(?:my|the)\s+calendar\b`),
}

// Extract parses one utterance. It never fails: missing slots come back
// empty and the title falls back to DefaultTitle.
func Extract(message string) EventSlots {
	return EventSlots{
		Title: extractTitle(message),
		Date:  firstMatch(dateMatchers, message),
		Time:  firstMatch(timeMatchers, message),
	}
}

func firstMatch(matchers []matcher, message string) string {
	for _, m := range matchers {
		if match := m.re.FindString(message); match != "" {
			return match
		}
	}
	return ""
}

func extractTitle(message string) string {
	for _, re := range titleTemplates {
		groups := re.FindStringSubmatch(message)
		if len(groups) < 2 || groups[1] == "" {
			continue
		}
		if title := cleanTitle(groups[1]); title != "" {
			return title
		}
	}
	return DefaultTitle
}

// cleanTitle cuts trailing date/time phrases out of a captured title so
// "John tomorrow at 3pm" becomes "John".
func cleanTitle(raw string) string {
	cut := len(raw)
	for _, m := range dateMatchers {
		if loc := m.re.FindStringIndex(raw); loc != nil && loc[0] < cut {
			cut = loc[0]
		}
	}
	for _, m := range timeMatchers {
		if loc := m.re.FindStringIndex(raw); loc != nil && loc[0] < cut {
			cut = loc[0]
		}
	}

	title := strings.TrimSpace(raw[:cut])
	for _, connector := range []string{" at", " on", " for"} {
		title = strings.TrimSuffix(title, connector)
	}
	return strings.TrimSpace(title)
}

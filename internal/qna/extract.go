// Package qna implements the answer generation pipeline: heuristic slot
// extraction from free text, deterministic forecast simulation, and answer
// composition with an optional language-model rewrite.
package qna

import (
	"regexp"
	"strings"
)

// Extraction defaults used when no pattern matches.
const (
	DefaultLocation = "your area"
	DefaultWhen     = "today"
)

// locationPattern finds a city-like span after "in" or "at". This is a
// best-effort heuristic, not NLP; complex sentences can produce odd
// captures and that is accepted behavior.
var locationPattern = regexp.MustCompile(`(?i)(?:in|at)\s+([A-Za-z][A-Za-z\s\-]{1,40})`)

// isoDatePattern matches an ISO-like date, which overrides any matched
// time keyword.
var isoDatePattern = regexp.MustCompile(`\b(20\d{2}-\d{2}-\d{2})\b`)

// timeKeywords are checked in priority order; the first whole-word match
// wins.
var timeKeywords = []string{
	"today",
	"tomorrow",
	"tonight",
	"this weekend",
	"this week",
	"next week",
}

var timeKeywordPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(timeKeywords))
	for i, kw := range timeKeywords {
		patterns[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
	}
	return patterns
}()

// ExtractionResult holds the location and time reference pulled from a
// question. Both fields are always populated, falling back to defaults.
type ExtractionResult struct {
	Location string
	When     string
}

// Extract parses a free-form question into a location and time reference.
// It is a total function: unrecognizable input degrades to defaults rather
// than failing.
func Extract(text string) ExtractionResult {
	location := DefaultLocation
	if m := locationPattern.FindStringSubmatch(text); m != nil {
		if loc := cleanLocation(m[1]); loc != "" {
			location = loc
		}
	}

	when := DefaultWhen
	for i, pattern := range timeKeywordPatterns {
		if pattern.MatchString(text) {
			when = timeKeywords[i]
			break
		}
	}

	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		when = m[1]
	}

	return ExtractionResult{Location: location, When: when}
}

// cleanLocation trims the captured span and strips any trailing time
// keywords the greedy capture swallowed ("in Paris tomorrow" captures
// "Paris tomorrow").
func cleanLocation(captured string) string {
	loc := strings.TrimSpace(captured)

	for changed := true; changed; {
		changed = false
		lower := strings.ToLower(loc)
		for _, kw := range timeKeywords {
			if !strings.HasSuffix(lower, kw) {
				continue
			}
			rest := loc[:len(loc)-len(kw)]
			// Only strip whole words, not suffixes of longer words.
			if rest != "" && !strings.HasSuffix(rest, " ") {
				continue
			}
			loc = strings.TrimSpace(rest)
			changed = true
			break
		}
	}

	return loc
}

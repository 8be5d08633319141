package parser

import (
	"regexp"
	"strings"
)

var (
	nameSeparator    = regexp.MustCompile(`(?i),|\band\b|;`)
	keywordSeparator = regexp.MustCompile(`,|;|\|`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
)

// SplitNames splits a researcher list on commas, semicolons and the word "and".
// A name is kept only when it contains a space, is longer than two characters
// and has not been seen before, ignoring case.
func SplitNames(raw string) []string {
	return splitUnique(nameSeparator.Split(raw, -1), func(s string) bool {
		return strings.Contains(s, " ") && len(s) > 2
	})
}

// SplitKeywords splits a keyword list on commas, semicolons and pipes,
// dropping empty and case-insensitively repeated values.
func SplitKeywords(raw string) []string {
	return splitUnique(keywordSeparator.Split(raw, -1), func(string) bool { return true })
}

func splitUnique(parts []string, keep func(string) bool) []string {
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		t := strings.Trim(whitespaceRun.ReplaceAllString(p, " "), " .,-")
		if t == "" || !keep(t) {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

package sanitizer

import (
	"strings"
	"unicode"
)

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

// SanitizeFreeText normalizes whitespace in notes, messages and house rules
// while preserving the caller's wording and case.
func SanitizeFreeText(s string) string {
	return TrimAndNormalize(s)
}

// SanitizeFreeTextSlice normalizes each entry and drops entries left empty.
func SanitizeFreeTextSlice(items []string) []string {
	if items == nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if cleaned := SanitizeFreeText(item); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

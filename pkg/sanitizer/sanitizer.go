// Package sanitizer normalizes caller-supplied text before it reaches
// validation or storage. City names in particular feed Mongo regex filters
// and must never carry raw pattern metacharacters.
package sanitizer

import (
	"regexp"
	"strings"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reKeepLettersDigitsSpace = regexp.MustCompile(`[^0-9\p{L} ]+`)
	reMultiSpace             = regexp.MustCompile(`\s+`)
)

func trimAndLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(reMultiSpace.ReplaceAllString(s, " "))
}

// SanitizeCity strips everything except letters, digits and spaces so the
// result is safe to embed in a case-insensitive regex filter.
func SanitizeCity(input string) string {
	p := Pipeline{
		trimAndLower,
		func(s string) string { return reKeepLettersDigitsSpace.ReplaceAllString(s, "") },
		collapseSpaces,
	}
	return p.Apply(input)
}

// SanitizePreference normalizes a categorical lifestyle answer for exact
// matching.
func SanitizePreference(input string) string {
	p := Pipeline{
		trimAndLower,
		collapseSpaces,
	}
	return p.Apply(input)
}

// SanitizePreferences normalizes an answer dictionary in place, dropping
// entries whose key or value is empty after normalization.
func SanitizePreferences(prefs map[string]string) map[string]string {
	if prefs == nil {
		return nil
	}
	out := make(map[string]string, len(prefs))
	for k, v := range prefs {
		key := SanitizePreference(k)
		val := SanitizePreference(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	return out
}

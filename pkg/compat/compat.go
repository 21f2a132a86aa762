// Package compat scores lifestyle compatibility between two students as the
// percentage of categorical answers that match exactly. There is no weighting
// and no partial credit for adjacent answers.
package compat

import "math"

// The canonical lifestyle attributes collected from every student.
var AttributeKeys = []string{
	"sleep_schedule",
	"cleanliness",
	"study_habits",
	"social_level",
	"cooking_frequency",
	"music_preference",
	"guest_policy",
}

// Score returns an integer 0-100: round(matching keys / total keys * 100)
// over the union of both answer sets. Absent or empty inputs score 0.
func Score(a, b map[string]string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}

	matches := 0
	for k := range keys {
		av, aok := a[k]
		bv, bok := b[k]
		if aok && bok && av == bv {
			matches++
		}
	}

	return int(math.Round(float64(matches) / float64(len(keys)) * 100))
}

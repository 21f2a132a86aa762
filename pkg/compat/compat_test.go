package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_PartialMatch(t *testing.T) {
	a := map[string]string{"a": "1", "b": "2", "c": "3"}
	b := map[string]string{"a": "1", "b": "2", "c": "9"}
	assert.Equal(t, 67, Score(a, b))
}

func TestScore_IdentityIsFull(t *testing.T) {
	x := map[string]string{
		"sleep_schedule": "early",
		"cleanliness":    "high",
		"study_habits":   "library",
	}
	assert.Equal(t, 100, Score(x, x))
}

func TestScore_AbsentInputs(t *testing.T) {
	x := map[string]string{"a": "1"}
	assert.Equal(t, 0, Score(nil, x))
	assert.Equal(t, 0, Score(x, nil))
	assert.Equal(t, 0, Score(nil, nil))
	assert.Equal(t, 0, Score(map[string]string{}, x))
}

func TestScore_NoPartialCredit(t *testing.T) {
	// "moderate" vs "high" scores the same as "moderate" vs "low": zero.
	a := map[string]string{"cleanliness": "moderate"}
	high := map[string]string{"cleanliness": "high"}
	low := map[string]string{"cleanliness": "low"}
	assert.Equal(t, Score(a, high), Score(a, low))
	assert.Equal(t, 0, Score(a, high))
}

func TestScore_UnionOfKeys(t *testing.T) {
	// Keys present on only one side count toward the total but never match.
	a := map[string]string{"a": "1", "b": "2"}
	b := map[string]string{"a": "1", "c": "3"}
	// union {a,b,c}, one match
	assert.Equal(t, 33, Score(a, b))
}

func TestScore_SevenAttributes(t *testing.T) {
	a := make(map[string]string, len(AttributeKeys))
	b := make(map[string]string, len(AttributeKeys))
	for _, k := range AttributeKeys {
		a[k] = "same"
		b[k] = "same"
	}
	b["guest_policy"] = "none"
	b["music_preference"] = "loud"
	// 5 of 7 -> 71
	assert.Equal(t, 71, Score(a, b))
}

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuery(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"What do I like?", "what do i like"},
		{"  What   do I like  ", "what do i like"},
		{"what do i like", "what do i like"},
		{"Hiking!!!", "hiking"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeQuery(tc.in), "input %q", tc.in)
	}
}

func TestRecallCacheKeyAliasing(t *testing.T) {
	// Same semantic query, different surface forms: one key.
	a := RecallCacheKey("What do I like?", "u1", 10, 0.7)
	b := RecallCacheKey("  what do I LIKE ", "u1", 10, 0.7)
	assert.Equal(t, a, b)

	// Any parameter change yields a distinct key.
	assert.NotEqual(t, a, RecallCacheKey("What do I like?", "u2", 10, 0.7))
	assert.NotEqual(t, a, RecallCacheKey("What do I like?", "u1", 5, 0.7))
	assert.NotEqual(t, a, RecallCacheKey("What do I like?", "u1", 10, 0.75))
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("I love hiking, hiking in the Alps!")
	assert.Equal(t, []string{"love", "hiking", "the", "alps"}, tokens)
}

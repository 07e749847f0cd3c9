package utils

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// NormalizeQuery canonicalizes free-form query text for cache keying:
// lowercase, punctuation stripped, whitespace collapsed.
func NormalizeQuery(query string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(query)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// RecallCacheKey derives the cache key for a recall call from the
// normalized query and the full parameter set, so differing k or threshold
// never alias.
func RecallCacheKey(query, userID string, k int, threshold float64) string {
	payload := fmt.Sprintf("%s:%s:%d:%.4f", NormalizeQuery(query), userID, k, threshold)
	sum := md5.Sum([]byte(payload))
	return "query:" + hex.EncodeToString(sum[:])
}

// EmbeddingCacheKey derives the cache key for an embedding of text.
func EmbeddingCacheKey(text string) string {
	sum := md5.Sum([]byte(text))
	return "embedding:" + hex.EncodeToString(sum[:])
}

// SessionKey derives the cache key for a session context hash.
func SessionKey(sessionID string) string {
	return "session:" + sessionID
}

// Tokenize splits content into lowercase keyword tokens, dropping short
// stop-like tokens. Used to seed cluster keyword sets.
func Tokenize(content string) []string {
	fields := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}

package extractor

import (
	"context"
	"strings"
	"unicode"

	"github.com/agentmemz/agentmemz/internal/types"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

type keywordExtractor struct{}

// NewKeywordExtractor creates a heuristic extractor: the full turn becomes
// one context fact and capitalized tokens become Concept entities. Used
// when no chat model is configured.
func NewKeywordExtractor() interfaces.FactExtractor {
	return &keywordExtractor{}
}

func (e *keywordExtractor) Extract(ctx context.Context, content string) ([]types.FactCandidate, []types.GraphEntity, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, nil, nil
	}

	candidates := []types.FactCandidate{{
		FactType:   "context",
		Content:    trimmed,
		Confidence: 0.5,
	}}

	var entities []types.GraphEntity
	seen := map[string]bool{}
	for i, word := range strings.Fields(trimmed) {
		word = strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) })
		// First word of a sentence is capitalized regardless of being a name.
		if i == 0 || len(word) < 2 || seen[word] {
			continue
		}
		if r := []rune(word)[0]; unicode.IsUpper(r) {
			seen[word] = true
			entities = append(entities, types.GraphEntity{Type: types.NodeConcept, Name: word})
		}
	}

	return candidates, entities, nil
}

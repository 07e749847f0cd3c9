package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmemz/agentmemz/internal/types"
)

func TestKeywordExtractorWholeTurnBecomesContextFact(t *testing.T) {
	e := NewKeywordExtractor()

	candidates, entities, err := e.Extract(context.Background(), "I went hiking in the Alps with Maria.")
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, "context", candidates[0].FactType)
	assert.Equal(t, "I went hiking in the Alps with Maria.", candidates[0].Content)
	assert.Equal(t, 0.5, candidates[0].Confidence)

	names := make([]string, 0, len(entities))
	for _, ent := range entities {
		assert.Equal(t, types.NodeConcept, ent.Type)
		names = append(names, ent.Name)
	}
	assert.Equal(t, []string{"Alps", "Maria"}, names)
}

func TestKeywordExtractorSkipsLeadingCapital(t *testing.T) {
	e := NewKeywordExtractor()

	_, entities, err := e.Extract(context.Background(), "Yesterday was a quiet day.")
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestKeywordExtractorDeduplicatesEntities(t *testing.T) {
	e := NewKeywordExtractor()

	_, entities, err := e.Extract(context.Background(), "We discussed Paris, then Paris again.")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "Paris", entities[0].Name)
}

func TestKeywordExtractorEmptyContent(t *testing.T) {
	e := NewKeywordExtractor()

	candidates, entities, err := e.Extract(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, candidates)
	assert.Empty(t, entities)
}

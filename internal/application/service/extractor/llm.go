// Package extractor provides FactExtractor implementations. The LLM
// extractor is the production path; the keyword extractor serves offline
// and test deployments.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/agentmemz/agentmemz/internal/logger"
	"github.com/agentmemz/agentmemz/internal/types"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

const extractFactsPrompt = `
You are an AI assistant that extracts durable facts about a user from a
single conversational turn. Extract only statements worth remembering
across sessions: preferences, biographical details, goals, relationships.
Output JSON with the following structure:
{
  "facts": [
    {
      "fact_type": "preference|biographical|goal|relationship|context",
      "content": "A short self-contained statement of the fact",
      "confidence": 0.9
    }
  ],
  "entities": [
    {
      "type": "Person|Topic|Concept|Location|Preference",
      "name": "Entity Name"
    }
  ]
}
Return {"facts": [], "entities": []} when the turn contains nothing durable.

Turn:
%s
`

type extractionResult struct {
	Facts []struct {
		FactType   string  `json:"fact_type"`
		Content    string  `json:"content"`
		Confidence float64 `json:"confidence"`
	} `json:"facts"`
	Entities []struct {
		Type string `json:"type"`
		Name string `json:"name"`
	} `json:"entities"`
}

type llmExtractor struct {
	client *openai.Client
	model  string
}

// NewLLMExtractor creates an extractor that calls a chat model for fact
// extraction.
func NewLLMExtractor(client *openai.Client, model string) interfaces.FactExtractor {
	return &llmExtractor{client: client, model: model}
}

func (e *llmExtractor) Extract(ctx context.Context, content string) ([]types.FactCandidate, []types.GraphEntity, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(extractFactsPrompt, content)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to call extraction model: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil, fmt.Errorf("extraction model returned no choices")
	}

	var result extractionResult
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &result); err != nil {
		return nil, nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	candidates := make([]types.FactCandidate, 0, len(result.Facts))
	for _, f := range result.Facts {
		if f.Content == "" {
			continue
		}
		confidence := f.Confidence
		if confidence <= 0 || confidence > 1 {
			confidence = 0.5
		}
		factType := f.FactType
		if factType == "" {
			factType = "context"
		}
		candidates = append(candidates, types.FactCandidate{
			FactType:   factType,
			Content:    f.Content,
			Confidence: confidence,
		})
	}

	entities := make([]types.GraphEntity, 0, len(result.Entities))
	for _, ent := range result.Entities {
		if ent.Name == "" {
			continue
		}
		entities = append(entities, types.GraphEntity{Type: normalizeEntityType(ent.Type), Name: ent.Name})
	}

	logger.Debugf(ctx, "extracted %d fact candidates, %d entities", len(candidates), len(entities))
	return candidates, entities, nil
}

func normalizeEntityType(t string) string {
	switch t {
	case types.NodePerson, types.NodeTopic, types.NodeConcept, types.NodeLocation, types.NodePreference:
		return t
	}
	return types.NodeConcept
}

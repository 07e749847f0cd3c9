// Package embedding provides the embedding client implementations and the
// caching decorator the pipelines consume.
package embedding

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/agentmemz/agentmemz/internal/config"
	"github.com/agentmemz/agentmemz/internal/errs"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

type openaiClient struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	timeout time.Duration
}

// NewOpenAIClient creates an embedding client backed by the OpenAI API (or
// any compatible endpoint via base_url).
func NewOpenAIClient(cfg config.EmbeddingConfig) interfaces.EmbeddingClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &openaiClient{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   openai.EmbeddingModel(cfg.Model),
		timeout: cfg.Timeout,
	}
}

func (c *openaiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.model,
	})
	if err != nil {
		return nil, errs.Embedding("openai embed", err)
	}
	if len(resp.Data) == 0 {
		return nil, errs.Embedding("openai embed", errEmptyResponse)
	}
	return resp.Data[0].Embedding, nil
}

package embedding

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/agentmemz/agentmemz/internal/config"
	"github.com/agentmemz/agentmemz/internal/errs"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

var errEmptyResponse = errors.New("empty embedding response")

type ollamaClient struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

// NewOllamaClient creates an embedding client backed by a local Ollama
// server.
func NewOllamaClient(cfg config.EmbeddingConfig) (interfaces.EmbeddingClient, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errs.Embedding("ollama client", err)
	}
	return &ollamaClient{
		client:  api.NewClient(base, http.DefaultClient),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

func (c *ollamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  c.model,
		Prompt: text,
	})
	if err != nil {
		return nil, errs.Embedding("ollama embed", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, errs.Embedding("ollama embed", errEmptyResponse)
	}

	out := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

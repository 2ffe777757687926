// internal/ai/ollama.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

const DefaultOllamaModel = "all-minilm"

// Ollama embeds text with a locally served model.
type Ollama struct {
	api   *api.Client
	model string
}

// NewOllama returns an embedder talking to the Ollama server at baseURL.
func NewOllama(baseURL, model string, httpClient *http.Client) (*Ollama, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &Ollama{api: api.NewClient(u, httpClient), model: model}, nil
}

// Embed returns the model's vector for text.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.api.Embed(ctx, &api.EmbedRequest{
		Model: o.model,
		Input: TruncateTokens(text, MaxEmbeddingTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, errors.New("ollama embed: empty response")
	}
	return resp.Embeddings[0], nil
}

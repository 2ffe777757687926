// internal/ai/ai.go
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	custom_errors "githop/internal/errors"
)

// EmbeddingDimensions is the width of the repositories.embedding column.
const EmbeddingDimensions = 384

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Assistant produces repository summaries and parses search intents.
type Assistant interface {
	Summarize(ctx context.Context, in SummaryInput) (string, error)
	ParseIntent(ctx context.Context, query string) (SearchIntent, error)
}

// Provider names an embedding backend.
type Provider string

const (
	ProviderNone   Provider = "none"
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

// Config selects and configures the AI backends.
type Config struct {
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	ChatModel         string
	EmbeddingProvider Provider
	EmbeddingModel    string
	OllamaURL         string
	HTTPClient        *http.Client
}

// NewEmbedder returns the configured embedder. It returns ErrAIDisabled for the none provider.
func NewEmbedder(cfg Config, logger *slog.Logger) (Embedder, error) {
	switch Provider(strings.ToLower(string(cfg.EmbeddingProvider))) {
	case ProviderNone, "":
		return nil, custom_errors.ErrAIDisabled
	case ProviderOpenAI:
		return NewOpenAI(OpenAIConfig{
			APIKey:         cfg.OpenAIAPIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			ChatModel:      cfg.ChatModel,
			EmbeddingModel: cfg.EmbeddingModel,
			HTTPClient:     cfg.HTTPClient,
		}, logger)
	case ProviderOllama:
		return NewOllama(cfg.OllamaURL, cfg.EmbeddingModel, cfg.HTTPClient)
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
}

// NewAssistant returns the OpenAI assistant when an API key is configured, otherwise a heuristic
// assistant that parses intents locally and reports summaries as disabled.
func NewAssistant(cfg Config, logger *slog.Logger) Assistant {
	o, err := NewOpenAI(OpenAIConfig{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		ChatModel:  cfg.ChatModel,
		HTTPClient: cfg.HTTPClient,
	}, logger)
	if err != nil {
		return Heuristic{}
	}
	return &fallbackAssistant{primary: o, logger: logger}
}

// Heuristic is the Assistant used when no chat model is configured.
type Heuristic struct{}

func (Heuristic) Summarize(context.Context, SummaryInput) (string, error) {
	return "", custom_errors.ErrAIDisabled
}

func (Heuristic) ParseIntent(_ context.Context, query string) (SearchIntent, error) {
	return ParseIntentHeuristic(query), nil
}

// fallbackAssistant parses intents heuristically when the chat model fails.
type fallbackAssistant struct {
	primary *OpenAI
	logger  *slog.Logger
}

func (a *fallbackAssistant) Summarize(ctx context.Context, in SummaryInput) (string, error) {
	return a.primary.Summarize(ctx, in)
}

func (a *fallbackAssistant) ParseIntent(ctx context.Context, query string) (SearchIntent, error) {
	intent, err := a.primary.ParseIntent(ctx, query)
	if err != nil {
		a.logger.Warn("Intent parsing failed, using keyword rules", "error", err)
		return ParseIntentHeuristic(query), nil
	}
	return intent, nil
}

// SummaryInput is the repository data given to Summarize.
type SummaryInput struct {
	FullName    string
	Description string
	Language    string
	Topics      []string
	Stars       int
	Readme      string
}

func (in SummaryInput) prompt() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Repository: %s\n", in.FullName)
	if in.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", in.Description)
	}
	if in.Language != "" {
		fmt.Fprintf(&sb, "Language: %s\n", in.Language)
	}
	if len(in.Topics) > 0 {
		fmt.Fprintf(&sb, "Topics: %s\n", strings.Join(in.Topics, ", "))
	}
	fmt.Fprintf(&sb, "Stars: %d\n", in.Stars)
	if in.Readme != "" {
		sb.WriteString("README excerpt:\n")
		sb.WriteString(Excerpt(in.Readme, readmeExcerptBytes))
	}
	return sb.String()
}

// EmbeddingText builds the text embedded for a repository: name, description, topics, language
// and a README excerpt.
func EmbeddingText(fullName, description, language string, topics []string, readme string) string {
	parts := []string{fullName}
	if description != "" {
		parts = append(parts, description)
	}
	if language != "" {
		parts = append(parts, "Language: "+language)
	}
	if len(topics) > 0 {
		parts = append(parts, "Topics: "+strings.Join(topics, ", "))
	}
	if readme != "" {
		parts = append(parts, Excerpt(readme, readmeExcerptBytes))
	}
	return strings.Join(parts, "\n")
}

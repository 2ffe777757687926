// internal/ai/openai.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/retry"
	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"golang.org/x/time/rate"

	custom_errors "githop/internal/errors"
)

const (
	DefaultChatModel      = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"

	maxAttempts = 3
)

// OpenAIConfig configures the OpenAI client.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	HTTPClient     *http.Client
}

// OpenAI implements Embedder and Assistant on the OpenAI API.
type OpenAI struct {
	c              *sdk.Client
	chatModel      string
	embeddingModel string
	limiter        *rate.Limiter
	logger         *slog.Logger
}

// NewOpenAI returns a client for cfg. It returns ErrAIDisabled when no API key is set.
func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, custom_errors.ErrAIDisabled
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	c := sdk.NewClient(opts...)

	o := &OpenAI{
		c:              &c,
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		limiter:        rate.NewLimiter(rate.Every(time.Minute/60), 5),
		logger:         logger,
	}
	if o.chatModel == "" {
		o.chatModel = DefaultChatModel
	}
	if o.embeddingModel == "" {
		o.embeddingModel = DefaultEmbeddingModel
	}
	return o, nil
}

// withRetry runs fn, retrying server errors with backoff.
func (o *OpenAI) withRetry(ctx context.Context, op string, fn func() error) error {
	ret := retry.New(200*time.Millisecond, 5*time.Second)
	for attempt := 1; ; attempt++ {
		if err := o.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
		err := fn()
		if err == nil {
			return nil
		}
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 500 && attempt < maxAttempts && ret.Wait(ctx) {
			o.logger.Warn("Retrying OpenAI call", "op", op, "attempt", attempt, "error", err)
			continue
		}
		return fmt.Errorf("openai %s: %w", op, err)
	}
}

// Embed returns a EmbeddingDimensions-long vector for text.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	input := TruncateTokens(text, MaxEmbeddingTokens)
	var res *sdk.CreateEmbeddingResponse
	err := o.withRetry(ctx, "embed", func() error {
		var err error
		res, err = o.c.Embeddings.New(ctx, sdk.EmbeddingNewParams{
			Input:      sdk.EmbeddingNewParamsInputUnion{OfString: sdk.String(input)},
			Model:      sdk.EmbeddingModel(o.embeddingModel),
			Dimensions: sdk.Int(EmbeddingDimensions),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(res.Data) == 0 {
		return nil, errors.New("openai embed: empty response")
	}
	v := make([]float32, len(res.Data[0].Embedding))
	for i, f := range res.Data[0].Embedding {
		v[i] = float32(f)
	}
	return v, nil
}

func (o *OpenAI) complete(ctx context.Context, op, system, user string, jsonMode bool) (string, error) {
	params := sdk.ChatCompletionNewParams{
		Model: shared.ChatModel(o.chatModel),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.SystemMessage(system),
			sdk.UserMessage(user),
		},
	}
	if jsonMode {
		params.ResponseFormat = sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	var resp *sdk.ChatCompletion
	err := o.withRetry(ctx, op, func() error {
		var err error
		resp, err = o.c.Chat.Completions.New(ctx, params)
		return err
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) != 1 {
		return "", fmt.Errorf("openai %s: expected one choice, got %d", op, len(resp.Choices))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

const summarySystemPrompt = `You describe GitHub repositories for developers browsing a discovery site.
Answer with two or three plain sentences: what the project is, who it is for and what stands out.
No markdown, no lists, no marketing language.`

// Summarize returns a short plain-text description of a repository.
func (o *OpenAI) Summarize(ctx context.Context, in SummaryInput) (string, error) {
	return o.complete(ctx, "summarize", summarySystemPrompt, in.prompt(), false)
}

const intentSystemPrompt = `You turn a developer search query into filters. Reply with a JSON object with the keys
"text" (remaining free text or ""), "language" (a programming language or ""), "persona" (one of: %s, or ""),
"badge" (one of: %s, or "") and "sort" ("followers", "stars" or "").`

// ParseIntent asks the chat model to turn query into search filters. Unknown values are dropped.
func (o *OpenAI) ParseIntent(ctx context.Context, query string) (SearchIntent, error) {
	system := fmt.Sprintf(intentSystemPrompt, personaList(), badgeList())
	content, err := o.complete(ctx, "parse_intent", system, query, true)
	if err != nil {
		return SearchIntent{}, err
	}
	return decodeIntent(content)
}

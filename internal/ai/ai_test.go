// internal/ai/ai_test.go
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	custom_errors "githop/internal/errors"
)

func newTestOpenAI(t *testing.T, handler http.Handler) *OpenAI {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	o, err := NewOpenAI(OpenAIConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL + "/",
		HTTPClient: server.Client(),
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return o
}

func chatResponse(content string) string {
	encoded, _ := json.Marshal(content)
	return fmt.Sprintf(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":%s}}]}`, encoded)
}

func TestOpenAI_Embed(t *testing.T) {
	t.Run("sends dimensions and converts the vector", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/embeddings", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, float64(EmbeddingDimensions), body["dimensions"])
			assert.Equal(t, DefaultEmbeddingModel, body["model"])
			assert.Equal(t, "golang/go", body["input"])

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"object":"list","model":"text-embedding-3-small",
"data":[{"object":"embedding","index":0,"embedding":[0.5,-0.25,1]}],
"usage":{"prompt_tokens":3,"total_tokens":3}}`)
		})
		o := newTestOpenAI(t, handler)

		v, err := o.Embed(context.Background(), "golang/go")

		require.NoError(t, err)
		assert.Equal(t, []float32{0.5, -0.25, 1}, v)
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				fmt.Fprint(w, `{"error":{"message":"upstream"}}`)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1]}],
"model":"m","usage":{"prompt_tokens":1,"total_tokens":1}}`)
		})
		o := newTestOpenAI(t, handler)

		v, err := o.Embed(context.Background(), "x")

		require.NoError(t, err)
		assert.Len(t, v, 1)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
		})
		o := newTestOpenAI(t, handler)

		_, err := o.Embed(context.Background(), "x")

		require.Error(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestOpenAI_ParseIntent(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(raw), `"json_object"`)
		assert.Contains(t, string(raw), "ai_whisperer")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatResponse(`{"text":"compilers","language":"Rust","persona":"Language_Designer","badge":"gde","sort":"newest"}`))
	})
	o := newTestOpenAI(t, handler)

	intent, err := o.ParseIntent(context.Background(), "rust compiler people who are GDEs")

	require.NoError(t, err)
	assert.Equal(t, SearchIntent{
		Text:     "compilers",
		Language: "Rust",
		Persona:  "language_designer",
		Badge:    "GDE",
	}, intent)
}

func TestOpenAI_Summarize(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(raw), "Repository: golang/go")
		assert.Contains(t, string(raw), "Topics: language, compiler")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chatResponse("  The Go programming language.  "))
	})
	o := newTestOpenAI(t, handler)

	summary, err := o.Summarize(context.Background(), SummaryInput{
		FullName: "golang/go",
		Language: "Go",
		Topics:   []string{"language", "compiler"},
	})

	require.NoError(t, err)
	assert.Equal(t, "The Go programming language.", summary)
}

func TestNewEmbedder(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("none is disabled", func(t *testing.T) {
		_, err := NewEmbedder(Config{EmbeddingProvider: ProviderNone}, logger)
		assert.ErrorIs(t, err, custom_errors.ErrAIDisabled)
	})

	t.Run("openai without key is disabled", func(t *testing.T) {
		_, err := NewEmbedder(Config{EmbeddingProvider: ProviderOpenAI}, logger)
		assert.ErrorIs(t, err, custom_errors.ErrAIDisabled)
	})

	t.Run("ollama", func(t *testing.T) {
		e, err := NewEmbedder(Config{EmbeddingProvider: "Ollama", OllamaURL: "http://localhost:11434"}, logger)
		require.NoError(t, err)
		assert.IsType(t, &Ollama{}, e)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewEmbedder(Config{EmbeddingProvider: "cohere"}, logger)
		assert.Error(t, err)
	})
}

func TestOllama_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, DefaultOllamaModel, body["model"])
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"model":"all-minilm","embeddings":[[0.1,0.2]]}`)
	}))
	defer server.Close()

	o, err := NewOllama(server.URL, "", server.Client())
	require.NoError(t, err)

	v, err := o.Embed(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, v)
}

func TestHeuristicAssistant(t *testing.T) {
	a := NewAssistant(Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := a.Summarize(context.Background(), SummaryInput{FullName: "a/b"})
	assert.ErrorIs(t, err, custom_errors.ErrAIDisabled)

	intent, err := a.ParseIntent(context.Background(), "Elixir folks in Berlin")
	require.NoError(t, err)
	assert.Equal(t, "Elixir", intent.Language)
}

func TestParseIntentHeuristic(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  SearchIntent
	}{
		{
			name:  "language and leftover text",
			query: "Elixir folks in Berlin",
			want:  SearchIntent{Text: "folks Berlin", Language: "Elixir"},
		},
		{
			name:  "alias",
			query: "golang people",
			want:  SearchIntent{Language: "Go"},
		},
		{
			name:  "lowercase go is a verb",
			query: "where did they go",
			want:  SearchIntent{Text: "where did they go"},
		},
		{
			name:  "persona keyword with follower sort",
			query: "most followed rust devs",
			want:  SearchIntent{Language: "Rust", Persona: "systems_architect", Sort: "followers"},
		},
		{
			name:  "big tech alumni",
			query: "ex FAANG engineers",
			want:  SearchIntent{Badge: "BIG_TECH"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseIntentHeuristic(tt.query))
		})
	}

	t.Run("badge keyword", func(t *testing.T) {
		intent := ParseIntentHeuristic("docker captain who writes kotlin")
		assert.Equal(t, "DOCKER_CAPTAIN", intent.Badge)
		assert.Equal(t, "Kotlin", intent.Language)
		assert.Empty(t, intent.Text)
	})
}

func TestDecodeIntent(t *testing.T) {
	intent, err := decodeIntent(`{"text":" x ","persona":"AI_Whisperer","badge":"wizard","sort":"stars"}`)
	require.NoError(t, err)
	assert.Equal(t, SearchIntent{Text: "x", Persona: "ai_whisperer", Sort: "stars"}, intent)

	_, err = decodeIntent("not json")
	assert.Error(t, err)
}

func TestExcerptAndTokens(t *testing.T) {
	long := strings.Repeat("a", 3000) + strings.Repeat("z", 3000)
	got := Excerpt(long, 100)
	assert.Less(t, len(got), len(long))
	assert.True(t, strings.HasPrefix(got, "a"))
	assert.True(t, strings.HasSuffix(got, "z"))
	assert.Equal(t, "short", Excerpt("short", 100))

	text := strings.Repeat("hello world ", 50)
	assert.Greater(t, CountTokens(text), 50)
	assert.LessOrEqual(t, CountTokens(TruncateTokens(text, 10)), 10)
	assert.Equal(t, "hi", TruncateTokens("hi", 10))

	emb := EmbeddingText("golang/go", "The Go language", "Go", []string{"go"}, "")
	assert.Equal(t, "golang/go\nThe Go language\nLanguage: Go\nTopics: go", emb)
}

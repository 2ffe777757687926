// internal/ai/truncate.go
package ai

import (
	"strings"
	"sync"

	"github.com/ammario/prefixsuffix"
	"github.com/tiktoken-go/tokenizer"
)

// MaxEmbeddingTokens is the input limit of the embedding models.
const MaxEmbeddingTokens = 8191

// readmeExcerptBytes bounds how much of a README goes into an embedding or summary prompt.
const readmeExcerptBytes = 4000

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
	codecErr  error
)

func cl100k() (tokenizer.Codec, error) {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	return codec, codecErr
}

// TruncateTokens cuts text to at most max cl100k tokens. Text is returned unchanged when the
// tokenizer cannot be loaded.
func TruncateTokens(text string, max int) string {
	enc, err := cl100k()
	if err != nil {
		return text
	}
	ids, _, err := enc.Encode(text)
	if err != nil || len(ids) <= max {
		return text
	}
	out, err := enc.Decode(ids[:max])
	if err != nil {
		return text
	}
	return out
}

// CountTokens returns the number of cl100k tokens in text, or -1 if the tokenizer is unavailable.
func CountTokens(text string) int {
	enc, err := cl100k()
	if err != nil {
		return -1
	}
	ids, _, err := enc.Encode(text)
	if err != nil {
		return -1
	}
	return len(ids)
}

// Excerpt keeps the head and tail of s within n bytes.
func Excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	saver := prefixsuffix.Saver{N: n}
	saver.Write([]byte(s))
	return strings.ToValidUTF8(string(saver.Bytes()), "")
}

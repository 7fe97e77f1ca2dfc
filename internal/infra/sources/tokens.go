package sources

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

// TokenCounter estimates prompt sizes for debug output. The encoding is
// loaded on first use; when it cannot be loaded a four-bytes-per-token
// approximation is used instead.
type TokenCounter struct {
	model string
	once  sync.Once
	enc   *tiktoken.Tiktoken
}

// NewTokenCounter constructs a counter for model.
func NewTokenCounter(model string) *TokenCounter {
	return &TokenCounter{model: model}
}

// Count returns the estimated token count of all texts combined.
func (c *TokenCounter) Count(texts ...string) int {
	if c == nil {
		return approximateTokens(texts)
	}
	c.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(c.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding(fallbackEncoding)
		}
		if err == nil {
			c.enc = enc
		}
	})
	if c.enc == nil {
		return approximateTokens(texts)
	}
	total := 0
	for _, text := range texts {
		total += len(c.enc.Encode(text, nil, nil))
	}
	return total
}

func approximateTokens(texts []string) int {
	total := 0
	for _, text := range texts {
		total += (utf8.RuneCountInString(text) + 3) / 4
	}
	return total
}

package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yanqian/eventradar/internal/domain/events"
	"github.com/yanqian/eventradar/internal/domain/search"
	"github.com/yanqian/eventradar/internal/infra/llm/chatgpt"
	"github.com/yanqian/eventradar/pkg/metrics"
)

const defaultSystemPrompt = `You are an event researcher. Answer with a JSON array only, no prose.
Each element has the keys: title, category, date (YYYY-MM-DD), time (HH:MM or "ganztags"),
endTime, venue, address, price, website, description.
Only list events that take place on the requested day. Use an empty array when nothing is found.`

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

// GenerativeConfig wires the generative search provider.
type GenerativeConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Prompt      string
}

// GenerativeSource asks an OpenAI-compatible search model for events. The
// raw answer is returned unparsed; the search service parses it.
type GenerativeSource struct {
	cfg    GenerativeConfig
	client chatClient
	tokens *TokenCounter
	logger *slog.Logger
}

// NewGenerativeSource constructs the source.
func NewGenerativeSource(cfg GenerativeConfig, client chatClient, tokens *TokenCounter, logger *slog.Logger) *GenerativeSource {
	return &GenerativeSource{
		cfg:    cfg,
		client: client,
		tokens: tokens,
		logger: logger.With("component", "sources.generative"),
	}
}

// Name implements Source.
func (s *GenerativeSource) Name() string {
	return events.SourceAI
}

// Fetch implements Source.
func (s *GenerativeSource) Fetch(ctx context.Context, city, date string, category events.Category, opts search.FetchOptions) (search.RawResult, error) {
	if s.client == nil {
		return search.RawResult{}, fmt.Errorf("%w: generative client not configured", search.ErrSourceUnavailable)
	}
	messages := s.buildMessages(city, date, category)
	resp, err := s.client.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		return search.RawResult{}, classify(err)
	}

	usage := metrics.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	content := resp.Content()
	if usage.IsZero() && opts.Debug {
		usage.PromptTokens = s.tokens.Count(messages[0].Content, messages[1].Content)
		usage.CompletionTokens = s.tokens.Count(content)
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	s.logger.Debug("generative source answered",
		"city", city,
		"date", date,
		"category", category,
		"totalTokens", usage.TotalTokens,
		"contentLength", len(content),
	)
	return search.RawResult{
		Category: category,
		Source:   events.SourceAI,
		Content:  content,
		Usage:    usage,
	}, nil
}

func (s *GenerativeSource) buildMessages(city, date string, category events.Category) []chatgpt.Message {
	system := strings.TrimSpace(s.cfg.Prompt)
	if system == "" {
		system = defaultSystemPrompt
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Find events in %s on %s in the category %q.", city, date, category)
	b.WriteString(" Include concerts, club nights, exhibitions and similar listings that fit the category.")
	b.WriteString(" Report the category label the organiser uses.")
	return []chatgpt.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: b.String()},
	}
}

// classify marks failures retrying cannot fix as search.ErrSourceUnavailable.
func classify(err error) error {
	var statusErr *chatgpt.StatusError
	if errors.As(err, &statusErr) && !statusErr.Temporary() {
		return fmt.Errorf("%w: %v", search.ErrSourceUnavailable, err)
	}
	return err
}

var _ Source = (*GenerativeSource)(nil)

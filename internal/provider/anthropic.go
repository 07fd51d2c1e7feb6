package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/petasbytes/autotriage/internal/errs"
)

const DefaultAnthropicModel = "claude-sonnet-4-5"

// Anthropic talks to the Anthropic Messages API directly.
type Anthropic struct {
	client      anthropic.Client
	temperature float64
	maxTokens   int64
}

// NewAnthropic returns a backend using cfg.APIKey. BaseURL is only needed for
// proxies and tests.
func NewAnthropic(cfg Config) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, errs.New(errs.CodeProviderRequestInvalid, "anthropic: missing api_key in config")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" && cfg.BaseURL != OpenRouterBaseURL {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Anthropic{
		client:      anthropic.NewClient(opts...),
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

func (p *Anthropic) Name() string { return ProviderAnthropic }

func (p *Anthropic) Send(ctx context.Context, model string, msgs []Message) (string, error) {
	model = AnthropicModelName(model)
	system, convo := splitSystem(msgs)
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   p.maxTokens,
		Messages:    convo,
		Temperature: anthropic.Float(p.temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &StatusError{StatusCode: apiErr.StatusCode, Err: err}
		}
		return "", err
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", errs.New(errs.CodeProviderResponseEmpty,
			fmt.Sprintf("model %s returned empty response", model), errs.FieldModel(model))
	}
	return b.String(), nil
}

// AnthropicModelName maps an OpenRouter-style id such as
// "anthropic/claude-sonnet-4.5" onto the native "claude-sonnet-4-5".
func AnthropicModelName(model string) string {
	model = strings.TrimPrefix(model, "anthropic/")
	return strings.ReplaceAll(model, ".", "-")
}

// splitSystem lifts system messages into the top-level system prompt.
func splitSystem(msgs []Message) (string, []anthropic.MessageParam) {
	var system []string
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return strings.Join(system, "\n\n"), out
}

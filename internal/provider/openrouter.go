package provider

import (
	"context"
	"errors"
	"fmt"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/petasbytes/autotriage/internal/errs"
)

const (
	OpenRouterBaseURL      = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel = "anthropic/claude-sonnet-4.5"
)

// OpenRouter talks to OpenRouter's OpenAI-compatible chat completions API.
type OpenRouter struct {
	client      openaisdk.Client
	temperature float64
	maxTokens   int
}

func NewOpenRouter(cfg Config) (*OpenRouter, error) {
	if cfg.APIKey == "" {
		return nil, errs.New(errs.CodeProviderRequestInvalid, "openrouter: missing api_key in config")
	}
	base := OpenRouterBaseURL
	if cfg.BaseURL != "" {
		base = cfg.BaseURL
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(base),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &OpenRouter{
		client:      openaisdk.NewClient(opts...),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (p *OpenRouter) Name() string { return ProviderOpenRouter }

func (p *OpenRouter) Send(ctx context.Context, model string, msgs []Message) (string, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: convertOpenAIMessages(msgs),
	}
	if p.maxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(p.maxTokens))
	}
	params.Temperature = param.NewOpt(p.temperature)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openaisdk.Error
		if errors.As(err, &apiErr) {
			return "", &StatusError{StatusCode: apiErr.StatusCode, Err: err}
		}
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errs.New(errs.CodeProviderResponseEmpty,
			fmt.Sprintf("model %s returned empty response", model), errs.FieldModel(model))
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", errs.New(errs.CodeProviderResponseEmpty,
			fmt.Sprintf("model %s returned no content", model), errs.FieldModel(model))
	}
	return content, nil
}

func convertOpenAIMessages(msgs []Message) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openaisdk.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openaisdk.AssistantMessage(m.Content))
		default:
			out = append(out, openaisdk.UserMessage(m.Content))
		}
	}
	return out
}

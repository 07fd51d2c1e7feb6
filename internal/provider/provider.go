// Package provider sends conversations to a hosted language model and returns
// the raw assistant text.
//
// Two backends are available: OpenRouter (OpenAI-compatible, the default) and
// Anthropic. Both perform exactly one request per call; retries, backup-model
// switching and per-request timeouts live in Router.
package provider

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/petasbytes/autotriage/internal/errs"
)

// Role is the author of one conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a role-tagged conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Client completes a conversation. Implementations return the assistant's text
// unmodified.
type Client interface {
	Complete(ctx context.Context, msgs []Message) (string, error)
}

// Backend performs a single request against a single model.
type Backend interface {
	Name() string
	Send(ctx context.Context, model string, msgs []Message) (string, error)
}

// Backend names accepted by Config.Provider.
const (
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
)

// Defaults applied by Config.WithDefaults.
const (
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 5 * time.Second
	DefaultTimeout     = 300 * time.Second
	DefaultMaxTokens   = 4000
	DefaultTemperature = 0.1
)

// Config selects and tunes a backend.
type Config struct {
	Provider     string
	APIKey       string
	BaseURL      string
	PrimaryModel string
	BackupModel  string
	MaxRetries   int
	RetryDelay   time.Duration
	Timeout      time.Duration
	Temperature  float64
	MaxTokens    int
	// HTTPClient overrides the SDK transport; tests inject fake round trippers here.
	HTTPClient *http.Client
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if c.Provider == "" {
		c.Provider = ProviderOpenRouter
	}
	if c.PrimaryModel == "" {
		switch c.Provider {
		case ProviderAnthropic:
			c.PrimaryModel = DefaultAnthropicModel
		default:
			c.PrimaryModel = DefaultOpenRouterModel
		}
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	return c
}

// New builds the configured backend wrapped in the retry policy.
func New(cfg Config, opts ...RouterOption) (*Router, error) {
	cfg = cfg.WithDefaults()
	if cfg.APIKey == "" {
		return nil, errs.New(errs.CodeProviderRequestInvalid,
			"missing api_key for provider "+cfg.Provider, errs.Field("provider", cfg.Provider))
	}

	var (
		b   Backend
		err error
	)
	switch cfg.Provider {
	case ProviderOpenRouter:
		b, err = NewOpenRouter(cfg)
	case ProviderAnthropic:
		b, err = NewAnthropic(cfg)
	default:
		return nil, errs.New(errs.CodeProviderRequestInvalid,
			"unknown provider "+cfg.Provider, errs.Field("provider", cfg.Provider))
	}
	if err != nil {
		return nil, err
	}
	return NewRouter(b, cfg, opts...), nil
}

// StatusError carries the HTTP status of a failed API call.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string { return e.Err.Error() }

func (e *StatusError) Unwrap() error { return e.Err }

// statusOf returns the HTTP status recorded in err's chain, or 0.
func statusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

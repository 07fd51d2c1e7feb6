// Package config loads autotriage settings from defaults, an optional YAML
// file, AUTOTRIAGE_* environment variables and command-line flags.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/petasbytes/autotriage/internal/errs"
	"github.com/petasbytes/autotriage/internal/provider"
)

// EnvPrefix is prepended to every environment override, e.g.
// AUTOTRIAGE_MODEL_PRIMARY for model.primary.
const EnvPrefix = "AUTOTRIAGE"

// KnownIssuesSubdir is where known issues live under the workspace root
// when paths.known_issues_dir is unset.
const KnownIssuesSubdir = "_AutoTriageScripts/known_issues"

// Config is the top-level autotriage configuration.
type Config struct {
	Provider  string          `mapstructure:"provider"`
	APIKeys   APIKeysConfig   `mapstructure:"api_keys"`
	Model     ModelConfig     `mapstructure:"model"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Search    SearchConfig    `mapstructure:"search"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// APIKeysConfig holds provider credentials. They are normally supplied
// through OPENROUTER_API_KEY and ANTHROPIC_API_KEY.
type APIKeysConfig struct {
	OpenRouter string `mapstructure:"openrouter"`
	Anthropic  string `mapstructure:"anthropic"`
}

// ModelConfig controls model selection and the retry policy.
type ModelConfig struct {
	Primary     string        `mapstructure:"primary"`
	Backup      string        `mapstructure:"backup"`
	BaseURL     string        `mapstructure:"base_url"`
	MaxRetries  int           `mapstructure:"max_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
}

// AnalysisConfig bounds each investigation.
type AnalysisConfig struct {
	MaxIterations      int `mapstructure:"max_iterations"`
	ContextBudget      int `mapstructure:"context_budget"`
	ToolResultMaxRunes int `mapstructure:"tool_result_max_runes"`
}

// PathsConfig locates the workspace and the batch inputs and outputs.
type PathsConfig struct {
	WorkspaceRoot  string `mapstructure:"workspace_root"`
	InputDir       string `mapstructure:"input_dir"`
	OutputDir      string `mapstructure:"output_dir"`
	KnownIssuesDir string `mapstructure:"known_issues_dir"`
}

type SearchConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TelemetryConfig struct {
	Observe bool `mapstructure:"observe"`
}

// SetDefaults registers every key's default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("provider", provider.ProviderOpenRouter)
	v.SetDefault("api_keys.openrouter", "")
	v.SetDefault("api_keys.anthropic", "")
	v.SetDefault("model.primary", provider.DefaultOpenRouterModel)
	v.SetDefault("model.backup", "")
	v.SetDefault("model.base_url", provider.OpenRouterBaseURL)
	v.SetDefault("model.max_retries", provider.DefaultMaxRetries)
	v.SetDefault("model.retry_delay", provider.DefaultRetryDelay)
	v.SetDefault("model.timeout", provider.DefaultTimeout)
	v.SetDefault("model.temperature", provider.DefaultTemperature)
	v.SetDefault("model.max_tokens", provider.DefaultMaxTokens)
	v.SetDefault("analysis.max_iterations", 5)
	v.SetDefault("analysis.context_budget", 120000)
	v.SetDefault("analysis.tool_result_max_runes", 12000)
	v.SetDefault("paths.workspace_root", "")
	v.SetDefault("paths.input_dir", "analysis-inputs")
	v.SetDefault("paths.output_dir", "analysis-outputs")
	v.SetDefault("paths.known_issues_dir", "")
	v.SetDefault("search.timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetDefault("telemetry.observe", false)
}

// SetupEnv enables AUTOTRIAGE_* overrides and binds the conventional
// provider key variables.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("api_keys.openrouter", EnvPrefix+"_API_KEYS_OPENROUTER", "OPENROUTER_API_KEY")
	_ = v.BindEnv("api_keys.anthropic", EnvPrefix+"_API_KEYS_ANTHROPIC", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("telemetry.observe", EnvPrefix+"_TELEMETRY_OBSERVE", EnvPrefix+"_OBSERVE_JSON")
}

// Load reads configuration from path (optional) with environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errs.Errorf(errs.CodeConfigReadFailure, "reading config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes a prepared viper instance, resolves derived paths and
// validates the result.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.Errorf(errs.CodeConfigInvalidValue, "unmarshalling config: %w", err)
	}
	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, errs.Errorf(errs.CodeConfigInvalidValue, "validating config: %w", errors.Join(problems...))
	}
	return &cfg, nil
}

func (c *Config) resolvePaths() error {
	if c.Paths.WorkspaceRoot == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return errs.Wrap(err, errs.CodeConfigReadFailure, "resolve working directory")
		}
		c.Paths.WorkspaceRoot = cwd
	}
	if c.Paths.KnownIssuesDir == "" {
		c.Paths.KnownIssuesDir = filepath.Join(c.Paths.WorkspaceRoot, filepath.FromSlash(KnownIssuesSubdir))
	}
	return nil
}

// APIKey returns the credential for the configured provider.
func (c *Config) APIKey() string {
	if c.Provider == provider.ProviderAnthropic {
		return c.APIKeys.Anthropic
	}
	return c.APIKeys.OpenRouter
}

// APIKeyEnv names the environment variable the configured provider reads its key from.
func (c *Config) APIKeyEnv() string {
	if c.Provider == provider.ProviderAnthropic {
		return "ANTHROPIC_API_KEY"
	}
	return "OPENROUTER_API_KEY"
}

// ProviderConfig maps the model section onto the provider client config.
// The OpenRouter default model and base URL are swapped for the Anthropic
// equivalents when the Anthropic backend is selected.
func (c *Config) ProviderConfig() provider.Config {
	pc := provider.Config{
		Provider:     c.Provider,
		APIKey:       c.APIKey(),
		BaseURL:      c.Model.BaseURL,
		PrimaryModel: c.Model.Primary,
		BackupModel:  c.Model.Backup,
		MaxRetries:   c.Model.MaxRetries,
		RetryDelay:   c.Model.RetryDelay,
		Timeout:      c.Model.Timeout,
		Temperature:  c.Model.Temperature,
		MaxTokens:    c.Model.MaxTokens,
	}
	if c.Provider == provider.ProviderAnthropic {
		if pc.BaseURL == provider.OpenRouterBaseURL {
			pc.BaseURL = ""
		}
		pc.PrimaryModel = provider.AnthropicModelName(pc.PrimaryModel)
		if pc.BackupModel != "" {
			pc.BackupModel = provider.AnthropicModelName(pc.BackupModel)
		}
	}
	return pc
}

// Validate collects every configuration problem rather than stopping at the first.
// Missing API keys are not checked here; commands that call a model check them.
func (c *Config) Validate() []error {
	var problems []error
	invalid := func(format string, args ...any) {
		problems = append(problems, errs.Errorf(errs.CodeConfigInvalidValue, "config: "+format, args...))
	}

	switch c.Provider {
	case provider.ProviderOpenRouter, provider.ProviderAnthropic:
	default:
		invalid("provider must be one of [%s, %s], got %q",
			provider.ProviderOpenRouter, provider.ProviderAnthropic, c.Provider)
	}
	if strings.TrimSpace(c.Model.Primary) == "" {
		invalid("model.primary must not be empty")
	}
	if c.Model.MaxRetries < 1 {
		invalid("model.max_retries must be at least 1, got %d", c.Model.MaxRetries)
	}
	if c.Model.RetryDelay < 0 {
		invalid("model.retry_delay must not be negative, got %s", c.Model.RetryDelay)
	}
	if c.Model.Timeout <= 0 {
		invalid("model.timeout must be greater than 0, got %s", c.Model.Timeout)
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		invalid("model.temperature must be between 0 and 2, got %g", c.Model.Temperature)
	}
	if c.Model.MaxTokens <= 0 {
		invalid("model.max_tokens must be greater than 0, got %d", c.Model.MaxTokens)
	}
	if c.Analysis.MaxIterations < 1 {
		invalid("analysis.max_iterations must be at least 1, got %d", c.Analysis.MaxIterations)
	}
	if c.Analysis.ContextBudget < 0 {
		invalid("analysis.context_budget must not be negative, got %d", c.Analysis.ContextBudget)
	}
	if c.Analysis.ToolResultMaxRunes < 0 {
		invalid("analysis.tool_result_max_runes must not be negative, got %d", c.Analysis.ToolResultMaxRunes)
	}
	if c.Paths.InputDir == "" {
		invalid("paths.input_dir must not be empty")
	}
	if c.Paths.OutputDir == "" {
		invalid("paths.output_dir must not be empty")
	}
	if c.Search.Timeout <= 0 {
		invalid("search.timeout must be greater than 0, got %s", c.Search.Timeout)
	}
	switch strings.ToLower(c.Log.Format) {
	case "auto", "console", "json":
	default:
		invalid("log.format must be one of [auto, console, json], got %q", c.Log.Format)
	}
	return problems
}

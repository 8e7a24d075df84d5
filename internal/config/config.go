// Package config loads cinechat settings from a JSON file and CINECHAT_*
// environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cinechat/internal/chat"
	"cinechat/internal/llm"

	"github.com/joho/godotenv"
)

// DefaultPath is read when no explicit config file is given. A missing file
// there is not an error.
const DefaultPath = "~/.cinechat/config.json"

const (
	defaultProvider     = llm.ProviderOpenAI
	defaultBaseURL      = "http://0.0.0.0:4000"
	defaultModel        = "mistral"
	defaultTemperature  = 0.2
	defaultMaxTokens    = 500
	defaultModelTimeout = 2 * time.Minute
	defaultToolTimeout  = 30 * time.Second
)

type Config struct {
	Provider    llm.Provider `json:"provider"`
	Model       string       `json:"model"`
	BaseURL     string       `json:"base_url,omitempty"`
	APIKey      string       `json:"api_key,omitempty"`
	Temperature float64      `json:"temperature"`
	MaxTokens   int          `json:"max_tokens"`

	MaxCallDepth            int                     `json:"max_call_depth"`
	ModelTimeout            Duration                `json:"model_timeout"`
	ToolTimeout             Duration                `json:"tool_timeout"`
	ConfirmationSource      chat.ConfirmationSource `json:"confirmation_source"`
	ConfirmPolicy           chat.ConfirmPolicy      `json:"confirm_policy"`
	LegacyNameMatching      bool                    `json:"legacy_name_matching,omitempty"`
	RepromptOnArgumentError bool                    `json:"reprompt_on_argument_error,omitempty"`

	TracePath string `json:"trace_path,omitempty"`
	LogLevel  string `json:"log_level,omitempty"`
}

// Duration is a time.Duration written as "30s" in JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func Default() Config {
	return Config{
		Provider:           defaultProvider,
		Model:              defaultModel,
		BaseURL:            defaultBaseURL,
		Temperature:        defaultTemperature,
		MaxTokens:          defaultMaxTokens,
		MaxCallDepth:       chat.DefaultMaxCallDepth,
		ModelTimeout:       Duration(defaultModelTimeout),
		ToolTimeout:        Duration(defaultToolTimeout),
		ConfirmationSource: chat.ConfirmationTemplate,
		ConfirmPolicy:      chat.ConfirmPurchase,
		LogLevel:           "info",
	}
}

// Load builds the runtime configuration. Later sources win: defaults, then
// the JSON file at path (DefaultPath when empty), then the environment
// (including a .env file in the working directory).
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	optional := path == ""
	if optional {
		path = DefaultPath
	}
	if err := cfg.mergeFile(path); err != nil {
		if !(optional && errors.Is(err, fs.ErrNotExist)) {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	expanded, err := expandHome(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CINECHAT_PROVIDER"); v != "" {
		c.Provider = llm.Provider(v)
	}
	if v := os.Getenv("CINECHAT_MODEL"); v != "" {
		c.Model = v
	}
	if v, ok := os.LookupEnv("CINECHAT_BASE_URL"); ok {
		c.BaseURL = v
	}
	if v := os.Getenv("CINECHAT_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("CINECHAT_TRACE_PATH"); v != "" {
		c.TracePath = v
	}
	if v := os.Getenv("CINECHAT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CINECHAT_CONFIRMATION_SOURCE"); v != "" {
		c.ConfirmationSource = chat.ConfirmationSource(v)
	}
	if v := os.Getenv("CINECHAT_CONFIRM_POLICY"); v != "" {
		c.ConfirmPolicy = chat.ConfirmPolicy(v)
	}

	if v := os.Getenv("CINECHAT_TEMPERATURE"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse CINECHAT_TEMPERATURE: %w", err)
		}
		c.Temperature = parsed
	}
	for name, dst := range map[string]*int{
		"CINECHAT_MAX_TOKENS":     &c.MaxTokens,
		"CINECHAT_MAX_CALL_DEPTH": &c.MaxCallDepth,
	} {
		if v := os.Getenv(name); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("parse %s: %w", name, err)
			}
			*dst = parsed
		}
	}
	for name, dst := range map[string]*Duration{
		"CINECHAT_MODEL_TIMEOUT": &c.ModelTimeout,
		"CINECHAT_TOOL_TIMEOUT":  &c.ToolTimeout,
	} {
		if v := os.Getenv(name); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("parse %s: %w", name, err)
			}
			*dst = Duration(parsed)
		}
	}
	for name, dst := range map[string]*bool{
		"CINECHAT_LEGACY_NAME_MATCHING":       &c.LegacyNameMatching,
		"CINECHAT_REPROMPT_ON_ARGUMENT_ERROR": &c.RepromptOnArgumentError,
	} {
		if v := os.Getenv(name); v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("parse %s: %w", name, err)
			}
			*dst = parsed
		}
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if !knownProvider(c.Provider) {
		errs = append(errs, fmt.Errorf("unsupported provider %q", c.Provider))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be within [0, 2], got %v", c.Temperature))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("max_tokens must be >= 0, got %d", c.MaxTokens))
	}
	if c.MaxCallDepth < 1 {
		errs = append(errs, fmt.Errorf("max_call_depth must be > 0, got %d", c.MaxCallDepth))
	}
	if c.ModelTimeout < 0 || c.ToolTimeout < 0 {
		errs = append(errs, errors.New("timeouts must be >= 0"))
	}
	switch c.ConfirmationSource {
	case chat.ConfirmationTemplate, chat.ConfirmationTool:
	default:
		errs = append(errs, fmt.Errorf("confirmation_source must be %q or %q, got %q", chat.ConfirmationTemplate, chat.ConfirmationTool, c.ConfirmationSource))
	}
	switch c.ConfirmPolicy {
	case chat.ConfirmPurchase, chat.ConfirmDryRun:
	default:
		errs = append(errs, fmt.Errorf("confirm_policy must be %q or %q, got %q", chat.ConfirmPurchase, chat.ConfirmDryRun, c.ConfirmPolicy))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}

// Save writes c as indented JSON, creating parent directories.
func (c Config) Save(path string) error {
	expanded, err := expandHome(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	// The file may hold an API key.
	return os.WriteFile(expanded, data, 0o600)
}

func knownProvider(p llm.Provider) bool {
	for _, known := range llm.Providers {
		if p == known {
			return true
		}
	}
	return false
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}

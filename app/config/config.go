package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config.yaml"

type Config struct {
	Log      Log      `yaml:"log"`
	Mastodon Mastodon `yaml:"mastodon"`
	OpenAI   OpenAI   `yaml:"openai"`
	Bot      Bot      `yaml:"bot"`
	HTTP     HTTP     `yaml:"http"`
}

type Mastodon struct {
	// Instance base url
	BaseURL string `yaml:"base_url" example:"https://mastodon.social" validate:"required,url"`
	// Access token of the bot account
	AccessToken string `yaml:"access_token" example:"AbCdEf123456" validate:"required"`
	// Streaming API url, derived from base_url when empty
	StreamingURL string `yaml:"streaming_url" example:"wss://mastodon.social/api/v1/streaming" validate:"required,url"`
	// Stream subscription
	Stream string `yaml:"stream" example:"user:notification" validate:"required"`
	// Visibility of free posts
	Visibility Visibility `yaml:"visibility" example:"unlisted" validate:"required,oneof=public unlisted private direct"`
	// Maximum characters per status
	CharLimit int `yaml:"char_limit" example:"500" validate:"gte=50"`
	// REST request timeout
	Timeout time.Duration `yaml:"timeout" example:"30s" validate:"gt=0"`
	// Reconnect when the stream stays silent this long; Mastodon sends a
	// heartbeat every few seconds
	IdleTimeout time.Duration `yaml:"idle_timeout" example:"5m" validate:"gt=0"`
}

type OpenAI struct {
	// OpenAI base url
	BaseURL string `yaml:"base_url" example:"https://api.openai.com/v1" validate:"required,url"`
	// OpenAI token
	APIKey string `yaml:"api_key" example:"sk-proj-abc123" validate:"required"`
	// Model used for free posts, usually a fine-tuned one
	Model string `yaml:"model" example:"ft:gpt-4.1-mini:org::abc" validate:"required"`
	// Model used for replies
	ReplyModel string `yaml:"reply_model" example:"gpt-4.1-mini" validate:"required"`
	// Temperature of replies
	ReplyTemperature float64 `yaml:"reply_temperature" example:"0.7" validate:"gte=0,lte=2"`
	// Temperature of free posts
	FreePostTemperature float64 `yaml:"free_post_temperature" example:"0.8" validate:"gte=0,lte=2"`
	// Always offer the web search tool
	EnableWebSearch bool `yaml:"enable_web_search" example:"false"`
	// Request timeout
	Timeout time.Duration `yaml:"timeout" example:"90s" validate:"gt=0"`
}

type Bot struct {
	// Prompt set file (JSON or YAML)
	PromptsPath string `yaml:"prompts_path" example:"config/prompts.json" validate:"required"`
	// SQLite database with conversation state
	DBPath string `yaml:"db_path" example:"bot_state.sqlite" validate:"required"`
	// Interval between free posts
	FreePostInterval time.Duration `yaml:"free_post_interval" example:"1h" validate:"gte=1m"`
	// Post once right after startup
	FreePostOnStart bool `yaml:"free_post_on_start" example:"false"`
	// Minimum spacing between model calls
	ReplyMinInterval time.Duration `yaml:"reply_min_interval" example:"3s" validate:"gte=0"`
	// Delay between stream reconnect attempts
	ReconnectDelay time.Duration `yaml:"reconnect_delay" example:"5s" validate:"gt=0"`
	// Upper bound for handling a single mention
	HandlerTimeout time.Duration `yaml:"handler_timeout" example:"3m" validate:"gt=0"`
}

type HTTP struct {
	// Status endpoint listen address, disabled when empty
	Listen string `yaml:"listen" example:":8080"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load() (*Config, error) {
	for _, f := range []string{".env", ".env.local"} {
		// does not overwrite variables that are already set
		_ = godotenv.Load(f)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	return LoadFrom(path)
}

// LoadFrom reads the YAML file at path over the defaults (missing file is
// fine, the bot can be configured from the environment alone), applies
// environment overrides, and validates the result.
func LoadFrom(path string) (*Config, error) {
	result := defaults()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Debug("Config file not found, using environment only", "path", path)
	case err != nil:
		return nil, oops.Errorf("failed to read config file: %w", err)
	default:
		if err = yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &result); err != nil {
			return nil, oops.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if err = applyEnv(&result); err != nil {
		return nil, err
	}

	derive(&result)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err = validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

// defaults seeds the config before the file and the environment are applied,
// so an explicit zero in either one is kept.
func defaults() Config {
	return Config{
		Mastodon: Mastodon{
			Stream:      "user:notification",
			Visibility:  VisibilityUnlisted,
			CharLimit:   500,
			Timeout:     30 * time.Second,
			IdleTimeout: 5 * time.Minute,
		},
		OpenAI: OpenAI{
			BaseURL:             "https://api.openai.com/v1",
			ReplyModel:          "gpt-4.1-mini",
			ReplyTemperature:    0.7,
			FreePostTemperature: 0.8,
			Timeout:             90 * time.Second,
		},
		Bot: Bot{
			PromptsPath:      "config/prompts.json",
			DBPath:           "bot_state.sqlite",
			FreePostInterval: time.Hour,
			ReplyMinInterval: 3 * time.Second,
			ReconnectDelay:   5 * time.Second,
			HandlerTimeout:   3 * time.Minute,
		},
	}
}

func derive(cfg *Config) {
	cfg.Mastodon.BaseURL = strings.TrimRight(cfg.Mastodon.BaseURL, "/")
	if cfg.Mastodon.StreamingURL == "" {
		cfg.Mastodon.StreamingURL = DefaultStreamingURL(cfg.Mastodon.BaseURL)
	}
}

// DefaultStreamingURL maps https://host to wss://host/api/v1/streaming.
func DefaultStreamingURL(baseURL string) string {
	if rest, ok := strings.CutPrefix(baseURL, "https://"); ok {
		return "wss://" + rest + "/api/v1/streaming"
	}
	if rest, ok := strings.CutPrefix(baseURL, "http://"); ok {
		return "ws://" + rest + "/api/v1/streaming"
	}

	return baseURL
}

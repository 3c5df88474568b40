package config

import (
	"os"
	"strconv"
	"time"

	"github.com/samber/oops"
)

// envOverride binds one environment variable to a config field. The variable
// names match the ones the bot has always been deployed with.
type envOverride struct {
	key   string
	apply func(cfg *Config, value string) error
}

var envOverrides = []envOverride{
	{"MASTODON_BASE_URL", setString(func(c *Config) *string { return &c.Mastodon.BaseURL })},
	{"MASTODON_ACCESS_TOKEN", setString(func(c *Config) *string { return &c.Mastodon.AccessToken })},
	{"MASTODON_STREAMING_URL", setString(func(c *Config) *string { return &c.Mastodon.StreamingURL })},
	{"MASTODON_POST_VISIBILITY", func(c *Config, v string) error {
		visibility, err := ParseVisibility(v)
		if err != nil {
			return err
		}
		c.Mastodon.Visibility = visibility
		return nil
	}},
	{"MASTODON_CHAR_LIMIT", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		c.Mastodon.CharLimit = n
		return err
	}},
	{"OPENAI_BASE_URL", setString(func(c *Config) *string { return &c.OpenAI.BaseURL })},
	{"OPENAI_API_KEY", setString(func(c *Config) *string { return &c.OpenAI.APIKey })},
	{"OPENAI_MODEL", setString(func(c *Config) *string { return &c.OpenAI.Model })},
	{"OPENAI_REPLY_MODEL", setString(func(c *Config) *string { return &c.OpenAI.ReplyModel })},
	{"REPLY_TEMPERATURE", setFloat(func(c *Config) *float64 { return &c.OpenAI.ReplyTemperature })},
	{"FREE_TOOT_TEMPERATURE", setFloat(func(c *Config) *float64 { return &c.OpenAI.FreePostTemperature })},
	{"ENABLE_WEB_SEARCH", func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		c.OpenAI.EnableWebSearch = b
		return err
	}},
	{"PROMPTS_PATH", setString(func(c *Config) *string { return &c.Bot.PromptsPath })},
	{"BOT_DB_PATH", setString(func(c *Config) *string { return &c.Bot.DBPath })},
	{"FREE_TOOT_INTERVAL_SECS", setDuration(time.Second, func(c *Config) *time.Duration { return &c.Bot.FreePostInterval })},
	{"REPLY_MIN_INTERVAL_MS", setDuration(time.Millisecond, func(c *Config) *time.Duration { return &c.Bot.ReplyMinInterval })},
	{"HTTP_LISTEN", setString(func(c *Config) *string { return &c.HTTP.Listen })},
}

func applyEnv(cfg *Config) error {
	for _, o := range envOverrides {
		value, ok := os.LookupEnv(o.key)
		if !ok || value == "" {
			continue
		}

		if err := o.apply(cfg, value); err != nil {
			return oops.
				In("config").
				With("key", o.key).
				With("value", value).
				Wrapf(err, "failed to parse environment variable")
		}
	}

	return nil
}

func setString(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func setFloat(field func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

func setDuration(unit time.Duration, field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		*field(c) = time.Duration(n) * unit
		return nil
	}
}

package config

import "log/slog"

var _ slog.LogValuer = (*Config)(nil)

// LogValue renders the config with secrets masked.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("mastodon_base_url", c.Mastodon.BaseURL),
		slog.String("mastodon_token", mask(c.Mastodon.AccessToken)),
		slog.String("streaming_url", c.Mastodon.StreamingURL),
		slog.String("stream", c.Mastodon.Stream),
		slog.String("visibility", c.Mastodon.Visibility.String()),
		slog.Int("char_limit", c.Mastodon.CharLimit),
		slog.Duration("stream_idle_timeout", c.Mastodon.IdleTimeout),
		slog.String("openai_base_url", c.OpenAI.BaseURL),
		slog.String("openai_api_key", mask(c.OpenAI.APIKey)),
		slog.String("model", c.OpenAI.Model),
		slog.String("reply_model", c.OpenAI.ReplyModel),
		slog.Float64("reply_temperature", c.OpenAI.ReplyTemperature),
		slog.Float64("free_post_temperature", c.OpenAI.FreePostTemperature),
		slog.Bool("enable_web_search", c.OpenAI.EnableWebSearch),
		slog.String("prompts_path", c.Bot.PromptsPath),
		slog.String("db_path", c.Bot.DBPath),
		slog.Duration("free_post_interval", c.Bot.FreePostInterval),
		slog.Duration("reply_min_interval", c.Bot.ReplyMinInterval),
		slog.Duration("reconnect_delay", c.Bot.ReconnectDelay),
		slog.String("http_listen", c.HTTP.Listen),
	)
}

func mask(s string) string {
	if len(s) <= 6 {
		return "***"
	}

	return s[:3] + "***"
}

package prompts

import (
	_ "embed"
	"errors"
	"io/fs"
	"log/slog"
	"mastogpt/app/client/llm"
	"mastogpt/app/config"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/samber/do"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

//go:embed default_prompts.json
var defaultPrompts []byte

// Set holds the message templates. Templates may contain {{USER_TEXT}} and
// {{CONTEXT}} placeholders.
type Set struct {
	ReplyWithContext    []llm.Message `yaml:"reply_with_context" validate:"required,min=1,dive"`
	ReplyWithoutContext []llm.Message `yaml:"reply_without_context" validate:"required,min=1,dive"`
	FreePostMorning     []llm.Message `yaml:"free_post_morning" validate:"required,min=1,dive"`
	FreePostDay         []llm.Message `yaml:"free_post_day" validate:"required,min=1,dive"`
	FreePostNight       []llm.Message `yaml:"free_post_night" validate:"required,min=1,dive"`
}

func New(di *do.Injector) (*Set, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return Load(cfg.Bot.PromptsPath)
}

// Load reads a JSON or YAML prompt file. The built-in set is used when the
// file does not exist.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Warn("Prompt file not found, using built-in prompts", "path", path)
		data = defaultPrompts
	case err != nil:
		return nil, oops.In("prompts").With("path", path).Wrapf(err, "failed to read prompt file")
	}

	return Parse(data)
}

func Parse(data []byte) (*Set, error) {
	var set Set

	// JSON documents are valid YAML
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, oops.In("prompts").Wrapf(err, "failed to parse prompt file")
	}

	if err := validator.New().Struct(set); err != nil {
		return nil, oops.In("prompts").Wrapf(err, "invalid prompt file")
	}

	return &set, nil
}

// Clone returns a copy of messages that callers may modify.
func Clone(messages []llm.Message) []llm.Message {
	result := make([]llm.Message, len(messages))
	copy(result, messages)

	return result
}

package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"mastogpt/app/client/llm"
	"mastogpt/app/config"
	"mastogpt/app/service/prompts"
	"strings"
	"time"

	"github.com/samber/do"
)

const (
	replyMaxTokens      = 140
	shortRetryMaxTokens = 120
	echoRetryMaxTokens  = 1024
	freePostMaxTokens   = 1024

	searchContextSize = "low"
)

type Model interface {
	Respond(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Service turns mentions into replies and generates free posts.
type Service struct {
	cfg     config.OpenAI
	prompts *prompts.Set
	model   Model
	now     func() time.Time
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(
		cfg.OpenAI,
		do.MustInvoke[*prompts.Set](di),
		do.MustInvoke[*llm.Client](di),
	), nil
}

func NewService(cfg config.OpenAI, set *prompts.Set, model Model) *Service {
	return &Service{
		cfg:     cfg,
		prompts: set,
		model:   model,
		now:     time.Now,
	}
}

// GenerateReply calls the reply model and repairs degraded output. Blank or
// truncated answers get one retry with a tighter prompt; answers that repeat
// the question get another. Model call errors are returned as is.
func (s *Service) GenerateReply(ctx context.Context, req ReplyRequest) (*ReplyResult, error) {
	forceSearch := ShouldForceSearch(req.UserText)
	webSearch := forceSearch || s.cfg.EnableWebSearch

	res, err := s.call(ctx, llm.Request{
		Messages:           buildInitialMessages(s.prompts, req, forceSearch, s.now()),
		MaxOutputTokens:    replyMaxTokens,
		PreviousResponseID: req.PreviousResponseID,
		WebSearch:          webSearch,
	})
	if err != nil {
		return nil, fmt.Errorf("reply call: %w", err)
	}

	if strings.TrimSpace(res.Text) == "" || res.Status == llm.StatusIncomplete {
		slog.Debug("Reply is blank or incomplete, retrying with a shorter prompt",
			"response_id", res.ID,
			"status", res.Status)

		retry, err := s.call(ctx, llm.Request{
			Messages:        buildShortRetryMessages(s.prompts, req, s.now()),
			MaxOutputTokens: shortRetryMaxTokens,
			WebSearch:       webSearch,
		})
		if err != nil {
			return nil, fmt.Errorf("short retry call: %w", err)
		}
		if strings.TrimSpace(retry.Text) != "" {
			res = retry
		}
	}

	if !forceSearch && IsEcho(req.UserText, strings.TrimSpace(res.Text)) {
		slog.Debug("Reply repeats the mention, retrying", "response_id", res.ID)

		retry, err := s.call(ctx, llm.Request{
			Messages:        buildEchoRetryMessages(s.prompts, req),
			MaxOutputTokens: echoRetryMaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("echo retry call: %w", err)
		}
		if strings.TrimSpace(retry.Text) != "" {
			res = retry
		}
	}

	return &ReplyResult{
		Text:       sanitize(res.Text),
		ResponseID: res.ID,
		Status:     res.Status,
	}, nil
}

func (s *Service) call(ctx context.Context, req llm.Request) (*llm.Response, error) {
	req.Model = s.cfg.ReplyModel
	req.Temperature = llm.Float(s.cfg.ReplyTemperature)
	if req.WebSearch {
		req.SearchContextSize = searchContextSize
	}

	return s.model.Respond(ctx, req)
}

// GenerateFreePost produces an unprompted post for the current JST time of
// day and season.
func (s *Service) GenerateFreePost(ctx context.Context) (string, error) {
	messages, current := buildFreePostMessages(s.prompts, s.now())

	slog.Debug("Generating free post", "slot", current.name)

	res, err := s.model.Respond(ctx, llm.Request{
		Model:           s.cfg.Model,
		Messages:        messages,
		Temperature:     llm.Float(s.cfg.FreePostTemperature),
		MaxOutputTokens: freePostMaxTokens,
		WebSearch:       s.cfg.EnableWebSearch,
	})
	if err != nil {
		return "", fmt.Errorf("free post call: %w", err)
	}

	return strings.TrimSpace(res.Text), nil
}

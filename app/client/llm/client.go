package llm

import (
	"context"
	"mastogpt/app/config"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
	"github.com/samber/do"
	"github.com/samber/oops"
)

// Client calls the OpenAI Responses API. The SDK's own retries are disabled:
// the reply pipeline has its own retry policy and must not multiply calls.
type Client struct {
	api openai.Client
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return New(cfg.OpenAI, &http.Client{Timeout: cfg.OpenAI.Timeout}), nil
}

func New(cfg config.OpenAI, httpClient *http.Client) *Client {
	return &Client{
		api: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.BaseURL),
			option.WithHTTPClient(httpClient),
			option.WithMaxRetries(0),
		),
	}
}

func (c *Client) Respond(ctx context.Context, req Request) (*Response, error) {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(req.Model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: buildInput(req.Messages),
		},
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxOutputTokens > 0 {
		params.MaxOutputTokens = openai.Int(req.MaxOutputTokens)
	}
	if req.PreviousResponseID != "" {
		params.PreviousResponseID = openai.String(req.PreviousResponseID)
	}
	if req.WebSearch {
		tool := responses.ToolParamOfWebSearchPreview(responses.WebSearchPreviewToolTypeWebSearchPreview)
		if req.SearchContextSize != "" {
			tool.OfWebSearchPreview.SearchContextSize = responses.WebSearchPreviewToolSearchContextSize(req.SearchContextSize)
		}
		params.Tools = append(params.Tools, tool)
	}

	resp, err := c.api.Responses.New(ctx, params)
	if err != nil {
		return nil, oops.
			In("llm").
			With("model", req.Model).
			With("previous_response_id", req.PreviousResponseID).
			Wrapf(err, "responses call failed")
	}

	return &Response{
		ID:     resp.ID,
		Text:   extractOutputText(resp),
		Status: string(resp.Status),
	}, nil
}

func buildInput(messages []Message) responses.ResponseInputParam {
	input := make(responses.ResponseInputParam, 0, len(messages))

	for _, m := range messages {
		var role responses.EasyInputMessageRole
		switch m.Role {
		case RoleSystem:
			role = responses.EasyInputMessageRoleSystem
		case RoleDeveloper:
			role = responses.EasyInputMessageRoleDeveloper
		case RoleAssistant:
			role = responses.EasyInputMessageRoleAssistant
		default:
			role = responses.EasyInputMessageRoleUser
		}

		input = append(input, responses.ResponseInputItemParamOfMessage(m.Content, role))
	}

	return input
}

// extractOutputText joins every output_text part of every message item with
// newlines. Tool call items (web search) carry no text and are skipped.
func extractOutputText(resp *responses.Response) string {
	var parts []string

	for _, item := range resp.Output {
		msg, ok := item.AsAny().(responses.ResponseOutputMessage)
		if !ok {
			continue
		}

		for _, part := range msg.Content {
			if (part.Type == "output_text" || part.Type == "text") && part.Text != "" {
				parts = append(parts, part.Text)
			}
		}
	}

	return strings.Join(parts, "\n")
}

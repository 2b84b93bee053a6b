// Package openai sends prompts to OpenAI chat completion models.
package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/your-org/genie/internal/apperr"
	"github.com/your-org/genie/pkg/adapters"
)

const providerName = "openai"

type Options struct {
	// BaseURL overrides the API root, including the /v1 suffix.
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client implements adapters.Provider for the chat completions API.
type Client struct {
	apiKey string
	api    *goopenai.Client
	log    zerolog.Logger
}

func NewClient(apiKey string, opts Options) *Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	return &Client{apiKey: apiKey, api: goopenai.NewClientWithConfig(cfg), log: opts.Logger}
}

func (c *Client) Name() string { return providerName }

func (c *Client) SendPromptToModel(ctx context.Context, req adapters.ExecutionRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if strings.TrimSpace(c.apiKey) == "" {
		return "", apperr.Provider(providerName, req.ModelID, adapters.ErrMissingAPIKey)
	}

	c.log.Debug().
		Str("model", req.ModelID).
		Str("system_prompt", req.SystemMessage()).
		Str("user_prompt", req.UserPrompt).
		Msg("sending prompt")

	resp, err := c.api.CreateChatCompletion(ctx, buildRequest(req))
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			err = fmt.Errorf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", c.fail(req.ModelID, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", c.fail(req.ModelID, adapters.ErrEmptyResponse)
	}

	text := resp.Choices[0].Message.Content
	c.log.Debug().Str("model", req.ModelID).Str("response", text).Msg("model responded")
	return text, nil
}

func buildRequest(req adapters.ExecutionRequest) goopenai.ChatCompletionRequest {
	out := goopenai.ChatCompletionRequest{Model: req.ModelID}
	if sys := req.SystemMessage(); sys != "" {
		out.Messages = append(out.Messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: sys})
	}
	out.Messages = append(out.Messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: req.UserPrompt})

	if req.HasTemperature() {
		// Temperature is omitempty; a pinned zero has to survive encoding.
		t := float32(req.Temperature)
		if t == 0 {
			t = math.SmallestNonzeroFloat32
		}
		out.Temperature = t
	}
	if req.WantsJSON() {
		out.ResponseFormat = &goopenai.ChatCompletionResponseFormat{Type: goopenai.ChatCompletionResponseFormatTypeJSONObject}
	}
	return out
}

func (c *Client) fail(model string, err error) error {
	c.log.Error().Err(err).Str("model", model).Msg("openai call failed")
	return apperr.Provider(providerName, model, err)
}

var _ adapters.Provider = (*Client)(nil)

// Package ollama talks to self-hosted models through the Ollama chat API.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"github.com/your-org/genie/internal/apperr"
	"github.com/your-org/genie/internal/registry"
	"github.com/your-org/genie/pkg/adapters"
)

const providerName = "ollama"

// ErrListUnavailable is returned by ListInstalled inside docker, where each
// model runs behind its own endpoint.
var ErrListUnavailable = fmt.Errorf("%w: installed models cannot be listed in the docker environment", apperr.ErrConfiguration)

// LocalModels resolves a model id to its registry entry.
type LocalModels interface {
	LocalEntry(ctx context.Context, id string) (registry.Entry, bool, error)
}

type Options struct {
	HTTPClient *http.Client
	// NumContext sets options.num_ctx when positive.
	NumContext int
	// Environment disables ListInstalled when set to docker.
	Environment string
	// BaseURL is the server queried by ListInstalled.
	BaseURL string
	Logger  zerolog.Logger
}

// Client implements adapters.Provider for Ollama /api/chat.
type Client struct {
	models     LocalModels
	rest       *resty.Client
	numContext int
	env        string
	baseURL    string
	log        zerolog.Logger
}

func NewClient(models LocalModels, opts Options) *Client {
	rest := resty.New()
	if opts.HTTPClient != nil {
		rest = resty.NewWithClient(opts.HTTPClient)
	}
	rest.SetHeader("Content-Type", "application/json")
	return &Client{
		models:     models,
		rest:       rest,
		numContext: opts.NumContext,
		env:        opts.Environment,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		log:        opts.Logger,
	}
}

func (c *Client) Name() string { return providerName }

// Close releases idle connections.
func (c *Client) Close() error { return c.rest.Close() }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumCtx      int      `json:"num_ctx,omitempty"`
}

type chatRequest struct {
	Model    string       `json:"model"`
	Messages []message    `json:"messages"`
	Stream   bool         `json:"stream"`
	Format   string       `json:"format,omitempty"`
	Options  *chatOptions `json:"options,omitempty"`
}

type chatResponse struct {
	Model   string  `json:"model"`
	Message message `json:"message"`
	Done    bool    `json:"done"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) SendPromptToModel(ctx context.Context, req adapters.ExecutionRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	entry, ok, err := c.models.LocalEntry(ctx, req.ModelID)
	if err != nil {
		return "", fmt.Errorf("lookup local model: %w", err)
	}
	if !ok {
		return "", apperr.NotFound(req.ModelID)
	}

	body := c.buildRequest(entry.ProviderName, req)
	c.log.Debug().
		Str("model", req.ModelID).
		Str("endpoint", entry.Endpoint).
		Str("system_prompt", req.SystemMessage()).
		Str("user_prompt", req.UserPrompt).
		Msg("sending prompt")

	var out chatResponse
	var apiErr errorResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post(entry.Endpoint + "/api/chat")
	if err != nil {
		return "", c.fail(req.ModelID, fmt.Errorf("chat request: %w", err))
	}
	if resp.IsError() {
		detail := apiErr.Error
		if detail == "" {
			detail = strings.TrimSpace(resp.String())
		}
		return "", c.fail(req.ModelID, fmt.Errorf("status %d: %s", resp.StatusCode(), detail))
	}

	text := StripReasoning(out.Message.Content)
	if text == "" {
		return "", c.fail(req.ModelID, adapters.ErrEmptyResponse)
	}
	c.log.Debug().Str("model", req.ModelID).Str("response", text).Msg("model responded")
	return text, nil
}

func (c *Client) buildRequest(model string, req adapters.ExecutionRequest) chatRequest {
	body := chatRequest{Model: model, Stream: false}
	if sys := req.SystemMessage(); sys != "" {
		body.Messages = append(body.Messages, message{Role: "system", Content: sys})
	}
	body.Messages = append(body.Messages, message{Role: "user", Content: req.UserPrompt})
	if req.WantsJSON() {
		body.Format = "json"
	}

	var opts chatOptions
	if req.HasTemperature() {
		t := req.Temperature
		opts.Temperature = &t
	}
	if c.numContext > 0 {
		opts.NumCtx = c.numContext
	}
	if opts.Temperature != nil || opts.NumCtx > 0 {
		body.Options = &opts
	}
	return body
}

func (c *Client) fail(model string, err error) error {
	c.log.Error().Err(err).Str("model", model).Msg("ollama call failed")
	return apperr.Provider(providerName, model, err)
}

// InstalledModel is one entry of /api/tags.
type InstalledModel struct {
	Name       string    `json:"name"`
	Model      string    `json:"model"`
	ModifiedAt time.Time `json:"modified_at"`
}

// ListInstalled returns the models pulled into the configured Ollama server.
func (c *Client) ListInstalled(ctx context.Context) ([]InstalledModel, error) {
	if c.env == registry.EnvDocker {
		return nil, ErrListUnavailable
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: ollama base url is not set", apperr.ErrConfiguration)
	}

	var out struct {
		Models []InstalledModel `json:"models"`
	}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&out).
		Get(c.baseURL + "/api/tags")
	if err != nil {
		return nil, apperr.Provider(providerName, "", fmt.Errorf("list models: %w", err))
	}
	if resp.IsError() {
		return nil, apperr.Provider(providerName, "", fmt.Errorf("list models: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String())))
	}
	if out.Models == nil {
		return []InstalledModel{}, nil
	}
	return out.Models, nil
}

var reasoningBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripReasoning drops <think> blocks and blank lines from a completion.
func StripReasoning(content string) string {
	content = reasoningBlock.ReplaceAllString(content, "")
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

var _ adapters.Provider = (*Client)(nil)

// Package gemini sends prompts to Google Gemini models through the genai SDK.
package gemini

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/your-org/genie/internal/apperr"
	"github.com/your-org/genie/pkg/adapters"
)

const (
	providerName = "gemini"

	mimeJSON = "application/json"
	mimeText = "text/plain"
)

type Options struct {
	// BaseURL overrides the Gemini API root.
	BaseURL string
	// ProxyURL routes traffic through an HTTP proxy.
	ProxyURL   string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client implements adapters.Provider for generateContent.
type Client struct {
	apiKey     string
	baseURL    string
	proxyURL   string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(apiKey string, opts Options) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		proxyURL:   opts.ProxyURL,
		httpClient: opts.HTTPClient,
		log:        opts.Logger,
	}
}

func (c *Client) Name() string { return providerName }

func (c *Client) SendPromptToModel(ctx context.Context, req adapters.ExecutionRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if strings.TrimSpace(c.apiKey) == "" {
		return "", apperr.Provider(providerName, req.ModelID, adapters.ErrMissingAPIKey)
	}

	client, err := c.newAPIClient(ctx)
	if err != nil {
		return "", c.fail(req.ModelID, err)
	}

	c.log.Debug().
		Str("model", req.ModelID).
		Str("system_prompt", req.SystemMessage()).
		Str("user_prompt", req.UserPrompt).
		Msg("sending prompt")

	resp, err := client.Models.GenerateContent(ctx, req.ModelID, buildContents(req), buildConfig(req))
	if err != nil {
		return "", c.fail(req.ModelID, err)
	}
	text := resp.Text()
	if text == "" {
		return "", c.fail(req.ModelID, adapters.ErrEmptyResponse)
	}
	c.log.Debug().Str("model", req.ModelID).Str("response", text).Msg("model responded")
	return text, nil
}

func (c *Client) newAPIClient(ctx context.Context) (*genai.Client, error) {
	hc := c.httpClient
	if hc == nil || c.proxyURL != "" {
		var err error
		if hc, err = adapters.NewHTTPClient(c.proxyURL); err != nil {
			return nil, err
		}
	}
	cfg := &genai.ClientConfig{
		APIKey:     c.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	return genai.NewClient(ctx, cfg)
}

// buildContents sends the system text as a leading user turn; gemini-1.0
// models reject system instructions.
func buildContents(req adapters.ExecutionRequest) []*genai.Content {
	var contents []*genai.Content
	if sys := req.SystemMessage(); sys != "" {
		contents = append(contents, genai.NewContentFromText(sys, genai.RoleUser))
	}
	return append(contents, genai.NewContentFromText(req.UserPrompt, genai.RoleUser))
}

func buildConfig(req adapters.ExecutionRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: mimeText}
	if req.WantsJSON() && !strings.Contains(req.ModelID, "gemini-1.0") {
		cfg.ResponseMIMEType = mimeJSON
	}
	if req.HasTemperature() {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	return cfg
}

func (c *Client) fail(model string, err error) error {
	c.log.Error().Err(err).Str("model", model).Msg("gemini call failed")
	return apperr.Provider(providerName, model, err)
}

var _ adapters.Provider = (*Client)(nil)

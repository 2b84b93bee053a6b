package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/your-org/genie/internal/apperr"
	"github.com/your-org/genie/pkg/adapters"
)

func TestSendPromptToModel(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Fatalf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"answer\":\"Paris\"}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", Options{BaseURL: srv.URL + "/v1", HTTPClient: srv.Client()})
	text, err := c.SendPromptToModel(context.Background(), adapters.ExecutionRequest{
		ModelID:            "gpt-4o-mini",
		UserPrompt:         "Capital of France?",
		ResponseMaxLength:  adapters.Unbounded,
		ListFormatResponse: true,
		OutputFormat:       adapters.FormatJSON,
		Temperature:        0,
	})
	if err != nil {
		t.Fatalf("send prompt: %v", err)
	}
	if text != `{"answer":"Paris"}` {
		t.Fatalf("unexpected text %q", text)
	}
	if got["model"] != "gpt-4o-mini" {
		t.Fatalf("unexpected model %v", got["model"])
	}
	if _, ok := got["temperature"]; !ok {
		t.Fatal("pinned zero temperature must be sent")
	}
	rf, _ := got["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", got["response_format"])
	}
	msgs := got["messages"].([]any)
	sys := msgs[0].(map[string]any)
	if sys["role"] != "system" || !strings.HasPrefix(sys["content"].(string), "Use the numbered list format") {
		t.Fatalf("unexpected system message %v", sys)
	}
}

func TestSendPromptDefaultTemperatureOmitted(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi"}}]}`))
	}))
	defer srv.Close()

	c := NewClient("k", Options{BaseURL: srv.URL + "/v1"})
	if _, err := c.SendPromptToModel(context.Background(), adapters.ExecutionRequest{
		ModelID: "gpt-4o", UserPrompt: "hello", ResponseMaxLength: adapters.Unbounded, Temperature: adapters.DefaultTemperature,
	}); err != nil {
		t.Fatalf("send prompt: %v", err)
	}
	if _, ok := got["temperature"]; ok {
		t.Fatalf("temperature must be omitted: %v", got)
	}
	if len(got["messages"].([]any)) != 1 {
		t.Fatalf("expected a single user message: %v", got["messages"])
	}
}

func TestSendPromptMissingKey(t *testing.T) {
	c := NewClient("", Options{})
	_, err := c.SendPromptToModel(context.Background(), adapters.ExecutionRequest{
		ModelID: "gpt-4o", UserPrompt: "hello", ResponseMaxLength: adapters.Unbounded, Temperature: adapters.DefaultTemperature,
	})
	if !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if apperr.KindOf(err) != apperr.KindConfiguration {
		t.Fatalf("unexpected kind %s", apperr.KindOf(err))
	}
}

func TestSendPromptAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := NewClient("bad", Options{BaseURL: srv.URL + "/v1"})
	_, err := c.SendPromptToModel(context.Background(), adapters.ExecutionRequest{
		ModelID: "gpt-4o", UserPrompt: "hello", ResponseMaxLength: adapters.Unbounded, Temperature: adapters.DefaultTemperature,
	})
	var pe *apperr.ProviderError
	if !errors.As(err, &pe) || pe.Provider != "openai" {
		t.Fatalf("expected openai provider error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Incorrect API key") {
		t.Fatalf("expected upstream message in %q", err.Error())
	}
}

func TestSendPromptEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient("k", Options{BaseURL: srv.URL + "/v1"})
	_, err := c.SendPromptToModel(context.Background(), adapters.ExecutionRequest{
		ModelID: "gpt-4o", UserPrompt: "hello", ResponseMaxLength: adapters.Unbounded, Temperature: adapters.DefaultTemperature,
	})
	if !errors.Is(err, adapters.ErrEmptyResponse) {
		t.Fatalf("expected empty response error, got %v", err)
	}
}

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/ZaguanLabs/slanger"
	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements AIProvider using OpenAI's API.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
	configured  bool
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string       // OpenAI API key; empty leaves the provider unconfigured
	Model       string       // Model to use (default: "gpt-4o-mini")
	Temperature float32      // Temperature for generation (default: 0.3)
	BaseURL     string       // Custom base URL (optional)
	HTTPClient  *http.Client // Custom HTTP client (optional)
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
		configured:  strings.TrimSpace(cfg.APIKey) != "",
	}
}

// Model returns the configured model name.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Interpret asks the model for a one-line interpretation of req.Term.
func (p *OpenAIProvider) Interpret(ctx context.Context, req Request) (string, error) {
	if !p.configured {
		return "", slanger.ErrNotConfigured
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserMessage(req)},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &slanger.ProviderError{
			Message:   "no choices in response",
			Retryable: false,
		}
	}

	return parseResponse(resp.Choices[0].Message.Content)
}

const systemPrompt = `You explain Korean internet slang.
Given a term and, optionally, the sentence it appeared in, answer with ONE short Korean sentence
of the form "<term>: <meaning>." that fits the sentence when one is given.
If you do not know the term, answer "<term>: 정확한 해석을 찾지 못했습니다."

# Format
Return a JSON object with exactly one key:
{ "meaning_line": "<term>: <meaning>." }
- Do NOT wrap in Markdown code blocks.
- Do NOT add any other keys.`

func buildUserMessage(req Request) string {
	type message struct {
		Term    string `json:"term"`
		Context string `json:"context,omitempty"`
	}
	data, _ := json.Marshal(message{Term: req.Term, Context: req.Context})
	return string(data)
}

// answer is the only accepted response shape.
type answer struct {
	MeaningLine *string `json:"meaning_line"`
}

// parseResponse decodes content strictly. Unknown keys, a missing or
// non-string meaning_line, or trailing data all fail closed.
func parseResponse(content string) (string, error) {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(content)))
	dec.DisallowUnknownFields()

	var a answer
	if err := dec.Decode(&a); err != nil {
		return "", invalidResponse(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return "", invalidResponse(errors.New("trailing data after JSON object"))
	}
	if a.MeaningLine == nil {
		return "", invalidResponse(errors.New(`missing "meaning_line"`))
	}
	if strings.TrimSpace(*a.MeaningLine) == "" {
		return "", invalidResponse(errors.New(`empty "meaning_line"`))
	}

	return *a.MeaningLine, nil
}

func invalidResponse(cause error) error {
	return &slanger.ProviderError{
		Message:   "invalid response format from OpenAI",
		Cause:     cause,
		Retryable: false,
	}
}

// classifyError maps client errors onto ProviderError. Rate limits,
// server errors and transport failures are retryable; everything else
// (bad credentials, bad requests) is not.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %w", slanger.ErrNotConfigured, err)
		}
		return &slanger.ProviderError{
			Message:   fmt.Sprintf("OpenAI API returned status %d", apiErr.HTTPStatusCode),
			Cause:     err,
			Retryable: retryableStatus(apiErr.HTTPStatusCode),
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &slanger.ProviderError{
			Message:   fmt.Sprintf("OpenAI request failed with status %d", reqErr.HTTPStatusCode),
			Cause:     err,
			Retryable: retryableStatus(reqErr.HTTPStatusCode),
		}
	}

	// Deadline and cancellation are decided by the retry loop.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	retryable := errors.As(err, &netErr) || slanger.LooksTransient(err)

	return &slanger.ProviderError{
		Message:   "OpenAI API call failed",
		Cause:     err,
		Retryable: retryable,
	}
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// Verify OpenAIProvider implements AIProvider
var _ AIProvider = (*OpenAIProvider)(nil)

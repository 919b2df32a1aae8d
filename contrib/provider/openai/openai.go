package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sweetpotato0/govassist/provider"
)

// OpenRouterBaseURL is the OpenAI-compatible endpoint used by default.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1/"

// Config holds OpenAI-compatible provider configuration
type Config struct {
	APIKey      string
	BaseURL     string
	Referer     string
	Title       string
	MaxTokens   int64
	Temperature float64
}

// WithBaseURL set BaseURL.
func (cfg *Config) WithBaseURL(url string) *Config {
	cfg.BaseURL = url
	return cfg
}

// WithAPIKey set api key.
func (cfg *Config) WithAPIKey(apiKey string) *Config {
	cfg.APIKey = apiKey
	return cfg
}

// DefaultConfig returns the OpenRouter configuration the assistant ships with.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     OpenRouterBaseURL,
		Referer:     "http://localhost:8000",
		Title:       "Kerala Government Services Assistant",
		MaxTokens:   512,
		Temperature: 0.3,
	}
}

// Provider implements provider.Generator over the chat completions API.
type Provider struct {
	config *Config
	client openai.Client
}

// New creates a provider. Retries are disabled in the SDK because model
// fallback is handled by provider.Chain.
func New(config *Config) *Provider {
	options := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(config.BaseURL) != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}
	if config.Referer != "" {
		options = append(options, option.WithHeader("HTTP-Referer", config.Referer))
	}
	if config.Title != "" {
		options = append(options, option.WithHeader("X-Title", config.Title))
	}

	return &Provider{
		config: config,
		client: openai.NewClient(options...),
	}
}

// Generate implements provider.Generator
func (p *Provider) Generate(ctx context.Context, req provider.Request) (string, error) {
	if req.Model == "" {
		return "", fmt.Errorf("model is required")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(req.Model),
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = p.config.Temperature
	}
	if temperature > 0 {
		params.Temperature = openai.Float(temperature)
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(maxTokens)
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(req.Model, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices returned for model %s", req.Model)
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

func classify(model string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &provider.StatusError{StatusCode: apiErr.StatusCode, Model: model, Err: err}
	}
	return fmt.Errorf("chat completion for %s: %w", model, err)
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/docgrader/internal/llm/prompts"
)

// ErrNoChoices is returned when the service answers without any completion.
var ErrNoChoices = errors.New("LLM returned no choices")

// ErrEmptyContent is returned when the completion carries no text, as with
// refusals or filtered answers.
var ErrEmptyContent = errors.New("LLM returned empty content")

// Evaluator produces teaching material and grades submissions.
type Evaluator interface {
	GenerateMaterial(ctx context.Context, topic string) (string, error)
	Grade(ctx context.Context, text string) (string, error)
}

// Pinger is implemented by evaluators that can check their endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config selects and configures an evaluator backend.
type Config struct {
	Provider      string // "openai" or "gemini"
	BaseURL       string
	APIKey        string
	Model         string
	PromptVariant string
}

// Default models used when Config.Model is empty.
const (
	DefaultOpenAIModel = "gpt-4o"
	DefaultGeminiModel = "gemini-2.0-flash"
)

// NewEvaluator builds the evaluator named by cfg.Provider.
func NewEvaluator(ctx context.Context, cfg Config) (Evaluator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		if cfg.Model == "" {
			cfg.Model = DefaultOpenAIModel
		}
		return New(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.PromptVariant)
	case "gemini":
		if cfg.Model == "" {
			cfg.Model = DefaultGeminiModel
		}
		return NewGemini(ctx, cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.PromptVariant)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.Variant
}

// New creates a new OpenAI-compatible LLM client.
func New(baseURL, apiKey, modelName, variant string) (*Client, error) {
	v, err := parseVariant(variant)
	if err != nil {
		return nil, err
	}
	if err := prompts.Load(); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: v,
	}, nil
}

// Ping checks that the endpoint is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// GenerateMaterial asks for roughly one page of teaching material on topic
// and returns the completion verbatim.
func (c *Client) GenerateMaterial(ctx context.Context, topic string) (string, error) {
	prompt, err := prompts.BuildMaterialPrompt(topic)
	if err != nil {
		return "", fmt.Errorf("build material prompt: %w", err)
	}
	content, err := c.complete(ctx, prompts.SystemMaterial, prompt, prompts.MaterialMaxTokens)
	if err != nil {
		return "", fmt.Errorf("generate material: %w", err)
	}
	return content, nil
}

// Grade asks the service to grade text and returns its raw response.
func (c *Client) Grade(ctx context.Context, text string) (string, error) {
	prompt, err := prompts.BuildGradePrompt(c.variant, text)
	if err != nil {
		return "", fmt.Errorf("build grade prompt: %w", err)
	}
	content, err := c.complete(ctx, prompts.SystemGrader, prompt, prompts.GradeMaxTokens)
	if err != nil {
		return "", fmt.Errorf("grade submission: %w", err)
	}
	return content, nil
}

func (c *Client) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "model", c.model, "max_tokens", maxTokens, "raw", raw)
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyContent
	}
	return raw, nil
}

func parseVariant(v string) (prompts.Variant, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return prompts.Standard, nil
	}
	if !prompts.IsValidVariant(v) {
		return "", fmt.Errorf("invalid prompt variant %q", v)
	}
	return prompts.Variant(v), nil
}

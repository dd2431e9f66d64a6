package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/pavelanni/docgrader/internal/llm/prompts"
)

// GeminiClient talks to the Gemini API.
type GeminiClient struct {
	api     *genai.Client
	model   string
	variant prompts.Variant
}

// NewGemini creates a Gemini-backed evaluator. baseURL may be empty.
func NewGemini(ctx context.Context, baseURL, apiKey, modelName, variant string) (*GeminiClient, error) {
	v, err := parseVariant(variant)
	if err != nil {
		return nil, err
	}
	if err := prompts.Load(); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{api: client, model: modelName, variant: v}, nil
}

// GenerateMaterial asks for teaching material on topic.
func (c *GeminiClient) GenerateMaterial(ctx context.Context, topic string) (string, error) {
	prompt, err := prompts.BuildMaterialPrompt(topic)
	if err != nil {
		return "", fmt.Errorf("build material prompt: %w", err)
	}
	content, err := c.generate(ctx, prompts.SystemMaterial, prompt, prompts.MaterialMaxTokens)
	if err != nil {
		return "", fmt.Errorf("generate material: %w", err)
	}
	return content, nil
}

// Grade asks Gemini to grade text and returns the raw response.
func (c *GeminiClient) Grade(ctx context.Context, text string) (string, error) {
	prompt, err := prompts.BuildGradePrompt(c.variant, text)
	if err != nil {
		return "", fmt.Errorf("build grade prompt: %w", err)
	}
	content, err := c.generate(ctx, prompts.SystemGrader, prompt, prompts.GradeMaxTokens)
	if err != nil {
		return "", fmt.Errorf("grade submission: %w", err)
	}
	return content, nil
}

func (c *GeminiClient) generate(ctx context.Context, system, user string, maxTokens int32) (string, error) {
	result, err := c.api.Models.GenerateContent(ctx, c.model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		MaxOutputTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(result.Candidates) == 0 {
		return "", ErrNoChoices
	}

	raw := result.Text()
	slog.Debug("LLM response", "model", c.model, "max_tokens", maxTokens, "raw", raw)
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyContent
	}
	return raw, nil
}

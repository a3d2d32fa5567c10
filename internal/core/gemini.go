package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider is the secondary text provider and the media analyzer.
type GeminiProvider struct {
	client    *genai.Client
	modelName string
	logger    logrus.FieldLogger
}

func NewGeminiProvider(ctx context.Context, apiKey, modelName string, logger logrus.FieldLogger) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if modelName == "" {
		modelName = defaultGeminiModel
	}
	return &GeminiProvider{client: client, modelName: modelName, logger: logger}, nil
}

func (g *GeminiProvider) Close() {
	if g.client != nil {
		if err := g.client.Close(); err != nil {
			g.logger.WithError(err).Warn("error closing GenAI client")
		}
	}
}

func (g *GeminiProvider) Name() string { return "gemini" }

func (g *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, defaultMaxTokens, genai.Text(prompt))
}

func (g *GeminiProvider) AnalyzeImage(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	format := strings.TrimPrefix(mimeType, "image/")
	return g.generate(ctx, defaultMaxTokens, genai.Text(prompt), genai.ImageData(format, data))
}

func (g *GeminiProvider) SummarizeDocument(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, documentMaxTokens, genai.Text(prompt))
}

func (g *GeminiProvider) generate(ctx context.Context, maxTokens int32, parts ...genai.Part) (string, error) {
	model := g.client.GenerativeModel(g.modelName)

	temp := defaultTemperature
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: &maxTokens,
		Temperature:     &temp,
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}

	out := strings.TrimSpace(text.String())
	if out == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return out, nil
}

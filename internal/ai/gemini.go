package ai

import (
	"context"
	"encoding/base64"
	"fmt"

	genai "google.golang.org/genai"
)

// DefaultGeminiModel - модель Gemini по умолчанию.
const DefaultGeminiModel = "gemini-3-flash-preview"

// Gemini отправляет изображение в Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini создаёт клиента Gemini. baseURL нужен только для тестов и прокси.
func NewGemini(ctx context.Context, apiKey, model, baseURL string) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini{client: c, model: model}, nil
}

// GeminiFactory возвращает фабрику провайдера для Extractor.
func GeminiFactory(model, baseURL string) ProviderFactory {
	return func(ctx context.Context, apiKey string) (Provider, error) {
		return NewGemini(ctx, apiKey, model, baseURL)
	}
}

// ExtractText отправляет картинку и инструкцию одним запросом.
func (g *Gemini) ExtractText(ctx context.Context, img Image, prompt string) (string, error) {
	// SDK сам кодирует Blob в base64, поэтому передаём сырые байты.
	data, err := base64.StdEncoding.DecodeString(img.Base64)
	if err != nil {
		return "", fmt.Errorf("invalid image encoding: %w", err)
	}

	content := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: data}},
				{Text: prompt},
			},
		},
	}

	res, err := g.client.Models.GenerateContent(ctx, g.model, content, nil)
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}

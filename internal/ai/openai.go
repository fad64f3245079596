package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ignatzorin/username-extractor/internal/media"
)

// DefaultOpenAIModel - модель по умолчанию для OpenAI-совместимого API.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAICompatible отправляет изображение в OpenAI-совместимый chat/completions API (Bothub и аналоги).
type OpenAICompatible struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAICompatible создаёт экземпляр клиента.
func NewOpenAICompatible(baseURL, apiKey, model string) *OpenAICompatible {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAICompatible{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		// Без собственного таймаута: запрос ограничен только ctx вызывающего.
		httpClient: &http.Client{},
	}
}

// OpenAIFactory возвращает фабрику провайдера для Extractor.
func OpenAIFactory(baseURL, model string) ProviderFactory {
	return func(_ context.Context, apiKey string) (Provider, error) {
		if baseURL == "" {
			return nil, errors.New("AI base URL is not configured")
		}
		return NewOpenAICompatible(baseURL, apiKey, model), nil
	}
}

// ExtractText выполняет один запрос с картинкой в виде data URL.
func (c *OpenAICompatible) ExtractText(ctx context.Context, img Image, prompt string) (string, error) {
	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": prompt},
					{"type": "image_url", "image_url": map[string]string{"url": media.DataURL(img.MIMEType, img.Base64)}},
				},
			},
		},
		"max_tokens":  64,
		"temperature": 0,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := c.baseURL
	if !strings.HasSuffix(url, "/") {
		url += "/"
	}
	url += "chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errorBody struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errorBody)
		if errorBody.Error.Message != "" {
			return "", fmt.Errorf("AI request failed with status %d: %s", resp.StatusCode, errorBody.Error.Message)
		}
		return "", fmt.Errorf("AI request failed with status %d", resp.StatusCode)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("invalid AI response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", nil
	}

	return result.Choices[0].Message.Content, nil
}

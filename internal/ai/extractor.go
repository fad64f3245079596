// Package ai распознаёт имя пользователя на изображении через внешнюю мультимодальную модель.
package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/username-extractor/internal/logger"
	"github.com/ignatzorin/username-extractor/internal/media"
)

// MaxScanBytes - предел размера файла для сканирования (10 MiB).
// Проверяется вызывающей стороной до обращения к Extractor.
const MaxScanBytes int64 = 10 * 1024 * 1024

const (
	// NotDetectedSentinel модель возвращает, если имени на изображении нет.
	NotDetectedSentinel = "No username detected"
	// NoResultSentinel подставляется, когда модель вернула пустой ответ.
	NoResultSentinel = "No result"

	genericFailureMessage = "Failed to extract text with AI."
	readFailureMessage    = "Failed to read file for AI extraction."
)

// ErrNotConfigured - ключ внешнего сервиса не задан.
var ErrNotConfigured = errors.New("AI service is not configured")

// Prompt - фиксированная инструкция для модели.
const Prompt = `Analyze this image and identify any text that looks like a username, handle, or user ID.
- Look for text starting with '@'.
- Look for text in headers, profiles, or overlays.
- If multiple are found, return the most prominent one.
- Return ONLY the username string. Do not add any explanation, labels, or extra text.
- If no username is found, return "` + NotDetectedSentinel + `".`

// Image - закодированное изображение для запроса.
type Image struct {
	MIMEType string
	Base64   string
}

// Provider выполняет один запрос к мультимодальной модели.
type Provider interface {
	ExtractText(ctx context.Context, img Image, prompt string) (string, error)
}

// ProviderFactory создаёт провайдера для заданного ключа.
type ProviderFactory func(ctx context.Context, apiKey string) (Provider, error)

// ExtractionError - единый тип ошибки распознавания с понятным пользователю сообщением.
type ExtractionError struct {
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string { return e.Message }

func (e *ExtractionError) Unwrap() error { return e.Cause }

func newExtractionError(cause error) *ExtractionError {
	msg := genericFailureMessage
	if cause != nil && strings.TrimSpace(cause.Error()) != "" {
		msg = cause.Error()
	}
	return &ExtractionError{Message: msg, Cause: cause}
}

// Extractor проверяет конфигурацию, кодирует файл и отправляет его провайдеру.
// Повторов и собственных таймаутов нет.
type Extractor struct {
	apiKey  string
	factory ProviderFactory

	mu       sync.Mutex
	provider Provider
}

// NewExtractor создаёт клиента. Пустой apiKey допустим: Extract вернёт ErrNotConfigured.
func NewExtractor(apiKey string, factory ProviderFactory) *Extractor {
	return &Extractor{apiKey: strings.TrimSpace(apiKey), factory: factory}
}

// Configured сообщает, задан ли ключ.
func (e *Extractor) Configured() bool {
	return e != nil && e.apiKey != "" && e.factory != nil
}

// Extract возвращает распознанное имя пользователя или *ExtractionError.
func (e *Extractor) Extract(ctx context.Context, src media.Source) (string, error) {
	if !e.Configured() {
		return "", &ExtractionError{Message: ErrNotConfigured.Error(), Cause: ErrNotConfigured}
	}

	start := time.Now()
	fields := logrus.Fields{"file": src.Name(), "mime": src.MIMEType(), "size": src.Size()}

	provider, err := e.getProvider(ctx)
	if err != nil {
		logger.Log.WithFields(fields).WithError(err).Error("ai: не удалось создать клиента")
		return "", newExtractionError(err)
	}

	payload, err := media.EncodeBase64(ctx, src)
	if err != nil {
		logger.Log.WithFields(fields).WithError(err).Error("ai: не удалось закодировать файл")
		return "", &ExtractionError{Message: readFailureMessage, Cause: err}
	}

	text, err := provider.ExtractText(ctx, Image{MIMEType: src.MIMEType(), Base64: payload}, Prompt)
	if err != nil {
		logger.Log.WithFields(fields).WithError(err).Error("ai: ошибка распознавания")
		return "", newExtractionError(err)
	}

	result := strings.TrimSpace(text)
	if result == "" {
		result = NoResultSentinel
	}

	logger.Log.WithFields(fields).WithField("elapsed_ms", time.Since(start).Milliseconds()).Info("ai: имя распознано")
	return result, nil
}

// getProvider создаёт провайдера при первом обращении.
func (e *Extractor) getProvider(ctx context.Context) (Provider, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.provider != nil {
		return e.provider, nil
	}
	p, err := e.factory(ctx, e.apiKey)
	if err != nil {
		return nil, err
	}
	e.provider = p
	return p, nil
}

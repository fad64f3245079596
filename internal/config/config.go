package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Провайдеры AI-распознавания.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config хранит все параметры запуска приложения.
type Config struct {
	Env             string
	HTTPPort        string
	AIProvider      string
	AIAPIKey        string
	AIModel         string
	AIBaseURL       string
	SpoolPath       string
	MaxUploadSizeMB int64
	AllowedOrigins  []string
	RateLimitLimit  int64
	RateLimitPeriod time.Duration
	ClearConfirmTTL time.Duration
	ClearSecret     string
}

// AIConfigured сообщает, задан ли ключ внешнего AI-сервиса.
func (c *Config) AIConfigured() bool {
	return c.AIAPIKey != ""
}

// Load читает переменные окружения и возвращает готовую конфигурацию.
// Отсутствие ключа AI не считается ошибкой: распознавание по имени файла работает без него.
func Load() (*Config, error) {
	// Загружаем .env только если он существует, иначе используем системные переменные.
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("config: .env не найден, используем переменные окружения: %v", err)
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Env:        env,
		HTTPPort:   getEnv("HTTP_PORT", "8080"),
		AIProvider: strings.ToLower(getEnv("AI_PROVIDER", ProviderGemini)),
		AIModel:    getEnv("AI_MODEL", ""),
		AIBaseURL:  getEnv("AI_BASE_URL", ""),
		SpoolPath:  getEnv("SPOOL_PATH", os.TempDir()+"/username-extractor"),
	}

	switch cfg.AIProvider {
	case ProviderGemini:
		cfg.AIAPIKey = firstEnv("GEMINI_API_KEY", "API_KEY")
	case ProviderOpenAI:
		cfg.AIAPIKey = firstEnv("BOTHUB_ACCESS_TOKEN", "AI_API_KEY")
		if cfg.AIBaseURL == "" {
			cfg.AIBaseURL = "https://bothub.chat/api/v2/openai/v1"
		}
	default:
		return nil, fmt.Errorf("config: неизвестный AI_PROVIDER %q (ожидается gemini или openai)", cfg.AIProvider)
	}

	if !cfg.AIConfigured() {
		log.Printf("config: ключ AI не задан, сканирование изображений будет недоступно")
	}

	secret := getEnv("CLEAR_SECRET", "")
	if secret == "" {
		if env == "production" {
			return nil, fmt.Errorf("config: CLEAR_SECRET обязателен в production")
		}
		secret = "clear-confirm-development-only-change-in-production"
	}
	cfg.ClearSecret = secret

	originsStr := getEnv("CORS_ALLOWED_ORIGINS", "")
	if originsStr == "" {
		cfg.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	} else {
		for _, origin := range strings.Split(originsStr, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	var err error
	if cfg.MaxUploadSizeMB, err = parseInt64("MAX_UPLOAD_MB", getEnv("MAX_UPLOAD_MB", "512")); err != nil {
		return nil, err
	}
	if cfg.RateLimitLimit, err = parseInt64("RATE_LIMIT_LIMIT", getEnv("RATE_LIMIT_LIMIT", "30")); err != nil {
		return nil, err
	}
	if cfg.RateLimitPeriod, err = parseDuration("RATE_LIMIT_PERIOD", getEnv("RATE_LIMIT_PERIOD", "1m")); err != nil {
		return nil, err
	}
	if cfg.ClearConfirmTTL, err = parseDuration("CLEAR_CONFIRM_TTL", getEnv("CLEAR_CONFIRM_TTL", "30s")); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getEnv возвращает значение переменной окружения или дефолт.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// firstEnv возвращает первое непустое значение из списка переменных.
func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func parseDuration(key, v string) (time.Duration, error) {
	dur, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: не удалось распарсить %s=%q: %w", key, v, err)
	}
	return dur, nil
}

func parseInt64(key, v string) (int64, error) {
	num, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: не удалось распарсить %s=%q: %w", key, v, err)
	}
	return num, nil
}

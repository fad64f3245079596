package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// EntryCounter сообщает число файлов в рабочем пространстве.
type EntryCounter interface {
	Len() int
}

// ClientCounter сообщает число подключённых WebSocket клиентов.
type ClientCounter interface {
	Clients() int
}

// HealthHandler предоставляет endpoint для проверки здоровья сервиса.
type HealthHandler struct {
	entries      EntryCounter
	clients      ClientCounter
	aiConfigured bool
}

// NewHealthHandler создаёт новый health handler. clients может быть nil.
func NewHealthHandler(entries EntryCounter, clients ClientCounter, aiConfigured bool) *HealthHandler {
	return &HealthHandler{entries: entries, clients: clients, aiConfigured: aiConfigured}
}

// HealthResponse представляет ответ health check.
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	AIConfigured bool              `json:"ai_configured"`
	Checks       map[string]string `json:"checks"`
}

// Health обрабатывает GET /health.
// Отсутствие ключа AI не делает сервис нездоровым: работает распознавание по имени файла.
func (h *HealthHandler) Health(c *gin.Context) {
	checks := map[string]string{
		"files": strconv.Itoa(h.entries.Len()),
	}
	if h.aiConfigured {
		checks["ai"] = "configured"
	} else {
		checks["ai"] = "not configured"
	}
	if h.clients != nil {
		checks["ws_clients"] = strconv.Itoa(h.clients.Clients())
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:       "healthy",
		Timestamp:    time.Now(),
		AIConfigured: h.aiConfigured,
		Checks:       checks,
	})
}

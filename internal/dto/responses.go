package dto

import (
	"github.com/ignatzorin/username-extractor/internal/card"
	"github.com/ignatzorin/username-extractor/internal/models"
)

// ErrorResponse - стандартный ответ с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// FileResponse - запись вместе с состоянием её карточки.
type FileResponse struct {
	models.Entry
	Card card.View `json:"card"`
}

// NewFileResponse собирает ответ из записи и состояния карточки.
func NewFileResponse(e models.Entry, v card.View) FileResponse {
	return FileResponse{Entry: e, Card: v}
}

// FileListResponse - список записей, новые первыми.
type FileListResponse struct {
	Files []FileResponse `json:"files"`
	Total int            `json:"total"`
}

// CopyResponse возвращает скопированный текст.
type CopyResponse struct {
	Text   string            `json:"text"`
	Target models.CopyTarget `json:"target"`
	Card   card.View         `json:"card"`
}

// ScanResponse подтверждает запуск сканирования.
type ScanResponse struct {
	ID   string    `json:"id"`
	Card card.View `json:"card"`
}

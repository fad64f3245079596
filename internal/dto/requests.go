package dto

import "github.com/ignatzorin/username-extractor/internal/models"

// CopyRequest - что скопировать: имя из файла или результат AI.
type CopyRequest struct {
	Target models.CopyTarget `json:"target" binding:"required"`
}

// ClearTokenRequest - токен подтверждения массового удаления.
type ClearTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/username-extractor/internal/media"
	"github.com/ignatzorin/username-extractor/internal/preview"
)

// Entry описывает один добавленный пользователем файл.
// DisplayName и Kind вычисляются один раз при создании и больше не меняются.
type Entry struct {
	ID          uuid.UUID  `json:"id"`
	FileName    string     `json:"file_name"`
	MIMEType    string     `json:"mime_type"`
	FileSize    int64      `json:"file_size"`
	DisplayName string     `json:"display_name"`
	Kind        media.Kind `json:"kind"`
	AIName      *string    `json:"ai_name,omitempty"`
	PreviewURL  string     `json:"preview_url"`
	AddedAt     time.Time  `json:"added_at"`

	Source  media.Source   `json:"-"`
	Preview preview.Handle `json:"-"`
}

// HasAIName сообщает, распознано ли имя пользователя по изображению.
func (e Entry) HasAIName() bool {
	return e.AIName != nil
}

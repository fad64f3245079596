package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/username-extractor/internal/http/handlers/common"
	"github.com/ignatzorin/username-extractor/internal/logger"
	"github.com/ignatzorin/username-extractor/internal/pkg/apperror"
	"github.com/ignatzorin/username-extractor/internal/preview"
)

// PreviewHandler раздаёт миниатюры по отзываемым ссылкам.
type PreviewHandler struct {
	previews *preview.Registry
}

// NewPreviewHandler создаёт новый хэндлер.
func NewPreviewHandler(previews *preview.Registry) *PreviewHandler {
	return &PreviewHandler{previews: previews}
}

// Serve обрабатывает GET /previews/:token. После удаления записи ссылка отвечает 404.
func (h *PreviewHandler) Serve(c *gin.Context) {
	token, err := common.ParseUUIDParam(c, "token")
	if err != nil {
		common.Fail(c, err)
		return
	}

	rc, src, err := h.previews.Open(token)
	if err != nil {
		common.Fail(c, apperror.ErrPreviewExpired)
		return
	}
	defer func() {
		if err := rc.Close(); err != nil {
			logger.Log.WithError(err).Warn("handlers: не удалось закрыть миниатюру")
		}
	}()

	contentType := src.MIMEType()
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "private, no-store")
	c.DataFromReader(http.StatusOK, src.Size(), contentType, rc, nil)
}

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/username-extractor/internal/card"
	"github.com/ignatzorin/username-extractor/internal/dto"
	"github.com/ignatzorin/username-extractor/internal/http/handlers/common"
	"github.com/ignatzorin/username-extractor/internal/intake"
	"github.com/ignatzorin/username-extractor/internal/logger"
	"github.com/ignatzorin/username-extractor/internal/models"
	"github.com/ignatzorin/username-extractor/internal/pkg/apperror"
	"github.com/ignatzorin/username-extractor/internal/storage"
	"github.com/ignatzorin/username-extractor/internal/store"
)

// FileHandler управляет файлами рабочего пространства и их карточками.
type FileHandler struct {
	store  *store.Store
	board  *card.Board
	intake *intake.Surface
	// scanCtx живёт дольше запроса: сканирование продолжается после ответа 202.
	scanCtx context.Context
}

// NewFileHandler создаёт новый хэндлер.
func NewFileHandler(scanCtx context.Context, st *store.Store, board *card.Board, in *intake.Surface) *FileHandler {
	return &FileHandler{store: st, board: board, intake: in, scanCtx: scanCtx}
}

// List обрабатывает GET /api/files.
func (h *FileHandler) List(c *gin.Context) {
	entries := h.store.List()
	files := make([]dto.FileResponse, 0, len(entries))
	for _, e := range entries {
		files = append(files, dto.NewFileResponse(e, h.board.View(e.ID)))
	}
	common.RespondJSON(c, http.StatusOK, dto.FileListResponse{Files: files, Total: len(files)})
}

// Upload обрабатывает POST /api/files (multipart, поле files).
// Перетаскивание и выбор файлов в браузере приходят одинаково.
func (h *FileHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		common.Fail(c, apperror.Wrap(err, apperror.ErrCodeBadRequest, "multipart form with field files is required"))
		return
	}

	added, err := h.intake.AcceptUploads(c.Request.Context(), form.File["files"])
	switch {
	case errors.Is(err, intake.ErrNoFiles):
		common.Fail(c, apperror.Wrap(err, apperror.ErrCodeValidation, "no files provided"))
		return
	case errors.Is(err, storage.ErrFileTooLarge):
		common.Fail(c, apperror.Wrap(err, apperror.ErrCodeTooLarge, "file exceeds upload limit"))
		return
	case err != nil:
		common.Fail(c, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to store files"))
		return
	}

	files := make([]dto.FileResponse, 0, len(added))
	for _, e := range added {
		files = append(files, dto.NewFileResponse(e, card.View{State: models.ScanStateIdle}))
	}
	common.RespondJSON(c, http.StatusCreated, dto.FileListResponse{Files: files, Total: h.store.Len()})
}

// Get обрабатывает GET /api/files/:id.
func (h *FileHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	entry, ok := h.store.Get(id)
	if !ok {
		common.Fail(c, apperror.ErrEntryNotFound)
		return
	}
	common.RespondJSON(c, http.StatusOK, dto.NewFileResponse(entry, h.board.View(id)))
}

// Delete обрабатывает DELETE /api/files/:id. Отсутствующий файл не считается ошибкой.
func (h *FileHandler) Delete(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	h.store.Remove(id)
	h.board.Forget(id)
	common.RespondNoContent(c)
}

// Scan обрабатывает POST /api/files/:id/scan и отвечает 202, не дожидаясь результата.
func (h *FileHandler) Scan(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	fc, err := h.board.Card(id)
	if err != nil {
		common.Fail(c, apperror.ErrEntryNotFound)
		return
	}

	switch err := fc.StartScan(h.scanCtx); {
	case errors.Is(err, card.ErrScanInProgress), errors.Is(err, card.ErrAlreadyExtracted):
		common.Fail(c, apperror.Wrap(err, apperror.ErrCodeConflict, err.Error()))
		return
	case errors.Is(err, card.ErrFileTooLarge):
		common.Fail(c, apperror.Wrap(err, apperror.ErrCodeTooLarge, card.TooLargeMessage))
		return
	case errors.Is(err, card.ErrEntryNotFound):
		common.Fail(c, apperror.ErrEntryNotFound)
		return
	case err != nil:
		common.Fail(c, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to start scan"))
		return
	}

	logger.Log.WithFields(logrus.Fields{"entry_id": id.String(), "client_ip": c.ClientIP()}).Debug("handlers: сканирование принято")
	common.RespondJSON(c, http.StatusAccepted, dto.ScanResponse{ID: id.String(), Card: fc.View()})
}

// Copy обрабатывает POST /api/files/:id/copy.
func (h *FileHandler) Copy(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.CopyRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.Fail(c, err)
		return
	}
	if !req.Target.Valid() {
		common.Fail(c, apperror.New(apperror.ErrCodeValidation, "target must be filename or ai"))
		return
	}

	fc, err := h.board.Card(id)
	if err != nil {
		common.Fail(c, apperror.ErrEntryNotFound)
		return
	}

	text, err := fc.Copy(h.scanCtx, req.Target)
	switch {
	case errors.Is(err, card.ErrNoAIName):
		common.Fail(c, apperror.Wrap(err, apperror.ErrCodeConflict, err.Error()))
		return
	case errors.Is(err, card.ErrEntryNotFound):
		common.Fail(c, apperror.ErrEntryNotFound)
		return
	case err != nil:
		common.Fail(c, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to copy"))
		return
	}

	common.RespondJSON(c, http.StatusOK, dto.CopyResponse{Text: text, Target: req.Target, Card: fc.View()})
}

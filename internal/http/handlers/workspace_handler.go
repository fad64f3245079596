package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/username-extractor/internal/card"
	"github.com/ignatzorin/username-extractor/internal/dto"
	"github.com/ignatzorin/username-extractor/internal/export"
	"github.com/ignatzorin/username-extractor/internal/http/handlers/common"
	"github.com/ignatzorin/username-extractor/internal/intake"
	"github.com/ignatzorin/username-extractor/internal/pkg/apperror"
	"github.com/ignatzorin/username-extractor/internal/store"
)

// WorkspaceHandler отвечает за массовую очистку и выгрузку.
type WorkspaceHandler struct {
	store  *store.Store
	board  *card.Board
	intake *intake.Surface
}

// NewWorkspaceHandler создаёт новый хэндлер.
func NewWorkspaceHandler(st *store.Store, board *card.Board, in *intake.Surface) *WorkspaceHandler {
	return &WorkspaceHandler{store: st, board: board, intake: in}
}

// RequestClear обрабатывает POST /api/workspace/clear: выдаёт токен подтверждения.
func (h *WorkspaceHandler) RequestClear(c *gin.Context) {
	prompt, err := h.intake.RequestClear()
	if errors.Is(err, intake.ErrNothingToClear) {
		common.RespondNoContent(c)
		return
	}
	if err != nil {
		common.Fail(c, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to prepare confirmation"))
		return
	}
	common.RespondJSON(c, http.StatusOK, prompt)
}

// ConfirmClear обрабатывает POST /api/workspace/clear/confirm.
func (h *WorkspaceHandler) ConfirmClear(c *gin.Context) {
	var req dto.ClearTokenRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	if _, err := h.intake.ConfirmClear(req.Token); err != nil {
		common.Fail(c, apperror.Wrap(err, apperror.ErrCodeBadRequest, intake.ErrInvalidPrompt.Error()))
		return
	}
	h.board.Prune()
	common.RespondNoContent(c)
}

// CancelClear обрабатывает POST /api/workspace/clear/cancel. Отказ ничего не меняет.
func (h *WorkspaceHandler) CancelClear(c *gin.Context) {
	var req dto.ClearTokenRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.Fail(c, err)
		return
	}
	h.intake.CancelClear(req.Token)
	common.RespondNoContent(c)
}

// Export обрабатывает GET /api/workspace/export.
func (h *WorkspaceHandler) Export(c *gin.Context) {
	data, err := export.WorkspaceXLSX(h.store.List())
	if err != nil {
		common.Fail(c, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to build export"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="usernames.xlsx"`)
	c.Data(http.StatusOK, export.ContentType, data)
}

// Package card хранит временное состояние карточки файла: сканирование и копирование.
// Состояние живёт отдельно от store и не влияет на запись до успешного результата.
package card

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/username-extractor/internal/ai"
	"github.com/ignatzorin/username-extractor/internal/logger"
	"github.com/ignatzorin/username-extractor/internal/models"
	"github.com/ignatzorin/username-extractor/internal/notify"
)

const (
	// TooLargeMessage показывается, если файл больше ai.MaxScanBytes.
	TooLargeMessage = "File too large (>10MB)"
	// MsgCopied - уведомление после копирования.
	MsgCopied = "Copied to clipboard!"
	// AckDuration - сколько держится отметка «скопировано».
	AckDuration = 2 * time.Second
)

var (
	ErrScanInProgress   = errors.New("scan already in progress")
	ErrAlreadyExtracted = errors.New("username already extracted")
	ErrFileTooLarge     = errors.New(TooLargeMessage)
	ErrEntryNotFound    = errors.New("file not found")
	ErrNoAIName         = errors.New("no AI username to copy")
	ErrInvalidTarget    = errors.New("unknown copy target")
)

// View - снимок состояния карточки для отображения.
type View struct {
	State          models.ScanState `json:"state"`
	Error          string           `json:"error,omitempty"`
	CopiedFilename bool             `json:"copied_filename"`
	CopiedAI       bool             `json:"copied_ai"`
}

// Card - карточка одной записи.
type Card struct {
	id    uuid.UUID
	board *Board

	mu      sync.Mutex
	state   models.ScanState
	errMsg  string
	lastErr error
	done    chan struct{}
	acks    map[models.CopyTarget]time.Time
}

func newCard(id uuid.UUID, b *Board) *Card {
	return &Card{
		id:    id,
		board: b,
		state: models.ScanStateIdle,
		acks:  make(map[models.CopyTarget]time.Time, 2),
	}
}

// ID возвращает идентификатор записи.
func (c *Card) ID() uuid.UUID { return c.id }

// StartScan запускает распознавание в фоне.
// Повторный вызов во время сканирования возвращает ErrScanInProgress и ничего не меняет.
// Слишком большой файл сразу переводит карточку в ошибку, AI не вызывается.
func (c *Card) StartScan(ctx context.Context) error {
	_, err := c.start(ctx, c.board.run)
	return err
}

// Scan распознаёт синхронно и возвращает результат. Используется CLI.
func (c *Card) Scan(ctx context.Context) (string, error) {
	done, err := c.start(ctx, func(fn func()) { fn() })
	if err != nil {
		return "", err
	}
	<-done

	c.mu.Lock()
	scanErr := c.lastErr
	c.mu.Unlock()
	if scanErr != nil {
		return "", scanErr
	}

	entry, ok := c.board.store.Get(c.id)
	if !ok || !entry.HasAIName() {
		return "", ErrEntryNotFound
	}
	return *entry.AIName, nil
}

// Wait ждёт завершения текущего сканирования. Без активного сканирования возвращается сразу.
func (c *Card) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Card) start(ctx context.Context, run func(func())) (<-chan struct{}, error) {
	c.mu.Lock()
	// Запись читается под замком карточки: runScan сохраняет имя до возврата в idle.
	entry, ok := c.board.store.Get(c.id)
	if !ok {
		c.mu.Unlock()
		return nil, ErrEntryNotFound
	}
	if c.state == models.ScanStateScanning {
		c.mu.Unlock()
		return nil, ErrScanInProgress
	}
	if entry.HasAIName() {
		c.mu.Unlock()
		return nil, ErrAlreadyExtracted
	}
	if entry.FileSize > ai.MaxScanBytes {
		c.state = models.ScanStateError
		c.errMsg = TooLargeMessage
		c.lastErr = ErrFileTooLarge
		c.mu.Unlock()
		return nil, ErrFileTooLarge
	}
	c.state = models.ScanStateScanning
	c.errMsg = ""
	c.lastErr = nil
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	logger.WithEntry(c.id.String()).WithField("file", entry.FileName).Info("card: сканирование запущено")
	run(func() { c.runScan(ctx, entry, done) })
	return done, nil
}

func (c *Card) runScan(ctx context.Context, entry models.Entry, done chan struct{}) {
	defer close(done)

	name, err := c.extract(ctx, entry)
	if err == nil {
		// Запись могла быть удалена во время сканирования: тогда обновление ничего не делает.
		if !c.board.store.UpdateAIName(c.id, name) {
			logger.WithEntry(c.id.String()).Info("card: запись удалена до окончания сканирования")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = models.ScanStateError
		c.errMsg = err.Error()
		c.lastErr = err
		return
	}
	c.state = models.ScanStateIdle
}

func (c *Card) extract(ctx context.Context, entry models.Entry) (name string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithEntry(c.id.String()).WithField("panic", r).Error("card: panic при распознавании")
			err = &ai.ExtractionError{Message: "Failed to extract text with AI."}
		}
	}()
	return c.board.extractor.Extract(ctx, entry.Source)
}

// Copy копирует имя из файла или AI-результат в буфер обмена и ставит отметку на 2 секунды.
func (c *Card) Copy(ctx context.Context, target models.CopyTarget) (string, error) {
	if !target.Valid() {
		return "", ErrInvalidTarget
	}
	entry, ok := c.board.store.Get(c.id)
	if !ok {
		return "", ErrEntryNotFound
	}

	var text string
	switch target {
	case models.CopyTargetFilename:
		text = entry.DisplayName
	case models.CopyTargetAI:
		if !entry.HasAIName() {
			return "", ErrNoAIName
		}
		text = *entry.AIName
	}

	clip := c.board.clipboard
	c.board.run(func() {
		if err := clip.WriteText(ctx, text); err != nil {
			logger.Log.WithFields(logrus.Fields{"entry_id": c.id.String(), "target": target}).
				WithError(err).Warn("card: не удалось записать в буфер обмена")
		}
	})

	c.mu.Lock()
	c.acks[target] = c.board.now().Add(AckDuration)
	c.mu.Unlock()

	c.board.notifier.Notify(notify.KindSuccess, MsgCopied)
	return text, nil
}

// View возвращает текущее состояние карточки.
func (c *Card) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.board.now()
	return View{
		State:          c.state,
		Error:          c.errMsg,
		CopiedFilename: now.Before(c.acks[models.CopyTargetFilename]),
		CopiedAI:       now.Before(c.acks[models.CopyTargetAI]),
	}
}

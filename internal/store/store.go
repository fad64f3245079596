// Package store хранит упорядоченный список загруженных файлов.
// Все изменения проходят через AddFiles, Remove, UpdateAIName и ClearAll;
// каждая операция выполняется целиком под мьютексом.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/username-extractor/internal/logger"
	"github.com/ignatzorin/username-extractor/internal/media"
	"github.com/ignatzorin/username-extractor/internal/models"
	"github.com/ignatzorin/username-extractor/internal/notify"
	"github.com/ignatzorin/username-extractor/internal/preview"
)

// Тексты уведомлений.
const (
	MsgAIExtracted = "Username extracted!"
	MsgAllRemoved  = "All files removed"
)

// PreviewAllocator выдаёт и освобождает ссылки на миниатюры.
type PreviewAllocator interface {
	Acquire(src media.Source) preview.Handle
	Release(h preview.Handle) error
}

// Store - коллекция записей, новые сверху.
type Store struct {
	mu       sync.RWMutex
	entries  []models.Entry
	previews PreviewAllocator
	notifier notify.Notifier
	newID    func() uuid.UUID
	now      func() time.Time
}

// Option настраивает Store.
type Option func(*Store)

// WithIDGenerator подменяет генератор идентификаторов (по умолчанию uuid v4).
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithClock подменяет источник времени.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.now = fn
		}
	}
}

// New создаёт пустое хранилище.
func New(previews PreviewAllocator, notifier notify.Notifier, opts ...Option) *Store {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	s := &Store{
		previews: previews,
		notifier: notifier,
		newID:    uuid.New,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AddFiles добавляет пачку файлов в начало списка, сохраняя их порядок.
// Пустой ввод ничего не меняет и не отправляет уведомление.
func (s *Store) AddFiles(sources []media.Source) []models.Entry {
	if len(sources) == 0 {
		return nil
	}

	batch := make([]models.Entry, 0, len(sources))
	for _, src := range sources {
		batch = append(batch, s.newEntry(src))
	}

	s.mu.Lock()
	merged := make([]models.Entry, 0, len(batch)+len(s.entries))
	merged = append(merged, batch...)
	merged = append(merged, s.entries...)
	s.entries = merged
	s.mu.Unlock()

	logger.Log.WithField("count", len(batch)).Info("store: файлы добавлены")
	s.notifier.Notify(notify.KindSuccess, addedMessage(len(batch)))

	return cloneEntries(batch)
}

func (s *Store) newEntry(src media.Source) models.Entry {
	h := s.previews.Acquire(src)
	return models.Entry{
		ID:          s.newID(),
		FileName:    src.Name(),
		MIMEType:    src.MIMEType(),
		FileSize:    src.Size(),
		DisplayName: media.Normalize(src.Name()),
		Kind:        media.Classify(src.MIMEType()),
		PreviewURL:  h.URL,
		AddedAt:     s.now(),
		Source:      src,
		Preview:     h,
	}
}

// Remove удаляет запись и освобождает её миниатюру. Отсутствующий id - не ошибка.
func (s *Store) Remove(id uuid.UUID) bool {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	removed := s.entries[idx]
	rest := make([]models.Entry, 0, len(s.entries)-1)
	rest = append(rest, s.entries[:idx]...)
	rest = append(rest, s.entries[idx+1:]...)
	s.entries = rest
	s.release(removed)
	s.mu.Unlock()

	logger.WithEntry(id.String()).Info("store: файл удалён")
	return true
}

// UpdateAIName сохраняет имя, распознанное AI. Если запись уже удалена
// (сканирование завершилось после удаления), вызов ничего не делает.
func (s *Store) UpdateAIName(id uuid.UUID, name string) bool {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		logger.WithEntry(id.String()).Debug("store: результат AI для удалённого файла отброшен")
		return false
	}
	value := name
	s.entries[idx].AIName = &value
	s.mu.Unlock()

	s.notifier.Notify(notify.KindSuccess, MsgAIExtracted)
	return true
}

// ClearAll освобождает все миниатюры и очищает список за один шаг.
// Подтверждение пользователя запрашивается на стороне intake.
func (s *Store) ClearAll() int {
	s.mu.Lock()
	removed := s.entries
	s.entries = nil
	for _, e := range removed {
		s.release(e)
	}
	s.mu.Unlock()

	logger.Log.WithField("count", len(removed)).Info("store: все файлы удалены")
	s.notifier.Notify(notify.KindSuccess, MsgAllRemoved)
	return len(removed)
}

// Get возвращает копию записи.
func (s *Store) Get(id uuid.UUID) (models.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return models.Entry{}, false
	}
	return cloneEntry(s.entries[idx]), true
}

// List возвращает копию списка, новые записи первыми.
func (s *Store) List() []models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEntries(s.entries)
}

// Len возвращает количество записей.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// release вызывается ровно один раз для каждой записи, покидающей коллекцию.
func (s *Store) release(e models.Entry) {
	fields := logrus.Fields{"entry_id": e.ID.String(), "file": e.FileName}
	if err := s.previews.Release(e.Preview); err != nil {
		logger.Log.WithFields(fields).WithError(err).Error("store: не удалось освободить миниатюру")
	}
	if d, ok := e.Source.(media.Disposer); ok {
		if err := d.Dispose(); err != nil {
			logger.Log.WithFields(fields).WithError(err).Warn("store: не удалось удалить временный файл")
		}
	}
}

func (s *Store) indexOf(id uuid.UUID) int {
	for i := range s.entries {
		if s.entries[i].ID == id {
			return i
		}
	}
	return -1
}

func addedMessage(n int) string {
	if n == 1 {
		return "1 file added"
	}
	return fmt.Sprintf("%d files added", n)
}

func cloneEntry(e models.Entry) models.Entry {
	if e.AIName != nil {
		v := *e.AIName
		e.AIName = &v
	}
	return e
}

func cloneEntries(in []models.Entry) []models.Entry {
	out := make([]models.Entry, len(in))
	for i, e := range in {
		out[i] = cloneEntry(e)
	}
	return out
}

package card

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/username-extractor/internal/goroutine"
	"github.com/ignatzorin/username-extractor/internal/media"
	"github.com/ignatzorin/username-extractor/internal/models"
	"github.com/ignatzorin/username-extractor/internal/notify"
)

// EntryStore - часть store, нужная карточкам.
type EntryStore interface {
	Get(id uuid.UUID) (models.Entry, bool)
	UpdateAIName(id uuid.UUID, name string) bool
}

// Extractor распознаёт имя на изображении.
type Extractor interface {
	Extract(ctx context.Context, src media.Source) (string, error)
}

// Clipboard принимает текст для буфера обмена пользователя.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Runner запускает фоновую работу.
type Runner func(fn func())

type nopClipboard struct{}

func (nopClipboard) WriteText(context.Context, string) error { return nil }

// Board держит карточки по id записи.
type Board struct {
	store     EntryStore
	extractor Extractor
	clipboard Clipboard
	notifier  notify.Notifier
	run       Runner
	now       func() time.Time

	mu    sync.Mutex
	cards map[uuid.UUID]*Card
}

// Option настраивает Board.
type Option func(*Board)

// WithClipboard задаёт буфер обмена для Copy.
func WithClipboard(c Clipboard) Option {
	return func(b *Board) {
		if c != nil {
			b.clipboard = c
		}
	}
}

// WithNotifier задаёт получателя уведомлений о копировании.
func WithNotifier(n notify.Notifier) Option {
	return func(b *Board) {
		if n != nil {
			b.notifier = n
		}
	}
}

// WithRunner подменяет запуск фоновых задач (по умолчанию goroutine.SafeGo).
func WithRunner(r Runner) Option {
	return func(b *Board) {
		if r != nil {
			b.run = r
		}
	}
}

// WithClock подменяет источник времени для отметок копирования.
func WithClock(fn func() time.Time) Option {
	return func(b *Board) {
		if fn != nil {
			b.now = fn
		}
	}
}

// NewBoard создаёт реестр карточек.
func NewBoard(store EntryStore, extractor Extractor, opts ...Option) *Board {
	b := &Board{
		store:     store,
		extractor: extractor,
		clipboard: nopClipboard{},
		notifier:  notify.Nop{},
		run:       goroutine.SafeGo,
		now:       time.Now,
		cards:     make(map[uuid.UUID]*Card),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Card возвращает карточку записи, создавая её при первом обращении.
func (b *Board) Card(id uuid.UUID) (*Card, error) {
	if _, ok := b.store.Get(id); !ok {
		return nil, ErrEntryNotFound
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.cards[id]
	if !ok {
		c = newCard(id, b)
		b.cards[id] = c
	}
	return c, nil
}

// View возвращает состояние карточки без её создания.
func (b *Board) View(id uuid.UUID) View {
	b.mu.Lock()
	c, ok := b.cards[id]
	b.mu.Unlock()
	if !ok {
		return View{State: models.ScanStateIdle}
	}
	return c.View()
}

// Forget убирает карточку удалённой записи.
func (b *Board) Forget(id uuid.UUID) {
	b.mu.Lock()
	delete(b.cards, id)
	b.mu.Unlock()
}

// Prune убирает карточки всех записей, которых больше нет в store.
func (b *Board) Prune() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for id := range b.cards {
		if _, ok := b.store.Get(id); !ok {
			delete(b.cards, id)
			removed++
		}
	}
	return removed
}

// Len возвращает число активных карточек.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.cards)
}

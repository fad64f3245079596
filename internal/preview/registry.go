// Package preview выдаёт отзываемые ссылки для миниатюр.
// Ссылка создаётся вместе с записью и освобождается ровно один раз при её удалении.
package preview

import (
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/username-extractor/internal/media"
)

// ErrNotAcquired возвращается при работе с уже освобождённой или неизвестной ссылкой.
var ErrNotAcquired = errors.New("preview: handle is not acquired")

// Handle - отзываемая ссылка на миниатюру.
type Handle struct {
	Token uuid.UUID
	URL   string
}

// Registry хранит активные ссылки на миниатюры.
type Registry struct {
	mu      sync.RWMutex
	prefix  string
	handles map[uuid.UUID]media.Source
}

// NewRegistry создаёт реестр; prefix - путь, по которому раздаются миниатюры.
func NewRegistry(prefix string) *Registry {
	return &Registry{
		prefix:  prefix,
		handles: make(map[uuid.UUID]media.Source),
	}
}

// Acquire регистрирует источник и возвращает новую ссылку.
func (r *Registry) Acquire(src media.Source) Handle {
	token := uuid.New()

	r.mu.Lock()
	r.handles[token] = src
	r.mu.Unlock()

	return Handle{Token: token, URL: r.prefix + "/" + token.String()}
}

// Release отзывает ссылку. После этого Open для неё возвращает ErrNotAcquired.
func (r *Registry) Release(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handles[h.Token]; !ok {
		return ErrNotAcquired
	}
	delete(r.handles, h.Token)
	return nil
}

// Open открывает содержимое по активной ссылке.
func (r *Registry) Open(token uuid.UUID) (io.ReadCloser, media.Source, error) {
	r.mu.RLock()
	src, ok := r.handles[token]
	r.mu.RUnlock()

	if !ok {
		return nil, nil, ErrNotAcquired
	}
	rc, err := src.Open()
	if err != nil {
		return nil, nil, err
	}
	return rc, src, nil
}

// Active возвращает количество неосвобождённых ссылок.
func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

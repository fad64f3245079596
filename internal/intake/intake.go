// Package intake принимает файлы от пользователя и подтверждает массовое удаление.
// Файлы не фильтруются: любой тип попадает в store как есть.
package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/username-extractor/internal/logger"
	"github.com/ignatzorin/username-extractor/internal/media"
	"github.com/ignatzorin/username-extractor/internal/models"
	"github.com/ignatzorin/username-extractor/internal/storage"
)

// ErrNoFiles возвращается, если в запросе нет ни одного файла.
var ErrNoFiles = errors.New("no files provided")

// EntryStore - часть store, нужная intake.
type EntryStore interface {
	AddFiles(sources []media.Source) []models.Entry
	ClearAll() int
	Len() int
}

// Spooler сохраняет загруженные байты на время жизни записи.
type Spooler interface {
	Save(ctx context.Context, originalName, mimeType string, r io.Reader) (*storage.SpooledFile, error)
}

// Surface - точка входа для файлов и подтверждения очистки.
type Surface struct {
	store   EntryStore
	spool   Spooler
	confirm *confirmer
}

// Option настраивает Surface.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock подменяет источник времени для токенов подтверждения.
func WithClock(fn func() time.Time) Option {
	return func(o *options) {
		if fn != nil {
			o.now = fn
		}
	}
}

// New создаёт Surface. secret подписывает токены подтверждения, ttl - их срок жизни.
func New(store EntryStore, spool Spooler, secret string, ttl time.Duration, opts ...Option) *Surface {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Surface{
		store:   store,
		spool:   spool,
		confirm: newConfirmer(secret, ttl, o.now),
	}
}

// AcceptUploads сохраняет все части запроса и добавляет их в store одной пачкой.
// Если хотя бы одна часть не сохранилась, уже сохранённые удаляются и ничего не добавляется.
func (s *Surface) AcceptUploads(ctx context.Context, files []*multipart.FileHeader) ([]models.Entry, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	spooled := make([]*storage.SpooledFile, 0, len(files))
	rollback := func() {
		for _, f := range spooled {
			_ = f.Dispose()
		}
	}

	for _, fh := range files {
		f, err := s.spoolPart(ctx, fh)
		if err != nil {
			rollback()
			logger.Log.WithFields(logrus.Fields{"file": fh.Filename, "size": fh.Size}).
				WithError(err).Error("intake: не удалось сохранить файл")
			return nil, err
		}
		spooled = append(spooled, f)
	}

	sources := make([]media.Source, len(spooled))
	for i, f := range spooled {
		sources[i] = f
	}
	return s.store.AddFiles(sources), nil
}

func (s *Surface) spoolPart(ctx context.Context, fh *multipart.FileHeader) (*storage.SpooledFile, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("intake: не удалось открыть %s: %w", fh.Filename, err)
	}
	defer src.Close()

	f, err := s.spool.Save(ctx, fh.Filename, fh.Header.Get("Content-Type"), src)
	if err != nil {
		return nil, err
	}

	// Тип, который прислал браузер, приоритетнее; магические байты только заполняют пробел.
	if declared := f.MIMEType(); declared == "" || declared == "application/octet-stream" {
		header, err := readHeader(f)
		if err != nil {
			_ = f.Dispose()
			return nil, err
		}
		f.SetMIMEType(media.DetectMIME(header, declared))
	}
	return f, nil
}

func readHeader(src media.Source) ([]byte, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("intake: не удалось прочитать %s: %w", src.Name(), err)
	}
	defer rc.Close()

	buf := make([]byte, media.SniffLen)
	n, err := io.ReadFull(rc, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("intake: не удалось прочитать %s: %w", src.Name(), err)
	}
	return buf[:n], nil
}

// AcceptPaths добавляет локальные файлы (CLI). Сами файлы при удалении записи не трогаются.
func (s *Surface) AcceptPaths(ctx context.Context, paths []string) ([]models.Entry, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}

	sources := make([]media.Source, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := media.OpenFile(p)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return s.store.AddFiles(sources), nil
}

// RequestClear выдаёт запрос подтверждения. Для пустого store запрос не создаётся.
func (s *Surface) RequestClear() (Prompt, error) {
	n := s.store.Len()
	if n == 0 {
		return Prompt{}, ErrNothingToClear
	}
	return s.confirm.issue(n)
}

// ConfirmClear удаляет все файлы по действующему токену и возвращает их количество.
func (s *Surface) ConfirmClear(token string) (int, error) {
	if err := s.confirm.consume(token); err != nil {
		return 0, err
	}
	return s.store.ClearAll(), nil
}

// CancelClear отзывает запрос подтверждения без каких-либо действий.
// Недействительный токен не считается ошибкой: отказ ничего не меняет.
func (s *Surface) CancelClear(token string) {
	if err := s.confirm.consume(token); err != nil {
		logger.Log.WithError(err).Debug("intake: отмена недействительного запроса очистки")
	}
}

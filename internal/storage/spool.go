package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrFileTooLarge возвращается, если файл больше MAX_UPLOAD_MB.
var ErrFileTooLarge = errors.New("file exceeds upload limit")

// Spool держит байты загруженных файлов во временном каталоге
// на время жизни записи. Между запусками ничего не сохраняется.
type Spool struct {
	rootPath       string
	maxUploadBytes int64
}

// NewSpool создаёт временное хранилище.
func NewSpool(rootPath string, maxUploadMB int64) (*Spool, error) {
	if err := os.MkdirAll(rootPath, 0o700); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &Spool{
		rootPath:       rootPath,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// Save сохраняет содержимое r и возвращает источник, владеющий файлом.
func (s *Spool) Save(ctx context.Context, originalName, mimeType string, r io.Reader) (*SpooledFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	safeName := sanitizeFilename(originalName)
	targetPath := filepath.Join(s.rootPath, uuid.NewString()+filepath.Ext(safeName))
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	limitedReader := io.LimitedReader{R: r, N: s.maxUploadBytes + 1}
	written, err := io.Copy(f, &limitedReader)
	if err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}

	if written > s.maxUploadBytes {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("storage: лимит %d байт: %w", s.maxUploadBytes, ErrFileTooLarge)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return &SpooledFile{
		path:     targetPath,
		name:     originalName,
		mimeType: mimeType,
		size:     written,
	}, nil
}

// Purge удаляет все оставшиеся файлы (при остановке сервера).
func (s *Spool) Purge() error {
	entries, err := os.ReadDir(s.rootPath)
	if err != nil {
		return fmt.Errorf("storage: не удалось прочитать каталог: %w", err)
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(s.rootPath, e.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("storage: не удалось удалить файл: %w", err)
		}
	}
	return nil
}

// SpooledFile - файл во временном хранилище. Реализует media.Source и media.Disposer.
type SpooledFile struct {
	path     string
	name     string
	mimeType string
	size     int64

	once sync.Once
	err  error
}

func (f *SpooledFile) Name() string     { return f.name }
func (f *SpooledFile) MIMEType() string { return f.mimeType }
func (f *SpooledFile) Size() int64      { return f.size }
func (f *SpooledFile) Path() string     { return f.path }

// SetMIMEType уточняет MIME тип после определения по магическим байтам.
func (f *SpooledFile) SetMIMEType(mimeType string) { f.mimeType = mimeType }

func (f *SpooledFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// Dispose удаляет файл с диска. Повторный вызов возвращает результат первого.
func (f *SpooledFile) Dispose() error {
	f.once.Do(func() {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			f.err = fmt.Errorf("storage: не удалось удалить файл: %w", err)
		}
	})
	return f.err
}

// sanitizeFilename удаляет потенциально опасные символы.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" || name == "." {
		name = "upload"
	}
	return name
}

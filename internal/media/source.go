package media

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// Source - данные и метаданные файла, добавленного пользователем.
type Source interface {
	Name() string
	MIMEType() string
	Size() int64
	Open() (io.ReadCloser, error)
}

// Disposer реализуют источники, которые владеют временными данными
// и должны удалить их при удалении записи.
type Disposer interface {
	Dispose() error
}

// FileSource - файл на локальном диске (intake из CLI).
// Файлы пользователя никогда не удаляются, поэтому Disposer не реализуется.
type FileSource struct {
	path     string
	name     string
	mimeType string
	size     int64
}

// OpenFile читает метаданные файла и определяет MIME тип по расширению,
// а при неудаче - по магическим байтам.
func OpenFile(path string) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("media: не удалось прочитать %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("media: %s является каталогом", path)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		header, err := readHeader(path)
		if err != nil {
			return nil, err
		}
		mimeType = DetectMIME(header, "")
	}

	return &FileSource{
		path:     path,
		name:     filepath.Base(path),
		mimeType: mimeType,
		size:     info.Size(),
	}, nil
}

func (f *FileSource) Name() string     { return f.name }
func (f *FileSource) MIMEType() string { return f.mimeType }
func (f *FileSource) Size() int64      { return f.size }
func (f *FileSource) Path() string     { return f.path }

func (f *FileSource) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

func readHeader(path string) ([]byte, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("media: не удалось открыть %s: %w", path, err)
	}
	defer fh.Close()

	buf := make([]byte, SniffLen)
	n, err := io.ReadFull(fh, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("media: не удалось прочитать %s: %w", path, err)
	}
	return buf[:n], nil
}

// MemorySource хранит содержимое файла в памяти.
type MemorySource struct {
	name     string
	mimeType string
	data     []byte
}

// NewMemorySource создаёт источник из байтов.
func NewMemorySource(name, mimeType string, data []byte) *MemorySource {
	return &MemorySource{name: name, mimeType: mimeType, data: data}
}

func (m *MemorySource) Name() string     { return m.name }
func (m *MemorySource) MIMEType() string { return m.mimeType }
func (m *MemorySource) Size() int64      { return int64(len(m.data)) }

func (m *MemorySource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrRead - файл не удалось прочитать для кодирования.
var ErrRead = errors.New("media: file read failed")

// ReadError описывает сбой чтения конкретного файла.
type ReadError struct {
	Name  string
	Cause error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("media: не удалось прочитать %q: %v", e.Name, e.Cause)
}

func (e *ReadError) Unwrap() error { return e.Cause }

func (e *ReadError) Is(target error) bool { return target == ErrRead }

// EncodeBase64 читает файл целиком и возвращает стандартный base64 без префикса data URL.
func EncodeBase64(ctx context.Context, src Source) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &ReadError{Name: src.Name(), Cause: err}
	}

	rc, err := src.Open()
	if err != nil {
		return "", &ReadError{Name: src.Name(), Cause: err}
	}
	defer rc.Close()

	var sb strings.Builder
	enc := base64.NewEncoder(base64.StdEncoding, &sb)
	if _, err := io.Copy(enc, contextReader{ctx: ctx, r: rc}); err != nil {
		return "", &ReadError{Name: src.Name(), Cause: err}
	}
	if err := enc.Close(); err != nil {
		return "", &ReadError{Name: src.Name(), Cause: err}
	}

	return StripDataURL(sb.String()), nil
}

// StripDataURL убирает префикс вида "data:image/png;base64," если он есть.
func StripDataURL(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if idx := strings.IndexByte(s, ','); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// DataURL собирает data URL из MIME типа и base64 полезной нагрузки.
func DataURL(mimeType, payload string) string {
	return "data:" + mimeType + ";base64," + payload
}

// contextReader прерывает чтение при отмене контекста.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// Package media содержит чистые функции над загруженными файлами:
// имя пользователя из имени файла, тип медиа по MIME и кодирование в base64.
package media

import (
	"regexp"
	"strings"

	"github.com/h2non/filetype"
)

// Kind - вид медиа, определённый по MIME типу.
type Kind string

const (
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindUnknown Kind = "unknown"
)

// extensionPattern совпадает с последним расширением: точка и хотя бы один символ, кроме "/" и ".".
var extensionPattern = regexp.MustCompile(`\.[^/.]+$`)

// Normalize убирает последнее расширение из имени файла.
// Регистр, пробелы и спецсимволы сохраняются: они встречаются в именах пользователей.
func Normalize(name string) string {
	return extensionPattern.ReplaceAllString(name, "")
}

// Classify возвращает вид медиа по MIME типу.
func Classify(mimeType string) Kind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case strings.HasPrefix(mimeType, "video/"):
		return KindVideo
	default:
		return KindUnknown
	}
}

// SniffLen - сколько первых байт файла достаточно для DetectMIME.
const SniffLen = 262

// DetectMIME возвращает объявленный MIME тип, а если он пустой или
// application/octet-stream, пытается определить тип по магическим байтам.
// Файл никогда не отклоняется: неизвестный тип остаётся как есть.
func DetectMIME(header []byte, declared string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}

	kind, err := filetype.Match(header)
	if err != nil || kind == filetype.Unknown {
		return declared
	}
	return kind.MIME.Value
}

package intake

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/username-extractor/internal/media"
	"github.com/ignatzorin/username-extractor/internal/preview"
	"github.com/ignatzorin/username-extractor/internal/storage"
	"github.com/ignatzorin/username-extractor/internal/store"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type part struct {
	name string
	mime string
	data []byte
}

func fileHeaders(t *testing.T, parts ...part) []*multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, p.name))
		if p.mime != "" {
			h.Set("Content-Type", p.mime)
		}
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["files"]
}

type env struct {
	dir     string
	store   *store.Store
	surface *Surface
	now     *time.Time
}

func newEnv(t *testing.T, maxMB int64) env {
	t.Helper()
	dir := t.TempDir()
	spool, err := storage.NewSpool(dir, maxMB)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	st := store.New(preview.NewRegistry("/previews"), nil)
	s := New(st, spool, "test-secret", 30*time.Second, WithClock(func() time.Time { return now }))
	return env{dir: dir, store: st, surface: s, now: &now}
}

func spooledCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestAcceptUploads_AddsUnfilteredBatchInOrder(t *testing.T) {
	e := newEnv(t, 1)

	added, err := e.surface.AcceptUploads(context.Background(), fileHeaders(t,
		part{name: "alice.png", mime: "image/png", data: pngHeader},
		part{name: "notes.txt", mime: "text/plain", data: []byte("hello")},
		part{name: "clip.mp4", mime: "video/mp4", data: []byte("....")},
	))
	require.NoError(t, err)
	require.Len(t, added, 3)

	assert.Equal(t, "alice", added[0].DisplayName)
	assert.Equal(t, media.KindImage, added[0].Kind)
	assert.Equal(t, media.KindUnknown, added[1].Kind, "неподдерживаемые типы тоже принимаются")
	assert.Equal(t, media.KindVideo, added[2].Kind)
	assert.Equal(t, 3, e.store.Len())
	assert.Equal(t, 3, spooledCount(t, e.dir))
}

func TestAcceptUploads_SniffsMissingMIME(t *testing.T) {
	e := newEnv(t, 1)

	added, err := e.surface.AcceptUploads(context.Background(), fileHeaders(t,
		part{name: "screenshot", data: pngHeader},
		part{name: "blob.bin", mime: "application/octet-stream", data: pngHeader},
	))
	require.NoError(t, err)

	assert.Equal(t, "image/png", added[0].MIMEType)
	assert.Equal(t, media.KindImage, added[0].Kind)
	assert.Equal(t, "image/png", added[1].MIMEType)
}

func TestAcceptUploads_SameFileTwiceCreatesTwoEntries(t *testing.T) {
	e := newEnv(t, 1)
	p := part{name: "bob.png", mime: "image/png", data: pngHeader}

	first, err := e.surface.AcceptUploads(context.Background(), fileHeaders(t, p))
	require.NoError(t, err)
	second, err := e.surface.AcceptUploads(context.Background(), fileHeaders(t, p))
	require.NoError(t, err)

	assert.NotEqual(t, first[0].ID, second[0].ID)
	assert.Equal(t, 2, e.store.Len())
}

func TestAcceptUploads_RollsBackOnFailure(t *testing.T) {
	e := newEnv(t, 1)

	_, err := e.surface.AcceptUploads(context.Background(), fileHeaders(t,
		part{name: "ok.png", mime: "image/png", data: pngHeader},
		part{name: "huge.png", mime: "image/png", data: bytes.Repeat([]byte{1}, 1<<20+1)},
	))
	require.Error(t, err)

	assert.Equal(t, 0, e.store.Len())
	assert.Equal(t, 0, spooledCount(t, e.dir), "сохранённые части удаляются")
}

func TestAcceptUploads_Empty(t *testing.T) {
	e := newEnv(t, 1)
	_, err := e.surface.AcceptUploads(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestAcceptPaths(t *testing.T) {
	e := newEnv(t, 1)
	dir := t.TempDir()
	path := filepath.Join(dir, "carol.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0o600))

	added, err := e.surface.AcceptPaths(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, "carol", added[0].DisplayName)

	e.store.Remove(added[0].ID)
	_, err = os.Stat(path)
	assert.NoError(t, err, "локальный файл пользователя не удаляется")

	_, err = e.surface.AcceptPaths(context.Background(), []string{filepath.Join(dir, "missing.png")})
	assert.Error(t, err)
}

func TestClear_ConfirmIsSingleUse(t *testing.T) {
	e := newEnv(t, 1)
	_, err := e.surface.AcceptUploads(context.Background(), fileHeaders(t,
		part{name: "a.png", mime: "image/png", data: pngHeader},
		part{name: "b.png", mime: "image/png", data: pngHeader},
	))
	require.NoError(t, err)

	prompt, err := e.surface.RequestClear()
	require.NoError(t, err)
	assert.Equal(t, 2, prompt.Files)
	assert.Equal(t, ClearPromptMessage, prompt.Message)
	assert.Equal(t, e.now.Add(30*time.Second), prompt.ExpiresAt)

	n, err := e.surface.ConfirmClear(prompt.Token)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, e.store.Len())
	assert.Equal(t, 0, spooledCount(t, e.dir))

	_, err = e.surface.ConfirmClear(prompt.Token)
	assert.ErrorIs(t, err, ErrInvalidPrompt)
}

func TestClear_CancelPerformsNoAction(t *testing.T) {
	e := newEnv(t, 1)
	_, err := e.surface.AcceptUploads(context.Background(), fileHeaders(t, part{name: "a.png", mime: "image/png", data: pngHeader}))
	require.NoError(t, err)

	prompt, err := e.surface.RequestClear()
	require.NoError(t, err)
	e.surface.CancelClear(prompt.Token)

	assert.Equal(t, 1, e.store.Len())
	_, err = e.surface.ConfirmClear(prompt.Token)
	assert.ErrorIs(t, err, ErrInvalidPrompt)
	assert.Equal(t, 1, e.store.Len())
}

func TestClear_ExpiredAndForeignTokens(t *testing.T) {
	e := newEnv(t, 1)
	_, err := e.surface.AcceptUploads(context.Background(), fileHeaders(t, part{name: "a.png", mime: "image/png", data: pngHeader}))
	require.NoError(t, err)

	prompt, err := e.surface.RequestClear()
	require.NoError(t, err)
	*e.now = e.now.Add(time.Minute)
	_, err = e.surface.ConfirmClear(prompt.Token)
	assert.ErrorIs(t, err, ErrInvalidPrompt)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        "forged",
		Audience:  jwt.ClaimStrings{clearAudience},
		ExpiresAt: jwt.NewNumericDate(e.now.Add(time.Minute)),
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = e.surface.ConfirmClear(foreign)
	assert.ErrorIs(t, err, ErrInvalidPrompt)

	_, err = e.surface.ConfirmClear("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidPrompt)
	assert.Equal(t, 1, e.store.Len())
}

func TestClear_NothingToClear(t *testing.T) {
	e := newEnv(t, 1)
	_, err := e.surface.RequestClear()
	assert.ErrorIs(t, err, ErrNothingToClear)
	assert.Equal(t, 0, e.surface.confirm.outstanding())
}

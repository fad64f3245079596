package preview

import (
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/username-extractor/internal/media"
)

func TestRegistry_AcquireOpenRelease(t *testing.T) {
	reg := NewRegistry("/previews")
	src := media.NewMemorySource("alice.png", "image/png", []byte("img"))

	h := reg.Acquire(src)
	assert.Equal(t, "/previews/"+h.Token.String(), h.URL)
	assert.Equal(t, 1, reg.Active())

	rc, got, err := reg.Open(h.Token)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "img", string(data))
	assert.Equal(t, "alice.png", got.Name())

	require.NoError(t, reg.Release(h))
	assert.Equal(t, 0, reg.Active())

	_, _, err = reg.Open(h.Token)
	assert.ErrorIs(t, err, ErrNotAcquired, "после освобождения ссылка недействительна")
	assert.ErrorIs(t, reg.Release(h), ErrNotAcquired, "повторное освобождение обнаруживается")
}

func TestRegistry_TokensAreUnique(t *testing.T) {
	reg := NewRegistry("/p")
	src := media.NewMemorySource("a", "image/png", nil)

	seen := make(map[uuid.UUID]struct{})
	for i := 0; i < 1000; i++ {
		h := reg.Acquire(src)
		_, dup := seen[h.Token]
		require.False(t, dup)
		seen[h.Token] = struct{}{}
	}
	assert.Equal(t, 1000, reg.Active())
}

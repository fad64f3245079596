package card

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/username-extractor/internal/ai"
	"github.com/ignatzorin/username-extractor/internal/media"
	"github.com/ignatzorin/username-extractor/internal/models"
	"github.com/ignatzorin/username-extractor/internal/notify"
	"github.com/ignatzorin/username-extractor/internal/preview"
	"github.com/ignatzorin/username-extractor/internal/store"
)

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, src media.Source) (string, error) {
	args := m.Called(ctx, src)
	return args.String(0), args.Error(1)
}

// blockingExtractor ждёт сигнала, чтобы удержать карточку в состоянии scanning.
type blockingExtractor struct {
	calls   atomic.Int32
	release chan struct{}
	result  string
}

func (b *blockingExtractor) Extract(ctx context.Context, _ media.Source) (string, error) {
	b.calls.Add(1)
	select {
	case <-b.release:
		return b.result, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type recordingClipboard struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordingClipboard) WriteText(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return nil
}

type sizedSource struct {
	*media.MemorySource
	size int64
}

func (s sizedSource) Size() int64 { return s.size }

func syncRunner(fn func()) { fn() }

type fixture struct {
	store *store.Store
	entry models.Entry
	board *Board
}

func newFixture(t *testing.T, extractor Extractor, src media.Source, opts ...Option) fixture {
	t.Helper()
	st := store.New(preview.NewRegistry("/previews"), nil)
	added := st.AddFiles([]media.Source{src})
	require.Len(t, added, 1)
	return fixture{store: st, entry: added[0], board: NewBoard(st, extractor, opts...)}
}

func png(name string) media.Source {
	return media.NewMemorySource(name, "image/png", []byte("img"))
}

func TestStartScan_SuccessUpdatesStore(t *testing.T) {
	ex := new(mockExtractor)
	ex.On("Extract", mock.Anything, mock.Anything).Return("@alice", nil).Once()
	f := newFixture(t, ex, png("shot.png"), WithRunner(syncRunner))

	c, err := f.board.Card(f.entry.ID)
	require.NoError(t, err)
	require.NoError(t, c.StartScan(context.Background()))

	got, ok := f.store.Get(f.entry.ID)
	require.True(t, ok)
	require.NotNil(t, got.AIName)
	assert.Equal(t, "@alice", *got.AIName)
	assert.Equal(t, View{State: models.ScanStateIdle}, c.View())
	ex.AssertExpectations(t)
}

func TestStartScan_FailureSetsError(t *testing.T) {
	ex := new(mockExtractor)
	ex.On("Extract", mock.Anything, mock.Anything).
		Return("", &ai.ExtractionError{Message: "quota exceeded"}).Once()
	f := newFixture(t, ex, png("shot.png"), WithRunner(syncRunner))

	c, err := f.board.Card(f.entry.ID)
	require.NoError(t, err)
	require.NoError(t, c.StartScan(context.Background()))

	v := c.View()
	assert.Equal(t, models.ScanStateError, v.State)
	assert.Equal(t, "quota exceeded", v.Error)

	got, _ := f.store.Get(f.entry.ID)
	assert.Nil(t, got.AIName)
}

func TestStartScan_TooLargeNeverCallsExtractor(t *testing.T) {
	ex := new(mockExtractor)
	big := sizedSource{MemorySource: media.NewMemorySource("big.png", "image/png", nil), size: ai.MaxScanBytes + 1}
	f := newFixture(t, ex, big, WithRunner(syncRunner))

	c, err := f.board.Card(f.entry.ID)
	require.NoError(t, err)

	err = c.StartScan(context.Background())
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Equal(t, View{State: models.ScanStateError, Error: "File too large (>10MB)"}, c.View())
	ex.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestStartScan_ExactlyTenMiBIsAllowed(t *testing.T) {
	ex := new(mockExtractor)
	ex.On("Extract", mock.Anything, mock.Anything).Return("@edge", nil).Once()
	edge := sizedSource{MemorySource: media.NewMemorySource("edge.png", "image/png", nil), size: ai.MaxScanBytes}
	f := newFixture(t, ex, edge, WithRunner(syncRunner))

	c, err := f.board.Card(f.entry.ID)
	require.NoError(t, err)
	assert.NoError(t, c.StartScan(context.Background()))
	ex.AssertExpectations(t)
}

func TestStartScan_AlreadyExtracted(t *testing.T) {
	ex := new(mockExtractor)
	f := newFixture(t, ex, png("shot.png"), WithRunner(syncRunner))
	f.store.UpdateAIName(f.entry.ID, "@known")

	c, err := f.board.Card(f.entry.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, c.StartScan(context.Background()), ErrAlreadyExtracted)
	ex.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestStartScan_ConcurrentRequestsCallExtractorOnce(t *testing.T) {
	ex := &blockingExtractor{release: make(chan struct{}), result: "@once"}
	f := newFixture(t, ex, png("shot.png"))

	c, err := f.board.Card(f.entry.ID)
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	var started, ignored atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch err := c.StartScan(context.Background()); {
			case err == nil:
				started.Add(1)
			case errors.Is(err, ErrScanInProgress):
				ignored.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), started.Load())
	assert.Equal(t, int32(n-1), ignored.Load())
	assert.Equal(t, models.ScanStateScanning, c.View().State)

	close(ex.release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))

	assert.Equal(t, int32(1), ex.calls.Load())
	got, _ := f.store.Get(f.entry.ID)
	require.NotNil(t, got.AIName)
	assert.Equal(t, "@once", *got.AIName)
}

// gatedStore задерживает первый Get после arm, пока тест не отпустит его.
type gatedStore struct {
	*store.Store
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Get(id uuid.UUID) (models.Entry, bool) {
	if g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		<-g.release
	}
	return g.Store.Get(id)
}

type countingExtractor struct {
	calls atomic.Int32
}

func (e *countingExtractor) Extract(context.Context, media.Source) (string, error) {
	e.calls.Add(1)
	return "@alice", nil
}

func TestStartScan_RapidSuccessionAfterSuccessDoesNotRescan(t *testing.T) {
	st := store.New(preview.NewRegistry("/previews"), nil)
	added := st.AddFiles([]media.Source{png("shot.png")})
	require.Len(t, added, 1)

	gs := &gatedStore{Store: st, entered: make(chan struct{}), release: make(chan struct{})}
	ex := &countingExtractor{}
	board := NewBoard(gs, ex, WithRunner(syncRunner))
	c, err := board.Card(added[0].ID)
	require.NoError(t, err)

	gs.armed.Store(true)
	slowErr := make(chan error, 1)
	go func() { slowErr <- c.StartScan(context.Background()) }()
	<-gs.entered

	fastErr := make(chan error, 1)
	go func() { fastErr <- c.StartScan(context.Background()) }()
	select {
	case <-fastErr:
		t.Fatal("second scan must wait for the first lookup")
	case <-time.After(50 * time.Millisecond):
	}
	close(gs.release)

	first := <-slowErr
	second := <-fastErr
	require.NoError(t, first)
	assert.True(t, errors.Is(second, ErrAlreadyExtracted) || errors.Is(second, ErrScanInProgress), "unexpected error: %v", second)
	assert.Equal(t, int32(1), ex.calls.Load())

	got, ok := st.Get(added[0].ID)
	require.True(t, ok)
	require.NotNil(t, got.AIName)
	assert.Equal(t, "@alice", *got.AIName)
}

func TestStartScan_EntryRemovedMidScan(t *testing.T) {
	ex := &blockingExtractor{release: make(chan struct{}), result: "@late"}
	var notes []string
	var mu sync.Mutex
	notifier := notify.Func(func(_ notify.Kind, msg string) {
		mu.Lock()
		notes = append(notes, msg)
		mu.Unlock()
	})

	st := store.New(preview.NewRegistry("/previews"), notifier)
	entry := st.AddFiles([]media.Source{png("shot.png")})[0]
	board := NewBoard(st, ex)

	c, err := board.Card(entry.ID)
	require.NoError(t, err)
	require.NoError(t, c.StartScan(context.Background()))

	require.True(t, st.Remove(entry.ID))
	board.Forget(entry.ID)
	close(ex.release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))

	assert.Equal(t, 0, st.Len())
	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, notes, store.MsgAIExtracted)
}

func TestStartScan_RetryAfterError(t *testing.T) {
	ex := new(mockExtractor)
	ex.On("Extract", mock.Anything, mock.Anything).Return("", errors.New("network down")).Once()
	ex.On("Extract", mock.Anything, mock.Anything).Return("@second", nil).Once()
	f := newFixture(t, ex, png("shot.png"), WithRunner(syncRunner))

	c, err := f.board.Card(f.entry.ID)
	require.NoError(t, err)
	require.NoError(t, c.StartScan(context.Background()))
	assert.Equal(t, models.ScanStateError, c.View().State)

	require.NoError(t, c.StartScan(context.Background()))
	assert.Equal(t, View{State: models.ScanStateIdle}, c.View())
	ex.AssertExpectations(t)
}

func TestStartScan_PanicBecomesError(t *testing.T) {
	ex := new(mockExtractor)
	ex.On("Extract", mock.Anything, mock.Anything).Run(func(mock.Arguments) { panic("boom") }).Return("", nil)
	f := newFixture(t, ex, png("shot.png"), WithRunner(syncRunner))

	c, err := f.board.Card(f.entry.ID)
	require.NoError(t, err)
	require.NoError(t, c.StartScan(context.Background()))

	v := c.View()
	assert.Equal(t, models.ScanStateError, v.State)
	assert.Equal(t, "Failed to extract text with AI.", v.Error)
}

func TestScan_Synchronous(t *testing.T) {
	ex := new(mockExtractor)
	ex.On("Extract", mock.Anything, mock.Anything).Return("@cli", nil).Once()
	f := newFixture(t, ex, png("shot.png"))

	c, err := f.board.Card(f.entry.ID)
	require.NoError(t, err)

	name, err := c.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "@cli", name)

	_, err = c.Scan(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyExtracted)
}

func TestScan_ReturnsExtractionError(t *testing.T) {
	ex := new(mockExtractor)
	ex.On("Extract", mock.Anything, mock.Anything).
		Return("", &ai.ExtractionError{Message: ai.ErrNotConfigured.Error(), Cause: ai.ErrNotConfigured}).Once()
	f := newFixture(t, ex, png("shot.png"))

	c, err := f.board.Card(f.entry.ID)
	require.NoError(t, err)

	_, err = c.Scan(context.Background())
	assert.ErrorIs(t, err, ai.ErrNotConfigured)
	assert.Equal(t, "AI service is not configured", c.View().Error)
}

func TestCopy_AcknowledgementsAreIndependentAndExpire(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	clip := &recordingClipboard{}
	var notes []string
	notifier := notify.Func(func(_ notify.Kind, msg string) { notes = append(notes, msg) })

	f := newFixture(t, new(mockExtractor), png("alice.png"),
		WithRunner(syncRunner), WithClock(clock), WithClipboard(clip), WithNotifier(notifier))
	f.store.UpdateAIName(f.entry.ID, "@alice_ai")

	c, err := f.board.Card(f.entry.ID)
	require.NoError(t, err)

	text, err := c.Copy(context.Background(), models.CopyTargetFilename)
	require.NoError(t, err)
	assert.Equal(t, "alice", text)
	v := c.View()
	assert.True(t, v.CopiedFilename)
	assert.False(t, v.CopiedAI, "копирование имени файла не трогает отметку AI")

	now = now.Add(time.Second)
	text, err = c.Copy(context.Background(), models.CopyTargetAI)
	require.NoError(t, err)
	assert.Equal(t, "@alice_ai", text)
	v = c.View()
	assert.True(t, v.CopiedFilename)
	assert.True(t, v.CopiedAI)

	now = now.Add(1500 * time.Millisecond)
	v = c.View()
	assert.False(t, v.CopiedFilename, "отметка держится 2 секунды")
	assert.True(t, v.CopiedAI)

	now = now.Add(time.Second)
	assert.False(t, c.View().CopiedAI)

	assert.Equal(t, []string{"alice", "@alice_ai"}, clip.texts)
	assert.Equal(t, []string{MsgCopied, MsgCopied}, notes)
}

func TestCopy_Errors(t *testing.T) {
	f := newFixture(t, new(mockExtractor), png("bob.png"), WithRunner(syncRunner))
	c, err := f.board.Card(f.entry.ID)
	require.NoError(t, err)

	_, err = c.Copy(context.Background(), models.CopyTargetAI)
	assert.ErrorIs(t, err, ErrNoAIName)

	_, err = c.Copy(context.Background(), models.CopyTarget("bogus"))
	assert.ErrorIs(t, err, ErrInvalidTarget)

	f.store.Remove(f.entry.ID)
	_, err = c.Copy(context.Background(), models.CopyTargetFilename)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestBoard_CardLifecycle(t *testing.T) {
	st := store.New(preview.NewRegistry("/previews"), nil)
	entries := st.AddFiles([]media.Source{png("a.png"), png("b.png")})
	board := NewBoard(st, new(mockExtractor))

	a, err := board.Card(entries[0].ID)
	require.NoError(t, err)
	again, err := board.Card(entries[0].ID)
	require.NoError(t, err)
	assert.Same(t, a, again)

	_, err = board.Card(entries[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, board.Len())

	assert.Equal(t, View{State: models.ScanStateIdle}, board.View(entries[1].ID))

	st.Remove(entries[0].ID)
	assert.Equal(t, 1, board.Prune())
	assert.Equal(t, 1, board.Len())

	board.Forget(entries[1].ID)
	assert.Equal(t, 0, board.Len())

	_, err = board.Card(entries[0].ID)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

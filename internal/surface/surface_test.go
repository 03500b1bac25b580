package surface

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zserge/lorca"
	"go.uber.org/zap"
)

type fakeWindow struct {
	mu     sync.Mutex
	url    string
	bounds []lorca.Bounds
	token  string
	closes int

	done     chan struct{}
	doneOnce sync.Once
}

func newFakeWindow(url string) *fakeWindow {
	return &fakeWindow{url: url, done: make(chan struct{})}
}

func (w *fakeWindow) Load(url string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.url = url
	return nil
}

func (w *fakeWindow) Bounds() (lorca.Bounds, error) {
	return lorca.Bounds{Left: 10, Top: 20}, nil
}

func (w *fakeWindow) SetBounds(b lorca.Bounds) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.bounds = append(w.bounds, b)
	return nil
}

func (w *fakeWindow) Eval(string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.token, nil
}

func (w *fakeWindow) Done() <-chan struct{} {
	return w.done
}

func (w *fakeWindow) Close() error {
	w.mu.Lock()
	w.closes++
	w.mu.Unlock()

	w.doneOnce.Do(func() { close(w.done) })
	return nil
}

func (w *fakeWindow) setToken(token string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.token = token
}

func (w *fakeWindow) lastBounds() lorca.Bounds {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.bounds[len(w.bounds)-1]
}

type fakeLauncher struct {
	mu      sync.Mutex
	windows []*fakeWindow
	err     error
}

func (l *fakeLauncher) launch(url, dir string, width, height int, args ...string) (window, error) {
	if l.err != nil {
		return nil, l.err
	}

	w := newFakeWindow(url)

	l.mu.Lock()
	l.windows = append(l.windows, w)
	l.mu.Unlock()

	return w, nil
}

func TestPlaceholderURL_IsSelfContained(t *testing.T) {
	url := PlaceholderURL()

	prefix := "data:text/html;charset=utf-8;base64,"
	require.True(t, strings.HasPrefix(url, prefix))

	page, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, prefix))
	require.NoError(t, err)

	assert.Contains(t, string(page), "<h1>Starting application</h1>")
	assert.NotContains(t, string(page), "http")
}

func TestFactory_Placeholder_LoadsLoadingPage(t *testing.T) {
	l := &fakeLauncher{}
	f := newFactory(Config{}, l.launch, zap.NewNop())

	s, err := f.Placeholder(context.Background())
	require.NoError(t, err)
	defer s.Close()

	require.Len(t, l.windows, 1)
	assert.Equal(t, PlaceholderURL(), l.windows[0].url)
}

func TestFactory_Main_StartsHidden(t *testing.T) {
	l := &fakeLauncher{}
	f := newFactory(Config{}, l.launch, zap.NewNop())

	s, err := f.Main(context.Background())
	require.NoError(t, err)
	defer s.Close()

	require.Len(t, l.windows, 1)
	assert.Equal(t, lorca.WindowStateMinimized, l.windows[0].lastBounds().WindowState)
}

func TestFactory_LaunchFails(t *testing.T) {
	l := &fakeLauncher{err: assert.AnError}
	f := newFactory(Config{}, l.launch, zap.NewNop())

	_, err := f.Main(context.Background())
	assert.ErrorIs(t, err, assert.AnError)

	_, err = f.Placeholder(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSurface_Show_RestoresNormalState(t *testing.T) {
	w := newFakeWindow("")
	s := newWindowSurface(w, "main", 800, 600, 0, zap.NewNop())

	require.NoError(t, s.Hide())
	require.NoError(t, s.Show())

	assert.Equal(t, lorca.Bounds{
		Left:        10,
		Top:         20,
		Width:       800,
		Height:      600,
		WindowState: lorca.WindowStateNormal,
	}, w.lastBounds())
}

func TestSurface_Close_IsIdempotent(t *testing.T) {
	w := newFakeWindow("")
	s := newWindowSurface(w, "main", 800, 600, 0, zap.NewNop())

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())

	assert.Equal(t, 1, w.closes)

	select {
	case <-s.Done():
	default:
		t.Fatal("surface not done after close")
	}
}

func TestSurface_OnDOMReady_FiresPerDocument(t *testing.T) {
	w := newFakeWindow("")
	s := newWindowSurface(w, "main", 800, 600, 5*time.Millisecond, zap.NewNop())
	defer s.Close()

	var calls atomic.Int32
	s.OnDOMReady(func() { calls.Add(1) })

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	w.setToken("1")

	require.Eventually(t, func() bool {
		return calls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// the same document does not notify again
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	// a reload does
	w.setToken("2")

	require.Eventually(t, func() bool {
		return calls.Load() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestDialogNotifier_ShowsEscapedNotice(t *testing.T) {
	l := &fakeLauncher{}
	n := newDialogNotifier(Config{DialogTimeout: 50 * time.Millisecond}, l.launch, zap.NewNop())

	n.Notify(context.Background(), Notice{
		Title:   "Backend failed",
		Message: "<script>alert(1)</script>",
		Err:     assert.AnError,
	})

	require.Len(t, l.windows, 1)

	w := l.windows[0]
	assert.Equal(t, 1, w.closes)

	page, err := base64.StdEncoding.DecodeString(strings.SplitN(w.url, ",", 2)[1])
	require.NoError(t, err)

	assert.Contains(t, string(page), "Backend failed")
	assert.NotContains(t, string(page), "<script>")
}

func TestDialogNotifier_ReturnsWhenDialogClosed(t *testing.T) {
	l := &fakeLauncher{}
	n := newDialogNotifier(Config{DialogTimeout: time.Minute}, l.launch, zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		n.Notify(context.Background(), Notice{Title: "t"})
	}()

	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.windows) == 1
	}, time.Second, 5*time.Millisecond)

	l.mu.Lock()
	w := l.windows[0]
	l.mu.Unlock()

	w.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notify did not return")
	}
}

func TestDialogNotifier_NoWindow_DoesNotBlock(t *testing.T) {
	l := &fakeLauncher{err: ErrNoBrowser}
	n := newDialogNotifier(Config{}, l.launch, zap.NewNop())

	n.Notify(context.Background(), Notice{Title: "t", Err: assert.AnError})
}

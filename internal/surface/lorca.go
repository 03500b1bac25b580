package surface

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zserge/lorca"
	"go.uber.org/zap"
)

// domStateScript yields a token identifying the current document once it
// finished loading from an http origin, and an empty string otherwise.
const domStateScript = `(document.readyState === 'complete' && /^https?:$/.test(location.protocol)) ? String(performance.timeOrigin) : ''`

// window is the subset of a browser window the surfaces rely on.
type window interface {
	Load(url string) error
	Bounds() (lorca.Bounds, error)
	SetBounds(lorca.Bounds) error
	Eval(js string) (string, error)
	Done() <-chan struct{}
	Close() error
}

type windowLauncher func(url, dir string, width, height int, args ...string) (window, error)

type lorcaWindow struct {
	ui lorca.UI
}

func (w *lorcaWindow) Load(url string) error { return w.ui.Load(url) }
func (w *lorcaWindow) Bounds() (lorca.Bounds, error) { return w.ui.Bounds() }
func (w *lorcaWindow) SetBounds(b lorca.Bounds) error { return w.ui.SetBounds(b) }
func (w *lorcaWindow) Done() <-chan struct{} { return w.ui.Done() }
func (w *lorcaWindow) Close() error { return w.ui.Close() }

func (w *lorcaWindow) Eval(js string) (string, error) {
	v := w.ui.Eval(js)
	if err := v.Err(); err != nil {
		return "", err
	}

	return v.String(), nil
}

func launchLorca(url, dir string, width, height int, args ...string) (window, error) {
	ui, err := lorca.New(url, dir, width, height, args...)
	if err != nil {
		return nil, err
	}

	return &lorcaWindow{ui: ui}, nil
}

// MARK: - factory

type LorcaFactory struct {
	config Config
	launch windowLauncher
	log    *zap.Logger
}

var _ Factory = (*LorcaFactory)(nil)

// NewLorcaFactory returns a factory that opens surfaces as chrome app
// windows. It fails with ErrNoBrowser if no chrome installation exists.
func NewLorcaFactory(config Config, log *zap.Logger) (*LorcaFactory, error) {
	if lorca.LocateChrome() == "" {
		lorca.PromptDownload()
		return nil, ErrNoBrowser
	}

	return newFactory(config, launchLorca, log), nil
}

func newFactory(config Config, launch windowLauncher, log *zap.Logger) *LorcaFactory {
	if config.PollInterval <= 0 {
		config.PollInterval = defaultPollInterval
	}

	return &LorcaFactory{
		config: config,
		launch: launch,
		log:    log.Named("surface"),
	}
}

func (f *LorcaFactory) Placeholder(ctx context.Context) (Surface, error) {
	w, h := size(f.config.Placeholder, 480, 320)

	win, err := f.launch(PlaceholderURL(), "", w, h, f.config.Placeholder.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to open placeholder window: %w", err)
	}

	return newWindowSurface(win, "placeholder", w, h, 0, f.log), nil
}

func (f *LorcaFactory) Main(ctx context.Context) (Surface, error) {
	w, h := size(f.config.Main, defaultWidth, defaultHeight)

	win, err := f.launch("", f.config.ProfileDir, w, h, f.config.Main.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to open main window: %w", err)
	}

	s := newWindowSurface(win, "main", w, h, f.config.PollInterval, f.log)

	if err := s.Hide(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to hide main window: %w", err)
	}

	return s, nil
}

func size(config WindowConfig, width, height int) (int, int) {
	if config.Width > 0 {
		width = config.Width
	}

	if config.Height > 0 {
		height = config.Height
	}

	return width, height
}

// MARK: - surface

type windowSurface struct {
	win    window
	width  int
	height int

	readyLock sync.Mutex
	readyFns  []func()

	closeOnce sync.Once
	closeErr  error

	log *zap.Logger
}

var _ Surface = (*windowSurface)(nil)

// newWindowSurface wraps win. If pollInterval is positive, the document
// state of the window is watched to drive OnDOMReady callbacks.
func newWindowSurface(
	win window,
	name string,
	width, height int,
	pollInterval time.Duration,
	log *zap.Logger,
) *windowSurface {
	s := &windowSurface{
		win:    win,
		width:  width,
		height: height,
		log:    log.Named(name),
	}

	if pollInterval > 0 {
		go s.watchDocument(pollInterval)
	}

	return s
}

func (s *windowSurface) Load(url string) error {
	s.log.Debug("loading", zap.String("url", url))
	return s.win.Load(url)
}

func (s *windowSurface) Show() error {
	b, err := s.win.Bounds()
	if err != nil {
		return err
	}

	if b.Width <= 0 || b.Height <= 0 {
		b.Width, b.Height = s.width, s.height
	}

	b.WindowState = lorca.WindowStateNormal

	return s.win.SetBounds(b)
}

func (s *windowSurface) Hide() error {
	return s.win.SetBounds(lorca.Bounds{WindowState: lorca.WindowStateMinimized})
}

func (s *windowSurface) Close() error {
	s.closeOnce.Do(func() {
		s.log.Debug("closing")
		s.closeErr = s.win.Close()
	})

	return s.closeErr
}

func (s *windowSurface) Done() <-chan struct{} {
	return s.win.Done()
}

func (s *windowSurface) OnDOMReady(fn func()) {
	s.readyLock.Lock()
	defer s.readyLock.Unlock()

	s.readyFns = append(s.readyFns, fn)
}

// watchDocument polls the document state of the window and notifies the
// ready callbacks each time a new backend document finished loading.
func (s *windowSurface) watchDocument(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last string

	for {
		select {
		case <-s.win.Done():
			return
		case <-ticker.C:
		}

		token, err := s.win.Eval(domStateScript)
		if err != nil || token == "" || token == last {
			continue
		}

		last = token

		s.readyLock.Lock()
		fns := append([]func(){}, s.readyFns...)
		s.readyLock.Unlock()

		for _, fn := range fns {
			fn()
		}
	}
}

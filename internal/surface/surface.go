package surface

import (
	"context"
	_ "embed"
	"encoding/base64"
	"errors"
	"time"
)

var (
	ErrNoBrowser = errors.New("no chrome or chromium installation found")
	ErrClosed    = errors.New("surface closed")
)

// Surface is a single application window.
type Surface interface {
	// Load navigates the surface to url.
	Load(url string) error

	// Show reveals the surface.
	Show() error

	// Hide conceals the surface without closing it.
	Hide() error

	// Close disposes the surface. Safe to call multiple times.
	Close() error

	// Done returns a channel that is closed once the surface is gone,
	// either through Close or because the user closed the window.
	Done() <-chan struct{}

	// OnDOMReady registers fn to be called whenever the surface finished
	// loading a document from the backend.
	OnDOMReady(fn func())
}

// Factory creates the two surfaces of the application.
type Factory interface {
	// Placeholder creates the surface shown while the backend boots.
	Placeholder(ctx context.Context) (Surface, error)

	// Main creates the hidden surface that will show the application.
	Main(ctx context.Context) (Surface, error)
}

type WindowConfig struct {
	// Width is the initial width of the window
	Width int `conf:"width"`

	// Height is the initial height of the window
	Height int `conf:"height"`

	// Args are additional command line arguments for the browser
	Args []string `conf:"args"`
}

type Config struct {
	// Main is the configuration of the application window
	Main WindowConfig `conf:"main"`

	// Placeholder is the configuration of the loading window
	Placeholder WindowConfig `conf:"placeholder"`

	// ProfileDir is the browser profile directory of the application
	// window. A temporary directory is used if empty.
	ProfileDir string `conf:"profile_dir"`

	// PollInterval is the interval at which the document state of
	// the application window is inspected
	PollInterval time.Duration `conf:"poll_interval"`

	// DialogTimeout bounds how long an error dialog stays open
	DialogTimeout time.Duration `conf:"dialog_timeout"`
}

const (
	defaultPollInterval  = 250 * time.Millisecond
	defaultDialogTimeout = 5 * time.Minute
	defaultWidth         = 800
	defaultHeight        = 600
)

//go:embed assets/loading.html
var loadingPage []byte

// PlaceholderURL returns the self-contained loading page as a data url.
func PlaceholderURL() string {
	return dataURL(loadingPage)
}

func dataURL(page []byte) string {
	return "data:text/html;charset=utf-8;base64," + base64.StdEncoding.EncodeToString(page)
}

package platform

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
)

var ErrUnsupportedPlatform = errors.New("unsupported platform")

type Config struct {
	// AppDir is the directory holding the application files. Defaults
	// to the directory of the running executable.
	AppDir string `conf:"app_dir"`

	// Entry is the application entry file, relative to AppDir
	Entry string `conf:"entry"`

	// Interpreter overrides the resolved interpreter executable
	Interpreter string `conf:"interpreter"`

	// Platforms lists the operating systems the application supports
	Platforms []string `conf:"platforms"`
}

// Paths are the absolute locations needed to launch the backend.
type Paths struct {
	Interpreter string
	EntryFile   string
	AppDir      string
}

type Resolver struct {
	config     Config
	goos       string
	lookPath   func(string) (string, error)
	executable func() (string, error)
}

func NewResolver(config Config) *Resolver {
	return &Resolver{
		config:     config,
		goos:       runtime.GOOS,
		lookPath:   exec.LookPath,
		executable: os.Executable,
	}
}

// Resolve returns the interpreter and entry file for the host platform,
// or ErrUnsupportedPlatform if the host is not in the supported list.
func (r *Resolver) Resolve() (Paths, error) {
	if !r.Supported() {
		return Paths{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, r.goos)
	}

	appDir, err := r.appDir()
	if err != nil {
		return Paths{}, fmt.Errorf("failed to resolve app dir: %w", err)
	}

	entry := r.config.Entry
	if entry == "" {
		entry = defaultEntry
	}

	entryFile := entry
	if !filepath.IsAbs(entryFile) {
		entryFile = filepath.Join(appDir, entry)
	}

	return Paths{
		Interpreter: r.interpreter(appDir),
		EntryFile:   entryFile,
		AppDir:      appDir,
	}, nil
}

// Supported reports whether the host platform is supported.
func (r *Resolver) Supported() bool {
	if len(r.config.Platforms) == 0 {
		return true
	}

	return slices.Contains(r.config.Platforms, r.goos)
}

func (r *Resolver) appDir() (string, error) {
	if r.config.AppDir != "" {
		return filepath.Abs(r.config.AppDir)
	}

	exe, err := r.executable()
	if err != nil {
		return "", err
	}

	return filepath.Dir(exe), nil
}

func (r *Resolver) interpreter(appDir string) string {
	if r.config.Interpreter != "" {
		return r.config.Interpreter
	}

	if r.goos == "windows" {
		// windows builds ship a portable interpreter next to the app
		return filepath.Join(appDir, "r_portable_win", "bin", "Rscript.exe")
	}

	if path, err := r.lookPath(interpreterName); err == nil {
		return path
	}

	// leave it to the spawn to report the missing executable
	return interpreterName
}

const (
	defaultEntry    = "app.R"
	interpreterName = "Rscript"
)

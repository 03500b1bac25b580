package readiness

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Target is the surface a gate observes.
type Target interface {
	// OnDOMReady registers fn to be called whenever the surface finished
	// loading a document. fn may be called more than once.
	OnDOMReady(fn func())

	// Reload asks for the backend document to be loaded again. It must
	// not block, the owner of the surface performs the navigation.
	Reload()
}

type Gate interface {
	// Arm starts observing target and returns the signal that fires once
	// it is presentable. Cancelling ctx abandons the observation.
	Arm(ctx context.Context, target Target) *Signal
}

type Params struct {
	// Config is the gate configuration
	Config Config

	// URL is the address of the backend
	URL string

	// Client is the http client used to poll the backend
	Client *http.Client

	// Log is the logger to use for the gate
	Log *zap.Logger
}

func New(params Params) (Gate, error) {
	log := params.Log
	if log == nil {
		log = zap.NewNop()
	}

	log = log.Named("readiness")

	switch params.Config.Strategy {
	case DOMStrategy:
		return &domGate{
			timeout:        params.Config.Timeout,
			reloadInterval: params.Config.ReloadInterval,
			settleDelay:    params.Config.SettleDelay,
			log:            log,
		}, nil
	case PollStrategy, "":
		client := params.Client
		if client == nil {
			client = &http.Client{Timeout: defaultRequestTimeout}
		}

		interval := params.Config.Interval
		if interval <= 0 {
			interval = defaultInterval
		}

		return &pollGate{
			url:         params.URL,
			interval:    interval,
			timeout:     params.Config.Timeout,
			settleDelay: params.Config.SettleDelay,
			client:      client,
			log:         log,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStrategy, params.Config.Strategy)
	}
}

// MARK: - dom

type domGate struct {
	timeout        time.Duration
	reloadInterval time.Duration
	settleDelay    time.Duration
	log            *zap.Logger
}

var _ Gate = (*domGate)(nil)

func (g *domGate) Arm(ctx context.Context, target Target) *Signal {
	signal := newSignal()
	ready := make(chan struct{})

	var observed sync.Once

	target.OnDOMReady(func() {
		observed.Do(func() { close(ready) })
	})

	go g.wait(ctx, target, ready, signal)

	return signal
}

// wait reloads target every reload interval until it reported a loaded
// document, and gives up with ErrNotReadyTimeout once the timeout elapsed.
// A document that failed to load never reports ready, so without reloads
// a backend that came up late would go unnoticed.
func (g *domGate) wait(ctx context.Context, target Target, ready <-chan struct{}, signal *Signal) {
	var deadline <-chan time.Time
	if g.timeout > 0 {
		timer := time.NewTimer(g.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	var reload <-chan time.Time
	if g.reloadInterval > 0 {
		ticker := time.NewTicker(g.reloadInterval)
		defer ticker.Stop()
		reload = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ready:
			g.log.Debug("dom ready")
			settle(ctx, g.settleDelay, signal)
			return
		case <-deadline:
			g.log.Error("document not ready", zap.Duration("timeout", g.timeout))
			signal.fire(ErrNotReadyTimeout)
			return
		case <-reload:
			g.log.Debug("reloading target")
			target.Reload()
		}
	}
}

// MARK: - poll

type pollGate struct {
	url         string
	interval    time.Duration
	timeout     time.Duration
	settleDelay time.Duration
	client      *http.Client
	log         *zap.Logger
}

var _ Gate = (*pollGate)(nil)

func (g *pollGate) Arm(ctx context.Context, target Target) *Signal {
	signal := newSignal()

	go func() {
		if err := waitReachable(ctx, g.client, g.url, g.interval, g.timeout); err != nil {
			if ctx.Err() != nil {
				// the gate was abandoned, nobody is waiting for the signal
				return
			}

			g.log.Error("backend not ready", zap.String("url", g.url), zap.Error(err))
			signal.fire(err)
			return
		}

		g.log.Debug("backend reachable", zap.String("url", g.url))

		// whatever the target loaded before is an error page
		if target != nil {
			target.Reload()
		}

		settle(ctx, g.settleDelay, signal)
	}()

	return signal
}

// Probe polls url until it answers, ctx is done or timeout elapsed.
func Probe(ctx context.Context, url string, config Config) error {
	interval := config.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	client := &http.Client{Timeout: defaultRequestTimeout}

	return waitReachable(ctx, client, url, interval, config.Timeout)
}

// MARK: - helpers

func waitReachable(
	ctx context.Context,
	client *http.Client,
	url string,
	interval time.Duration,
	timeout time.Duration,
) error {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if reachable(ctx, client, url) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return ErrNotReadyTimeout
		case <-ticker.C:
		}
	}
}

// reachable reports whether url answered with any http response.
func reachable(ctx context.Context, client *http.Client, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	res, err := client.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64*1024))

	return true
}

func settle(ctx context.Context, delay time.Duration, signal *Signal) {
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	} else if ctx.Err() != nil {
		return
	}

	signal.fire(nil)
}

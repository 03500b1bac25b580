package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lambda-feedback/shinydesk/internal/backend"
	"github.com/lambda-feedback/shinydesk/internal/readiness"
	"github.com/lambda-feedback/shinydesk/internal/surface"
	"go.uber.org/zap"
)

// Backend is the handle of a running backend process.
type Backend interface {
	Kill()
	Done() <-chan struct{}
	Exit() backend.ExitEvent
}

// Launcher spawns the backend.
type Launcher interface {
	Start(ctx context.Context) (Backend, error)
}

type supervisorLauncher struct {
	supervisor *backend.Supervisor
}

// SupervisorLauncher adapts a backend supervisor to a Launcher.
func SupervisorLauncher(s *backend.Supervisor) Launcher {
	return &supervisorLauncher{supervisor: s}
}

func (l *supervisorLauncher) Start(ctx context.Context) (Backend, error) {
	process, err := l.supervisor.Start(ctx)
	if err != nil {
		return nil, err
	}

	return process, nil
}

type Params struct {
	// URL is the address the backend serves on
	URL string

	// Launcher spawns the backend
	Launcher Launcher

	// Surfaces creates the placeholder and main surfaces
	Surfaces surface.Factory

	// Gate detects when the main surface is presentable
	Gate readiness.Gate

	// Notifier reports fatal conditions to the user
	Notifier surface.Notifier

	// OnTransition is called on the controller loop after every
	// state change. Optional.
	OnTransition func(Transition)

	// Log is the logger to use for the controller
	Log *zap.Logger
}

// Controller drives the placeholder and main surfaces through their
// states and funnels every termination into a single cleanup.
//
// All state changes happen on the goroutine executing Run. Other
// goroutines only feed events through Post.
type Controller struct {
	url          string
	launcher     Launcher
	surfaces     surface.Factory
	gate         readiness.Gate
	notifier     surface.Notifier
	onTransition func(Transition)

	// owned by the loop
	state               State
	backend             Backend
	placeholder         surface.Surface
	main                surface.Surface
	placeholderDisposed bool
	cancelGate          context.CancelFunc

	events chan Event

	runOnce sync.Once
	done    chan struct{}
	err     error

	log *zap.Logger
}

func New(params Params) *Controller {
	log := params.Log
	if log == nil {
		log = zap.NewNop()
	}

	notifier := params.Notifier
	if notifier == nil {
		notifier = surface.NewLogNotifier(log)
	}

	return &Controller{
		url:          params.URL,
		launcher:     params.Launcher,
		surfaces:     params.Surfaces,
		gate:         params.Gate,
		notifier:     notifier,
		onTransition: params.OnTransition,
		state:        Idle,
		events:       make(chan Event, 16),
		done:         make(chan struct{}),
		log:          log.Named("lifecycle"),
	}
}

// Run spawns the backend and drives the surfaces until the controller
// reaches Closed. If the backend cannot be spawned, Run returns the
// spawn error before any surface is created. Run returns nil if the
// application was closed by the user, and the cause otherwise.
func (c *Controller) Run(ctx context.Context) error {
	err := ErrAlreadyRunning

	c.runOnce.Do(func() {
		defer close(c.done)
		err = c.run(ctx)
		c.err = err
	})

	return err
}

func (c *Controller) run(ctx context.Context) error {
	// the backend is only ever stopped through the cleanup path, or
	// when run returns
	processCtx, cancelProcess := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelProcess()

	process, err := c.launcher.Start(processCtx)
	if err != nil {
		err = fmt.Errorf("failed to start backend: %w", err)
		c.notifier.Notify(ctx, spawnNotice(err))
		return err
	}

	c.backend = process
	go c.forward(process.Done(), Event{Kind: EventBackendExited})

	result := c.dispatch(ctx, Event{Kind: EventActivate})

	for c.state != Closed {
		select {
		case ev := <-c.events:
			result = c.dispatch(ctx, ev)
		case <-ctx.Done():
			result = c.dispatch(ctx, Event{Kind: EventQuit})
		}
	}

	return result
}

// Post feeds ev to the controller. It never blocks once the
// controller finished.
func (c *Controller) Post(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// Quit asks the controller to close the application.
func (c *Controller) Quit() {
	c.Post(Event{Kind: EventQuit})
}

// Activate signals that the platform re-activated the application.
func (c *Controller) Activate() {
	c.Post(Event{Kind: EventActivate})
}

// Done returns a channel that is closed once Run returned.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Err returns the result of Run once Done is closed.
func (c *Controller) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// dispatch applies ev and any follow-up event produced by entry actions.
// It returns the terminal error once Closed is reached.
func (c *Controller) dispatch(ctx context.Context, ev Event) error {
	for {
		to, ok := next(c.state, ev.Kind)
		if !ok {
			c.log.Debug("ignoring event",
				zap.String("state", string(c.state)),
				zap.String("event", string(ev.Kind)),
			)
			return nil
		}

		from := c.state
		c.state = to

		c.log.Info("transition",
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.String("event", string(ev.Kind)),
		)

		if c.onTransition != nil {
			c.onTransition(Transition{From: from, To: to, Event: ev.Kind})
		}

		followUp, err := c.enter(ctx, to, ev)
		if to == Closed {
			return err
		}

		if followUp == nil {
			return nil
		}

		ev = *followUp
	}
}

// enter runs the entry action of s. It may return an event to be
// applied right away, before any queued event.
func (c *Controller) enter(ctx context.Context, s State, cause Event) (*Event, error) {
	switch s {
	case Placeholder:
		return c.enterPlaceholder(ctx), nil
	case MainHidden:
		// entered on creation and on every reload request
		if err := c.main.Load(c.url); err != nil {
			c.log.Warn("failed to load backend url", zap.Error(err))
		}
	case MainVisible:
		c.enterMainVisible()
	case Closed:
		return nil, c.enterClosed(ctx, cause)
	}

	return nil, nil
}

func (c *Controller) enterPlaceholder(ctx context.Context) *Event {
	placeholder, err := c.surfaces.Placeholder(ctx)
	if err != nil {
		return &Event{Kind: EventSurfaceFailed, Err: err}
	}

	c.placeholder = placeholder
	c.placeholderDisposed = false

	if err := placeholder.Show(); err != nil {
		c.log.Warn("failed to show placeholder", zap.Error(err))
	}

	go c.forward(placeholder.Done(), Event{Kind: EventPlaceholderClosed})

	main, err := c.surfaces.Main(ctx)
	if err != nil {
		return &Event{Kind: EventSurfaceFailed, Err: err}
	}

	c.main = main

	go c.forward(main.Done(), Event{Kind: EventMainClosed})

	gateCtx, cancelGate := context.WithCancel(ctx)
	c.cancelGate = cancelGate

	signal := c.gate.Arm(gateCtx, &gateTarget{surface: main, controller: c})

	go func() {
		select {
		case <-signal.Done():
			if err := signal.Err(); err != nil {
				c.Post(Event{Kind: EventNotReady, Err: err})
			} else {
				c.Post(Event{Kind: EventReady})
			}
		case <-gateCtx.Done():
		}
	}()

	return &Event{Kind: EventMainCreated}
}

func (c *Controller) enterMainVisible() {
	if err := c.main.Show(); err != nil {
		c.log.Warn("failed to show main surface", zap.Error(err))
	}

	c.disposePlaceholder()
}

func (c *Controller) disposePlaceholder() {
	if c.placeholder == nil || c.placeholderDisposed {
		return
	}

	c.placeholderDisposed = true

	if err := c.placeholder.Hide(); err != nil {
		c.log.Debug("failed to hide placeholder", zap.Error(err))
	}

	if err := c.placeholder.Close(); err != nil {
		c.log.Warn("failed to close placeholder", zap.Error(err))
	}
}

// enterClosed is the single cleanup path of the application.
func (c *Controller) enterClosed(ctx context.Context, cause Event) error {
	if c.cancelGate != nil {
		c.cancelGate()
	}

	if c.backend != nil {
		c.backend.Kill()
	}

	if c.main != nil {
		if err := c.main.Close(); err != nil {
			c.log.Debug("failed to close main surface", zap.Error(err))
		}
	}

	c.disposePlaceholder()

	err := c.closeReason(cause)
	if err != nil {
		c.notifier.Notify(ctx, closeNotice(err, c.backend))
	}

	return err
}

func (c *Controller) closeReason(cause Event) error {
	switch cause.Kind {
	case EventBackendExited:
		exit := c.backend.Exit()
		return fmt.Errorf("%w: %s", ErrBackendExited, exit)
	case EventNotReady, EventSurfaceFailed:
		return cause.Err
	default:
		return nil
	}
}

// gateTarget exposes the main surface to the readiness gate. Reload
// requests are routed through the controller loop, so the gate never
// navigates the surface itself.
type gateTarget struct {
	surface    surface.Surface
	controller *Controller
}

func (t *gateTarget) OnDOMReady(fn func()) {
	t.surface.OnDOMReady(fn)
}

func (t *gateTarget) Reload() {
	t.controller.Post(Event{Kind: EventReload})
}

// forward posts ev once ch is closed.
func (c *Controller) forward(ch <-chan struct{}, ev Event) {
	select {
	case <-ch:
		c.Post(ev)
	case <-c.done:
	}
}

// MARK: - notices

func spawnNotice(err error) surface.Notice {
	return surface.Notice{
		Title:   "The application could not be started",
		Message: "The application server could not be launched. Please check that the application is installed correctly.",
		Detail:  err.Error(),
		Err:     err,
	}
}

func closeNotice(err error, b Backend) surface.Notice {
	switch {
	case errors.Is(err, readiness.ErrNotReadyTimeout):
		return surface.Notice{
			Title:   "The application did not respond",
			Message: "The application server was started but did not respond in time.",
			Detail:  err.Error(),
			Err:     err,
		}
	case errors.Is(err, ErrBackendExited):
		return surface.Notice{
			Title:   "The application stopped unexpectedly",
			Message: "The application server exited. The application will now close.",
			Detail:  b.Exit().Stderr,
			Err:     err,
		}
	default:
		return surface.Notice{
			Title:   "The application window could not be opened",
			Message: "An error occurred while opening the application window.",
			Detail:  err.Error(),
			Err:     err,
		}
	}
}

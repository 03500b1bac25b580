package lifecycle

// State is the combined state of the placeholder and main surfaces.
type State string

const (
	// Idle means no surface exists yet
	Idle State = "idle"

	// Placeholder means the loading surface is shown
	Placeholder State = "placeholder"

	// MainHidden means the main surface exists but is not revealed yet
	MainHidden State = "main_hidden"

	// MainVisible means the main surface is shown and the placeholder disposed
	MainVisible State = "main_visible"

	// Closed is terminal: the backend is killed and the app terminates
	Closed State = "closed"
)

type EventKind string

const (
	// EventActivate is fed on launch and when the platform re-activates
	// the application with no window open
	EventActivate EventKind = "activate"

	// EventMainCreated follows the creation of both surfaces
	EventMainCreated EventKind = "main_created"

	// EventReady is fed when the readiness signal fires
	EventReady EventKind = "ready"

	// EventNotReady is fed when the readiness gate gave up
	EventNotReady EventKind = "not_ready"

	// EventMainClosed is fed when the main surface went away
	EventMainClosed EventKind = "main_closed"

	// EventPlaceholderClosed is fed when the user closed the placeholder
	EventPlaceholderClosed EventKind = "placeholder_closed"

	// EventQuit is fed when the application is asked to terminate
	EventQuit EventKind = "quit"

	// EventBackendExited is fed when the backend process exited
	EventBackendExited EventKind = "backend_exited"

	// EventSurfaceFailed is fed when a surface could not be created
	EventSurfaceFailed EventKind = "surface_failed"

	// EventReload is fed when the readiness gate asks for the backend
	// document to be loaded again
	EventReload EventKind = "reload"
)

type Event struct {
	Kind EventKind

	// Err carries the cause of failure events
	Err error
}

// Transition describes a single state change of the controller.
type Transition struct {
	From  State
	To    State
	Event EventKind
}

// terminations lists the events that end the application from any
// windowed state.
var terminations = map[EventKind]State{
	EventMainClosed:    Closed,
	EventQuit:          Closed,
	EventBackendExited: Closed,
	EventSurfaceFailed: Closed,
}

var transitions = map[State]map[EventKind]State{
	Idle: {
		EventActivate:      Placeholder,
		EventQuit:          Closed,
		EventBackendExited: Closed,
	},
	Placeholder: with(terminations, map[EventKind]State{
		EventMainCreated:       MainHidden,
		EventPlaceholderClosed: Closed,
		EventNotReady:          Closed,
	}),
	MainHidden: with(terminations, map[EventKind]State{
		EventReady:             MainVisible,
		EventReload:            MainHidden,
		EventPlaceholderClosed: Closed,
		EventNotReady:          Closed,
	}),
	MainVisible: with(terminations, nil),
	Closed:      {},
}

func with(base, extra map[EventKind]State) map[EventKind]State {
	m := make(map[EventKind]State, len(base)+len(extra))
	for k, v := range base {
		m[k] = v
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

// next returns the state reached from s on kind, and false if
// the event is not valid in s.
func next(s State, kind EventKind) (State, bool) {
	to, ok := transitions[s][kind]
	return to, ok
}

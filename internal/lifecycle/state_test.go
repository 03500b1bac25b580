package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allStates = []State{Idle, Placeholder, MainHidden, MainVisible, Closed}

func TestTransitions_MainVisibleOnlyFromMainHidden(t *testing.T) {
	for _, from := range allStates {
		for kind, to := range transitions[from] {
			if to == MainVisible {
				assert.Equal(t, MainHidden, from, "main_visible reached from %s on %s", from, kind)
			}
		}
	}
}

func TestTransitions_EveryStateCanQuit(t *testing.T) {
	for _, from := range allStates {
		if from == Closed {
			continue
		}

		to, ok := next(from, EventQuit)
		assert.True(t, ok, from)
		assert.Equal(t, Closed, to, from)
	}
}

func TestTransitions_ClosedIsTerminal(t *testing.T) {
	for _, kind := range []EventKind{
		EventActivate,
		EventMainCreated,
		EventReady,
		EventNotReady,
		EventMainClosed,
		EventPlaceholderClosed,
		EventQuit,
		EventBackendExited,
		EventSurfaceFailed,
		EventReload,
	} {
		_, ok := next(Closed, kind)
		assert.False(t, ok, kind)
	}
}

func TestTransitions_ActivateOnlyWithoutWindows(t *testing.T) {
	for _, from := range allStates {
		_, ok := next(from, EventActivate)
		assert.Equal(t, from == Idle, ok, from)
	}
}

func TestTransitions_PlaceholderCloseIgnoredOnceVisible(t *testing.T) {
	_, ok := next(MainVisible, EventPlaceholderClosed)
	assert.False(t, ok)

	to, ok := next(MainHidden, EventPlaceholderClosed)
	assert.True(t, ok)
	assert.Equal(t, Closed, to)
}

func TestTransitions_ReloadOnlyWhileMainHidden(t *testing.T) {
	for _, from := range allStates {
		to, ok := next(from, EventReload)
		assert.Equal(t, from == MainHidden, ok, from)
		if ok {
			assert.Equal(t, MainHidden, to)
		}
	}
}

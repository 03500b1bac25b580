package readiness

import "time"

type Strategy string

const (
	// PollStrategy polls the backend over http until it responds
	PollStrategy Strategy = "poll"

	// DOMStrategy waits for the target surface to report a loaded document
	DOMStrategy Strategy = "dom"
)

type Config struct {
	// Strategy selects how readiness is detected. Default is "poll".
	Strategy Strategy `conf:"strategy"`

	// Interval is the delay between two polls of the backend
	Interval time.Duration `conf:"interval"`

	// Timeout bounds the time spent waiting for the backend, for
	// both strategies. A value <= 0 waits until the gate is abandoned.
	Timeout time.Duration `conf:"timeout"`

	// ReloadInterval is the delay between two reloads of the target
	// while the dom strategy waits for a document. A value <= 0
	// disables reloads.
	ReloadInterval time.Duration `conf:"reload_interval"`

	// SettleDelay is applied after the backend was found ready and
	// before the signal fires, to mask residual paint latency
	SettleDelay time.Duration `conf:"settle_delay"`
}

const (
	defaultInterval       = 250 * time.Millisecond
	defaultRequestTimeout = 2 * time.Second
)

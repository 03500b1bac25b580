package backend

import (
	"bytes"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Stream identifies the pipe a line of backend output was read from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// maxLineLength bounds the partial line buffer. Longer lines
// are forwarded in chunks.
const maxLineLength = 64 * 1024

type Line struct {
	Stream Stream
	Text   string
}

// LogSink receives the output of the backend process, one line at a time.
type LogSink interface {
	Line(Line)
}

type zapSink struct {
	log *zap.Logger
}

// NewZapSink returns a sink that writes every line to the given logger,
// tagged with the stream it originated from.
func NewZapSink(log *zap.Logger) LogSink {
	return &zapSink{log: log}
}

func (s *zapSink) Line(l Line) {
	s.log.Info(l.Text, zap.String("stream", string(l.Stream)))
}

// MARK: - relay

// relay decouples the pipe readers from the sink. Lines are queued in a
// bounded channel and dropped while the channel is full, so a slow sink
// never stalls the child process or the supervisor.
type relay struct {
	lines   chan Line
	sink    LogSink
	dropped atomic.Int64

	mu     sync.Mutex
	closed bool

	done chan struct{}
}

func newRelay(sink LogSink, size int) *relay {
	if size <= 0 {
		size = defaultBufferSize
	}

	r := &relay{
		lines: make(chan Line, size),
		sink:  sink,
		done:  make(chan struct{}),
	}

	go r.run()

	return r
}

func (r *relay) run() {
	defer close(r.done)

	for l := range r.lines {
		if r.sink != nil {
			r.sink.Line(l)
		}
	}
}

func (r *relay) offer(l Line) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.dropped.Add(1)
		return
	}

	select {
	case r.lines <- l:
	default:
		r.dropped.Add(1)
	}
}

func (r *relay) close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.closed = true
	close(r.lines)
}

func (r *relay) Dropped() int64 {
	return r.dropped.Load()
}

// MARK: - line writer

// lineWriter splits the raw pipe output into lines. It is used as the
// Stdout/Stderr writer of the exec.Cmd and never blocks on the sink.
type lineWriter struct {
	stream Stream
	emit   func(Line)

	mu  sync.Mutex
	buf []byte
}

func newLineWriter(stream Stream, emit func(Line)) *lineWriter {
	return &lineWriter{stream: stream, emit: emit}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)

	start := 0
	for {
		i := bytes.IndexByte(w.buf[start:], '\n')
		if i < 0 {
			break
		}

		w.emitLine(w.buf[start : start+i])
		start += i + 1
	}

	n := copy(w.buf, w.buf[start:])
	w.buf = w.buf[:n]

	if len(w.buf) >= maxLineLength {
		w.emitLine(w.buf)
		w.buf = w.buf[:0]
	}

	return len(p), nil
}

// Flush emits a trailing line that was not terminated by a newline.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) > 0 {
		w.emitLine(w.buf)
		w.buf = w.buf[:0]
	}
}

func (w *lineWriter) emitLine(b []byte) {
	w.emit(Line{
		Stream: w.stream,
		Text:   strings.TrimRight(string(b), "\r"),
	})
}

// MARK: - tail

// tail keeps the last n lines written to it.
type tail struct {
	mu    sync.Mutex
	size  int
	lines []string
}

func newTail(size int) *tail {
	if size <= 0 {
		size = defaultTailSize
	}

	return &tail{size: size}
}

func (t *tail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lines = append(t.lines, line)
	if over := len(t.lines) - t.size; over > 0 {
		t.lines = t.lines[over:]
	}
}

func (t *tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return strings.Join(t.lines, "\n")
}

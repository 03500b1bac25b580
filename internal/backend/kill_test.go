package backend

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startCountingProcess(t *testing.T, cmd string, args ...string) (*Process, *atomic.Int32) {
	t.Helper()

	p, err := startProcess(context.Background(), Config{
		Start: StartConfig{Cmd: cmd, Args: args},
	}, nil, zap.NewNop())
	require.NoError(t, err)

	var calls atomic.Int32
	signal := p.signal
	p.signal = func(pid int, force bool) error {
		if force {
			calls.Add(1)
		}
		return signal(pid, force)
	}

	t.Cleanup(func() {
		_ = signal(p.pid, true)
	})

	return p, &calls
}

func TestProcess_Kill_NeverCalled(t *testing.T) {
	p, calls := startCountingProcess(t, "sleep", "10")

	assert.True(t, p.Running())
	assert.Equal(t, int32(0), calls.Load())
}

func TestProcess_Kill_SendsSingleSignal(t *testing.T) {
	for _, n := range []int{1, 2, 10} {
		p, calls := startCountingProcess(t, "sleep", "10")

		for i := 0; i < n; i++ {
			p.Kill()
		}

		require.Eventually(t, func() bool {
			return !p.Running()
		}, 2*time.Second, 10*time.Millisecond)

		// calling kill on a dead process is a no-op
		p.Kill()

		assert.Equal(t, int32(1), calls.Load(), "kill called %d times", n)
	}
}

func TestProcess_Kill_Concurrent(t *testing.T) {
	p, calls := startCountingProcess(t, "sleep", "10")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Kill()
		}()
	}
	wg.Wait()

	<-p.Done()

	assert.Equal(t, int32(1), calls.Load())
}

func TestProcess_Kill_AfterExit_DoesNotSignal(t *testing.T) {
	p, calls := startCountingProcess(t, "true")

	<-p.Done()

	p.Kill()
	p.Kill()

	assert.Equal(t, int32(0), calls.Load())
}

func TestProcess_Kill_OnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p, err := startProcess(ctx, Config{
		Start: StartConfig{Cmd: "sleep", Args: []string{"10"}},
	}, nil, zap.NewNop())
	require.NoError(t, err)

	cancel()

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("process was not killed")
	}

	require.NotNil(t, p.Exit().Signal)
}

func TestLineWriter_SplitsLines(t *testing.T) {
	var lines []Line
	w := newLineWriter(Stdout, func(l Line) { lines = append(lines, l) })

	_, _ = w.Write([]byte("foo\nba"))
	_, _ = w.Write([]byte("r\r\nbaz"))

	assert.Equal(t, []Line{
		{Stream: Stdout, Text: "foo"},
		{Stream: Stdout, Text: "bar"},
	}, lines)

	w.Flush()

	assert.Equal(t, Line{Stream: Stdout, Text: "baz"}, lines[2])
}

type blockingSink struct {
	release chan struct{}
	count   atomic.Int32
}

func (s *blockingSink) Line(Line) {
	<-s.release
	s.count.Add(1)
}

func TestRelay_DropsWhenSinkIsSlow(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	r := newRelay(sink, 2)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			r.offer(Line{Stream: Stdout, Text: "line"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("offer blocked on a slow sink")
	}

	close(sink.release)
	r.close()
	<-r.done

	assert.Greater(t, r.Dropped(), int64(0))
	assert.Equal(t, int64(100), r.Dropped()+int64(sink.count.Load()))
}

func TestTail_KeepsLastLines(t *testing.T) {
	tl := newTail(2)
	tl.add("a")
	tl.add("b")
	tl.add("c")

	assert.Equal(t, "b\nc", tl.String())
}

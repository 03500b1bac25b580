package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

func TestProcessTree_AssignsBackendToJob(t *testing.T) {
	p, err := startProcess(context.Background(), Config{
		Start: StartConfig{Cmd: "cmd", Args: []string{"/c", "ping", "-n", "30", "127.0.0.1"}},
	}, nil, zap.NewNop())
	require.NoError(t, err)
	defer p.Kill()

	tree := p.tree
	require.NotNil(t, tree)

	tree.mu.Lock()
	job := tree.job
	tree.mu.Unlock()
	require.NotZero(t, job)

	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(p.Pid()))
	require.NoError(t, err)
	defer windows.CloseHandle(handle)

	var inJob bool
	require.NoError(t, windows.IsProcessInJob(handle, job, &inJob))
	assert.True(t, inJob)
}

func TestProcessTree_KillTerminatesChildren(t *testing.T) {
	p, err := startProcess(context.Background(), Config{
		Start: StartConfig{Cmd: "cmd", Args: []string{"/c", "ping", "-n", "30", "127.0.0.1"}},
	}, nil, zap.NewNop())
	require.NoError(t, err)

	p.Kill()

	// ping keeps the inherited pipes open, Wait only returns before
	// WaitDelay if it died together with cmd
	select {
	case <-p.Done():
	case <-time.After(defaultWaitDelay / 2):
		t.Fatal("process tree did not exit")
	}
}

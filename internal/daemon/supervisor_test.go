package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupervisor_IsRunning_NoPidFile_ReturnsFalse(t *testing.T) {
	s := NewSupervisor(filepath.Join(t.TempDir(), "watch.pid"))
	assert.False(t, s.IsRunning())
	assert.Equal(t, 0, s.Pid())
}

func TestSupervisor_RecordSelfAndReleaseSelf(t *testing.T) {
	s := NewSupervisor(filepath.Join(t.TempDir(), "watch.pid"))

	require.NoError(t, s.RecordSelf())
	assert.True(t, s.IsRunning())
	assert.Equal(t, os.Getpid(), s.Pid())

	require.NoError(t, s.ReleaseSelf())
	assert.False(t, s.IsRunning())
}

func TestSupervisor_Stop_NotRunning_IsNoOp(t *testing.T) {
	s := NewSupervisor(filepath.Join(t.TempDir(), "watch.pid"))
	assert.NoError(t, s.Stop(100*time.Millisecond))
}

func TestSupervisor_Start_AlreadyRunning_ReturnsExistingPidWithoutSpawning(t *testing.T) {
	s := NewSupervisor(filepath.Join(t.TempDir(), "watch.pid"))
	require.NoError(t, s.RecordSelf())

	pid, err := s.Start("/bin/does-not-matter", nil)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestWaitUntilHealthy_SucceedsOnEventualTrue(t *testing.T) {
	calls := 0
	ok := WaitUntilHealthy(5, time.Millisecond, func() bool {
		calls++
		return calls >= 3
	})
	assert.True(t, ok)
	assert.Equal(t, 3, calls)
}

func TestWaitUntilHealthy_FailsAfterExhaustingAttempts(t *testing.T) {
	ok := WaitUntilHealthy(3, time.Millisecond, func() bool { return false })
	assert.False(t, ok)
}

func TestCurrentExecutable_ResolvesRunningBinary(t *testing.T) {
	path, err := CurrentExecutable()
	require.NoError(t, err)
	assert.NotEmpty(t, path)
}

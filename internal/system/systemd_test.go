package system

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemdServiceManagerRestart(t *testing.T) {
	runner := NewRecordingRunner()
	m := NewSystemdServiceManager("nginx", runner)

	require.NoError(t, m.Restart(context.Background()))
	assert.Equal(t, []string{"systemctl restart nginx.service"}, runner.Calls)
	assert.Equal(t, "systemd unit nginx.service", m.String())
}

func TestSystemdServiceManagerUnitNotFound(t *testing.T) {
	runner := NewRecordingRunner()
	runner.On("systemctl restart", nil, &CommandError{Command: "systemctl restart", ExitCode: 5})
	m := NewSystemdServiceManager("nginx.service", runner)

	err := m.Restart(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unit not found")
}

func TestSystemdServiceManagerIsRunning(t *testing.T) {
	runner := NewRecordingRunner()
	m := NewSystemdServiceManager("", runner)

	running, err := m.IsRunning(context.Background())
	require.NoError(t, err)
	assert.True(t, running)

	runner.On("systemctl is-active", nil, &CommandError{ExitCode: 3})
	running, err = m.IsRunning(context.Background())
	require.NoError(t, err)
	assert.False(t, running)
}

func TestExecRunnerReportsExitCode(t *testing.T) {
	r := NewExecRunner(false)
	out, err := r.Run(context.Background(), "sh", "-c", "echo hi; echo oops >&2; exit 3")
	require.Error(t, err)
	assert.Equal(t, "hi\n", string(out))
	assert.Equal(t, 3, ExitCode(err))

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "oops", cmdErr.Stderr)
}

package workerexec

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulator_PollBeforeDelayReportsRunning(t *testing.T) {
	sim := NewSimulator()
	sim.Schedule("job-1", time.Hour, Outcome{ExitCode: 0})

	out, err := sim.Poll(context.Background(), "job-1", "worker-1")
	require.NoError(t, err)
	assert.False(t, out.Done)
}

func TestSimulator_PollAfterDelayResolves(t *testing.T) {
	sim := NewSimulator()
	fakeNow := time.Now()
	sim.clock = func() time.Time { return fakeNow }
	sim.Schedule("job-1", time.Minute, Outcome{ExitCode: 7, Stdout: "done"})

	fakeNow = fakeNow.Add(2 * time.Minute)
	out, err := sim.Poll(context.Background(), "job-1", "worker-1")
	require.NoError(t, err)
	assert.True(t, out.Done)
	assert.Equal(t, 7, out.ExitCode)
	assert.Equal(t, "done", out.Stdout)

	out, err = sim.Poll(context.Background(), "job-1", "worker-1")
	require.NoError(t, err)
	assert.False(t, out.Done, "job should be cleared after first resolved poll")
}

func TestSimulator_PollUnscheduledJobReportsRunning(t *testing.T) {
	sim := NewSimulator()
	out, err := sim.Poll(context.Background(), "unknown", "worker-1")
	require.NoError(t, err)
	assert.False(t, out.Done)
}

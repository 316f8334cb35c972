package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hygiapro/bookings/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeCounter struct {
	n     int
	err   error
	calls atomic.Int32
	seen  time.Duration
}

func (f *fakeCounter) CountStalePending(_ context.Context, olderThan time.Duration) (int, error) {
	f.calls.Add(1)
	f.seen = olderThan
	return f.n, f.err
}

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger.SetDefault(zap.New(core))
	t.Cleanup(func() { logger.SetDefault(zap.NewNop()) })
	return logs
}

func TestRunWarnsOnStaleBookings(t *testing.T) {
	logs := observe(t)
	c := &fakeCounter{n: 3}

	n, err := NewStaleReport(c, 2*time.Hour).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2*time.Hour, c.seen)

	warns := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warns, 1)
	assert.Equal(t, int64(3), warns[0].ContextMap()["count"])
}

func TestRunQuietWhenNothingStale(t *testing.T) {
	logs := observe(t)

	n, err := NewStaleReport(&fakeCounter{}, time.Hour).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestRunReportsError(t *testing.T) {
	logs := observe(t)

	_, err := NewStaleReport(&fakeCounter{err: errors.New("db down")}, time.Hour).Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestStartRunsOnInterval(t *testing.T) {
	observe(t)
	c := &fakeCounter{}

	s, err := NewStaleReport(c, time.Hour).Start(20*time.Millisecond, nil)
	require.NoError(t, err)
	defer func() { _ = s.Shutdown() }()

	assert.Eventually(t, func() bool { return c.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

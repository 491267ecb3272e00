package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openadr-ven/client/ven"
)

func TestAddInterval_FiresRepeatedly(t *testing.T) {
	s := New(context.Background())
	defer s.Shutdown()

	var count int64
	s.AddInterval(5*time.Millisecond, func(ctx context.Context) {
		atomic.AddInt64(&count, 1)
	})

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&count) >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestAddInterval_CancelStopsFiring(t *testing.T) {
	s := New(context.Background())
	defer s.Shutdown()

	var count int64
	handle := s.AddInterval(5*time.Millisecond, func(ctx context.Context) {
		atomic.AddInt64(&count, 1)
	})

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&count) >= 1
	}, time.Second, 5*time.Millisecond)

	handle.Cancel()
	after := atomic.LoadInt64(&count)
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt64(&count), after+1)
}

func TestAddDate_FiresOnceAtGivenTime(t *testing.T) {
	s := New(context.Background())
	defer s.Shutdown()

	var count int64
	s.AddDate(time.Now().Add(10*time.Millisecond), func(ctx context.Context) {
		atomic.AddInt64(&count, 1)
	})

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&count) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(&count))
}

func TestAddDate_PastTimeFiresImmediately(t *testing.T) {
	s := New(context.Background())
	defer s.Shutdown()

	var count int64
	s.AddDate(time.Now().Add(-time.Hour), func(ctx context.Context) {
		atomic.AddInt64(&count, 1)
	})

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&count) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRemoveAll_StopsJobsButSchedulerUsable(t *testing.T) {
	s := New(context.Background())
	defer s.Shutdown()

	var count int64
	s.AddInterval(5*time.Millisecond, func(ctx context.Context) {
		atomic.AddInt64(&count, 1)
	})
	require.Eventually(t, func() bool { return atomic.LoadInt64(&count) >= 1 }, time.Second, 5*time.Millisecond)

	s.RemoveAll()

	var second int64
	s.AddInterval(5*time.Millisecond, func(ctx context.Context) {
		atomic.AddInt64(&second, 1)
	})
	require.Eventually(t, func() bool { return atomic.LoadInt64(&second) >= 1 }, time.Second, 5*time.Millisecond)
}

func TestShutdown_BlocksUntilJobsExit(t *testing.T) {
	s := New(context.Background())
	var running int64
	s.AddInterval(time.Millisecond, func(ctx context.Context) {
		atomic.AddInt64(&running, 1)
	})
	time.Sleep(10 * time.Millisecond)
	s.Shutdown()

	snapshot := atomic.LoadInt64(&running)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, snapshot, atomic.LoadInt64(&running))
}

func TestScheduler_ImplementsVenSchedulerInterface(t *testing.T) {
	var _ ven.Scheduler = New(context.Background())
}

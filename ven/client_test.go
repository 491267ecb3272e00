package ven

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestRun_FiresHooksInOrderAndSchedulesJobs(t *testing.T) {
	c, codec, _, sched := newTestClient()
	codec.setResponse(MsgQueryRegistration, codecResponse{msgType: MsgResponse})
	codec.setResponse(MsgCreatePartyRegistration, codecResponse{
		msgType: MsgCreatedPartyRegistration,
		payload: map[string]any{"registration_id": "reg-1"},
	})
	codec.setResponse(MsgPoll, codecResponse{msgType: MsgResponse})

	var order []string
	c.SetHooks(Hooks{
		BeforeRegister: []func(ctx context.Context){
			func(ctx context.Context) { order = append(order, "before_register") },
		},
		AfterRegister: []func(ctx context.Context, registrationID string){
			func(ctx context.Context, id string) { order = append(order, "after_register:"+id) },
		},
		BeforePoll: []func(ctx context.Context){
			func(ctx context.Context) { order = append(order, "before_poll") },
		},
		AfterPoll: []func(ctx context.Context, msgType string){
			func(ctx context.Context, mt string) { order = append(order, "after_poll") },
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// Allow Run to reach <-ctx.Done() before cancelling.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}

	require.Equal(t, []string{"before_register", "after_register:reg-1", "before_poll", "after_poll"}, order)

	c.mu.Lock()
	running := c.running
	c.mu.Unlock()
	assert.False(t, running)
	assert.True(t, len(sched.jobs) >= 3)
}

func TestRun_RejectsConcurrentCalls(t *testing.T) {
	c, codec, _, _ := newTestClient()
	codec.setResponse(MsgCreatePartyRegistration, codecResponse{
		msgType: MsgCreatedPartyRegistration,
		payload: map[string]any{"registration_id": "reg-1"},
	})
	codec.setResponse(MsgPoll, codecResponse{msgType: MsgResponse})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)
	time.Sleep(20 * time.Millisecond)

	err := c.Run(ctx)
	require.Error(t, err)
}

func TestRun_FailsWithoutRegistrationID(t *testing.T) {
	c, codec, _, _ := newTestClient()
	codec.setResponse(MsgCreatePartyRegistration, codecResponse{
		msgType: MsgCreatedPartyRegistration,
		payload: map[string]any{},
	})

	err := c.Run(context.Background())
	require.Error(t, err)
}

func TestJitterOffset_WithinOneSecondAndStableForSameVENID(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Second), 5)
	now := time.Now()

	d1 := jitterOffset(limiter, "ven-123", now)
	d2 := jitterOffset(limiter, "ven-123", now)
	assert.Equal(t, d1, d2, "same VEN ID and limiter state should yield the same offset")
	assert.True(t, d1 >= 0 && d1 < time.Second)
}

func TestJitterOffset_NilLimiterReturnsZero(t *testing.T) {
	assert.Equal(t, time.Duration(0), jitterOffset(nil, "ven-1", time.Now()))
}

func TestReconfigure_ReschedulesJobsAtNewIntervals(t *testing.T) {
	c, codec, _, sched := newTestClient()
	codec.setResponse(MsgCreatePartyRegistration, codecResponse{
		msgType: MsgCreatedPartyRegistration,
		payload: map[string]any{"registration_id": "reg-1"},
	})
	codec.setResponse(MsgPoll, codecResponse{msgType: MsgResponse})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)
	time.Sleep(20 * time.Millisecond)

	before := len(sched.jobs)
	require.True(t, before >= 3)

	c.Reconfigure(2*time.Second, 3*time.Second, 4*time.Second)

	c.mu.Lock()
	assert.Equal(t, 2*time.Second, c.cfg.PollFrequency)
	assert.Equal(t, 3*time.Second, c.cfg.EventStatusLogPeriod)
	assert.Equal(t, 4*time.Second, c.cfg.EventsCleanUpPeriod)
	c.mu.Unlock()

	assert.True(t, len(sched.jobs) >= before, "reconfigure should leave at least as many jobs scheduled")
}

func TestReconfigure_NotRunningOnlyUpdatesConfig(t *testing.T) {
	c, _, _, sched := newTestClient()

	c.Reconfigure(5*time.Second, 0, 0)

	c.mu.Lock()
	assert.Equal(t, 5*time.Second, c.cfg.PollFrequency)
	c.mu.Unlock()
	assert.Equal(t, 0, len(sched.jobs), "no jobs should be scheduled for a client that never ran")
}

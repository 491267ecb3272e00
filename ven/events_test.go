package ven

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventPayload(id string, modNum int) map[string]any {
	return map[string]any{
		"event_id":            id,
		"modification_number": modNum,
		"response_required":   string(ResponseRequiredAlways),
		"active_period": map[string]any{
			"dtstart":     time.Now().Add(-time.Minute),
			"duration_s":  3600,
		},
		"event_signals": []any{
			map[string]any{"signal_name": "simple", "signal_type": "level"},
		},
	}
}

func TestOnEvent_NewEventInvokesOnEventHandler(t *testing.T) {
	c, codec, _, _ := newTestClient()
	codec.setResponse(MsgCreatedEvent, codecResponse{msgType: MsgResponse})

	called := false
	c.SetEventHandlers(EventHandlers{
		OnEvent: func(ctx context.Context, ev *Event) (OptType, error) {
			called = true
			return OptIn, nil
		},
	})

	err := c.onEvent(context.Background(), map[string]any{
		"events": []any{eventPayload("evt-1", 0)},
	})
	require.NoError(t, err)
	assert.True(t, called)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, OptIn, c.respondedEvents["evt-1"])
}

func TestOnEvent_SameModificationNumberReusesStoredOpt(t *testing.T) {
	c, codec, _, _ := newTestClient()
	codec.setResponse(MsgCreatedEvent, codecResponse{msgType: MsgResponse})

	calls := 0
	c.SetEventHandlers(EventHandlers{
		OnEvent: func(ctx context.Context, ev *Event) (OptType, error) {
			calls++
			return OptIn, nil
		},
	})

	payload := eventPayload("evt-1", 3)
	require.NoError(t, c.onEvent(context.Background(), map[string]any{"events": []any{payload}}))
	require.NoError(t, c.onEvent(context.Background(), map[string]any{"events": []any{payload}}))

	assert.Equal(t, 1, calls)
}

func TestOnEvent_ModificationNumberChangeInvokesOnUpdateEvent(t *testing.T) {
	c, codec, _, _ := newTestClient()
	codec.setResponse(MsgCreatedEvent, codecResponse{msgType: MsgResponse})

	updateCalled := false
	c.SetEventHandlers(EventHandlers{
		OnEvent: func(ctx context.Context, ev *Event) (OptType, error) {
			return OptIn, nil
		},
		OnUpdateEvent: func(ctx context.Context, ev *Event) (OptType, error) {
			updateCalled = true
			return OptIn, nil
		},
	})

	require.NoError(t, c.onEvent(context.Background(), map[string]any{"events": []any{eventPayload("evt-1", 0)}}))
	require.NoError(t, c.onEvent(context.Background(), map[string]any{"events": []any{eventPayload("evt-1", 1)}}))

	assert.True(t, updateCalled)
}

func TestOnEvent_HandlerErrorCoercesEntireBatchToOptOut(t *testing.T) {
	c, codec, _, _ := newTestClient()
	codec.setResponse(MsgCreatedEvent, codecResponse{msgType: MsgResponse})

	c.SetEventHandlers(EventHandlers{
		OnEvent: func(ctx context.Context, ev *Event) (OptType, error) {
			if ev.EventID == "evt-bad" {
				return OptIn, assertErr()
			}
			return OptIn, nil
		},
	})

	err := c.onEvent(context.Background(), map[string]any{
		"events": []any{eventPayload("evt-good", 0), eventPayload("evt-bad", 0)},
	})
	require.NoError(t, err)

	require.Len(t, codec.created, 1)
	responses, ok := codec.created[0].fields["event_responses"].([]MessageFields)
	require.True(t, ok)
	require.Len(t, responses, 2)
	for _, r := range responses {
		assert.Equal(t, string(OptOut), r["opt_type"])
	}
}

func TestOnEvent_UnsupportedSignalNameSetsSignalNotSupportedCode(t *testing.T) {
	c, codec, _, _ := newTestClient()
	codec.setResponse(MsgCreatedEvent, codecResponse{msgType: MsgResponse})

	c.SetEventHandlers(EventHandlers{
		OnEvent: func(ctx context.Context, ev *Event) (OptType, error) {
			return OptIn, nil
		},
	})

	p := eventPayload("evt-1", 0)
	p["event_signals"] = []any{map[string]any{"signal_name": "totally_unknown", "signal_type": "level"}}

	require.NoError(t, c.onEvent(context.Background(), map[string]any{"events": []any{p}}))

	require.Len(t, codec.created, 1)
	responses, ok := codec.created[0].fields["event_responses"].([]MessageFields)
	require.True(t, ok)
	require.Len(t, responses, 1)
	assert.Equal(t, int(signalNotSupported), responses[0]["response_code"])
}

func TestEventCleanup_RemovesCompletedAndCancelledEvents(t *testing.T) {
	c, _, _, _ := newTestClient()
	c.mu.Lock()
	c.receivedEvents["completed-evt"] = &Event{
		EventID: "completed-evt",
		Status:  EventStatusNone,
		ActivePeriod: ActivePeriod{
			DTStart:  time.Now().Add(-time.Hour),
			Duration: time.Minute,
		},
	}
	c.receivedEvents["cancelled-evt"] = &Event{EventID: "cancelled-evt", Status: EventStatusCancelled}
	c.receivedEvents["active-evt"] = &Event{
		EventID: "active-evt",
		Status:  EventStatusNone,
		ActivePeriod: ActivePeriod{
			DTStart:  time.Now().Add(-time.Minute),
			Duration: time.Hour,
		},
	}
	c.mu.Unlock()

	c.eventCleanup(context.Background())

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.NotContains(t, c.receivedEvents, "completed-evt")
	assert.NotContains(t, c.receivedEvents, "cancelled-evt")
	assert.Contains(t, c.receivedEvents, "active-evt")
}

type testErr string

func (e testErr) Error() string { return string(e) }

func assertErr() error { return testErr("handler failed") }

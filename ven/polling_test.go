package ven

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoll_DispatchesDistributeEventWhenNonEmpty(t *testing.T) {
	c, codec, _, _ := newTestClient()
	codec.setResponse(MsgPoll, codecResponse{
		msgType: MsgDistributeEvent,
		payload: map[string]any{
			"events": []any{eventPayload("evt-1", 0)},
		},
	})
	codec.setResponse(MsgCreatedEvent, codecResponse{msgType: MsgResponse})

	called := false
	c.SetEventHandlers(EventHandlers{
		OnEvent: func(ctx context.Context, ev *Event) (OptType, error) {
			called = true
			return OptIn, nil
		},
	})

	require.NoError(t, c.poll(context.Background()))
	assert.True(t, called)
}

func TestPoll_EmptyDistributeEventIsNoop(t *testing.T) {
	c, codec, _, _ := newTestClient()
	codec.setResponse(MsgPoll, codecResponse{
		msgType: MsgDistributeEvent,
		payload: map[string]any{"events": []any{}},
	})

	require.NoError(t, c.poll(context.Background()))
}

func TestDispatch_RegisterReportRespondsWithEmptyList(t *testing.T) {
	c, codec, _, _ := newTestClient()
	codec.setResponse(MsgRegisteredReport, codecResponse{msgType: MsgResponse})

	err := c.dispatch(context.Background(), MsgRegisterReport, nil)
	require.NoError(t, err)

	require.Len(t, codec.created, 1)
	assert.Equal(t, MsgRegisteredReport, codec.created[0].msgType)
}

func TestDispatch_CancelPartyRegistrationInvokesHandler(t *testing.T) {
	c, codec, _, _ := newTestClient()
	c.mu.Lock()
	c.registrationID = "reg-1"
	c.mu.Unlock()
	codec.setResponse(MsgCanceledPartyRegistration, codecResponse{msgType: MsgResponse})

	err := c.dispatch(context.Background(), MsgCancelPartyRegistration, map[string]any{
		"registration_id": "reg-1",
	})
	require.NoError(t, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Empty(t, c.registrationID)
}

func TestDispatch_UnknownMessageTypeIgnored(t *testing.T) {
	c, _, _, _ := newTestClient()
	err := c.dispatch(context.Background(), "oadrSomeFutureMessage", nil)
	require.NoError(t, err)
}

func TestDispatch_UpdateReportWithCancelFlagTriggersCancel(t *testing.T) {
	c, codec, _, _ := newTestClient()
	job := &fakeJob{}
	c.mu.Lock()
	c.reportRequests = append(c.reportRequests, &ActiveReportRequest{ReportRequestID: "req-1", Job: job})
	c.mu.Unlock()
	codec.setResponse(MsgCanceledReport, codecResponse{msgType: MsgResponse})

	err := c.dispatch(context.Background(), MsgUpdateReport, map[string]any{
		"cancel_report":      true,
		"report_request_id": "req-1",
	})
	require.NoError(t, err)
	assert.True(t, job.cancelled)
}

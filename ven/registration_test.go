package ven

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() (*Client, *fakeCodec, *fakeTransport, *fakeScheduler) {
	codec := newFakeCodec()
	tp := &fakeTransport{}
	sched := &fakeScheduler{}
	c := New(Config{VTNURL: "https://vtn.example/OpenADR2/Simple/2.0b"}, codec, tp, sched, fakeCron{}, nil)
	return c, codec, tp, sched
}

func TestCreatePartyRegistration_SetsRegistrationID(t *testing.T) {
	c, codec, _, _ := newTestClient()
	codec.setResponse(MsgCreatePartyRegistration, codecResponse{
		msgType: MsgCreatedPartyRegistration,
		payload: map[string]any{
			"registration_id": "reg-123",
			"ven_id":           "ven-abc",
		},
	})

	err := c.createPartyRegistration(context.Background())
	require.NoError(t, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, "reg-123", c.registrationID)
	assert.Equal(t, "ven-abc", c.cfg.VENID)
}

func TestCreatePartyRegistration_PollFrequencyClampedTo24h(t *testing.T) {
	c, codec, _, _ := newTestClient()
	codec.setResponse(MsgCreatePartyRegistration, codecResponse{
		msgType: MsgCreatedPartyRegistration,
		payload: map[string]any{
			"registration_id":          "reg-1",
			"requested_oadr_poll_freq": 100 * 60 * 60, // 100h requested
		},
	})

	require.NoError(t, c.createPartyRegistration(context.Background()))

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.LessOrEqual(t, c.cfg.PollFrequency.Hours(), 24.0)
}

func TestCancelPartyRegistration_ResetsStateToEmptyNotNil(t *testing.T) {
	c, codec, _, sched := newTestClient()
	c.mu.Lock()
	c.registrationID = "reg-1"
	c.reports = append(c.reports, &Report{ReportSpecifierID: "r1"})
	c.mu.Unlock()

	codec.setResponse(MsgCancelPartyRegistration, codecResponse{
		msgType: MsgCanceledPartyRegistration,
		payload: map[string]any{"response_code": int(200)},
	})

	require.NoError(t, c.cancelPartyRegistration(context.Background()))

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Empty(t, c.registrationID)
	assert.NotNil(t, c.reports)
	assert.Len(t, c.reports, 0)
	assert.NotNil(t, c.reportCallbacks)
	assert.NotNil(t, c.reportRequests)
	assert.NotNil(t, c.incompleteReports)
	assert.True(t, sched.jobs == nil || allCancelled(sched.jobs))
}

func allCancelled(jobs []*fakeJob) bool {
	for _, j := range jobs {
		if !j.cancelled {
			return false
		}
	}
	return true
}

func TestOnCancelPartyRegistration_MismatchLeavesStateUntouched(t *testing.T) {
	c, codec, _, _ := newTestClient()
	c.mu.Lock()
	c.registrationID = "reg-real"
	c.reports = append(c.reports, &Report{ReportSpecifierID: "r1"})
	c.mu.Unlock()

	codec.setResponse(MsgCanceledPartyRegistration, codecResponse{msgType: MsgResponse})

	err := c.onCancelPartyRegistration(context.Background(), map[string]any{
		"registration_id": "reg-wrong",
	})
	require.NoError(t, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, "reg-real", c.registrationID)
	assert.Len(t, c.reports, 1)
}

func TestOnCancelPartyRegistration_MatchWipesState(t *testing.T) {
	c, codec, _, _ := newTestClient()
	c.mu.Lock()
	c.registrationID = "reg-real"
	c.reports = append(c.reports, &Report{ReportSpecifierID: "r1"})
	c.mu.Unlock()

	codec.setResponse(MsgCanceledPartyRegistration, codecResponse{msgType: MsgResponse})

	err := c.onCancelPartyRegistration(context.Background(), map[string]any{
		"registration_id": "reg-real",
	})
	require.NoError(t, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Empty(t, c.registrationID)
	assert.Len(t, c.reports, 0)
}

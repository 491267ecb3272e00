package ven

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOpt_RejectsUnknownOptType(t *testing.T) {
	c, _, _, _ := newTestClient()
	_, err := c.CreateOpt(context.Background(), OptType("bogus"), OptReasonNone, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPT")
}

func TestCreateOpt_RejectsUnknownOptReason(t *testing.T) {
	c, _, _, _ := newTestClient()
	_, err := c.CreateOpt(context.Background(), OptIn, OptReason("bogus"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPT_REASON")
}

func TestCreateOpt_RecordsOptOnSuccess(t *testing.T) {
	c, codec, _, _ := newTestClient()
	codec.setResponse(MsgCreateOpt, codecResponse{msgType: MsgResponse})

	optID, err := c.CreateOpt(context.Background(), OptOut, OptReasonEmergency, []string{"group-1"})
	require.NoError(t, err)
	require.NotEmpty(t, optID)

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.opts, 1)
	assert.Equal(t, optID, c.opts[0].OptID)
	assert.Equal(t, OptOut, c.opts[0].OptType)
	assert.Equal(t, []string{"group-1"}, c.opts[0].Targets)
}

func TestCreateOpt_UsesVTNAcknowledgedOptID(t *testing.T) {
	c, codec, _, _ := newTestClient()
	codec.setResponse(MsgCreateOpt, codecResponse{
		msgType: MsgResponse,
		payload: map[string]any{"opt_id": "vtn-assigned-1"},
	})

	optID, err := c.CreateOpt(context.Background(), OptOut, OptReasonEmergency, nil)
	require.NoError(t, err)
	assert.Equal(t, "vtn-assigned-1", optID)

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.opts, 1)
	assert.Equal(t, "vtn-assigned-1", c.opts[0].OptID)
}

func TestCancelOpt_RemovesExistingOpt(t *testing.T) {
	c, codec, _, _ := newTestClient()
	codec.setResponse(MsgCreateOpt, codecResponse{msgType: MsgResponse})
	codec.setResponse(MsgCancelOpt, codecResponse{msgType: MsgResponse})

	optID, err := c.CreateOpt(context.Background(), OptIn, OptReasonNone, nil)
	require.NoError(t, err)

	require.NoError(t, c.CancelOpt(context.Background(), optID))

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Len(t, c.opts, 0)
}

func TestCancelOpt_UnknownIDReturnsError(t *testing.T) {
	c, _, _, _ := newTestClient()
	err := c.CancelOpt(context.Background(), "never-created")
	require.Error(t, err)
}

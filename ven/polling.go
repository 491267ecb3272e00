package ven

import (
	"context"

	"github.com/openadr-ven/client/logger"
)

// poll performs one oadrPoll round trip and dispatches the VTN's response
// to the appropriate handler. Unrecognized response types are logged and
// ignored rather than treated as fatal — the VTN may legitimately send
// message types this client doesn't act on.
func (c *Client) poll(ctx context.Context) error {
	if err := c.pollLimiter.Wait(ctx); err != nil {
		return err
	}

	c.hooks.runBeforePoll(ctx)

	c.mu.Lock()
	regID := c.registrationID
	c.mu.Unlock()

	res := c.performRequest(ctx, MsgPoll, MessageFields{
		"request_id":      generateID(),
		"registration_id": regID,
	})
	if !res.ok() {
		return res.err
	}

	if err := c.dispatch(ctx, res.msgType, res.payload); err != nil {
		return err
	}

	c.hooks.runAfterPoll(ctx, res.msgType)
	return nil
}

func (c *Client) dispatch(ctx context.Context, msgType string, payload map[string]any) error {
	switch msgType {
	case MsgResponse:
		return nil

	case MsgRequestReregistration:
		return c.createPartyReregistration(ctx)

	case MsgDistributeEvent:
		if len(payloadSlice(payload, "events")) == 0 {
			return nil
		}
		return c.onEvent(ctx, payload)

	case MsgUpdateReport:
		// VTN acknowledging a report we previously sent; nothing further
		// to do unless it also asked us to cancel the request.
		if payloadBool(payload, "cancel_report", false) {
			return c.cancelReport(ctx, payload)
		}
		return nil

	case MsgCreateReport:
		if len(payloadSlice(payload, "report_requests")) == 0 {
			return nil
		}
		return c.createReport(ctx, payload)

	case MsgRegisterReport:
		res := c.performRequest(ctx, MsgRegisteredReport, MessageFields{
			"request_id":      generateID(),
			"report_requests": []MessageFields{},
		})
		return res.err

	case MsgCancelPartyRegistration:
		return c.onCancelPartyRegistration(ctx, payload)

	case MsgCancelReport:
		return c.cancelReport(ctx, payload)

	default:
		logger.Debugw("ignoring unhandled poll response", "msg_type", msgType)
		return nil
	}
}

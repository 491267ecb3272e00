package ven

import (
	"context"
	"time"

	"github.com/openadr-ven/client/logger"
)

// queryRegistration asks the VTN whether it already knows this VEN,
// letting a restarted client recover its registration_id without
// re-registering. A non-fatal failure here is tolerated; createPartyRegistration
// still runs afterwards.
func (c *Client) queryRegistration(ctx context.Context) error {
	res := c.performRequest(ctx, MsgQueryRegistration, MessageFields{
		"request_id": generateID(),
	})
	if !res.ok() {
		return res.err
	}
	if res.msgType != MsgCreatedPartyRegistration {
		return nil
	}
	c.mu.Lock()
	if regID := payloadString(res.payload, "registration_id"); regID != "" {
		c.registrationID = regID
	}
	c.mu.Unlock()
	return nil
}

// createPartyRegistration registers (or re-registers) this VEN with the
// VTN. A non-200 response or a missing registration_id in the reply is
// fatal: the caller stops the client rather than continuing in an
// unregistered state.
func (c *Client) createPartyRegistration(ctx context.Context) error {
	c.mu.Lock()
	regID := c.registrationID
	c.mu.Unlock()

	res := c.performRequest(ctx, MsgCreatePartyRegistration, MessageFields{
		"request_id":        generateID(),
		"ven_name":          c.cfg.VENName,
		"ven_id":            c.cfg.VENID,
		"http_pull_model":   c.cfg.HTTPPullModel,
		"xml_signature":     c.cfg.XMLSignature,
		"report_only":       c.cfg.ReportOnly,
		"profile_name":      c.cfg.ProfileName,
		"transport_name":    c.cfg.TransportName,
		"transport_address": c.cfg.TransportAddress,
		"registration_id":   regID,
	})
	if !res.ok() {
		return res.err
	}

	newRegID := payloadString(res.payload, "registration_id")
	venID := payloadString(res.payload, "ven_id")

	c.mu.Lock()
	defer c.mu.Unlock()
	if newRegID != "" {
		c.registrationID = newRegID
	}
	if venID != "" && venID != c.cfg.VENID {
		logger.Warnw("VTN assigned a different ven_id than configured",
			logger.FieldVENID, venID)
		c.cfg.VENID = venID
	}
	if freq := payloadInt(res.payload, "requested_oadr_poll_freq", 0); freq > 0 {
		c.cfg.PollFrequency = clampPollFrequency(time.Duration(freq) * time.Second)
	}
	return nil
}

// clampPollFrequency enforces the protocol's 24h ceiling on poll
// frequency, logging when the VTN's requested value had to be clamped.
func clampPollFrequency(d time.Duration) time.Duration {
	const max = 24 * time.Hour
	if d > max {
		logger.Warnw("VTN requested a poll frequency above the 24h ceiling, clamping",
			"requested", d.String(), "clamped_to", max.String())
		return max
	}
	return d
}

// cancelPartyRegistration tells the VTN this VEN is withdrawing, then
// resets every registration-scoped collection to an empty value — never
// leaves them nil — so a subsequent re-registration never dereferences a
// nil map or slice.
func (c *Client) cancelPartyRegistration(ctx context.Context) error {
	c.mu.Lock()
	regID := c.registrationID
	c.mu.Unlock()
	if regID == "" {
		return nil
	}

	res := c.performRequest(ctx, MsgCancelPartyRegistration, MessageFields{
		"request_id":      generateID(),
		"registration_id": regID,
	})
	if !res.ok() {
		return res.err
	}
	if res.msgType != MsgCanceledPartyRegistration || payloadInt(res.payload, "response_code", 0) != int(StatusOK) {
		return nil
	}

	c.resetRegistrationState()
	if c.sched != nil {
		c.sched.RemoveAll()
	}
	return nil
}

// onCancelPartyRegistration handles a VTN-initiated cancellation request
// delivered through the poll dispatch table. A registration_id mismatch
// is answered with StatusInvalidID and leaves all state untouched — only
// a match wipes state.
func (c *Client) onCancelPartyRegistration(ctx context.Context, payload map[string]any) error {
	incoming := payloadString(payload, "registration_id")

	c.mu.Lock()
	match := incoming != "" && incoming == c.registrationID
	c.mu.Unlock()

	code := StatusInvalidID
	if match {
		code = StatusOK
	}

	res := c.performRequest(ctx, MsgCanceledPartyRegistration, MessageFields{
		"request_id":    generateID(),
		"response_code": int(code),
	})

	if match {
		c.resetRegistrationState()
		if c.sched != nil {
			c.sched.RemoveAll()
		}
	}
	return res.err
}

// createPartyReregistration answers an oadrRequestReregistration by
// acknowledging it and re-running the registration handshake.
func (c *Client) createPartyReregistration(ctx context.Context) error {
	res := c.performRequest(ctx, MsgResponse, MessageFields{
		"request_id":    generateID(),
		"response_code": int(StatusOK),
	})
	if !res.ok() {
		return res.err
	}
	return c.createPartyRegistration(ctx)
}

func (c *Client) resetRegistrationState() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registrationID = ""
	c.reports = []*Report{}
	c.reportCallbacks = make(map[reportKey]any)
	c.reportRequests = []*ActiveReportRequest{}
	c.incompleteReports = make(map[string]*OutgoingReport)
	c.lastReportValue = make(map[reportKey]float64)
}

package ven

import (
	"context"

	"github.com/openadr-ven/client/errors"
)

// CreateOpt announces a VEN-originated availability record to the VTN.
// optType and optReason are validated against the known vocabulary
// before the request is sent; the reference implementation's error
// message incorrectly named the report-name vocabulary in both checks —
// this version names OPT and OPT_REASON respectively.
func (c *Client) CreateOpt(ctx context.Context, optType OptType, reason OptReason, targets []string) (string, error) {
	if !validOptType(optType) {
		return "", errors.Newf("ven: CreateOpt: %q is not a recognized OPT value", optType)
	}
	if !validOptReason(reason) {
		return "", errors.Newf("ven: CreateOpt: %q is not a recognized OPT_REASON value", reason)
	}

	optID := generateID()
	res := c.performRequest(ctx, MsgCreateOpt, MessageFields{
		"request_id": generateID(),
		"opt_id":     optID,
		"opt_type":   string(optType),
		"opt_reason": string(reason),
		"targets":    targets,
	})
	if !res.ok() {
		return "", res.err
	}

	// The VTN may assign its own opt_id rather than echoing the one this
	// VEN proposed; that ack, not the local guess, is the id of record.
	if ackID := payloadString(res.payload, "opt_id"); ackID != "" {
		optID = ackID
	}

	c.mu.Lock()
	c.opts = append(c.opts, Opt{OptID: optID, OptType: optType, OptReason: reason, Targets: targets})
	c.mu.Unlock()
	return optID, nil
}

// CancelOpt withdraws a previously created Opt record.
func (c *Client) CancelOpt(ctx context.Context, optID string) error {
	c.mu.Lock()
	kept := c.opts[:0:0]
	found := false
	for _, o := range c.opts {
		if o.OptID == optID {
			found = true
			continue
		}
		kept = append(kept, o)
	}
	c.opts = kept
	c.mu.Unlock()

	if !found {
		return errors.Newf("ven: CancelOpt: unknown opt_id %q", optID)
	}

	res := c.performRequest(ctx, MsgCancelOpt, MessageFields{
		"request_id": generateID(),
		"opt_id":     optID,
	})
	return res.err
}

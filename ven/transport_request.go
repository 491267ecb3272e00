package ven

import (
	"context"

	"github.com/openadr-ven/client/errors"
)

// performRequest builds msgType with fields, POSTs it to the VTN, and
// parses the response into a single requestResult — the one shape every
// round trip resolves to, regardless of which failure mode it hit.
func (c *Client) performRequest(ctx context.Context, msgType string, fields MessageFields) requestResult {
	body, err := c.codec.CreateMessage(msgType, fields)
	if err != nil {
		return requestResult{err: errors.Wrapf(err, "ven: encode %s", msgType)}
	}

	respBody, status, err := c.tp.Post(ctx, c.cfg.VTNURL, body)
	if err != nil {
		return requestResult{err: errors.Wrapf(err, "ven: POST %s", msgType)}
	}
	if status != 200 {
		return requestResult{err: errors.Newf("ven: VTN responded %d to %s", status, msgType)}
	}

	respType, payload, err := c.codec.ParseMessage(respBody)
	if err != nil {
		return requestResult{err: errors.Wrapf(err, "ven: parse response to %s", msgType)}
	}
	return requestResult{msgType: respType, payload: payload}
}

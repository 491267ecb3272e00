package ven

import (
	"context"

	"github.com/openadr-ven/client/logger"
)

// startReportPump launches the goroutine draining the pending-report
// queue (C6): one oadrUpdateReport POST per completed report, serialized
// through the client mutex like every other state-touching operation.
func (c *Client) startReportPump(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	c.mu.Lock()
	c.pumpCancel = cancel
	c.pumpDone = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case report, ok := <-c.pendingReports:
				if !ok {
					return
				}
				c.sendUpdateReport(ctx, report)
			}
		}
	}()
}

func (c *Client) sendUpdateReport(ctx context.Context, r *OutgoingReport) {
	if err := c.pumpLimiter.Wait(ctx); err != nil {
		return
	}

	intervals := make([]MessageFields, 0, len(r.Intervals))
	for _, iv := range r.Intervals {
		intervals = append(intervals, MessageFields{
			"dtstart":  iv.DTStart,
			"duration": iv.Duration,
			"r_id":     iv.RID,
			"value":    iv.Value,
		})
	}

	res := c.performRequest(ctx, MsgUpdateReport, MessageFields{
		"request_id":         generateID(),
		"report_request_id":  r.ReportRequestID,
		"report_specifier_id": r.ReportSpecifierID,
		"dtstart":            r.DTStart,
		"duration":           r.Duration,
		"intervals":          intervals,
	})
	if !res.ok() {
		logger.Errorw("update_report POST failed",
			logger.FieldReportRequestID, r.ReportRequestID, logger.FieldError, res.err.Error())
		return
	}

	if res.payload != nil && payloadBool(res.payload, "cancel_report", false) {
		if err := c.cancelReport(ctx, res.payload); err != nil {
			logger.Errorw("cancel_report triggered by update_report ack failed",
				logger.FieldReportRequestID, r.ReportRequestID, logger.FieldError, err.Error())
		}
	}
}

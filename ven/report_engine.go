package ven

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/openadr-ven/client/internal/util"
	"github.com/openadr-ven/client/logger"
)

// onChangeEpsilon is the minimum absolute delta a Sampling.OnChange r_id
// must move before a reading is buffered, avoiding a flood of
// indistinguishable-value intervals on a noisy but flat signal.
const onChangeEpsilon = 1e-9

// createReport handles an incoming oadrCreateReport: one or more
// ActiveReportRequests, each naming a report_specifier_id and the r_ids
// the VTN wants reported. A request whose report is unknown is still
// recorded (with empty RIDs and no job) rather than rejected outright;
// only a report_specifier_id or r_id containing "INVALID" triggers the
// StatusInvalidID path.
func (c *Client) createReport(ctx context.Context, payload map[string]any) error {
	requests := payloadSlice(payload, "report_requests")

	invalid := false
	var created []string

	for _, reqPayload := range requests {
		reportRequestID := payloadString(reqPayload, "report_request_id")
		reportSpecifierID := payloadString(reqPayload, "report_specifier_id")
		created = append(created, reportRequestID)

		if strings.Contains(reportSpecifierID, "INVALID") {
			invalid = true
			continue
		}

		requestedRIDs := stringsFromPayload(reqPayload, "r_ids")
		for _, rid := range requestedRIDs {
			if strings.Contains(rid, "INVALID") {
				invalid = true
			}
		}

		report, known := c.findReport(reportSpecifierID)
		req := &ActiveReportRequest{
			ReportRequestID:    reportRequestID,
			ReportSpecifierID:  reportSpecifierID,
			ReportBackDuration: time.Duration(payloadInt(reqPayload, "report_back_duration_s", 0)) * time.Second,
			Granularity:        time.Duration(payloadInt(reqPayload, "granularity_s", 0)) * time.Second,
			ReportToFollow:     payloadBool(reqPayload, "report_to_follow", false),
			Report:             report,
		}

		if known {
			for _, rid := range requestedRIDs {
				desc, ok := report.description(rid)
				if !ok {
					continue // measurement description/unit mismatch: skip this r_id
				}
				if req.Granularity > 0 {
					if desc.Sampling.MinPeriod > 0 && req.Granularity < desc.Sampling.MinPeriod {
						continue
					}
					if desc.Sampling.MaxPeriod > 0 && req.Granularity > desc.Sampling.MaxPeriod {
						continue
					}
				}
				req.RIDs = append(req.RIDs, rid)
			}
		}

		c.mu.Lock()
		c.reportRequests = append(c.reportRequests, req)
		c.mu.Unlock()

		c.scheduleReportJob(ctx, req)
	}

	code := StatusOK
	if invalid {
		code = StatusInvalidID
	}
	res := c.performRequest(ctx, MsgCreatedReport, MessageFields{
		"request_id":          generateID(),
		"response_code":       int(code),
		"pending_report_requests": created,
	})
	return res.err
}

// scheduleReportJob sets up the recurring or one-shot job that drives
// update_report for a freshly created report request: granularity 0 means
// single-shot; a non-zero report_back_duration schedules a recurring
// cron job; otherwise it fires once, either at the requested start time
// or immediately.
func (c *Client) scheduleReportJob(ctx context.Context, req *ActiveReportRequest) {
	if c.sched == nil || len(req.RIDs) == 0 {
		return
	}
	id := req.ReportRequestID

	if req.Granularity == 0 {
		c.updateReport(ctx, id)
		return
	}
	if req.ReportBackDuration > 0 {
		spec := c.cron.CronConfig(req.Granularity)
		req.Job = c.sched.AddCron(spec, func(jobCtx context.Context) {
			c.updateReport(jobCtx, id)
		})
		return
	}
	c.updateReport(ctx, id)
}

func (c *Client) findReportRequest(reportRequestID string) *ActiveReportRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, req := range c.reportRequests {
		if req.ReportRequestID == reportRequestID {
			return req
		}
	}
	return nil
}

// updateReport samples every r_id on a report request, accumulates the
// readings into the incomplete-report buffer, and — once the completion
// rule for the request's collection mode is satisfied — moves the
// buffered report onto the outbound pending-report queue.
func (c *Client) updateReport(ctx context.Context, reportRequestID string) {
	c.hooks.runBeforeUpdateReport(ctx, reportRequestID)

	req := c.findReportRequest(reportRequestID)
	if req == nil || req.Report == nil {
		return
	}

	c.mu.Lock()
	buf, ok := c.incompleteReports[reportRequestID]
	if !ok {
		buf = &OutgoingReport{
			ReportRequestID:   reportRequestID,
			ReportSpecifierID: req.ReportSpecifierID,
		}
		c.incompleteReports[reportRequestID] = buf
	}
	c.mu.Unlock()

	now := c.clock()

	for _, rid := range req.RIDs {
		desc, ok := req.Report.description(rid)
		if !ok {
			continue
		}
		key := reportKey{ReportSpecifierID: req.ReportSpecifierID, RID: rid}
		c.mu.Lock()
		sampler, found := c.reportCallbacks[key]
		c.mu.Unlock()
		if !found {
			logger.Errorw("no sampler registered for r_id, skipping",
				logger.FieldReportRequestID, reportRequestID, "r_id", rid)
			continue
		}

		var samples []Sample
		var err error
		switch desc.DataCollectionMode {
		case DataCollectionFull:
			ws, ok := sampler.(WindowedSampler)
			if !ok {
				continue
			}
			window := req.ReportBackDuration
			if req.Granularity > window {
				window = req.Granularity
			}
			from := now.Add(-window)
			samples, err = ws.SampleWindow(ctx, from, now, req.Granularity)
		case DataCollectionIncremental:
			if series, ok := sampler.(SeriesSampler); ok {
				samples, err = series.SampleSeries(ctx)
			} else if scalar, ok := sampler.(IncrementalSampler); ok {
				var v float64
				v, err = scalar.Sample(ctx)
				samples = []Sample{{At: now, Value: v}}
			}
		}
		if err != nil {
			logger.Errorw("sampler failed", "r_id", rid, logger.FieldError, err.Error())
			continue
		}

		c.mu.Lock()
		for _, s := range samples {
			if desc.Sampling.OnChange {
				last, seen := c.lastReportValue[key]
				if seen && util.AbsFloat64(s.Value-last) < onChangeEpsilon {
					continue
				}
				c.lastReportValue[key] = s.Value
			}
			buf.Intervals = append(buf.Intervals, ReportingInterval{
				DTStart:  s.At,
				Duration: req.Granularity,
				RID:      rid,
				Value:    s.Value,
			})
		}
		c.mu.Unlock()
	}

	c.mu.Lock()
	if len(buf.Intervals) > 0 {
		min := buf.Intervals[0].DTStart
		for _, iv := range buf.Intervals {
			if iv.DTStart.Before(min) {
				min = iv.DTStart
			}
		}
		buf.DTStart = min
	}
	buf.Duration = req.Report.Duration

	complete := c.reportIsComplete(req, buf)
	if complete {
		delete(c.incompleteReports, reportRequestID)
	}
	c.mu.Unlock()

	if complete {
		c.enqueueOutgoingReport(buf)
	}
}

// reportIsComplete implements the completion formula from the protocol's
// testable properties: intervals.length == r_ids.length * floor(report_back_duration/granularity)
// applies only to incremental reports with a bounded report_back_duration
// greater than granularity. Full-collection reports, and incremental
// reports with no such bound, are sent as soon as they are sampled.
func (c *Client) reportIsComplete(req *ActiveReportRequest, buf *OutgoingReport) bool {
	desc, ok := req.Report.description(firstRID(req.RIDs))
	if !ok {
		return true
	}
	if desc.DataCollectionMode != DataCollectionIncremental {
		return true
	}
	if req.ReportBackDuration <= 0 || req.Granularity <= 0 || req.ReportBackDuration <= req.Granularity {
		return true
	}
	expected := len(req.RIDs) * int(math.Floor(float64(req.ReportBackDuration)/float64(req.Granularity)))
	return len(buf.Intervals) >= expected
}

func firstRID(rids []string) string {
	if len(rids) == 0 {
		return ""
	}
	return rids[0]
}

func (c *Client) enqueueOutgoingReport(r *OutgoingReport) {
	select {
	case c.pendingReports <- r:
	default:
		logger.Warnw("pending report queue full, dropping oldest",
			logger.FieldReportRequestID, r.ReportRequestID)
		select {
		case <-c.pendingReports:
		default:
		}
		select {
		case c.pendingReports <- r:
		default:
		}
	}
}

// cancelReport handles an incoming oadrCancelReport: runs one final
// update_report if the request had any accepted r_ids, removes its
// scheduler job, and acknowledges with or without a trailing
// oadrCanceledReport pending-reports list depending on report_to_follow.
func (c *Client) cancelReport(ctx context.Context, payload map[string]any) error {
	reportRequestID := payloadString(payload, "report_request_id")

	c.mu.Lock()
	var req *ActiveReportRequest
	kept := c.reportRequests[:0:0]
	for _, r := range c.reportRequests {
		if r.ReportRequestID == reportRequestID {
			req = r
			continue
		}
		kept = append(kept, r)
	}
	c.reportRequests = kept
	c.mu.Unlock()

	if req == nil {
		return nil
	}

	if len(req.RIDs) > 0 {
		c.updateReport(ctx, reportRequestID)
	}
	if req.Job != nil {
		req.Job.Cancel()
	}

	if req.ReportToFollow {
		pending := c.drainPendingReportIDs()
		res := c.performRequest(ctx, MsgCanceledReport, MessageFields{
			"request_id":              generateID(),
			"report_request_id":       reportRequestID,
			"pending_report_requests": pending,
		})
		c.updateReport(ctx, reportRequestID)
		return res.err
	}

	res := c.performRequest(ctx, MsgCanceledReport, MessageFields{
		"request_id":        generateID(),
		"report_request_id": reportRequestID,
	})
	return res.err
}

func (c *Client) drainPendingReportIDs() []string {
	var ids []string
	c.mu.Lock()
	for id := range c.incompleteReports {
		ids = append(ids, id)
	}
	c.mu.Unlock()
	return ids
}

func stringsFromPayload(p map[string]any, key string) []string {
	raw, ok := p[key].([]string)
	if ok {
		return raw
	}
	if anySlice, ok := p[key].([]any); ok {
		out := make([]string, 0, len(anySlice))
		for _, v := range anySlice {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

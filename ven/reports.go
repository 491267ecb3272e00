package ven

import (
	"context"
	"time"

	"github.com/openadr-ven/client/errors"
	"github.com/openadr-ven/client/logger"
)

// defaultSamplingRate is substituted for a description's Sampling when it
// is left at its zero value.
var defaultSamplingRate = SamplingRate{MinPeriod: 10 * time.Second, MaxPeriod: time.Hour, OnChange: false}

// AddReport declares a report this VEN can produce and binds a sampler to
// each r_id. sampler must implement IncrementalSampler or SeriesSampler
// for an incremental r_id, or WindowedSampler for a full-collection one —
// compile-time interface satisfaction replaces the reference
// implementation's runtime parameter-name inspection, and a mismatched
// DataCollectionMode is rejected here rather than surfacing later as a
// KeyError deep in update_report.
//
// report_name, and each description's reading_type, report_type, and
// scale, are validated against the known vocabulary (an "x-" prefixed
// value is always accepted as a vendor extension). report.Duration and
// report.DTStart default to 3600s/now when left unset, each description's
// Sampling defaults to {10s, 1h, false}, and a known measurement code's
// canonical descriptor wins over a mismatched user-supplied unit.
func (c *Client) AddReport(report *Report, samplers map[string]any) error {
	if !validReportName(report.ReportName) {
		return errors.Newf("ven: AddReport: %q is not a recognized REPORT_NAME value", report.ReportName)
	}
	if report.Duration == 0 {
		logger.Warnw("report_duration not set, defaulting to 3600s", logger.FieldReportSpecID, report.ReportSpecifierID)
		report.Duration = 3600 * time.Second
	}
	if report.DTStart.IsZero() {
		report.DTStart = c.clock().UTC()
	}

	for i := range report.Descriptions {
		d := &report.Descriptions[i]

		if !validReadingType(d.ReadingType) {
			return errors.Newf("ven: AddReport %s: r_id %s: %q is not a recognized READING_TYPE value", report.ReportSpecifierID, d.RID, d.ReadingType)
		}
		if !validReportType(d.ReportType) {
			return errors.Newf("ven: AddReport %s: r_id %s: %q is not a recognized REPORT_TYPE value", report.ReportSpecifierID, d.RID, d.ReportType)
		}
		if !validScale(d.Scale) {
			return errors.Newf("ven: AddReport %s: r_id %s: %q is not a recognized SI_SCALE_CODE value", report.ReportSpecifierID, d.RID, d.Scale)
		}

		if d.Sampling == (SamplingRate{}) {
			d.Sampling = defaultSamplingRate
		}

		resolved, mismatch := resolveMeasurement(d.Measurement)
		if mismatch != "" {
			logger.Warnw("measurement unit mismatches canonical descriptor, dropping supplied unit",
				"r_id", d.RID, "measurement", d.Measurement.Name, "supplied_unit", mismatch, "canonical_unit", resolved.Unit)
		}
		d.Measurement = resolved

		key := reportKey{ReportSpecifierID: report.ReportSpecifierID, RID: d.RID}
		sampler, ok := samplers[d.RID]
		if !ok {
			return errors.Newf("ven: AddReport %s: no sampler for r_id %s", report.ReportSpecifierID, d.RID)
		}
		switch d.DataCollectionMode {
		case DataCollectionIncremental:
			_, isScalar := sampler.(IncrementalSampler)
			_, isSeries := sampler.(SeriesSampler)
			if !isScalar && !isSeries {
				return errors.Newf("ven: r_id %s is incremental but sampler implements neither IncrementalSampler nor SeriesSampler", d.RID)
			}
		case DataCollectionFull:
			if _, ok := sampler.(WindowedSampler); !ok {
				return errors.Newf("ven: r_id %s is full-collection but sampler does not implement WindowedSampler", d.RID)
			}
		default:
			return errors.Newf("ven: r_id %s has unknown data_collection_mode %q", d.RID, d.DataCollectionMode)
		}

		c.mu.Lock()
		c.reportCallbacks[key] = sampler
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.reports = append(c.reports, report)
	c.mu.Unlock()
	return nil
}

// reportDescriptionFields builds the wire representation of one
// ReportDescription for the oadrRegisterReport report_descriptions list.
func reportDescriptionFields(d ReportDescription) MessageFields {
	measurement := MessageFields{
		"name":        d.Measurement.Name,
		"description": d.Measurement.Description,
		"unit":        d.Measurement.Unit,
		"scale":       d.Measurement.ScaleFactor,
	}
	if d.Measurement.Power != nil {
		measurement["power_attributes"] = MessageFields{
			"ac_or_dc": d.Measurement.Power.ACOrDC,
			"hertz":    d.Measurement.Power.Hertz,
			"voltage":  d.Measurement.Power.Voltage,
		}
	}

	return MessageFields{
		"r_id":           d.RID,
		"reading_type":   d.ReadingType,
		"report_type":    d.ReportType,
		"scale":          d.Scale,
		"measurement":    measurement,
		"sampling_rate": MessageFields{
			"min_period": d.Sampling.MinPeriod,
			"max_period": d.Sampling.MaxPeriod,
			"on_change":  d.Sampling.OnChange,
		},
		"market_context": d.MarketContext,
		"target":         d.Target,
	}
}

// registerReports announces every declared report to the VTN via
// oadrRegisterReport, once per Report, at startup. created_date_time is
// refreshed to now on every (re-)registration. If the VTN's response
// carries report_requests, the client immediately enters the
// subscription phase for them rather than waiting for a later poll.
func (c *Client) registerReports(ctx context.Context) error {
	c.mu.Lock()
	reports := append([]*Report(nil), c.reports...)
	c.mu.Unlock()

	for _, r := range reports {
		r.CreatedDateTime = c.clock().UTC()

		descriptions := make([]MessageFields, 0, len(r.Descriptions))
		for _, d := range r.Descriptions {
			descriptions = append(descriptions, reportDescriptionFields(d))
		}

		fields := MessageFields{
			"request_id":           generateID(),
			"report_request_id":    0,
			"report_specifier_id":  r.ReportSpecifierID,
			"report_name":          r.ReportName,
			"report_duration":      r.Duration,
			"report_dtstart":       r.DTStart,
			"created_date_time":    r.CreatedDateTime,
			"report_descriptions": descriptions,
		}
		res := c.performRequest(ctx, MsgRegisterReport, fields)
		if !res.ok() {
			logger.Errorw("register_report failed",
				logger.FieldReportSpecID, r.ReportSpecifierID,
				logger.FieldError, res.err.Error())
			continue
		}

		if requests := payloadSlice(res.payload, "report_requests"); len(requests) > 0 {
			if err := c.createReport(ctx, res.payload); err != nil {
				logger.Errorw("create_report from register_report response failed",
					logger.FieldReportSpecID, r.ReportSpecifierID,
					logger.FieldError, err.Error())
			}
		}
	}
	return nil
}

func (c *Client) findReport(reportSpecifierID string) (*Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.reports {
		if r.ReportSpecifierID == reportSpecifierID {
			return r, true
		}
	}
	return nil, false
}

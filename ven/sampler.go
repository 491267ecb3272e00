package ven

import (
	"context"
	"time"
)

// IncrementalSampler produces one or more readings taken since the last
// call, for a report r_id whose DataCollectionMode is incremental.
// Implementations that naturally return one value should prefer
// SampleOne; SampleSeries exists for r_ids whose underlying source
// already buffers a sequence of timestamped readings.
type IncrementalSampler interface {
	Sample(ctx context.Context) (float64, error)
}

// SeriesSampler is the incremental variant that returns several readings
// at once, e.g. one per sub-interval since the last poll.
type SeriesSampler interface {
	SampleSeries(ctx context.Context) ([]Sample, error)
}

// WindowedSampler produces readings across an explicit window, for a
// report r_id whose DataCollectionMode is full.
type WindowedSampler interface {
	SampleWindow(ctx context.Context, from, to time.Time, interval time.Duration) ([]Sample, error)
}

// reportKey identifies one sampler registration.
type reportKey struct {
	ReportSpecifierID string
	RID               string
}

// Package cron translates a plain recurrence interval into the CronSpec a
// Scheduler consumes, standing in for the external cron-string helper the
// protocol's configuration surface names.
package cron

import (
	"fmt"
	"time"

	"github.com/openadr-ven/client/ven"
)

// Helper is the default CronHelper implementation.
type Helper struct{}

var _ ven.CronHelper = Helper{}

// CronConfig builds a CronSpec firing every interval. Sub-minute
// intervals are expressed on the seconds field; minute-or-coarser
// intervals on the minutes field, matching how a human would write the
// equivalent crontab line.
func (Helper) CronConfig(interval time.Duration) ven.CronSpec {
	if interval <= 0 {
		interval = time.Minute
	}

	spec := ven.CronSpec{
		Second:  "0",
		Minute:  "*",
		Hour:    "*",
		Day:     "*",
		Month:   "*",
		Weekday: "*",
		Interval: interval,
	}

	switch {
	case interval < time.Minute:
		spec.Second = fmt.Sprintf("*/%d", int(interval.Seconds()))
		spec.Minute = "*"
	case interval < time.Hour:
		spec.Minute = fmt.Sprintf("*/%d", int(interval.Minutes()))
	default:
		spec.Hour = fmt.Sprintf("*/%d", int(interval.Hours()))
	}

	return spec
}

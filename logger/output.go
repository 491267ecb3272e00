package logger

// Output controls what categories of information are shown at each verbosity level.
//
// Unlike log levels (which filter by severity), output categories control
// WHAT types of information are displayed regardless of severity.
//
// Verbosity Levels:
//
//	0 (default) - User-facing output only: run status, fatal errors
//	1 (-v)      - + registration/poll/report progress, startup config summary
//	2 (-vv)     - + event dispatch detail, report completion timing
//	3 (-vvv)    - + scheduler job lifecycle, opt bookkeeping
//	4 (-vvvv)   - + full HTTP request/response bodies

// OutputCategory defines a category of output that can be enabled/disabled
type OutputCategory int

const (
	// Level 0 (default) - Always shown
	OutputResults    OutputCategory = iota // run outcome, fatal errors
	OutputErrors                           // errors with hints and resolution steps
	OutputUserStatus                       // registration/connection status changes

	// Level 1 (-v) - Informational
	OutputProgress      // poll/report progress (e.g. "update_report 3/4 intervals")
	OutputStartup       // startup banner, resolved Config summary
	OutputRegistration  // registration handshake steps
	OutputOperationInfo // high-level operation summaries

	// Level 2 (-vv) - Detailed
	OutputEventDispatch // distributed event intake and opt decisions
	OutputTiming        // operation timing (e.g. "poll round trip took 42ms")
	OutputConfig        // effective config values after flag/env/file merge
	OutputHTTPRequests  // outgoing HTTP request URLs and methods
	OutputHTTPStatus    // HTTP response status codes

	// Level 3 (-vvv) - Debug
	OutputSchedulerJobs // job add/cancel lifecycle
	OutputOptBookkeeping // opt create/cancel ledger changes
	OutputInternalFlow   // internal operation flow (function entry/exit)

	// Level 4 (-vvvv) - Full dump
	OutputHTTPBody // full HTTP request/response bodies
	OutputDataDump // full data structure contents
)

// categoryLevels maps each output category to its minimum verbosity level
var categoryLevels = map[OutputCategory]int{
	OutputResults:    VerbosityUser,
	OutputErrors:     VerbosityUser,
	OutputUserStatus: VerbosityUser,

	OutputProgress:      VerbosityInfo,
	OutputStartup:       VerbosityInfo,
	OutputRegistration:  VerbosityInfo,
	OutputOperationInfo: VerbosityInfo,

	OutputEventDispatch: VerbosityDebug,
	OutputTiming:        VerbosityDebug,
	OutputConfig:        VerbosityDebug,
	OutputHTTPRequests:  VerbosityDebug,
	OutputHTTPStatus:    VerbosityDebug,

	OutputSchedulerJobs:  VerbosityTrace,
	OutputOptBookkeeping: VerbosityTrace,
	OutputInternalFlow:   VerbosityTrace,

	OutputHTTPBody: VerbosityAll,
	OutputDataDump: VerbosityAll,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		// Unknown category, default to highest verbosity required
		return verbosity >= VerbosityAll
	}
	return verbosity >= minLevel
}

// categoryNames provides human-readable names for output categories
var categoryNames = map[OutputCategory]string{
	OutputResults:        "results",
	OutputErrors:         "errors",
	OutputUserStatus:     "status",
	OutputProgress:       "progress",
	OutputStartup:        "startup",
	OutputRegistration:   "registration",
	OutputOperationInfo:  "operation-info",
	OutputEventDispatch:  "event-dispatch",
	OutputTiming:         "timing",
	OutputConfig:         "config",
	OutputHTTPRequests:   "http-requests",
	OutputHTTPStatus:     "http-status",
	OutputSchedulerJobs:  "scheduler-jobs",
	OutputOptBookkeeping: "opt-bookkeeping",
	OutputInternalFlow:   "internal-flow",
	OutputHTTPBody:       "http-body",
	OutputDataDump:       "data-dump",
}

// CategoryName returns the human-readable name for an output category
func CategoryName(category OutputCategory) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "unknown"
}

// EnabledCategories returns all output categories enabled at the given verbosity
func EnabledCategories(verbosity int) []OutputCategory {
	var enabled []OutputCategory
	for cat, minLevel := range categoryLevels {
		if verbosity >= minLevel {
			enabled = append(enabled, cat)
		}
	}
	return enabled
}

// VerbosityDescription returns a description of what's shown at each level
func VerbosityDescription(verbosity int) string {
	switch verbosity {
	case VerbosityUser:
		return "results and errors only"
	case VerbosityInfo:
		return "+ registration/poll/report progress"
	case VerbosityDebug:
		return "+ event dispatch, timing, HTTP status"
	case VerbosityTrace:
		return "+ scheduler jobs, opt bookkeeping"
	case VerbosityAll:
		return "+ full HTTP request/response bodies"
	default:
		if verbosity > VerbosityAll {
			return "maximum verbosity"
		}
		return "unknown verbosity level"
	}
}

// ShouldShowHTTPBody returns true if full HTTP bodies should be logged.
func ShouldShowHTTPBody(verbosity int) bool {
	return ShouldOutput(verbosity, OutputHTTPBody)
}

// ShouldShowHTTPStatus returns true if HTTP status codes should be logged.
func ShouldShowHTTPStatus(verbosity int) bool {
	return ShouldOutput(verbosity, OutputHTTPStatus)
}

// ShouldShowSchedulerJobs returns true if scheduler job lifecycle events
// should be logged.
func ShouldShowSchedulerJobs(verbosity int) bool {
	return ShouldOutput(verbosity, OutputSchedulerJobs)
}

// Timing helpers

// SlowThresholdMS is the threshold in milliseconds above which timing is always shown
const SlowThresholdMS = 100

// ShouldShowTiming returns true if timing info should be displayed.
// Shows if: verbosity >= 2 (-vv) OR operation exceeded slow threshold.
func ShouldShowTiming(verbosity int, durationMS int64) bool {
	if durationMS >= SlowThresholdMS {
		return true // Always show slow operations
	}
	return ShouldOutput(verbosity, OutputTiming)
}

// ShouldShowTimingAlways returns true if timing should always be shown (slow operation)
func ShouldShowTimingAlways(durationMS int64) bool {
	return durationMS >= SlowThresholdMS
}

package ven

import (
	"strings"

	"github.com/openadr-ven/client/internal/util"
)

const metadataPrefix = "METADATA_"

// The OpenADR 2.0b vocabulary tables (report names, reading types, signal
// names, and so on) are a large, mostly-static enumeration whose full
// authoring is out of scope here. These are the minimal entries the core
// dispatch and validation logic must check against; any name outside the
// known set beginning with "x-" is treated as a vendor extension and
// passed through rather than rejected, matching the protocol's escape
// hatch for custom vocabulary.

var knownOptTypes = map[OptType]bool{
	OptIn:  true,
	OptOut: true,
}

var knownOptReasons = map[OptReason]bool{
	OptReasonEmergency:        true,
	OptReasonParticipating:    true,
	OptReasonNotParticipating: true,
	OptReasonNone:             true,
}

var knownSignalNames = map[string]bool{
	"simple":            true,
	"LOAD_CONTROL":      true,
	"LOAD_DISPATCH":     true,
	"ELECTRICITY_PRICE": true,
	"GHG":               true,
	"setpoint":          true,
	"delta":             true,
	"level":             true,
}

func isVendorExtension(name string) bool {
	return util.HasPrefixOrSuffix(name, "x-")
}

func validOptType(t OptType) bool {
	return knownOptTypes[t]
}

func validOptReason(r OptReason) bool {
	return knownOptReasons[r]
}

func validSignalName(name string) bool {
	return knownSignalNames[name] || isVendorExtension(name)
}

var knownReportNames = map[string]bool{
	"TELEMETRY_USAGE":  true,
	"TELEMETRY_STATUS": true,
	"TELEMETRY_PRICE":  true,
	"HISTORY_USAGE":    true,
	"HISTORY_GREENBUTTON": true,
}

var knownReadingTypes = map[string]bool{
	"Direct Read":       true,
	"Net":               true,
	"Gross":             true,
	"Average":           true,
	"Estimated":         true,
	"Summed":            true,
	"Mean":               true,
}

var knownReportTypes = map[string]bool{
	"reading":      true,
	"usage":        true,
	"demand":       true,
	"price":        true,
	"baseline":     true,
	"x-resource-status": true,
}

var knownScaleCodes = map[string]bool{
	"n":    true,
	"micro": true,
	"m":    true,
	"c":    true,
	"d":    true,
	"k":    true,
	"M":    true,
	"G":    true,
	"none": true,
}

// canonicalMeasurements maps a well-known measurement code (lowercased) to
// the descriptor AddReport substitutes for it, so two VENs reporting
// "power" always agree on unit and scale even if a caller supplies its own.
var canonicalMeasurements = map[string]Measurement{
	"power":      {Name: "power", Description: "Average power", Unit: "W"},
	"energy":     {Name: "energy", Description: "Real energy", Unit: "Wh"},
	"voltage":    {Name: "voltage", Description: "RMS voltage", Unit: "V"},
	"frequency":  {Name: "frequency", Description: "Line frequency", Unit: "Hz"},
	"current":    {Name: "current", Description: "RMS current", Unit: "A"},
	"price":      {Name: "price", Description: "Unit price", Unit: "USD"},
}

// stripMetadataPrefix mirrors the outbound name-stripping report_engine.go
// applies in updateReport, so a report declared as "METADATA_TELEMETRY_USAGE"
// validates against the same table as its bare form.
func stripMetadataPrefix(name string) string {
	if len(name) > len(metadataPrefix) && name[:len(metadataPrefix)] == metadataPrefix {
		return name[len(metadataPrefix):]
	}
	return name
}

func validReportName(name string) bool {
	return knownReportNames[stripMetadataPrefix(name)] || isVendorExtension(name)
}

func validReadingType(rt string) bool {
	return knownReadingTypes[rt] || isVendorExtension(rt)
}

func validReportType(rt string) bool {
	return knownReportTypes[rt] || isVendorExtension(rt)
}

func validScale(scale string) bool {
	if scale == "" {
		return true
	}
	return knownScaleCodes[scale] || isVendorExtension(scale)
}

// resolveMeasurement reconciles a declared Measurement against the
// canonical table: a known name's canonical descriptor wins, and a
// user-supplied unit that disagrees with it is dropped with a warning
// rather than sent to the VTN mismatched.
func resolveMeasurement(m Measurement) (resolved Measurement, mismatchedUnit string) {
	canon, ok := canonicalMeasurements[strings.ToLower(m.Name)]
	if !ok {
		return m, ""
	}
	resolved = canon
	if resolved.Power == nil {
		resolved.Power = m.Power
	}
	if m.Unit != "" && m.Unit != canon.Unit {
		return resolved, m.Unit
	}
	return resolved, ""
}

// Package ven implements an OpenADR 2.0b pull-mode Virtual End Node client:
// registration lifecycle, poll-driven dispatch, a reporting engine, and
// event reception with opt-response synthesis.
package ven

import (
	"context"
	"time"
)

// Message type strings exchanged with the VTN.
const (
	MsgQueryRegistration          = "oadrQueryRegistration"
	MsgCreatedPartyRegistration   = "oadrCreatedPartyRegistration"
	MsgCreatePartyRegistration    = "oadrCreatePartyRegistration"
	MsgCancelPartyRegistration    = "oadrCancelPartyRegistration"
	MsgCanceledPartyRegistration  = "oadrCanceledPartyRegistration"
	MsgRequestReregistration      = "oadrRequestReregistration"
	MsgPoll                       = "oadrPoll"
	MsgResponse                   = "oadrResponse"
	MsgDistributeEvent            = "oadrDistributeEvent"
	MsgCreatedEvent               = "oadrCreatedEvent"
	MsgRequestEvent               = "oadrRequestEvent"
	MsgRegisterReport             = "oadrRegisterReport"
	MsgRegisteredReport           = "oadrRegisteredReport"
	MsgCreateReport               = "oadrCreateReport"
	MsgCreatedReport              = "oadrCreatedReport"
	MsgCancelReport               = "oadrCancelReport"
	MsgCanceledReport             = "oadrCanceledReport"
	MsgUpdateReport               = "oadrUpdateReport"
	MsgCreateOpt                  = "oadrCreateOpt"
	MsgCreatedOpt                 = "oadrCreatedOpt"
	MsgCancelOpt                  = "oadrCancelOpt"
	MsgCanceledOpt                = "oadrCanceledOpt"
)

// MessageFields carries the named values a Codec needs to build one
// outgoing message. It is intentionally a loose bag — the wire schema
// itself is the Codec implementation's concern, not the dispatcher's.
type MessageFields map[string]any

// Codec builds and parses OpenADR payloads. Schema and signature
// validation are folded into ParseMessage's error return: implementations
// signal ErrSchemaInvalid, ErrSignatureInvalid, or ErrFingerprintMismatch
// instead of panicking or returning a partially-populated payload.
type Codec interface {
	CreateMessage(msgType string, fields MessageFields) ([]byte, error)
	ParseMessage(body []byte) (msgType string, payload map[string]any, err error)
}

// Transport performs the single HTTP operation the protocol needs: an
// XML POST to the VTN with a bounded connect/read timeout.
type Transport interface {
	Post(ctx context.Context, url string, body []byte) (respBody []byte, statusCode int, err error)
}

// JobHandle cancels a single scheduled job.
type JobHandle interface {
	Cancel()
}

// CronSpec is a recurrence description a Scheduler understands; callers
// obtain one from a CronHelper rather than constructing it by hand. The
// field-by-field strings mirror standard cron syntax for logging and
// display; Interval is the concrete cadence a Scheduler implementation
// actually runs on.
type CronSpec struct {
	Second, Minute, Hour string
	Day, Month, Weekday  string
	Interval             time.Duration
}

// Scheduler runs callbacks on a timer without blocking the caller. All
// callbacks run serialized with respect to each other and to the poll
// loop — see Client's single mutex.
type Scheduler interface {
	AddInterval(d time.Duration, fn func(context.Context)) JobHandle
	AddCron(spec CronSpec, fn func(context.Context)) JobHandle
	AddDate(at time.Time, fn func(context.Context)) JobHandle
	RemoveAll()
	Shutdown()
}

// CronHelper translates a plain interval into the CronSpec a Scheduler
// consumes, standing in for the external cron-string builder named in
// the protocol's configuration surface.
type CronHelper interface {
	CronConfig(interval time.Duration) CronSpec
}

// Clock is injected so tests can control time instead of depending on a
// real wall clock.
type Clock func() time.Time

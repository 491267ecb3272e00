package ven

import (
	"context"

	"github.com/openadr-ven/client/logger"
)

// determineEventStatus derives an Event's lifecycle state from its active
// period and the client's clock, independent of whatever status the VTN
// last reported — used by both event intake and the periodic status log.
func (c *Client) determineEventStatus(ap ActivePeriod) EventStatus {
	now := c.clock()
	if now.Before(ap.DTStart) {
		return EventStatusFar
	}
	end := ap.DTStart.Add(ap.Duration)
	if now.Before(end) {
		return EventStatusActive
	}
	return EventStatusCompleted
}

// onEvent handles an incoming oadrDistributeEvent: for each event, dedups
// against modification_number, invokes on_event/on_update_event, and
// collects an opt response. If anything in the batch errors, every
// result in the batch is coerced to optOut — not just the offending
// event — matching the reference implementation's all-or-nothing failure
// behavior.
func (c *Client) onEvent(ctx context.Context, payload map[string]any) error {
	eventPayloads := payloadSlice(payload, "events")

	type outcome struct {
		event  *Event
		opt    OptType
		signal bool // whether a response_code entry should be emitted
	}

	var outcomes []outcome
	batchFailed := false

	for _, ep := range eventPayloads {
		ev := parseEvent(ep)

		c.mu.Lock()
		existing, known := c.receivedEvents[ev.EventID]
		c.mu.Unlock()

		var handler EventHandlerFunc
		reuse := false

		switch {
		case known && existing.ModificationNumber == ev.ModificationNumber:
			reuse = true
		case known:
			c.mu.Lock()
			c.receivedEvents[ev.EventID] = ev
			c.mu.Unlock()
			handler = c.handlers.OnUpdateEvent
		default:
			c.mu.Lock()
			c.receivedEvents[ev.EventID] = ev
			c.mu.Unlock()
			handler = c.handlers.OnEvent
		}

		var opt OptType
		if reuse {
			c.mu.Lock()
			opt = c.respondedEvents[ev.EventID]
			c.mu.Unlock()
		} else if handler != nil {
			result, err := handler(ctx, ev)
			if err != nil {
				logger.Errorw("event handler failed", logger.FieldEventID, ev.EventID, logger.FieldError, err.Error())
				batchFailed = true
			}
			opt = result
		}

		if ev.Status == EventStatusCompleted || ev.Status == EventStatusCancelled {
			c.mu.Lock()
			delete(c.respondedEvents, ev.EventID)
			c.mu.Unlock()
		} else {
			c.mu.Lock()
			c.respondedEvents[ev.EventID] = opt
			c.mu.Unlock()
		}

		outcomes = append(outcomes, outcome{event: ev, opt: opt})
	}

	for i := range outcomes {
		o := &outcomes[i]
		if batchFailed {
			o.opt = OptOut
			continue
		}
		if o.event.ResponseRequired == ResponseRequiredAlways && o.opt != OptIn && o.opt != OptOut {
			o.opt = OptOut
		}
	}

	var responses []MessageFields
	for _, o := range outcomes {
		if o.event.ResponseRequired != ResponseRequiredAlways {
			continue
		}
		if c.determineEventStatus(o.event.ActivePeriod) == EventStatusCompleted {
			continue
		}
		code := StatusOK
		for _, sig := range o.event.Signals {
			if !validSignalName(sig.SignalName) {
				code = signalNotSupported
				break
			}
		}
		responses = append(responses, MessageFields{
			"event_id":      o.event.EventID,
			"opt_type":      string(o.opt),
			"response_code": int(code),
		})
	}

	if len(responses) == 0 {
		return nil
	}

	res := c.performRequest(ctx, MsgCreatedEvent, MessageFields{
		"request_id":      generateID(),
		"event_responses": responses,
	})
	return res.err
}

// signalNotSupported is the response code sent when an event signal's
// signal_name is unrecognized and not a vendor ("x-") extension.
const signalNotSupported StatusCode = 453

func parseEvent(p map[string]any) *Event {
	ev := &Event{
		EventID:            payloadString(p, "event_id"),
		ModificationNumber: payloadInt(p, "modification_number", 0),
		ResponseRequired:   ResponseRequired(payloadString(p, "response_required")),
	}
	ap := p["active_period"]
	if apm, ok := ap.(map[string]any); ok {
		ev.ActivePeriod = ActivePeriod{
			DTStart:  timeFromPayload(apm, "dtstart"),
			Duration: durationFromPayload(apm, "duration_s"),
		}
	}
	for _, sp := range payloadSlice(p, "event_signals") {
		ev.Signals = append(ev.Signals, EventSignal{
			SignalName: payloadString(sp, "signal_name"),
			SignalType: payloadString(sp, "signal_type"),
		})
	}
	ev.Status = EventStatus(payloadString(p, "event_status"))
	return ev
}

// eventStatusLog recomputes each non-cancelled event's status from its
// active period and logs a transition when it no longer matches the
// last-known status.
func (c *Client) eventStatusLog(ctx context.Context) {
	c.mu.Lock()
	events := make([]*Event, 0, len(c.receivedEvents))
	for _, ev := range c.receivedEvents {
		events = append(events, ev)
	}
	c.mu.Unlock()

	for _, ev := range events {
		if ev.Status == EventStatusCancelled {
			continue
		}
		computed := c.determineEventStatus(ev.ActivePeriod)
		if computed != ev.Status {
			logger.Infow("event status changed",
				logger.FieldEventID, ev.EventID, "from", string(ev.Status), "to", string(computed))
			c.mu.Lock()
			ev.Status = computed
			c.mu.Unlock()
		}
	}
}

// eventCleanup removes events whose status is cancelled or computed as
// completed from the received-event ledger.
func (c *Client) eventCleanup(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ev := range c.receivedEvents {
		status := ev.Status
		if status != EventStatusCancelled {
			status = c.determineEventStatus(ev.ActivePeriod)
		}
		if status == EventStatusCancelled || status == EventStatusCompleted {
			delete(c.receivedEvents, id)
		}
	}
}

package ven

import "context"

// EventHandlerFunc decides how the VEN responds to a distributed event.
// A nil error and an empty OptType leaves the decision to the default
// response_required-driven opt-out rule.
type EventHandlerFunc func(ctx context.Context, ev *Event) (OptType, error)

// EventHandlers is a value type bundling on_event/on_update_event
// callbacks, set once via Client.SetEventHandlers rather than reassigned
// as mutable attributes.
type EventHandlers struct {
	OnEvent       EventHandlerFunc
	OnUpdateEvent EventHandlerFunc
}

package ven

import "context"

// Hooks collects the typed listener points a caller may subscribe to.
// Each field is a slice of independently-invoked listeners — this
// replaces a name-keyed dynamic hook table with compile-time checked
// function types.
type Hooks struct {
	BeforePoll          []func(ctx context.Context)
	AfterPoll           []func(ctx context.Context, msgType string)
	BeforeRegister      []func(ctx context.Context)
	AfterRegister       []func(ctx context.Context, registrationID string)
	BeforeUpdateReport  []func(ctx context.Context, reportRequestID string)
}

func (h *Hooks) runBeforePoll(ctx context.Context) {
	for _, fn := range h.BeforePoll {
		fn(ctx)
	}
}

func (h *Hooks) runAfterPoll(ctx context.Context, msgType string) {
	for _, fn := range h.AfterPoll {
		fn(ctx, msgType)
	}
}

func (h *Hooks) runBeforeRegister(ctx context.Context) {
	for _, fn := range h.BeforeRegister {
		fn(ctx)
	}
}

func (h *Hooks) runAfterRegister(ctx context.Context, registrationID string) {
	for _, fn := range h.AfterRegister {
		fn(ctx, registrationID)
	}
}

func (h *Hooks) runBeforeUpdateReport(ctx context.Context, reportRequestID string) {
	for _, fn := range h.BeforeUpdateReport {
		fn(ctx, reportRequestID)
	}
}

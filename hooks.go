package mediator

import (
	"context"
	"time"
)

// Call identifies one dispatch for correlation across hooks.
type Call struct {
	// ID is a unique identifier for this dispatch call.
	ID string

	// Kind is the dispatch shape.
	Kind Kind

	// Request is the cleaned name of the concrete request or notification
	// type.
	Request string
}

// OnDispatchFunc is called after resolution, just before the composed chain
// runs. count is the number of middleware in the chain.
type OnDispatchFunc func(ctx context.Context, call Call, count int)

// OnSuccessFunc is called after the chain completes successfully. For stream
// dispatch it fires when enumeration finishes without error.
type OnSuccessFunc func(ctx context.Context, call Call, duration time.Duration)

// OnFailureFunc is called after the chain fails, including construction
// failures surfaced before any middleware ran.
type OnFailureFunc func(ctx context.Context, call Call, err error, duration time.Duration)

// OnMismatchFunc is called when a constraint filters a middleware out of a
// dispatch. Filtering is normal operation, not an error; the hook exists for
// diagnostics.
type OnMismatchFunc func(ctx context.Context, call Call, middleware, constraint string)

// OnOrderFallbackFunc is called when evaluating a middleware's Orderer
// panicked and the resolver fell through the cascade. Ordering never blocks
// construction, so the recovery is otherwise invisible; surface it here if
// it may mask a configuration bug.
type OnOrderFallbackFunc func(middleware string, recovered any)

// hooks holds all configured hook functions.
type hooks struct {
	onDispatch      []OnDispatchFunc
	onSuccess       []OnSuccessFunc
	onFailure       []OnFailureFunc
	onMismatch      []OnMismatchFunc
	onOrderFallback []OnOrderFallbackFunc
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithOnDispatch adds a hook called just before a composed chain runs.
// Multiple hooks are called in order.
//
// Example:
//
//	mediator.WithOnDispatch(func(ctx context.Context, call mediator.Call, count int) {
//	    logger.Info(ctx, "dispatching", "id", call.ID, "type", call.Request, "middleware", count)
//	})
func WithOnDispatch(fn OnDispatchFunc) Option {
	return func(p *Pipeline) {
		p.hooks.onDispatch = append(p.hooks.onDispatch, fn)
	}
}

// WithOnSuccess adds a hook called after a chain completes successfully.
// Multiple hooks are called in order.
//
// Example:
//
//	mediator.WithOnSuccess(func(ctx context.Context, call mediator.Call, d time.Duration) {
//	    metrics.Timing("mediator.success", d, "kind:"+call.Kind.String())
//	})
func WithOnSuccess(fn OnSuccessFunc) Option {
	return func(p *Pipeline) {
		p.hooks.onSuccess = append(p.hooks.onSuccess, fn)
	}
}

// WithOnFailure adds a hook called after a chain fails.
// Multiple hooks are called in order.
//
// Example:
//
//	mediator.WithOnFailure(func(ctx context.Context, call mediator.Call, err error, d time.Duration) {
//	    logger.Error(ctx, "dispatch failed", "id", call.ID, "error", err)
//	})
func WithOnFailure(fn OnFailureFunc) Option {
	return func(p *Pipeline) {
		p.hooks.onFailure = append(p.hooks.onFailure, fn)
	}
}

// WithOnMismatch adds a hook called when a constraint filters a middleware
// out of a dispatch. Multiple hooks are called in order.
//
// Example:
//
//	mediator.WithOnMismatch(func(ctx context.Context, call mediator.Call, mw, constraint string) {
//	    logger.Debug(ctx, "middleware skipped", "middleware", mw, "constraint", constraint)
//	})
func WithOnMismatch(fn OnMismatchFunc) Option {
	return func(p *Pipeline) {
		p.hooks.onMismatch = append(p.hooks.onMismatch, fn)
	}
}

// WithOnOrderFallback adds a hook called when an Orderer evaluation was
// recovered and the order cascade fell through. Multiple hooks are called in
// order.
func WithOnOrderFallback(fn OnOrderFallbackFunc) Option {
	return func(p *Pipeline) {
		p.hooks.onOrderFallback = append(p.hooks.onOrderFallback, fn)
	}
}

func (p *Pipeline) callOnDispatch(ctx context.Context, call Call, count int) {
	for _, fn := range p.hooks.onDispatch {
		fn(ctx, call, count)
	}
}

func (p *Pipeline) callOnSuccess(ctx context.Context, call Call, d time.Duration) {
	for _, fn := range p.hooks.onSuccess {
		fn(ctx, call, d)
	}
}

func (p *Pipeline) callOnFailure(ctx context.Context, call Call, err error, d time.Duration) {
	for _, fn := range p.hooks.onFailure {
		fn(ctx, call, err, d)
	}
}

func (p *Pipeline) callOnMismatch(ctx context.Context, call Call, middleware, constraint string) {
	for _, fn := range p.hooks.onMismatch {
		fn(ctx, call, middleware, constraint)
	}
}

func (p *Pipeline) callOnOrderFallback(middleware string, recovered any) {
	for _, fn := range p.hooks.onOrderFallback {
		fn(middleware, recovered)
	}
}

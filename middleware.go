package mediator

import (
	"context"
	"iter"
)

// CommandNext continues a command chain. Middleware call it to delegate to
// the next middleware or, at the innermost link, the terminal handler.
type CommandNext func(ctx context.Context) error

// QueryNext continues a query chain and produces the downstream result.
type QueryNext func(ctx context.Context) (any, error)

// StreamNext continues a stream chain and produces the downstream sequence.
// The sequence is lazy, forward-only, and single-consumption.
type StreamNext func(ctx context.Context) iter.Seq2[any, error]

// NotificationNext continues a notification chain. Skipping it short-circuits
// the remaining middleware and every terminal subscriber.
type NotificationNext func(ctx context.Context) error

// CommandMiddleware wraps command dispatch with cross-cutting behavior.
// Use this for fire-and-forget requests with no result.
//
// Example:
//
//	type retryMiddleware struct {
//	    attempts int
//	}
//
//	func (m *retryMiddleware) Run(ctx context.Context, request any, next mediator.CommandNext) error {
//	    var err error
//	    for i := 0; i < m.attempts; i++ {
//	        if err = next(ctx); err == nil {
//	            return nil
//	        }
//	    }
//	    return err
//	}
type CommandMiddleware interface {
	Run(ctx context.Context, request any, next CommandNext) error
}

// CommandMiddlewareFunc is a function adapter for CommandMiddleware. Use for
// simple middleware that don't need a struct:
//
//	mediator.UseCommand(p, func() mediator.CommandMiddlewareFunc {
//	    return func(ctx context.Context, request any, next mediator.CommandNext) error {
//	        return next(ctx)
//	    }
//	})
type CommandMiddlewareFunc func(ctx context.Context, request any, next CommandNext) error

// Run implements the CommandMiddleware interface.
func (f CommandMiddlewareFunc) Run(ctx context.Context, request any, next CommandNext) error {
	return f(ctx, request, next)
}

// QueryMiddleware wraps query dispatch with cross-cutting behavior. The
// middleware may transform, replace, or pass through the downstream result.
//
// Example:
//
//	type cacheMiddleware struct {
//	    cache Cache
//	}
//
//	func (m *cacheMiddleware) Call(ctx context.Context, request any, next mediator.QueryNext) (any, error) {
//	    if hit, ok := m.cache.Get(request); ok {
//	        return hit, nil
//	    }
//	    res, err := next(ctx)
//	    if err == nil {
//	        m.cache.Put(request, res)
//	    }
//	    return res, err
//	}
type QueryMiddleware interface {
	Call(ctx context.Context, request any, next QueryNext) (any, error)
}

// QueryMiddlewareFunc is a function adapter for QueryMiddleware.
type QueryMiddlewareFunc func(ctx context.Context, request any, next QueryNext) (any, error)

// Call implements the QueryMiddleware interface.
func (f QueryMiddlewareFunc) Call(ctx context.Context, request any, next QueryNext) (any, error) {
	return f(ctx, request, next)
}

// StreamMiddleware wraps stream dispatch. The middleware receives the
// downstream producer and returns its own lazy sequence, which may re-yield,
// filter, transform, or inject extra items before or after delegating.
//
// Implementations must respect early termination: when yield returns false,
// stop producing and stop pulling from the inner sequence.
//
// Example:
//
//	type markerMiddleware struct{}
//
//	func (markerMiddleware) Stream(ctx context.Context, request any, next mediator.StreamNext) iter.Seq2[any, error] {
//	    return func(yield func(any, error) bool) {
//	        if !yield("start", nil) {
//	            return
//	        }
//	        for item, err := range next(ctx) {
//	            if !yield(item, err) {
//	                return
//	            }
//	        }
//	        yield("end", nil)
//	    }
//	}
type StreamMiddleware interface {
	Stream(ctx context.Context, request any, next StreamNext) iter.Seq2[any, error]
}

// StreamMiddlewareFunc is a function adapter for StreamMiddleware.
type StreamMiddlewareFunc func(ctx context.Context, request any, next StreamNext) iter.Seq2[any, error]

// Stream implements the StreamMiddleware interface.
func (f StreamMiddlewareFunc) Stream(ctx context.Context, request any, next StreamNext) iter.Seq2[any, error] {
	return f(ctx, request, next)
}

// NotificationMiddleware wraps notification publishing. Each middleware
// decides whether and when to call next; not calling it suppresses the
// remaining middleware and all subscribers for that publish call.
type NotificationMiddleware interface {
	Notify(ctx context.Context, notification any, next NotificationNext) error
}

// NotificationMiddlewareFunc is a function adapter for NotificationMiddleware.
type NotificationMiddlewareFunc func(ctx context.Context, notification any, next NotificationNext) error

// Notify implements the NotificationMiddleware interface.
func (f NotificationMiddlewareFunc) Notify(ctx context.Context, notification any, next NotificationNext) error {
	return f(ctx, notification, next)
}

// Orderer is the optional interface middleware implement to declare their
// position in the chain. Lower orders run outermost (first and last).
// Middleware without any order source sort after every ordered middleware,
// in registration order.
type Orderer interface {
	Order() int
}

// Configurable is the optional interface middleware implement to receive
// their static configuration payload at activation. Configure is called once
// per constructed instance, before the chain runs, and only when the
// registration carried a WithConfig payload.
type Configurable interface {
	Configure(cfg ConfigView)
}

// CommandHandler is the terminal handler thunk for a command dispatch. It
// typically closes over the typed request.
type CommandHandler func(ctx context.Context) error

// QueryHandler is the terminal handler thunk for a query dispatch, producing
// the business result.
type QueryHandler[R any] func(ctx context.Context) (R, error)

// StreamHandler is the terminal handler thunk for a stream dispatch,
// producing the innermost item sequence.
type StreamHandler[R any] func(ctx context.Context) iter.Seq2[R, error]

// Subscriber is one terminal recipient of a published notification.
type Subscriber func(ctx context.Context) error

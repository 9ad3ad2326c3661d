package mediator

import (
	"context"
	"reflect"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Publish delivers a notification to the given subscribers behind the
// notification middleware applicable to its concrete type.
//
// Middleware are ordered totally (same cascade as requests) and run
// sequentially; a middleware that does not call next short-circuits the
// remaining middleware and every subscriber, which is not an error.
// Middleware constrained to a narrower notification interface are filtered
// out, not failed, when the published type does not satisfy the constraint.
//
// Subscribers run sequentially, never in parallel. Every subscriber runs
// even when an earlier one failed; subscriber errors are aggregated into a
// single multierror. A middleware error propagates unchanged and stops the
// chain. Zero subscribers is valid: the middleware chain still runs.
func (p *Pipeline) Publish(ctx context.Context, notification any, subscribers ...Subscriber) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	call := newCall(KindNotification, reflect.TypeOf(notification))

	bounds, err := p.resolve(ctx, call, KindNotification, reflect.TypeOf(notification), nil)
	if err != nil {
		p.callOnFailure(ctx, call, err, 0)
		return err
	}

	terminal := func(ctx context.Context) error {
		var result *multierror.Error
		for _, s := range subscribers {
			if cerr := ctx.Err(); cerr != nil {
				result = multierror.Append(result, cerr)
				break
			}
			if serr := s(ctx); serr != nil {
				result = multierror.Append(result, serr)
			}
		}
		return result.ErrorOrNil()
	}

	chain := NotificationNext(terminal)
	for i := len(bounds) - 1; i >= 0; i-- {
		m := bounds[i].instance.(NotificationMiddleware)
		next := chain
		chain = func(ctx context.Context) error {
			return m.Notify(ctx, notification, next)
		}
	}

	p.callOnDispatch(ctx, call, len(bounds))
	start := time.Now()
	err = chain(ctx)
	duration := time.Since(start)

	if err != nil {
		p.callOnFailure(ctx, call, err, duration)
	} else {
		p.callOnSuccess(ctx, call, duration)
	}
	return err
}

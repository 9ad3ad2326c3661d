package mediator

import (
	"context"
	"fmt"
	"iter"
	"reflect"
	"time"
)

// StreamChain is a fully composed stream pipeline: each middleware wraps the
// downstream producer in its own lazy sequence.
type StreamChain func(ctx context.Context) iter.Seq2[any, error]

// ExecuteStream resolves the middleware applicable to the request's concrete
// type and item type R jointly, composes their producers around the handler,
// and returns the outermost sequence.
//
// The sequence is lazy, forward-only, and single-consumption. The consumer
// may stop early by breaking out of the range; cancellation signaled
// mid-enumeration surfaces as a final ctx.Err() element rather than silent
// truncation. Items yielded before a downstream failure remain visible; the
// error arrives after them, as the final element.
//
// Resolution and construction happen eagerly inside this call, but because
// the returned sequence has no error return, a ConfigurationError is
// delivered as the first pulled element. A context already cancelled when
// enumeration begins yields its error immediately, without pulling the chain.
func ExecuteStream[R any](ctx context.Context, p *Pipeline, request any, handler StreamHandler[R]) iter.Seq2[R, error] {
	call := newCall(KindStream, reflect.TypeOf(request))

	terminal := func(ctx context.Context) iter.Seq2[any, error] {
		return func(yield func(any, error) bool) {
			for item, err := range handler(ctx) {
				if !yield(item, err) {
					return
				}
			}
		}
	}

	chain, count, err := p.composeStream(ctx, call, request, reflect.TypeFor[R](), terminal)
	if err != nil {
		p.callOnFailure(ctx, call, err, 0)
		return func(yield func(R, error) bool) {
			var zero R
			yield(zero, err)
		}
	}

	return func(yield func(R, error) bool) {
		if err := ctx.Err(); err != nil {
			// Already cancelled: surface it without pulling the chain, as the
			// other entry points refuse to run on a dead context.
			var zero R
			yield(zero, err)
			return
		}
		p.callOnDispatch(ctx, call, count)
		start := time.Now()
		for item, err := range chain(ctx) {
			if err == nil {
				// Cancellation is observed between items and propagated,
				// never swallowed as a short sequence.
				err = ctx.Err()
			}
			if err != nil {
				p.callOnFailure(ctx, call, err, time.Since(start))
				var zero R
				yield(zero, err)
				return
			}
			typed, ok := item.(R)
			if !ok && item != nil {
				terr := fmt.Errorf("mediator: stream item %T is not %s", item, cleanTypeName(reflect.TypeFor[R]()))
				p.callOnFailure(ctx, call, terr, time.Since(start))
				var zero R
				yield(zero, terr)
				return
			}
			if !yield(typed, nil) {
				// Early termination by the consumer.
				p.callOnSuccess(ctx, call, time.Since(start))
				return
			}
		}
		p.callOnSuccess(ctx, call, time.Since(start))
	}
}

func (p *Pipeline) composeStream(ctx context.Context, call Call, request any, itemType reflect.Type, terminal StreamChain) (StreamChain, int, error) {
	bounds, err := p.resolve(ctx, call, KindStream, reflect.TypeOf(request), itemType)
	if err != nil {
		return nil, 0, err
	}

	chain := terminal
	for i := len(bounds) - 1; i >= 0; i-- {
		m := bounds[i].instance.(StreamMiddleware)
		next := chain
		chain = func(ctx context.Context) iter.Seq2[any, error] {
			return m.Stream(ctx, request, StreamNext(next))
		}
	}
	return chain, len(bounds), nil
}

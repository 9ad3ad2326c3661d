package mediator

import (
	"context"
	"fmt"
	"reflect"
	"time"
)

// QueryChain is a fully composed query pipeline. The result flows back out
// through every middleware, which may transform, replace, or pass it through.
type QueryChain func(ctx context.Context) (any, error)

// ExecuteQuery resolves the middleware applicable to the request's concrete
// type and the result type R jointly, composes them around the handler, and
// runs the chain.
//
// Middleware constrained with ResponseType match against R, so the same
// request dispatched for different result types can resolve different
// chains. Composition and failure semantics match ExecuteCommand.
//
// This is a package-level function (not a method) due to Go generics
// limitations: methods cannot have type parameters independent of the
// receiver.
func ExecuteQuery[R any](ctx context.Context, p *Pipeline, request any, handler QueryHandler[R]) (R, error) {
	var zero R
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	call := newCall(KindQuery, reflect.TypeOf(request))

	terminal := func(ctx context.Context) (any, error) {
		return handler(ctx)
	}
	chain, count, err := p.composeQuery(ctx, call, request, reflect.TypeFor[R](), terminal)
	if err != nil {
		p.callOnFailure(ctx, call, err, 0)
		return zero, err
	}

	p.callOnDispatch(ctx, call, count)
	start := time.Now()
	res, err := chain(ctx)
	duration := time.Since(start)

	if err != nil {
		p.callOnFailure(ctx, call, err, duration)
		return zero, err
	}
	p.callOnSuccess(ctx, call, duration)

	if res == nil {
		return zero, nil
	}
	typed, ok := res.(R)
	if !ok {
		// A middleware replaced the result with an incompatible value.
		return zero, fmt.Errorf("mediator: query result %T is not %s", res, cleanTypeName(reflect.TypeFor[R]()))
	}
	return typed, nil
}

// BuildQuery composes the query chain for the request's concrete type
// without a terminal handler, for inspection of resolution and composition.
// Invoking the returned chain is a programming error: its terminal returns a
// query-shaped MisuseError. Dispatch through ExecuteQuery instead.
//
// Without a result type to match, middleware constrained with ResponseType
// do not appear in the inspection chain.
func (p *Pipeline) BuildQuery(request any) (QueryChain, error) {
	call := newCall(KindQuery, reflect.TypeOf(request))
	sentinel := func(context.Context) (any, error) {
		return nil, &MisuseError{Kind: KindQuery}
	}
	chain, _, err := p.composeQuery(context.Background(), call, request, nil, sentinel)
	return chain, err
}

func (p *Pipeline) composeQuery(ctx context.Context, call Call, request any, respType reflect.Type, terminal QueryChain) (QueryChain, int, error) {
	bounds, err := p.resolve(ctx, call, KindQuery, reflect.TypeOf(request), respType)
	if err != nil {
		return nil, 0, err
	}

	chain := terminal
	for i := len(bounds) - 1; i >= 0; i-- {
		m := bounds[i].instance.(QueryMiddleware)
		next := chain
		chain = func(ctx context.Context) (any, error) {
			return m.Call(ctx, request, QueryNext(next))
		}
	}
	return chain, len(bounds), nil
}

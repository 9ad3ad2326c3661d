package mediator

import (
	"context"
	"reflect"
	"time"
)

// CommandChain is a fully composed command pipeline: middleware nested right
// to left around a terminal.
type CommandChain func(ctx context.Context) error

// ExecuteCommand resolves the middleware applicable to the request's
// concrete type, composes them around the handler, and runs the chain.
//
// The lowest-order middleware is outermost: it runs first and last. The
// chain is built fresh for this call and discarded when it returns.
// Construction failures surface as a ConfigurationError before any
// middleware runs. Handler and middleware errors propagate unchanged.
func (p *Pipeline) ExecuteCommand(ctx context.Context, request any, handler CommandHandler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	call := newCall(KindCommand, reflect.TypeOf(request))

	chain, count, err := p.composeCommand(ctx, call, request, handler)
	if err != nil {
		p.callOnFailure(ctx, call, err, 0)
		return err
	}

	p.callOnDispatch(ctx, call, count)
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

// BuildCommand composes the command chain for the request's concrete type
// without a terminal handler, for inspection of resolution and composition.
// Invoking the returned chain is a programming error: its terminal returns a
// command-shaped MisuseError. Dispatch through ExecuteCommand instead.
func (p *Pipeline) BuildCommand(request any) (CommandChain, error) {
	call := newCall(KindCommand, reflect.TypeOf(request))
	sentinel := func(context.Context) error {
		return &MisuseError{Kind: KindCommand}
	}
	chain, _, err := p.composeCommand(context.Background(), call, request, sentinel)
	return chain, err
}

func (p *Pipeline) composeCommand(ctx context.Context, call Call, request any, terminal CommandHandler) (CommandChain, int, error) {
	bounds, err := p.resolve(ctx, call, KindCommand, reflect.TypeOf(request), nil)
	if err != nil {
		return nil, 0, err
	}

	chain := CommandChain(terminal)
	for i := len(bounds) - 1; i >= 0; i-- {
		m := bounds[i].instance.(CommandMiddleware)
		next := chain
		chain = func(ctx context.Context) error {
			return m.Run(ctx, request, CommandNext(next))
		}
	}
	return chain, len(bounds), nil
}

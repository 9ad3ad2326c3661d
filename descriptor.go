package mediator

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"reflect"
)

// Kind classifies a middleware's dispatch shape. The classification is fixed
// at registration and never inferred at dispatch time.
type Kind int

const (
	KindCommand Kind = iota
	KindQuery
	KindStream
	KindNotification
)

// String returns the lowercase shape name.
func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindQuery:
		return "query"
	case KindStream:
		return "stream"
	case KindNotification:
		return "notification"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// descriptor is one registered middleware: its shape, its unbound type, the
// activator closure that constructs instances, the declared constraints, the
// declarative order (if any), and the opaque configuration payload.
// Descriptors are immutable once registration returns and live for the
// pipeline's lifetime.
type descriptor struct {
	kind      Kind
	mwType    reflect.Type
	construct func() (any, error)

	requestConstraints  []Constraint
	responseConstraints []Constraint

	explicitOrder *int
	config        json.RawMessage
	configErr     error

	// seq is the registration-sequence index: strictly increasing, assigned
	// at registration, never reused. Breaks order ties.
	seq int

	// fallbackOrder is reserved at registration for every descriptor without
	// a declarative order, so fallback positions follow registration order
	// even when dispatch first touches them in a different order.
	fallbackOrder *int
}

func (d *descriptor) name() string {
	return cleanTypeName(d.mwType)
}

// MiddlewareOption configures one middleware registration.
type MiddlewareOption func(*descriptor)

// WithOrder declares the middleware's chain position at registration. It is
// the third step of the order cascade: an Orderer implementation on the
// middleware instance or type takes precedence.
func WithOrder(order int) MiddlewareOption {
	return func(d *descriptor) {
		o := order
		d.explicitOrder = &o
	}
}

// When adds constraints the concrete request or notification type must
// satisfy for the middleware to apply. Multiple When options accumulate; all
// constraints must hold.
func When(cs ...Constraint) MiddlewareOption {
	return func(d *descriptor) {
		req, resp := splitConstraints(cs)
		d.requestConstraints = append(d.requestConstraints, req...)
		d.responseConstraints = append(d.responseConstraints, resp...)
	}
}

// WithConfig attaches a static configuration payload to the registration.
// The value is marshaled to JSON once, at registration; instances
// implementing Configurable receive it as a ConfigView at activation, and
// Inspect exposes the raw payload.
//
// A value that cannot be marshaled poisons the registration: the first
// dispatch that matches it fails with a ConfigurationError.
func WithConfig(v any) MiddlewareOption {
	return func(d *descriptor) {
		raw, err := json.Marshal(v)
		if err != nil {
			d.configErr = fmt.Errorf("%w: %v", ErrNotConfigured, err)
			return
		}
		d.config = raw
	}
}

// WithRawConfig attaches a pre-encoded JSON configuration payload. Invalid
// JSON poisons the registration the same way WithConfig does.
func WithRawConfig(raw json.RawMessage) MiddlewareOption {
	return func(d *descriptor) {
		if _, err := NewConfigView(raw); err != nil {
			d.configErr = fmt.Errorf("%w: %v", ErrNotConfigured, err)
			return
		}
		d.config = append(json.RawMessage(nil), raw...)
	}
}

// UseCommand registers command middleware. The factory is the activator: it
// is invoked once per dispatch call that the middleware applies to. A nil
// instance or a panicking factory is a deterministic construction failure
// surfaced as a ConfigurationError.
//
// This is a package-level function (not a method) due to Go generics
// limitations: methods cannot have type parameters independent of the
// receiver.
//
// Example:
//
//	mediator.UseCommand(p, func() *auditMiddleware {
//	    return &auditMiddleware{log: logger}
//	}, mediator.WithOrder(10))
func UseCommand[M CommandMiddleware](p *Pipeline, factory func() M, opts ...MiddlewareOption) {
	p.register(KindCommand, reflect.TypeFor[M](), wrapFactory(factory), opts)
}

// UseQuery registers query middleware. See UseCommand for activation
// semantics.
func UseQuery[M QueryMiddleware](p *Pipeline, factory func() M, opts ...MiddlewareOption) {
	p.register(KindQuery, reflect.TypeFor[M](), wrapFactory(factory), opts)
}

// UseStream registers stream middleware. See UseCommand for activation
// semantics.
func UseStream[M StreamMiddleware](p *Pipeline, factory func() M, opts ...MiddlewareOption) {
	p.register(KindStream, reflect.TypeFor[M](), wrapFactory(factory), opts)
}

// UseNotification registers notification middleware. See UseCommand for
// activation semantics.
func UseNotification[M NotificationMiddleware](p *Pipeline, factory func() M, opts ...MiddlewareOption) {
	p.register(KindNotification, reflect.TypeFor[M](), wrapFactory(factory), opts)
}

// wrapFactory adapts a typed activator into the descriptor's untyped
// construct closure, converting panics and nil instances into deterministic
// construction failures.
func wrapFactory[M any](factory func() M) func() (any, error) {
	return func() (instance any, err error) {
		defer func() {
			if r := recover(); r != nil {
				instance = nil
				err = fmt.Errorf("factory panicked: %v", r)
			}
		}()
		m := factory()
		rv := reflect.ValueOf(m)
		if !rv.IsValid() || (isNilable(rv.Kind()) && rv.IsNil()) {
			return nil, fmt.Errorf("factory returned nil")
		}
		return m, nil
	}
}

func isNilable(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan:
		return true
	default:
		return false
	}
}

// ForCommand registers a typed command middleware func constrained to
// requests assignable to T. T may be an interface, in which case the
// middleware applies to every command implementing it.
//
// Example:
//
//	mediator.ForCommand(p, func(ctx context.Context, cmd CreateUser, next mediator.CommandNext) error {
//	    if cmd.Email == "" {
//	        return errors.New("email required")
//	    }
//	    return next(ctx)
//	})
func ForCommand[T any](p *Pipeline, fn func(ctx context.Context, request T, next CommandNext) error, opts ...MiddlewareOption) {
	opts = append([]MiddlewareOption{When(AssignableTo[T]())}, opts...)
	UseCommand(p, func() commandFor[T] { return commandFor[T]{fn: fn} }, opts...)
}

type commandFor[T any] struct {
	fn func(ctx context.Context, request T, next CommandNext) error
}

func (m commandFor[T]) Run(ctx context.Context, request any, next CommandNext) error {
	return m.fn(ctx, request.(T), next)
}

// ForQuery registers a typed query middleware func constrained jointly to
// requests assignable to T and results assignable to R. The continuation is
// typed: the downstream result is converted before the middleware sees it.
func ForQuery[T, R any](p *Pipeline, fn func(ctx context.Context, request T, next func(context.Context) (R, error)) (R, error), opts ...MiddlewareOption) {
	opts = append([]MiddlewareOption{When(AssignableTo[T](), ResponseType[R]())}, opts...)
	UseQuery(p, func() queryFor[T, R] { return queryFor[T, R]{fn: fn} }, opts...)
}

type queryFor[T, R any] struct {
	fn func(ctx context.Context, request T, next func(context.Context) (R, error)) (R, error)
}

func (m queryFor[T, R]) Call(ctx context.Context, request any, next QueryNext) (any, error) {
	typed := func(ctx context.Context) (R, error) {
		res, err := next(ctx)
		if err != nil {
			var zero R
			return zero, err
		}
		if res == nil {
			var zero R
			return zero, nil
		}
		typed, ok := res.(R)
		if !ok {
			// A downstream middleware replaced the result with a value the
			// typed continuation cannot carry.
			var zero R
			return zero, fmt.Errorf("mediator: query result %T is not %s", res, cleanTypeName(reflect.TypeFor[R]()))
		}
		return typed, nil
	}
	return m.fn(ctx, request.(T), typed)
}

// ForStream registers a typed stream middleware func constrained to requests
// assignable to T. Item sequences stay untyped inside the chain; the
// ExecuteStream boundary restores the item type.
func ForStream[T any](p *Pipeline, fn func(ctx context.Context, request T, next StreamNext) iter.Seq2[any, error], opts ...MiddlewareOption) {
	opts = append([]MiddlewareOption{When(AssignableTo[T]())}, opts...)
	UseStream(p, func() streamFor[T] { return streamFor[T]{fn: fn} }, opts...)
}

type streamFor[T any] struct {
	fn func(ctx context.Context, request T, next StreamNext) iter.Seq2[any, error]
}

func (m streamFor[T]) Stream(ctx context.Context, request any, next StreamNext) iter.Seq2[any, error] {
	return m.fn(ctx, request.(T), next)
}

// ForNotification registers a typed notification middleware func constrained
// to notifications assignable to T. With an interface T this is the
// narrowing case: notifications that do not implement T skip the middleware
// without error.
func ForNotification[T any](p *Pipeline, fn func(ctx context.Context, notification T, next NotificationNext) error, opts ...MiddlewareOption) {
	opts = append([]MiddlewareOption{When(AssignableTo[T]())}, opts...)
	UseNotification(p, func() notificationFor[T] { return notificationFor[T]{fn: fn} }, opts...)
}

type notificationFor[T any] struct {
	fn func(ctx context.Context, notification T, next NotificationNext) error
}

func (m notificationFor[T]) Notify(ctx context.Context, notification any, next NotificationNext) error {
	return m.fn(ctx, notification.(T), next)
}

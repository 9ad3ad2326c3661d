// Package mediator provides an in-process request and notification dispatch
// engine with composable middleware pipelines.
//
// The mediator package takes a typed request (command, query, or stream
// request) or a typed notification, resolves the middleware applicable to its
// concrete type, orders the middleware deterministically, composes them into a
// single executable chain wrapping a terminal handler, and runs it. It handles
// constraint matching, ordering, composition, and cancellation so handler
// code stays pure business logic.
//
// # Quick Start
//
// Define a middleware for your command types:
//
//	type auditMiddleware struct {
//	    log *slog.Logger
//	}
//
//	func (m *auditMiddleware) Run(ctx context.Context, request any, next mediator.CommandNext) error {
//	    m.log.Info("command starting", "type", fmt.Sprintf("%T", request))
//	    err := next(ctx)
//	    m.log.Info("command finished", "err", err)
//	    return err
//	}
//
// Create a pipeline, register middleware, and dispatch:
//
//	p := mediator.New()
//
//	mediator.UseCommand(p, func() *auditMiddleware {
//	    return &auditMiddleware{log: logger}
//	})
//
//	err := p.ExecuteCommand(ctx, CreateUser{Email: "a@b.c"}, func(ctx context.Context) error {
//	    return store.Insert(ctx, user)
//	})
//
// # Design Philosophy
//
// The package separates concerns into three layers:
//
//   - Descriptors: registered middleware definitions (factory + constraints + order + config)
//   - Pipeline: matches descriptors to concrete types, orders and composes chains
//   - Handlers: pure business logic supplied per call as terminal thunks
//
// This separation allows:
//   - Cross-cutting behavior registered once, applied per concrete type
//   - Transport-agnostic handler code
//   - Consistent observability via hooks
//   - Easy testing with plain func thunks
//
// # Dispatch Shapes
//
// Four shapes share the same resolve+order+compose algorithm and differ only
// in chain signature:
//
//   - Command: ExecuteCommand: fire-and-forget, no result
//   - Query: ExecuteQuery: single result, middleware may transform or replace it
//   - Stream: ExecuteStream: lazy pull sequence (iter.Seq2), middleware may
//     filter, transform, or inject items
//   - Notification: Publish: fan-out to zero or more subscriber thunks behind
//     one sequential middleware chain
//
// Composition is right to left: the lowest-order middleware is outermost, the
// terminal handler is innermost. Chains are built fresh per call and never
// shared; only descriptors and their resolved order and applicability results
// are cached.
//
// # Ordering
//
// A middleware's position is resolved through a cascade, first match wins:
//
//  1. The constructed instance implements Orderer.
//  2. A zero value of the middleware type implements Orderer (a type-level
//     accessor that does not depend on construction state).
//  3. The WithOrder registration option.
//  4. A pipeline-scoped fallback counter seeded at 2147483647, with one slot
//     reserved per middleware registered without WithOrder, in registration
//     order.
//
// Explicit orders, however negative, always precede fallback orders, and ties
// preserve registration order. A panic while evaluating an Orderer never
// blocks pipeline construction: the resolver recovers, reports through the
// OnOrderFallback hook, and continues down the cascade.
//
// # Constraints
//
// Middleware may be registered unconstrained (applies to every request of its
// shape) or constrained to a subset of concrete types:
//
//	mediator.UseCommand(p, newValidation, mediator.When(
//	    mediator.Implements[Validatable](),
//	))
//
// Composable constraints are provided:
//   - Implements: request type must implement an interface
//   - AssignableTo: request type must be assignable to a type
//   - ResponseType: query result type must match (checked jointly with the request)
//   - IsPointer / IsValue: request must be a pointer / value type
//   - And / Or: combine constraints
//
// A request that fails a middleware's constraints silently skips that
// middleware; this is filtering, not failure. A middleware whose factory
// cannot produce an instance is a configuration defect and fails the dispatch
// call with a ConfigurationError before any middleware runs.
//
// # Typed Middleware
//
// Package-level generic helpers register typed middleware funcs and derive
// their constraints automatically (methods cannot have independent type
// parameters):
//
//	mediator.ForQuery(p, func(ctx context.Context, q GetUser, next func(context.Context) (User, error)) (User, error) {
//	    u, err := next(ctx)
//	    u.Email = strings.ToLower(u.Email)
//	    return u, err
//	})
//
// # Streaming
//
// Stream middleware compose lazy iter.Seq2[any, error] producers. The
// consumer may stop early (break), and cancellation signaled mid-enumeration
// surfaces as a final ctx.Err() element rather than silent truncation. Items
// yielded before a downstream failure remain visible to the consumer; the
// error arrives after them. The chain is constructed eagerly inside
// ExecuteStream, but because the returned sequence carries no error return,
// construction failures are delivered as the first pulled element.
//
// # Notifications
//
// Publish resolves notification middleware against the notification's
// concrete type, orders them, and invokes them sequentially around the
// subscriber set. A middleware that does not call next short-circuits the
// remaining middleware and every subscriber. Subscribers run sequentially,
// never in parallel; each runs even if an earlier one failed, and their
// errors are aggregated.
//
// # Inspection
//
// Inspect returns a read-only snapshot of the configured middleware in
// resolution order: resolved type, cleaned name, type parameters,
// constraints, order value and display string, and static configuration.
// BuildCommand and BuildQuery produce inspection-only chains whose terminal
// refuses direct invocation with a shape-specific MisuseError; dispatch must
// go through the Execute entry points.
//
// # Hooks
//
// Hooks provide observability without coupling to specific logging or metrics
// systems. Use functional options to configure them:
//
//	p := mediator.New(
//	    mediator.WithOnSuccess(func(ctx context.Context, call mediator.Call, d time.Duration) {
//	        metrics.Timing("mediator.success", d, "kind:"+call.Kind.String())
//	    }),
//	    mediator.WithOnFailure(func(ctx context.Context, call mediator.Call, err error, d time.Duration) {
//	        metrics.Incr("mediator.failure", "kind:"+call.Kind.String())
//	    }),
//	)
//
// Available hooks:
//   - WithOnDispatch: called after resolution, just before the chain runs
//   - WithOnSuccess: called after the chain completes
//   - WithOnFailure: called after the chain fails
//   - WithOnMismatch: called when a constraint filters a middleware out
//   - WithOnOrderFallback: called when an Orderer evaluation is recovered
//
// Multiple hooks of the same type are called in order. Every dispatch carries
// a Call record with a unique ID for correlation.
//
// # Configuration Payloads
//
// Middleware may carry a static JSON configuration payload, attached at
// registration with WithConfig and read through a gjson-backed ConfigView.
// Instances implementing Configurable receive their view at activation, and
// Inspect exposes the raw payload.
//
// # Thread Safety
//
// A Pipeline is safe for concurrent dispatch after configuration is complete.
// Do not register middleware after the first Execute or Publish call.
// Cancellation is cooperative: middleware and handlers observe ctx at their
// own suspension points; the pipeline never forcibly interrupts them.
package mediator

package mediator

import (
	"context"
	"math"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// fallbackSeed is the first order assigned to middleware with no order
// source. Any explicit order a caller would plausibly write sorts below it,
// so unordered middleware always run after ordered ones.
const fallbackSeed = math.MaxInt32

// Pipeline resolves, orders, composes, and executes middleware chains.
//
// Usage:
//  1. Create a pipeline with New
//  2. Register middleware with UseCommand, UseQuery, UseStream, UseNotification
//     (or the typed For* helpers)
//  3. Dispatch with ExecuteCommand, ExecuteQuery, ExecuteStream, Publish
//
// Pipeline is safe for concurrent dispatch after configuration. Do not
// register middleware after the first dispatch call.
type Pipeline struct {
	descriptors []*descriptor
	hooks       hooks

	// fallbackNext hands out registration-order fallback slots. A slot is
	// reserved for every descriptor without a declarative order, so even a
	// middleware whose Orderer panics sorts by registration position.
	fallbackNext atomic.Int64

	// matchCache caches constraint satisfaction per (descriptor, concrete
	// type) pair; satisfaction for a closed pair never changes. Races cause
	// at worst redundant recomputation.
	matchCache sync.Map // matchKey -> bool

	// orderCache caches resolved orders per descriptor.
	orderCache sync.Map // int (seq) -> int
}

type matchKey struct {
	seq      int
	request  reflect.Type
	response reflect.Type
}

// New creates a Pipeline with the given options.
//
// Example:
//
//	p := mediator.New(
//	    mediator.WithOnFailure(func(ctx context.Context, call mediator.Call, err error, d time.Duration) {
//	        logger.Error(ctx, "dispatch failed", "id", call.ID, "error", err)
//	    }),
//	)
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	p.fallbackNext.Store(fallbackSeed)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// register appends a descriptor. Registration is configuration-time only and
// is not synchronized against concurrent dispatch.
func (p *Pipeline) register(kind Kind, mwType reflect.Type, construct func() (any, error), opts []MiddlewareOption) {
	d := &descriptor{
		kind:      kind,
		mwType:    mwType,
		construct: construct,
		seq:       len(p.descriptors),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.explicitOrder == nil {
		// Reserve the fallback slot now so fallback positions follow
		// registration order. A descriptor with a working Orderer never uses
		// its slot; one whose accessor panics on every cascade step still
		// lands in registration order.
		o := int(p.fallbackNext.Add(1) - 1)
		d.fallbackOrder = &o
	}
	p.descriptors = append(p.descriptors, d)
}

var ordererType = reflect.TypeOf((*Orderer)(nil)).Elem()

// bound is one middleware closed against a concrete type: a constructed,
// configured instance plus its resolved order. Bounds are per dispatch call
// and never shared.
type bound struct {
	d        *descriptor
	instance any
	order    int
}

// resolve returns the constraint-matched, constructed, ordered middleware
// set for one dispatch call. Mismatches are filtered silently; construction
// failures abort the call with a ConfigurationError before any middleware
// runs.
func (p *Pipeline) resolve(ctx context.Context, call Call, kind Kind, reqType, respType reflect.Type) ([]bound, error) {
	var out []bound
	for _, d := range p.descriptors {
		if d.kind != kind {
			continue
		}
		if !p.matches(ctx, call, d, reqType, respType) {
			continue
		}
		if d.configErr != nil {
			return nil, &ConfigurationError{Middleware: d.name(), Err: d.configErr}
		}
		instance, err := d.construct()
		if err != nil {
			return nil, &ConfigurationError{Middleware: d.name(), Err: err}
		}
		if c, ok := instance.(Configurable); ok && d.config != nil {
			c.Configure(ConfigView{raw: d.config})
		}
		out = append(out, bound{d: d, instance: instance, order: p.resolveOrder(d, instance)})
	}
	// Stable: ties keep registration order.
	sort.SliceStable(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out, nil
}

// matches evaluates the descriptor's constraint set against the concrete
// request and response types, with per-pair caching. A descriptor binds at
// most once per concrete type: the full set is evaluated jointly, so a
// middleware constrained on both the request shape and the response type
// yields a single entry, never duplicates.
func (p *Pipeline) matches(ctx context.Context, call Call, d *descriptor, reqType, respType reflect.Type) bool {
	key := matchKey{seq: d.seq, request: reqType, response: respType}
	if v, cached := p.matchCache.Load(key); cached {
		matched := v.(bool)
		if !matched {
			p.callOnMismatch(ctx, call, d.name(), renderConstraints(append(d.requestConstraints, d.responseConstraints...)))
		}
		return matched
	}
	ok := true
	for _, c := range d.requestConstraints {
		if reqType == nil || !c.Satisfied(reqType) {
			ok = false
			break
		}
	}
	if ok {
		for _, c := range d.responseConstraints {
			if !c.Satisfied(respType) {
				ok = false
				break
			}
		}
	}
	p.matchCache.Store(key, ok)
	if !ok {
		p.callOnMismatch(ctx, call, d.name(), renderConstraints(append(d.requestConstraints, d.responseConstraints...)))
	}
	return ok
}

// resolveOrder resolves the descriptor's order through the cascade, caching
// the result so repeated dispatch is idempotent. instance may be nil (the
// inspector's construction-failure path); the instance step is then skipped.
func (p *Pipeline) resolveOrder(d *descriptor, instance any) int {
	if v, ok := p.orderCache.Load(d.seq); ok {
		return v.(int)
	}
	order := p.computeOrder(d, instance)
	// First store wins; a concurrent racer recomputed the same cascade.
	actual, _ := p.orderCache.LoadOrStore(d.seq, order)
	return actual.(int)
}

func (p *Pipeline) computeOrder(d *descriptor, instance any) int {
	// 1. Explicit accessor on the constructed instance.
	if o, ok := instance.(Orderer); ok {
		if n, ok := p.safeOrder(d, o); ok {
			return n
		}
	}

	// 2. Type-level accessor: a zero value of the middleware type, evaluated
	// without construction state.
	if z, ok := zeroOrderer(d.mwType); ok {
		if n, ok := p.safeOrder(d, z); ok {
			return n
		}
	}

	// 3. Declarative registration option.
	if d.explicitOrder != nil {
		return *d.explicitOrder
	}

	// 4. Registration-order fallback slot, reserved at registration for every
	// descriptor without a declarative order.
	return *d.fallbackOrder
}

// safeOrder evaluates an Orderer, recovering panics. Ordering must never
// block pipeline construction: a panicking accessor falls through the
// cascade and is reported via the OnOrderFallback hook.
func (p *Pipeline) safeOrder(d *descriptor, o Orderer) (n int, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			p.callOnOrderFallback(d.name(), r)
		}
	}()
	return o.Order(), true
}

// zeroOrderer builds a zero value of t that satisfies Orderer, if one does.
func zeroOrderer(t reflect.Type) (Orderer, bool) {
	if t.Implements(ordererType) {
		z, ok := reflect.Zero(t).Interface().(Orderer)
		return z, ok
	}
	if t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(ordererType) {
		z, ok := reflect.New(t).Interface().(Orderer)
		return z, ok
	}
	return nil, false
}

// newCall builds the correlation record handed to hooks for one dispatch.
func newCall(kind Kind, reqType reflect.Type) Call {
	return Call{
		ID:      uuid.NewString(),
		Kind:    kind,
		Request: cleanTypeName(reqType),
	}
}

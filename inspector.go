package mediator

import (
	"encoding/json"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// MiddlewareInfo describes one registered middleware for diagnostics.
type MiddlewareInfo struct {
	// Kind is the middleware's dispatch shape.
	Kind Kind

	// Type is the resolved middleware type.
	Type reflect.Type

	// Name is the human-readable type name, stripped of package paths and
	// generic instantiation markers.
	Name string

	// TypeParameters renders the type's generic arguments in source-like
	// form, e.g. "[CreateUser, User]". Empty for non-generic middleware.
	TypeParameters string

	// Constraints renders the declared constraint set, e.g.
	// "where implements Validatable, response User". Empty when
	// unconstrained.
	Constraints string

	// Order is the resolved order value.
	Order int

	// OrderDisplay is the order rendered for humans: the explicit value, or
	// "default" for middleware in the fallback range.
	OrderDisplay string

	// Config is the static configuration payload, or nil.
	Config json.RawMessage
}

// Inspect returns a snapshot of the configured middleware set, both request
// and notification shapes, in resolution order: ascending order value, ties
// by registration sequence.
//
// The returned slice is a defensive copy; mutating it does not affect the
// live descriptor set. Resolving order values may construct instances
// through their factories; a middleware whose factory fails still appears,
// ordered by the remaining cascade steps.
func (p *Pipeline) Inspect() []MiddlewareInfo {
	out := make([]MiddlewareInfo, 0, len(p.descriptors))
	for _, d := range p.descriptors {
		order := p.inspectOrder(d)
		out = append(out, MiddlewareInfo{
			Kind:           d.kind,
			Type:           d.mwType,
			Name:           d.name(),
			TypeParameters: typeParameters(d.mwType),
			Constraints:    renderConstraints(append(append([]Constraint(nil), d.requestConstraints...), d.responseConstraints...)),
			Order:          order,
			OrderDisplay:   orderDisplay(order),
			Config:         append(json.RawMessage(nil), d.config...),
		})
	}
	// Descriptors are in registration order, so a stable sort preserves
	// sequence among order ties.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// inspectOrder resolves a descriptor's order for display, constructing an
// instance when the cascade needs one. Construction failure is not an
// inspection failure: the resolver falls through to the type-level and
// declarative steps.
func (p *Pipeline) inspectOrder(d *descriptor) int {
	if v, ok := p.orderCache.Load(d.seq); ok {
		return v.(int)
	}
	var instance any
	if in, err := d.construct(); err == nil {
		instance = in
	}
	return p.resolveOrder(d, instance)
}

func orderDisplay(order int) string {
	if order >= fallbackSeed {
		return "default"
	}
	return strconv.Itoa(order)
}

// cleanTypeName returns the type's short name: no package path, no generic
// instantiation brackets, a leading * kept for pointer types.
func cleanTypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	name := t.String()
	star := ""
	for strings.HasPrefix(name, "*") {
		star += "*"
		name = name[1:]
	}
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return star + name
}

// typeParameters renders a generic type's instantiation arguments, cleaned
// of package paths, e.g. "[CreateUser, User]".
func typeParameters(t reflect.Type) string {
	if t == nil {
		return ""
	}
	name := t.String()
	open := strings.IndexByte(name, '[')
	if open < 0 || !strings.HasSuffix(name, "]") {
		return ""
	}
	args := splitTypeArgs(name[open+1 : len(name)-1])
	for i, a := range args {
		args[i] = cleanTypeArg(a)
	}
	return "[" + strings.Join(args, ", ") + "]"
}

// splitTypeArgs splits a generic argument list on top-level commas, leaving
// nested instantiations intact.
func splitTypeArgs(s string) []string {
	var args []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	args = append(args, strings.TrimSpace(s[start:]))
	return args
}

// cleanTypeArg strips the package qualifier from a single type argument,
// keeping pointer markers and nested brackets.
func cleanTypeArg(arg string) string {
	star := ""
	for strings.HasPrefix(arg, "*") {
		star += "*"
		arg = arg[1:]
	}
	if i := strings.IndexByte(arg, '['); i >= 0 {
		return star + cleanTypeArg(arg[:i]) + arg[i:]
	}
	if i := strings.LastIndexByte(arg, '.'); i >= 0 {
		arg = arg[i+1:]
	}
	return star + arg
}

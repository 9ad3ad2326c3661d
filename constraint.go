package mediator

import (
	"fmt"
	"reflect"
	"strings"
)

// Constraint determines if a middleware applies to a concrete request or
// notification type. Constraints are declared at registration, never mutated
// afterward, and are cheap to evaluate compared to running the middleware.
//
// A type that fails a constraint is filtered, not failed: the middleware is
// silently skipped for that dispatch call.
type Constraint interface {
	// Satisfied reports whether the concrete type meets the constraint.
	Satisfied(t reflect.Type) bool

	// String renders the constraint in source-like form for diagnostics.
	String() string
}

// Implements returns a Constraint that matches when the concrete type, or a
// pointer to it, implements the interface I.
//
// Instantiating with a non-interface type yields a constraint that never
// matches.
func Implements[I any]() Constraint {
	return implementsConstraint{iface: reflect.TypeFor[I]()}
}

type implementsConstraint struct {
	iface reflect.Type
}

func (c implementsConstraint) Satisfied(t reflect.Type) bool {
	if c.iface.Kind() != reflect.Interface {
		return false
	}
	if t.Implements(c.iface) {
		return true
	}
	// Methods with pointer receivers are only in the pointer's method set.
	return t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(c.iface)
}

func (c implementsConstraint) String() string {
	return "implements " + shortTypeName(c.iface)
}

// AssignableTo returns a Constraint that matches when the concrete type is
// assignable to T. With an interface T this behaves like Implements, except
// pointer-receiver method sets are not widened.
func AssignableTo[T any]() Constraint {
	return assignableConstraint{target: reflect.TypeFor[T]()}
}

type assignableConstraint struct {
	target reflect.Type
}

func (c assignableConstraint) Satisfied(t reflect.Type) bool {
	return t.AssignableTo(c.target)
}

func (c assignableConstraint) String() string {
	return "assignable to " + shortTypeName(c.target)
}

// ResponseType returns a Constraint on the query result type rather than the
// request type. It is checked jointly with the request constraints: both must
// hold for the middleware to apply. Dispatch shapes without a result type
// (command, notification) never satisfy it.
func ResponseType[R any]() Constraint {
	return responseConstraint{target: reflect.TypeFor[R]()}
}

type responseConstraint struct {
	target reflect.Type
}

func (c responseConstraint) Satisfied(t reflect.Type) bool {
	return t != nil && t.AssignableTo(c.target)
}

func (c responseConstraint) String() string {
	return "response " + shortTypeName(c.target)
}

// IsPointer returns a Constraint that matches pointer request types, the
// analog of a "must be a reference type" clause.
func IsPointer() Constraint {
	return kindConstraint{pointer: true}
}

// IsValue returns a Constraint that matches non-pointer request types, the
// analog of a "must be a value type" clause.
func IsValue() Constraint {
	return kindConstraint{pointer: false}
}

type kindConstraint struct {
	pointer bool
}

func (c kindConstraint) Satisfied(t reflect.Type) bool {
	return (t.Kind() == reflect.Pointer) == c.pointer
}

func (c kindConstraint) String() string {
	if c.pointer {
		return "pointer"
	}
	return "value"
}

// And returns a Constraint that matches when all constraints match.
func And(cs ...Constraint) Constraint {
	return andConstraint{cs: cs}
}

type andConstraint struct {
	cs []Constraint
}

func (c andConstraint) Satisfied(t reflect.Type) bool {
	for _, sub := range c.cs {
		if !sub.Satisfied(t) {
			return false
		}
	}
	return true
}

func (c andConstraint) String() string {
	return joinConstraints(c.cs, " && ")
}

// Or returns a Constraint that matches when any constraint matches.
func Or(cs ...Constraint) Constraint {
	return orConstraint{cs: cs}
}

type orConstraint struct {
	cs []Constraint
}

func (c orConstraint) Satisfied(t reflect.Type) bool {
	for _, sub := range c.cs {
		if sub.Satisfied(t) {
			return true
		}
	}
	return false
}

func (c orConstraint) String() string {
	return joinConstraints(c.cs, " || ")
}

func joinConstraints(cs []Constraint, sep string) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// splitConstraints separates request-type constraints from response-type
// constraints, descending into And groups. Or branches stay on the request
// side: a mixed Or cannot be split without changing its meaning.
func splitConstraints(cs []Constraint) (request, response []Constraint) {
	for _, c := range cs {
		switch cc := c.(type) {
		case responseConstraint:
			response = append(response, cc)
		case andConstraint:
			req, resp := splitConstraints(cc.cs)
			if len(req) > 0 {
				request = append(request, And(req...))
			}
			response = append(response, resp...)
		default:
			request = append(request, c)
		}
	}
	return request, response
}

// shortTypeName strips the package path from a reflect type's string form,
// keeping a leading * for pointers.
func shortTypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	name := t.String()
	if strings.HasPrefix(name, "*") {
		return "*" + trimPackage(name[1:])
	}
	return trimPackage(name)
}

func trimPackage(name string) string {
	// Leave instantiated generics alone here; bracket contents are cleaned
	// separately by the inspector.
	if i := strings.IndexByte(name, '['); i >= 0 {
		return trimPackage(name[:i]) + name[i:]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// renderConstraints renders a constraint list for the inspector.
func renderConstraints(cs []Constraint) string {
	if len(cs) == 0 {
		return ""
	}
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return fmt.Sprintf("where %s", strings.Join(parts, ", "))
}

// Package query parses loosely typed filters into a predicate tree, compiles
// the tree to AQL with bound parameters and assembles complete queries.
package query

import (
	"strings"

	"github.com/pay-theory/arangorm/pkg/codec"
)

// Operator is a comparison operator of a filter leaf.
type Operator string

// Supported comparison operators
const (
	OpEq      Operator = "eq"
	OpNeq     Operator = "neq"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpBetween Operator = "between"
	OpInq     Operator = "inq"
	OpNin     Operator = "nin"
	OpLike    Operator = "like"
	OpNlike   Operator = "nlike"
	OpRegexp  Operator = "regexp"
)

// Predicate is a node of a parsed where clause: And, Or, Compare or Near.
type Predicate interface {
	predicate()
}

// And holds children that must all match.
type And struct {
	Children []Predicate
}

// Or holds children of which one must match.
type Or struct {
	Children []Predicate
}

// Compare tests one field. Path[0] is a property name, later elements walk
// into nested values.
type Compare struct {
	Path    []string
	Op      Operator
	Operand Operand
	// IgnoreCase makes a regexp match case-insensitive.
	IgnoreCase bool
}

// Near restricts results to a radius around a point. It selects the
// iteration source instead of adding a filter fragment.
type Near struct {
	Path []string
	Spec NearSpec
}

// NearSpec is a proximity search.
type NearSpec struct {
	Point    codec.GeoPoint
	Distance float64
	Unit     string
}

func (And) predicate()     {}
func (Or) predicate()      {}
func (Compare) predicate() {}
func (Near) predicate()    {}

// Field returns the dotted property path.
func (c Compare) Field() string {
	return strings.Join(c.Path, ".")
}

// FindNear returns the first proximity leaf in depth-first order.
func FindNear(preds []Predicate) (*Near, bool) {
	for _, p := range preds {
		switch n := p.(type) {
		case Near:
			return &n, true
		case And:
			if found, ok := FindNear(n.Children); ok {
				return found, true
			}
		case Or:
			if found, ok := FindNear(n.Children); ok {
				return found, true
			}
		}
	}
	return nil, false
}

// EqualityProperties lists properties constrained by equality or IN at the
// conjunctive top of the tree.
func EqualityProperties(preds []Predicate) []string {
	var out []string
	for _, p := range preds {
		switch n := p.(type) {
		case Compare:
			if len(n.Path) == 1 && (n.Op == OpEq || n.Op == OpInq) {
				out = append(out, n.Path[0])
			}
		case And:
			out = append(out, EqualityProperties(n.Children)...)
		}
	}
	return out
}

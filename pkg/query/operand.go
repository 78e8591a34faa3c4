package query

import (
	"github.com/pay-theory/arangorm/pkg/codec"
)

// OperandKind tags the shape of a filter operand.
type OperandKind int

// Operand kinds
const (
	ScalarOperand OperandKind = iota
	ListOperand
	MappingOperand
)

func (k OperandKind) String() string {
	switch k {
	case ListOperand:
		return "list"
	case MappingOperand:
		return "mapping"
	default:
		return "scalar"
	}
}

// Operand is a filter value whose shape is decided once, when the filter is parsed.
type Operand struct {
	Kind    OperandKind
	Scalar  any
	List    []any
	Mapping map[string]any
}

// Scalar wraps a single value.
func Scalar(v any) Operand {
	return Operand{Kind: ScalarOperand, Scalar: v}
}

// List wraps a list of values.
func List(vs ...any) Operand {
	if vs == nil {
		vs = []any{}
	}
	return Operand{Kind: ListOperand, List: vs}
}

// OperandOf classifies a loosely typed value. Typed slices and string-keyed
// maps are normalised; GeoPoints and times stay scalar.
func OperandOf(v any) Operand {
	switch n := codec.Normalize(v).(type) {
	case []any:
		return Operand{Kind: ListOperand, List: n}
	case map[string]any:
		return Operand{Kind: MappingOperand, Mapping: n}
	default:
		return Operand{Kind: ScalarOperand, Scalar: n}
	}
}

// Value returns the operand as a bind parameter value.
func (o Operand) Value() any {
	switch o.Kind {
	case ListOperand:
		return o.List
	case MappingOperand:
		return o.Mapping
	default:
		return o.Scalar
	}
}

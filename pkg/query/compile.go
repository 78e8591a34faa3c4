package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/pay-theory/arangorm/internal/expr"
	"github.com/pay-theory/arangorm/pkg/codec"
	"github.com/pay-theory/arangorm/pkg/errors"
	"github.com/pay-theory/arangorm/pkg/model"
	"github.com/pay-theory/arangorm/pkg/validation"
)

// Fragments is the result of compiling a predicate list.
type Fragments struct {
	List   []string
	Params map[string]any
	// Count is the last parameter number used; compiling again from Count
	// continues the sequence.
	Count int
}

// Compile renders predicates as AQL filter fragments. Fields are mapped to
// storage columns and prefixed with alias; every operand becomes a bind
// parameter named p<N>, numbered from start+1. Near leaves produce nothing.
func Compile(def *model.Definition, alias string, preds []Predicate, start int) (Fragments, error) {
	c := &compiler{
		def:    def,
		alias:  alias,
		params: expr.NewParams(expr.FilterPrefix, start),
	}

	list, err := c.terms(preds)
	if err != nil {
		return Fragments{}, err
	}

	return Fragments{
		List:   list,
		Params: c.params.Values(),
		Count:  c.params.Count(),
	}, nil
}

type compiler struct {
	def    *model.Definition
	alias  string
	params *expr.Params
}

func (c *compiler) terms(preds []Predicate) ([]string, error) {
	out := make([]string, 0, len(preds))
	for _, p := range preds {
		frag, err := c.term(p)
		if err != nil {
			return nil, err
		}
		if frag != "" {
			out = append(out, frag)
		}
	}
	return out, nil
}

func (c *compiler) term(p Predicate) (string, error) {
	switch n := p.(type) {
	case And:
		return c.group(n.Children, " && ")
	case Or:
		return c.group(n.Children, " || ")
	case Near:
		return "", nil
	case Compare:
		return c.compare(n)
	default:
		return "", fmt.Errorf("%w: unknown predicate %T", errors.ErrInvalidFilter, p)
	}
}

func (c *compiler) group(children []Predicate, sep string) (string, error) {
	parts, err := c.terms(children)
	if err != nil {
		return "", err
	}
	if len(parts) == 0 {
		return "", nil
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (c *compiler) compare(n Compare) (string, error) {
	field, err := c.field(n.Path)
	if err != nil {
		return "", err
	}

	switch n.Op {
	case OpEq:
		return field + " == " + c.bind(n), nil
	case OpNeq:
		return field + " != " + c.bind(n), nil
	case OpGt:
		return field + " > " + c.bind(n), nil
	case OpGte:
		return field + " >= " + c.bind(n), nil
	case OpLt:
		return field + " < " + c.bind(n), nil
	case OpLte:
		return field + " <= " + c.bind(n), nil
	case OpBetween:
		if n.Operand.Kind != ListOperand || len(n.Operand.List) != 2 {
			return "", fmt.Errorf("%w: between on %s needs two bounds", errors.ErrInvalidOperand, n.Field())
		}
		lo := c.params.Add(c.value(n, n.Operand.List[0]))
		hi := c.params.Add(c.value(n, n.Operand.List[1]))
		return "(" + field + " >= " + lo + " && " + field + " <= " + hi + ")", nil
	case OpInq:
		return field + " IN " + c.bind(n), nil
	case OpNin:
		return field + " NOT IN " + c.bind(n), nil
	case OpLike:
		return field + " LIKE " + c.bind(n), nil
	case OpNlike:
		return "NOT LIKE(" + field + ", " + c.bind(n) + ")", nil
	case OpRegexp:
		if n.IgnoreCase {
			return "REGEX_TEST(" + field + ", " + c.bind(n) + ", true)", nil
		}
		return field + " =~ " + c.bind(n), nil
	default:
		return "", fmt.Errorf("%w: %s", errors.ErrUnsupportedOperator, n.Op)
	}
}

// field resolves a property path to alias.column[.nested].
func (c *compiler) field(path []string) (string, error) {
	if len(path) == 0 {
		return "", fmt.Errorf("%w: comparison without a field", errors.ErrInvalidFilter)
	}
	parts := make([]string, len(path))
	copy(parts, path)
	parts[0] = c.def.ToStorageName(path[0])

	column := strings.Join(parts, ".")
	if err := validation.ValidateFieldName(column); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidFilter, err)
	}
	return c.alias + "." + column, nil
}

// bind adds the operand as a parameter.
func (c *compiler) bind(n Compare) string {
	return c.params.Add(c.value(n, n.Operand.Value()))
}

// value stores operands of Date properties in their epoch form.
func (c *compiler) value(n Compare, v any) any {
	if isDateProperty(c.def, n.Path) {
		return epochValue(v)
	}
	return v
}

func isDateProperty(def *model.Definition, path []string) bool {
	if len(path) != 1 {
		return false
	}
	prop := def.Property(path[0])
	return prop != nil && prop.Type == model.TypeDate
}

// epochValue converts times and date strings to epoch milliseconds, element
// by element for lists. Other values pass through.
func epochValue(v any) any {
	switch t := v.(type) {
	case time.Time, *time.Time, string:
		parsed, err := codec.ToTime(t)
		if err != nil {
			return v
		}
		return parsed.UnixMilli()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = epochValue(item)
		}
		return out
	}
	return v
}

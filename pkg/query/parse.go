package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pay-theory/arangorm/pkg/codec"
	"github.com/pay-theory/arangorm/pkg/errors"
)

// keys consumed by a sibling near operator
var nearSiblings = map[string]struct{}{
	"maxDistance": {},
	"minDistance": {},
	"unit":        {},
}

// ParseWhere turns a loosely typed where clause into predicates that are
// implicitly joined with &&. Keys are visited in sorted order so the same
// filter always produces the same query text.
func ParseWhere(where map[string]any) ([]Predicate, error) {
	return parseScope(nil, where)
}

func parseScope(path []string, scope map[string]any) ([]Predicate, error) {
	keys := make([]string, 0, len(scope))
	for k := range scope {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	_, hasNear := scope["near"]

	var out []Predicate
	for _, key := range keys {
		value := scope[key]

		switch key {
		case "and", "or":
			children, err := parseGroup(path, key, value)
			if err != nil {
				return nil, err
			}
			if len(children) == 0 {
				continue
			}
			if key == "and" {
				out = append(out, And{Children: children})
			} else {
				out = append(out, Or{Children: children})
			}

		case string(OpGt), string(OpGte), string(OpLt), string(OpLte):
			if err := requirePath(path, key); err != nil {
				return nil, err
			}
			n, err := rangeBound(value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s on %s: %v", errors.ErrInvalidOperand, key, strings.Join(path, "."), err)
			}
			out = append(out, Compare{Path: path, Op: Operator(key), Operand: Scalar(n)})

		case string(OpBetween):
			if err := requirePath(path, key); err != nil {
				return nil, err
			}
			op := OperandOf(value)
			if op.Kind != ListOperand || len(op.List) != 2 {
				return nil, fmt.Errorf("%w: between on %s needs two bounds", errors.ErrInvalidOperand, strings.Join(path, "."))
			}
			lo, err := rangeBound(op.List[0])
			if err != nil {
				return nil, fmt.Errorf("%w: between lower bound: %v", errors.ErrInvalidOperand, err)
			}
			hi, err := rangeBound(op.List[1])
			if err != nil {
				return nil, fmt.Errorf("%w: between upper bound: %v", errors.ErrInvalidOperand, err)
			}
			out = append(out, Compare{Path: path, Op: OpBetween, Operand: List(lo, hi)})

		case string(OpInq), string(OpNin):
			if err := requirePath(path, key); err != nil {
				return nil, err
			}
			op := OperandOf(value)
			if op.Kind != ListOperand {
				return nil, fmt.Errorf("%w: %s on %s needs a list", errors.ErrInvalidOperand, key, strings.Join(path, "."))
			}
			out = append(out, Compare{Path: path, Op: Operator(key), Operand: op})

		case string(OpNeq), string(OpLike), string(OpNlike):
			if err := requirePath(path, key); err != nil {
				return nil, err
			}
			out = append(out, Compare{Path: path, Op: Operator(key), Operand: OperandOf(value)})

		case string(OpRegexp):
			if err := requirePath(path, key); err != nil {
				return nil, err
			}
			pattern, ignoreCase, err := regexpSource(value)
			if err != nil {
				return nil, err
			}
			out = append(out, Compare{Path: path, Op: OpRegexp, Operand: Scalar(pattern), IgnoreCase: ignoreCase})

		case "ilike", "nilike":
			return nil, fmt.Errorf("%w: %s", errors.ErrUnsupportedOperator, strings.ToUpper(key))

		case "near":
			if err := requirePath(path, key); err != nil {
				return nil, err
			}
			spec, err := parseNear(value, scope)
			if err != nil {
				return nil, err
			}
			out = append(out, Near{Path: path, Spec: spec})

		default:
			if _, sibling := nearSiblings[key]; sibling && hasNear {
				continue
			}

			field := extend(path, key)
			op := OperandOf(value)
			if op.Kind == MappingOperand {
				sub, err := parseScope(field, op.Mapping)
				if err != nil {
					return nil, err
				}
				out = append(out, sub...)
				continue
			}
			out = append(out, Compare{Path: field, Op: OpEq, Operand: op})
		}
	}

	return out, nil
}

func parseGroup(path []string, key string, value any) ([]Predicate, error) {
	op := OperandOf(value)
	if op.Kind != ListOperand {
		return nil, fmt.Errorf("%w: %s expects a list of conditions", errors.ErrInvalidFilter, key)
	}

	children := make([]Predicate, 0, len(op.List))
	for i, item := range op.List {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] is not a condition", errors.ErrInvalidFilter, key, i)
		}
		terms, err := parseScope(path, m)
		if err != nil {
			return nil, err
		}
		switch len(terms) {
		case 0:
		case 1:
			children = append(children, terms[0])
		default:
			children = append(children, And{Children: terms})
		}
	}
	return children, nil
}

// rangeBound reads the operand of an ordering comparison: a number, or a
// date string kept as a time until the compiler knows the property type.
func rangeBound(v any) (any, error) {
	v = codec.Normalize(v)
	n, err := codec.ToFloat(v)
	if err == nil {
		return n, nil
	}
	if s, ok := v.(string); ok {
		if t, terr := codec.ToTime(s); terr == nil {
			return t, nil
		}
	}
	return nil, err
}

func requirePath(path []string, op string) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: operator %s needs a field", errors.ErrInvalidFilter, op)
	}
	return nil
}

func extend(path []string, key string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = key
	return out
}

// regexpSource strips /pattern/flags delimiters. The i flag makes the match
// case-insensitive and g is ignored; any other flag is rejected.
func regexpSource(v any) (string, bool, error) {
	switch r := v.(type) {
	case *regexp.Regexp:
		return r.String(), false, nil
	case string:
		if !strings.HasPrefix(r, "/") {
			return r, false, nil
		}
		end := strings.LastIndex(r, "/")
		if end == 0 {
			return r, false, nil
		}
		ignoreCase := false
		for _, flag := range r[end+1:] {
			switch flag {
			case 'i':
				ignoreCase = true
			case 'g':
			default:
				return "", false, fmt.Errorf("%w: unsupported regexp flag %q", errors.ErrInvalidOperand, flag)
			}
		}
		return r[1:end], ignoreCase, nil
	default:
		return "", false, fmt.Errorf("%w: regexp expects a pattern, got %T", errors.ErrInvalidOperand, v)
	}
}

func parseNear(value any, scope map[string]any) (NearSpec, error) {
	var spec NearSpec
	var distance, unit any

	point := value
	if m, ok := codec.Normalize(value).(map[string]any); ok {
		if loc, has := m["location"]; has {
			point = loc
			distance = firstOf(m, "distance", "maxDistance")
			unit = m["unit"]
		}
	}

	p, err := codec.ParseGeoPoint(codec.Normalize(point))
	if err != nil {
		return spec, fmt.Errorf("%w: near: %v", errors.ErrInvalidOperand, err)
	}
	spec.Point = p

	if distance == nil {
		distance = scope["maxDistance"]
	}
	if unit == nil {
		unit = scope["unit"]
	}

	if distance == nil {
		return spec, fmt.Errorf("%w: near needs a maximum distance", errors.ErrInvalidOperand)
	}
	d, err := codec.ToFloat(distance)
	if err != nil || d <= 0 {
		return spec, fmt.Errorf("%w: near distance must be a positive number", errors.ErrInvalidOperand)
	}
	spec.Distance = d

	if unit != nil {
		s, ok := unit.(string)
		if !ok {
			return spec, fmt.Errorf("%w: near unit must be a string", errors.ErrInvalidOperand)
		}
		spec.Unit = s
	}
	if spec.Unit == "" {
		spec.Unit = DefaultUnit
	}

	return spec, nil
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

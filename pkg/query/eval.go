package query

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/pay-theory/arangorm/pkg/codec"
	"github.com/pay-theory/arangorm/pkg/errors"
	"github.com/pay-theory/arangorm/pkg/model"
)

// Evaluate reports whether a storage document satisfies predicates joined
// with &&. It follows the compiled AQL semantics; near leaves always match
// since proximity is decided by the iteration source.
func Evaluate(def *model.Definition, preds []Predicate, doc map[string]any) (bool, error) {
	for _, p := range preds {
		ok, err := evaluate(def, p, doc)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func evaluate(def *model.Definition, p Predicate, doc map[string]any) (bool, error) {
	switch n := p.(type) {
	case And:
		return Evaluate(def, n.Children, doc)
	case Or:
		for _, child := range n.Children {
			ok, err := evaluate(def, child, doc)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return len(n.Children) == 0, nil
	case Near:
		return true, nil
	case Compare:
		return evaluateCompare(def, n, lookup(def, n.Path, doc))
	default:
		return false, fmt.Errorf("%w: unknown predicate %T", errors.ErrInvalidFilter, p)
	}
}

func lookup(def *model.Definition, path []string, doc map[string]any) any {
	var cur any = doc
	for i, part := range path {
		if i == 0 {
			part = def.ToStorageName(part)
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func evaluateCompare(def *model.Definition, n Compare, actual any) (bool, error) {
	operand := n.Operand.Value()
	dates := isDateProperty(def, n.Path)
	if dates {
		operand = epochValue(operand)
	}

	switch n.Op {
	case OpEq:
		return equal(actual, operand), nil
	case OpNeq:
		return !equal(actual, operand), nil
	case OpGt, OpGte, OpLt, OpLte:
		a, errA := codec.ToFloat(actual)
		b, errB := codec.ToFloat(operand)
		if errA != nil || errB != nil {
			return false, nil
		}
		switch n.Op {
		case OpGt:
			return a > b, nil
		case OpGte:
			return a >= b, nil
		case OpLt:
			return a < b, nil
		default:
			return a <= b, nil
		}
	case OpBetween:
		a, err := codec.ToFloat(actual)
		if err != nil || len(n.Operand.List) != 2 {
			return false, nil
		}
		lo, hi := n.Operand.List[0], n.Operand.List[1]
		if dates {
			lo, hi = epochValue(lo), epochValue(hi)
		}
		loN, errLo := codec.ToFloat(lo)
		hiN, errHi := codec.ToFloat(hi)
		if errLo != nil || errHi != nil {
			return false, nil
		}
		return a >= loN && a <= hiN, nil
	case OpInq, OpNin:
		found := false
		list, _ := operand.([]any)
		for _, item := range list {
			if equal(actual, item) {
				found = true
				break
			}
		}
		return found == (n.Op == OpInq), nil
	case OpLike, OpNlike:
		s, ok := actual.(string)
		pattern, pok := operand.(string)
		if !ok || !pok {
			return n.Op == OpNlike, nil
		}
		re, err := likePattern(pattern)
		if err != nil {
			return false, err
		}
		return re.MatchString(s) == (n.Op == OpLike), nil
	case OpRegexp:
		s, ok := actual.(string)
		pattern, _ := operand.(string)
		if !ok {
			return false, nil
		}
		if n.IgnoreCase {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("%w: regexp: %v", errors.ErrInvalidOperand, err)
		}
		return re.MatchString(s), nil
	default:
		return false, fmt.Errorf("%w: %s", errors.ErrUnsupportedOperator, n.Op)
	}
}

func equal(a, b any) bool {
	if fa, err := codec.ToFloat(a); err == nil && isNumber(a) {
		if fb, err := codec.ToFloat(b); err == nil && isNumber(b) {
			return fa == fb
		}
	}
	return reflect.DeepEqual(codec.Normalize(a), codec.Normalize(b))
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

// likePattern translates an AQL LIKE pattern (% and _ wildcards, backslash
// escapes) to an anchored regular expression.
func likePattern(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/pay-theory/arangorm/pkg/errors"
)

// Order is one sort key.
type Order struct {
	Property  string
	Direction string
}

// Filter is a database-agnostic read request.
type Filter struct {
	// Where is nil when absent; an empty non-nil map matches everything.
	Where map[string]any
	Order []Order
	Skip  int
	// Limit <= 0 means no pagination.
	Limit   int
	Fields  []string
	Collect []string
}

// ParseOrder reads "property [ASC|DESC]" strings.
func ParseOrder(specs ...string) []Order {
	out := make([]Order, 0, len(specs))
	for _, s := range specs {
		parts := strings.Fields(s)
		if len(parts) == 0 {
			continue
		}
		o := Order{Property: parts[0]}
		if len(parts) > 1 {
			o.Direction = parts[1]
		}
		out = append(out, o)
	}
	return out
}

type rawFilter struct {
	Where   map[string]any `mapstructure:"where"`
	Order   any            `mapstructure:"order"`
	Limit   int            `mapstructure:"limit"`
	Skip    int            `mapstructure:"skip"`
	Offset  int            `mapstructure:"offset"`
	Fields  any            `mapstructure:"fields"`
	Collect any            `mapstructure:"collect"`
}

// ParseFilter decodes a JSON-shaped filter: where, order (string or list),
// limit, skip or offset, fields (list or {name: true} map) and collect
// (string or list).
func ParseFilter(raw map[string]any) (*Filter, error) {
	var rf rawFilter
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &rf,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidFilter, err)
	}

	f := &Filter{
		Where: rf.Where,
		Limit: rf.Limit,
		Skip:  rf.Skip,
	}
	if f.Skip == 0 {
		f.Skip = rf.Offset
	}

	order, err := stringList(rf.Order)
	if err != nil {
		return nil, fmt.Errorf("%w: order: %v", errors.ErrInvalidFilter, err)
	}
	f.Order = ParseOrder(order...)

	if m, ok := rf.Fields.(map[string]any); ok {
		for name, include := range m {
			if b, ok := include.(bool); ok && b {
				f.Fields = append(f.Fields, name)
			}
		}
		sort.Strings(f.Fields)
	} else if f.Fields, err = stringList(rf.Fields); err != nil {
		return nil, fmt.Errorf("%w: fields: %v", errors.ErrInvalidFilter, err)
	}

	if f.Collect, err = stringList(rf.Collect); err != nil {
		return nil, fmt.Errorf("%w: collect: %v", errors.ErrInvalidFilter, err)
	}

	return f, nil
}

func stringList(v any) ([]string, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{s}, nil
	case []string:
		return s, nil
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string, got %T", item)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

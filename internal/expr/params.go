// Package expr allocates named AQL bind parameters.
package expr

import (
	"fmt"
)

// Bind parameter namespaces.
const (
	FilterPrefix = "p"
	UpdatePrefix = "u"
	NearPrefix   = "near_"
)

// Params hands out sequential bind parameter names within one namespace and
// records their values. Counters only increase.
type Params struct {
	prefix string
	count  int
	values map[string]any
}

// NewParams creates an allocator whose first name is prefix+(start+1).
func NewParams(prefix string, start int) *Params {
	return &Params{
		prefix: prefix,
		count:  start,
		values: make(map[string]any),
	}
}

// Add binds value to the next name and returns its placeholder ("@p3").
func (p *Params) Add(value any) string {
	p.count++
	name := fmt.Sprintf("%s%d", p.prefix, p.count)
	p.values[name] = value
	return "@" + name
}

// Named binds value under prefix+suffix and returns its placeholder.
func (p *Params) Named(suffix string, value any) string {
	name := p.prefix + suffix
	p.values[name] = value
	return "@" + name
}

// Count returns the last number handed out.
func (p *Params) Count() int {
	return p.count
}

// Values returns the bound values keyed by parameter name.
func (p *Params) Values() map[string]any {
	return p.values
}

// Merge combines parameter tables. Later tables win on name clashes, which
// cannot happen across distinct namespaces.
func Merge(tables ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, t := range tables {
		for k, v := range t {
			out[k] = v
		}
	}
	return out
}

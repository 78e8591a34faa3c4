// Package model provides model registration and column mapping for arangorm
package model

import (
	"fmt"
	"sync"

	"github.com/pay-theory/arangorm/pkg/errors"
	"github.com/pay-theory/arangorm/pkg/naming"
	"github.com/pay-theory/arangorm/pkg/validation"
)

// Registry manages defined models
type Registry struct {
	mu     sync.RWMutex
	models map[string]*Definition
}

// NewRegistry creates a new model registry
func NewRegistry() *Registry {
	return &Registry{
		models: make(map[string]*Definition),
	}
}

// Define validates a definition, applies reserved-column defaulting and
// registers it under its name. Redefining a name replaces the previous model.
func (r *Registry) Define(def *Definition) error {
	if def == nil || def.Name == "" {
		return fmt.Errorf("%w: model name is required", errors.ErrInvalidModel)
	}

	if err := applyReservedDefaults(def); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[def.Name] = def

	return nil
}

// DefineProperty adds a property to an already defined model.
func (r *Registry) DefineProperty(model, name string, prop *Property) error {
	if naming.IsReserved(name) {
		return fmt.Errorf("%w: %s", errors.ErrReservedProperty, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.models[model]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrModelNotFound, model)
	}

	next := current.Clone()
	cp := *prop
	cp.Name = name
	if cp.Column == "" {
		cp.Column = name
	}
	if err := validation.ValidateFieldName(cp.Column); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidModel, err)
	}
	if owner, taken := next.Columns[cp.Column]; taken && owner != name {
		return fmt.Errorf("%w: %s is already bound to %s", errors.ErrDuplicateColumn, cp.Column, owner)
	}
	if old, exists := next.Properties[name]; exists && old.Column != cp.Column {
		delete(next.Columns, old.Column)
	}

	next.AddProperty(&cp)
	next.Columns[cp.Column] = name
	if cp.ID && !contains(next.IDs, name) {
		next.IDs = append(next.IDs, name)
	}

	// copy-on-write so readers holding the old definition are unaffected
	r.models[model] = next
	return nil
}

// Get retrieves a defined model
func (r *Registry) Get(model string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.models[model]
	if !exists {
		return nil, fmt.Errorf("%w: %s", errors.ErrModelNotFound, model)
	}
	return def, nil
}

// Names lists the defined model names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.models))
	for name := range r.models {
		out = append(out, name)
	}
	return out
}

func applyReservedDefaults(def *Definition) error {
	names := def.PropertyNames()
	for _, name := range names {
		if naming.IsReserved(name) {
			return fmt.Errorf("%w: %s", errors.ErrReservedProperty, name)
		}
	}

	if err := validation.ValidateCollectionName(def.Collection()); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidModel, err)
	}

	switch def.Settings.Kind {
	case "":
		def.Settings.Kind = KindDocument
	case KindDocument, KindEdge:
	default:
		return fmt.Errorf("%w: unknown collection type %q", errors.ErrInvalidModel, def.Settings.Kind)
	}

	def.Columns = make(map[string]string, len(names)+3)
	def.IDs = nil
	for _, name := range names {
		p := def.Properties[name]
		p.Name = name
		if p.Column == "" {
			p.Column = name
		}
		if err := validation.ValidateFieldName(p.Column); err != nil {
			return fmt.Errorf("%w: %v", errors.ErrInvalidModel, err)
		}
		if owner, taken := def.Columns[p.Column]; taken {
			return fmt.Errorf("%w: %s is bound to both %s and %s", errors.ErrDuplicateColumn, p.Column, owner, name)
		}
		def.Columns[p.Column] = name
		if p.ID {
			def.IDs = append(def.IDs, name)
		}
	}

	var keyDefaultFn string
	if p, ok := def.Properties[naming.KeyProperty]; ok {
		keyDefaultFn = p.DefaultFn
	}
	key := bindReserved(def, naming.KeyColumn, naming.KeyProperty)
	key.ID = true
	if key.DefaultFn == "" {
		key.DefaultFn = keyDefaultFn
	}
	if len(def.IDs) == 0 {
		def.IDs = append(def.IDs, key.Name)
	}

	for _, col := range []string{naming.IDColumn, naming.RevColumn} {
		if name, ok := def.Columns[col]; ok {
			def.Properties[name].Type = TypeString
		}
	}

	if def.IsEdge() {
		from := bindReserved(def, naming.FromColumn, naming.FromProperty)
		to := bindReserved(def, naming.ToColumn, naming.ToProperty)
		def.Indexes = append(def.Indexes, Index{
			Fields:      []string{from.Name, to.Name},
			Type:        "edge",
			Deduplicate: true,
			DoNotCreate: true,
		})
	}

	return nil
}

// bindReserved makes sure a property targets column, injecting fallback when
// nothing does. A fallback property that was declared with its own column is
// rebound.
func bindReserved(def *Definition, column, fallback string) *Property {
	if name, ok := def.Columns[column]; ok {
		p := def.Properties[name]
		p.Type = TypeString
		return p
	}

	p, exists := def.Properties[fallback]
	if exists {
		if def.Columns[p.Column] == fallback {
			delete(def.Columns, p.Column)
		}
		p.Column = column
		p.Type = TypeString
	} else {
		p = &Property{Name: fallback, Type: TypeString, Column: column}
		def.AddProperty(p)
	}
	def.Columns[column] = fallback
	return p
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

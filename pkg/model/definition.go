package model

import (
	"github.com/pay-theory/arangorm/pkg/naming"
)

// Record is a property-keyed application record.
type Record = map[string]any

// Type is the declared type of a property.
type Type string

// Supported property types
const (
	TypeAny      Type = ""
	TypeString   Type = "String"
	TypeNumber   Type = "Number"
	TypeBoolean  Type = "Boolean"
	TypeDate     Type = "Date"
	TypeGeoPoint Type = "GeoPoint"
	TypeArray    Type = "Array"
	TypeObject   Type = "Object"
	TypeBuffer   Type = "Buffer"
)

// Kind selects the collection type backing a model.
type Kind string

// Collection kinds
const (
	KindDocument Kind = "document"
	KindEdge     Kind = "edge"
)

// Property describes one model property.
type Property struct {
	Name      string `yaml:"name" mapstructure:"name"`
	Type      Type   `yaml:"type" mapstructure:"type"`
	Column    string `yaml:"column" mapstructure:"column"`
	ID        bool   `yaml:"id" mapstructure:"id"`
	DefaultFn string `yaml:"defaultFn" mapstructure:"defaultFn"`
	Default   any    `yaml:"default" mapstructure:"default"`
	Required  bool   `yaml:"required" mapstructure:"required"`
	Encrypted bool   `yaml:"encrypted" mapstructure:"encrypted"`
}

// Settings holds the per-model storage settings.
type Settings struct {
	Collection  string `yaml:"collection" mapstructure:"collection"`
	Kind        Kind   `yaml:"type" mapstructure:"type"`
	Unique      bool   `yaml:"unique" mapstructure:"unique"`
	ForceID     bool   `yaml:"forceId" mapstructure:"forceId"`
	WaitForSync bool   `yaml:"waitForSync" mapstructure:"waitForSync"`
	ReturnNew   bool   `yaml:"returnNew" mapstructure:"returnNew"`
	Silent      bool   `yaml:"silent" mapstructure:"silent"`
	Rev         string `yaml:"rev" mapstructure:"rev"`
	Policy      string `yaml:"policy" mapstructure:"policy"`
}

// Index describes a declared collection index.
type Index struct {
	Fields      []string `yaml:"fields" mapstructure:"fields"`
	Type        string   `yaml:"type" mapstructure:"type"`
	Unique      bool     `yaml:"unique" mapstructure:"unique"`
	Sparse      bool     `yaml:"sparse" mapstructure:"sparse"`
	Deduplicate bool     `yaml:"deduplicate" mapstructure:"deduplicate"`
	DoNotCreate bool     `yaml:"doNotCreate" mapstructure:"doNotCreate"`
}

// Definition is a registered model: its properties, the inverse column index
// and the identifier list.
type Definition struct {
	Name       string
	Properties map[string]*Property
	Columns    map[string]string
	IDs        []string
	Indexes    []Index
	Settings   Settings

	order []string
}

// NewDefinition creates a definition keeping the declaration order of props.
func NewDefinition(name string, settings Settings, props ...*Property) *Definition {
	d := &Definition{
		Name:       name,
		Settings:   settings,
		Properties: make(map[string]*Property, len(props)),
	}
	for _, p := range props {
		d.AddProperty(p)
	}
	return d
}

// AddProperty adds or replaces a property by name.
func (d *Definition) AddProperty(p *Property) {
	if d.Properties == nil {
		d.Properties = make(map[string]*Property)
	}
	if _, exists := d.Properties[p.Name]; !exists {
		d.order = append(d.order, p.Name)
	}
	d.Properties[p.Name] = p
}

// PropertyNames returns property names in declaration order.
func (d *Definition) PropertyNames() []string {
	out := make([]string, 0, len(d.Properties))
	seen := make(map[string]struct{}, len(d.order))
	for _, name := range d.order {
		if _, ok := d.Properties[name]; ok {
			out = append(out, name)
			seen[name] = struct{}{}
		}
	}
	// properties assigned directly to the map
	for name := range d.Properties {
		if _, ok := seen[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// Property returns the named property or nil.
func (d *Definition) Property(name string) *Property {
	return d.Properties[name]
}

// Collection returns the backing collection name.
func (d *Definition) Collection() string {
	if d.Settings.Collection != "" {
		return d.Settings.Collection
	}
	return d.Name
}

// Alias returns the AQL iteration variable for the model's collection.
func (d *Definition) Alias() string {
	return naming.Alias(d.Collection())
}

// IsEdge reports whether the model is backed by an edge collection.
func (d *Definition) IsEdge() bool {
	return d.Settings.Kind == KindEdge
}

// ToStorageName maps a property name to its storage column. Unknown names pass through.
func (d *Definition) ToStorageName(property string) string {
	if p, ok := d.Properties[property]; ok && p.Column != "" {
		return p.Column
	}
	return property
}

// ToPropertyName maps a storage column back to its property.
func (d *Definition) ToPropertyName(column string) (string, bool) {
	name, ok := d.Columns[column]
	return name, ok
}

// KeyProperty returns the property bound to _key.
func (d *Definition) KeyProperty() string {
	return d.Columns[naming.KeyColumn]
}

// HandleProperty returns the property bound to _id, or "id" when unmapped.
func (d *Definition) HandleProperty() string {
	if name, ok := d.Columns[naming.IDColumn]; ok {
		return name
	}
	return naming.IDProperty
}

// FromProperty returns the property bound to _from.
func (d *Definition) FromProperty() string {
	return d.Columns[naming.FromColumn]
}

// ToProperty returns the property bound to _to.
func (d *Definition) ToProperty() string {
	return d.Columns[naming.ToColumn]
}

// Default returns the declared default for a property, or nil.
func (d *Definition) Default(property string) any {
	if p, ok := d.Properties[property]; ok {
		return p.Default
	}
	return nil
}

// HasEncrypted reports whether any property is marked encrypted.
func (d *Definition) HasEncrypted() bool {
	for _, p := range d.Properties {
		if p.Encrypted {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the definition.
func (d *Definition) Clone() *Definition {
	c := &Definition{
		Name:       d.Name,
		Settings:   d.Settings,
		Properties: make(map[string]*Property, len(d.Properties)),
		Columns:    make(map[string]string, len(d.Columns)),
		IDs:        append([]string(nil), d.IDs...),
		order:      append([]string(nil), d.order...),
	}
	for name, p := range d.Properties {
		cp := *p
		c.Properties[name] = &cp
	}
	for col, name := range d.Columns {
		c.Columns[col] = name
	}
	for _, idx := range d.Indexes {
		idx.Fields = append([]string(nil), idx.Fields...)
		c.Indexes = append(c.Indexes, idx)
	}
	return c
}

package model

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/pay-theory/arangorm/pkg/errors"
)

type rawProperty struct {
	Type      any    `mapstructure:"type"`
	ID        bool   `mapstructure:"id"`
	DefaultFn string `mapstructure:"defaultFn"`
	Default   any    `mapstructure:"default"`
	Required  bool   `mapstructure:"required"`
	Encrypted bool   `mapstructure:"encrypted"`
	ArangoDB  struct {
		Column string `mapstructure:"column"`
	} `mapstructure:"arangodb"`
}

type rawSettings struct {
	ArangoDB Settings `mapstructure:"arangodb"`
	Indexes  []Index  `mapstructure:"indexes"`
}

type namedValue struct {
	name  string
	value any
}

// FromMap builds a definition from a loosely typed schema: property values are
// either a type name ("string", "date", ...) or a map with type, id, defaultFn,
// default, required, encrypted and arangodb.column. Settings carry an
// "arangodb" block and optional "indexes". Properties are declared in name order.
func FromMap(name string, properties map[string]any, settings map[string]any) (*Definition, error) {
	names := make([]string, 0, len(properties))
	for n := range properties {
		names = append(names, n)
	}
	sort.Strings(names)

	ordered := make([]namedValue, 0, len(names))
	for _, n := range names {
		ordered = append(ordered, namedValue{name: n, value: properties[n]})
	}
	return build(name, ordered, settings)
}

type yamlModel struct {
	Name       string         `yaml:"name"`
	Properties yaml.Node      `yaml:"properties"`
	Settings   map[string]any `yaml:"settings"`
}

// LoadDefinitions reads model definitions from a YAML document of the form
//
//	models:
//	  - name: Employee
//	    properties:
//	      name: string
//	      code: {type: string, arangodb: {column: _key}}
//	    settings:
//	      arangodb: {collection: employees}
//
// Property declaration order is preserved.
func LoadDefinitions(r io.Reader) ([]*Definition, error) {
	var doc struct {
		Models []yamlModel `yaml:"models"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidModel, err)
	}

	defs := make([]*Definition, 0, len(doc.Models))
	for _, m := range doc.Models {
		props, err := orderedProperties(&m.Properties)
		if err != nil {
			return nil, fmt.Errorf("%w: model %s: %v", errors.ErrInvalidModel, m.Name, err)
		}
		def, err := build(m.Name, props, m.Settings)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func orderedProperties(node *yaml.Node) ([]namedValue, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("properties must be a mapping")
	}

	out := make([]namedValue, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var value any
		if err := node.Content[i+1].Decode(&value); err != nil {
			return nil, err
		}
		out = append(out, namedValue{name: node.Content[i].Value, value: value})
	}
	return out, nil
}

func build(name string, props []namedValue, settings map[string]any) (*Definition, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: model name is required", errors.ErrInvalidModel)
	}

	var rs rawSettings
	if err := weakDecode(settings, &rs); err != nil {
		return nil, fmt.Errorf("%w: model %s settings: %v", errors.ErrInvalidModel, name, err)
	}

	def := NewDefinition(name, rs.ArangoDB)
	def.Indexes = rs.Indexes

	for _, nv := range props {
		p, err := propertyFromValue(nv.name, nv.value)
		if err != nil {
			return nil, fmt.Errorf("%w: model %s property %s: %v", errors.ErrInvalidModel, name, nv.name, err)
		}
		def.AddProperty(p)
	}
	return def, nil
}

func propertyFromValue(name string, value any) (*Property, error) {
	switch v := value.(type) {
	case nil:
		return &Property{Name: name}, nil
	case string:
		return &Property{Name: name, Type: ParseType(v)}, nil
	case []any:
		return &Property{Name: name, Type: TypeArray}, nil
	}

	var rp rawProperty
	if err := weakDecode(value, &rp); err != nil {
		return nil, err
	}

	p := &Property{
		Name:      name,
		Column:    rp.ArangoDB.Column,
		ID:        rp.ID,
		DefaultFn: rp.DefaultFn,
		Default:   rp.Default,
		Required:  rp.Required,
		Encrypted: rp.Encrypted,
	}
	switch t := rp.Type.(type) {
	case string:
		p.Type = ParseType(t)
	case []any:
		p.Type = TypeArray
	}
	return p, nil
}

func weakDecode(input, out any) error {
	if input == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// ParseType normalises a loosely written type name.
func ParseType(s string) Type {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "text":
		return TypeString
	case "number", "integer", "float":
		return TypeNumber
	case "boolean", "bool":
		return TypeBoolean
	case "date", "datetime":
		return TypeDate
	case "geopoint":
		return TypeGeoPoint
	case "array":
		return TypeArray
	case "object":
		return TypeObject
	case "buffer":
		return TypeBuffer
	default:
		return TypeAny
	}
}

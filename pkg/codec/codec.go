// Package codec converts property values between their application form and
// the form stored in ArangoDB documents.
package codec

import (
	"fmt"
	"sort"
	"time"

	"github.com/pay-theory/arangorm/pkg/model"
	"github.com/pay-theory/arangorm/pkg/naming"
)

// Field is one encoded property of a record.
type Field struct {
	Property string
	Column   string
	Value    any
	// Omit is set when the value must not be written (null or an empty Array/Object).
	Omit bool
}

// Encode converts an application value for storage. keep is false when the
// value should be omitted from the stored document.
func Encode(prop *model.Property, value any) (out any, keep bool, err error) {
	value = Normalize(value)
	if value == nil {
		return nil, false, nil
	}
	if prop == nil {
		return value, true, nil
	}

	switch prop.Type {
	case model.TypeDate:
		t, err := ToTime(value)
		if err != nil {
			return nil, false, fmt.Errorf("property %s: %w", prop.Name, err)
		}
		return t.UnixMilli(), true, nil

	case model.TypeGeoPoint:
		g, err := ParseGeoPoint(value)
		if err != nil {
			return nil, false, fmt.Errorf("property %s: %w", prop.Name, err)
		}
		return g.ToStorage(), true, nil

	case model.TypeArray:
		if list, ok := value.([]any); ok && len(list) == 0 {
			return nil, false, nil
		}

	case model.TypeObject:
		if m, ok := value.(map[string]any); ok && len(m) == 0 {
			return nil, false, nil
		}
	}

	return value, true, nil
}

// Decode converts a stored value back to its application form.
func Decode(prop *model.Property, value any) any {
	if value == nil || prop == nil {
		return value
	}

	switch prop.Type {
	case model.TypeDate:
		if _, isTime := value.(time.Time); isTime {
			return value
		}
		if _, err := ToFloat(value); err != nil {
			return value
		}
		t, err := ToTime(value)
		if err != nil {
			return value
		}
		return t

	case model.TypeGeoPoint:
		if g, ok := geoFromStorage(value); ok {
			return g
		}
	}

	return value
}

// EncodeFields encodes every property of rec in name order.
func EncodeFields(def *model.Definition, rec model.Record) ([]Field, error) {
	names := make([]string, 0, len(rec))
	for name := range rec {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		out, keep, err := Encode(def.Property(name), rec[name])
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{
			Property: name,
			Column:   def.ToStorageName(name),
			Value:    out,
			Omit:     !keep,
		})
	}
	return fields, nil
}

// Document builds a storage document from encoded fields, dropping omitted ones.
func Document(fields []Field) map[string]any {
	doc := make(map[string]any, len(fields))
	for _, f := range fields {
		if !f.Omit {
			doc[f.Column] = f.Value
		}
	}
	return doc
}

// EncodeRecord converts a record to a storage document.
func EncodeRecord(def *model.Definition, rec model.Record) (map[string]any, error) {
	fields, err := EncodeFields(def, rec)
	if err != nil {
		return nil, err
	}
	return Document(fields), nil
}

// DecodeRecord converts a storage document to a record. System columns are
// dropped unless a property maps them; other unmapped columns pass through.
func DecodeRecord(def *model.Definition, doc map[string]any) model.Record {
	if doc == nil {
		return nil
	}

	neutral := make(map[string]struct{})
	for _, col := range naming.NeutralColumns() {
		if _, mapped := def.ToPropertyName(col); !mapped {
			neutral[col] = struct{}{}
		}
	}

	rec := make(model.Record, len(doc))
	for col, value := range doc {
		if _, drop := neutral[col]; drop {
			continue
		}
		if name, ok := def.ToPropertyName(col); ok {
			rec[name] = Decode(def.Property(name), value)
			continue
		}
		rec[col] = value
	}
	return rec
}

// Package marshal converts between Go structs and property-keyed records.
package marshal

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/pay-theory/arangorm/pkg/codec"
	"github.com/pay-theory/arangorm/pkg/errors"
	"github.com/pay-theory/arangorm/pkg/model"
	"github.com/pay-theory/arangorm/pkg/naming"
)

// TagName is the struct tag read for property names and options:
//
//	Email string `arangorm:"email,column=mail,required"`
const TagName = "arangorm"

var (
	timeType = reflect.TypeOf(time.Time{})
	geoType  = reflect.TypeOf(codec.GeoPoint{})
	byteType = reflect.TypeOf([]byte(nil))
)

// Marshaler converts structs to records and back, caching field layouts
// per struct type.
type Marshaler struct {
	cache sync.Map // map[reflect.Type]*structInfo
}

type structInfo struct {
	fields []fieldInfo
}

type fieldInfo struct {
	index     []int
	name      string
	typ       reflect.Type
	column    string
	id        bool
	required  bool
	encrypted bool
	omitEmpty bool
	defaultFn string
	propType  model.Type
}

// New creates a new marshaler
func New() *Marshaler {
	return &Marshaler{}
}

func (m *Marshaler) info(t reflect.Type) (*structInfo, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: expected struct, got %s", errors.ErrInvalidModel, t.Kind())
	}
	if cached, ok := m.cache.Load(t); ok {
		return cached.(*structInfo), nil
	}

	info := &structInfo{}
	if err := collectFields(t, nil, info); err != nil {
		return nil, err
	}
	actual, _ := m.cache.LoadOrStore(t, info)
	return actual.(*structInfo), nil
}

func collectFields(t reflect.Type, parent []int, info *structInfo) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(append([]int(nil), parent...), i)

		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Tag.Get(TagName) == "" {
			if err := collectFields(f.Type, index, info); err != nil {
				return err
			}
			continue
		}
		if !f.IsExported() {
			continue
		}

		name, skip := naming.ResolvePropertyName(f)
		if skip {
			continue
		}
		fi := fieldInfo{index: index, name: name, typ: f.Type}
		if err := parseOptions(f.Tag.Get(TagName), &fi); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
		if fi.propType == "" {
			fi.propType = typeOf(f.Type)
		}
		info.fields = append(info.fields, fi)
	}
	return nil
}

func parseOptions(tag string, fi *fieldInfo) error {
	_, opts, _ := strings.Cut(tag, ",")
	if opts == "" {
		return nil
	}
	for _, opt := range strings.Split(opts, ",") {
		key, value, _ := strings.Cut(strings.TrimSpace(opt), "=")
		switch key {
		case "id":
			fi.id = true
		case "required":
			fi.required = true
		case "encrypted":
			fi.encrypted = true
		case "omitempty":
			fi.omitEmpty = true
		case "column":
			fi.column = value
		case "defaultFn":
			fi.defaultFn = value
		case "type":
			fi.propType = model.ParseType(value)
		case "":
		default:
			return fmt.Errorf("%w: unknown tag option %q", errors.ErrInvalidModel, key)
		}
	}
	return nil
}

// typeOf maps a Go type to a property type.
func typeOf(t reflect.Type) model.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch {
	case t == timeType:
		return model.TypeDate
	case t == geoType:
		return model.TypeGeoPoint
	case t == byteType:
		return model.TypeBuffer
	}
	switch t.Kind() {
	case reflect.String:
		return model.TypeString
	case reflect.Bool:
		return model.TypeBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return model.TypeNumber
	case reflect.Slice, reflect.Array:
		return model.TypeArray
	case reflect.Map, reflect.Struct:
		return model.TypeObject
	default:
		return model.TypeAny
	}
}

// Definition derives a model definition from a struct's exported fields.
func (m *Marshaler) Definition(v any, name string, settings model.Settings) (*model.Definition, error) {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil, fmt.Errorf("%w: nil model", errors.ErrInvalidModel)
	}
	info, err := m.info(t)
	if err != nil {
		return nil, err
	}
	if name == "" {
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		name = t.Name()
	}

	def := model.NewDefinition(name, settings)
	for _, f := range info.fields {
		def.AddProperty(&model.Property{
			Name:      f.name,
			Type:      f.propType,
			Column:    f.column,
			ID:        f.id,
			DefaultFn: f.defaultFn,
			Required:  f.required,
			Encrypted: f.encrypted,
		})
	}
	return def, nil
}

// ToRecord converts a struct (or pointer to one) to a record. Nil pointers
// and omitempty zero values are left out; nested structs become maps.
func (m *Marshaler) ToRecord(v any) (model.Record, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil struct", errors.ErrEmptyRecord)
		}
		rv = rv.Elem()
	}
	info, err := m.info(rv.Type())
	if err != nil {
		return nil, err
	}

	rec := make(model.Record, len(info.fields))
	for _, f := range info.fields {
		fv, ok := fieldByIndex(rv, f.index)
		if !ok {
			continue
		}
		if f.omitEmpty && fv.IsZero() {
			continue
		}
		value, keep, err := m.plain(fv)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.name, err)
		}
		if keep {
			rec[f.name] = value
		}
	}
	return rec, nil
}

// fieldByIndex walks embedded pointers, reporting false on a nil one.
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}

func (m *Marshaler) plain(v reflect.Value) (any, bool, error) {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil, false, nil
		}
		return m.plain(v.Elem())
	case reflect.Struct:
		if v.Type() == timeType || v.Type() == geoType {
			return v.Interface(), true, nil
		}
		rec, err := m.ToRecord(v.Interface())
		if err != nil {
			return nil, false, err
		}
		return map[string]any(rec), true, nil
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil, false, nil
		}
		if v.Type() == byteType {
			return v.Interface(), true, nil
		}
		out := make([]any, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			item, keep, err := m.plain(v.Index(i))
			if err != nil {
				return nil, false, err
			}
			if !keep {
				item = nil
			}
			out = append(out, item)
		}
		return out, true, nil
	case reflect.Map:
		if v.IsNil() {
			return nil, false, nil
		}
		if v.Type().Key().Kind() != reflect.String {
			return v.Interface(), true, nil
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			item, keep, err := m.plain(iter.Value())
			if err != nil {
				return nil, false, err
			}
			if keep {
				out[iter.Key().String()] = item
			}
		}
		return out, true, nil
	default:
		return v.Interface(), true, nil
	}
}

// FromRecord decodes a record into dest, a pointer to a struct or to a
// slice of structs (when rec is a []model.Record).
func (m *Marshaler) FromRecord(rec any, dest any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          TagName,
		WeaklyTypedInput: true,
		Squash:           true,
		Result:           dest,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			timeHook,
			geoHook,
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(rec); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}

func timeHook(from, to reflect.Type, data any) (any, error) {
	if to != timeType || from == timeType {
		return data, nil
	}
	return codec.ToTime(data)
}

func geoHook(from, to reflect.Type, data any) (any, error) {
	if to != geoType || from == geoType {
		return data, nil
	}
	return codec.ParseGeoPoint(data)
}

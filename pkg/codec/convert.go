package codec

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Normalize converts a Go value into the loose JSON shape used for storage
// documents and bind parameters: typed slices become []any, string-keyed maps
// become map[string]any, pointers are dereferenced. Scalars, time.Time and
// GeoPoint are returned unchanged.
func Normalize(value any) any {
	if value == nil {
		return nil
	}

	switch value.(type) {
	case []any, map[string]any, time.Time, GeoPoint, json.Number, []byte:
		return value
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return Normalize(v.Elem().Interface())

	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return []any{}
		}
		list := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			list[i] = Normalize(v.Index(i).Interface())
		}
		return list

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return value
		}
		m := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = Normalize(iter.Value().Interface())
		}
		return m

	default:
		return value
	}
}

// IsList reports whether v is a slice or array (other than []byte).
func IsList(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	k := reflect.ValueOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

// IsMapping reports whether v is a string-keyed map.
func IsMapping(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String
}

// ToFloat coerces a numeric-looking value to float64. Times convert to epoch milliseconds.
func ToFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case time.Time:
		return float64(n.UnixMilli()), nil
	case *time.Time:
		if n == nil {
			return 0, fmt.Errorf("nil time")
		}
		return float64(n.UnixMilli()), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to number", v)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ToTime coerces a value to a time: time values as-is, strings in RFC3339 or
// date form, numbers as epoch milliseconds.
func ToTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		if t == nil {
			return time.Time{}, fmt.Errorf("nil time")
		}
		return *t, nil
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse %q as time", t)
	}

	ms, err := ToFloat(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot convert %T to time", v)
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}

// Package naming holds the reserved ArangoDB column names and the naming
// rules shared by the mapper, the compiler and the marshaler.
package naming

import (
	"reflect"
	"strings"
	"unicode"
)

// Reserved storage columns.
const (
	KeyColumn    = "_key"
	IDColumn     = "_id"
	RevColumn    = "_rev"
	FromColumn   = "_from"
	ToColumn     = "_to"
	OldRevColumn = "_oldRev"
)

// Default property names bound to reserved columns when a model does not map them.
const (
	KeyProperty  = "key"
	IDProperty   = "id"
	FromProperty = "from"
	ToProperty   = "to"
)

var reservedColumns = map[string]struct{}{
	KeyColumn:  {},
	IDColumn:   {},
	RevColumn:  {},
	FromColumn: {},
	ToColumn:   {},
}

var neutralColumns = []string{KeyColumn, IDColumn, RevColumn, OldRevColumn, FromColumn, ToColumn}

// IsReserved reports whether name is a storage column a property may not be named after.
func IsReserved(name string) bool {
	_, ok := reservedColumns[name]
	return ok
}

// NeutralColumns lists the system columns stripped from decoded records unless mapped.
func NeutralColumns() []string {
	out := make([]string, len(neutralColumns))
	copy(out, neutralColumns)
	return out
}

// Alias returns the AQL iteration variable for a collection. Dashes, which
// collection names allow and variable names do not, become underscores.
func Alias(collection string) string {
	return strings.ReplaceAll(collection, "-", "_") + "_"
}

// QuoteCollection returns a collection name as written in AQL, in backticks
// when it is not a plain identifier.
func QuoteCollection(collection string) string {
	if strings.Contains(collection, "-") {
		return "`" + collection + "`"
	}
	return collection
}

// IsHandle reports whether id is a fully-qualified document handle ("collection/key").
func IsHandle(id string) bool {
	return strings.Contains(id, "/")
}

// SplitHandle splits a document handle into collection and key. A bare key
// returns an empty collection.
func SplitHandle(id string) (collection, key string) {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[:i], id[i+1:]
	}
	return "", id
}

// ResolvePropertyName determines the record property for a struct field.
// It returns the name and a bool indicating whether the field should be skipped.
func ResolvePropertyName(field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("arangorm")
	if tag == "-" {
		return "", true
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, false
	}
	return DefaultPropertyName(field.Name), false
}

// DefaultPropertyName converts a Go struct field name to a camelCase property name.
func DefaultPropertyName(name string) string {
	if name == "" {
		return ""
	}

	runes := []rune(name)
	if len(runes) == 1 {
		return strings.ToLower(name)
	}

	boundary := 1
	for boundary < len(runes) {
		if !unicode.IsUpper(runes[boundary]) {
			break
		}
		if boundary+1 < len(runes) && !unicode.IsUpper(runes[boundary+1]) {
			break
		}
		boundary++
	}

	return strings.ToLower(string(runes[:boundary])) + string(runes[boundary:])
}

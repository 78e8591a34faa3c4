package naming

import (
	"reflect"
	"testing"
)

type sample struct {
	Simple    string
	URLValue  string
	ID        string
	Custom    string `arangorm:"customName"`
	Skip      string `arangorm:"-"`
	OmitEmpty string `arangorm:",omitempty"`
}

func TestDefaultPropertyName(t *testing.T) {
	tests := map[string]string{
		"Name":      "name",
		"CreatedAt": "createdAt",
		"URLValue":  "urlValue",
		"ID":        "id",
		"UUID":      "uuid",
		"HTTPCode":  "httpCode",
		"X":         "x",
	}

	for input, expected := range tests {
		if got := DefaultPropertyName(input); got != expected {
			t.Errorf("DefaultPropertyName(%q) = %q, want %q", input, got, expected)
		}
	}
}

func TestResolvePropertyName(t *testing.T) {
	typ := reflect.TypeOf(sample{})
	expected := map[string]string{
		"Simple":    "simple",
		"URLValue":  "urlValue",
		"ID":        "id",
		"Custom":    "customName",
		"OmitEmpty": "omitEmpty",
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		name, skip := ResolvePropertyName(field)
		if field.Name == "Skip" {
			if !skip {
				t.Errorf("expected %s to be skipped", field.Name)
			}
			continue
		}
		if skip {
			t.Errorf("unexpected skip for %s", field.Name)
		}
		if name != expected[field.Name] {
			t.Errorf("ResolvePropertyName(%s) = %q, want %q", field.Name, name, expected[field.Name])
		}
	}
}

func TestReservedColumns(t *testing.T) {
	for _, name := range []string{"_key", "_id", "_rev", "_from", "_to"} {
		if !IsReserved(name) {
			t.Errorf("%s should be reserved", name)
		}
	}
	for _, name := range []string{"key", "id", "_oldRev", "from"} {
		if IsReserved(name) {
			t.Errorf("%s should not be reserved", name)
		}
	}
}

func TestHandles(t *testing.T) {
	if Alias("users") != "users_" {
		t.Errorf("unexpected alias %q", Alias("users"))
	}
	if !IsHandle("users/123") || IsHandle("123") {
		t.Error("IsHandle mismatch")
	}
	coll, key := SplitHandle("users/123")
	if coll != "users" || key != "123" {
		t.Errorf("SplitHandle = %q, %q", coll, key)
	}
	coll, key = SplitHandle("123")
	if coll != "" || key != "123" {
		t.Errorf("SplitHandle bare = %q, %q", coll, key)
	}
}

func TestDashedCollectionNames(t *testing.T) {
	if got := Alias("audit-log"); got != "audit_log_" {
		t.Errorf("Alias = %q", got)
	}
	if got := QuoteCollection("audit-log"); got != "`audit-log`" {
		t.Errorf("QuoteCollection = %q", got)
	}
	if got := QuoteCollection("users"); got != "users" {
		t.Errorf("QuoteCollection plain = %q", got)
	}
}

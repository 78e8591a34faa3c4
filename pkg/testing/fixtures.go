// Package testing provides model fixtures and a scripted session client for
// tests of code built on arangorm.
package testing

import (
	"github.com/pay-theory/arangorm/pkg/model"
)

// EmployeeModel is a document model with a mapped column, a date and a default.
func EmployeeModel() *model.Definition {
	return model.NewDefinition("Employee", model.Settings{Collection: "employees"},
		&model.Property{Name: "key", DefaultFn: "uuidv4"},
		&model.Property{Name: "name", Type: model.TypeString, Required: true},
		&model.Property{Name: "age", Type: model.TypeNumber},
		&model.Property{Name: "fullName", Type: model.TypeString, Column: "full_name", Default: "n/a"},
		&model.Property{Name: "hiredAt", Type: model.TypeDate},
		&model.Property{Name: "skills", Type: model.TypeArray},
	)
}

// PlaceModel is a document model with a geo point.
func PlaceModel() *model.Definition {
	return model.NewDefinition("Place", model.Settings{Collection: "places"},
		&model.Property{Name: "name", Type: model.TypeString},
		&model.Property{Name: "location", Type: model.TypeGeoPoint},
	)
}

// FollowsModel is an edge model. With unique set, keys derive from the
// endpoints.
func FollowsModel(unique bool) *model.Definition {
	return model.NewDefinition("Follows", model.Settings{Collection: "follows", Kind: model.KindEdge, Unique: unique},
		&model.Property{Name: "since", Type: model.TypeDate},
	)
}

// Registry returns a registry with the given definitions defined, panicking
// on definition errors.
func Registry(defs ...*model.Definition) *model.Registry {
	r := model.NewRegistry()
	for _, def := range defs {
		if err := r.Define(def); err != nil {
			panic(err)
		}
	}
	return r
}

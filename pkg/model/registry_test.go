package model_test

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pay-theory/arangorm/pkg/errors"
	"github.com/pay-theory/arangorm/pkg/model"
)

func employee() *model.Definition {
	return model.NewDefinition("Employee", model.Settings{Collection: "employees"},
		&model.Property{Name: "name", Type: model.TypeString},
		&model.Property{Name: "age", Type: model.TypeNumber},
		&model.Property{Name: "fullName", Type: model.TypeString, Column: "full_name"},
	)
}

func TestNewRegistry(t *testing.T) {
	registry := model.NewRegistry()
	assert.NotNil(t, registry)
	assert.Empty(t, registry.Names())
}

func TestDefineInjectsKey(t *testing.T) {
	registry := model.NewRegistry()
	require.NoError(t, registry.Define(employee()))

	def, err := registry.Get("Employee")
	require.NoError(t, err)

	key := def.Property("key")
	require.NotNil(t, key)
	assert.Equal(t, "_key", key.Column)
	assert.Equal(t, model.TypeString, key.Type)
	assert.True(t, key.ID)
	assert.Equal(t, "key", def.KeyProperty())
	assert.Equal(t, []string{"key"}, def.IDs)
	assert.Equal(t, model.KindDocument, def.Settings.Kind)
}

func TestDefineMergesExistingKeyMapping(t *testing.T) {
	def := model.NewDefinition("Account", model.Settings{},
		&model.Property{Name: "code", Type: model.TypeNumber, Column: "_key", DefaultFn: "uuidv4"},
		&model.Property{Name: "label"},
	)
	require.NoError(t, model.NewRegistry().Define(def))

	assert.Nil(t, def.Property("key"))
	assert.Equal(t, "code", def.KeyProperty())
	code := def.Property("code")
	assert.Equal(t, model.TypeString, code.Type)
	assert.True(t, code.ID)
	assert.Equal(t, "uuidv4", code.DefaultFn)
	assert.Equal(t, []string{"code"}, def.IDs)
}

func TestDefineRebindsPlainKeyProperty(t *testing.T) {
	def := model.NewDefinition("Token", model.Settings{},
		&model.Property{Name: "key", DefaultFn: "guid"},
	)
	require.NoError(t, model.NewRegistry().Define(def))

	key := def.Property("key")
	assert.Equal(t, "_key", key.Column)
	assert.Equal(t, "guid", key.DefaultFn)
	_, stale := def.ToPropertyName("key")
	assert.False(t, stale)
	name, ok := def.ToPropertyName("_key")
	assert.True(t, ok)
	assert.Equal(t, "key", name)
}

func TestDefineKeepsDeclaredIDs(t *testing.T) {
	def := model.NewDefinition("User", model.Settings{},
		&model.Property{Name: "email", ID: true},
	)
	require.NoError(t, model.NewRegistry().Define(def))
	assert.Equal(t, []string{"email"}, def.IDs)
	assert.True(t, def.Property("key").ID)
}

func TestDefineRejectsReservedProperties(t *testing.T) {
	for _, reserved := range []string{"_key", "_id", "_rev", "_from", "_to"} {
		t.Run(reserved, func(t *testing.T) {
			def := model.NewDefinition("Bad", model.Settings{}, &model.Property{Name: reserved})
			err := model.NewRegistry().Define(def)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrReservedProperty))
			assert.True(t, strings.Contains(err.Error(), reserved))
		})
	}
}

func TestDefineRejectsDuplicateColumns(t *testing.T) {
	def := model.NewDefinition("Dup", model.Settings{},
		&model.Property{Name: "a", Column: "x"},
		&model.Property{Name: "b", Column: "x"},
	)
	err := model.NewRegistry().Define(def)
	assert.True(t, stderrors.Is(err, errors.ErrDuplicateColumn))
}

func TestDefineRejectsInvalidNames(t *testing.T) {
	registry := model.NewRegistry()
	assert.ErrorIs(t, registry.Define(nil), errors.ErrInvalidModel)
	assert.ErrorIs(t, registry.Define(model.NewDefinition("x", model.Settings{Collection: "bad name"})), errors.ErrInvalidModel)
	assert.ErrorIs(t, registry.Define(model.NewDefinition("x", model.Settings{Kind: "graph"})), errors.ErrInvalidModel)
	assert.ErrorIs(t, registry.Define(model.NewDefinition("x", model.Settings{},
		&model.Property{Name: "p", Column: "a b"})), errors.ErrInvalidModel)
}

func TestDefineTypesHandleAndRevision(t *testing.T) {
	def := model.NewDefinition("Doc", model.Settings{},
		&model.Property{Name: "handle", Column: "_id", Type: model.TypeNumber},
		&model.Property{Name: "revision", Column: "_rev"},
	)
	require.NoError(t, model.NewRegistry().Define(def))
	assert.Equal(t, model.TypeString, def.Property("handle").Type)
	assert.Equal(t, model.TypeString, def.Property("revision").Type)
	assert.Equal(t, "handle", def.HandleProperty())
}

func TestDefineEdge(t *testing.T) {
	def := model.NewDefinition("Likes", model.Settings{Kind: model.KindEdge},
		&model.Property{Name: "source", Column: "_from"},
		&model.Property{Name: "weight", Type: model.TypeNumber},
	)
	require.NoError(t, model.NewRegistry().Define(def))

	assert.True(t, def.IsEdge())
	assert.Equal(t, "source", def.FromProperty())
	assert.Equal(t, "to", def.ToProperty())
	assert.Equal(t, "_to", def.Property("to").Column)

	require.Len(t, def.Indexes, 1)
	idx := def.Indexes[0]
	assert.Equal(t, "edge", idx.Type)
	assert.Equal(t, []string{"source", "to"}, idx.Fields)
	assert.True(t, idx.DoNotCreate)
	assert.False(t, idx.Unique)
}

func TestColumnMapping(t *testing.T) {
	def := employee()
	require.NoError(t, model.NewRegistry().Define(def))

	assert.Equal(t, "full_name", def.ToStorageName("fullName"))
	assert.Equal(t, "name", def.ToStorageName("name"))
	assert.Equal(t, "unknown", def.ToStorageName("unknown"))

	name, ok := def.ToPropertyName("full_name")
	assert.True(t, ok)
	assert.Equal(t, "fullName", name)

	_, ok = def.ToPropertyName("missing")
	assert.False(t, ok)

	assert.Equal(t, "employees", def.Collection())
	assert.Equal(t, "employees_", def.Alias())
	assert.Equal(t, "id", def.HandleProperty())
}

func TestDefineProperty(t *testing.T) {
	registry := model.NewRegistry()
	require.NoError(t, registry.Define(employee()))
	before, _ := registry.Get("Employee")

	require.NoError(t, registry.DefineProperty("Employee", "nickname", &model.Property{Type: model.TypeString, Column: "nick"}))

	after, err := registry.Get("Employee")
	require.NoError(t, err)
	assert.Equal(t, "nick", after.ToStorageName("nickname"))
	assert.Nil(t, before.Property("nickname"), "previous readers keep their snapshot")

	assert.ErrorIs(t, registry.DefineProperty("Employee", "_rev", &model.Property{}), errors.ErrReservedProperty)
	assert.ErrorIs(t, registry.DefineProperty("Missing", "x", &model.Property{}), errors.ErrModelNotFound)
	assert.ErrorIs(t, registry.DefineProperty("Employee", "other", &model.Property{Column: "nick"}), errors.ErrDuplicateColumn)
}

func TestGetUnknownModel(t *testing.T) {
	_, err := model.NewRegistry().Get("Nope")
	assert.ErrorIs(t, err, errors.ErrModelNotFound)
}

func TestPropertyNamesKeepDeclarationOrder(t *testing.T) {
	def := employee()
	require.NoError(t, model.NewRegistry().Define(def))
	assert.Equal(t, []string{"name", "age", "fullName", "key"}, def.PropertyNames())
}

func TestClone(t *testing.T) {
	def := employee()
	require.NoError(t, model.NewRegistry().Define(def))

	c := def.Clone()
	c.Property("name").Column = "changed"
	c.Columns["x"] = "y"

	assert.Equal(t, "name", def.Property("name").Column)
	_, ok := def.Columns["x"]
	assert.False(t, ok)
	assert.Equal(t, def.PropertyNames(), c.PropertyNames())
}

func TestColumnMappingIsBijective(t *testing.T) {
	for _, def := range []*model.Definition{
		employee(),
		model.NewDefinition("Follows", model.Settings{Collection: "follows", Kind: model.KindEdge},
			&model.Property{Name: "since", Type: model.TypeDate, Column: "created"}),
	} {
		require.NoError(t, model.NewRegistry().Define(def))

		for _, prop := range def.PropertyNames() {
			name, ok := def.ToPropertyName(def.ToStorageName(prop))
			assert.True(t, ok, prop)
			assert.Equal(t, prop, name)
		}
		for column := range def.Columns {
			name, ok := def.ToPropertyName(column)
			require.True(t, ok, column)
			assert.Equal(t, column, def.ToStorageName(name))
		}
	}
}

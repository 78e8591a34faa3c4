package query_test

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pay-theory/arangorm/pkg/errors"
	"github.com/pay-theory/arangorm/pkg/model"
	"github.com/pay-theory/arangorm/pkg/query"
)

func employeeModel(t *testing.T) *model.Definition {
	t.Helper()
	def := model.NewDefinition("Employee", model.Settings{Collection: "employees"},
		&model.Property{Name: "name", Type: model.TypeString},
		&model.Property{Name: "age", Type: model.TypeNumber},
		&model.Property{Name: "fullName", Type: model.TypeString, Column: "full_name", Default: "n/a"},
		&model.Property{Name: "hiredAt", Type: model.TypeDate},
	)
	require.NoError(t, model.NewRegistry().Define(def))
	return def
}

func compileWhere(t *testing.T, def *model.Definition, where map[string]any) query.Fragments {
	t.Helper()
	preds, err := query.ParseWhere(where)
	require.NoError(t, err)
	frags, err := query.Compile(def, def.Alias(), preds, 0)
	require.NoError(t, err)
	return frags
}

func TestCompileOperators(t *testing.T) {
	def := employeeModel(t)

	tests := []struct {
		name   string
		where  map[string]any
		frag   string
		params map[string]any
	}{
		{"equality", map[string]any{"name": "bob"}, "employees_.name == @p1", map[string]any{"p1": "bob"}},
		{"mapped column", map[string]any{"fullName": "Bob B"}, "employees_.full_name == @p1", map[string]any{"p1": "Bob B"}},
		{"null equality", map[string]any{"name": nil}, "employees_.name == @p1", map[string]any{"p1": nil}},
		{"gt coerces", map[string]any{"age": map[string]any{"gt": "30"}}, "employees_.age > @p1", map[string]any{"p1": 30.0}},
		{"gte", map[string]any{"age": map[string]any{"gte": 30}}, "employees_.age >= @p1", map[string]any{"p1": 30.0}},
		{"lt", map[string]any{"age": map[string]any{"lt": 30}}, "employees_.age < @p1", map[string]any{"p1": 30.0}},
		{"lte", map[string]any{"age": map[string]any{"lte": 30}}, "employees_.age <= @p1", map[string]any{"p1": 30.0}},
		{"between", map[string]any{"age": map[string]any{"between": []any{22, 88}}},
			"(employees_.age >= @p1 && employees_.age <= @p2)", map[string]any{"p1": 22.0, "p2": 88.0}},
		{"inq", map[string]any{"name": map[string]any{"inq": []string{"a", "b"}}},
			"employees_.name IN @p1", map[string]any{"p1": []any{"a", "b"}}},
		{"nin", map[string]any{"name": map[string]any{"nin": []any{"a"}}},
			"employees_.name NOT IN @p1", map[string]any{"p1": []any{"a"}}},
		{"neq", map[string]any{"name": map[string]any{"neq": "x"}}, "employees_.name != @p1", map[string]any{"p1": "x"}},
		{"like", map[string]any{"name": map[string]any{"like": "Jo%"}}, "employees_.name LIKE @p1", map[string]any{"p1": "Jo%"}},
		{"nlike", map[string]any{"name": map[string]any{"nlike": "Jo%"}}, "NOT LIKE(employees_.name, @p1)", map[string]any{"p1": "Jo%"}},
		{"regexp string", map[string]any{"name": map[string]any{"regexp": "/^A.*/"}}, "employees_.name =~ @p1", map[string]any{"p1": "^A.*"}},
		{"regexp ignore case", map[string]any{"name": map[string]any{"regexp": "/^jo/i"}}, "REGEX_TEST(employees_.name, @p1, true)", map[string]any{"p1": "^jo"}},
		{"regexp global flag", map[string]any{"name": map[string]any{"regexp": "/^jo/g"}}, "employees_.name =~ @p1", map[string]any{"p1": "^jo"}},
		{"regexp value", map[string]any{"name": map[string]any{"regexp": regexp.MustCompile("^B")}}, "employees_.name =~ @p1", map[string]any{"p1": "^B"}},
		{"nested path", map[string]any{"address": map[string]any{"city": "Paris"}}, "employees_.address.city == @p1", map[string]any{"p1": "Paris"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frags := compileWhere(t, def, tt.where)
			require.Len(t, frags.List, 1)
			assert.Equal(t, tt.frag, frags.List[0])
			assert.Equal(t, tt.params, frags.Params)
			assert.Equal(t, len(tt.params), frags.Count)
		})
	}
}

func TestCompileLogicalGroups(t *testing.T) {
	def := employeeModel(t)
	frags := compileWhere(t, def, map[string]any{
		"or": []any{
			map[string]any{"name": "a"},
			map[string]any{"and": []any{
				map[string]any{"age": map[string]any{"gt": 1}},
				map[string]any{"age": map[string]any{"lt": 5}},
			}},
		},
	})

	assert.Equal(t, []string{"(employees_.name == @p1 || (employees_.age > @p2 && employees_.age < @p3))"}, frags.List)
	assert.Equal(t, map[string]any{"p1": "a", "p2": 1.0, "p3": 5.0}, frags.Params)
	assert.Equal(t, 3, frags.Count)
}

func TestCompileMultiKeyChildIsGrouped(t *testing.T) {
	def := employeeModel(t)
	frags := compileWhere(t, def, map[string]any{
		"or": []any{
			map[string]any{"name": "a", "age": 3},
			map[string]any{"name": "b"},
		},
	})
	assert.Equal(t, []string{"((employees_.age == @p1 && employees_.name == @p2) || employees_.name == @p3)"}, frags.List)
}

func TestCompileKeysInSortedOrder(t *testing.T) {
	def := employeeModel(t)
	frags := compileWhere(t, def, map[string]any{"name": "x", "age": map[string]any{"gte": 3, "lt": 9}})
	assert.Equal(t, []string{
		"employees_.age >= @p1",
		"employees_.age < @p2",
		"employees_.name == @p3",
	}, frags.List)
}

func TestCompileContinuesFromStart(t *testing.T) {
	def := employeeModel(t)
	preds, err := query.ParseWhere(map[string]any{"name": "x"})
	require.NoError(t, err)

	frags, err := query.Compile(def, "e", preds, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"e.name == @p6"}, frags.List)
	assert.Equal(t, 6, frags.Count)
}

func TestCompileDateOperands(t *testing.T) {
	def := employeeModel(t)
	when := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	frags := compileWhere(t, def, map[string]any{"hiredAt": when})
	assert.Equal(t, when.UnixMilli(), frags.Params["p1"])

	frags = compileWhere(t, def, map[string]any{"hiredAt": map[string]any{"gt": when}})
	assert.Equal(t, float64(when.UnixMilli()), frags.Params["p1"])
}

func TestCompileDateStringOperands(t *testing.T) {
	def := employeeModel(t)
	jan2 := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC).UnixMilli()
	feb1 := time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

	f, err := query.ParseFilter(map[string]any{"where": map[string]any{"hiredAt": "2020-01-02T00:00:00Z"}})
	require.NoError(t, err)
	frags := compileWhere(t, def, f.Where)
	assert.Equal(t, []string{"employees_.hiredAt == @p1"}, frags.List)
	assert.Equal(t, map[string]any{"p1": jan2}, frags.Params)

	tests := []struct {
		name   string
		where  map[string]any
		frag   string
		params map[string]any
	}{
		{"gt", map[string]any{"hiredAt": map[string]any{"gt": "2020-01-02T00:00:00Z"}},
			"employees_.hiredAt > @p1", map[string]any{"p1": jan2}},
		{"lte date only", map[string]any{"hiredAt": map[string]any{"lte": "2020-02-01"}},
			"employees_.hiredAt <= @p1", map[string]any{"p1": feb1}},
		{"between", map[string]any{"hiredAt": map[string]any{"between": []any{"2020-01-02T00:00:00Z", "2020-02-01T00:00:00Z"}}},
			"(employees_.hiredAt >= @p1 && employees_.hiredAt <= @p2)", map[string]any{"p1": jan2, "p2": feb1}},
		{"inq", map[string]any{"hiredAt": map[string]any{"inq": []any{"2020-01-02T00:00:00Z", feb1}}},
			"employees_.hiredAt IN @p1", map[string]any{"p1": []any{jan2, feb1}}},
		{"neq", map[string]any{"hiredAt": map[string]any{"neq": "2020-02-01T00:00:00Z"}},
			"employees_.hiredAt != @p1", map[string]any{"p1": feb1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frags := compileWhere(t, def, tt.where)
			assert.Equal(t, []string{tt.frag}, frags.List)
			assert.Equal(t, tt.params, frags.Params)
		})
	}
}

func TestCompileNearProducesNoFragment(t *testing.T) {
	def := employeeModel(t)
	frags := compileWhere(t, def, map[string]any{
		"location": map[string]any{"near": "1,2", "maxDistance": 10},
		"name":     "x",
	})
	assert.Equal(t, []string{"employees_.name == @p1"}, frags.List)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		where map[string]any
		err   error
	}{
		{"ilike", map[string]any{"name": map[string]any{"ilike": "a%"}}, errors.ErrUnsupportedOperator},
		{"nilike", map[string]any{"name": map[string]any{"nilike": "a%"}}, errors.ErrUnsupportedOperator},
		{"operator without field", map[string]any{"gt": 5}, errors.ErrInvalidFilter},
		{"and not a list", map[string]any{"and": map[string]any{"a": 1}}, errors.ErrInvalidFilter},
		{"and item not a map", map[string]any{"or": []any{1}}, errors.ErrInvalidFilter},
		{"gt not numeric", map[string]any{"age": map[string]any{"gt": "abc"}}, errors.ErrInvalidOperand},
		{"between needs two", map[string]any{"age": map[string]any{"between": []any{1}}}, errors.ErrInvalidOperand},
		{"inq needs list", map[string]any{"age": map[string]any{"inq": 3}}, errors.ErrInvalidOperand},
		{"regexp type", map[string]any{"name": map[string]any{"regexp": 3}}, errors.ErrInvalidOperand},
		{"regexp unknown flag", map[string]any{"name": map[string]any{"regexp": "/^jo/m"}}, errors.ErrInvalidOperand},
		{"near without distance", map[string]any{"loc": map[string]any{"near": "1,2"}}, errors.ErrInvalidOperand},
		{"near bad point", map[string]any{"loc": map[string]any{"near": "x", "maxDistance": 1}}, errors.ErrInvalidOperand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := query.ParseWhere(tt.where)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestCompileRejectsUnsafeFieldNames(t *testing.T) {
	def := employeeModel(t)
	preds, err := query.ParseWhere(map[string]any{"name == 1 || true": 1})
	require.NoError(t, err)
	_, err = query.Compile(def, def.Alias(), preds, 0)
	assert.ErrorIs(t, err, errors.ErrInvalidFilter)
}

func TestParseNearForms(t *testing.T) {
	preds, err := query.ParseWhere(map[string]any{
		"location": map[string]any{"near": map[string]any{
			"location": map[string]any{"lat": 1.5, "lng": 2.5},
			"distance": 3,
			"unit":     "miles",
		}},
	})
	require.NoError(t, err)
	near, ok := query.FindNear(preds)
	require.True(t, ok)
	assert.Equal(t, 1.5, near.Spec.Point.Lat)
	assert.Equal(t, 2.5, near.Spec.Point.Lng)
	assert.Equal(t, 3.0, near.Spec.Distance)
	assert.Equal(t, "miles", near.Spec.Unit)

	preds, err = query.ParseWhere(map[string]any{
		"location": map[string]any{"near": map[string]any{"lat": 1, "lng": 2}, "maxDistance": 5},
	})
	require.NoError(t, err)
	require.Len(t, preds, 1, "maxDistance is consumed by near")
	near, _ = query.FindNear(preds)
	assert.Equal(t, query.DefaultUnit, near.Spec.Unit)
}

// Nested and/or trees: one pair of parentheses per group, one parameter per leaf.
func TestCompileGroupDepthProperty(t *testing.T) {
	def := employeeModel(t)

	var build func(depth int) (map[string]any, int, int)
	build = func(depth int) (map[string]any, int, int) {
		if depth == 0 {
			return map[string]any{"age": map[string]any{"gt": depth}}, 1, 0
		}
		left, leavesL, groupsL := build(depth - 1)
		right, leavesR, groupsR := build(depth - 1)
		op := "and"
		if depth%2 == 0 {
			op = "or"
		}
		return map[string]any{op: []any{left, right}}, leavesL + leavesR, groupsL + groupsR + 1
	}

	for depth := 1; depth <= 4; depth++ {
		where, leaves, groups := build(depth)
		frags := compileWhere(t, def, where)
		require.Len(t, frags.List, 1)
		assert.Equal(t, groups, strings.Count(frags.List[0], "("), "depth %d", depth)
		assert.Equal(t, groups, strings.Count(frags.List[0], ")"), "depth %d", depth)
		assert.Equal(t, leaves, frags.Count, "depth %d", depth)
		assert.Len(t, frags.Params, leaves)
	}
}

func TestEqualityProperties(t *testing.T) {
	preds, err := query.ParseWhere(map[string]any{
		"name": "x",
		"age":  map[string]any{"gt": 1},
		"and":  []any{map[string]any{"from": map[string]any{"inq": []any{"a"}}}},
		"or":   []any{map[string]any{"to": "b"}},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"name", "from"}, query.EqualityProperties(preds))
}

func TestOperandOf(t *testing.T) {
	assert.Equal(t, query.ListOperand, query.OperandOf([]int{1}).Kind)
	assert.Equal(t, query.MappingOperand, query.OperandOf(map[string]string{"a": "b"}).Kind)
	assert.Equal(t, query.ScalarOperand, query.OperandOf("x").Kind)
	assert.Equal(t, "list", query.ListOperand.String())
	assert.Equal(t, []any{}, query.List().Value())
	assert.Equal(t, 3, query.Scalar(3).Value())
}

package query

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pay-theory/arangorm/internal/expr"
	"github.com/pay-theory/arangorm/pkg/codec"
	"github.com/pay-theory/arangorm/pkg/errors"
	"github.com/pay-theory/arangorm/pkg/index"
	"github.com/pay-theory/arangorm/pkg/model"
	"github.com/pay-theory/arangorm/pkg/naming"
	"github.com/pay-theory/arangorm/pkg/validation"
)

// CountField is the projection name bound by COLLECT WITH COUNT INTO.
const CountField = "count_"

// Compiled is an executable AQL statement.
type Compiled struct {
	Query  string
	Params map[string]any
	// Index is the declared index expected to serve the filter, if any.
	Index     *model.Index
	EdgeIndex bool
}

// Assembler builds complete AQL statements for a model.
type Assembler struct {
	logger *zap.Logger
}

// NewAssembler creates an assembler. A nil logger discards warnings.
func NewAssembler(logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{logger: logger}
}

// Assemble builds a read statement ending in RETURN.
func (a *Assembler) Assemble(def *model.Definition, f *Filter) (*Compiled, error) {
	return a.build(def, f, nil)
}

// AssembleUpdate builds an UPDATE statement that replaces the listed fields
// of every matching document and returns the new documents. Omitted fields
// are written as their declared default, or null.
func (a *Assembler) AssembleUpdate(def *model.Definition, f *Filter, update []codec.Field) (*Compiled, error) {
	if update == nil {
		update = []codec.Field{}
	}
	return a.build(def, f, update)
}

func (a *Assembler) build(def *model.Definition, f *Filter, update []codec.Field) (*Compiled, error) {
	if f == nil {
		f = &Filter{}
	}
	alias := def.Alias()
	collection := naming.QuoteCollection(def.Collection())

	var preds []Predicate
	if f.Where != nil {
		var err error
		if preds, err = ParseWhere(f.Where); err != nil {
			return nil, err
		}
	}

	source, nearParams := a.source(collection, preds)

	frags, err := Compile(def, alias, preds, 0)
	if err != nil {
		return nil, err
	}

	sortClause, err := buildSort(def, alias, f.Order)
	if err != nil {
		return nil, err
	}

	collect, err := buildCollect(f.Collect)
	if err != nil {
		return nil, err
	}

	parts := []string{"FOR " + alias, "IN " + source}
	if len(frags.List) > 0 {
		parts = append(parts, "FILTER "+strings.Join(frags.List, " && "))
	}
	if collect != "" {
		parts = append(parts, "COLLECT "+collect)
	}
	if sortClause != "" {
		parts = append(parts, "SORT "+sortClause)
	}
	if limit := buildLimit(f.Skip, f.Limit); limit != "" && collect == "" {
		parts = append(parts, "LIMIT "+limit)
	}

	var updateParams map[string]any
	if update == nil {
		ret, err := buildReturn(def, alias, f.Fields)
		if err != nil {
			return nil, err
		}
		parts = append(parts, "RETURN "+ret)
	} else {
		var payload string
		if payload, updateParams, err = buildUpdate(def, update); err != nil {
			return nil, err
		}
		parts = append(parts,
			"UPDATE "+alias+" WITH "+payload+" IN "+collection+" OPTIONS { mergeObjects: false }",
			"RETURN NEW")
	}

	compiled := &Compiled{
		Query:  strings.Join(parts, " "),
		Params: expr.Merge(frags.Params, updateParams, nearParams),
	}
	if len(def.Indexes) > 0 {
		compiled.Index = index.NewSelector(def.Indexes).SelectOptimal(EqualityProperties(preds))
		compiled.EdgeIndex = index.IsEdge(compiled.Index)
	}

	return compiled, nil
}

func buildSort(def *model.Definition, alias string, order []Order) (string, error) {
	if len(order) == 0 {
		return "", nil
	}
	items := make([]string, 0, len(order))
	for _, o := range order {
		column := def.ToStorageName(o.Property)
		if err := validation.ValidateFieldName(column); err != nil {
			return "", fmt.Errorf("%w: order: %v", errors.ErrInvalidFilter, err)
		}
		dir, err := validation.ValidateDirection(o.Direction)
		if err != nil {
			return "", fmt.Errorf("%w: order: %v", errors.ErrInvalidFilter, err)
		}
		items = append(items, alias+"."+column+" "+dir)
	}
	return strings.Join(items, ", "), nil
}

// buildLimit renders "offset,count"; pagination is dropped when count is not
// positive or smaller than offset.
func buildLimit(skip, limit int) string {
	if limit <= 0 {
		return ""
	}
	if skip < 0 {
		skip = 0
	}
	if limit < skip {
		return ""
	}
	return strconv.Itoa(skip) + "," + strconv.Itoa(limit)
}

func buildCollect(collect []string) (string, error) {
	if len(collect) == 0 {
		return "", nil
	}
	clause := strings.Join(collect, " ")
	if err := validation.ValidateExpression(clause); err != nil {
		return "", fmt.Errorf("%w: collect: %v", errors.ErrInvalidFilter, err)
	}
	return clause, nil
}

func buildReturn(def *model.Definition, alias string, fields []string) (string, error) {
	if len(fields) == 0 {
		return alias, nil
	}

	entries := make([]string, 0, len(fields))
	for _, f := range fields {
		switch f {
		case "":
			continue
		case CountField:
			entries = append(entries, "count: "+CountField)
		default:
			column := def.ToStorageName(f)
			if err := validation.ValidateFieldName(column); err != nil {
				return "", fmt.Errorf("%w: fields: %v", errors.ErrInvalidFilter, err)
			}
			key := column
			if strings.Contains(column, ".") {
				key = strconv.Quote(column)
			}
			entries = append(entries, key+":"+alias+"."+column)
		}
	}

	if len(entries) == 0 {
		return "", errors.ErrInvalidProjection
	}
	return "{" + strings.Join(entries, ", ") + "}", nil
}

func buildUpdate(def *model.Definition, update []codec.Field) (string, map[string]any, error) {
	params := expr.NewParams(expr.UpdatePrefix, 0)
	entries := make([]string, 0, len(update))
	for _, f := range update {
		if err := validation.ValidateFieldName(f.Column); err != nil || strings.Contains(f.Column, ".") {
			return "", nil, fmt.Errorf("%w: update field %q", errors.ErrInvalidFilter, f.Column)
		}
		value := f.Value
		if f.Omit {
			value = def.Default(f.Property)
		}
		entries = append(entries, f.Column+": "+params.Add(value))
	}
	return "{" + strings.Join(entries, ", ") + "}", params.Values(), nil
}

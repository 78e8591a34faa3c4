package arangorm

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pay-theory/arangorm/pkg/core"
	"github.com/pay-theory/arangorm/pkg/errors"
	"github.com/pay-theory/arangorm/pkg/session"
	"github.com/pay-theory/arangorm/pkg/validation"
)

// positional is a query whose ? placeholders were rewritten to @p0, @p1, ...
type positional struct {
	query        string
	placeholders int
}

// ParsedAQL is a raw query ready to execute.
type ParsedAQL struct {
	Query  string
	Params map[string]any
}

// ParseAQL binds params to a raw query. A []any binds positionally: every
// "?" becomes @p0, @p1, ... and the number of placeholders must equal the
// number of params. A map binds by name and is passed through once its
// names are validated. Nil leaves the query unbound.
func (db *DB) ParseAQL(aql string, params any) (*ParsedAQL, error) {
	if strings.TrimSpace(aql) == "" {
		return nil, errors.ErrInvalidQuery
	}

	switch p := params.(type) {
	case nil:
		return &ParsedAQL{Query: aql}, nil

	case []any:
		rewritten, ok := db.aqlCache.Get(aql)
		if !ok {
			rewritten = rewritePositional(aql)
			db.aqlCache.Add(aql, rewritten)
		}
		if rewritten.placeholders != len(p) {
			return nil, fmt.Errorf("%w: %d placeholders, %d params",
				errors.ErrParamCountMismatch, rewritten.placeholders, len(p))
		}
		bound := make(map[string]any, len(p))
		for i, v := range p {
			bound["p"+strconv.Itoa(i)] = v
		}
		return &ParsedAQL{Query: rewritten.query, Params: bound}, nil

	case map[string]any:
		for name := range p {
			if err := validation.ValidateBindName(name); err != nil {
				return nil, fmt.Errorf("%w: %v", errors.ErrInvalidParams, err)
			}
		}
		return &ParsedAQL{Query: aql, Params: p}, nil

	default:
		return nil, fmt.Errorf("%w: %T, must be []any or map[string]any", errors.ErrInvalidParams, params)
	}
}

func rewritePositional(aql string) positional {
	parts := strings.Split(aql, "?")
	var b strings.Builder
	b.Grow(len(aql) + 3*len(parts))
	for i, part := range parts {
		b.WriteString(part)
		if i < len(parts)-1 {
			b.WriteString("@p")
			b.WriteString(strconv.Itoa(i))
		}
	}
	return positional{query: b.String(), placeholders: len(parts) - 1}
}

// ExecuteAQL runs a raw query. With opts.Return set to core.ReturnCursor the
// live cursor is returned and the caller must close it; otherwise the rows
// are materialized.
func (db *DB) ExecuteAQL(aql string, params any, opts *core.AQLOptions) (*core.AQLResult, error) {
	parsed, err := db.ParseAQL(aql, params)
	if err != nil {
		return nil, errors.NewError("executeAQL", "", err)
	}
	if opts == nil {
		opts = &core.AQLOptions{}
	}

	client, err := db.client()
	if err != nil {
		return nil, errors.NewError("executeAQL", "", err)
	}

	db.logger.Debug("aql", zap.String("query", parsed.Query), zap.Any("bindVars", parsed.Params))
	cursor, err := client.Query(db.ctx, parsed.Query, parsed.Params, &session.QueryOptions{
		Count:     opts.Count,
		BatchSize: opts.BatchSize,
	})
	if err != nil {
		return nil, errors.NewError("executeAQL", "", session.Unwrap(err))
	}

	if opts.Return == core.ReturnCursor {
		return &core.AQLResult{Cursor: cursor}, nil
	}

	rows, err := drain(db.ctx, cursor)
	if err != nil {
		return nil, errors.NewError("executeAQL", "", err)
	}
	return &core.AQLResult{Rows: rows}, nil
}

package arangorm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pay-theory/arangorm/internal/encryption"
	"github.com/pay-theory/arangorm/pkg/codec"
	"github.com/pay-theory/arangorm/pkg/core"
	"github.com/pay-theory/arangorm/pkg/errors"
	"github.com/pay-theory/arangorm/pkg/idgen"
	"github.com/pay-theory/arangorm/pkg/model"
	"github.com/pay-theory/arangorm/pkg/naming"
	"github.com/pay-theory/arangorm/pkg/query"
	"github.com/pay-theory/arangorm/pkg/session"
)

// countCollect aggregates matching documents into query.CountField.
const countCollect = "WITH COUNT INTO " + query.CountField

// All returns the records of modelName matching filter. A nil filter
// returns every document.
func (db *DB) All(modelName string, filter *query.Filter, opts *core.Options) ([]model.Record, error) {
	def, err := db.model(modelName)
	if err != nil {
		return nil, errors.NewError("all", modelName, err)
	}

	compiled, err := db.assembler.Assemble(def, filter)
	if err != nil {
		return nil, errors.NewError("all", modelName, err)
	}

	rows, err := db.run(compiled, nil)
	if err != nil {
		return nil, errors.NewError("all", modelName, err)
	}

	records, err := db.decodeAll(def, rows)
	if err != nil {
		return nil, errors.NewError("all", modelName, err)
	}
	return records, nil
}

// Find runs All and decodes the records into dest, a pointer to a slice of
// tagged structs.
func (db *DB) Find(modelName string, filter *query.Filter, dest any) error {
	records, err := db.All(modelName, filter, nil)
	if err != nil {
		return err
	}
	if err := db.marshaler.FromRecord(records, dest); err != nil {
		return errors.NewError("find", modelName, err)
	}
	return nil
}

// Create inserts a record. When the record has no key, or the model forces
// identifiers, the key is derived first: from the edge endpoints for models
// in unique mode, otherwise from the key property's strategy. An empty
// strategy leaves the key to the server.
func (db *DB) Create(modelName string, data model.Record, opts *core.Options) (*core.CreateResult, error) {
	def, err := db.model(modelName)
	if err != nil {
		return nil, errors.NewError("create", modelName, err)
	}
	if len(data) == 0 {
		return nil, errors.NewError("create", modelName, errors.ErrEmptyRecord)
	}

	rec := cloneRecord(data)
	if err := deriveKey(def, rec); err != nil {
		return nil, errors.NewError("create", modelName, err)
	}

	doc, err := db.encode(def, rec)
	if err != nil {
		return nil, errors.NewError("create", modelName, err)
	}

	coll, err := db.collection(def)
	if err != nil {
		return nil, errors.NewError("create", modelName, err)
	}

	w := opts.WriteOptions(def.Settings)
	full := opts != nil && opts.Full
	if full {
		w.ReturnNew = true
	}

	db.logger.Debug("create", zap.String("collection", def.Collection()), zap.Any("document", doc))
	meta, err := coll.Save(db.ctx, doc, w)
	if err != nil {
		return nil, errors.NewError("create", modelName, session.Unwrap(err))
	}

	result := &core.CreateResult{}
	if key, ok := meta[naming.KeyColumn].(string); ok {
		result.Key = key
	}
	if full {
		if result.Record, err = db.decode(def, meta); err != nil {
			return nil, errors.NewError("create", modelName, err)
		}
	}
	return result, nil
}

// Save replaces the stored document identified by the record's key, or by
// its document handle, and returns the stored record.
func (db *DB) Save(modelName string, data model.Record, opts *core.Options) (model.Record, error) {
	def, err := db.model(modelName)
	if err != nil {
		return nil, errors.NewError("save", modelName, err)
	}
	if len(data) == 0 {
		return nil, errors.NewError("save", modelName, errors.ErrEmptyRecord)
	}

	rec := cloneRecord(data)
	key := recordKey(def, rec)
	if key == "" {
		return nil, errors.NewError("save", modelName, errors.ErrMissingKey)
	}
	if def.Property(naming.IDProperty) == nil {
		// an unmapped handle only addresses the document
		delete(rec, naming.IDProperty)
	}

	doc, err := db.encode(def, rec)
	if err != nil {
		return nil, errors.NewError("save", modelName, err)
	}

	coll, err := db.collection(def)
	if err != nil {
		return nil, errors.NewError("save", modelName, err)
	}

	w := opts.WriteOptions(def.Settings)
	w.ReturnNew = true

	stored, err := coll.Replace(db.ctx, key, doc, w)
	if err != nil {
		return nil, errors.NewError("save", modelName, session.Unwrap(err))
	}

	out, err := db.decode(def, stored)
	if err != nil {
		return nil, errors.NewError("save", modelName, err)
	}
	return out, nil
}

// ReplaceByID replaces the document addressed by id, which is either a bare
// key or a "collection/key" handle.
func (db *DB) ReplaceByID(modelName string, id any, data model.Record, opts *core.Options) (model.Record, error) {
	def, err := db.model(modelName)
	if err != nil {
		return nil, errors.NewError("replaceById", modelName, err)
	}

	rec := cloneRecord(data)
	if rec == nil {
		rec = model.Record{}
	}
	s := stringValue(id)
	if naming.IsHandle(s) {
		rec[def.HandleProperty()] = s
	} else {
		rec[def.KeyProperty()] = s
	}
	return db.Save(modelName, rec, opts)
}

// UpdateOrCreate updates the document matching the record's identifier
// properties and creates the record when nothing matched. The update and
// the insert are separate statements: concurrent callers racing on the same
// identifier may both insert, and at least one then fails with a duplicate
// key error.
func (db *DB) UpdateOrCreate(modelName string, data model.Record, opts *core.Options) (model.Record, error) {
	def, err := db.model(modelName)
	if err != nil {
		return nil, errors.NewError("updateOrCreate", modelName, err)
	}

	where := make(map[string]any, len(def.IDs))
	for _, id := range def.IDs {
		v, ok := data[id]
		if !ok || isEmptyValue(v) {
			return nil, errors.NewError("updateOrCreate", modelName, fmt.Errorf("%w (%s)", errors.ErrMissingID, id))
		}
		where[id] = v
	}

	updateOpts := cloneOptions(opts)
	updateOpts.ReturnValue = core.ReturnNew
	updated, err := db.Update(modelName, where, data, updateOpts)
	if err != nil {
		return nil, err
	}
	if len(updated.Records) > 0 {
		return updated.Records[0], nil
	}

	createOpts := cloneOptions(opts)
	createOpts.Full = true
	created, err := db.Create(modelName, data, createOpts)
	if err != nil {
		return nil, err
	}
	return created.Record, nil
}

// Upsert is an alias of UpdateOrCreate
func (db *DB) Upsert(modelName string, data model.Record, opts *core.Options) (model.Record, error) {
	return db.UpdateOrCreate(modelName, data, opts)
}

// Update writes the properties of data to every document matching where.
// A nil where is rejected before anything is sent; pass an empty map to
// update every document.
func (db *DB) Update(modelName string, where map[string]any, data model.Record, opts *core.Options) (*core.UpdateResult, error) {
	if where == nil {
		return nil, errors.NewError("update", modelName, errors.ErrMissingWhere)
	}

	def, err := db.model(modelName)
	if err != nil {
		return nil, errors.NewError("update", modelName, err)
	}

	fields, err := codec.EncodeFields(def, data)
	if err != nil {
		return nil, errors.NewError("update", modelName, err)
	}
	if err := encryption.EncryptFields(db.ctx, db.crypto, def, fields); err != nil {
		return nil, errors.NewError("update", modelName, err)
	}

	compiled, err := db.assembler.AssembleUpdate(def, &query.Filter{Where: where}, fields)
	if err != nil {
		return nil, errors.NewError("update", modelName, err)
	}

	rows, err := db.run(compiled, &session.QueryOptions{Count: true})
	if err != nil {
		return nil, errors.NewError("update", modelName, err)
	}

	result := &core.UpdateResult{Count: len(rows)}
	if opts.ReturnsNew() {
		if result.Records, err = db.decodeAll(def, rows); err != nil {
			return nil, errors.NewError("update", modelName, err)
		}
	}
	return result, nil
}

// UpdateAll is an alias of Update
func (db *DB) UpdateAll(modelName string, where map[string]any, data model.Record, opts *core.Options) (*core.UpdateResult, error) {
	return db.Update(modelName, where, data, opts)
}

// UpdateAttributes updates the document with the given key or handle.
func (db *DB) UpdateAttributes(modelName string, id any, data model.Record, opts *core.Options) (*core.UpdateResult, error) {
	def, err := db.model(modelName)
	if err != nil {
		return nil, errors.NewError("updateAttributes", modelName, err)
	}
	_, key := naming.SplitHandle(stringValue(id))
	if key == "" {
		return nil, errors.NewError("updateAttributes", modelName, errors.ErrMissingKey)
	}
	return db.Update(modelName, map[string]any{def.KeyProperty(): key}, data, opts)
}

// DestroyAll deletes the documents matching where and returns how many were
// removed. An empty where truncates the collection and returns the number
// of documents it held. Otherwise the matching keys are read first and
// deleted one per request; documents written between the two steps are not
// considered. A failed delete stops the batch and the returned error is an
// *errors.BatchError reporting how many were deleted.
func (db *DB) DestroyAll(modelName string, where map[string]any, opts *core.Options) (int64, error) {
	def, err := db.model(modelName)
	if err != nil {
		return 0, errors.NewError("destroyAll", modelName, err)
	}

	coll, err := db.collection(def)
	if err != nil {
		return 0, errors.NewError("destroyAll", modelName, err)
	}

	if len(where) == 0 {
		n, err := coll.Count(db.ctx)
		if err != nil {
			return 0, errors.NewError("destroyAll", modelName, session.Unwrap(err))
		}
		if err := coll.Truncate(db.ctx); err != nil {
			return 0, errors.NewError("destroyAll", modelName, session.Unwrap(err))
		}
		db.logger.Debug("truncated", zap.String("collection", def.Collection()), zap.Int64("count", n))
		return n, nil
	}

	keyProp := def.KeyProperty()
	records, err := db.All(modelName, &query.Filter{Where: where, Fields: []string{keyProp}}, nil)
	if err != nil {
		return 0, err
	}

	keys := make([]string, 0, len(records))
	for _, rec := range records {
		if key := stringValue(rec[keyProp]); key != "" {
			keys = append(keys, key)
		}
	}

	exec := core.NewBatchDeleteExecutor(coll, db.deleteLimit, opts.WriteOptions(def.Settings))
	deleted, err := exec.Delete(db.ctx, keys)
	if err != nil {
		return deleted, errors.NewError("destroyAll", modelName, err)
	}
	return deleted, nil
}

// Count returns the number of documents matching where; 0 when none match.
func (db *DB) Count(modelName string, where map[string]any, opts *core.Options) (int64, error) {
	def, err := db.model(modelName)
	if err != nil {
		return 0, errors.NewError("count", modelName, err)
	}

	compiled, err := db.assembler.Assemble(def, &query.Filter{
		Where:   where,
		Fields:  []string{query.CountField},
		Collect: []string{countCollect},
	})
	if err != nil {
		return 0, errors.NewError("count", modelName, err)
	}

	rows, err := db.run(compiled, nil)
	if err != nil {
		return 0, errors.NewError("count", modelName, err)
	}
	if len(rows) == 0 || rows[0]["count"] == nil {
		return 0, nil
	}

	n, err := codec.ToFloat(rows[0]["count"])
	if err != nil {
		return 0, errors.NewError("count", modelName, err)
	}
	return int64(n), nil
}

// run executes a compiled statement and materializes its rows.
func (db *DB) run(compiled *query.Compiled, opts *session.QueryOptions) ([]map[string]any, error) {
	client, err := db.client()
	if err != nil {
		return nil, err
	}

	if ce := db.logger.Check(zap.DebugLevel, "aql"); ce != nil {
		fields := []zap.Field{zap.String("query", compiled.Query), zap.Any("bindVars", compiled.Params)}
		if compiled.Index != nil {
			fields = append(fields, zap.Strings("index", compiled.Index.Fields), zap.Bool("edgeIndex", compiled.EdgeIndex))
		}
		ce.Write(fields...)
	}

	cursor, err := client.Query(db.ctx, compiled.Query, compiled.Params, opts)
	if err != nil {
		return nil, session.Unwrap(err)
	}
	return drain(db.ctx, cursor)
}

func drain(ctx context.Context, cursor session.Cursor) ([]map[string]any, error) {
	if cursor == nil {
		return nil, nil
	}
	rows, err := cursor.All(ctx)
	closeErr := cursor.Close(ctx)
	if err != nil {
		return nil, session.Unwrap(err)
	}
	if closeErr != nil {
		return nil, session.Unwrap(closeErr)
	}
	return rows, nil
}

func (db *DB) encode(def *model.Definition, rec model.Record) (map[string]any, error) {
	doc, err := codec.EncodeRecord(def, rec)
	if err != nil {
		return nil, err
	}
	if err := encryption.EncryptDocument(db.ctx, db.crypto, def, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (db *DB) decode(def *model.Definition, doc map[string]any) (model.Record, error) {
	if doc == nil {
		return nil, nil
	}
	if err := encryption.DecryptDocument(db.ctx, db.crypto, def, doc); err != nil {
		return nil, err
	}
	return codec.DecodeRecord(def, doc), nil
}

func (db *DB) decodeAll(def *model.Definition, rows []map[string]any) ([]model.Record, error) {
	out := make([]model.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := db.decode(def, row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// deriveKey fills the key property of a new record when it is absent or
// the model forces identifiers.
func deriveKey(def *model.Definition, rec model.Record) error {
	keyProp := def.KeyProperty()
	if !def.Settings.ForceID && !isEmptyValue(rec[keyProp]) {
		return nil
	}

	if def.Settings.Unique {
		rec[keyProp] = idgen.EdgeKey(stringValue(rec[def.FromProperty()]), stringValue(rec[def.ToProperty()]))
		return nil
	}

	var strategy string
	if p := def.Property(keyProp); p != nil {
		strategy = p.DefaultFn
	}
	key, err := idgen.Generate(strategy)
	if err != nil {
		return err
	}
	if key == "" {
		delete(rec, keyProp)
		return nil
	}
	rec[keyProp] = key
	return nil
}

// recordKey returns the key addressed by a record: its key property, or the
// key part of its handle.
func recordKey(def *model.Definition, rec model.Record) string {
	if key := stringValue(rec[def.KeyProperty()]); key != "" {
		return key
	}
	if handle := stringValue(rec[def.HandleProperty()]); handle != "" {
		_, key := naming.SplitHandle(handle)
		rec[def.KeyProperty()] = key
		return key
	}
	return ""
}

func cloneRecord(rec model.Record) model.Record {
	if rec == nil {
		return nil
	}
	out := make(model.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func cloneOptions(opts *core.Options) *core.Options {
	if opts == nil {
		return &core.Options{}
	}
	cp := *opts
	return &cp
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func isEmptyValue(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return s == ""
	default:
		return false
	}
}

// CreateStruct inserts a tagged struct. With opts.Full the stored record is
// decoded back into v, which must then be a pointer.
func (db *DB) CreateStruct(modelName string, v any, opts *core.Options) (*core.CreateResult, error) {
	rec, err := db.marshaler.ToRecord(v)
	if err != nil {
		return nil, errors.NewError("create", modelName, err)
	}
	res, err := db.Create(modelName, rec, opts)
	if err != nil {
		return nil, err
	}
	if res.Record != nil {
		if err := db.marshaler.FromRecord(res.Record, v); err != nil {
			return nil, errors.NewError("create", modelName, err)
		}
	}
	return res, nil
}

// SaveStruct replaces the document addressed by the key of v, a pointer to
// a tagged struct, and refreshes v from the stored record.
func (db *DB) SaveStruct(modelName string, v any, opts *core.Options) error {
	rec, err := db.marshaler.ToRecord(v)
	if err != nil {
		return errors.NewError("save", modelName, err)
	}
	stored, err := db.Save(modelName, rec, opts)
	if err != nil {
		return err
	}
	if err := db.marshaler.FromRecord(stored, v); err != nil {
		return errors.NewError("save", modelName, err)
	}
	return nil
}

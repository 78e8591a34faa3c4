// Package core defines the core interfaces and types for arangorm
package core

import (
	"context"

	"github.com/pay-theory/arangorm/pkg/model"
	"github.com/pay-theory/arangorm/pkg/query"
	"github.com/pay-theory/arangorm/pkg/session"
)

// DB represents the connector surface consumed by the ORM layer.
//
// Multi-step operations (UpdateOrCreate, DestroyAll with a filter) issue
// several statements without a transaction; concurrent writers may observe
// or cause intermediate states.
type DB interface {
	// Define registers a model, applying reserved-field defaulting
	Define(def *model.Definition) error

	// DefineProperty adds a property to a registered model
	DefineProperty(modelName, name string, prop *model.Property) error

	// Connect opens the session; concurrent callers share one attempt
	Connect() error

	// Ping checks that the database answers
	Ping() error

	// Disconnect drops the session
	Disconnect() error

	// All returns the records matching filter
	All(modelName string, filter *query.Filter, opts *Options) ([]model.Record, error)

	// Create inserts a record, deriving its key when needed
	Create(modelName string, data model.Record, opts *Options) (*CreateResult, error)

	// Save replaces the stored document identified by the record's key or id
	Save(modelName string, data model.Record, opts *Options) (model.Record, error)

	// ReplaceByID replaces the document with the given key or handle
	ReplaceByID(modelName string, id any, data model.Record, opts *Options) (model.Record, error)

	// UpdateOrCreate updates by identifier, creating the record when nothing matched
	UpdateOrCreate(modelName string, data model.Record, opts *Options) (model.Record, error)

	// Upsert is an alias of UpdateOrCreate
	Upsert(modelName string, data model.Record, opts *Options) (model.Record, error)

	// Update applies data to every document matching where. A nil where is
	// rejected; pass an empty map to update all documents.
	Update(modelName string, where map[string]any, data model.Record, opts *Options) (*UpdateResult, error)

	// UpdateAll is an alias of Update
	UpdateAll(modelName string, where map[string]any, data model.Record, opts *Options) (*UpdateResult, error)

	// UpdateAttributes updates the document with the given key
	UpdateAttributes(modelName string, id any, data model.Record, opts *Options) (*UpdateResult, error)

	// DestroyAll deletes matching documents, truncating when where is empty
	DestroyAll(modelName string, where map[string]any, opts *Options) (int64, error)

	// Count returns the number of matching documents
	Count(modelName string, where map[string]any, opts *Options) (int64, error)

	// ExecuteAQL runs raw AQL with positional ([]any) or named (map) parameters
	ExecuteAQL(aql string, params any, opts *AQLOptions) (*AQLResult, error)

	// WithContext returns a new DB instance with the given context
	WithContext(ctx context.Context) DB
}

// Return values for Options.ReturnValue
const (
	ReturnCount = "count"
	ReturnNew   = "new"
)

// Options are per-call operation options. Zero values fall back to the
// model settings.
type Options struct {
	// Full makes Create return the stored record rather than only its key.
	Full bool
	// ReturnValue selects "count" (default) or "new" for updates.
	ReturnValue string

	WaitForSync *bool
	ReturnNew   *bool
	Silent      *bool
	Rev         string
	Policy      string
}

// WriteOptions merges per-call options over the model settings.
func (o *Options) WriteOptions(settings model.Settings) *session.WriteOptions {
	w := &session.WriteOptions{
		WaitForSync: settings.WaitForSync,
		ReturnNew:   settings.ReturnNew,
		Silent:      settings.Silent,
		Rev:         settings.Rev,
		Policy:      settings.Policy,
	}
	if o == nil {
		return w
	}
	if o.WaitForSync != nil {
		w.WaitForSync = *o.WaitForSync
	}
	if o.ReturnNew != nil {
		w.ReturnNew = *o.ReturnNew
	}
	if o.Silent != nil {
		w.Silent = *o.Silent
	}
	if o.Rev != "" {
		w.Rev = o.Rev
	}
	if o.Policy != "" {
		w.Policy = o.Policy
	}
	return w
}

// ReturnsNew reports whether updates should return the new documents.
func (o *Options) ReturnsNew() bool {
	return o != nil && o.ReturnValue == ReturnNew
}

// CreateResult is the outcome of Create
type CreateResult struct {
	Key string
	// Record is set when Options.Full was requested.
	Record model.Record
}

// UpdateResult is the outcome of Update and UpdateAttributes
type UpdateResult struct {
	Count   int
	Records []model.Record
}

// ReturnCursor makes ExecuteAQL return the live cursor.
const ReturnCursor = "cursor"

// AQLOptions tune ExecuteAQL
type AQLOptions struct {
	Return    string
	Count     bool
	BatchSize int
}

// AQLResult holds either materialized rows or a live cursor
type AQLResult struct {
	Rows   []map[string]any
	Cursor session.Cursor
}

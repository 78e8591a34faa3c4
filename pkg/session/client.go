package session

import "context"

// Collection kinds
const (
	DocumentCollection = "document"
	EdgeCollection     = "edge"
)

// Client is the subset of the database driver the ORM depends on
type Client interface {
	// Info returns the current database descriptor.
	Info(ctx context.Context) (map[string]any, error)
	// Query runs AQL with bind variables and returns a cursor over the result.
	Query(ctx context.Context, aql string, bindVars map[string]any, opts *QueryOptions) (Cursor, error)
	// Collection returns a handle on a document or edge collection.
	Collection(name, kind string) Collection
}

// Cursor iterates a query result
type Cursor interface {
	// All drains the remaining batches.
	All(ctx context.Context) ([]map[string]any, error)
	// Count is the full result size when requested, else -1.
	Count() int64
	Close(ctx context.Context) error
}

// Collection is a handle on a single collection
type Collection interface {
	Name() string
	Save(ctx context.Context, doc map[string]any, opts *WriteOptions) (map[string]any, error)
	Replace(ctx context.Context, key string, doc map[string]any, opts *WriteOptions) (map[string]any, error)
	// RemoveByKeys deletes the given keys and returns how many were removed.
	RemoveByKeys(ctx context.Context, keys []string, opts *WriteOptions) (int, error)
	Truncate(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
	CreateIndex(ctx context.Context, idx IndexOptions) error
	Create(ctx context.Context) error
	Drop(ctx context.Context) error
	Load(ctx context.Context) error
}

// QueryOptions tunes cursor creation
type QueryOptions struct {
	Count     bool
	BatchSize int
}

// WriteOptions are passed through to document writes
type WriteOptions struct {
	WaitForSync bool
	ReturnNew   bool
	Silent      bool
	// Rev makes the write conditional on the stored revision.
	Rev    string
	Policy string
}

// IndexOptions describes an index to ensure on a collection
type IndexOptions struct {
	Type        string   `json:"type"`
	Fields      []string `json:"fields"`
	Unique      bool     `json:"unique,omitempty"`
	Sparse      bool     `json:"sparse,omitempty"`
	Deduplicate bool     `json:"deduplicate,omitempty"`
}

package core

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/pay-theory/arangorm/pkg/errors"
	"github.com/pay-theory/arangorm/pkg/session"
)

// DefaultDeleteConcurrency bounds in-flight deletes when no limit is set
const DefaultDeleteConcurrency = 8

// BatchDeleteExecutor deletes documents one key per request with bounded
// parallelism
type BatchDeleteExecutor struct {
	collection session.Collection
	limit      int
	opts       *session.WriteOptions
}

// NewBatchDeleteExecutor creates a new batch delete executor
func NewBatchDeleteExecutor(collection session.Collection, limit int, opts *session.WriteOptions) *BatchDeleteExecutor {
	if limit <= 0 {
		limit = DefaultDeleteConcurrency
	}
	return &BatchDeleteExecutor{collection: collection, limit: limit, opts: opts}
}

// Delete removes every key. After the first failure no further deletes are
// scheduled; deletes already in flight finish and are counted. On failure
// the returned *errors.BatchError carries the number deleted, the total and
// every observed error.
func (e *BatchDeleteExecutor) Delete(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	var (
		deleted atomic.Int64
		stopped atomic.Bool
		mu      sync.Mutex
		failed  []error
	)

	var g errgroup.Group
	g.SetLimit(e.limit)

	for _, key := range keys {
		// Go blocks at the limit.
		if stopped.Load() {
			break
		}
		if err := ctx.Err(); err != nil {
			mu.Lock()
			failed = append(failed, err)
			mu.Unlock()
			break
		}
		g.Go(func() error {
			if stopped.Load() {
				return nil
			}
			n, err := e.collection.RemoveByKeys(ctx, []string{key}, e.opts)
			if err != nil {
				stopped.Store(true)
				err = fmt.Errorf("delete %s/%s: %w", e.collection.Name(), key, session.Unwrap(err))
				mu.Lock()
				failed = append(failed, err)
				mu.Unlock()
				return err
			}
			deleted.Add(int64(n))
			return nil
		})
	}

	_ = g.Wait()
	if len(failed) == 0 {
		return deleted.Load(), nil
	}

	return deleted.Load(), &errors.BatchError{
		Deleted: int(deleted.Load()),
		Total:   len(keys),
		Err:     stderrors.Join(failed...),
	}
}

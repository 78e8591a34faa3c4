package core_test

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pay-theory/arangorm/pkg/core"
	"github.com/pay-theory/arangorm/pkg/errors"
	"github.com/pay-theory/arangorm/pkg/model"
	"github.com/pay-theory/arangorm/pkg/session"
)

type removeOnlyCollection struct {
	session.Collection

	mu       sync.Mutex
	removed  []string
	inflight atomic.Int32
	peak     atomic.Int32
	failOn   map[string]error
}

func (c *removeOnlyCollection) Name() string { return "people" }

func (c *removeOnlyCollection) RemoveByKeys(_ context.Context, keys []string, _ *session.WriteOptions) (int, error) {
	n := c.inflight.Add(1)
	defer c.inflight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if err := c.failOn[keys[0]]; err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.removed = append(c.removed, keys...)
	c.mu.Unlock()
	return len(keys), nil
}

func keys(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('a' + i))
	}
	return out
}

func TestBatchDeleteRemovesEveryKey(t *testing.T) {
	coll := &removeOnlyCollection{}
	deleted, err := core.NewBatchDeleteExecutor(coll, 3, nil).Delete(context.Background(), keys(10))
	require.NoError(t, err)
	assert.Equal(t, int64(10), deleted)

	sort.Strings(coll.removed)
	assert.Equal(t, keys(10), coll.removed)
	assert.LessOrEqual(t, coll.peak.Load(), int32(3))
}

func TestBatchDeleteEmpty(t *testing.T) {
	deleted, err := core.NewBatchDeleteExecutor(&removeOnlyCollection{}, 0, nil).Delete(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestBatchDeleteStopsAfterFailure(t *testing.T) {
	boom := stderrors.New("write-write conflict")
	coll := &removeOnlyCollection{failOn: map[string]error{"b": boom}}

	deleted, err := core.NewBatchDeleteExecutor(coll, 1, nil).Delete(context.Background(), keys(6))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrBatchOperationFailed)
	assert.ErrorIs(t, err, boom)

	be, ok := errors.AsBatchError(err)
	require.True(t, ok)
	assert.Equal(t, 6, be.Total)
	assert.Equal(t, 1, be.Deleted)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, []string{"a"}, coll.removed)
}

func TestBatchDeleteCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	deleted, err := core.NewBatchDeleteExecutor(&removeOnlyCollection{}, 2, nil).Delete(ctx, keys(3))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, deleted)
}

func TestOptionsWriteOptions(t *testing.T) {
	yes, no := true, false
	var nilOpts *core.Options
	w := nilOpts.WriteOptions(model.Settings{WaitForSync: true, Rev: "r1"})
	assert.True(t, w.WaitForSync)
	assert.Equal(t, "r1", w.Rev)
	assert.False(t, nilOpts.ReturnsNew())

	opts := &core.Options{WaitForSync: &no, ReturnNew: &yes, Rev: "r2", Policy: "replace", ReturnValue: core.ReturnNew}
	w = opts.WriteOptions(model.Settings{WaitForSync: true, Rev: "r1"})
	assert.False(t, w.WaitForSync)
	assert.True(t, w.ReturnNew)
	assert.Equal(t, "r2", w.Rev)
	assert.Equal(t, "replace", w.Policy)
	assert.True(t, opts.ReturnsNew())
}

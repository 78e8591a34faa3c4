package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pay-theory/arangorm/pkg/session"
)

// MockClient is a mock implementation of session.Client.
type MockClient struct {
	mock.Mock
}

var _ session.Client = (*MockClient)(nil)

func (m *MockClient) Info(ctx context.Context) (map[string]any, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *MockClient) Query(ctx context.Context, aql string, bindVars map[string]any, opts *session.QueryOptions) (session.Cursor, error) {
	args := m.Called(ctx, aql, bindVars, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(session.Cursor), args.Error(1)
}

func (m *MockClient) Collection(name, kind string) session.Collection {
	args := m.Called(name, kind)
	return args.Get(0).(session.Collection)
}

// MockCursor is a mock implementation of session.Cursor.
type MockCursor struct {
	mock.Mock
}

var _ session.Cursor = (*MockCursor)(nil)

func (m *MockCursor) All(ctx context.Context) ([]map[string]any, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]any), args.Error(1)
}

func (m *MockCursor) Count() int64 {
	args := m.Called()
	return args.Get(0).(int64)
}

func (m *MockCursor) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockCollection is a mock implementation of session.Collection.
type MockCollection struct {
	mock.Mock
}

var _ session.Collection = (*MockCollection)(nil)

func (m *MockCollection) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockCollection) Save(ctx context.Context, doc map[string]any, opts *session.WriteOptions) (map[string]any, error) {
	args := m.Called(ctx, doc, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *MockCollection) Replace(ctx context.Context, key string, doc map[string]any, opts *session.WriteOptions) (map[string]any, error) {
	args := m.Called(ctx, key, doc, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *MockCollection) RemoveByKeys(ctx context.Context, keys []string, opts *session.WriteOptions) (int, error) {
	args := m.Called(ctx, keys, opts)
	return args.Int(0), args.Error(1)
}

func (m *MockCollection) Truncate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCollection) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCollection) CreateIndex(ctx context.Context, idx session.IndexOptions) error {
	args := m.Called(ctx, idx)
	return args.Error(0)
}

func (m *MockCollection) Create(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCollection) Drop(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCollection) Load(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// NewCursor returns a cursor mock that yields rows once and closes cleanly.
func NewCursor(rows []map[string]any) *MockCursor {
	c := new(MockCursor)
	c.On("All", mock.Anything).Return(rows, nil)
	c.On("Count").Return(int64(len(rows))).Maybe()
	c.On("Close", mock.Anything).Return(nil).Maybe()
	return c
}

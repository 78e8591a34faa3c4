package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pay-theory/arangorm/pkg/core"
	"github.com/pay-theory/arangorm/pkg/model"
	"github.com/pay-theory/arangorm/pkg/query"
)

// MockDB is a mock implementation of the core.DB interface.
type MockDB struct {
	mock.Mock
}

var _ core.DB = (*MockDB)(nil)

func (m *MockDB) Define(def *model.Definition) error {
	args := m.Called(def)
	return args.Error(0)
}

func (m *MockDB) DefineProperty(modelName, name string, prop *model.Property) error {
	args := m.Called(modelName, name, prop)
	return args.Error(0)
}

func (m *MockDB) Connect() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDB) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDB) Disconnect() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDB) All(modelName string, filter *query.Filter, opts *core.Options) ([]model.Record, error) {
	args := m.Called(modelName, filter, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Record), args.Error(1)
}

func (m *MockDB) Create(modelName string, data model.Record, opts *core.Options) (*core.CreateResult, error) {
	args := m.Called(modelName, data, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.CreateResult), args.Error(1)
}

func (m *MockDB) Save(modelName string, data model.Record, opts *core.Options) (model.Record, error) {
	args := m.Called(modelName, data, opts)
	return record(args.Get(0)), args.Error(1)
}

func (m *MockDB) ReplaceByID(modelName string, id any, data model.Record, opts *core.Options) (model.Record, error) {
	args := m.Called(modelName, id, data, opts)
	return record(args.Get(0)), args.Error(1)
}

func (m *MockDB) UpdateOrCreate(modelName string, data model.Record, opts *core.Options) (model.Record, error) {
	args := m.Called(modelName, data, opts)
	return record(args.Get(0)), args.Error(1)
}

func (m *MockDB) Upsert(modelName string, data model.Record, opts *core.Options) (model.Record, error) {
	args := m.Called(modelName, data, opts)
	return record(args.Get(0)), args.Error(1)
}

func (m *MockDB) Update(modelName string, where map[string]any, data model.Record, opts *core.Options) (*core.UpdateResult, error) {
	args := m.Called(modelName, where, data, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.UpdateResult), args.Error(1)
}

func (m *MockDB) UpdateAll(modelName string, where map[string]any, data model.Record, opts *core.Options) (*core.UpdateResult, error) {
	args := m.Called(modelName, where, data, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.UpdateResult), args.Error(1)
}

func (m *MockDB) UpdateAttributes(modelName string, id any, data model.Record, opts *core.Options) (*core.UpdateResult, error) {
	args := m.Called(modelName, id, data, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.UpdateResult), args.Error(1)
}

func (m *MockDB) DestroyAll(modelName string, where map[string]any, opts *core.Options) (int64, error) {
	args := m.Called(modelName, where, opts)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDB) Count(modelName string, where map[string]any, opts *core.Options) (int64, error) {
	args := m.Called(modelName, where, opts)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDB) ExecuteAQL(aql string, params any, opts *core.AQLOptions) (*core.AQLResult, error) {
	args := m.Called(aql, params, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.AQLResult), args.Error(1)
}

// WithContext returns the mock itself unless an expectation supplies another DB
func (m *MockDB) WithContext(ctx context.Context) core.DB {
	args := m.Called(ctx)
	if db, ok := args.Get(0).(core.DB); ok {
		return db
	}
	return m
}

func record(v any) model.Record {
	if v == nil {
		return nil
	}
	return v.(model.Record)
}

package testing

import (
	"strings"

	"github.com/stretchr/testify/mock"

	"github.com/pay-theory/arangorm/pkg/mocks"
)

// TestClient is a MockClient with helpers for scripting queries and
// collection handles.
type TestClient struct {
	*mocks.MockClient
	collections map[string]*mocks.MockCollection
}

// NewTestClient returns a client that answers Info.
func NewTestClient() *TestClient {
	c := &TestClient{
		MockClient:  new(mocks.MockClient),
		collections: make(map[string]*mocks.MockCollection),
	}
	c.On("Info", mock.Anything).Return(map[string]any{"name": "test"}, nil).Maybe()
	return c
}

// ExpectCollection returns the mock handle for name, registering it on
// first use.
func (c *TestClient) ExpectCollection(name string) *mocks.MockCollection {
	if coll, ok := c.collections[name]; ok {
		return coll
	}
	coll := new(mocks.MockCollection)
	coll.On("Name").Return(name).Maybe()
	c.On("Collection", name, mock.Anything).Return(coll).Maybe()
	c.collections[name] = coll
	return coll
}

// ExpectQuery expects one query whose text contains fragment and answers
// with rows.
func (c *TestClient) ExpectQuery(fragment string, rows []map[string]any) *mock.Call {
	return c.On("Query", mock.Anything, mock.MatchedBy(func(aql string) bool {
		return strings.Contains(aql, fragment)
	}), mock.Anything, mock.Anything).Return(mocks.NewCursor(rows), nil).Once()
}

// ExpectQueryError expects one query containing fragment that fails with err.
func (c *TestClient) ExpectQueryError(fragment string, err error) *mock.Call {
	return c.On("Query", mock.Anything, mock.MatchedBy(func(aql string) bool {
		return strings.Contains(aql, fragment)
	}), mock.Anything, mock.Anything).Return(nil, err).Once()
}

// Queries returns the AQL text of every Query call made so far.
func (c *TestClient) Queries() []string {
	var out []string
	for _, call := range c.Calls {
		if call.Method == "Query" {
			out = append(out, call.Arguments.String(1))
		}
	}
	return out
}

// BindVars returns the bind variables of the n-th Query call.
func (c *TestClient) BindVars(n int) map[string]any {
	i := 0
	for _, call := range c.Calls {
		if call.Method != "Query" {
			continue
		}
		if i == n {
			vars, _ := call.Arguments.Get(2).(map[string]any)
			return vars
		}
		i++
	}
	return nil
}

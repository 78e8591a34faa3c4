package testing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	arangotesting "github.com/pay-theory/arangorm/pkg/testing"
)

func TestTestClientScriptsQueries(t *testing.T) {
	client := arangotesting.NewTestClient()
	client.ExpectQuery("COLLECT WITH COUNT", []map[string]any{{"count": 2.0}})
	boom := errors.New("boom")
	client.ExpectQueryError("REMOVE", boom)

	cur, err := client.Query(context.Background(), "FOR e IN employees COLLECT WITH COUNT INTO count_ RETURN {count: count_}",
		map[string]any{"p1": 1}, nil)
	require.NoError(t, err)
	rows, err := cur.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2.0, rows[0]["count"])

	_, err = client.Query(context.Background(), "FOR e IN employees REMOVE e IN employees", nil, nil)
	assert.ErrorIs(t, err, boom)

	assert.Len(t, client.Queries(), 2)
	assert.Equal(t, map[string]any{"p1": 1}, client.BindVars(0))
	assert.Nil(t, client.BindVars(5))
	client.AssertExpectations(t)
}

func TestTestClientCollections(t *testing.T) {
	client := arangotesting.NewTestClient()
	coll := client.ExpectCollection("employees")
	assert.Same(t, coll, client.ExpectCollection("employees"))

	got := client.Collection("employees", "document")
	assert.Same(t, coll, got)
	assert.Equal(t, "employees", got.Name())
}

func TestFixturesDefine(t *testing.T) {
	reg := arangotesting.Registry(
		arangotesting.EmployeeModel(),
		arangotesting.PlaceModel(),
		arangotesting.FollowsModel(true),
	)
	assert.ElementsMatch(t, []string{"Employee", "Place", "Follows"}, reg.Names())

	follows, err := reg.Get("Follows")
	require.NoError(t, err)
	assert.True(t, follows.IsEdge())
	assert.Equal(t, "_from", follows.ToStorageName("from"))

	employee, err := reg.Get("Employee")
	require.NoError(t, err)
	assert.Equal(t, "_key", employee.ToStorageName("key"))
	assert.Equal(t, "uuidv4", employee.Property("key").DefaultFn)
}

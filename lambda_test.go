package arangorm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	arangotesting "github.com/pay-theory/arangorm/pkg/testing"
)

func resetLambdaDB() {
	globalLambdaDB = nil
	globalLambdaErr = nil
	lambdaOnce = sync.Once{}
}

func TestNewLambdaOptimizedReusesInstance(t *testing.T) {
	resetLambdaDB()
	t.Cleanup(resetLambdaDB)
	t.Setenv(ConfigFileEnv, "")
	t.Setenv("ARANGORM_DATABASE", "orders")

	client := arangotesting.NewTestClient()
	first, err := NewLambdaOptimized(WithClient(client.MockClient))
	require.NoError(t, err)
	second, err := NewLambdaOptimized()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "orders", first.Session().Config().Database)
	assert.True(t, first.Session().Config().LazyConnect)
	assert.Equal(t, 5*time.Second, first.Session().Config().Timeout)
}

func TestPreDefine(t *testing.T) {
	resetLambdaDB()
	t.Cleanup(resetLambdaDB)
	t.Setenv(ConfigFileEnv, "")

	ldb, err := NewLambdaOptimized(WithClient(arangotesting.NewTestClient().MockClient))
	require.NoError(t, err)

	require.NoError(t, ldb.PreDefine(arangotesting.EmployeeModel(), arangotesting.PlaceModel()))
	assert.True(t, ldb.IsModelDefined("Employee"))
	assert.False(t, ldb.IsModelDefined("Follows"))

	// a second warm start does not redefine
	require.NoError(t, ldb.PreDefine(arangotesting.EmployeeModel()))
	_, err = ldb.Registry().Get("Place")
	assert.NoError(t, err)
}

func TestWithLambdaTimeout(t *testing.T) {
	db, err := New(nil, WithClient(arangotesting.NewTestClient().MockClient))
	require.NoError(t, err)
	ldb := &LambdaDB{DB: db}

	bounded, cancel := ldb.WithLambdaTimeout(context.Background())
	cancel()
	_, hasDeadline := bounded.ctx.Deadline()
	assert.False(t, hasDeadline)

	ctx, stop := context.WithTimeout(context.Background(), 3*time.Second)
	defer stop()
	bounded, cancel = ldb.WithLambdaTimeout(ctx)
	defer cancel()

	remaining := GetRemainingTimeMillis(bounded.ctx)
	assert.Greater(t, remaining, int64(1000))
	assert.LessOrEqual(t, remaining, int64(2000))
	assert.Equal(t, int64(-1), GetRemainingTimeMillis(context.Background()))
}

func TestInvocationID(t *testing.T) {
	_, ok := InvocationID(context.Background())
	assert.False(t, ok)

	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-1"})
	id, ok := InvocationID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)
}

func TestIsLambdaEnvironment(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	if lambdacontext.FunctionName == "" {
		assert.False(t, IsLambdaEnvironment())
	}
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "orders-api")
	assert.True(t, IsLambdaEnvironment())
}

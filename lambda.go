// lambda.go
package arangorm

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/pay-theory/arangorm/pkg/model"
	"github.com/pay-theory/arangorm/pkg/session"
)

// ConfigFileEnv names the environment variable holding the config file path
// read by NewLambdaOptimized.
const ConfigFileEnv = "ARANGORM_CONFIG"

// lambdaTimeoutBuffer is kept free at the end of an invocation for cleanup.
const lambdaTimeoutBuffer = time.Second

var (
	// Global Lambda-optimized DB for connection reuse across warm starts
	globalLambdaDB *LambdaDB
	globalLambdaErr error
	lambdaOnce     sync.Once
)

// LambdaDB wraps DB with Lambda-specific behaviour
type LambdaDB struct {
	*DB
	defined        sync.Map
	isLambda       bool
	lambdaMemoryMB int
}

// NewLambdaOptimized returns the process-wide DB, creating it on the cold
// start. Configuration comes from the file named by ARANGORM_CONFIG and the
// ARANGORM_* environment. The connection is opened on first use so the cold
// start does not wait for the database.
func NewLambdaOptimized(opts ...Option) (*LambdaDB, error) {
	lambdaOnce.Do(func() {
		globalLambdaDB, globalLambdaErr = createLambdaDB(opts...)
	})
	return globalLambdaDB, globalLambdaErr
}

func createLambdaDB(opts ...Option) (*LambdaDB, error) {
	cfg, err := session.LoadConfig(os.Getenv(ConfigFileEnv))
	if err != nil {
		return nil, err
	}
	cfg.LazyConnect = true
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	db, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}

	return &LambdaDB{
		DB:             db,
		isLambda:       IsLambdaEnvironment(),
		lambdaMemoryMB: GetLambdaMemoryMB(),
	}, nil
}

// PreDefine registers models at init time so invocations skip definition.
// Models already defined by an earlier warm start are left alone.
func (ldb *LambdaDB) PreDefine(defs ...*model.Definition) error {
	for _, def := range defs {
		if _, done := ldb.defined.Load(def.Name); done {
			continue
		}
		if err := ldb.Define(def); err != nil {
			return err
		}
		ldb.defined.Store(def.Name, true)
	}
	return nil
}

// IsModelDefined reports whether PreDefine registered the named model
func (ldb *LambdaDB) IsModelDefined(name string) bool {
	_, ok := ldb.defined.Load(name)
	return ok
}

// IsLambda reports whether the process runs inside AWS Lambda
func (ldb *LambdaDB) IsLambda() bool {
	return ldb.isLambda
}

// MemoryMB returns the memory allocated to the function, 0 outside Lambda
func (ldb *LambdaDB) MemoryMB() int {
	return ldb.lambdaMemoryMB
}

// WithLambdaTimeout returns a DB bound to ctx whose deadline ends one second
// before the invocation deadline. The returned cancel func must be called.
func (ldb *LambdaDB) WithLambdaTimeout(ctx context.Context) (*DB, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return ldb.withContext(ctx), func() {}
	}
	bounded, cancel := context.WithDeadline(ctx, deadline.Add(-lambdaTimeoutBuffer))
	return ldb.withContext(bounded), cancel
}

// InvocationID returns the AWS request ID carried by a handler context
func InvocationID(ctx context.Context) (string, bool) {
	lc, ok := lambdacontext.FromContext(ctx)
	if !ok {
		return "", false
	}
	return lc.AwsRequestID, true
}

// IsLambdaEnvironment detects if running in AWS Lambda
func IsLambdaEnvironment() bool {
	return lambdacontext.FunctionName != "" || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// GetLambdaMemoryMB returns the allocated memory in MB
func GetLambdaMemoryMB() int {
	return lambdacontext.MemoryLimitInMB
}

// GetRemainingTimeMillis returns milliseconds until the context deadline, or
// -1 without one
func GetRemainingTimeMillis(ctx context.Context) int64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return -1
	}
	return time.Until(deadline).Milliseconds()
}

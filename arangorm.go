// Package arangorm provides an ORM connector for ArangoDB in Go
package arangorm

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/pay-theory/arangorm/internal/encryption"
	"github.com/pay-theory/arangorm/internal/logging"
	"github.com/pay-theory/arangorm/pkg/core"
	"github.com/pay-theory/arangorm/pkg/errors"
	"github.com/pay-theory/arangorm/pkg/marshal"
	"github.com/pay-theory/arangorm/pkg/model"
	"github.com/pay-theory/arangorm/pkg/query"
	"github.com/pay-theory/arangorm/pkg/session"
)

// DefaultAQLCacheSize is the number of rewritten positional queries kept.
const DefaultAQLCacheSize = 256

// DB is the main arangorm database instance
type DB struct {
	session   *session.Session
	registry  *model.Registry
	assembler *query.Assembler
	marshaler *marshal.Marshaler
	crypto    *encryption.Service
	aqlCache  *lru.Cache[string, positional]
	logger    *zap.Logger
	ctx       context.Context

	deleteLimit int
}

var _ core.DB = (*DB)(nil)

type options struct {
	dial      session.Dialer
	logger    *zap.Logger
	crypto    *encryption.Service
	cacheSize int
}

// Option configures New.
type Option func(*options)

// WithDialer replaces the default HTTP dialer.
func WithDialer(dial session.Dialer) Option {
	return func(o *options) { o.dial = dial }
}

// WithClient makes every connection attempt use client.
func WithClient(client session.Client) Option {
	return WithDialer(func(context.Context, *session.Config) (session.Client, error) {
		return client, nil
	})
}

// WithLogger sets the logger. The default logs to stderr in debug mode and
// discards otherwise.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithEncryption sets the service used for properties marked encrypted,
// overriding the KMS settings of the config.
func WithEncryption(svc *encryption.Service) Option {
	return func(o *options) { o.crypto = svc }
}

// WithAQLCacheSize bounds the positional query rewrite cache.
func WithAQLCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// New creates a new arangorm instance. Unless cfg.LazyConnect is set the
// connection is opened before New returns.
func New(cfg *session.Config, opts ...Option) (*DB, error) {
	if cfg == nil {
		cfg = session.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{cacheSize: DefaultAQLCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		if cfg.Debug {
			o.logger = logging.New(true, false)
		} else {
			o.logger = zap.NewNop()
		}
	}

	ctx := context.Background()
	if o.crypto == nil && cfg.KMSKeyARN != "" {
		svc, err := encryption.NewServiceFromConfig(ctx, cfg.KMSKeyARN, cfg.KMSRegion, cfg.KMSRoleARN)
		if err != nil {
			return nil, fmt.Errorf("failed to configure encryption: %w", err)
		}
		o.crypto = svc
	}

	cache, err := lru.New[string, positional](max(o.cacheSize, 1))
	if err != nil {
		return nil, err
	}

	db := &DB{
		session:     session.NewSession(cfg, o.dial, o.logger),
		registry:    model.NewRegistry(),
		assembler:   query.NewAssembler(o.logger),
		marshaler:   marshal.New(),
		crypto:      o.crypto,
		aqlCache:    cache,
		logger:      o.logger,
		ctx:         ctx,
		deleteLimit: cfg.DeleteConcurrency,
	}

	if !cfg.LazyConnect {
		if err := db.Connect(); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// Session returns the underlying session
func (db *DB) Session() *session.Session {
	return db.session
}

// Registry returns the model registry
func (db *DB) Registry() *model.Registry {
	return db.registry
}

// Define registers a model, applying reserved-field defaulting. Models with
// encrypted properties are rejected when no encryption is configured.
func (db *DB) Define(def *model.Definition) error {
	if err := encryption.FailClosedIfEncryptedWithoutService(db.crypto, def); err != nil {
		return errors.NewError("define", def.Name, err)
	}
	if err := db.registry.Define(def); err != nil {
		name := ""
		if def != nil {
			name = def.Name
		}
		return errors.NewError("define", name, err)
	}
	db.logger.Debug("model defined",
		zap.String("model", def.Name),
		zap.String("collection", def.Collection()),
		zap.String("type", string(def.Settings.Kind)))
	return nil
}

// DefineStruct derives a model from a tagged struct and registers it under
// the struct's type name.
func (db *DB) DefineStruct(v any, settings model.Settings) (*model.Definition, error) {
	def, err := db.marshaler.Definition(v, "", settings)
	if err != nil {
		return nil, errors.NewError("define", fmt.Sprintf("%T", v), err)
	}
	if err := db.Define(def); err != nil {
		return nil, err
	}
	return def, nil
}

// DefineProperty adds a property to a registered model
func (db *DB) DefineProperty(modelName, name string, prop *model.Property) error {
	if prop == nil {
		prop = &model.Property{}
	}
	if err := db.registry.DefineProperty(modelName, name, prop); err != nil {
		return errors.NewError("defineProperty", modelName, err)
	}
	return nil
}

// Connect opens the session. Concurrent callers share one attempt.
func (db *DB) Connect() error {
	if _, err := db.session.Connect(db.ctx); err != nil {
		return errors.NewError("connect", "", session.Unwrap(err))
	}
	return nil
}

// Ping checks that the database answers, connecting first when needed
func (db *DB) Ping() error {
	if err := db.session.Ping(db.ctx); err != nil {
		return errors.NewError("ping", "", session.Unwrap(err))
	}
	return nil
}

// Disconnect drops the session. The next operation reconnects.
func (db *DB) Disconnect() error {
	db.session.Disconnect()
	return nil
}

// WithContext returns a new DB instance with the given context
func (db *DB) WithContext(ctx context.Context) core.DB {
	return db.withContext(ctx)
}

func (db *DB) withContext(ctx context.Context) *DB {
	cp := *db
	cp.ctx = ctx
	return &cp
}

func (db *DB) client() (session.Client, error) {
	client, err := db.session.Connect(db.ctx)
	if err != nil {
		return nil, session.Unwrap(err)
	}
	return client, nil
}

func (db *DB) model(name string) (*model.Definition, error) {
	return db.registry.Get(name)
}

func (db *DB) collection(def *model.Definition) (session.Collection, error) {
	client, err := db.client()
	if err != nil {
		return nil, err
	}
	return client.Collection(def.Collection(), string(def.Settings.Kind)), nil
}

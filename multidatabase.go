// multidatabase.go
package arangorm

import (
	"context"
	"fmt"
	"sync"

	"github.com/pay-theory/arangorm/pkg/model"
	"github.com/pay-theory/arangorm/pkg/session"
)

// TenantConfig overrides the base connection for one tenant database
type TenantConfig struct {
	Database string
	Username string
	Password string
}

// MultiDatabaseDB hands out one DB per tenant database on a shared server.
// Every tenant gets the models defined on the MultiDatabaseDB.
type MultiDatabaseDB struct {
	base    session.Config
	opts    []Option
	cache   *sync.Map
	mu      sync.RWMutex
	tenants map[string]TenantConfig
	defs    []*model.Definition
}

// NewMultiDatabase creates a multi-tenant DB over cfg. Tenant connections
// are opened lazily.
func NewMultiDatabase(cfg *session.Config, tenants map[string]TenantConfig, opts ...Option) (*MultiDatabaseDB, error) {
	if cfg == nil {
		cfg = session.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tenants == nil {
		tenants = make(map[string]TenantConfig)
	}
	return &MultiDatabaseDB{
		base:    *cfg,
		opts:    opts,
		cache:   &sync.Map{},
		tenants: tenants,
	}, nil
}

// Define registers models on every tenant, current and future
func (mdb *MultiDatabaseDB) Define(defs ...*model.Definition) error {
	mdb.mu.Lock()
	mdb.defs = append(mdb.defs, defs...)
	mdb.mu.Unlock()

	var err error
	mdb.cache.Range(func(_, value any) bool {
		db := value.(*DB)
		for _, def := range defs {
			if err = db.Define(def.Clone()); err != nil {
				return false
			}
		}
		return true
	})
	return err
}

// Tenant returns the DB for tenantID. An empty ID returns the base database.
func (mdb *MultiDatabaseDB) Tenant(tenantID string) (*DB, error) {
	if cached, ok := mdb.cache.Load(tenantID); ok {
		return cached.(*DB), nil
	}

	mdb.mu.RLock()
	tenant, ok := mdb.tenants[tenantID]
	defs := append([]*model.Definition(nil), mdb.defs...)
	mdb.mu.RUnlock()

	if !ok && tenantID != "" {
		return nil, fmt.Errorf("unknown tenant: %s", tenantID)
	}

	db, err := mdb.createTenantDB(tenant, defs)
	if err != nil {
		return nil, fmt.Errorf("failed to create tenant DB for %s: %w", tenantID, err)
	}

	actual, loaded := mdb.cache.LoadOrStore(tenantID, db)
	if loaded {
		db.Disconnect()
	}
	return actual.(*DB), nil
}

func (mdb *MultiDatabaseDB) createTenantDB(tenant TenantConfig, defs []*model.Definition) (*DB, error) {
	cfg := mdb.base
	cfg.LazyConnect = true
	if tenant.Database != "" {
		cfg.Database = tenant.Database
	}
	if tenant.Username != "" {
		cfg.Username = tenant.Username
		cfg.Password = tenant.Password
	}

	db, err := New(&cfg, mdb.opts...)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if err := db.Define(def.Clone()); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// AddTenant dynamically adds a tenant configuration
func (mdb *MultiDatabaseDB) AddTenant(tenantID string, cfg TenantConfig) {
	mdb.mu.Lock()
	defer mdb.mu.Unlock()
	mdb.tenants[tenantID] = cfg
}

// RemoveTenant removes a tenant and drops its cached connection
func (mdb *MultiDatabaseDB) RemoveTenant(tenantID string) {
	mdb.mu.Lock()
	delete(mdb.tenants, tenantID)
	mdb.mu.Unlock()

	if cached, ok := mdb.cache.LoadAndDelete(tenantID); ok {
		cached.(*DB).Disconnect()
	}
}

// Close disconnects every tenant
func (mdb *MultiDatabaseDB) Close() error {
	mdb.cache.Range(func(key, value any) bool {
		value.(*DB).Disconnect()
		mdb.cache.Delete(key)
		return true
	})
	return nil
}

// TenantContext adds the tenant ID to ctx
func TenantContext(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenantID)
}

// GetTenantFromContext retrieves the tenant ID from ctx
func GetTenantFromContext(ctx context.Context) string {
	if tenantID, ok := ctx.Value(tenantContextKey{}).(string); ok {
		return tenantID
	}
	return ""
}

// FromContext returns the tenant DB named by ctx, bound to ctx
func (mdb *MultiDatabaseDB) FromContext(ctx context.Context) (*DB, error) {
	db, err := mdb.Tenant(GetTenantFromContext(ctx))
	if err != nil {
		return nil, err
	}
	return db.withContext(ctx), nil
}

type tenantContextKey struct{}

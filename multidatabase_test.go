package arangorm_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pay-theory/arangorm"
	"github.com/pay-theory/arangorm/pkg/session"
	arangotesting "github.com/pay-theory/arangorm/pkg/testing"
)

func TestMultiDatabaseTenants(t *testing.T) {
	var mu sync.Mutex
	dialed := map[string]string{}
	dial := func(_ context.Context, cfg *session.Config) (session.Client, error) {
		mu.Lock()
		dialed[cfg.Database] = cfg.Username
		mu.Unlock()
		return arangotesting.NewTestClient().MockClient, nil
	}

	mdb, err := arangorm.NewMultiDatabase(nil, map[string]arangorm.TenantConfig{
		"acme": {Database: "acme", Username: "acme_rw", Password: "pw"},
	}, arangorm.WithDialer(dial))
	require.NoError(t, err)
	require.NoError(t, mdb.Define(arangotesting.EmployeeModel()))

	acme, err := mdb.Tenant("acme")
	require.NoError(t, err)
	again, err := mdb.Tenant("acme")
	require.NoError(t, err)
	assert.Same(t, acme, again)
	assert.Equal(t, "acme", acme.Session().Config().Database)

	_, err = acme.Registry().Get("Employee")
	assert.NoError(t, err)

	require.NoError(t, acme.Ping())
	assert.Equal(t, "acme_rw", dialed["acme"])

	base, err := mdb.Tenant("")
	require.NoError(t, err)
	assert.Equal(t, session.DefaultDatabase, base.Session().Config().Database)

	_, err = mdb.Tenant("globex")
	assert.Error(t, err)

	mdb.AddTenant("globex", arangorm.TenantConfig{Database: "globex"})
	ctx := arangorm.TenantContext(context.Background(), "globex")
	assert.Equal(t, "globex", arangorm.GetTenantFromContext(ctx))
	globex, err := mdb.FromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "globex", globex.Session().Config().Database)
	_, err = globex.Registry().Get("Employee")
	assert.NoError(t, err)

	mdb.RemoveTenant("acme")
	_, err = mdb.Tenant("acme")
	assert.Error(t, err)
	assert.NoError(t, mdb.Close())
}

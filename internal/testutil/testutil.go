// Package testutil provides shared test helpers for setting up stores and
// identity providers.
package testutil

import (
	"os"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/starford/scribe/internal/docstore"
	"github.com/starford/scribe/internal/identity"
)

// TestSecret signs tokens in tests.
const TestSecret = "test-secret-0123456789abcdef"

// TestStore creates a temporary SQLite document store that is automatically cleaned up.
func TestStore(t *testing.T) *docstore.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "scribe-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := docstore.Open(docstore.DriverSQLite, dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestIdentity returns a Local provider over store with a cheap bcrypt cost.
func TestIdentity(store docstore.Store, opts ...identity.Option) *identity.Local {
	cfg := identity.Config{
		Secret:         TestSecret,
		Issuer:         "scribe-test",
		IDTokenTTL:     time.Hour,
		CustomTokenTTL: time.Hour,
	}
	opts = append([]identity.Option{identity.WithBcryptCost(bcrypt.MinCost)}, opts...)
	return identity.NewLocal(store, cfg, opts...)
}

package testsupport

import (
	"context"
	"testing"

	"archivist/internal/asset"
	"archivist/internal/config"
	"archivist/internal/ledger"
)

// MustOpenStore opens an asset.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *asset.Store {
	t.Helper()

	store, err := asset.Open(context.Background(), cfg.DatabasePath())
	if err != nil {
		t.Fatalf("asset.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenLedger opens the error ledger on the store's database.
func MustOpenLedger(t testing.TB, store *asset.Store) *ledger.Ledger {
	t.Helper()

	l, err := ledger.New(context.Background(), store.DB())
	if err != nil {
		t.Fatalf("ledger.New: %v", err)
	}
	return l
}

// NewAsset registers an asset for tests.
func NewAsset(t testing.TB, store *asset.Store, reg asset.Registration) *asset.Asset {
	t.Helper()

	a, err := store.Register(context.Background(), reg)
	if err != nil {
		t.Fatalf("store.Register: %v", err)
	}
	return a
}

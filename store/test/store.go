package test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/hrygo/followup/internal/profile"
	"github.com/hrygo/followup/store"
	"github.com/hrygo/followup/store/db"
)

var dbSeq atomic.Int64

// NewTestingStore opens a fresh, migrated in-memory SQLite store for t.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		// A named shared-cache memory database per test keeps parallel tests isolated.
		DSN: fmt.Sprintf("file:followup_test_%d?mode=memory&cache=shared", dbSeq.Add(1)),
	}
	driver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}
	s := store.New(driver, p)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

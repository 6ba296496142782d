package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keshon/bvault/internal/storage"
	"github.com/keshon/bvault/internal/storage/storagetest"
)

// TestContract runs against a live database when BVAULT_TEST_POSTGRES_DSN
// is set. Each subtest gets its own table, dropped on cleanup.
func TestContract(t *testing.T) {
	dsn := os.Getenv("BVAULT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BVAULT_TEST_POSTGRES_DSN not set")
	}
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		ctx := context.Background()
		s, err := New(ctx, Config{DSN: dsn, Table: fmt.Sprintf("bvault_test_%d", time.Now().UnixNano())})
		require.NoError(t, err)
		t.Cleanup(func() {
			if err := s.Destroy(ctx); err != nil {
				t.Logf("drop table: %v", err)
			}
		})
		return s
	})
}

package mongo

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

// TestContract runs against a live server when BVAULT_TEST_MONGO_URI is set.
func TestContract(t *testing.T) {
	uri := os.Getenv("BVAULT_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("BVAULT_TEST_MONGO_URI not set")
	}
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		ctx := context.Background()
		s, err := New(ctx, Config{
			URI:        uri,
			Database:   "bvault_test",
			Collection: fmt.Sprintf("c%d", time.Now().UnixNano()),
		})
		require.NoError(t, err)
		t.Cleanup(func() {
			if err := s.Destroy(context.Background()); err != nil {
				t.Logf("drop collection: %v", err)
			}
		})
		return s
	})
}

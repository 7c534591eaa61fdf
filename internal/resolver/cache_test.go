package resolver

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishplayapp/dishplay-server/internal/domain"
)

func entry(key string) domain.CacheEntry {
	return domain.CacheEntry{
		Key:  key,
		Tier: domain.TierWebSearch,
		Outcome: domain.Outcome{
			SatisfiedTier: domain.TierWebSearch,
			Candidates:    []domain.Candidate{{ImageURL: "https://web/" + key + ".jpg"}},
		},
	}
}

func TestLRUCache_GetPut(t *testing.T) {
	c := NewLRUCache(4)
	ctx := context.Background()

	got, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Put(ctx, entry("salmon")))
	got, err = c.Get(ctx, "salmon")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "https://web/salmon.jpg", got.Outcome.Candidates[0].ImageURL)
}

func TestLRUCache_EvictsOldest(t *testing.T) {
	c := NewLRUCache(2)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, entry("a")))
	require.NoError(t, c.Put(ctx, entry("b")))
	require.NoError(t, c.Put(ctx, entry("c")))

	got, _ := c.Get(ctx, "a")
	assert.Nil(t, got, "oldest entry should be evicted")
	got, _ = c.Get(ctx, "c")
	assert.NotNil(t, got)
	assert.Equal(t, 2, c.Len())
}

func TestLRUCache_GetRefreshesRecency(t *testing.T) {
	c := NewLRUCache(2)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, entry("a")))
	require.NoError(t, c.Put(ctx, entry("b")))

	// Touch a so b becomes the eviction candidate.
	_, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, entry("c")))

	got, _ := c.Get(ctx, "a")
	assert.NotNil(t, got)
	got, _ = c.Get(ctx, "b")
	assert.Nil(t, got)
}

func TestLRUCache_PutReplaces(t *testing.T) {
	c := NewLRUCache(4)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, entry("salmon")))

	updated := entry("salmon")
	updated.Outcome.Candidates[0].ImageURL = "https://web/salmon-v2.jpg"
	require.NoError(t, c.Put(ctx, updated))

	got, err := c.Get(ctx, "salmon")
	require.NoError(t, err)
	assert.Equal(t, "https://web/salmon-v2.jpg", got.Outcome.Candidates[0].ImageURL)
	assert.Equal(t, 1, c.Len())
}

func TestLRUCache_Clear(t *testing.T) {
	c := NewLRUCache(4)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, entry("salmon")))
	require.NoError(t, c.Put(ctx, entry("ramen")))
	require.NoError(t, c.Clear(ctx))

	assert.Equal(t, 0, c.Len())
	got, err := c.Get(ctx, "salmon")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLRUCache_CapacityBound(t *testing.T) {
	c := NewLRUCache(8)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		require.NoError(t, c.Put(ctx, entry(fmt.Sprintf("key-%d", i))))
	}
	assert.Equal(t, 8, c.Len())
}

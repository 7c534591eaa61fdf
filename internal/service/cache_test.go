package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishplayapp/dishplay-server/internal/errors"
)

type fakeCacheStore struct {
	entries int
	cleared bool
	fail    bool
}

func (f *fakeCacheStore) Clear(_ context.Context) error {
	if f.fail {
		return errors.New("disk full")
	}
	f.cleared = true
	f.entries = 0
	return nil
}

func (f *fakeCacheStore) Len() (int, error) {
	if f.fail {
		return 0, errors.New("disk full")
	}
	return f.entries, nil
}

func TestCacheService_Clear(t *testing.T) {
	store := &fakeCacheStore{entries: 12}
	svc := NewCacheService(store, testLogger())

	require.NoError(t, svc.Clear(context.Background()))
	assert.True(t, store.cleared)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)
}

func TestCacheService_StoreFailure(t *testing.T) {
	svc := NewCacheService(&fakeCacheStore{fail: true}, testLogger())

	err := svc.Clear(context.Background())
	assert.True(t, errors.Is(err, errors.ErrCacheUnavailable))

	_, err = svc.Stats(context.Background())
	assert.True(t, errors.Is(err, errors.ErrCacheUnavailable))
}

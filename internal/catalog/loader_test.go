package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishplayapp/dishplay-server/internal/errors"
)

func writeSnapshot(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadSnapshot(t *testing.T) {
	t.Run("valid snapshot", func(t *testing.T) {
		path := writeSnapshot(t, `{"entries": [
			{"key": "salmon", "title": "Grilled Salmon", "description": "with lemon butter", "category": "seafood", "image_url": "https://img/salmon.jpg", "vector": [0.1, 0.2, 0.3]},
			{"key": "steak", "title": "Ribeye", "image_url": "https://img/steak.jpg", "vector": [0.4, 0.5, 0.6]}
		]}`)

		entries, err := LoadSnapshot(path, 3)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "salmon", entries[0].Key)
		assert.Equal(t, "with lemon butter", entries[0].Description)
		assert.Equal(t, "seafood", entries[0].Category)
	})

	t.Run("missing category derived from title", func(t *testing.T) {
		path := writeSnapshot(t, `{"entries": [
			{"key": "margherita", "title": "Margherita Pizza", "image_url": "https://img/pizza.jpg", "vector": [0.1]}
		]}`)

		entries, err := LoadSnapshot(path, 1)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "pizza", entries[0].Category)
	})

	t.Run("dimension mismatch is a configuration error", func(t *testing.T) {
		path := writeSnapshot(t, `{"entries": [
			{"key": "salmon", "image_url": "https://img/salmon.jpg", "vector": [0.1, 0.2]}
		]}`)

		_, err := LoadSnapshot(path, 3)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConfiguration))
	})

	t.Run("duplicate key rejected", func(t *testing.T) {
		path := writeSnapshot(t, `{"entries": [
			{"key": "salmon", "image_url": "https://img/a.jpg", "vector": [0.1]},
			{"key": "salmon", "image_url": "https://img/b.jpg", "vector": [0.2]}
		]}`)

		_, err := LoadSnapshot(path, 1)
		assert.Error(t, err)
	})

	t.Run("missing image url rejected", func(t *testing.T) {
		path := writeSnapshot(t, `{"entries": [
			{"key": "salmon", "vector": [0.1]}
		]}`)

		_, err := LoadSnapshot(path, 1)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSnapshot(filepath.Join(t.TempDir(), "nope.json"), 3)
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := writeSnapshot(t, `{"entries": [`)
		_, err := LoadSnapshot(path, 3)
		assert.Error(t, err)
	})
}

package catalog

import (
	"encoding/json/v2"
	"fmt"
	"os"

	"github.com/dishplayapp/dishplay-server/internal/errors"
	"github.com/dishplayapp/dishplay-server/internal/normalize"
)

// snapshot is the on-disk catalog format: a JSON array of entries with
// precomputed embedding vectors.
type snapshot struct {
	Entries []Entry `json:"entries"`
}

// LoadSnapshot reads a catalog snapshot file and validates every vector
// against the expected dimensionality. A dimension mismatch is a
// configuration error. Entries without a category get one derived from
// their title.
func LoadSnapshot(path string, wantDims int) ([]Entry, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- Catalog path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read catalog snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse catalog snapshot %s: %w", path, err)
	}

	seen := make(map[string]bool, len(snap.Entries))
	for i, e := range snap.Entries {
		if e.Key == "" {
			return nil, errors.Configurationf("catalog entry %d: missing key", i)
		}
		if seen[e.Key] {
			return nil, errors.Configurationf("catalog entry %q: duplicate key", e.Key)
		}
		seen[e.Key] = true
		if e.ImageURL == "" {
			return nil, errors.Configurationf("catalog entry %q: missing image url", e.Key)
		}
		if len(e.Vector) != wantDims {
			return nil, errors.Configurationf(
				"catalog entry %q: vector has %d dimensions, embedding provider produces %d",
				e.Key, len(e.Vector), wantDims)
		}
		if e.Category == "" {
			snap.Entries[i].Category = normalize.Category(e.Title)
		}
	}

	return snap.Entries, nil
}

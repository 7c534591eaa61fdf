package websearch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishplayapp/dishplay-server/internal/domain"
	"github.com/dishplayapp/dishplay-server/internal/errors"
	"github.com/dishplayapp/dishplay-server/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Writer: io.Discard, Format: "json"})
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		APIKey:   "test-key",
		EngineID: "test-cx",
		BaseURL:  srv.URL,
		Limit:    3,
	}, testLogger())
	require.NoError(t, err)
	return c
}

const searchBody = `{"items": [
	{"title": "Grilled salmon plated", "snippet": "restaurant dish", "link": "https://example.com/salmon1.jpg",
	 "image": {"contextLink": "https://example.com/recipes/salmon1"}},
	{"title": "Grilled salmon fillet", "snippet": "food photography", "link": "https://example.com/salmon2.jpg",
	 "image": {"contextLink": "https://example.com/recipes/salmon2"}},
	{"title": "Grilled salmon fillet", "snippet": "food photography", "link": "https://example.com/salmon2.jpg?v=2",
	 "image": {"contextLink": "https://example.com/recipes/salmon2-alt"}},
	{"title": "Salmon dinner", "snippet": "plated meal", "link": "https://example.com/salmon3.jpg",
	 "image": {"contextLink": "https://example.com/recipes/salmon3"}}
]}`

func TestClient_Resolve(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "image", r.URL.Query().Get("searchType"))
		assert.Equal(t, "test-cx", r.URL.Query().Get("cx"))
		w.Write([]byte(searchBody))
	})

	candidates, err := client.Resolve(context.Background(), domain.Query{Name: "Grilled Salmon"})
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	// The near-duplicate URL (same canonical form) must be skipped.
	urls := []string{candidates[0].ImageURL, candidates[1].ImageURL, candidates[2].ImageURL}
	assert.NotContains(t, urls, "https://example.com/salmon2.jpg?v=2")

	for i, c := range candidates {
		assert.Equal(t, domain.TierWebSearch, c.Source)
		assert.Equal(t, i, c.Rank)
	}
}

func TestClient_ResolveEmptyResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": []}`))
	})

	candidates, err := client.Resolve(context.Background(), domain.Query{Name: "Grilled Salmon"})
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestClient_ResolveRateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Resolve(context.Background(), domain.Query{Name: "Grilled Salmon"})
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, 7*time.Second, errors.RetryAfterHint(err))
}

func TestClient_ResolveServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Resolve(context.Background(), domain.Query{Name: "Grilled Salmon"})
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Zero(t, errors.RetryAfterHint(err))
}

func TestClient_ResolveClientError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.Resolve(context.Background(), domain.Query{Name: "Grilled Salmon"})
	require.Error(t, err)
	assert.False(t, errors.IsTransient(err))
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{}, testLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

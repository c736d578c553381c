package githubclient

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T) *FetchCache {
	t.Helper()
	fc, err := OpenFetchCache(filepath.Join(t.TempDir(), "fetch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = fc.Close() })
	return fc
}

// TestFetchCacheRoundTrip tests put, get and overwrite.
func TestFetchCacheRoundTrip(t *testing.T) {
	fc := openTestCache(t)

	_, ok := fc.Get("acme/app/render.yaml", "2026-08-25")
	assert.False(t, ok)

	require.NoError(t, fc.Put("acme/app/render.yaml", "2026-08-25", "services: []"))
	got, ok := fc.Get("acme/app/render.yaml", "2026-08-25")
	require.True(t, ok)
	assert.Equal(t, "services: []", got)

	// Same key and day overwrites.
	require.NoError(t, fc.Put("acme/app/render.yaml", "2026-08-25", "services:\n  - type: web"))
	got, ok = fc.Get("acme/app/render.yaml", "2026-08-25")
	require.True(t, ok)
	assert.Equal(t, "services:\n  - type: web", got)
}

// TestFetchCacheDayScoped tests that entries are keyed by fetch day.
func TestFetchCacheDayScoped(t *testing.T) {
	fc := openTestCache(t)

	require.NoError(t, fc.Put("acme/app/README.md", "2026-08-24", "old"))
	_, ok := fc.Get("acme/app/README.md", "2026-08-25")
	assert.False(t, ok)
}

// TestFetchCachePrune tests removal of stale days.
func TestFetchCachePrune(t *testing.T) {
	fc := openTestCache(t)

	require.NoError(t, fc.Put("acme/app/README.md", "2026-08-20", "stale"))
	require.NoError(t, fc.Put("acme/app/README.md", "2026-08-25", "current"))
	require.NoError(t, fc.Prune("2026-08-25"))

	_, ok := fc.Get("acme/app/README.md", "2026-08-20")
	assert.False(t, ok)
	got, ok := fc.Get("acme/app/README.md", "2026-08-25")
	require.True(t, ok)
	assert.Equal(t, "current", got)
}

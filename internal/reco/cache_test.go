package reco

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationCache_MissingArtifact(t *testing.T) {
	cache := NewCorrelationCache(testRecoConfig(t), testLogger())

	_, err := cache.Get()
	assert.ErrorIs(t, err, ErrNoCorrelationData)
}

func TestCorrelationCache_LoadsArtifact(t *testing.T) {
	cfg := testRecoConfig(t)
	writeCorrelationMap(t, cfg, `{"1":[{"productID":2,"name":"Chino Pants","correlationScore":0.8}]}`)

	cache := NewCorrelationCache(cfg, testLogger())
	m, err := cache.Get()
	require.NoError(t, err)

	require.Len(t, m, 1)
	require.Len(t, m[1], 1)
	assert.Equal(t, 2, m[1][0].ProductID)
	assert.Equal(t, "Chino Pants", m[1][0].Name)
}

func TestCorrelationCache_ReloadsOnlyOnNewerModTime(t *testing.T) {
	cfg := testRecoConfig(t)
	path := filepath.Join(cfg.DataDir, cfg.CorrelationMapFile)
	writeCorrelationMap(t, cfg, `{"1":[{"productID":2,"correlationScore":0.8}]}`)

	cache := NewCorrelationCache(cfg, testLogger())
	m, err := cache.Get()
	require.NoError(t, err)
	loadedAt := time.Now()

	// Replace the content but pin the mtime to the past: the cache must
	// keep serving the already-parsed map.
	require.NoError(t, os.WriteFile(path, []byte(`{"1":[{"productID":9,"correlationScore":0.1}]}`), 0o644))
	past := loadedAt.Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, past, past))

	m2, err := cache.Get()
	require.NoError(t, err)
	assert.Equal(t, 2, m2[1][0].ProductID)
	assert.Equal(t, m[1][0], m2[1][0])

	// Advancing the mtime invalidates the cache.
	future := loadedAt.Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	m3, err := cache.Get()
	require.NoError(t, err)
	assert.Equal(t, 9, m3[1][0].ProductID)
}

func TestCorrelationCache_MalformedArtifact(t *testing.T) {
	cfg := testRecoConfig(t)
	writeCorrelationMap(t, cfg, "not json")

	cache := NewCorrelationCache(cfg, testLogger())
	_, err := cache.Get()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCorrelationData)
}

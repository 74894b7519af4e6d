package reco

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lamnt/fashionstore/internal/contracts"
	"github.com/lamnt/fashionstore/pkg/config"
	"github.com/lamnt/fashionstore/pkg/logger"
)

// ErrNoCorrelationData means the correlation map artifact has not been
// materialized yet. Not a failure: callers switch to the attribute
// fallback until a pipeline run produces the artifact.
var ErrNoCorrelationData = errors.New("no correlation data available")

// CorrelationCache serves the materialized correlation map from memory,
// reloading lazily whenever the artifact's modification time advances.
// No TTL and no push invalidation: the refresh cost is paid by whichever
// request observes the newer mtime first, and the reload is serialized so
// concurrent requests never reparse the same artifact twice.
type CorrelationCache struct {
	path string

	mu      sync.Mutex
	cached  contracts.CorrelationMap
	modTime time.Time

	logger *logger.Logger
}

// NewCorrelationCache creates a cache over the correlation map artifact.
func NewCorrelationCache(cfg config.MiningConfig, log *logger.Logger) *CorrelationCache {
	return &CorrelationCache{
		path:   filepath.Join(cfg.DataDir, cfg.CorrelationMapFile),
		logger: log,
	}
}

// Get returns the current correlation map, reloading it first if the
// backing artifact changed since the last load. Returns
// ErrNoCorrelationData when the artifact does not exist.
func (c *CorrelationCache) Get() (contracts.CorrelationMap, error) {
	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCorrelationData
		}
		return nil, fmt.Errorf("stat correlation map: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-check under the lock: a concurrent caller may have reloaded
	// already, in which case this call reads the fresh map for free.
	if c.cached != nil && !info.ModTime().After(c.modTime) {
		return c.cached, nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read correlation map: %w", err)
	}

	var m contracts.CorrelationMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse correlation map: %w", err)
	}

	c.cached = m
	c.modTime = info.ModTime()

	c.logger.WithFields(map[string]interface{}{
		"products":        len(m),
		"recommendations": m.TotalEntries(),
		"mod_time":        c.modTime,
	}).Info("Reloaded correlation map")

	return c.cached, nil
}

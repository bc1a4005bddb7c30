package ingest

import (
	"sync"

	"github.com/ironsheep/skeleton-tagger-mcp/internal/features"
)

// Cache keeps parsed particle and feature files keyed by path so repeated tool
// calls against the same inputs skip disk reads.
//
// Cache is safe for concurrent use. Cached sets are shared between callers and
// must be treated as read-only.
type Cache struct {
	mu        sync.RWMutex
	particles map[string]features.ParticleSet
	features  map[string]features.SkeletonFeatureSet
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		particles: make(map[string]features.ParticleSet),
		features:  make(map[string]features.SkeletonFeatureSet),
	}
}

// Particles returns the particle set at path, loading it on first use.
func (c *Cache) Particles(path string) (features.ParticleSet, error) {
	c.mu.RLock()
	if ps, ok := c.particles[path]; ok {
		c.mu.RUnlock()
		return ps, nil
	}
	c.mu.RUnlock()

	ps, err := LoadParticles(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.particles[path] = ps
	c.mu.Unlock()

	return ps, nil
}

// Features returns the feature set at path, loading it on first use.
func (c *Cache) Features(path string) (features.SkeletonFeatureSet, error) {
	c.mu.RLock()
	if fs, ok := c.features[path]; ok {
		c.mu.RUnlock()
		return fs, nil
	}
	c.mu.RUnlock()

	fs, err := LoadFeatures(path)
	if err != nil {
		return features.SkeletonFeatureSet{}, err
	}

	c.mu.Lock()
	c.features[path] = fs
	c.mu.Unlock()

	return fs, nil
}

// Evict drops any cached entry for path.
func (c *Cache) Evict(path string) {
	c.mu.Lock()
	delete(c.particles, path)
	delete(c.features, path)
	c.mu.Unlock()
}

// Clear drops every cached entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.particles = make(map[string]features.ParticleSet)
	c.features = make(map[string]features.SkeletonFeatureSet)
	c.mu.Unlock()
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.particles) + len(c.features)
}

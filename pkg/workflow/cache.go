package workflow

import (
	"strconv"

	gocache "github.com/patrickmn/go-cache"
)

// StageResultCache maps wizard step indexes to the last analysis result
// produced for that step. A hit is always shown immediately on navigation;
// the whole cache is invalidated on case reset.
type StageResultCache struct {
	cache *gocache.Cache
}

func NewStageResultCache() *StageResultCache {
	// Results are session-scoped; no expiration, no janitor.
	return &StageResultCache{cache: gocache.New(gocache.NoExpiration, 0)}
}

func key(stepIndex int) string { return strconv.Itoa(stepIndex) }

func (c *StageResultCache) Get(stepIndex int) (*StageAnalysisResult, bool) {
	if x, found := c.cache.Get(key(stepIndex)); found {
		return x.(*StageAnalysisResult), true
	}
	return nil, false
}

func (c *StageResultCache) Put(stepIndex int, result *StageAnalysisResult) {
	c.cache.Set(key(stepIndex), result, gocache.NoExpiration)
}

// Delete invalidates a single step, e.g. the new current step after a
// stage-change push, whose cached analysis may be stale.
func (c *StageResultCache) Delete(stepIndex int) {
	c.cache.Delete(key(stepIndex))
}

func (c *StageResultCache) Clear() {
	c.cache.Flush()
}

package memory

import (
	"time"

	"prior-auth-be/pkg/workflow"

	"github.com/patrickmn/go-cache"
)

// OrchestratorRepository holds the live orchestrator session for each case
// currently being worked. Sessions idle for an hour are evicted; the next
// request rebuilds one from the persisted case.
type OrchestratorRepository struct {
	cache *cache.Cache
}

func NewOrchestratorRepository() *OrchestratorRepository {
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &OrchestratorRepository{
		cache: c,
	}
}

func (r *OrchestratorRepository) Save(caseID string, o *workflow.Orchestrator) {
	r.cache.Set(caseID, o, cache.DefaultExpiration)
}

func (r *OrchestratorRepository) Get(caseID string) (*workflow.Orchestrator, bool) {
	if x, found := r.cache.Get(caseID); found {
		// Touch to keep actively used sessions alive.
		r.cache.Set(caseID, x, cache.DefaultExpiration)
		return x.(*workflow.Orchestrator), true
	}
	return nil, false
}

func (r *OrchestratorRepository) Delete(caseID string) {
	r.cache.Delete(caseID)
}

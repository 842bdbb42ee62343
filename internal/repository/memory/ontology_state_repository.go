package memory

import (
	"context"
	"time"

	"ontology-chat/internal/entity"
	"ontology-chat/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// OntologyStateRepository is the in-process fallback used when Redis is not
// reachable. State survives only as long as the process.
type OntologyStateRepository struct {
	cache *cache.Cache
}

var _ contract.OntologyStateRepository = &OntologyStateRepository{}

func NewOntologyStateRepository() *OntologyStateRepository {
	return &OntologyStateRepository{
		cache: cache.New(24*time.Hour, 10*time.Minute),
	}
}

func (r *OntologyStateRepository) Get(_ context.Context, sessionID string) (*entity.OntologyState, error) {
	if x, found := r.cache.Get(sessionID); found {
		state := x.(entity.OntologyState)
		return &state, nil
	}
	return nil, nil
}

func (r *OntologyStateRepository) Set(_ context.Context, sessionID string, state *entity.OntologyState) error {
	r.cache.Set(sessionID, *state, cache.DefaultExpiration)
	return nil
}

func (r *OntologyStateRepository) Delete(_ context.Context, sessionID string) error {
	r.cache.Delete(sessionID)
	return nil
}

package redisrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ontology-chat/internal/entity"
	"ontology-chat/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

const stateTTL = 24 * time.Hour

// OntologyStateRepository keeps per-session ontology state in Redis so the
// state survives restarts and is visible across instances.
type OntologyStateRepository struct {
	rdb *redis.Client
}

var _ contract.OntologyStateRepository = &OntologyStateRepository{}

func NewOntologyStateRepository(rdb *redis.Client) *OntologyStateRepository {
	return &OntologyStateRepository{rdb: rdb}
}

func key(sessionID string) string {
	return "ontology_state:" + sessionID
}

func (r *OntologyStateRepository) Get(ctx context.Context, sessionID string) (*entity.OntologyState, error) {
	data, err := r.rdb.Get(ctx, key(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get ontology state: %w", err)
	}

	var state entity.OntologyState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode ontology state: %w", err)
	}
	return &state, nil
}

func (r *OntologyStateRepository) Set(ctx context.Context, sessionID string, state *entity.OntologyState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode ontology state: %w", err)
	}
	if err := r.rdb.Set(ctx, key(sessionID), data, stateTTL).Err(); err != nil {
		return fmt.Errorf("redis set ontology state: %w", err)
	}
	return nil
}

func (r *OntologyStateRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete ontology state: %w", err)
	}
	return nil
}

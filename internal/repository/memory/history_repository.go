package memory

import (
	"sync"
	"time"

	"ontology-chat/internal/entity"
	"ontology-chat/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// HistoryRepository keeps chat histories in process memory. Entries expire
// with the session cookie horizon; the cache purge keeps abandoned sessions
// from leaking.
type HistoryRepository struct {
	cache *cache.Cache
	mu    sync.Mutex
}

var _ contract.ChatHistoryRepository = &HistoryRepository{}

func NewHistoryRepository() *HistoryRepository {
	c := cache.New(24*time.Hour, 10*time.Minute)
	return &HistoryRepository{cache: c}
}

func (r *HistoryRepository) Append(sessionID string, msg entity.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := r.get(sessionID)
	history = append(history, msg)
	r.cache.Set(sessionID, history, cache.DefaultExpiration)
}

func (r *HistoryRepository) Get(sessionID string) []entity.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := r.get(sessionID)
	out := make([]entity.ChatMessage, len(history))
	copy(out, history)
	return out
}

func (r *HistoryRepository) Clear(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Set(sessionID, []entity.ChatMessage{}, cache.DefaultExpiration)
}

func (r *HistoryRepository) Delete(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Delete(sessionID)
}

func (r *HistoryRepository) get(sessionID string) []entity.ChatMessage {
	if x, found := r.cache.Get(sessionID); found {
		return x.([]entity.ChatMessage)
	}
	return nil
}

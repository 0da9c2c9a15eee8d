package session

import (
	"context"
	"log"

	"github.com/fraud165/triage/pkg/config"
)

// NewStore builds the session store selected by cfg. A Redis backend that
// cannot be reached degrades to the in-process store with a warning rather
// than refusing to start; losing durability beats losing the service.
func NewStore(ctx context.Context, cfg *config.Config) Store {
	switch cfg.SessionBackend {
	case config.BackendRedis:
		store, err := NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionTTL, cfg.HistoryLimit)
		if err != nil {
			log.Printf("[Session] redis backend unavailable (%v), falling back to in-process store", err)
			return NewMemStore(cfg.HistoryLimit)
		}
		log.Printf("[Session] using redis backend at %s", cfg.RedisAddr)
		return store
	default:
		return NewMemStore(cfg.HistoryLimit)
	}
}

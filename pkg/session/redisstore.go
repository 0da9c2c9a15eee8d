package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "triage:session:"

// RedisStore keeps session records in Redis, one JSON value per session
// key. Updates touch only their own key, so sessions cannot corrupt each
// other. A TTL bounds the keyspace; IP-derived session ids would otherwise
// grow it without limit.
type RedisStore struct {
	client       *redis.Client
	ttl          time.Duration
	historyLimit int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration, historyLimit int) (*RedisStore, error) {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl, historyLimit: historyLimit}, nil
}

// Get loads the session's memory. Any read or decode failure degrades to
// an empty memory; the caller is never failed.
func (s *RedisStore) Get(ctx context.Context, sessionID string) Memory {
	data, err := s.client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[Session] redis read %s failed: %v, returning empty memory", sessionID, err)
		}
		return Memory{}
	}
	var m Memory
	if err := json.Unmarshal(data, &m); err != nil {
		log.Printf("[Session] corrupt record for %s: %v, returning empty memory", sessionID, err)
		return Memory{}
	}
	m.History = trimHistory(m.History, s.historyLimit)
	return m
}

// Update replaces the session's record, refreshing the TTL.
func (s *RedisStore) Update(ctx context.Context, sessionID string, m Memory) bool {
	m.History = trimHistory(m.History, s.historyLimit)
	data, err := json.Marshal(m)
	if err != nil {
		log.Printf("[Session] encode %s failed: %v", sessionID, err)
		return false
	}
	if err := s.client.Set(ctx, redisKeyPrefix+sessionID, data, s.ttl).Err(); err != nil {
		log.Printf("[Session] redis write %s failed: %v", sessionID, err)
		return false
	}
	return true
}

// Clear deletes the session's record. A missing key is still success.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) bool {
	if err := s.client.Del(ctx, redisKeyPrefix+sessionID).Err(); err != nil {
		log.Printf("[Session] redis delete %s failed: %v", sessionID, err)
		return false
	}
	return true
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error { return s.client.Close() }

package sales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/georgemunganga/printa-pos/internal/apperr"
	"github.com/redis/go-redis/v9"
)

type redisRegistry struct {
	client *redis.Client
}

// NewRedisRegistry stores each business entity's bucket as a hash of
// transaction id to memento JSON, so parked sales survive restarts and are
// shared between instances.
func NewRedisRegistry(client *redis.Client) Registry {
	return &redisRegistry{client: client}
}

func (r *redisRegistry) Put(ctx context.Context, businessEntityID int64, m Memento) ([]Memento, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal memento failed: %w", err)
	}
	key := suspendedKey(businessEntityID)
	var all *redis.MapStringStringCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, m.TransactionID, data)
		all = pipe.HGetAll(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis suspend failed: %w", err)
	}
	return decodeBucket(all.Val())
}

func (r *redisRegistry) Remove(ctx context.Context, businessEntityID int64, transactionID string) ([]Memento, error) {
	key := suspendedKey(businessEntityID)
	var remaining map[string]string
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.New(apperr.CodeNotFound, "no suspended transactions for business entity %d", businessEntityID)
		}
		var all *redis.MapStringStringCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, key, transactionID)
			all = pipe.HGetAll(ctx, key)
			return nil
		})
		if err != nil {
			return err
		}
		remaining = all.Val()
		return nil
	}, key)
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("redis restore failed: %w", err)
	}
	return decodeBucket(remaining)
}

func (r *redisRegistry) List(ctx context.Context, businessEntityID int64) ([]Memento, error) {
	all, err := r.client.HGetAll(ctx, suspendedKey(businessEntityID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list failed: %w", err)
	}
	return decodeBucket(all)
}

func decodeBucket(fields map[string]string) ([]Memento, error) {
	bucket := make(map[string]Memento, len(fields))
	for id, raw := range fields {
		var m Memento
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("unmarshal memento %s failed: %w", id, err)
		}
		bucket[id] = m
	}
	return ordered(bucket), nil
}

func suspendedKey(businessEntityID int64) string {
	return fmt.Sprintf("suspended:%d", businessEntityID)
}

package sales

import (
	"context"
	"sort"
	"sync"

	"github.com/georgemunganga/printa-pos/internal/apperr"
)

// Registry holds suspended transactions, bucketed by business entity. Every
// method returns the entity's bucket after the operation, ordered by
// suspension time then id.
type Registry interface {
	Put(ctx context.Context, businessEntityID int64, m Memento) ([]Memento, error)
	// Remove drops one memento. It fails with NOT_FOUND only when the entity
	// has no bucket; an unknown id leaves the bucket unchanged.
	Remove(ctx context.Context, businessEntityID int64, transactionID string) ([]Memento, error)
	List(ctx context.Context, businessEntityID int64) ([]Memento, error)
}

type memoryRegistry struct {
	mu      sync.RWMutex
	buckets map[int64]map[string]Memento
}

func NewMemoryRegistry() Registry {
	return &memoryRegistry{buckets: make(map[int64]map[string]Memento)}
}

func (r *memoryRegistry) Put(_ context.Context, businessEntityID int64, m Memento) ([]Memento, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bucket, ok := r.buckets[businessEntityID]
	if !ok {
		bucket = make(map[string]Memento)
		r.buckets[businessEntityID] = bucket
	}
	bucket[m.TransactionID] = m
	return ordered(bucket), nil
}

func (r *memoryRegistry) Remove(_ context.Context, businessEntityID int64, transactionID string) ([]Memento, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bucket, ok := r.buckets[businessEntityID]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "no suspended transactions for business entity %d", businessEntityID)
	}
	delete(bucket, transactionID)
	if len(bucket) == 0 {
		delete(r.buckets, businessEntityID)
	}
	return ordered(bucket), nil
}

func (r *memoryRegistry) List(_ context.Context, businessEntityID int64) ([]Memento, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return ordered(r.buckets[businessEntityID]), nil
}

func ordered(bucket map[string]Memento) []Memento {
	out := make([]Memento, 0, len(bucket))
	for _, m := range bucket {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TransactionDateTime != out[j].TransactionDateTime {
			return out[i].TransactionDateTime < out[j].TransactionDateTime
		}
		return out[i].TransactionID < out[j].TransactionID
	})
	return out
}

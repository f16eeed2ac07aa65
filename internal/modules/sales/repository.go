package sales

import (
	"context"
	"sync"
	"time"

	"github.com/georgemunganga/printa-pos/internal/apperr"
	"github.com/google/uuid"
)

// Repository defines durable storage for sales transactions. Each write
// touches only the columns its step owns, so a status set by payment
// reconciliation is never overwritten by a saga step that read it earlier.
type Repository interface {
	// Create inserts tx and its line items at version 1. A nil ID is assigned.
	Create(ctx context.Context, tx *SalesTransaction) error
	// UpdateItems replaces line items and totals if the stored version still
	// equals tx.Version, then bumps it. A stale version fails with
	// CONCURRENT_MODIFICATION.
	UpdateItems(ctx context.Context, tx *SalesTransaction) error
	// AttachPayment stores tx's payment intent id. Payment id and event date
	// are only filled when not already set.
	AttachPayment(ctx context.Context, tx *SalesTransaction) error
	// UpdateStatus moves id from one status to another and records at as the
	// payment event date. It fails with CONCURRENT_MODIFICATION when the
	// stored status is no longer from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) error
	FindByID(ctx context.Context, id uuid.UUID) (*SalesTransaction, error)
	FindByPaymentID(ctx context.Context, paymentID int64) (*SalesTransaction, error)
}

type memoryRepo struct {
	mu  sync.RWMutex
	txs map[uuid.UUID]*SalesTransaction
}

// NewMemoryRepository keeps transactions in process. Useful for tests and
// for running without a database.
func NewMemoryRepository() Repository {
	return &memoryRepo{txs: make(map[uuid.UUID]*SalesTransaction)}
}

func (r *memoryRepo) Create(_ context.Context, tx *SalesTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	now := time.Now()
	if tx.TransactionDate.IsZero() {
		tx.TransactionDate = now
	}
	tx.UpdatedAt = now
	tx.Version = 1
	r.txs[tx.ID] = tx.Clone()
	return nil
}

func (r *memoryRepo) UpdateItems(_ context.Context, tx *SalesTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.txs[tx.ID]
	if !ok {
		return notFound(tx.ID)
	}
	if stored.Version != tx.Version {
		return apperr.New(apperr.CodeConflict, "sales transaction %s was modified concurrently", tx.ID)
	}
	stored.Items = tx.Clone().Items
	stored.TaxType = tx.TaxType
	stored.TaxRate = tx.TaxRate
	stored.Subtotal = tx.Subtotal
	stored.TaxAmount = tx.TaxAmount
	stored.Total = tx.Total
	stored.Version++
	stored.UpdatedAt = time.Now()
	tx.Version = stored.Version
	tx.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *memoryRepo) AttachPayment(_ context.Context, tx *SalesTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.txs[tx.ID]
	if !ok {
		return notFound(tx.ID)
	}
	stored.PaymentIntentID = tx.PaymentIntentID
	if stored.PaymentID == nil && tx.PaymentID != nil {
		id := *tx.PaymentID
		stored.PaymentID = &id
	}
	if stored.PaymentEventDate == nil && tx.PaymentEventDate != nil {
		d := *tx.PaymentEventDate
		stored.PaymentEventDate = &d
	}
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *memoryRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.txs[id]
	if !ok {
		return notFound(id)
	}
	if stored.Status != from {
		return statusConflict(id, from)
	}
	stored.Status = to
	stored.PaymentEventDate = &at
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *memoryRepo) FindByID(_ context.Context, id uuid.UUID) (*SalesTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.txs[id]
	if !ok {
		return nil, notFound(id)
	}
	return tx.Clone(), nil
}

func (r *memoryRepo) FindByPaymentID(_ context.Context, paymentID int64) (*SalesTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, tx := range r.txs {
		if tx.PaymentID != nil && *tx.PaymentID == paymentID {
			return tx.Clone(), nil
		}
	}
	return nil, apperr.New(apperr.CodeNotFound, "no sales transaction for payment %d", paymentID)
}

func notFound(id uuid.UUID) error {
	return apperr.New(apperr.CodeNotFound, "sales transaction %s not found", id)
}

func statusConflict(id uuid.UUID, from Status) error {
	return apperr.New(apperr.CodeConflict, "sales transaction %s is no longer %s", id, from)
}

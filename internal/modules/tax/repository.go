package tax

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Repository defines data access for sales tax records.
type Repository interface {
	// GetOrCreate returns the record for taxType, inserting one with rate if
	// none exists. Implementations must make the insert idempotent per taxType.
	GetOrCreate(ctx context.Context, taxType TaxType, rate decimal.Decimal) (*SalesTax, error)
}

type memoryRepo struct {
	mu     sync.Mutex
	nextID int64
	taxes  map[TaxType]*SalesTax
	seeded []SalesTax
}

// NewMemoryRepository keeps tax records in process. Useful for tests and
// for running without a database.
func NewMemoryRepository(seed ...SalesTax) Repository {
	r := &memoryRepo{taxes: make(map[TaxType]*SalesTax)}
	for _, st := range seed {
		st := st
		r.nextID++
		st.ID = r.nextID
		r.taxes[st.TaxType] = &st
	}
	return r
}

func (r *memoryRepo) GetOrCreate(_ context.Context, taxType TaxType, rate decimal.Decimal) (*SalesTax, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.taxes[taxType]; ok {
		cp := *st
		return &cp, nil
	}
	r.nextID++
	st := &SalesTax{ID: r.nextID, TaxType: taxType, TaxRate: rate, CreatedAt: time.Now()}
	r.taxes[taxType] = st
	cp := *st
	return &cp, nil
}

package sales

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/georgemunganga/printa-pos/internal/modules/inventory"
	"github.com/georgemunganga/printa-pos/internal/modules/payment"
	"github.com/google/uuid"
)

type fakeInventory struct {
	mu    sync.Mutex
	calls [][]inventory.Item
	err   error
	// failOn makes only the nth call (1-based) fail with err.
	failOn int
	// during runs on the nth call (1-based) before it returns.
	during   func()
	duringOn int
}

func (f *fakeInventory) ApplyDelta(_ context.Context, _ int64, items []inventory.Item) error {
	f.mu.Lock()
	f.calls = append(f.calls, items)
	n := len(f.calls)
	hook := f.during
	f.mu.Unlock()

	if hook != nil && (f.duringOn == 0 || f.duringOn == n) {
		hook()
	}
	if f.err != nil && (f.failOn == 0 || f.failOn == n) {
		return f.err
	}
	return nil
}

type fakePayments struct {
	mu   sync.Mutex
	reqs []payment.IntentRequest
	resp *payment.IntentResponse
	err  error
	// during runs before the response is returned.
	during func(req payment.IntentRequest)
}

func (f *fakePayments) CreatePaymentIntent(_ context.Context, req payment.IntentRequest) (*payment.IntentResponse, error) {
	if f.during != nil {
		f.during(req)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

// countingRepo counts writes and can fail all of them.
type countingRepo struct {
	Repository
	saves   int
	saveErr error
}

func (r *countingRepo) write(fn func() error) error {
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	return fn()
}

func (r *countingRepo) Create(ctx context.Context, tx *SalesTransaction) error {
	return r.write(func() error { return r.Repository.Create(ctx, tx) })
}

func (r *countingRepo) UpdateItems(ctx context.Context, tx *SalesTransaction) error {
	return r.write(func() error { return r.Repository.UpdateItems(ctx, tx) })
}

func (r *countingRepo) AttachPayment(ctx context.Context, tx *SalesTransaction) error {
	return r.write(func() error { return r.Repository.AttachPayment(ctx, tx) })
}

func (r *countingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) error {
	return r.write(func() error { return r.Repository.UpdateStatus(ctx, id, from, to, at) })
}

var errRemote = errors.New("connection refused")

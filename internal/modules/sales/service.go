package sales

import (
	"context"
	"time"

	"github.com/georgemunganga/printa-pos/internal/apperr"
	"github.com/georgemunganga/printa-pos/internal/config"
	"github.com/georgemunganga/printa-pos/internal/modules/inventory"
	"github.com/georgemunganga/printa-pos/internal/modules/payment"
	"github.com/georgemunganga/printa-pos/internal/modules/tax"
	"github.com/georgemunganga/printa-pos/internal/platform/logging"
	"github.com/georgemunganga/printa-pos/internal/platform/metrics"
	"github.com/google/uuid"
)

const serviceName = "sales-service"

// Service defines the sales transaction saga and suspend/restore operations.
type Service interface {
	CalculateTax(ctx context.Context, details []SalesDetail) (*tax.Result, error)
	CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*CreateTransactionResult, error)
	UpdateTransaction(ctx context.Context, id uuid.UUID, details []SalesDetail) (*SalesTransaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*SalesTransaction, error)
	GetTransactionStatus(ctx context.Context, id uuid.UUID) (*StatusView, error)
	GetTransactionByPaymentID(ctx context.Context, paymentID int64) (*SalesTransaction, error)
	// UpdateTransactionStatus moves a transaction along the status machine.
	// Leaving a terminal status fails with ILLEGAL_TRANSITION. A zero at
	// defaults to now. Racing writers are retried against the fresh status.
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status Status, at time.Time) (*SalesTransaction, error)
	Suspend(ctx context.Context, req CreateTransactionRequest) ([]*SalesTransaction, error)
	Restore(ctx context.Context, businessEntityID int64, transactionID string) ([]*SalesTransaction, error)
	ListSuspended(ctx context.Context, businessEntityID int64) ([]*SalesTransaction, error)
}

// Options tune the saga. Zero values are usable.
type Options struct {
	Location *time.Location
	Payment  config.PaymentDefaults
	// CompensateOnPaymentFailure reverses the stock adjustment and cancels
	// the transaction when no payment intent could be obtained after persist.
	// When false the transaction stays PENDING_PAYMENT without an intent.
	CompensateOnPaymentFailure bool
	Metrics                    *metrics.Metrics
	Now                        func() time.Time
}

type service struct {
	repo      Repository
	registry  Registry
	taxes     tax.Service
	inventory inventory.Gateway
	payments  payment.Gateway
	opts      Options
}

func NewService(repo Repository, registry Registry, taxes tax.Service, inv inventory.Gateway, pay payment.Gateway, opts Options) Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &service{repo: repo, registry: registry, taxes: taxes, inventory: inv, payments: pay, opts: opts}
}

func (s *service) now() time.Time { return s.opts.Now().In(s.opts.Location) }

func (s *service) CalculateTax(ctx context.Context, details []SalesDetail) (*tax.Result, error) {
	items, err := ParseDetails(details)
	if err != nil {
		return nil, err
	}
	calc := make([]tax.Item, 0, len(items))
	for _, it := range items {
		calc = append(calc, tax.Item{Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return s.taxes.Calculate(ctx, calc)
}

func (s *service) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (res *CreateTransactionResult, err error) {
	defer s.record("create", &err)

	if len(req.SalesDetails) == 0 {
		return nil, apperr.New(apperr.CodeEmptySale, "sales transaction must contain at least one item")
	}
	items, err := ParseDetails(req.SalesDetails)
	if err != nil {
		return nil, err
	}
	salesTax, err := s.taxes.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	tx := NewTransaction(req.BusinessEntityID, items, *salesTax, s.now())
	delta := fullDelta(tx.Items)

	if err := s.applyStock(ctx, tx.BusinessEntityID, delta); err != nil {
		logging.Error(logging.Fields{Service: serviceName, BusinessEntityID: tx.BusinessEntityID, Step: "inventory", Message: "stock update failed, nothing persisted"}, err)
		return nil, err
	}

	if err := s.repo.Create(ctx, tx); err != nil {
		logging.Error(logging.Fields{Service: serviceName, BusinessEntityID: tx.BusinessEntityID, Step: "persist"}, err)
		s.abandon(ctx, tx.BusinessEntityID, nil, delta)
		return nil, err
	}
	s.logStep(tx, "persist", "transaction recorded")

	intent, err := s.requestPayment(ctx, tx)
	if err != nil {
		logging.Error(logging.Fields{Service: serviceName, TxID: tx.ID.String(), BusinessEntityID: tx.BusinessEntityID, Step: "payment"}, err)
		s.abandon(ctx, tx.BusinessEntityID, tx, delta)
		return nil, err
	}

	if err := s.repo.AttachPayment(ctx, tx); err != nil {
		logging.Error(logging.Fields{Service: serviceName, TxID: tx.ID.String(), Step: "persist_intent"}, err)
		return nil, err
	}
	// payment reconciliation may already have settled the transaction
	stored, err := s.repo.FindByID(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	s.logStep(stored, "payment", "payment intent attached")
	return &CreateTransactionResult{Transaction: stored, Payment: intent}, nil
}

// requestPayment asks for an intent and stores its references on tx.
func (s *service) requestPayment(ctx context.Context, tx *SalesTransaction) (*PaymentIntent, error) {
	resp, err := s.payments.CreatePaymentIntent(ctx, payment.IntentRequest{
		TransactionID: tx.ID.String(),
		Description:   s.opts.Payment.Description,
		Amount:        tx.Total.InexactFloat64(),
		Currency:      s.opts.Payment.Currency,
		CustomerEmail: s.opts.Payment.PayerEmail,
		PaymentType:   s.opts.Payment.Method,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePaymentServiceError, err, "payment service error")
	}
	if resp == nil || resp.PaymentIntentID == "" {
		return nil, apperr.New(apperr.CodePaymentServiceError, "invalid response from payment service")
	}

	tx.PaymentIntentID = resp.PaymentIntentID
	if resp.PaymentID != nil {
		id := *resp.PaymentID
		tx.PaymentID = &id
	}
	at, ok, err := payment.ParseEventTime(resp.PaymentEventDate, s.opts.Location)
	if err != nil {
		logging.Warn(logging.Fields{Service: serviceName, TxID: tx.ID.String(), Step: "payment", Message: "ignoring unparseable payment date " + resp.PaymentEventDate})
	} else if ok {
		tx.PaymentEventDate = &at
	}
	return &PaymentIntent{ClientSecret: resp.ClientSecret, PaymentIntentID: resp.PaymentIntentID}, nil
}

// abandon handles a create saga that failed after stock was adjusted. tx is
// nil when nothing was persisted. A persisted transaction is cancelled before
// stock is reversed, and only if it is still pending.
func (s *service) abandon(ctx context.Context, businessEntityID int64, tx *SalesTransaction, delta map[int64]int) {
	fields := logging.Fields{Service: serviceName, BusinessEntityID: businessEntityID, Step: "compensate"}
	if tx != nil {
		fields.TxID = tx.ID.String()
	}
	if !s.opts.CompensateOnPaymentFailure {
		fields.Status = "skipped"
		fields.Message = "stock left adjusted; transaction needs manual reconciliation"
		logging.Warn(fields)
		return
	}

	// the caller's context may already be done
	ctx = context.WithoutCancel(ctx)
	if tx != nil {
		err := s.repo.UpdateStatus(ctx, tx.ID, StatusPendingPayment, StatusCancelled, s.now())
		if apperr.HasCode(err, apperr.CodeConflict) {
			s.opts.Metrics.Saga("compensate", "settled")
			fields.Message = "transaction already settled, stock kept"
			logging.Warn(fields)
			return
		}
		if err != nil {
			s.opts.Metrics.Saga("compensate", string(apperr.CodeOf(err)))
			logging.Error(fields, err)
			return
		}
		fields.Status = string(StatusCancelled)
	}
	if err := s.applyStock(ctx, businessEntityID, Negate(delta)); err != nil {
		s.opts.Metrics.Saga("compensate", string(apperr.CodeOf(err)))
		logging.Error(fields, err)
		return
	}
	s.opts.Metrics.Saga("compensate", "ok")
	fields.Message = "stock adjustment reversed"
	logging.Log(fields)
}

func (s *service) UpdateTransaction(ctx context.Context, id uuid.UUID, details []SalesDetail) (_ *SalesTransaction, err error) {
	defer s.record("update", &err)

	if len(details) == 0 {
		return nil, apperr.New(apperr.CodeEmptyUpdate, "update must contain at least one item")
	}
	items, err := ParseDetails(details)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	delta := StockDelta(existing.Items, items)

	// work on a copy so a failed stock call leaves nothing half-applied
	next := existing.Clone()
	next.ReplaceItems(items, tax.SalesTax{TaxType: existing.TaxType, TaxRate: existing.TaxRate})

	adjusted := len(inventory.FromDelta(delta)) > 0
	if adjusted {
		if err := s.applyStock(ctx, next.BusinessEntityID, delta); err != nil {
			logging.Error(logging.Fields{Service: serviceName, TxID: id.String(), Step: "inventory"}, err)
			return nil, err
		}
	}
	if err := s.repo.UpdateItems(ctx, next); err != nil {
		logging.Error(logging.Fields{Service: serviceName, TxID: id.String(), Step: "persist"}, err)
		if adjusted {
			s.revert(ctx, next, delta)
		}
		return nil, err
	}
	stored, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logStep(stored, "update", "line items replaced")
	return stored, nil
}

// revert undoes an update's stock adjustment whose items were not stored.
func (s *service) revert(ctx context.Context, tx *SalesTransaction, delta map[int64]int) {
	fields := logging.Fields{Service: serviceName, TxID: tx.ID.String(), BusinessEntityID: tx.BusinessEntityID, Step: "compensate"}
	if err := s.applyStock(context.WithoutCancel(ctx), tx.BusinessEntityID, Negate(delta)); err != nil {
		s.opts.Metrics.Saga("compensate", string(apperr.CodeOf(err)))
		logging.Error(fields, err)
		return
	}
	s.opts.Metrics.Saga("compensate", "ok")
	fields.Message = "stock adjustment reversed"
	logging.Log(fields)
}

func (s *service) GetTransaction(ctx context.Context, id uuid.UUID) (*SalesTransaction, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) GetTransactionByPaymentID(ctx context.Context, paymentID int64) (*SalesTransaction, error) {
	return s.repo.FindByPaymentID(ctx, paymentID)
}

func (s *service) GetTransactionStatus(ctx context.Context, id uuid.UUID) (*StatusView, error) {
	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &StatusView{
		TransactionID:   tx.ID.String(),
		Status:          tx.Status,
		PaymentIntentID: tx.PaymentIntentID,
		PaymentID:       tx.PaymentID,
	}
	if tx.PaymentEventDate != nil {
		view.PaymentEventDate = tx.PaymentEventDate.In(s.opts.Location).Format(DateTimeLayout)
	}
	return view, nil
}

// statusAttempts bounds compare-and-set retries when writers race.
const statusAttempts = 3

func (s *service) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status Status, at time.Time) (*SalesTransaction, error) {
	if at.IsZero() {
		at = s.now()
	}
	at = at.In(s.opts.Location)

	var err error
	for attempt := 0; attempt < statusAttempts; attempt++ {
		var tx *SalesTransaction
		if tx, err = s.repo.FindByID(ctx, id); err != nil {
			return nil, err
		}
		if !tx.Status.CanTransitionTo(status) {
			return nil, apperr.New(apperr.CodeIllegalTransition, "cannot move transaction %s from %s to %s", id, tx.Status, status)
		}
		err = s.repo.UpdateStatus(ctx, id, tx.Status, status, at)
		if apperr.HasCode(err, apperr.CodeConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		tx.Status = status
		tx.PaymentEventDate = &at
		tx.UpdatedAt = s.now()
		s.logStep(tx, "status", "status updated")
		return tx, nil
	}
	return nil, err
}

func (s *service) Suspend(ctx context.Context, req CreateTransactionRequest) ([]*SalesTransaction, error) {
	if len(req.SalesDetails) == 0 {
		return nil, apperr.New(apperr.CodeEmptySale, "suspended transaction must contain at least one item")
	}
	items, err := ParseDetails(req.SalesDetails)
	if err != nil {
		return nil, err
	}
	salesTax, err := s.taxes.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	tx := NewTransaction(req.BusinessEntityID, items, *salesTax, s.now())
	tx.ID = uuid.New()

	bucket, err := s.registry.Put(ctx, tx.BusinessEntityID, ToMemento(tx, s.opts.Location))
	if err != nil {
		return nil, err
	}
	s.logStep(tx, "suspend", "transaction suspended")
	return s.restoreAll(bucket)
}

func (s *service) Restore(ctx context.Context, businessEntityID int64, transactionID string) ([]*SalesTransaction, error) {
	bucket, err := s.registry.Remove(ctx, businessEntityID, transactionID)
	if err != nil {
		return nil, err
	}
	logging.Log(logging.Fields{Service: serviceName, TxID: transactionID, BusinessEntityID: businessEntityID, Step: "restore", Message: "transaction restored"})
	return s.restoreAll(bucket)
}

func (s *service) ListSuspended(ctx context.Context, businessEntityID int64) ([]*SalesTransaction, error) {
	bucket, err := s.registry.List(ctx, businessEntityID)
	if err != nil {
		return nil, err
	}
	return s.restoreAll(bucket)
}

func (s *service) restoreAll(bucket []Memento) ([]*SalesTransaction, error) {
	out := make([]*SalesTransaction, 0, len(bucket))
	for _, m := range bucket {
		tx, err := FromMemento(m, s.opts.Location)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, err, "corrupt suspended transaction %s", m.TransactionID)
		}
		out = append(out, tx)
	}
	return out, nil
}

// applyStock sends delta to inventory. Empty adjustments surface as
// EMPTY_TRANSACTION; every other failure becomes INVENTORY_UPDATE_FAILED.
func (s *service) applyStock(ctx context.Context, businessEntityID int64, delta map[int64]int) error {
	err := s.inventory.ApplyDelta(ctx, businessEntityID, inventory.FromDelta(delta))
	if err == nil {
		return nil
	}
	if apperr.HasCode(err, apperr.CodeEmptyTransaction) {
		return err
	}
	return apperr.Wrap(apperr.CodeInventoryUpdateFailed, err, "inventory update failed")
}

func (s *service) record(operation string, err *error) {
	outcome := "ok"
	if *err != nil {
		outcome = string(apperr.CodeOf(*err))
	}
	s.opts.Metrics.Saga(operation, outcome)
}

func (s *service) logStep(tx *SalesTransaction, step, msg string) {
	logging.Log(logging.Fields{
		Service:          serviceName,
		TxID:             idString(tx.ID),
		BusinessEntityID: tx.BusinessEntityID,
		Step:             step,
		Status:           string(tx.Status),
		Message:          msg,
	})
}

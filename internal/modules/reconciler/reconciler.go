package reconciler

import (
	"context"
	"time"

	"github.com/georgemunganga/printa-pos/internal/modules/payment"
	"github.com/georgemunganga/printa-pos/internal/modules/sales"
	"github.com/georgemunganga/printa-pos/internal/platform/logging"
	"github.com/georgemunganga/printa-pos/internal/platform/metrics"
	"github.com/google/uuid"
)

const serviceName = "payment-reconciler"

// Transactions is the slice of sales.Service the reconciler needs.
type Transactions interface {
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status sales.Status, at time.Time) (*sales.SalesTransaction, error)
	GetTransactionByPaymentID(ctx context.Context, paymentID int64) (*sales.SalesTransaction, error)
}

var statusByPayment = map[payment.Status]sales.Status{
	payment.StatusSucceeded:  sales.StatusCompleted,
	payment.StatusFailed:     sales.StatusRejected,
	payment.StatusCanceled:   sales.StatusCancelled,
	payment.StatusProcessing: sales.StatusPendingPayment,
}

// MapStatus translates a payment status. ok is false for unknown or empty statuses.
func MapStatus(s payment.Status) (sales.Status, bool) {
	st, ok := statusByPayment[s]
	return st, ok
}

// Outcome is what happened to one event.
type Outcome string

const (
	Applied Outcome = "applied"
	Dropped Outcome = "dropped"
	Failed  Outcome = "failed"
)

// Reconciler applies payment events to sales transactions.
type Reconciler struct {
	txs     Transactions
	loc     *time.Location
	metrics *metrics.Metrics
}

func New(txs Transactions, loc *time.Location, m *metrics.Metrics) *Reconciler {
	if loc == nil {
		loc = time.UTC
	}
	return &Reconciler{txs: txs, loc: loc, metrics: m}
}

// Handle applies evt. It never fails: errors are logged and the event is
// treated as consumed either way.
func (r *Reconciler) Handle(ctx context.Context, evt payment.Event) Outcome {
	outcome := r.handle(ctx, evt)
	r.metrics.Event(string(outcome))
	return outcome
}

func (r *Reconciler) handle(ctx context.Context, evt payment.Event) Outcome {
	fields := logging.Fields{Service: serviceName, TxID: evt.TransactionID, EventID: evt.PaymentIntentID, Status: string(evt.PaymentStatus)}

	status, ok := MapStatus(evt.PaymentStatus)
	if !ok {
		fields.Message = "unmapped payment status, event dropped"
		logging.Warn(fields)
		return Dropped
	}

	id, err := r.resolve(ctx, evt)
	if err != nil {
		fields.Message = "cannot resolve transaction"
		logging.Error(fields, err)
		return Failed
	}
	fields.TxID = id.String()

	at, _, err := payment.ParseEventTime(evt.PaymentEventDate, r.loc)
	if err != nil {
		fields.Message = "unparseable event date, using now"
		logging.Warn(fields)
		at = time.Time{}
	}

	start := time.Now()
	if _, err := r.txs.UpdateTransactionStatus(ctx, id, status, at); err != nil {
		fields.Message = "reconciliation failed"
		logging.Error(fields, err)
		return Failed
	}
	fields.Status = string(status)
	fields.DurationMS = time.Since(start).Milliseconds()
	fields.Message = "transaction status reconciled"
	logging.Log(fields)
	return Applied
}

// resolve finds the transaction an event refers to. Events without a
// transaction id are matched by payment id.
func (r *Reconciler) resolve(ctx context.Context, evt payment.Event) (uuid.UUID, error) {
	if evt.TransactionID == "" && evt.PaymentID != 0 {
		tx, err := r.txs.GetTransactionByPaymentID(ctx, evt.PaymentID)
		if err != nil {
			return uuid.Nil, err
		}
		return tx.ID, nil
	}
	return uuid.Parse(evt.TransactionID)
}

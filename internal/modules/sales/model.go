package sales

import (
	"sort"
	"time"

	"github.com/georgemunganga/printa-pos/internal/modules/tax"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a sales transaction.
type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusCompleted      Status = "COMPLETED"
	StatusRejected       Status = "REJECTED"
	StatusCancelled      Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further status change is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

// CanTransitionTo reports whether s may move to next. A pending transaction
// may move anywhere; a terminal one only accepts its own status again.
func (s Status) CanTransitionTo(next Status) bool {
	if !next.Valid() {
		return false
	}
	if s.IsTerminal() {
		return s == next
	}
	return true
}

// LineItem is one product on a transaction. Quantity is signed; negative
// quantities are returns.
type LineItem struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// SalesTransaction is the aggregate root. Totals are derived from Items and
// the applied tax and are recomputed whenever the items change.
type SalesTransaction struct {
	ID               uuid.UUID
	BusinessEntityID int64
	Items            map[int64]LineItem
	TaxType          tax.TaxType
	TaxRate          decimal.Decimal
	Subtotal         decimal.Decimal
	TaxAmount        decimal.Decimal
	Total            decimal.Decimal
	Status           Status
	PaymentIntentID  string
	PaymentID        *int64
	PaymentEventDate *time.Time
	TransactionDate  time.Time
	UpdatedAt        time.Time
	// Version counts line item revisions; status and payment writes leave it alone.
	Version          int64
}

// NewTransaction builds a pending transaction with computed totals.
func NewTransaction(businessEntityID int64, items []LineItem, salesTax tax.SalesTax, now time.Time) *SalesTransaction {
	tx := &SalesTransaction{
		BusinessEntityID: businessEntityID,
		Status:           StatusPendingPayment,
		TransactionDate:  now,
		UpdatedAt:        now,
	}
	tx.ReplaceItems(items, salesTax)
	return tx
}

// ReplaceItems swaps the line items and recomputes totals. Duplicate product
// ids keep the last occurrence.
func (t *SalesTransaction) ReplaceItems(items []LineItem, salesTax tax.SalesTax) {
	t.Items = itemMap(items)
	t.TaxType = salesTax.TaxType
	t.TaxRate = salesTax.TaxRate
	t.recompute()
}

func (t *SalesTransaction) recompute() {
	calc := make([]tax.Item, 0, len(t.Items))
	for _, it := range t.Items {
		calc = append(calc, tax.Item{Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	totals := tax.Compute(calc, tax.SalesTax{TaxType: t.TaxType, TaxRate: t.TaxRate})
	t.Subtotal = totals.Subtotal
	t.TaxAmount = totals.TaxAmount
	t.Total = totals.Total
}

// SortedItems returns the line items ordered by product id.
func (t *SalesTransaction) SortedItems() []LineItem {
	out := make([]LineItem, 0, len(t.Items))
	for _, it := range t.Items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// Clone returns a deep copy that shares no mutable state with t.
func (t *SalesTransaction) Clone() *SalesTransaction {
	cp := *t
	cp.Items = make(map[int64]LineItem, len(t.Items))
	for k, v := range t.Items {
		cp.Items[k] = v
	}
	if t.PaymentID != nil {
		id := *t.PaymentID
		cp.PaymentID = &id
	}
	if t.PaymentEventDate != nil {
		d := *t.PaymentEventDate
		cp.PaymentEventDate = &d
	}
	return &cp
}

func itemMap(items []LineItem) map[int64]LineItem {
	m := make(map[int64]LineItem, len(items))
	for _, it := range items {
		m[it.ProductID] = it
	}
	return m
}

// SalesDetail is the wire form of a line item.
type SalesDetail struct {
	ProductID         int64  `json:"productId"`
	Quantity          int    `json:"quantity"`
	SalesPricePerUnit string `json:"salesPricePerUnit"`
}

// ParseDetails converts wire line items, rejecting malformed prices with INVALID_AMOUNT.
func ParseDetails(details []SalesDetail) ([]LineItem, error) {
	items := make([]LineItem, 0, len(details))
	for _, d := range details {
		price, err := tax.ParsePrice(d.SalesPricePerUnit)
		if err != nil {
			return nil, err
		}
		items = append(items, LineItem{ProductID: d.ProductID, Quantity: d.Quantity, UnitPrice: price})
	}
	return items, nil
}

// CreateTransactionRequest is the payload for creating or suspending a sale.
type CreateTransactionRequest struct {
	BusinessEntityID int64         `json:"businessEntityId"`
	SalesDetails     []SalesDetail `json:"salesDetails"`
}

// CreateTransactionResult pairs the persisted transaction with the payment intent.
type CreateTransactionResult struct {
	Transaction *SalesTransaction
	Payment     *PaymentIntent
}

// PaymentIntent is what the client needs to complete payment.
type PaymentIntent struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// StatusView is the read model for status polling.
type StatusView struct {
	TransactionID    string `json:"transactionId"`
	Status           Status `json:"status"`
	PaymentIntentID  string `json:"paymentIntentId,omitempty"`
	PaymentID        *int64 `json:"paymentId,omitempty"`
	PaymentEventDate string `json:"paymentEventDate,omitempty"`
}

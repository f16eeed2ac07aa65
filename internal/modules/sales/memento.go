package sales

import (
	"fmt"
	"time"

	"github.com/georgemunganga/printa-pos/internal/modules/tax"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateTimeLayout is how transaction timestamps are rendered.
const DateTimeLayout = "2006-01-02 15:04:05"

// Memento is a frozen snapshot of a transaction with every computed field
// rendered as a string. It is also the wire shape of a transaction.
type Memento struct {
	TransactionID       string        `json:"transactionId"`
	BusinessEntityID    int64         `json:"businessEntityId"`
	SubTotal            string        `json:"subTotal"`
	TaxType             string        `json:"taxType"`
	TaxRate             string        `json:"taxRate"`
	TaxAmount           string        `json:"taxAmount"`
	TotalAmount         string        `json:"totalAmount"`
	SalesDetails        []SalesDetail `json:"salesDetails"`
	Status              Status        `json:"status"`
	TransactionDateTime string        `json:"transactionDateTime"`
	PaymentIntentID     string        `json:"paymentIntentId,omitempty"`
	PaymentID           *int64        `json:"paymentId,omitempty"`
	PaymentEventDate    string        `json:"paymentEventDate,omitempty"`
}

// ToMemento snapshots tx. Timestamps are rendered in loc.
func ToMemento(tx *SalesTransaction, loc *time.Location) Memento {
	items := tx.SortedItems()
	details := make([]SalesDetail, 0, len(items))
	for _, it := range items {
		details = append(details, SalesDetail{
			ProductID:         it.ProductID,
			Quantity:          it.Quantity,
			SalesPricePerUnit: priceString(it.UnitPrice),
		})
	}
	m := Memento{
		TransactionID:       idString(tx.ID),
		BusinessEntityID:    tx.BusinessEntityID,
		SubTotal:            tx.Subtotal.StringFixed(2),
		TaxType:             string(tx.TaxType),
		TaxRate:             tx.TaxRate.String(),
		TaxAmount:           tx.TaxAmount.StringFixed(2),
		TotalAmount:         tx.Total.StringFixed(2),
		SalesDetails:        details,
		Status:              tx.Status,
		TransactionDateTime: tx.TransactionDate.In(loc).Format(DateTimeLayout),
		PaymentIntentID:     tx.PaymentIntentID,
	}
	if tx.PaymentID != nil {
		id := *tx.PaymentID
		m.PaymentID = &id
	}
	if tx.PaymentEventDate != nil {
		m.PaymentEventDate = tx.PaymentEventDate.In(loc).Format(DateTimeLayout)
	}
	return m
}

// FromMemento rebuilds a transaction from m without recomputing totals, so the
// result renders back to the same strings.
func FromMemento(m Memento, loc *time.Location) (*SalesTransaction, error) {
	tx := &SalesTransaction{
		BusinessEntityID: m.BusinessEntityID,
		TaxType:          tax.TaxType(m.TaxType),
		Status:           m.Status,
		PaymentIntentID:  m.PaymentIntentID,
		Items:            make(map[int64]LineItem, len(m.SalesDetails)),
	}
	var err error
	if m.TransactionID != "" {
		if tx.ID, err = uuid.Parse(m.TransactionID); err != nil {
			return nil, fmt.Errorf("memento transaction id: %w", err)
		}
	}
	amounts := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&tx.Subtotal, m.SubTotal},
		{&tx.TaxRate, m.TaxRate},
		{&tx.TaxAmount, m.TaxAmount},
		{&tx.Total, m.TotalAmount},
	}
	for _, a := range amounts {
		if *a.dst, err = decimal.NewFromString(a.src); err != nil {
			return nil, fmt.Errorf("memento amount %q: %w", a.src, err)
		}
	}
	items, err := ParseDetails(m.SalesDetails)
	if err != nil {
		return nil, err
	}
	tx.Items = itemMap(items)
	if tx.TransactionDate, err = time.ParseInLocation(DateTimeLayout, m.TransactionDateTime, loc); err != nil {
		return nil, fmt.Errorf("memento timestamp: %w", err)
	}
	tx.UpdatedAt = tx.TransactionDate
	if m.PaymentID != nil {
		id := *m.PaymentID
		tx.PaymentID = &id
	}
	if m.PaymentEventDate != "" {
		d, err := time.ParseInLocation(DateTimeLayout, m.PaymentEventDate, loc)
		if err != nil {
			return nil, fmt.Errorf("memento payment event date: %w", err)
		}
		tx.PaymentEventDate = &d
	}
	return tx, nil
}

// priceString renders d keeping the scale it was parsed with, so "12.50"
// stays "12.50".
func priceString(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

func idString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

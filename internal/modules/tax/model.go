package tax

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxType identifies a kind of sales tax. Only GST is modelled.
type TaxType string

const TaxGST TaxType = "GST"

// DefaultGSTRate is the rate a GST record is created with when none exists.
var DefaultGSTRate = decimal.RequireFromString("0.09")

// SalesTax is a persisted tax rate.
type SalesTax struct {
	ID        int64           `json:"id"`
	TaxType   TaxType         `json:"tax_type"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	CreatedAt time.Time       `json:"created_at"`
}

// Amount returns round2(subtotal * rate).
func (t SalesTax) Amount(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(t.TaxRate).Round(2)
}

// Item is the part of a line item the calculator needs.
type Item struct {
	Quantity  int
	UnitPrice decimal.Decimal
}

// Totals are the computed money fields of a sale.
type Totals struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// Result is the outcome of a tax calculation, with amounts rendered as
// two-decimal strings.
type Result struct {
	Subtotal  string `json:"subTotalAmount"`
	TaxType   string `json:"taxType"`
	TaxRate   string `json:"taxRate"`
	TaxAmount string `json:"taxAmount"`
	Total     string `json:"totalAmount"`
}

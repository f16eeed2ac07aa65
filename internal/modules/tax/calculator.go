package tax

import (
	"context"
	"fmt"
	"strings"

	"github.com/georgemunganga/printa-pos/internal/apperr"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Compute sums quantity*unitPrice in full precision, rounds the subtotal once
// and derives tax and total from it. Rounding is half away from zero.
func Compute(items []Item, salesTax SalesTax) Totals {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	subtotal := sum.Round(2)
	taxAmount := salesTax.Amount(subtotal)
	return Totals{
		Subtotal:  subtotal,
		TaxAmount: taxAmount,
		Total:     subtotal.Add(taxAmount).Round(2),
	}
}

// MaxPriceScale is the most fractional digits a unit price may carry.
// Trailing zeros beyond it are accepted.
const MaxPriceScale = 4

// ParsePrice parses a unit price string. Non-numeric, negative or overly
// precise input is rejected with INVALID_AMOUNT.
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, apperr.Wrap(apperr.CodeInvalidAmount, err, "invalid amount %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, apperr.New(apperr.CodeInvalidAmount, "amount must not be negative: %s", s)
	}
	if !d.Equal(d.Truncate(MaxPriceScale)) {
		return decimal.Zero, apperr.New(apperr.CodeInvalidAmount, "amount has more than %d decimal places: %s", MaxPriceScale, s)
	}
	return d, nil
}

// Service resolves the active tax rate and computes totals.
type Service interface {
	Resolve(ctx context.Context) (*SalesTax, error)
	Calculate(ctx context.Context, items []Item) (*Result, error)
}

type service struct {
	repo  Repository
	group singleflight.Group
}

func NewService(repo Repository) Service { return &service{repo: repo} }

// Resolve returns the GST record, creating it with DefaultGSTRate if absent.
// Concurrent callers in this process share one lookup; cross-process races
// are settled by the repository's upsert.
func (s *service) Resolve(ctx context.Context) (*SalesTax, error) {
	v, err, _ := s.group.Do(string(TaxGST), func() (interface{}, error) {
		return s.repo.GetOrCreate(ctx, TaxGST, DefaultGSTRate)
	})
	if err != nil {
		return nil, fmt.Errorf("resolve sales tax: %w", err)
	}
	st := *v.(*SalesTax)
	return &st, nil
}

func (s *service) Calculate(ctx context.Context, items []Item) (*Result, error) {
	st, err := s.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	totals := Compute(items, *st)
	return &Result{
		Subtotal:  totals.Subtotal.StringFixed(2),
		TaxType:   string(st.TaxType),
		TaxRate:   st.TaxRate.String(),
		TaxAmount: totals.TaxAmount.StringFixed(2),
		Total:     totals.Total.StringFixed(2),
	}, nil
}

package tax

import (
	"context"
	"sync"
	"testing"

	"github.com/georgemunganga/printa-pos/internal/apperr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func items(t *testing.T, pairs ...interface{}) []Item {
	t.Helper()
	out := make([]Item, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		price, err := ParsePrice(pairs[i+1].(string))
		require.NoError(t, err)
		out = append(out, Item{Quantity: pairs[i].(int), UnitPrice: price})
	}
	return out
}

func TestCalculate_ReferenceSale(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	res, err := svc.Calculate(context.Background(), items(t, 2, "50.0", 3, "100.0", 4, "200.0"))

	require.NoError(t, err)
	assert.Equal(t, "1200.00", res.Subtotal)
	assert.Equal(t, "GST", res.TaxType)
	assert.Equal(t, "0.09", res.TaxRate)
	assert.Equal(t, "108.00", res.TaxAmount)
	assert.Equal(t, "1308.00", res.Total)
}

func TestCompute_OrderIndependent(t *testing.T) {
	gst := SalesTax{TaxType: TaxGST, TaxRate: DefaultGSTRate}
	a := items(t, 3, "19.99", 1, "0.015", 7, "2.333")
	b := []Item{a[2], a[0], a[1]}

	ta, tb := Compute(a, gst), Compute(b, gst)

	assert.True(t, ta.Subtotal.Equal(tb.Subtotal))
	assert.True(t, ta.TaxAmount.Equal(tb.TaxAmount))
	assert.True(t, ta.Total.Equal(tb.Total))
}

func TestCompute_RoundsOnceHalfUp(t *testing.T) {
	gst := SalesTax{TaxType: TaxGST, TaxRate: DefaultGSTRate}

	// 3 * 0.335 = 1.005 -> 1.01 (rounded once, half up)
	totals := Compute(items(t, 3, "0.335"), gst)
	assert.Equal(t, "1.01", totals.Subtotal.StringFixed(2))

	// 1.01 * 0.09 = 0.0909 -> 0.09
	assert.Equal(t, "0.09", totals.TaxAmount.StringFixed(2))
	assert.Equal(t, "1.10", totals.Total.StringFixed(2))
}

func TestCompute_InvariantsHold(t *testing.T) {
	gst := SalesTax{TaxType: TaxGST, TaxRate: decimal.RequireFromString("0.07")}
	totals := Compute(items(t, 5, "12.345", -1, "3.10", 2, "0"), gst)

	assert.True(t, totals.TaxAmount.Equal(totals.Subtotal.Mul(gst.TaxRate).Round(2)))
	assert.True(t, totals.Total.Equal(totals.Subtotal.Add(totals.TaxAmount).Round(2)))
}

func TestParsePrice_Invalid(t *testing.T) {
	_, err := ParsePrice("abc")
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidAmount))

	_, err = ParsePrice("-1.00")
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidAmount))

	_, err = ParsePrice("0.00005")
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidAmount))

	_, err = ParsePrice("19.99999")
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidAmount))
}

func TestParsePrice_ScaleLimit(t *testing.T) {
	d, err := ParsePrice("3.3333")
	require.NoError(t, err)
	assert.Equal(t, "3.3333", d.String())

	d, err = ParsePrice("1.50000")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("1.5")))
}

func TestResolve_GetOrCreateIsIdempotent(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)

	var wg sync.WaitGroup
	ids := make([]int64, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st, err := svc.Resolve(context.Background())
			if assert.NoError(t, err) {
				ids[i] = st.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestResolve_UsesExistingRate(t *testing.T) {
	repo := NewMemoryRepository(SalesTax{TaxType: TaxGST, TaxRate: decimal.RequireFromString("0.08")})
	svc := NewService(repo)

	st, err := svc.Resolve(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "0.08", st.TaxRate.String())
}

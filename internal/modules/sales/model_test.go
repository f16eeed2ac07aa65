package sales

import (
	"testing"
	"time"

	"github.com/georgemunganga/printa-pos/internal/apperr"
	"github.com/georgemunganga/printa-pos/internal/modules/tax"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var gst = tax.SalesTax{TaxType: tax.TaxGST, TaxRate: tax.DefaultGSTRate}

func item(productID int64, qty int, price string) LineItem {
	return LineItem{ProductID: productID, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func TestStatus_Transitions(t *testing.T) {
	assert.True(t, StatusPendingPayment.CanTransitionTo(StatusCompleted))
	assert.True(t, StatusPendingPayment.CanTransitionTo(StatusPendingPayment))
	assert.True(t, StatusCompleted.CanTransitionTo(StatusCompleted))

	assert.False(t, StatusCompleted.CanTransitionTo(StatusPendingPayment))
	assert.False(t, StatusRejected.CanTransitionTo(StatusCompleted))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusPendingPayment))
	assert.False(t, StatusPendingPayment.CanTransitionTo(Status("REFUNDED")))
}

func TestStockDelta_MinimalAdjustment(t *testing.T) {
	const a, b, c = 1, 2, 3
	existing := itemMap([]LineItem{item(a, 2, "1"), item(b, 3, "1")})

	delta := StockDelta(existing, []LineItem{item(a, 3, "1"), item(c, 2, "1")})

	assert.Equal(t, map[int64]int{a: 1, b: -3, c: 2}, delta)
}

func TestStockDelta_DuplicateIncomingLastWins(t *testing.T) {
	delta := StockDelta(nil, []LineItem{item(5, 1, "1"), item(5, 4, "1")})

	assert.Equal(t, map[int64]int{5: 4}, delta)
}

func TestStockDelta_UnchangedIsZero(t *testing.T) {
	existing := itemMap([]LineItem{item(1, 2, "1")})

	delta := StockDelta(existing, []LineItem{item(1, 2, "9.99")})

	assert.Equal(t, map[int64]int{1: 0}, delta)
	assert.Equal(t, map[int64]int{1: 0}, Negate(delta))
}

func TestNewTransaction_ComputesTotals(t *testing.T) {
	tx := NewTransaction(7, []LineItem{item(1, 2, "50.0"), item(2, 3, "100.0"), item(3, 4, "200.0")}, gst, time.Now())

	assert.Equal(t, StatusPendingPayment, tx.Status)
	assert.Equal(t, "1200.00", tx.Subtotal.StringFixed(2))
	assert.Equal(t, "108.00", tx.TaxAmount.StringFixed(2))
	assert.Equal(t, "1308.00", tx.Total.StringFixed(2))
}

func TestReplaceItems_RecomputesAndClonesAreIndependent(t *testing.T) {
	tx := NewTransaction(7, []LineItem{item(1, 2, "10")}, gst, time.Now())
	cp := tx.Clone()

	cp.ReplaceItems([]LineItem{item(1, 2, "10"), item(2, 1, "5")}, gst)

	assert.Len(t, tx.Items, 1)
	assert.Equal(t, "20.00", tx.Subtotal.StringFixed(2))
	assert.Equal(t, "25.00", cp.Subtotal.StringFixed(2))
	assert.Equal(t, "27.25", cp.Total.StringFixed(2))
}

func TestParseDetails_InvalidPrice(t *testing.T) {
	_, err := ParseDetails([]SalesDetail{{ProductID: 1, Quantity: 1, SalesPricePerUnit: "ten"}})

	assert.Error(t, err)
}

func TestParseDetails_RejectsPriceBeyondStoredScale(t *testing.T) {
	_, err := ParseDetails([]SalesDetail{{ProductID: 1, Quantity: 3, SalesPricePerUnit: "0.33333"}})

	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidAmount))
}

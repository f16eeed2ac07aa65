package sales

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sgt = time.FixedZone("SGT", 8*60*60)

func TestMemento_RoundTripIsExact(t *testing.T) {
	tx := NewTransaction(3, []LineItem{item(1, 3, "0.335"), item(2, -1, "4.10"), item(9, 2, "19.99")}, gst,
		time.Date(2025, 5, 1, 2, 3, 4, 0, time.UTC))
	tx.ID = uuid.New()

	m := ToMemento(tx, sgt)
	back, err := FromMemento(m, sgt)
	require.NoError(t, err)

	assert.Equal(t, "2025-05-01 10:03:04", m.TransactionDateTime)
	assert.Equal(t, m, ToMemento(back, sgt))
	assert.Equal(t, tx.Subtotal.StringFixed(2), back.Subtotal.StringFixed(2))
	assert.Equal(t, tx.TaxAmount.StringFixed(2), back.TaxAmount.StringFixed(2))
	assert.Equal(t, tx.Total.StringFixed(2), back.Total.StringFixed(2))
	require.Len(t, back.Items, 3)
	assert.Equal(t, "4.10", m.SalesDetails[1].SalesPricePerUnit)
	assert.Equal(t, "4.10", priceString(back.Items[2].UnitPrice))
	assert.Equal(t, -1, back.Items[2].Quantity)
	assert.True(t, tx.TransactionDate.Equal(back.TransactionDate))
}

func TestMemento_KeepsPriceScale(t *testing.T) {
	tx := NewTransaction(3, []LineItem{item(1, 1, "12.50"), item(2, 1, "7"), item(3, 1, "0.3350")}, gst, time.Now())

	m := ToMemento(tx, sgt)

	got := make([]string, 0, len(m.SalesDetails))
	for _, d := range m.SalesDetails {
		got = append(got, d.SalesPricePerUnit)
	}
	assert.Equal(t, []string{"12.50", "7", "0.3350"}, got)

	back, err := FromMemento(m, sgt)
	require.NoError(t, err)
	assert.Equal(t, m, ToMemento(back, sgt))
}

func TestMemento_IsDetachedFromSource(t *testing.T) {
	tx := NewTransaction(3, []LineItem{item(1, 1, "2.00")}, gst, time.Now())
	m := ToMemento(tx, sgt)

	tx.ReplaceItems([]LineItem{item(1, 5, "2.00")}, gst)

	assert.Equal(t, "2.00", m.SubTotal)
	assert.Equal(t, 1, m.SalesDetails[0].Quantity)
}

func TestFromMemento_RejectsCorruptAmounts(t *testing.T) {
	m := ToMemento(NewTransaction(3, []LineItem{item(1, 1, "2.00")}, gst, time.Now()), sgt)
	m.TotalAmount = "lots"

	_, err := FromMemento(m, sgt)

	assert.Error(t, err)
}

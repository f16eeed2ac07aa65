package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePaymentIntent_Success(t *testing.T) {
	var got IntentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/payments/create-payment-intent", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"clientSecret":"cs_1","paymentIntentId":"pi_1","paymentId":42}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, time.Second, nil)
	resp, err := gw.CreatePaymentIntent(context.Background(), IntentRequest{
		TransactionID: "tx-1",
		Description:   "Printa POS Payment",
		Amount:        1308,
		Currency:      "SGD",
		CustomerEmail: "pos@printa.app",
		PaymentType:   "card",
	})

	require.NoError(t, err)
	assert.Equal(t, "pi_1", resp.PaymentIntentID)
	assert.Equal(t, "cs_1", resp.ClientSecret)
	require.NotNil(t, resp.PaymentID)
	assert.Equal(t, int64(42), *resp.PaymentID)
	assert.Equal(t, "tx-1", got.TransactionID)
	assert.Equal(t, 1308.0, got.Amount)
}

func TestCreatePaymentIntent_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "card declined", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	_, err := NewHTTPGateway(srv.URL, time.Second, nil).CreatePaymentIntent(context.Background(), IntentRequest{})

	assert.ErrorContains(t, err, "402")
}

func TestParseEventTime(t *testing.T) {
	sgt := time.FixedZone("SGT", 8*60*60)

	local, ok, err := ParseEventTime("2025-05-01T10:15:30", sgt)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, 5, 1, 2, 15, 30, 0, time.UTC), local.UTC())

	zoned, ok, err := ParseEventTime("2025-05-01T10:15:30Z", sgt)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 18, zoned.Hour())

	_, ok, err = ParseEventTime("", sgt)
	assert.NoError(t, err)
	assert.False(t, ok)

	_, _, err = ParseEventTime("yesterday", sgt)
	assert.Error(t, err)
}

package payment

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the payment service's view of a payment intent.
type Status string

const (
	StatusSucceeded  Status = "SUCCEEDED"
	StatusFailed     Status = "FAILED"
	StatusCanceled   Status = "CANCELED"
	StatusProcessing Status = "PROCESSING"
)

// IntentRequest asks the payment service for a new payment intent.
type IntentRequest struct {
	TransactionID string  `json:"transaction_id"`
	Description   string  `json:"description"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	CustomerEmail string  `json:"customer_email"`
	PaymentType   string  `json:"payment_type"`
}

// IntentResponse is returned by the payment service. PaymentID and
// PaymentEventDate are only present when the provider settled synchronously.
type IntentResponse struct {
	ClientSecret     string `json:"clientSecret"`
	PaymentIntentID  string `json:"paymentIntentId"`
	PaymentID        *int64 `json:"paymentId,omitempty"`
	PaymentEventDate string `json:"paymentEventDate,omitempty"`
}

// Event is one asynchronous payment status notification.
type Event struct {
	PaymentID        int64           `json:"paymentId"`
	PaymentIntentID  string          `json:"paymentIntentId"`
	TransactionID    string          `json:"transactionId"`
	TotalPrice       decimal.Decimal `json:"totalPrice"`
	Currency         string          `json:"currency"`
	CustomerEmail    string          `json:"customerEmail"`
	PaymentStatus    Status          `json:"paymentStatus"`
	PaymentEventDate string          `json:"paymentEventDate,omitempty"`
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseEventTime interprets s in loc. Zone-less timestamps are local date-times
// in loc; timestamps carrying an offset keep it and are converted to loc.
// ok is false when s is empty.
func ParseEventTime(s string, loc *time.Location) (t time.Time, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), true, nil
	}
	for _, layout := range localLayouts {
		if t, err = time.ParseInLocation(layout, s, loc); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, false, err
}

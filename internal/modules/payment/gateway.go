package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/georgemunganga/printa-pos/internal/modules/auth"
	"github.com/georgemunganga/printa-pos/internal/platform/breaker"
	"github.com/georgemunganga/printa-pos/internal/platform/metrics"
	"github.com/sony/gobreaker/v2"
)

// Gateway is the provider-agnostic interface to the payment service.
type Gateway interface {
	// CreatePaymentIntent requests a new payment intent for a persisted transaction.
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*IntentResponse, error)
}

const intentPath = "/api/payments/create-payment-intent"

type httpGateway struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[*IntentResponse]
	metrics *metrics.Metrics
}

func NewHTTPGateway(baseURL string, timeout time.Duration, m *metrics.Metrics) Gateway {
	return &httpGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		timeout: timeout,
		cb:      breaker.New[*IntentResponse](breaker.Settings{Name: "payment-service"}),
		metrics: m,
	}
}

func (g *httpGateway) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*IntentResponse, error) {
	start := time.Now()
	resp, err := g.cb.Execute(func() (*IntentResponse, error) {
		return g.post(ctx, req)
	})
	g.metrics.ObserveGateway("payment", start, err)
	return resp, err
}

func (g *httpGateway) post(ctx context.Context, body IntentRequest) (*IntentResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, g.baseURL+intentPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	auth.Forward(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment service call failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading payment response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("payment service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out IntentResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding payment response: %w", err)
	}
	return &out, nil
}

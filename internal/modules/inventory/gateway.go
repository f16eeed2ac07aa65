package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/georgemunganga/printa-pos/internal/apperr"
	"github.com/georgemunganga/printa-pos/internal/modules/auth"
	"github.com/georgemunganga/printa-pos/internal/platform/breaker"
	"github.com/georgemunganga/printa-pos/internal/platform/metrics"
	"github.com/sony/gobreaker/v2"
)

// Gateway applies signed stock adjustments to the remote inventory service.
// A call is a single best-effort attempt; callers do not retry.
type Gateway interface {
	ApplyDelta(ctx context.Context, businessEntityID int64, items []Item) error
}

const deductPath = "/api/inventory/deduct"

type httpGateway struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[struct{}]
	metrics *metrics.Metrics
}

// NewHTTPGateway returns a Gateway that posts to baseURL with a per-call timeout.
func NewHTTPGateway(baseURL string, timeout time.Duration, m *metrics.Metrics) Gateway {
	return &httpGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		timeout: timeout,
		cb: breaker.New[struct{}](breaker.Settings{
			Name:         "inventory-service",
			IsSuccessful: func(err error) bool { return err == nil || isRejection(err) },
		}),
		metrics: m,
	}
}

func (g *httpGateway) ApplyDelta(ctx context.Context, businessEntityID int64, items []Item) error {
	if len(items) == 0 {
		return apperr.New(apperr.CodeEmptyTransaction, "no stock adjustments for business entity %d", businessEntityID)
	}
	start := time.Now()
	_, err := g.cb.Execute(func() (struct{}, error) {
		return struct{}{}, g.post(ctx, UpdateRequest{BusinessEntityID: businessEntityID, Items: items})
	})
	g.metrics.ObserveGateway("inventory", start, err)
	return err
}

func (g *httpGateway) post(ctx context.Context, body UpdateRequest) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, g.baseURL+deductPath, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	auth.Forward(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("inventory service call failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading inventory response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("inventory service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var out UpdateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decoding inventory response: %w", err)
	}
	if !out.Success {
		return &RejectedError{Reason: rejectionReason(out)}
	}
	return nil
}

// RejectedError is returned when the inventory service answered but refused
// the adjustment, e.g. for insufficient stock. It does not count against the
// circuit breaker.
type RejectedError struct{ Reason string }

func (e *RejectedError) Error() string { return "stock update rejected: " + e.Reason }

func isRejection(err error) bool {
	var rej *RejectedError
	return errors.As(err, &rej)
}

func rejectionReason(out UpdateResponse) string {
	if out.Message != "" {
		return out.Message
	}
	var reasons []string
	for _, st := range out.ItemStatuses {
		if !st.Updated {
			reasons = append(reasons, fmt.Sprintf("product %d: %s", st.ProductID, st.Reason))
		}
	}
	if len(reasons) == 0 {
		return "unknown reason"
	}
	return strings.Join(reasons, "; ")
}

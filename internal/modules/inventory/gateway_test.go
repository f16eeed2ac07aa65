package inventory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/georgemunganga/printa-pos/internal/apperr"
	"github.com/georgemunganga/printa-pos/internal/modules/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDelta_PostsSignedItems(t *testing.T) {
	var got UpdateRequest
	var authHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/inventory/deduct", r.URL.Path)
		authHeader = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL+"/", time.Second, nil)
	ctx := auth.WithToken(context.Background(), "tok")

	err := gw.ApplyDelta(ctx, 7, []Item{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: -3}})

	require.NoError(t, err)
	assert.Equal(t, int64(7), got.BusinessEntityID)
	assert.Equal(t, []Item{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: -3}}, got.Items)
	assert.Equal(t, "Bearer tok", authHeader)
}

func TestApplyDelta_EmptyItems(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	err := NewHTTPGateway(srv.URL, time.Second, nil).ApplyDelta(context.Background(), 1, nil)

	assert.True(t, apperr.HasCode(err, apperr.CodeEmptyTransaction))
	assert.Zero(t, calls)
}

func TestApplyDelta_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(UpdateResponse{
			Success:      false,
			ItemStatuses: []ItemStatus{{ProductID: 3, Updated: false, Reason: "Insufficient stock"}},
		})
	}))
	defer srv.Close()

	err := NewHTTPGateway(srv.URL, time.Second, nil).ApplyDelta(context.Background(), 1, []Item{{ProductID: 3, Quantity: 9}})

	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Contains(t, rej.Reason, "product 3: Insufficient stock")
}

func TestApplyDelta_ServerErrorAndTimeout(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	err := NewHTTPGateway(failing.URL, time.Second, nil).ApplyDelta(context.Background(), 1, []Item{{ProductID: 1, Quantity: 1}})
	assert.ErrorContains(t, err, "503")

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer slow.Close()

	err = NewHTTPGateway(slow.URL, 20*time.Millisecond, nil).ApplyDelta(context.Background(), 1, []Item{{ProductID: 1, Quantity: 1}})
	assert.Error(t, err)
}

func TestFromDelta_DropsZeroAndSorts(t *testing.T) {
	items := FromDelta(map[int64]int{9: 1, 2: 0, 4: -3})

	assert.Equal(t, []Item{{ProductID: 4, Quantity: -3}, {ProductID: 9, Quantity: 1}}, items)
}

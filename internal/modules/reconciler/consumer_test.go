package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/georgemunganga/printa-pos/internal/modules/payment"
	"github.com/georgemunganga/printa-pos/internal/modules/sales"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader replays queued results, then blocks until the context ends.
type fakeReader struct {
	mu      sync.Mutex
	queue   []result
	drained chan struct{}
	closed  bool
}

type result struct {
	msg kafka.Message
	err error
}

func newFakeReader(results ...result) *fakeReader {
	return &fakeReader{queue: results, drained: make(chan struct{})}
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		next := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return next.msg, next.err
	}
	if r.drained != nil {
		close(r.drained)
		r.drained = nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func eventMessage(t *testing.T, evt payment.Event) result {
	data, err := json.Marshal(evt)
	require.NoError(t, err)
	return result{msg: kafka.Message{Value: data}}
}

func TestConsumer_AppliesEventsInOrder(t *testing.T) {
	f := newFixture(t)
	id := f.pending(t)

	reader := newFakeReader(
		eventMessage(t, payment.Event{TransactionID: id.String(), PaymentStatus: payment.StatusProcessing}),
		result{msg: kafka.Message{Value: []byte("{oops")}},
		result{err: errors.New("broker unavailable")},
		eventMessage(t, payment.Event{TransactionID: id.String(), PaymentStatus: payment.StatusSucceeded}),
	)
	drained := reader.drained
	c := NewConsumer(reader, f.rec)
	c.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	select {
	case <-drained:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain the reader")
	}
	cancel()
	<-done
	require.NoError(t, c.Close())

	tx, err := f.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, sales.StatusCompleted, tx.Status)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Events.WithLabelValues("applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Events.WithLabelValues("malformed")))
	assert.True(t, reader.closed)
}

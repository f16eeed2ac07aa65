package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/georgemunganga/printa-pos/internal/modules/payment"
	"github.com/georgemunganga/printa-pos/internal/platform/logging"
	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// NewReader returns a group reader; offsets are committed as messages are read.
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// Consumer feeds payment events to a Reconciler one at a time, in delivery order.
type Consumer struct {
	reader     MessageReader
	reconciler *Reconciler
	backoff    time.Duration
}

func NewConsumer(reader MessageReader, reconciler *Reconciler) *Consumer {
	return &Consumer{reader: reader, reconciler: reconciler, backoff: 2 * time.Second}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	logging.Log(logging.Fields{Service: serviceName, Step: "consume", Message: "payment event consumer started"})
	for {
		if ctx.Err() != nil {
			return
		}
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			logging.Error(logging.Fields{Service: serviceName, Step: "consume", Message: "kafka read error"}, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff):
			}
			continue
		}
		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	var evt payment.Event
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		c.reconciler.metrics.Event("malformed")
		logging.Error(logging.Fields{Service: serviceName, Step: "decode", Message: "event decode error"}, err)
		return
	}
	c.reconciler.Handle(ctx, evt)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

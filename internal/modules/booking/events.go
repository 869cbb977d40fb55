// README: Kafka sink publishing booking lifecycle events, keyed by booking id.
package booking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaSink struct {
	writer  MessageWriter
	timeout time.Duration
}

func NewKafkaSink(writer MessageWriter) *KafkaSink {
	return &KafkaSink{writer: writer, timeout: 2 * time.Second}
}

func (k *KafkaSink) Record(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.BookingID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(string(e.FromStatus) + ">" + string(e.ToStatus))},
		},
	})
}

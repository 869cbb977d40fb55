package booking

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("expected a deadline on publish")
	}
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func TestKafkaSink_Record(t *testing.T) {
	w := &fakeWriter{}
	sink := NewKafkaSink(w)

	e := Event{
		BookingID:  "b1",
		FromStatus: StatusPending,
		ToStatus:   StatusAccepted,
		Actor:      ActorDriver,
		ActorID:    "d1",
		CreatedAt:  time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	if err := sink.Record(context.Background(), e); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "b1" {
		t.Fatalf("key = %q", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != "PENDING>ACCEPTED" {
		t.Fatalf("headers = %+v", msg.Headers)
	}
	var got Event
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.BookingID != e.BookingID || got.ToStatus != e.ToStatus || !got.CreatedAt.Equal(e.CreatedAt) {
		t.Fatalf("decoded event = %+v", got)
	}
}

func TestKafkaSink_FailureDoesNotBlockTransition(t *testing.T) {
	svc := NewService(NewMemoryStore(), &fakeProfiles{}, quietLogger(), NewKafkaSink(&fakeWriter{err: errors.New("broker down")}))
	b := mustCreate(t, svc, "r_kafka_down")
	if _, err := svc.Accept(context.Background(), AcceptCommand{BookingID: b.ID, DriverID: "d1"}); err != nil {
		t.Fatalf("accept with failing sink: %v", err)
	}
	assertStatus(t, svc, b.ID, StatusAccepted)
}

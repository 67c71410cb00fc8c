package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/you/studio-booking/internal/events"
)

type captured struct {
	subjects []string
	messages []string
	err      error
}

func (c *captured) Notify(subject, message string) error {
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subject)
	c.messages = append(c.messages, message)
	return nil
}

type acks struct {
	acked, requeued, dropped int
}

func (a *acks) Ack(uint64, bool) error { a.acked++; return nil }
func (a *acks) Nack(_ uint64, _ bool, requeue bool) error {
	if requeue {
		a.requeued++
	} else {
		a.dropped++
	}
	return nil
}
func (a *acks) Reject(_ uint64, requeue bool) error { return a.Nack(0, false, requeue) }

func TestHandleBookingCreated(t *testing.T) {
	n := &captured{}
	w := NewWorker(n, zap.NewNop())
	body := `{"booking_id":"BK-2024-06-01-A-1500","hall_id":"A","date":"2024-06-01","slot":"15:00–16:00","price":14000,"name":"Anna","phone":"+7"}`
	if err := w.Handle(events.RKBookingCreated, []byte(body)); err != nil {
		t.Fatal(err)
	}
	if len(n.messages) != 1 || n.subjects[0] != "Booking created" {
		t.Fatalf("got %v", n.subjects)
	}
	for _, part := range []string{"BK-2024-06-01-A-1500", "hall A", "15:00–16:00", "Anna +7", "14000"} {
		if !strings.Contains(n.messages[0], part) {
			t.Fatalf("%q missing %q", n.messages[0], part)
		}
	}
}

func TestHandleUnknownKeyIsSkipped(t *testing.T) {
	n := &captured{}
	w := NewWorker(n, zap.NewNop())
	if err := w.Handle("payment.paid", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if len(n.messages) != 0 {
		t.Fatal("unexpected notification")
	}
}

func TestRunAcksNacksAndDeadLetters(t *testing.T) {
	n := &captured{}
	w := NewWorker(n, zap.NewNop())
	a := &acks{}
	msgs := make(chan amqp.Delivery, 3)
	msgs <- amqp.Delivery{Acknowledger: a, RoutingKey: events.RKBookingCancelled, Body: []byte(`{"booking_id":"x"}`)}
	msgs <- amqp.Delivery{Acknowledger: a, RoutingKey: events.RKBookingCancelled, Body: []byte(`not json`)}
	close(msgs)
	if err := w.Run(context.Background(), msgs); err != nil {
		t.Fatal(err)
	}
	if a.acked != 1 || a.dropped != 1 || a.requeued != 0 {
		t.Fatalf("acks = %+v", a)
	}

	n.err = errors.New("smtp down")
	msgs = make(chan amqp.Delivery, 1)
	msgs <- amqp.Delivery{Acknowledger: a, RoutingKey: events.RKBookingCancelled, Body: []byte(`{"booking_id":"y"}`)}
	close(msgs)
	if err := w.Run(context.Background(), msgs); err != nil {
		t.Fatal(err)
	}
	if a.requeued != 1 {
		t.Fatalf("notifier failure should requeue: %+v", a)
	}
}

package notify

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/you/studio-booking/internal/events"
)

// errMalformed marks deliveries that can never succeed; they are dead-lettered
// instead of requeued.
var errMalformed = errors.New("malformed message")

type Worker struct {
	n   Notifier
	log *zap.Logger
}

func NewWorker(n Notifier, log *zap.Logger) *Worker {
	return &Worker{n: n, log: log}
}

// Run handles deliveries until ctx is done or msgs is closed.
func (w *Worker) Run(ctx context.Context, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			w.dispatch(d)
		}
	}
}

func (w *Worker) dispatch(d amqp.Delivery) {
	err := w.Handle(d.RoutingKey, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, errMalformed):
		w.log.Warn("dead-letter delivery", zap.String("key", d.RoutingKey), zap.String("message_id", d.MessageId), zap.Error(err))
		_ = d.Nack(false, false)
	default:
		w.log.Error("handle delivery, requeue", zap.String("key", d.RoutingKey), zap.Error(err))
		_ = d.Nack(false, true)
	}
}

// Handle turns one booking event into a notification. Unknown keys are skipped.
func (w *Worker) Handle(key string, body []byte) error {
	switch key {
	case events.RKBookingCreated:
		ev, err := events.Decode[events.BookingCreated](body)
		if err != nil {
			return fmt.Errorf("%w: %w", errMalformed, err)
		}
		who := ev.Phone
		if ev.Name != "" {
			who = ev.Name + " " + ev.Phone
		}
		return w.n.Notify("Booking created",
			fmt.Sprintf("Booking %s: hall %s on %s %s for %s, %d", ev.BookingID, ev.HallID, ev.Date, ev.Slot, who, ev.Price))

	case events.RKBookingCancelled:
		ev, err := events.Decode[events.BookingCancelled](body)
		if err != nil {
			return fmt.Errorf("%w: %w", errMalformed, err)
		}
		return w.n.Notify("Booking cancelled", fmt.Sprintf("Booking %s has been cancelled.", ev.BookingID))

	default:
		w.log.Debug("skip unknown key", zap.String("key", key))
	}
	return nil
}

// Package events defines the messages the booking service publishes.
package events

import (
	"encoding/json"
	"fmt"
)

// Routing keys on the booking exchange.
const (
	RKBookingCreated   = "booking.created"
	RKBookingCancelled = "booking.cancelled"
)

type BookingCreated struct {
	BookingID string `json:"booking_id"`
	HallID    string `json:"hall_id"`
	Date      string `json:"date"`
	Slot      string `json:"slot"`
	Price     int64  `json:"price"`
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone"`
}

type BookingCancelled struct {
	BookingID string `json:"booking_id"`
}

func Decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload failed: %w", err)
	}
	return t, nil
}

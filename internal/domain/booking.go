package domain

import "time"

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCanceled  Status = "canceled"
)

// Fixed daily grid: 09:00-21:00, one-hour slots, 15 minutes between bookings.
const (
	WorkStart    = 9 * 60
	WorkEnd      = 21 * 60
	SlotDuration = 60
	Buffer       = 15
)

type Hall struct {
	ID          string  `gorm:"primaryKey" json:"id" yaml:"id"`
	Title       string  `gorm:"not null" json:"title" yaml:"title"`
	BasePrice   int64   `gorm:"not null" json:"base_price" yaml:"base_price"`
	WeekendCoef float64 `gorm:"not null" json:"weekend_coef" yaml:"weekend_coef"`
}

// Addon is a priced extra, copied into the booking at creation time.
type Addon struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// Addons is stored as JSON text through gorm's json serializer.
type Addons []Addon

func (a Addons) Total() int64 {
	var sum int64
	for _, x := range a {
		sum += x.Price
	}
	return sum
}

type Booking struct {
	ID        string    `gorm:"primaryKey"`
	HallID    string    `gorm:"index:idx_hall_date;not null"`
	Date      string    `gorm:"index:idx_hall_date;not null"` // YYYY-MM-DD
	StartMin  int       `gorm:"not null"`
	EndMin    int       `gorm:"not null"`
	Name      string    `gorm:"size:255"`
	Phone     string    `gorm:"index"`
	Addons    Addons    `gorm:"serializer:json;type:text"`
	Price     int64     `gorm:"not null"`
	Status    Status    `gorm:"index;not null;default:confirmed"`
	CreatedAt time.Time `gorm:"not null"`
}

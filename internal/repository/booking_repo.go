package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/you/studio-booking/internal/domain"
)

var ErrOverlap = fmt.Errorf("%w: overlapping booking", domain.ErrConflict)

type BookingRepo struct{ db *gorm.DB }

func NewBookingRepo(db *gorm.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

func (r *BookingRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Hall{}, &domain.Booking{})
}

// SeedHalls inserts the given halls only when the table is empty.
func (r *BookingRepo) SeedHalls(ctx context.Context, halls []domain.Hall) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Hall{}).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 || len(halls) == 0 {
			return nil
		}
		return tx.Create(&halls).Error
	})
}

func (r *BookingRepo) HallByID(ctx context.Context, id string) (*domain.Hall, error) {
	var h domain.Hall
	if err := r.db.WithContext(ctx).First(&h, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("hall %q: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &h, nil
}

func (r *BookingRepo) ListHalls(ctx context.Context) ([]domain.Hall, error) {
	var out []domain.Hall
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListConfirmed returns the confirmed bookings of one hall on one date.
func (r *BookingRepo) ListConfirmed(ctx context.Context, hallID, date string) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.db.WithContext(ctx).
		Where("hall_id = ? AND date = ? AND status = ?", hallID, date, domain.StatusConfirmed).
		Order("start_min ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateWithNoOverlap checks for a confirmed booking closer than buffer minutes
// and inserts b in the same transaction. A row with the same id (a canceled
// booking of the same hall, date and hour) is replaced.
func (r *BookingRepo) CreateWithNoOverlap(ctx context.Context, b *domain.Booking, buffer int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&domain.Booking{})
		if tx.Dialector.Name() == "postgres" {
			// FOR UPDATE locks nothing when the day is still empty; the
			// advisory lock serializes writers of the same hall and date.
			if err := lockHallDay(tx, b.HallID, b.Date).Error; err != nil {
				return fmt.Errorf("lock hall day: %w", err)
			}
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var existing domain.Booking
		err := q.
			Where("hall_id = ? AND date = ? AND status = ?", b.HallID, b.Date, domain.StatusConfirmed).
			Where("start_min < ? AND end_min > ?", b.EndMin+buffer, b.StartMin-buffer). // overlap incl. buffer
			Take(&existing).Error
		if err == nil {
			return ErrOverlap
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"hall_id", "date", "start_min", "end_min", "name", "phone",
				"addons", "price", "status", "created_at",
			}),
		}).Create(b).Error
	})
}

// lockHallDay takes a Postgres advisory lock released at the end of tx.
func lockHallDay(tx *gorm.DB, hallID, date string) *gorm.DB {
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", hallID+"|"+date)
}

func (r *BookingRepo) ByID(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("booking %q: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &b, nil
}

// UpdateStatus sets the status of booking id and reports whether a row changed.
// A missing id is not an error.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id string, to domain.Status) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ? AND status <> ?", id, to).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *BookingRepo) ListConfirmedByPhone(ctx context.Context, phone string) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.db.WithContext(ctx).
		Where("phone = ? AND status = ?", phone, domain.StatusConfirmed).
		Order("date ASC").Order("start_min ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BookingRepo) ListConfirmedByDate(ctx context.Context, date string) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.db.WithContext(ctx).
		Where("date = ? AND status = ?", date, domain.StatusConfirmed).
		Order("hall_id ASC").Order("start_min ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

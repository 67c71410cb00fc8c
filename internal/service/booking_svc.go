package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/you/studio-booking/internal/availability"
	"github.com/you/studio-booking/internal/domain"
	"github.com/you/studio-booking/internal/events"
	"github.com/you/studio-booking/internal/lock"
	"github.com/you/studio-booking/internal/metrics"
	"github.com/you/studio-booking/internal/pricing"
	"github.com/you/studio-booking/internal/timegrid"
)

// Repository is the store the ledger needs. repository.BookingRepo implements it.
type Repository interface {
	HallByID(ctx context.Context, id string) (*domain.Hall, error)
	ListHalls(ctx context.Context) ([]domain.Hall, error)
	ListConfirmed(ctx context.Context, hallID, date string) ([]domain.Booking, error)
	ByID(ctx context.Context, id string) (*domain.Booking, error)
	CreateWithNoOverlap(ctx context.Context, b *domain.Booking, buffer int) error
	UpdateStatus(ctx context.Context, id string, to domain.Status) (bool, error)
	ListConfirmedByPhone(ctx context.Context, phone string) ([]domain.Booking, error)
	ListConfirmedByDate(ctx context.Context, date string) ([]domain.Booking, error)
}

type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type Calendar interface {
	Export(b *domain.Booking, h *domain.Hall) (string, error)
}

// Deps wires the ledger. Locker, Publisher, Metrics and Logger may be left
// nil; sensible no-op or in-process defaults are used.
type Deps struct {
	Repo     Repository
	Pricing  *pricing.Engine
	Addons   pricing.Catalog
	Calendar Calendar
	Locker   lock.Locker
	Pub      Publisher
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	// PublicURL turns the calendar path into an absolute download URL.
	PublicURL func(path string) string
	LockWait  time.Duration
}

type BookingSvc struct {
	repo     Repository
	pricing  *pricing.Engine
	addons   pricing.Catalog
	cal      Calendar
	locker   lock.Locker
	pub      Publisher
	m        *metrics.Metrics
	log      *zap.Logger
	url      func(string) string
	lockWait time.Duration
	grid     availability.Grid
	tracer   trace.Tracer
	now      func() time.Time
}

func NewBookingSvc(d Deps) *BookingSvc {
	s := &BookingSvc{
		repo:     d.Repo,
		pricing:  d.Pricing,
		addons:   d.Addons,
		cal:      d.Calendar,
		locker:   d.Locker,
		pub:      d.Pub,
		m:        d.Metrics,
		log:      d.Logger,
		url:      d.PublicURL,
		lockWait: d.LockWait,
		grid:     availability.DefaultGrid(),
		tracer:   otel.Tracer("github.com/you/studio-booking/internal/service"),
		now:      time.Now,
	}
	if s.pricing == nil {
		s.pricing = pricing.NewEngine(pricing.DefaultRules())
	}
	if s.locker == nil {
		s.locker = lock.NewLocal()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.url == nil {
		s.url = func(p string) string { return p }
	}
	if s.lockWait <= 0 {
		s.lockWait = 5 * time.Second
	}
	return s
}

type CreateRequest struct {
	HallID string
	Date   string
	Slot   string
	Name   string
	Phone  string
	Addons []string
}

type Receipt struct {
	BookingID string
	Price     int64
	Status    domain.Status
	ICSURL    string
}

// BookingView is a confirmed booking as shown to a customer.
type BookingView struct {
	BookingID string `json:"booking_id"`
	HallID    string `json:"hall_id"`
	Date      string `json:"date"`
	Slot      string `json:"slot"`
	Price     int64  `json:"price"`
}

// BookingID is deterministic: the same hall, date and start hour always map
// to the same id.
func BookingID(date, hallID string, startMin int) string {
	return fmt.Sprintf("BK-%s-%s-%02d00", date, hallID, startMin/60)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}

func (s *BookingSvc) ListHalls(ctx context.Context) ([]domain.Hall, error) {
	return s.repo.ListHalls(ctx)
}

// ListSlots returns the free slots of a hall on date.
func (s *BookingSvc) ListSlots(ctx context.Context, hallID, date string) ([]string, error) {
	hallID, date = strings.TrimSpace(hallID), strings.TrimSpace(date)
	if hallID == "" || date == "" {
		return nil, invalid("hall_id and date required")
	}
	if _, err := timegrid.ParseDate(date); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	bs, err := s.repo.ListConfirmed(ctx, hallID, date)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return availability.List(availability.FromBookings(bs), s.grid), nil
}

// Create books one slot. The overlap check and the insert run under the
// hall+date lock inside one transaction.
func (s *BookingSvc) Create(ctx context.Context, in CreateRequest) (*Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "booking.create", trace.WithAttributes(
		attribute.String("hall_id", in.HallID),
		attribute.String("date", in.Date),
		attribute.String("slot", in.Slot),
	))
	defer span.End()

	r, err := s.create(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("booking_id", r.BookingID), attribute.Int64("price", r.Price))
	return r, nil
}

func (s *BookingSvc) create(ctx context.Context, in CreateRequest) (*Receipt, error) {
	in.HallID = strings.TrimSpace(in.HallID)
	in.Date = strings.TrimSpace(in.Date)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Name = strings.TrimSpace(in.Name)
	if in.HallID == "" || in.Date == "" || strings.TrimSpace(in.Slot) == "" || in.Phone == "" {
		return nil, invalid("hall_id, date, slot, phone required")
	}
	day, err := timegrid.ParseDate(in.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	start, err := timegrid.ParseSlotStart(in.Slot)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	hall, err := s.repo.HallByID(ctx, in.HallID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, invalid("unknown hall %q", in.HallID)
	}
	if err != nil {
		return nil, fmt.Errorf("load hall: %w", err)
	}

	addons := s.addons.Resolve(in.Addons)
	b := &domain.Booking{
		ID:        BookingID(in.Date, hall.ID, start),
		HallID:    hall.ID,
		Date:      in.Date,
		StartMin:  start,
		EndMin:    start + domain.SlotDuration,
		Name:      in.Name,
		Phone:     in.Phone,
		Addons:    addons,
		Price:     s.pricing.Compute(*hall, day, start, addons),
		Status:    domain.StatusConfirmed,
		CreatedAt: s.now().UTC(),
	}

	if err := s.insert(ctx, b); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			if s.m != nil {
				s.m.BookingConflicts.WithLabelValues(b.HallID).Inc()
			}
			s.log.Info("slot taken", zap.String("hall_id", b.HallID), zap.String("date", b.Date), zap.Int("start_min", b.StartMin))
			return nil, err
		}
		return nil, err
	}

	log := s.log.With(zap.String("booking_id", b.ID))
	icsURL := ""
	if s.cal != nil {
		rel, err := s.cal.Export(b, hall)
		if err != nil {
			// The booking is committed; the calendar file is best effort.
			log.Warn("ics export failed", zap.Error(err))
			if s.m != nil {
				s.m.ICSFailures.Inc()
			}
		} else {
			icsURL = s.url(rel)
		}
	}
	if s.pub != nil {
		err := s.pub.PublishJSON(ctx, events.RKBookingCreated, events.BookingCreated{
			BookingID: b.ID,
			HallID:    b.HallID,
			Date:      b.Date,
			Slot:      timegrid.MinutesToRange(b.StartMin, domain.SlotDuration),
			Price:     b.Price,
			Name:      b.Name,
			Phone:     b.Phone,
		})
		if err != nil {
			log.Warn("publish booking.created", zap.Error(err))
		}
	}
	if s.m != nil {
		s.m.BookingsCreated.WithLabelValues(b.HallID).Inc()
		s.m.RevenueTotal.WithLabelValues(b.HallID).Add(float64(b.Price))
	}
	log.Info("booking confirmed", zap.String("hall_id", b.HallID), zap.String("date", b.Date),
		zap.Int("start_min", b.StartMin), zap.Int64("price", b.Price))

	return &Receipt{BookingID: b.ID, Price: b.Price, Status: b.Status, ICSURL: icsURL}, nil
}

func (s *BookingSvc) insert(ctx context.Context, b *domain.Booking) error {
	waitFrom := time.Now()
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	unlock, err := s.locker.Lock(lockCtx, lock.Key(b.HallID, b.Date))
	cancel()
	if err != nil {
		return fmt.Errorf("lock %s/%s: %w", b.HallID, b.Date, err)
	}
	defer unlock()
	if s.m != nil {
		s.m.LockWait.Observe(time.Since(waitFrom).Seconds())
	}

	if err := s.repo.CreateWithNoOverlap(ctx, b, s.grid.Buffer); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return err
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// Cancel marks a booking canceled. Unknown ids succeed without effect.
func (s *BookingSvc) Cancel(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "booking.cancel", trace.WithAttributes(attribute.String("booking_id", id)))
	defer span.End()

	id = strings.TrimSpace(id)
	if id == "" {
		return invalid("booking_id required")
	}
	changed, err := s.repo.UpdateStatus(ctx, id, domain.StatusCanceled)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("cancel %s: %w", id, err)
	}
	if !changed {
		return nil
	}
	if s.pub != nil {
		if err := s.pub.PublishJSON(ctx, events.RKBookingCancelled, events.BookingCancelled{BookingID: id}); err != nil {
			s.log.Warn("publish booking.cancelled", zap.String("booking_id", id), zap.Error(err))
		}
	}
	if s.m != nil {
		s.m.BookingsCanceled.Inc()
	}
	s.log.Info("booking canceled", zap.String("booking_id", id))
	return nil
}

// Get returns a booking of any status.
func (s *BookingSvc) Get(ctx context.Context, id string) (*domain.Booking, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalid("booking_id required")
	}
	return s.repo.ByID(ctx, id)
}

// ListForPhone returns the confirmed bookings of a customer, earliest first.
func (s *BookingSvc) ListForPhone(ctx context.Context, phone string) ([]BookingView, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, invalid("phone required")
	}
	bs, err := s.repo.ListConfirmedByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	out := make([]BookingView, 0, len(bs))
	for _, b := range bs {
		out = append(out, BookingView{
			BookingID: b.ID,
			HallID:    b.HallID,
			Date:      b.Date,
			Slot:      timegrid.MinutesToRange(b.StartMin, b.EndMin-b.StartMin),
			Price:     b.Price,
		})
	}
	return out, nil
}

// DayBookings returns every confirmed booking on date, by hall then time.
func (s *BookingSvc) DayBookings(ctx context.Context, date string) ([]domain.Booking, error) {
	date = strings.TrimSpace(date)
	if _, err := timegrid.ParseDate(date); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return s.repo.ListConfirmedByDate(ctx, date)
}

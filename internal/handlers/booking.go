package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/studio-booking/internal/domain"
	"github.com/you/studio-booking/internal/service"
	"github.com/you/studio-booking/internal/timegrid"
)

// Ledger is the part of service.BookingSvc the HTTP layer uses.
type Ledger interface {
	ListHalls(ctx context.Context) ([]domain.Hall, error)
	ListSlots(ctx context.Context, hallID, date string) ([]string, error)
	Create(ctx context.Context, in service.CreateRequest) (*service.Receipt, error)
	Cancel(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*domain.Booking, error)
	ListForPhone(ctx context.Context, phone string) ([]service.BookingView, error)
	DayBookings(ctx context.Context, date string) ([]domain.Booking, error)
}

type BookingHandler struct {
	svc Ledger
	log *zap.Logger
}

func NewBookingHandler(svc Ledger, log *zap.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, log: log}
}

// GET /health
func (h *BookingHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /halls
func (h *BookingHandler) Halls(c *gin.Context) {
	halls, err := h.svc.ListHalls(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, halls)
}

// GET /slots?hall_id=A&date=2024-06-01
func (h *BookingHandler) Slots(c *gin.Context) {
	hallID, date := c.Query("hall_id"), c.Query("date")
	slots, err := h.svc.ListSlots(c.Request.Context(), hallID, date)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "hall_id": hallID, "slots": slots})
}

type bookRequest struct {
	HallID string   `json:"hall_id" binding:"required"`
	Date   string   `json:"date"    binding:"required"`
	Slot   string   `json:"slot"    binding:"required"`
	Name   string   `json:"name"`
	Phone  string   `json:"phone"   binding:"required"`
	Addons []string `json:"addons"`
}

type bookResponse struct {
	BookingID string        `json:"booking_id"`
	Price     int64         `json:"price"`
	Status    domain.Status `json:"status"`
	ICSURL    string        `json:"ics_url"`
}

// POST /book
func (h *BookingHandler) Book(c *gin.Context) {
	var in bookRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := h.svc.Create(c.Request.Context(), service.CreateRequest{
		HallID: in.HallID,
		Date:   in.Date,
		Slot:   in.Slot,
		Name:   in.Name,
		Phone:  in.Phone,
		Addons: in.Addons,
	})
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, bookResponse{BookingID: r.BookingID, Price: r.Price, Status: r.Status, ICSURL: r.ICSURL})
}

type cancelRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
}

// POST /cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	var in cancelRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Cancel(c.Request.Context(), in.BookingID); err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /bookings?phone=...
func (h *BookingHandler) ForPhone(c *gin.Context) {
	out, err := h.svc.ListForPhone(c.Request.Context(), c.Query("phone"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type bookingDetail struct {
	BookingID string        `json:"booking_id"`
	HallID    string        `json:"hall_id"`
	Date      string        `json:"date"`
	Slot      string        `json:"slot"`
	Name      string        `json:"name,omitempty"`
	Phone     string        `json:"phone"`
	Addons    domain.Addons `json:"addons"`
	Price     int64         `json:"price"`
	Status    domain.Status `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// GET /bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	b, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	addons := b.Addons
	if addons == nil {
		addons = domain.Addons{}
	}
	c.JSON(http.StatusOK, bookingDetail{
		BookingID: b.ID,
		HallID:    b.HallID,
		Date:      b.Date,
		Slot:      timegrid.MinutesToRange(b.StartMin, b.EndMin-b.StartMin),
		Name:      b.Name,
		Phone:     b.Phone,
		Addons:    addons,
		Price:     b.Price,
		Status:    b.Status,
		CreatedAt: b.CreatedAt,
	})
}

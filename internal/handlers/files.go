package handlers

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/studio-booking/internal/calendar"
	"github.com/you/studio-booking/internal/domain"
	"github.com/you/studio-booking/internal/report"
)

// Files resolves a requested calendar file name to a path on disk.
type Files interface {
	Path(name string) (string, error)
}

type FileHandler struct {
	files Files
	svc   Ledger
	log   *zap.Logger
}

func NewFileHandler(files Files, svc Ledger, log *zap.Logger) *FileHandler {
	return &FileHandler{files: files, svc: svc, log: log}
}

// GET /ics/:filename
func (h *FileHandler) ICS(c *gin.Context) {
	p, err := h.files.Path(c.Param("filename"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	body, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		fail(c, h.log, domain.ErrNotFound)
		return
	}
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.Data(http.StatusOK, calendar.ContentType, body)
}

// GET /reports/day.xlsx?date=2024-06-01
func (h *FileHandler) DayReport(c *gin.Context) {
	ctx := c.Request.Context()
	date := c.Query("date")
	bookings, err := h.svc.DayBookings(ctx, date)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	halls, err := h.svc.ListHalls(ctx)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	f, err := report.Day(date, halls, bookings)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="bookings-%s.xlsx"`, date))
	c.Data(http.StatusOK, report.ContentType, buf.Bytes())
}

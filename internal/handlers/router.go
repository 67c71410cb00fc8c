package handlers

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/studio-booking/internal/metrics"
)

// NewRouter builds the public API. m may be nil to skip request metrics.
func NewRouter(svc Ledger, files Files, m *metrics.Metrics, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestIDMiddleware(), Logger(log))
	if m != nil {
		r.Use(Metrics(m))
	}
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"*"},
		ExposeHeaders:   []string{requestIDHeader, "Content-Disposition"},
	}))

	bh := NewBookingHandler(svc, log)
	fh := NewFileHandler(files, svc, log)

	r.GET("/health", bh.Health)
	r.GET("/halls", bh.Halls)
	r.GET("/slots", bh.Slots)
	r.POST("/book", bh.Book)
	r.POST("/cancel", bh.Cancel)
	r.GET("/bookings", bh.ForPhone)
	r.GET("/bookings/:id", bh.Get)
	r.GET("/ics/:filename", fh.ICS)
	r.GET("/reports/day.xlsx", fh.DayReport)
	return r
}

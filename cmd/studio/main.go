package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/you/studio-booking/internal/calendar"
	"github.com/you/studio-booking/internal/catalog"
	"github.com/you/studio-booking/internal/handlers"
	"github.com/you/studio-booking/internal/lock"
	"github.com/you/studio-booking/internal/metrics"
	"github.com/you/studio-booking/internal/pricing"
	"github.com/you/studio-booking/internal/repository"
	"github.com/you/studio-booking/internal/service"
	"github.com/you/studio-booking/pkg/config"
	"github.com/you/studio-booking/pkg/db"
	"github.com/you/studio-booking/pkg/logx"
	"github.com/you/studio-booking/pkg/mq"
	"github.com/you/studio-booking/pkg/obs"
)

const version = "1.0.0"

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	cfg := must(config.Load())
	logger := must(logx.New(cfg.Env, cfg.LogLevel))
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTelEnabled {
		shutdown := must(obs.InitTracer(ctx, "studio-booking", version, cfg.Env, cfg.OTelEndpoint))
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()
	}

	cat := must(catalog.Load(cfg.CatalogPath))

	// DB
	gdb := must(db.Open(cfg.DSN()))
	repo := repository.NewBookingRepo(gdb)
	must(0, repo.Migrate())
	must(0, repo.SeedHalls(ctx, cat.Halls))

	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisAddr != "" {
		rdb := lock.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rdb.Close()
		must(0, lock.Ping(ctx, rdb))
		locker = lock.NewRedis(rdb, cfg.LockTTL)
		logger.Info("using redis lock", zap.String("addr", cfg.RedisAddr))
	}

	var pub service.Publisher = mq.Nop{}
	if cfg.RabbitURL != "" {
		p := must(mq.NewPublisher(cfg.RabbitURL, cfg.BookingExchange, "studio-booking"))
		defer p.Close()
		pub = p
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New(prometheus.DefaultRegisterer)
	}

	exporter := must(calendar.NewExporter(cfg.ICSDir(), cfg.StudioName))
	svc := service.NewBookingSvc(service.Deps{
		Repo:      repo,
		Pricing:   pricing.NewEngine(cat.Rules()),
		Addons:    cat.PriceList(),
		Calendar:  exporter,
		Locker:    locker,
		Pub:       pub,
		Metrics:   m,
		Logger:    logger,
		PublicURL: cfg.PublicURL,
		LockWait:  cfg.LockWait,
	})

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := handlers.NewRouter(svc, exporter, m, logger)
	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("studio-booking listening", zap.String("addr", cfg.HTTPAddr), zap.String("dsn_kind", dsnKind(cfg.DSN())))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
}

func dsnKind(dsn string) string {
	if db.IsPostgres(dsn) {
		return "postgres"
	}
	return "sqlite"
}

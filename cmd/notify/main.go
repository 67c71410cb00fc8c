package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/you/studio-booking/internal/notify"
	"github.com/you/studio-booking/pkg/config"
	"github.com/you/studio-booking/pkg/logx"
	"github.com/you/studio-booking/pkg/mq"
)

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	cfg := must(config.LoadNotify())
	logger := must(logx.New(cfg.Env, cfg.LogLevel))
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ccfg := mq.ConsumerConfig{
		URL:      cfg.RabbitURL,
		Exchange: cfg.Exchange,
		Queue:    cfg.Queue,
		Keys:     cfg.Bindings,
		Prefetch: cfg.Prefetch,
		DLX:      cfg.DLX,
		DLQ:      cfg.DLQ,
	}

	// RabbitMQ may come up after us.
	var cons *mq.Consumer
	for {
		c, err := mq.NewConsumer(ccfg, "notification-service")
		if err == nil {
			cons = c
			break
		}
		logger.Warn("connect failed, retry in 2s", zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
	defer cons.Close()

	msgs := must(cons.Deliveries(ctx))
	w := notify.NewWorker(notify.NewLogNotifier(logger), logger)
	logger.Info("notify started",
		zap.String("queue", cfg.Queue), zap.String("exchange", cfg.Exchange), zap.Strings("bindings", cfg.Bindings))
	if err := w.Run(ctx, msgs); err != nil {
		logger.Error("worker stopped", zap.Error(err))
	}
}

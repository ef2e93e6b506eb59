package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jumbenylon/sakuragroup-sub001/internal/adapters/db/postgres"
	"github.com/jumbenylon/sakuragroup-sub001/internal/adapters/lock/redislock"
	"github.com/jumbenylon/sakuragroup-sub001/internal/adapters/provider/httpapi"
	"github.com/jumbenylon/sakuragroup-sub001/internal/adapters/queue/rabbitmq"
	"github.com/jumbenylon/sakuragroup-sub001/internal/app"
	"github.com/jumbenylon/sakuragroup-sub001/internal/config"
	"github.com/jumbenylon/sakuragroup-sub001/internal/logger"
	"github.com/jumbenylon/sakuragroup-sub001/internal/ports"
	"github.com/jumbenylon/sakuragroup-sub001/internal/throttle"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(conf.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Adapters ─────────────────────────────────────────────────────────────
	ledger, err := postgres.New(conf.DatabaseURL)
	if err != nil {
		log.Error("connect postgres", "err", err)
		os.Exit(1)
	}
	defer ledger.Close()

	consumer, err := rabbitmq.NewConsumer(conf.AMQPURL, log)
	if err != nil {
		log.Error("connect rabbitmq consumer", "err", err)
		os.Exit(1)
	}
	defer consumer.Close()

	locker, err := redislock.New(ctx, conf.RedisAddr, conf.DispatchLockTTL)
	if err != nil {
		log.Error("connect redis", "err", err)
		os.Exit(1)
	}
	defer locker.Close()

	aggregator := httpapi.New(httpapi.Config{
		BaseURL:   conf.AggregatorURL,
		APIKey:    conf.AggregatorAPIKey,
		APISecret: conf.AggregatorAPISecret,
	}, log)

	// ── Application ──────────────────────────────────────────────────────────
	pacer := throttle.New(conf.ThrottleDelay())
	processor := app.NewProcessor(ledger, aggregator, pacer, conf.BatchSize, log)
	runner := app.NewDispatchRunner(processor, locker, log)

	go serveMetrics(conf.MetricsAddr)

	log.Info("dispatch-worker started",
		"batch_size", conf.BatchSize,
		"throttle_delay", conf.ThrottleDelay(),
	)

	if err := consumer.Consume(ctx, func(ctx context.Context, job ports.DispatchJob) error {
		return runner.Handle(ctx, job)
	}); err != nil && ctx.Err() == nil {
		log.Error("consumer error", "err", err)
		os.Exit(1)
	}

	log.Info("shutting down dispatch-worker")
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	_ = http.ListenAndServe(addr, mux)
}

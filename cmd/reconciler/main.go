package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jumbenylon/sakuragroup-sub001/internal/adapters/db/postgres"
	"github.com/jumbenylon/sakuragroup-sub001/internal/app"
	"github.com/jumbenylon/sakuragroup-sub001/internal/config"
	"github.com/jumbenylon/sakuragroup-sub001/internal/logger"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(conf.LogLevel)

	ledger, err := postgres.New(conf.DatabaseURL)
	if err != nil {
		log.Error("connect postgres", "err", err)
		os.Exit(1)
	}
	defer ledger.Close()

	reconciler := app.NewReconciler(ledger, conf.StaleProcessingAge, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(conf.ReconcileInterval)
	defer ticker.Stop()

	log.Info("reconciler started",
		"interval", conf.ReconcileInterval,
		"stale_age", conf.StaleProcessingAge,
	)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down reconciler")
			return

		case <-ticker.C:
			if _, err := reconciler.Sweep(ctx); err != nil {
				log.Error("reconcile sweep", "err", err)
			}
		}
	}
}

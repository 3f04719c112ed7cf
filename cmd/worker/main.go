package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"job-mailbox/internal/config"
	"job-mailbox/internal/telemetry"
	"job-mailbox/internal/worker"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	log := logger.WithField("service", "mailbox-worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	client := worker.NewClient(cfg.APIBaseURL, cfg.WorkerHTTPTimeout)
	runner := worker.NewRunner(client, cfg.WorkerPollInterval, log)
	runner.RegisterHandler(".csv", worker.SimulatedHandler)

	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, telemetry.Handler()); err != nil {
			log.WithError(err).Warn("metrics server stopped")
		}
	}()

	log.WithFields(logrus.Fields{
		"api":           cfg.APIBaseURL,
		"poll_interval": cfg.WorkerPollInterval.String(),
	}).Info("worker started")
	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		log.WithError(err).Error("worker stopped")
	}
}

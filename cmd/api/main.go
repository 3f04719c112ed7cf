package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"job-mailbox/internal/api"
	"job-mailbox/internal/archive"
	"job-mailbox/internal/config"
	"job-mailbox/internal/payload"
	"job-mailbox/internal/ratelimit"
	"job-mailbox/internal/store"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	log := logger.WithField("service", "mailbox-api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	table := store.NewTable()

	payloads, err := payload.FromConfig(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("init payload store")
	}

	var limiter *ratelimit.TokenBucket
	if cfg.RateLimitCapacity > 0 && cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		limiter = ratelimit.NewTokenBucket(client, cfg.RateLimitCapacity, cfg.RateLimitRefill, time.Hour)
	}

	var arch *archive.Archive
	if cfg.ArchiveDSN != "" {
		arch, err = archive.New(ctx, cfg.ArchiveDSN)
		if err != nil {
			log.WithError(err).Fatal("connect archive")
		}
		defer arch.Close()
		if err := arch.EnsureSchema(ctx); err != nil {
			log.WithError(err).Fatal("archive schema")
		}
	}

	server := api.New(cfg, table, payloads, limiter, arch, log)
	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", httpServer.Addr).Info("api listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("api stopped")
	}
}

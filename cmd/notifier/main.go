package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"ReminderScheduler/internal/config"
	"ReminderScheduler/internal/handlers"
	"ReminderScheduler/internal/kafka"
	"ReminderScheduler/internal/monitor"
	"ReminderScheduler/internal/rabbitMQ"
	"ReminderScheduler/internal/retryq"
	"ReminderScheduler/internal/scheduler"
	"ReminderScheduler/internal/storage/psql"
)

func main() {
	cfg := config.MustLoad()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Record store
	store, err := psql.New(cfg.Postgres.DSN())
	if err != nil {
		log.Error("failed to init storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Retry queue
	queue := retryq.Declare(redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer queue.Close()

	// Delivery transport
	producer, err := rabbitMQ.Declare(
		cfg.Broker.URL,
		cfg.Broker.Exchange,
		cfg.Broker.Queue,
		cfg.Broker.RoutingKey,
		cfg.Delivery.ConnectTimeout,
	)
	if err != nil {
		log.Error("failed to init broker", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	// Alert sink is optional: without brokers the monitor logs alerts only.
	var sink monitor.AlertSink
	if len(cfg.Kafka.Brokers) > 0 {
		alerts, err := kafka.CreateProducer(cfg.Kafka.Brokers, cfg.Kafka.AlertTopic)
		if err != nil {
			log.Error("failed to init kafka alert producer", "error", err)
			os.Exit(1)
		}
		defer alerts.Close()
		sink = alerts
	}

	health := monitor.New(cfg.Delivery.AlertThreshold, log, sink)

	sched := scheduler.New(store, producer, queue, health, log, scheduler.Options{
		PollInterval:  cfg.Delivery.PollInterval,
		NotifyTimeout: cfg.Delivery.WriteTimeout,
	})
	retrier := retryq.NewWorker(queue, producer, sched, health, log, retryq.WorkerOptions{
		PollInterval:  cfg.Delivery.RetryPollInterval,
		SweepInterval: cfg.Delivery.SweepInterval,
		NotifyTimeout: cfg.Delivery.WriteTimeout,
		MaxAttempts:   cfg.Delivery.MaxAttempts,
		Retention:     cfg.Delivery.RetryRetention,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sched.Start(ctx)
	go retrier.Start(ctx)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Post("/reminders", handlers.CreateReminder(log, store, cfg.Delivery.DefaultTimezone))
	router.Get("/reminders/{id}", handlers.GetReminder(log, store))
	router.Delete("/reminders/{id}", handlers.CancelReminder(log, store))
	router.Get("/stats/network", handlers.NetworkStats(health))
	router.Get("/stats/network/events", handlers.NetworkEvents(health))

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.Delivery.ReadTimeout,
		WriteTimeout: cfg.Delivery.WriteTimeout,
	}

	go func() {
		log.Info("http server listening", "address", cfg.HTTPServer.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Graceful shutdown on SIGINT (Ctrl+C) or SIGTERM (docker stop).
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Delivery.PoolTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", "error", err)
	}

	log.Info("stopped")
}

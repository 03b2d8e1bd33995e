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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"example.com/octofit/internal/audit"
	"example.com/octofit/internal/config"
	"example.com/octofit/internal/consumer"
	persistence "example.com/octofit/internal/persistence/postgres"
)

const defaultReplayBatchSize = 50

func main() {
	cfg := config.Load()
	if len(cfg.KafkaBrokers) == 0 {
		log.Fatalf("KAFKA_BROKERS must be set for the audit consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		repo     audit.Repository
		opts     []consumer.Option
		replayer *consumer.Replayer
	)
	if cfg.PostgresURL == "" {
		log.Printf("POSTGRES_URL not set, audit entries are kept in memory only")
		repo = audit.NewInMemoryRepository()
	} else {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		repo = persistence.NewRepository(pool)
		deadLetters := persistence.NewDeadLetterStore(pool)
		opts = append(opts, consumer.WithDeadLetters(deadLetters, cfg.MaxAttempts))
		replayer = consumer.NewReplayer(deadLetters, consumer.NewAuditHandler(repo), cfg.MaxAttempts, time.Minute)
	}

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler()}

	go func() {
		log.Printf("audit consumer metrics listening on %s", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         cfg.ConsumerGroup,
		Topic:           cfg.MembershipTopic,
		MinBytes:        1e3,
		MaxBytes:        10e6,
		CommitInterval:  time.Second,
		RetentionTime:   24 * time.Hour,
		ReadLagInterval: -1,
	})
	defer reader.Close()

	proc := consumer.NewProcessor(reader, consumer.NewAuditHandler(repo), opts...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Printf("audit consumer started (topic=%s, group=%s)", cfg.MembershipTopic, cfg.ConsumerGroup)
		if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("audit consumer stopped with error: %v", err)
		}
	}()

	if replayer != nil {
		go func() {
			log.Printf("dead letter replay started (interval=%s, maxRetries=%d)", cfg.ReplayInterval, cfg.MaxAttempts)
			if err := replayer.Run(ctx, cfg.ReplayInterval, defaultReplayBatchSize); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("dead letter replay stopped: %v", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("audit consumer shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}

	<-done
}

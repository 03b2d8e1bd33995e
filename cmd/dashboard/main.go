package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/octofit/internal/api"
	"example.com/octofit/internal/apiclient"
	"example.com/octofit/internal/audit"
	"example.com/octofit/internal/auth"
	"example.com/octofit/internal/config"
	"example.com/octofit/internal/consumer"
	"example.com/octofit/internal/editor"
	"example.com/octofit/internal/membership"
	persistence "example.com/octofit/internal/persistence/postgres"
	"example.com/octofit/internal/publisher"
	"example.com/octofit/internal/store"
	httptransport "example.com/octofit/internal/transport/http"
	"example.com/octofit/internal/views"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	history, closeHistory := buildRepository(ctx, cfg)
	defer closeHistory()

	pub, closePublisher := buildPublisher(cfg, history)
	defer closePublisher()

	client := apiclient.New(cfg.APIBaseURL, cfg.BackendTimeout)
	st := store.New(client)
	syncer := membership.NewSynchronizer(client, membership.WithPublisher(pub))
	ctrl := editor.NewController(st, client, syncer,
		editor.WithTTL(cfg.SessionTTL),
		editor.WithPublisher(pub),
	)
	go func() {
		if err := ctrl.Run(ctx, cfg.SweepInterval); err != nil && err != context.Canceled {
			log.Printf("session sweeper stopped: %v", err)
		}
	}()

	renderer, err := views.NewRenderer()
	if err != nil {
		log.Fatalf("failed to parse templates: %v", err)
	}

	handler := api.NewHandler(st, ctrl, renderer, api.WithHistory(history, cfg.HistoryPageSize))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, auth.PublicPages)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, httptransport.Chain(mux,
		httptransport.RequestLogger(log.New(log.Writer(), "[http] ", log.LstdFlags)),
		httptransport.CORS(cfg.AllowedOrigins),
		authMiddleware.Wrap,
	))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("octofit dashboard listening on %s (backend %s)", cfg.HTTPAddress, client.BaseURL())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

// buildRepository selects the audit store backing membership history.
func buildRepository(ctx context.Context, cfg config.Config) (audit.Repository, func()) {
	if cfg.PostgresURL == "" {
		log.Printf("POSTGRES_URL not set, keeping membership history in memory")
		return audit.NewInMemoryRepository(), func() {}
	}
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	return persistence.NewRepository(pool), pool.Close
}

// buildPublisher writes events to Kafka when brokers are configured and
// otherwise records them straight into the local audit store.
func buildPublisher(cfg config.Config, history audit.Repository) (publisher.Publisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		loop := consumer.NewLoopback(consumer.NewAuditHandler(history))
		return publisher.NewKafkaPublisher(loop, cfg.MembershipTopic), func() {}
	}
	writer := publisher.NewBrokerWriter(cfg.KafkaBrokers)
	return publisher.NewKafkaPublisher(writer, cfg.MembershipTopic), func() {
		if err := writer.Close(); err != nil {
			log.Printf("kafka writer close: %v", err)
		}
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/b24robots/internal/api"
	"github.com/shaiso/b24robots/internal/bitrix"
	"github.com/shaiso/b24robots/internal/config"
	"github.com/shaiso/b24robots/internal/journal"
	"github.com/shaiso/b24robots/internal/mq"
	"github.com/shaiso/b24robots/internal/telemetry"
)

var (
	startTime   = time.Now()
	healthTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "robots_api_health_checks_total",
		Help: "Total health checks handled by robots-api",
	})
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting robots-api")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := bitrix.NewClient(bitrix.Config{
		CallTimeout:     cfg.Platform.CallTimeout,
		TransferTimeout: cfg.Platform.TransferTimeout,
		RateLimit:       cfg.Platform.RateLimit,
		RateBurst:       cfg.Platform.RateBurst,
		InsecureTLS:     cfg.Platform.InsecureTLS,
	})

	handlerCfg := api.Config{Client: client, Logger: logger}

	// Журнал вызовов (опционально)
	if cfg.DatabaseURL != "" {
		repo, closeJournal, err := setupJournal(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to set up journal", "error", err)
			os.Exit(1)
		}
		defer closeJournal()
		handlerCfg.Journal = repo
	} else {
		logger.Info("journal disabled (DB_URL not set)")
	}

	// События в RabbitMQ (опционально)
	var events *mq.Connection
	if cfg.RabbitMQURL != "" {
		conn, err := mq.NewConnection(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Error("failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer conn.Close()

		if err := mq.SetupTopology(conn); err != nil {
			logger.Error("failed to set up topology", "error", err)
			os.Exit(1)
		}
		handlerCfg.Publisher = mq.NewPublisher(conn, logger)
		events = conn
	} else {
		logger.Info("events disabled (RABBITMQ_URL not set)")
	}

	handler := api.NewHandler(handlerCfg)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		healthTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime).Round(time.Second))
		// События не критичны для роботов: только сообщаем о разрыве
		if events != nil && !events.IsConnected() {
			fmt.Fprint(w, " events=reconnecting")
		}
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Даём текущим вызовам дойти до ответа: загрузка файлов бывает долгой
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

// setupJournal подключает журнал и запускает очистку по расписанию.
func setupJournal(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*journal.Repo, func(), error) {
	pool, err := journal.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	if err := journal.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	repo := journal.NewRepo(pool)

	pruner, err := journal.NewPruner(journal.PrunerConfig{
		Store:     repo,
		Spec:      cfg.PruneCron,
		Retention: cfg.Retention,
		Logger:    logger,
	})
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	go pruner.Run(ctx)

	logger.Info("journal enabled", "prune_cron", cfg.PruneCron, "retention", cfg.Retention)
	return repo, pool.Close, nil
}

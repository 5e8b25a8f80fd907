// cmd/portal-server/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tramite-portal/internal/audit"
	"tramite-portal/internal/backend"
	"tramite-portal/internal/common/aws"
	"tramite-portal/internal/common/config"
	"tramite-portal/internal/common/database"
	httpx "tramite-portal/internal/common/http"
	"tramite-portal/internal/common/logger"
	"tramite-portal/internal/common/observability"
	"tramite-portal/internal/gateway"
	"tramite-portal/internal/notify"
	"tramite-portal/internal/search"
	"tramite-portal/internal/session"
	"tramite-portal/internal/wizard"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info", "console")
		fallback.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting portal server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("backend", cfg.Backend.BaseURL),
	)

	obs := observability.New("portal-server")
	defer obs.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Workflow cache store ---
	var store session.Store
	switch cfg.Session.Store {
	case "redis":
		var redisClient *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		store = session.NewRedisStore(redisClient.Client, config.GetDuration(cfg.Session.TTL), log)
		zapLog.Info("Redis session store connected")

	case "file":
		store, err = session.NewFileStore(cfg.Session.Dir, log)
		if err != nil {
			zapLog.Fatal("file session store failed", zap.Error(err))
		}
		zapLog.Info("File session store ready", zap.String("dir", cfg.Session.Dir))

	default:
		store = session.NewMemoryStore(log)
		zapLog.Info("In-memory session store ready")
	}

	// --- Backend client ---
	client := backend.NewClient(cfg.Backend.BaseURL, httpx.NewClient(config.GetDuration(cfg.Backend.Timeout)), log)

	// --- Wizard ---
	wiz := wizard.New(store, client, cfg.Upload, log)

	// --- Audit log (Postgres) ---
	if cfg.Database.Postgres.Host != "" {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		wiz.SetAuditor(audit.NewStore(pg, log))
		zapLog.Info("PostgreSQL audit log connected")
	}

	// --- Summary search index (Elasticsearch) ---
	if cfg.Search.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		wiz.AddCompletionHook(search.NewIndexer(esClient, cfg.Database.Elasticsearch.Index, log))
		zapLog.Info("Elasticsearch summary index connected")
	}

	// --- Receipt notifications (SES / SNS) ---
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		var emailSender notify.EmailSender
		var smsSender notify.SMSSender

		if cfg.Notifications.Email.Enabled {
			sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("ses client failed", zap.Error(err))
			}
			emailSender = sesClient
		}
		if cfg.Notifications.SMS.Enabled {
			snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("sns client failed", zap.Error(err))
			}
			smsSender = snsClient
		}

		wiz.AddCompletionHook(notify.NewReceiptSender(emailSender, smsSender, cfg.Notifications, log))
		zapLog.Info("Receipt notifications enabled")
	}

	// --- Notification poller ---
	poller := notify.NewPoller(client, config.GetDuration(cfg.Notifications.PollInterval), log)
	go poller.Run(ctx)

	// --- HTTP server ---
	server := gateway.NewServer(wiz, client, poller, obs, log)
	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("Portal server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("portal server failed", zap.Error(err))
		}
	}()

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.MetricsAddress))
		if err := http.ListenAndServe(cfg.Server.MetricsAddress, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining connections...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down portal server", zap.Error(err))
	}

	zapLog.Info("Portal server stopped gracefully")
}

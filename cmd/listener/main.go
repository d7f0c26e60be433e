package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/SwarmMonkey/tensor-listener/internal/domain"
	"github.com/SwarmMonkey/tensor-listener/internal/feed"
	"github.com/SwarmMonkey/tensor-listener/internal/notify"
	"github.com/SwarmMonkey/tensor-listener/internal/observability"
	"github.com/SwarmMonkey/tensor-listener/internal/reconcile"
	"github.com/SwarmMonkey/tensor-listener/internal/storage"
	chstore "github.com/SwarmMonkey/tensor-listener/internal/storage/clickhouse"
	"github.com/SwarmMonkey/tensor-listener/internal/storage/memory"
	"github.com/SwarmMonkey/tensor-listener/internal/storage/migrations"
	pgstore "github.com/SwarmMonkey/tensor-listener/internal/storage/postgres"
)

// Monitored collection aliases mapped to marketplace collection ids.
var collectionAliases = map[string]domain.Collection{
	"mad-lads":    {ID: "05c52d84-2e49-4ed9-a473-b43cab41e777", Slug: "mad-lads", Name: "Mad Lads"},
	"tensorians":  {ID: "2ab17b3c-9a0d-4c3f-9f4e-6c8f2b7d9e11", Slug: "tensorians", Name: "Tensorians"},
	"claynosaurz": {ID: "ac1667fe-c731-4e59-9dd7-77e7c7ca42b5", Slug: "claynosaurz", Name: "Claynosaurz"},
}

func main() {
	wsEndpoint := flag.String("ws-endpoint", "wss://api.mainnet.tensordev.io/ws", "Marketplace feed WebSocket endpoint")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for the listing store")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for the activity archive (empty to disable)")
	collections := flag.String("collections", "mad-lads,tensorians", "Comma-separated collection aliases to monitor")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	shutdownGrace := flag.Duration("shutdown-grace", 2*time.Second, "Grace window for in-flight work on shutdown")

	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Required credentials are checked before any connection attempt.
	apiKey := os.Getenv("TENSOR_API_KEY")
	if apiKey == "" {
		logger.Fatal("TENSOR_API_KEY is required")
	}
	webhookURL := os.Getenv("NOTIFY_WEBHOOK_URL")
	if webhookURL == "" {
		logger.Fatal("NOTIFY_WEBHOOK_URL is required")
	}

	monitored := resolveCollections(*collections)
	if len(monitored) == 0 {
		logger.Fatal("no monitored collections resolved from --collections")
	}
	logger.WithField("collections", *collections).Info("monitoring collections")

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.WithField("addr", *metricsAddr).Info("starting metrics server")
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("metrics server error")
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.WithField("signal", sig.String()).Info("initiating graceful shutdown")
		cancel()

		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig.String()).Warn("forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err := run(ctx, logger, runOptions{
		wsEndpoint:    *wsEndpoint,
		apiKey:        apiKey,
		webhookURL:    webhookURL,
		postgresDSN:   *postgresDSN,
		clickhouseDSN: *clickhouseDSN,
		collections:   monitored,
		useMemory:     *useMemory,
		shutdownGrace: *shutdownGrace,
	})

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.WithError(err).Fatal("listener failed")
	}

	logger.Info("shutdown complete")
}

type runOptions struct {
	wsEndpoint    string
	apiKey        string
	webhookURL    string
	postgresDSN   string
	clickhouseDSN string
	collections   []domain.Collection
	useMemory     bool
	shutdownGrace time.Duration
}

func run(ctx context.Context, logger *logrus.Logger, opts runOptions) error {
	if !opts.useMemory && opts.postgresDSN == "" {
		return fmt.Errorf("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	var listingStore storage.ListingStore = memory.NewListingStore()
	var activityStore storage.ActivityStore

	if !opts.useMemory {
		pool, err := pgstore.NewPool(ctx, opts.postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run postgres migrations: %w", err)
		}
		listingStore = pgstore.NewListingStore(pool)
	}

	if opts.clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, opts.clickhouseDSN)
		if err != nil {
			return fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()

		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			return fmt.Errorf("run clickhouse migrations: %w", err)
		}
		activityStore = chstore.NewActivityStore(conn)
	} else if opts.useMemory {
		activityStore = memory.NewActivityStore()
	}

	reconciler := reconcile.New(reconcile.Options{
		Store:       listingStore,
		Activity:    activityStore,
		Notifier:    notify.NewWebhookNotifier(opts.webhookURL),
		Collections: opts.collections,
		Logger:      logger,
	})

	client := feed.NewClient(feed.Config{
		Endpoint:      opts.wsEndpoint,
		APIKey:        opts.apiKey,
		Collections:   opts.collections,
		ShutdownGrace: opts.shutdownGrace,
	}, reconciler, logger)

	logger.WithField("endpoint", opts.wsEndpoint).Info("starting feed listener")
	return client.Run(ctx)
}

// resolveCollections maps comma-separated aliases to the monitored set.
// Unknown aliases are skipped with the remaining ones still monitored.
func resolveCollections(list string) []domain.Collection {
	var result []domain.Collection
	seen := make(map[string]bool)

	for _, alias := range strings.Split(list, ",") {
		alias = strings.TrimSpace(strings.ToLower(alias))
		if alias == "" || seen[alias] {
			continue
		}
		seen[alias] = true
		if coll, ok := collectionAliases[alias]; ok {
			result = append(result, coll)
		}
	}
	return result
}

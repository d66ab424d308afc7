package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"infinite-experiment/dispatchboard/internal/api"
	"infinite-experiment/dispatchboard/internal/auth"
	"infinite-experiment/dispatchboard/internal/common"
	"infinite-experiment/dispatchboard/internal/config"
	"infinite-experiment/dispatchboard/internal/db"
	"infinite-experiment/dispatchboard/internal/db/repositories"
	"infinite-experiment/dispatchboard/internal/logging"
	"infinite-experiment/dispatchboard/internal/metrics"
	"infinite-experiment/dispatchboard/internal/providers"
	"infinite-experiment/dispatchboard/internal/routes"
	"infinite-experiment/dispatchboard/internal/scheduling"
	"infinite-experiment/dispatchboard/internal/services"
	"infinite-experiment/dispatchboard/internal/workers"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	if err := logging.Init(cfg.AppEnv); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("Dispatch board starting up",
		"environment", cfg.AppEnv,
		"store_backend", cfg.StoreBackend,
		"cache_backend", cfg.CacheBackend,
		"notify_backend", cfg.NotifyBackend,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Fatal("Server stopped with error", "error", err)
	}
	logging.Info("Dispatch board stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	orm, err := db.InitORM(cfg)
	if err != nil {
		return fmt.Errorf("connect flight store: %w", err)
	}
	sqlxDB, err := db.InitSQLX(cfg, orm)
	if err != nil {
		return fmt.Errorf("connect resource pool: %w", err)
	}

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb = common.NewRedisClient(cfg)
		defer rdb.Close()
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metricsReg := metrics.NewMetricsRegistry(promReg)

	var notifier common.Notifier
	if cfg.NotifyBackend == config.NotifyRedis {
		notifier = common.NewRedisNotifier(rdb, cfg.NotifyChannel)
	} else {
		notifier = common.NewLocalNotifier()
	}
	defer notifier.Close()

	var cache common.CacheInterface
	if cfg.CacheBackend == config.CacheRedis {
		cache = common.NewRedisCacheService(rdb, "dispatch:")
	} else {
		ttl := int(cfg.CacheTTL.Seconds())
		cache = common.NewCacheService(ttl, ttl*2)
	}
	defer cache.Close()

	store := providers.NewGormFlightStore(repositories.NewFlightRepo(orm), notifier)
	dispatch := services.NewDispatchService(store, repositories.NewResourcePoolRepo(sqlxDB), cfg.GateBuffer, metricsReg)
	if err := dispatch.InitPool(ctx, scheduling.ResourcePool{
		Gates:    scheduling.DefaultGates(cfg.DefaultGateCount),
		Counters: scheduling.DefaultCounters(),
	}); err != nil {
		return fmt.Errorf("init resource pool: %w", err)
	}
	analysis := services.NewAnalysisService(dispatch, cache, cfg.CacheTTL, metricsReg)

	if cfg.JWTSecret == "" {
		logging.Warn("JWT_SECRET is not set, every write will be rejected")
	}

	upSince := time.Now()
	router := routes.RegisterRoutes(routes.RouterDeps{
		API:      api.NewDependencies(dispatch, analysis),
		Metrics:  metricsReg,
		Gatherer: promReg,
		Signer:   auth.NewTokenSigner([]byte(cfg.JWTSecret)),
		DB:       sqlxDB,
		Redis:    rdb,
		UpSince:  upSince,
	})

	// a shared notifier can drop messages, so reload the window periodically
	reconcile := cfg.NotifyBackend == config.NotifyRedis
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	w := workers.InitWorkers(workerCtx, store, dispatch, 30*time.Second, reconcile)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logging.Info("Server starting", "port", cfg.HTTPPort, "environment", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logging.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("HTTP server shutdown error", "error", err)
	}

	stopWorkers()
	w.Wait()
	return nil
}

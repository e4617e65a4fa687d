package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"techmart/internal/caching"
	"techmart/internal/config"
	"techmart/internal/handlers"
	"techmart/internal/jobs/background"
	"techmart/internal/middleware"
	"techmart/internal/repositories"
	"techmart/internal/services"
	"techmart/pkg/database"
)

func main() {
	configPath := flag.String("config", os.Getenv("TECHMART_CONFIG"), "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.ClosePool(pool)

	cacheSvc := caching.NewRedisCacheService(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	// Snapshot export is optional; the storefront runs without object storage.
	var objectStore services.ObjectStore
	if cfg.Storage.Endpoint != "" && cfg.Storage.AccessKey != "" {
		objectStore, err = services.NewMinioService(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.UseSSL)
		if err != nil {
			log.Printf("WARN: Object storage disabled: %v", err)
			objectStore = nil
		}
	}

	productRepo := repositories.NewProductRepo(pool)
	categoryRepo := repositories.NewCategoryRepo(pool)

	storefrontSvc := services.NewStorefrontService(productRepo, categoryRepo, cacheSvc, services.StorefrontOptions{
		CacheTTL:     cfg.Catalog.CacheTTL.Duration,
		RelatedLimit: cfg.Catalog.RelatedLimit,
	})

	var exporter background.SnapshotWriter
	if objectStore != nil {
		exporter = services.NewSnapshotExporter(storefrontSvc, objectStore, cfg.Storage.Bucket)
	}

	scheduler, err := background.NewJobScheduler(storefrontSvc, exporter, background.Intervals{
		Refresh:  cfg.Catalog.RefreshInterval.Duration,
		Snapshot: cfg.Catalog.SnapshotInterval.Duration,
	})
	if err != nil {
		log.Fatalf("Failed to create job scheduler: %v", err)
	}

	// Warm the cache before taking traffic.
	if _, err := storefrontSvc.RefreshCatalog(ctx); err != nil {
		log.Printf("WARN: Initial catalog load failed: %v", err)
	}
	scheduler.Start()

	healthHandlers := handlers.NewHealthHandlers(
		pool.Ping,
		cacheSvc.Ping,
		storagePing(objectStore, cfg.Storage.Bucket),
		cfg.Server.Version,
	)
	storefrontHandlers := handlers.NewStorefrontHandlers(storefrontSvc)

	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
	}))
	e.Pre(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)

	versionMiddleware := middleware.NewVersionMiddleware(cfg.Server.Version)
	v1 := versionMiddleware.VersionRoute(e, versionMiddleware.GetCurrentVersion())
	v1.Use(middleware.RateLimit(cacheSvc, cfg.Server.RateLimit, cfg.Server.RateLimitWindow.Duration))
	storefrontHandlers.RegisterRoutes(v1)

	go func() {
		log.Printf("TechMart storefront v%s starting on port %s", cfg.Server.Version, cfg.Server.Port)
		if err := e.Start(fmt.Sprintf(":%s", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := scheduler.Stop(); err != nil {
		log.Printf("WARN: Scheduler shutdown: %v", err)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server shutdown: %v", err)
	}
}

func storagePing(store services.ObjectStore, bucket string) handlers.Checker {
	if store == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return store.Ping(ctx, bucket)
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/printbridge/backend/internal/application/command"
	printingapp "github.com/printbridge/backend/internal/application/printing"
	"github.com/printbridge/backend/internal/infrastructure/auth"
	"github.com/printbridge/backend/internal/infrastructure/config"
	"github.com/printbridge/backend/internal/infrastructure/document"
	"github.com/printbridge/backend/internal/infrastructure/logger"
	"github.com/printbridge/backend/internal/infrastructure/render"
	"github.com/printbridge/backend/internal/infrastructure/spooler"
	"github.com/printbridge/backend/internal/infrastructure/telemetry"
	"github.com/printbridge/backend/internal/infrastructure/tempfile"
	"github.com/printbridge/backend/internal/interfaces/http/handler"
	"github.com/printbridge/backend/internal/interfaces/http/middleware"
	"github.com/printbridge/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

//	@title			Printbridge API
//	@version		1.0
//	@description	Local print bridge: temp files, printers, print jobs and queue control

//	@host		localhost:17312
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	configPath := flag.String("config", "", "path to config file (default: config.toml in ., ./config or /etc/printbridge)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting printbridge",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("addr", cfg.HTTP.Addr()),
		zap.String("platform", runtime.GOOS),
	)

	ctx := context.Background()

	// Telemetry
	telemetryConfig := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
	}
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryConfig, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryConfig, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	// Print backend, selected once for this host
	backend, err := spooler.New(spoolerConfig(cfg.Spooler), runtime.GOOS, nil, log.Named("spooler"))
	if err != nil {
		log.Fatal("Failed to select print backend", zap.Error(err))
	}
	if cfg.Spooler.CheckTools {
		if err := spooler.CheckTools(backend); err != nil {
			log.Fatal("Print tools missing", zap.String("backend", backend.Name()), zap.Error(err))
		}
	}

	files, err := tempfile.NewManager(&tempfile.Config{
		Dir:    cfg.Scratch.Dir,
		Logger: log.Named("tempfile"),
	})
	if err != nil {
		log.Fatal("Failed to prepare scratch directory", zap.Error(err))
	}

	renderer, err := render.New(render.Config{
		Engine:          cfg.Render.Engine,
		Timeout:         cfg.Render.Timeout,
		ChromeRemoteURL: cfg.Render.ChromeRemoteURL,
		ChromeNoSandbox: cfg.Render.ChromeNoSandbox,
		WkhtmltopdfPath: cfg.Render.WkhtmltopdfPath,
		TempDir:         cfg.Scratch.Dir,
	}, log.Named("render"))
	if err != nil {
		log.Fatal("Failed to initialize HTML renderer", zap.Error(err))
	}
	defer func() {
		if err := renderer.Close(); err != nil {
			log.Error("Error closing renderer", zap.Error(err))
		}
	}()

	serviceOpts := []printingapp.Option{
		printingapp.WithRenderer(renderer),
		printingapp.WithMaxParallel(cfg.Spooler.MaxParallel),
	}
	if meterProvider.IsEnabled() {
		spoolerMetrics, err := telemetry.NewSpoolerMetrics(telemetry.SpoolerMetricsConfig{
			Meter:   meterProvider.Meter("printbridge/spooler"),
			Backend: backend.Name(),
			Logger:  log,
		})
		if err != nil {
			log.Fatal("Failed to initialize spooler metrics", zap.Error(err))
		}
		serviceOpts = append(serviceOpts, printingapp.WithMetrics(spoolerMetrics))
	}

	printService := printingapp.NewPrintService(
		backend,
		files,
		document.NewPDFInspector(log.Named("document")),
		log,
		serviceOpts...,
	)
	surface := command.NewSurface(printService, log)

	var verifier *auth.TokenVerifier
	if cfg.Auth.Enabled {
		verifier, err = auth.NewTokenVerifier(auth.VerifierConfig{
			Secret:   cfg.Auth.Secret,
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
			Leeway:   30 * time.Second,
		})
		if err != nil {
			log.Fatal("Failed to initialize token verifier", zap.Error(err))
		}
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.AllowedOrigins

	engine := router.NewEngine(router.Handlers{
		System:  handler.NewSystemHandler(printService),
		Print:   handler.NewPrintHandler(printService),
		Command: handler.NewCommandHandler(surface),
	}, router.Options{
		Logger:      log,
		CORS:        corsConfig,
		MaxBodySize: cfg.HTTP.MaxBodySize,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		Metrics: middleware.HTTPMetricsConfig{
			MeterProvider: meterProvider,
			Logger:        log,
		},
		Verifier: verifier,
	})

	// Scratch sweeper
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	if cfg.Scratch.SweepInterval > 0 {
		go sweepScratch(sweepCtx, printService, cfg.Scratch.SweepInterval, cfg.Scratch.TTL, log)
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr), zap.String("backend", backend.Name()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func spoolerConfig(c config.SpoolerConfig) spooler.Config {
	printers := make([]spooler.MemoryPrinter, 0, len(c.MemoryPrinters))
	for i, name := range c.MemoryPrinters {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		printers = append(printers, spooler.MemoryPrinter{Name: name, IsDefault: i == 0})
	}
	return spooler.Config{
		Backend:        c.Backend,
		CommandTimeout: c.CommandTimeout,
		CUPS: spooler.CUPSConfig{
			LPPath:        c.LPPath,
			LPStatPath:    c.LPStatPath,
			LPOptionsPath: c.LPOptionsPath,
			LPQPath:       c.LPQPath,
			CancelPath:    c.CancelPath,
		},
		Windows: spooler.WindowsConfig{
			PowerShellPath: c.PowerShellPath,
			SumatraPath:    c.SumatraPath,
		},
		MemoryPrinters: printers,
	}
}

// sweepScratch removes scratch files left behind by failed print jobs
func sweepScratch(ctx context.Context, service *printingapp.PrintService, interval, ttl time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := service.SweepTempFiles(ctx, ttl)
			if err != nil {
				log.Warn("Scratch sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				log.Info("Scratch sweep removed stale files", zap.Int("removed", removed))
			}
		}
	}
}

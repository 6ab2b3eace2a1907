package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/lengolf/pos-print/internal/domain/printer"
	"github.com/lengolf/pos-print/internal/domain/receipt"
	"github.com/lengolf/pos-print/internal/escpos"
	"github.com/lengolf/pos-print/internal/handler"
	"github.com/lengolf/pos-print/internal/printing"
	"github.com/lengolf/pos-print/internal/storage/postgres"
	"github.com/lengolf/pos-print/internal/transport/bluetooth"
	"github.com/lengolf/pos-print/internal/transport/usb"
	"github.com/lengolf/pos-print/pkg/health"
	"github.com/lengolf/pos-print/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the service.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Receipt pipeline: repository, aggregator, encoder.
	loc, err := time.LoadLocation(cfg.Business.Timezone)
	if err != nil {
		return errors.Wrapf(err, "load timezone %q", cfg.Business.Timezone)
	}

	txRepo := postgres.NewTransactionRepository(pool)
	agg := receipt.NewAggregator(txRepo, loc)
	enc := escpos.NewEncoder(escpos.BusinessProfile{
		Name:         cfg.Business.Name,
		AddressLine1: cfg.Business.AddressLine1,
		AddressLine2: cfg.Business.AddressLine2,
		TaxID:        cfg.Business.TaxID,
	}, cfg.Printer.PaperWidth)

	// Transport drivers. Each enabled transport registers under its method;
	// a host without one capability simply does not register it.
	transports := make(map[printer.Method]printer.Transport)
	if cfg.Printer.Bluetooth.Enabled {
		transports[printer.MethodBluetooth] = bluetooth.NewDriver(bluetooth.Config{
			DeviceName:         cfg.Printer.Bluetooth.DeviceName,
			ServiceUUID:        cfg.Printer.Bluetooth.ServiceUUID,
			CharacteristicUUID: cfg.Printer.Bluetooth.CharacteristicUUID,
			ChunkSize:          cfg.Printer.Bluetooth.ChunkSize,
			WriteTimeout:       cfg.Printer.Bluetooth.WriteTimeout,
			ScanTimeout:        cfg.Printer.Bluetooth.ScanTimeout,
		}, lg)
	}
	if cfg.Printer.USB.Enabled {
		transports[printer.MethodUSB] = usb.NewDriver(usb.Config{
			VendorID:     uint16(cfg.Printer.USB.VendorID),
			ProductID:    uint16(cfg.Printer.USB.ProductID),
			WriteTimeout: cfg.Printer.USB.WriteTimeout,
		}, lg)
	}
	if len(transports) == 0 {
		lg.Warn("No printer transports enabled, print requests will fail")
	}
	defer func() {
		for _, t := range transports {
			if err := t.Disconnect(); err != nil {
				lg.Warn("Transport disconnect on shutdown", zap.Error(err))
			}
		}
	}()

	printSvc := printing.NewService(agg, enc, transports, cfg.Printer.PreferUSB, lg)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	handler.NewHandler(printSvc).Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// WriteTimeout must cover a full print delivery, which can retry a
		// slow BLE write once.
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("pos-print", m),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

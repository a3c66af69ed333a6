package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/protectgrid/internal/bank"
	"github.com/specialistvlad/protectgrid/internal/checkpoint"
	"github.com/specialistvlad/protectgrid/internal/clients"
	"github.com/specialistvlad/protectgrid/internal/ctxlog"
	"github.com/specialistvlad/protectgrid/internal/manager"
	"github.com/specialistvlad/protectgrid/internal/protectable"
	"github.com/specialistvlad/protectgrid/internal/protectables"
	"github.com/specialistvlad/protectgrid/internal/protection"
	"github.com/specialistvlad/protectgrid/internal/workflow"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	metrics    *prometheus.Registry
	providers  *protection.ProviderRegistry
	manager    *manager.ProtectionManager
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It loads the cloud
// inventory and every provider found in the config dir. Providers that fail
// to load are skipped; a missing inventory or config dir is an error.
func NewApp(ctx context.Context, outW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	inv, err := clients.LoadInventory(cfg.InventoryPath)
	if err != nil {
		return nil, err
	}
	discovery := protectable.NewRegistry()
	protectables.Register(discovery, clients.NewSet(inv))
	logger.Debug("Discovery plugins registered.", "types", discovery.ListResourceTypes())

	banks := bank.NewTable()
	for _, b := range coreBanks {
		b.Register(banks)
	}
	plugins := protection.NewPluginTable()
	for _, register := range corePlugins {
		register(plugins)
	}
	logger.Debug("Bank backends and protection plugins registered.", "banks", banks.Names(), "plugins", plugins.Names())

	metrics := prometheus.NewRegistry()
	checkpoint.InitMetrics(metrics)
	workflow.InitMetrics(metrics)
	manager.InitMetrics(metrics)

	engine := workflow.NewLocalEngine(cfg.WorkerCount)
	providers, err := protection.LoadProviders(ctx, cfg.ProviderConfigDir, protection.Dependencies{
		Banks:        banks,
		Plugins:      plugins,
		Protectables: discovery,
		Engine:       engine,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load providers: %w", err)
	}

	return &App{
		ctx:       ctx,
		outW:      outW,
		logger:    logger,
		config:    cfg,
		metrics:   metrics,
		providers: providers,
		manager:   manager.New(providers, discovery, engine),
	}, nil
}

// Context returns the base context carrying the app logger.
func (a *App) Context() context.Context {
	return a.ctx
}

// Manager returns the protection manager.
func (a *App) Manager() *manager.ProtectionManager {
	return a.manager
}

// Serve runs the health check server until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.healthCheckServer()
	a.logger.Info("🛡️ protectgrid is serving.", "providers", a.providers.Len())
	<-ctx.Done()
	return a.closeHealthCheckServer()
}

// Close releases the providers' banks.
func (a *App) Close() error {
	a.logger.Debug("Closing providers.")
	return a.providers.Close()
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-conductor/internal/device"
	"github.com/nerrad567/gray-logic-conductor/internal/environment"
	"github.com/nerrad567/gray-logic-conductor/internal/execution"
	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-conductor/internal/orchestrator"
	"github.com/nerrad567/gray-logic-conductor/internal/plan"
	"github.com/nerrad567/gray-logic-conductor/internal/specialist"
	"github.com/nerrad567/gray-logic-conductor/migrations"
)

// core holds the components shared by the serve and plan commands.
// Everything is constructed here and passed by handle; nothing is global.
type core struct {
	cfg         *config.Config
	log         *logging.Logger
	db          *database.DB
	registry    *device.Registry
	devices     *device.Service
	history     *device.SQLiteStateHistoryRepository
	specialists *specialist.Registry
	orch        *orchestrator.Orchestrator
	plans       *plan.MemoryStore
	logs        *execution.SQLiteLogStore
}

// newCore opens the database, seeds the device catalog and wires the
// planning layers on top of the given transport and environment provider.
func newCore(ctx context.Context, cfg *config.Config, log *logging.Logger, transport device.Transport, env environment.Provider) (*core, error) {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	c := &core{cfg: cfg, log: log, db: db}

	if err := c.init(ctx, transport, env); err != nil {
		db.Close() //nolint:errcheck // Already failing; the init error matters more
		return nil, err
	}
	return c, nil
}

func (c *core) init(ctx context.Context, transport device.Transport, env environment.Provider) error {
	if err := c.db.Migrate(ctx, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	c.log.Debug("database ready", "path", c.db.Path())

	c.registry = device.NewRegistry(device.NewSQLiteRepository(c.db.DB))
	c.registry.SetLogger(c.log)
	if err := c.registry.RefreshCache(ctx); err != nil {
		return fmt.Errorf("loading device registry: %w", err)
	}

	catalog := device.DefaultCatalog()
	if path := c.cfg.Catalog.DevicesFile; path != "" {
		loaded, err := device.LoadCatalog(path)
		if err != nil {
			return fmt.Errorf("loading device catalog: %w", err)
		}
		catalog = loaded
	}
	created, err := c.registry.Seed(ctx, catalog)
	if err != nil {
		return fmt.Errorf("seeding devices: %w", err)
	}
	c.log.Info("device registry initialised",
		"devices", c.registry.GetDeviceCount(),
		"seeded", created,
	)

	c.devices, err = device.NewService(ctx, c.registry, device.NewStateStore(), transport)
	if err != nil {
		return fmt.Errorf("creating device service: %w", err)
	}
	c.devices.SetLogger(c.log)
	c.history = device.NewSQLiteStateHistoryRepository(c.db.DB)
	c.devices.SetHistory(c.history)

	c.specialists = specialist.NewDefaultRegistry(c.devices, specialist.Options{
		SettleDelay: explicitDelay(c.cfg.GetPostCheckDelay()),
		Logger:      c.log,
	})

	templates := orchestrator.DefaultTemplates()
	if path := c.cfg.Catalog.TemplatesFile; path != "" {
		if templates, err = orchestrator.LoadTemplates(path); err != nil {
			return fmt.Errorf("loading plan templates: %w", err)
		}
	}

	c.plans = plan.NewMemoryStore(c.cfg.GetPlanTTL())
	c.logs = execution.NewSQLiteLogStore(c.db.DB)
	c.orch = orchestrator.New(orchestrator.Deps{
		Specialists: c.specialists,
		Environment: env,
		Store:       c.plans,
		Templates:   templates,
		Logger:      c.log,
	})
	return nil
}

// coordinator builds an execution coordinator over the core's plan store.
func (c *core) coordinator(sink execution.NotificationSink, recorder execution.Recorder) *execution.Coordinator {
	return execution.New(execution.Deps{
		Runner:      c.specialists,
		Plans:       c.plans,
		Logs:        c.logs,
		Sink:        sink,
		Recorder:    recorder,
		Logger:      c.log,
		SettleDelay: explicitDelay(c.cfg.GetSettleDelay()),
	})
}

// Close releases the database.
func (c *core) Close() error {
	return c.db.Close()
}

// explicitDelay maps a configured delay onto the component convention,
// where zero selects a built-in default. Config defaults are already
// applied, so a zero here means the operator turned the delay off.
func explicitDelay(d time.Duration) time.Duration {
	if d == 0 {
		return -1
	}
	return d
}

// simulatedTransport builds the simulated transport from config.
func simulatedTransport(cfg *config.Config) *device.SimulatedTransport {
	minLatency, maxLatency := cfg.GetLatencyBounds()
	return device.NewSimulatedTransport(device.SimulationOptions{
		MinLatency:  minLatency,
		MaxLatency:  maxLatency,
		FailureRate: cfg.Simulation.FailureRate,
		Seed:        cfg.Simulation.Seed,
	})
}

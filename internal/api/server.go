package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-conductor/internal/device"
	"github.com/nerrad567/gray-logic-conductor/internal/execution"
	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-conductor/internal/plan"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Planner turns goal text into a stored plan.
type Planner interface {
	CreatePlan(ctx context.Context, text, userID string) (*plan.Plan, error)
}

// Executor runs stored plans.
type Executor interface {
	Execute(ctx context.Context, planID, userID string, dryRun bool) (*execution.ExecutionLog, error)
	Stats() execution.Stats
}

// DeviceService is the device surface the API reads and commands.
type DeviceService interface {
	ListDevices(ctx context.Context) ([]device.Device, error)
	ListByType(ctx context.Context, t device.DeviceType) ([]device.Device, error)
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	GetDeviceState(ctx context.Context, id string) (device.State, error)
	SendCommands(ctx context.Context, id string, cmds []device.Command) (device.CommandResult, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Logger     *logging.Logger
	Planner    Planner
	Plans      plan.Store
	Executor   Executor
	Executions execution.LogReader
	Devices    DeviceService
	History    device.StateHistoryRepository // optional
	MQTT       *mqtt.Client                  // optional, reported in metrics
	DB         *database.DB                  // optional, reported in metrics
	Gatherer   prometheus.Gatherer           // defaults to prometheus.DefaultGatherer
	Hub        *Hub                          // If set, the server uses this hub instead of creating its own
	Version    string
}

// Server is the HTTP API server for the conductor.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	logger     *logging.Logger
	planner    Planner
	plans      plan.Store
	executor   Executor
	executions execution.LogReader
	devices    DeviceService
	history    device.StateHistoryRepository
	mqtt       *mqtt.Client
	db         *database.DB
	gatherer   prometheus.Gatherer
	version    string
	startTime  time.Time

	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Planner == nil || deps.Plans == nil {
		return nil, fmt.Errorf("planner and plan store are required")
	}
	if deps.Executor == nil || deps.Executions == nil {
		return nil, fmt.Errorf("executor and execution log reader are required")
	}
	if deps.Devices == nil {
		return nil, fmt.Errorf("device service is required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     deps.Logger,
		planner:    deps.Planner,
		plans:      deps.Plans,
		executor:   deps.Executor,
		executions: deps.Executions,
		devices:    deps.Devices,
		history:    deps.History,
		mqtt:       deps.MQTT,
		db:         deps.DB,
		gatherer:   deps.Gatherer,
		version:    deps.Version,
		startTime:  time.Now(),
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}

	// The coordinator broadcasts through the same hub, so it is usually
	// created by the caller and injected here.
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub if it owns one, and
// launches the HTTP listener in a background goroutine. The server can be
// stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

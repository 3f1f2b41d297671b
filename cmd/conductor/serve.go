package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-conductor/internal/api"
	"github.com/nerrad567/gray-logic-conductor/internal/device"
	"github.com/nerrad567/gray-logic-conductor/internal/environment"
	"github.com/nerrad567/gray-logic-conductor/internal/execution"
	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/mqtt"
)

// planSweepInterval is how often expired plans are removed from the store.
const planSweepInterval = time.Minute

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the conductor HTTP and WebSocket service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

// runServe contains the service lifecycle. Deferred closes run in reverse
// order once the context is cancelled.
func runServe(ctx context.Context, configFlag string) error {
	cfg, log, err := loadConfig(configFlag)
	if err != nil {
		return err
	}

	log.Info("starting Gray Logic Conductor",
		"version", version,
		"commit", commit,
		"build_date", date,
		"site_id", cfg.Site.ID,
		"site_name", cfg.Site.Name,
	)

	// MQTT carries device commands when simulation is off, plus weather
	// readings and step notifications.
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		)
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	var transport device.Transport
	if cfg.Simulation.Enabled {
		transport = simulatedTransport(cfg)
		log.Info("using simulated device transport",
			"failure_rate", cfg.Simulation.FailureRate,
		)
	} else {
		transport = device.NewMQTTTransport(mqttClient)
		log.Info("using MQTT device transport")
	}

	weather := environment.NewWeatherCache(environment.Weather{
		IsRaining:   cfg.Environment.DefaultRaining,
		OutdoorTemp: cfg.Environment.DefaultOutdoorTemp,
	})
	if mqttClient != nil {
		if err := weather.Subscribe(mqttClient, cfg.Environment.WeatherTopic); err != nil {
			return err
		}
	}
	env, err := environment.NewLiveProvider(cfg.Environment, cfg.Site.Timezone, weather)
	if err != nil {
		return fmt.Errorf("creating environment provider: %w", err)
	}

	c, err := newCore(ctx, cfg, log, transport, env)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := c.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	go c.plans.Run(ctx, planSweepInterval)

	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	sinks := execution.FanoutSink{execution.NewBroadcastSink(hub)}
	if mqttClient != nil {
		sinks = append(sinks, execution.NewMQTTSink(mqttClient))
	}

	promRecorder, err := execution.NewPrometheusRecorder(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}
	recorders := execution.Recorders{promRecorder}
	if influxClient != nil {
		recorders = append(recorders, execution.NewInfluxRecorder(influxClient))
	}

	coord := c.coordinator(sinks, recorders)

	server, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Logger:     log,
		Planner:    c.orch,
		Plans:      c.plans,
		Executor:   coord,
		Executions: c.logs,
		Devices:    c.devices,
		History:    c.history,
		MQTT:       mqttClient,
		DB:         c.db,
		Hub:        hub,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, c.db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("Gray Logic Conductor started", "port", cfg.API.Port)

	<-ctx.Done()

	log.Info("shutting down Gray Logic Conductor")
	return nil
}

// healthCheck verifies all connected services are responsive.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

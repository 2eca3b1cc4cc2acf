// Shelfbridge - pick-by-light warehouse bridge
//
// This is the main entry point for the Shelfbridge application: the HTTP
// front door and consistency layer for a fleet of shelf-mounted LED
// controllers reachable only over MQTT. It owns the authoritative inventory
// of shelves and pick positions, and guarantees that every configuration
// the database holds was acknowledged by the controller it describes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shelfbridge/shelfbridge/internal/api"
	"github.com/shelfbridge/shelfbridge/internal/bridge"
	"github.com/shelfbridge/shelfbridge/internal/exchange"
	"github.com/shelfbridge/shelfbridge/internal/infrastructure/config"
	"github.com/shelfbridge/shelfbridge/internal/infrastructure/influxdb"
	"github.com/shelfbridge/shelfbridge/internal/infrastructure/logging"
	"github.com/shelfbridge/shelfbridge/internal/infrastructure/mqtt"
	"github.com/shelfbridge/shelfbridge/internal/inventory"
	"github.com/shelfbridge/shelfbridge/internal/wire"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Shelfbridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the inventory store
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening inventory store: %w", err)
	}
	defer func() {
		log.Info("closing inventory store")
		if closeErr := store.Close(); closeErr != nil {
			log.Error("error closing inventory store", "error", closeErr)
		}
	}()
	log.Info("inventory store opened",
		"driver", cfg.Storage.Driver,
		"path", cfg.Storage.Path,
	)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Exchange engine: correlates controller acknowledgments with waiters
	engine := exchange.New(mqttClient, byte(cfg.MQTT.QoS))
	engine.SetLogger(log)

	// Connect to InfluxDB (optional) and feed it exchange telemetry
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		engine.AddObserver(&influxExchangeObserver{client: influxClient})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Inventory manager: the authoritative shelf/position model
	topics := mqtt.Topics{Prefix: cfg.MQTT.TopicPrefix}
	manager, err := inventory.New(store, engine, topics, inventory.Timeouts{
		Ack:   cfg.AckTimeout(),
		Reset: cfg.ResetTimeout(),
	}, log)
	if err != nil {
		return fmt.Errorf("initialising inventory: %w", err)
	}
	log.Info("inventory initialised",
		"shelves", len(manager.Shelves()),
		"unassigned_devices", len(manager.UnassignedAddresses()),
	)

	// Prometheus metrics, fed by the exchange engine and the registry
	metrics := api.NewMetrics(func() float64 {
		return float64(manager.OnlineDeviceCount())
	})
	engine.AddObserver(metrics)

	// MQTT bridge: routes inbound controller traffic
	var registry bridge.Registry = manager
	if influxClient != nil {
		registry = &telemetryRegistry{inner: manager, influx: influxClient}
	}
	mqttBridge, err := bridge.New(bridge.Options{
		Subscriber: mqttClient,
		Router:     engine,
		Registry:   registry,
		Topics:     topics,
		QoS:        byte(cfg.MQTT.QoS),
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("creating MQTT bridge: %w", err)
	}
	if err := mqttBridge.Start(); err != nil {
		return fmt.Errorf("starting MQTT bridge: %w", err)
	}
	defer func() {
		log.Info("stopping MQTT bridge")
		mqttBridge.Stop()
	}()

	// HTTP API server
	apiServer, err := api.New(api.Deps{
		Config:    cfg.API,
		Logger:    log,
		Inventory: manager,
		Metrics:   metrics,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. MQTT bridge
	// 3. InfluxDB (if enabled)
	// 4. MQTT
	// 5. Inventory store

	log.Info("Shelfbridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SHELFBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SHELFBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openStore creates the snapshot store selected by storage.driver.
func openStore(cfg *config.Config) (inventory.Store, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		return inventory.NewSQLiteStore(cfg.Storage.Path, cfg.Storage.BusyTimeout)
	default:
		return inventory.NewFileStore(cfg.Storage.Path)
	}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//   - apiServer: API server to check
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}

// influxExchangeObserver adapts the InfluxDB client to the exchange
// engine's Observer interface, recording one point per completed exchange.
type influxExchangeObserver struct {
	client *influxdb.Client
}

// ExchangeCompleted implements exchange.Observer.
func (o *influxExchangeObserver) ExchangeCompleted(device string, class exchange.Class, outcome exchange.Outcome, duration time.Duration) {
	o.client.WriteExchange(device, string(class), string(outcome), duration)
}

// telemetryRegistry decorates the inventory manager with device liveness
// telemetry: every registration and departure also lands in InfluxDB.
type telemetryRegistry struct {
	inner  *inventory.Manager
	influx *influxdb.Client
}

// RegisterOrRefresh implements bridge.Registry.
func (r *telemetryRegistry) RegisterOrRefresh(address string) error {
	if err := r.inner.RegisterOrRefresh(address); err != nil {
		return err
	}
	if addr, err := inventory.NormalizeAddress(address); err == nil {
		r.influx.WriteDeviceStatus(addr, true)
	}
	return nil
}

// MarkOffline implements bridge.Registry.
func (r *telemetryRegistry) MarkOffline(address string) error {
	if err := r.inner.MarkOffline(address); err != nil {
		return err
	}
	if addr, err := inventory.NormalizeAddress(address); err == nil {
		r.influx.WriteDeviceStatus(addr, false)
	}
	return nil
}

// ApplyDump implements bridge.Registry.
func (r *telemetryRegistry) ApplyDump(deviceAddress string, item wire.DumpItem) error {
	return r.inner.ApplyDump(deviceAddress, item)
}

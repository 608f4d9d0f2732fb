// Gray Logic Mesh - Hub-to-Mesh Bridge
//
// This is the main entry point for the Gray Logic Mesh bridge. It connects
// to an automation hub's WebSocket API, classifies the hub's devices into
// mesh device types, and keeps the two models in sync:
//   - hub state changes become mesh attribute updates
//   - mesh commands become hub service calls
//
// Optional integrations mirror entity state to MQTT and record telemetry
// in InfluxDB. A small read-only HTTP API exposes health and metrics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-mesh/internal/api"
	"github.com/nerrad567/gray-logic-mesh/internal/bridges/mesh"
	"github.com/nerrad567/gray-logic-mesh/internal/bridges/mesh/virtual"
	"github.com/nerrad567/gray-logic-mesh/internal/hub"
	"github.com/nerrad567/gray-logic-mesh/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-mesh/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-mesh/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-mesh/internal/infrastructure/mqtt"
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
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Mesh",
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

	// Bridge instance id distinguishes parallel deployments on one broker.
	instanceID := uuid.NewString()[:8]

	// Hub WebSocket client
	hubClient := hub.NewClient(hub.Config{
		URL:               cfg.Hub.URL,
		Token:             cfg.Hub.Token,
		RequestTimeout:    cfg.GetRequestTimeout(),
		KeepaliveInterval: cfg.GetKeepaliveInterval(),
		PongTimeout:       cfg.GetPongTimeout(),
		ReconnectDelay:    cfg.GetReconnectDelay(),
		MaxRetries:        cfg.Hub.MaxRetries,
	})
	hubClient.SetLogger(log.With("component", "hub"))

	// Connect to MQTT broker (optional state mirror and command path)
	var mqttClient *mqtt.Client
	var publisher mesh.StatePublisher
	var commands mesh.CommandSource
	if cfg.MQTT.Enabled {
		mqttCfg := cfg.MQTT
		mqttCfg.Broker.ClientID = fmt.Sprintf("%s-%s", cfg.MQTT.Broker.ClientID, instanceID)

		mqttClient, err = mqtt.Connect(mqttCfg)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.With("component", "mqtt"))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", mqttCfg.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		mirror := &mqttMirror{client: mqttClient, qos: byte(cfg.MQTT.QoS)}
		publisher = mirror
		commands = mirror
	} else {
		log.Info("MQTT mirror disabled")
	}

	// Connect to InfluxDB (optional telemetry)
	var influxClient *influxdb.Client
	var telemetry mesh.TelemetryWriter
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

		telemetry = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	// Mesh runtime: in-process virtual runtime holding materialised devices.
	runtime := virtual.NewRuntime()
	runtime.SetLogger(log.With("component", "runtime"))

	// The bridge itself
	bridge := mesh.NewBridge(mesh.Options{
		Session:        hubClient,
		Runtime:        runtime,
		DebounceWindow: cfg.GetDebounceWindow(),
		SnapshotPath:   cfg.Hub.SnapshotPath,
		Publisher:      publisher,
		Telemetry:      telemetry,
		Commands:       commands,
		Logger:         log.With("component", "bridge"),
	})
	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		if stopErr := bridge.Stop(); stopErr != nil {
			log.Error("error stopping bridge", "error", stopErr)
		}
	}()
	log.Info("bridge started",
		"hub_version", hubClient.HubVersion(),
		"devices", bridge.DeviceCount(),
	)

	// HTTP observation API
	apiServer, err := api.New(api.Deps{
		Config:  cfg.API,
		Logger:  log.With("component", "api"),
		Bridge:  bridge,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. Bridge (removes mesh devices, closes hub session)
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if enabled)

	log.Info("Gray Logic Mesh stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYMESH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYMESH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// mqttMirror adapts the infrastructure MQTT client to the bridge's
// StatePublisher and CommandSource interfaces. Mirrored topics are
// retained so late subscribers see the latest state; QoS comes from
// config.
type mqttMirror struct {
	client *mqtt.Client
	qos    byte
}

// Publish implements mesh.StatePublisher.
func (m *mqttMirror) Publish(topic string, payload []byte) error {
	// Drop silently while the broker is unreachable; the mirror is
	// best-effort and retained messages resync on reconnect.
	if !m.client.IsConnected() {
		return nil
	}
	if !strings.HasPrefix(topic, mqtt.TopicPrefix) {
		return fmt.Errorf("refusing to publish outside %s: %s", mqtt.TopicPrefix, topic)
	}
	return m.client.PublishRetained(topic, payload)
}

// Subscribe implements mesh.CommandSource. The subscription is restored
// automatically after a broker reconnect.
func (m *mqttMirror) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	return m.client.Subscribe(topic, m.qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// Unsubscribe implements mesh.CommandSource.
func (m *mqttMirror) Unsubscribe(topic string) error {
	return m.client.Unsubscribe(topic)
}

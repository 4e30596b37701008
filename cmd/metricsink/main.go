// metricsink - MQTT to SQL metrics pipeline
//
// This is the main entry point for the metricsink service. It subscribes
// to metric sample payloads on MQTT, normalises raw counter values into
// rates, and writes each sample to one or more relational targets using
// a normalised identifier/data schema. An optional InfluxDB mirror keeps
// a time-series copy for dashboarding.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/mkettle/metricsink/internal/infrastructure/config"
	"github.com/mkettle/metricsink/internal/infrastructure/influxdb"
	"github.com/mkettle/metricsink/internal/infrastructure/logging"
	"github.com/mkettle/metricsink/internal/infrastructure/mqtt"
	"github.com/mkettle/metricsink/internal/ingest"
	"github.com/mkettle/metricsink/internal/rates"
	"github.com/mkettle/metricsink/internal/sink"
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
	log.Info("starting metricsink",
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

	// Build sink targets
	targets, err := buildTargets(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("building sink targets: %w", err)
	}
	defer func() {
		for _, t := range targets {
			log.Info("disconnecting sink target", "target", t.Name())
			t.Disconnect()
		}
	}()

	// Give each broker session a unique identity so replicas never evict
	// each other's connections.
	instanceID := strings.Split(uuid.NewString(), "-")[0]
	cfg.MQTT.Broker.ClientID = cfg.MQTT.Broker.ClientID + "-" + instanceID

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

	// Set up MQTT logging callbacks
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB mirror (optional)
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
		log.Info("InfluxDB mirror connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB mirror disabled")
	}

	// Wire the dispatcher: payload decode, rate normalisation, fan-out.
	writers := make([]ingest.Writer, len(targets))
	for i, t := range targets {
		writers[i] = t
	}

	var mirror ingest.Mirror
	if influxClient != nil {
		mirror = influxClient
	}

	dispatcher := ingest.NewDispatcher(writers, rates.NewTracker(), mirror)
	dispatcher.SetLogger(log.With("component", "ingest"))

	// Subscribe to the sample topic
	qos := byte(cfg.MQTT.QoS)
	if err := mqttClient.Subscribe(cfg.Ingest.Topic, qos, dispatcher.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to %s: %w", cfg.Ingest.Topic, err)
	}
	log.Info("sample subscription active", "topic", cfg.Ingest.Topic, "qos", qos)

	// Verify connections are healthy
	if err := healthCheck(ctx, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	for _, t := range targets {
		stats := t.Stats()
		log.Info("sink target stats",
			"target", t.Name(),
			"connected", stats.Connected,
			"cached_identifiers", stats.CachedIdentifiers,
		)
	}
	dStats := dispatcher.Stats()
	log.Info("dispatcher stats",
		"batches_written", dStats.BatchesWritten,
		"batches_failed", dStats.BatchesFailed,
		"decode_errors", dStats.DecodeErrors,
	)

	// Deferred Close() calls will run in reverse order:
	// 1. InfluxDB (if enabled)
	// 2. MQTT
	// 3. Sink targets

	log.Info("metricsink stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses METRICSINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("METRICSINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildTargets creates and connects one sink target per configured database.
//
// A target that cannot be reached at startup is kept, not dropped: the
// write path re-establishes the connection on the next batch, matching
// how collectors ride out database restarts.
func buildTargets(ctx context.Context, cfg *config.Config, log *logging.Logger) ([]*sink.Target, error) {
	targets := make([]*sink.Target, 0, len(cfg.Targets))
	for _, tc := range cfg.Targets {
		dsn := sink.MySQLConfig{
			Host:     tc.Host,
			Port:     tc.Port,
			User:     tc.User,
			Password: tc.Password,
			Database: tc.Database,
		}.DSN()

		target, err := sink.New(sink.Config{
			Name:   tc.TargetName(),
			Driver: sink.DriverMySQL,
			DSN:    dsn,
		})
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", tc.TargetName(), err)
		}
		target.SetLogger(log.With("component", "sink", "target", tc.TargetName()))

		if err := target.Connect(ctx); err != nil {
			log.Warn("sink target unreachable at startup, will retry on first write",
				"target", tc.TargetName(),
				"error", err,
			)
		} else {
			log.Info("sink target connected",
				"target", tc.TargetName(),
				"host", tc.Host,
				"database", tc.Database,
			)
		}

		targets = append(targets, target)
	}
	return targets, nil
}

// healthCheck verifies infrastructure connections are healthy.
//
// Sink targets are deliberately excluded: an unreachable database is a
// retryable condition handled by the write path, not a startup failure.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

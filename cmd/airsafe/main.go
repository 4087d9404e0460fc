// AirSafe Core - Air Quality Monitoring Service
//
// This is the main entry point for the AirSafe Core application. It
// connects to the MQTT broker, maintains the live sensor state, evaluates
// alerts and events, records history to InfluxDB, and publishes push
// notifications back over MQTT.
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airsafe/airsafe-core/internal/alert"
	"github.com/airsafe/airsafe-core/internal/event"
	"github.com/airsafe/airsafe-core/internal/history"
	"github.com/airsafe/airsafe-core/internal/infrastructure/config"
	"github.com/airsafe/airsafe-core/internal/infrastructure/database"
	"github.com/airsafe/airsafe-core/internal/infrastructure/influxdb"
	"github.com/airsafe/airsafe-core/internal/infrastructure/logging"
	"github.com/airsafe/airsafe-core/internal/infrastructure/mqtt"
	"github.com/airsafe/airsafe-core/internal/notify"
	"github.com/airsafe/airsafe-core/internal/sensor"
	"github.com/airsafe/airsafe-core/internal/storage"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// cleanupInterval drives the periodic alert and event retention sweep.
const cleanupInterval = time.Hour

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting AirSafe Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

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

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	kv, err := storage.New(ctx, db.DB)
	if err != nil {
		return fmt.Errorf("initialising key-value storage: %w", err)
	}

	// Sensor state store, restored from the last persisted snapshot
	store := sensor.NewStore(kv)
	store.SetLogger(log)
	if loadErr := store.LoadFromStorage(ctx); loadErr != nil {
		log.Warn("restoring sensor state", "error", loadErr)
	}

	// MQTT connection manager routes inbound messages into the store
	manager := mqtt.NewManager(cfg.MQTT, cfg.Device.Namespace, store)
	manager.SetLogger(log)

	// Notification service publishes back through the same connection
	notifier := notify.New(manager, kv, cfg.NotificationTopic())
	notifier.SetLogger(log)
	notifier.SetCooldown(cfg.NotificationCooldown())
	if loadErr := notifier.LoadFromStorage(ctx); loadErr != nil {
		log.Warn("restoring notification cooldowns", "error", loadErr)
	}

	// Alert engine, seeded from config then overridden by persisted settings
	engine := alert.NewEngine(kv, notifier, alertSettings(cfg))
	engine.SetLogger(log)
	if loadErr := engine.LoadFromStorage(ctx); loadErr != nil {
		log.Warn("restoring alerts", "error", loadErr)
	}

	events := event.NewLog(kv)
	events.SetLogger(log)
	if loadErr := events.LoadFromStorage(ctx); loadErr != nil {
		log.Warn("restoring events", "error", loadErr)
	}

	// Connect to InfluxDB (optional) and attach the history recorder
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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		recorder := history.NewRecorder(influxClient, cfg.Device.Name)
		recorder.SetLogger(log)
		defer recorder.Attach(store)()
	} else {
		log.Info("InfluxDB disabled")
	}

	// Every applied sensor message feeds the alert engine, the event log,
	// and the worsening-air-quality notification check.
	defer store.Subscribe(newUpdateHandler(ctx, engine, events, notifier))()

	manager.SetEvents(mqtt.Events{
		OnConnected: func() {
			log.Info("MQTT connected")
			if sendErr := notifier.SendConnectionAlert(ctx, true); sendErr != nil {
				log.Warn("sending connection notification", "error", sendErr)
			}
		},
		OnDisconnected: func() {
			log.Info("MQTT disconnected")
		},
		OnConnectionLost: func(err error) {
			log.Warn("MQTT connection lost", "error", err)
			if sendErr := notifier.SendConnectionAlert(ctx, false); sendErr != nil {
				log.Warn("sending connection notification", "error", sendErr)
			}
		},
		OnConnectionFailed: func(err error) {
			log.Warn("MQTT connection attempt failed", "error", err)
		},
		OnMaxReconnectAttempts: func() {
			log.Error("MQTT reconnect attempts exhausted, manual reconnect required")
		},
	})

	manager.Connect()
	defer manager.Disconnect()

	// Periodic retention sweep for alerts and events
	go runCleanup(ctx, engine, events)

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Flush in-flight persistence before the deferred teardown runs
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer flushCancel()

	engine.Flush()
	events.Flush()
	notifier.Flush()
	store.Flush()
	if persistErr := store.Persist(flushCtx); persistErr != nil {
		log.Error("persisting final sensor snapshot", "error", persistErr)
	}

	log.Info("AirSafe Core stopped")
	return nil
}

// newUpdateHandler builds the sensor update fan-out: alert evaluation,
// event generation, and the worsening-condition push notification. The
// previous particulate values are tracked here because notifications
// compare each reading against the one before it.
func newUpdateHandler(ctx context.Context, engine *alert.Engine, events *event.Log, notifier *notify.Service) func(sensor.Update) {
	prevPM25 := math.NaN()
	prevPM10 := math.NaN()

	return func(update sensor.Update) {
		engine.ProcessData(update.Data)
		events.AddEvent(update.Data)

		key := sensor.SensorKey(update.Topic)
		if key != sensor.KeyPM25 && key != sensor.KeyPM10 && key != sensor.KeyAllData {
			return
		}

		pm25 := numberOrNaN(update.Data, sensor.KeyPM25)
		pm10 := numberOrNaN(update.Data, sensor.KeyPM10)
		_ = notifier.CheckAndSendAirQualityAlert(ctx, pm25, pm10, prevPM25, prevPM10)
		prevPM25, prevPM10 = pm25, pm10
	}
}

func numberOrNaN(snap sensor.Snapshot, key string) float64 {
	if v, ok := snap.Number(key); ok {
		return v
	}
	return math.NaN()
}

// alertSettings maps the alerts config section onto engine settings.
func alertSettings(cfg *config.Config) alert.Settings {
	return alert.Settings{
		PM25Alerts:        cfg.Alerts.PM25Alerts,
		PM25Threshold:     cfg.Alerts.PM25Threshold,
		PM10Alerts:        cfg.Alerts.PM10Alerts,
		PM10Threshold:     cfg.Alerts.PM10Threshold,
		AQIAlerts:         cfg.Alerts.AQIAlerts,
		AQIThreshold:      cfg.Alerts.AQIThreshold,
		PushNotifications: cfg.Alerts.PushNotifications,
		SoundAlerts:       cfg.Alerts.SoundAlerts,
	}
}

// runCleanup sweeps expired alerts and events until the context ends.
func runCleanup(ctx context.Context, engine *alert.Engine, events *event.Log) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			engine.CleanOldAlerts()
			events.CleanOldEvents()
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses AIRSAFE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("AIRSAFE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/fireplace-controller/db"
	"github.com/thatsimonsguy/fireplace-controller/internal/api"
	"github.com/thatsimonsguy/fireplace-controller/internal/config"
	"github.com/thatsimonsguy/fireplace-controller/internal/controller"
	"github.com/thatsimonsguy/fireplace-controller/internal/datadog"
	"github.com/thatsimonsguy/fireplace-controller/internal/ir"
	"github.com/thatsimonsguy/fireplace-controller/internal/irctl"
	"github.com/thatsimonsguy/fireplace-controller/internal/logging"
	"github.com/thatsimonsguy/fireplace-controller/internal/mqtt"
	"github.com/thatsimonsguy/fireplace-controller/internal/notifications"
	"github.com/thatsimonsguy/fireplace-controller/internal/persist"
	"github.com/thatsimonsguy/fireplace-controller/internal/state"
	"github.com/thatsimonsguy/fireplace-controller/internal/store"
	"github.com/thatsimonsguy/fireplace-controller/internal/temperature"
	"github.com/thatsimonsguy/fireplace-controller/internal/thermostat"
	"github.com/thatsimonsguy/fireplace-controller/system/shutdown"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("config", cfg.ConfigFile).
		Str("db", cfg.DBPath).
		Msg("Starting fireplace controller")

	if cfg.SafeMode {
		log.Warn().Msg("SAFE MODE ENABLED, IR transmission is disabled")
	}

	datadog.InitMetrics(cfg.Datadog)
	defer datadog.Close()
	notifications.Init(cfg.NtfyTopic)

	dbConn, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer dbConn.Close()

	snap, err := db.LoadSnapshot(dbConn)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load persisted settings")
	}
	log.Info().
		Str("mode", string(snap.Settings.Mode)).
		Float64("target", snap.Settings.TargetTempF).
		Bool("schedule", snap.Schedule.Enabled).
		Int("entries", len(snap.Schedule.Entries)).
		Str("timezone", snap.Timezone).
		Msg("Loaded persisted settings")

	encoder := ir.NewEncoder(cfg.IR.Options(), nil, ir.DisabledTransmitter{})
	codebook, err := store.New(cfg.IR.CodebookFile).Load()
	switch {
	case err != nil:
		log.Warn().Err(err).Str("file", cfg.IR.CodebookFile).Msg("No IR codebook, transmitter disabled")
	case cfg.SafeMode:
		encoder = ir.NewEncoder(cfg.IR.Options(), codebook, ir.DisabledTransmitter{})
	case !irctl.Available(cfg.IR.Device):
		log.Warn().Str("device", cfg.IR.Device).Msg("IR device not found, transmitter disabled")
		encoder = ir.NewEncoder(cfg.IR.Options(), codebook, ir.DisabledTransmitter{})
	default:
		if missing := codebook.Missing(); len(missing) > 0 {
			log.Warn().Strs("signals", missing).Msg("IR codebook is incomplete, affected actions will fail")
		}
		encoder = ir.NewEncoder(cfg.IR.Options(), codebook, irctl.New(cfg.IR.Device, cfg.IR.CarrierKHz))
	}
	executor := controller.NewExecutor(encoder)

	engine := thermostat.NewEngine(cfg.Thermostat.Engine(), snap.Settings)
	st := state.New(engine, snap.Schedule, snap.Timezone, executor)

	saver := persist.NewSaver(cfg.Thermostat.SaveDebounce(), func() error {
		return db.SaveSnapshot(dbConn, st.Snapshot())
	})
	st.OnChange(saver.Queue)

	filter := temperature.NewFilter(temperature.Config{
		MinValidF:    cfg.Thermostat.MinValidTempF,
		MaxValidF:    cfg.Thermostat.MaxValidTempF,
		MaxDeltaF:    cfg.SensorAnomaly.MaxDeltaF,
		MaxAnomalies: cfg.SensorAnomaly.MaxAnomalies,
	}, notifications.Ntfy{})

	loop := &controller.Loop{
		State:           st,
		Executor:        executor,
		Saver:           saver,
		Notifier:        notifications.Ntfy{},
		TickInterval:    cfg.Thermostat.TickInterval(),
		PublishInterval: cfg.Thermostat.StatePublishInterval(),
	}

	handler := mqtt.NewHandler(st, executor, filter, cfg.Thermostat.MaxHoldMinutes)
	client, err := mqtt.NewClient(cfg.MQTT, handler)
	if err != nil {
		log.Error().Err(err).Str("broker", cfg.MQTT.Broker()).Msg("MQTT unavailable, continuing without broker")
	} else {
		loop.Publisher = client
		defer client.Close()
	}

	server := api.NewServer(st, executor, executor, cfg.Thermostat.MaxHoldMinutes)
	httpServer := server.HTTPServer(cfg.HTTPPort)
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("Starting API server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdown.ShutdownWithError(err, "API server failed", st, executor, saver, cfg.SafeMode)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop.Run(ctx)

	log.Info().Msg("Shutting down fireplace controller")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("API server did not stop cleanly")
	}
	shutdown.Shutdown(st, executor, saver, cfg.SafeMode)
}

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/lsoc/neco/pkg/agentstate"
	"github.com/lsoc/neco/pkg/broker"
	"github.com/lsoc/neco/pkg/commandplane"
	"github.com/lsoc/neco/pkg/log"
	"github.com/lsoc/neco/pkg/metrics"
	"github.com/lsoc/neco/pkg/security"
	"github.com/lsoc/neco/pkg/settings"
	"github.com/lsoc/neco/pkg/versioncontrol"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// metricsAddr serves /metrics, /healthz, /readyz, /livez alongside the
// agent's MQTT workers, mirroring the teacher's sidecar HTTP server.
const metricsAddr = ":9110"

// mainLoopInterval is the 1 Hz restart-flag poll spec'd as the process's
// only cooperative shutdown lever.
const mainLoopInterval = time.Second

func runAgent(cmd *cobra.Command, args []string) error {
	logger := log.WithComponent("main")

	store := settings.New(settings.DefaultPath, security.NewMaterializer())
	cfg, err := store.Load()
	if err != nil {
		logger.Error().Err(err).Msg("could not load settings")
		return err
	}

	metrics.SetVersion(versioncontrol.AgentVersion)
	metrics.RegisterComponent("component-bus", false, "connecting")
	metrics.RegisterComponent("central-bus", false, "connecting")
	metrics.RegisterComponent("cert-watchdog", true, "starting")

	// date_issued/passphrase never round-trip to disk, so every real
	// restart needs its certificate material (re-)materialized before the
	// watchdog can parse date_issued and decide what's due for renewal.
	cfg = store.MaterializeCertificates(cfg)
	if err := store.Save(cfg); err != nil {
		logger.Error().Err(err).Msg("could not persist materialized certificates")
	}

	state := agentstate.New(cfg)

	engine := versioncontrol.New(state, nil, nil)
	plane := commandplane.New(engine)
	engine.SetPublisher(plane)
	engine.SeedVersions()

	watchdog := security.NewWatchdog(cfg.Certificates, state, func(renewed []settings.CertificateSettings) {
		current := state.Settings()
		current.Certificates = renewed
		state.SetSettings(current)
		if err := store.Save(current); err != nil {
			logger.Error().Err(err).Msg("could not persist renewed certificates")
		}
	})
	watchdog.Start()
	metrics.UpdateComponent("cert-watchdog", true, "running")

	componentBus, err := broker.NewComponentBus(cfg.ComponentBroker, cfg.NeutronUser, plane, plane)
	if err != nil {
		logger.Error().Err(err).Msg("could not build component bus client")
		metrics.UpdateComponent("component-bus", false, err.Error())
	} else {
		plane.SetComponentBus(componentBus)
		metrics.UpdateComponent("component-bus", true, "connecting")
	}

	centralBus := broker.NewCentralBus(cfg.CentralBroker, cfg.NeutronUser, nil, plane)
	plane.SetCentralBus(centralBus)
	metrics.UpdateComponent("central-bus", true, "connecting")

	go serveMetrics(logger)

	engine.DiscoverLeftovers(context.Background())

	ticker := time.NewTicker(mainLoopInterval)
	defer ticker.Stop()

	logger.Info().Msg("agent started")

	for range ticker.C {
		if state.Restarting() {
			logger.Info().Msg("restart flag set, shutting down")
			watchdog.Stop()
			if componentBus != nil {
				componentBus.Disconnect(250)
			}
			centralBus.Disconnect(250)
			return nil
		}
	}

	return nil
}

func serveMetrics(logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", metrics.HealthHandler())
	mux.HandleFunc("/readyz", metrics.ReadyHandler())
	mux.HandleFunc("/livez", metrics.LivenessHandler())

	if err := http.ListenAndServe(metricsAddr, mux); err != nil {
		logger.Error().Err(err).Msg("metrics server exited")
	}
}

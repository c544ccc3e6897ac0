package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"facewatch-go/internal/api/handlers"
	"facewatch-go/internal/cleanup"
	"facewatch-go/internal/config"
	"facewatch-go/internal/core/notifier"
	"facewatch-go/internal/core/processor"
	"facewatch-go/internal/database"
	"facewatch-go/internal/i18n"
	"facewatch-go/internal/integrations/dlib"
	"facewatch-go/internal/integrations/homeassistant"
	"facewatch-go/internal/integrations/opencv"
	"facewatch-go/internal/mqtt"
	"facewatch-go/internal/recognition"
	"facewatch-go/internal/server"
	"facewatch-go/internal/sse"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	dispatchWorkers = 2
	dispatchQueue   = 64
	shutdownTimeout = 5 * time.Second
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Enroll the gallery and start identifying faces on the camera",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// run wires every component and blocks in the capture loop until the quit
// key, a signal, or a fatal error
func run(ctx context.Context, cfg *config.Config) error {
	started := time.Now()
	runID := uuid.NewString()
	log.Infof("Starting facewatch %s (run %s)", Version, runID)

	encoder, err := dlib.NewService(cfg.Recognition)
	if err != nil {
		return err
	}
	defer encoder.Close()

	g, identities, err := enrollGallery(ctx, encoder, cfg, os.Stderr)
	if err != nil {
		return err
	}

	translator, err := i18n.NewTranslator(cfg.Display.Language, cfg.Display.LocalesDir)
	if err != nil {
		return err
	}

	var repo database.Repository
	if cfg.DB.Enabled {
		db, err := database.Open(cfg.DB)
		if err != nil {
			return err
		}
		defer database.Close(db)

		repo = database.NewSQLiteRepository(db)
		if err := repo.UpsertIdentities(ctx, identities); err != nil {
			return fmt.Errorf("failed to store identities: %w", err)
		}
	}

	var hub *sse.Hub
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	if cfg.Server.Enabled {
		hub = sse.NewHub()
		go hub.Run(hubCtx)
	}

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient = mqtt.NewClient(cfg.MQTT)
		if err := mqttClient.Start(); err != nil {
			log.Warnf("MQTT unavailable, continuing without it: %v", err)
			mqttClient = nil
		} else {
			defer mqttClient.Stop()
			if cfg.MQTT.HomeAssistant {
				discovery := homeassistant.NewDiscoveryManager(mqttClient, cfg.MQTT.DiscoveryPrefix, Version)
				if err := discovery.RegisterIdentities(g.Names(), recognition.Unknown); err != nil {
					log.Warnf("Home Assistant discovery incomplete: %v", err)
				}
			}
		}
	}

	var sinks []notifier.Sink
	if cfg.Events.Snapshots {
		urlBase := ""
		if cfg.Server.Enabled {
			urlBase = server.SnapshotRoute
		}
		sinks = append(sinks, notifier.NewSnapshotSink(cfg.Server.SnapshotDir, urlBase))
	}
	if repo != nil {
		sinks = append(sinks, notifier.NewDatabaseSink(repo))
	}
	if mqttClient != nil {
		sinks = append(sinks, notifier.NewMQTTSink(mqttClient))
	}
	if hub != nil {
		sinks = append(sinks, notifier.NewSSESink(hub))
	}

	var dispatcher *notifier.Dispatcher
	var observers []processor.Observer
	if len(sinks) > 0 {
		dispatcher = notifier.NewDispatcher(sinks, dispatchWorkers, dispatchQueue)
		observers = append(observers, notifier.New(runID, cfg.Events.Cooldown, cfg.Events.Snapshots, dispatcher))
	} else {
		log.Info("No sighting sinks enabled, results are only drawn")
	}

	camera, err := opencv.OpenCamera(cfg.Camera)
	if err != nil {
		return err
	}
	defer camera.Close()

	var debugSvc *opencv.DebugService
	if cfg.Server.Enabled && cfg.Display.DebugFrames > 0 {
		debugSvc = opencv.NewDebugService(cfg.Display.DebugFrames)
	}

	renderer := opencv.NewRenderer(cfg.Display, translator.LabelFunc(cfg.Display.Language, recognition.Unknown), debugSvc)
	defer renderer.Close()

	frameProcessor := processor.NewFrameProcessor(encoder, g, cfg.Processing.Downscale, cfg.Processing.EveryNthFrame)
	runner := processor.NewRunner(camera, frameProcessor, renderer, cfg.Camera.MaxReadFailures, observers...)

	if repo != nil {
		cleanup.NewService(repo, cfg.Cleanup.RetentionDays, cfg.Server.SnapshotDir, cfg.Cleanup.Interval).Start(ctx)
	}

	var srv *server.Server
	if cfg.Server.Enabled {
		deps := handlers.Dependencies{
			Repo:            repo,
			Counters:        runner.Counters(),
			ClientCount:     hub.ClientCount,
			RunID:           runID,
			Version:         Version,
			SnapshotURLBase: server.SnapshotRoute,
			Started:         started,
		}
		if dispatcher != nil {
			deps.Queue = dispatcher
		}

		registrars := []server.RouteRegistrar{
			handlers.NewAPIHandler(deps),
			handlers.NewEventHandler(hub),
		}
		if debugSvc != nil {
			registrars = append(registrars, debugSvc)
		}

		srv = server.New(cfg.Server, translator, registrars...)
		go func() {
			if err := srv.Start(); err != nil {
				log.Error(err)
			}
		}()
	}

	runErr := runner.Run(ctx)
	if runErr != nil {
		log.Errorf("Capture loop stopped: %v", runErr)
	}

	// streams end when the hub stops, so stop it before the server
	stopHub()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("HTTP server shutdown: %v", err)
		}
		cancel()
	}
	if dispatcher != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := dispatcher.Shutdown(shutdownCtx); err != nil {
			log.Warnf("Pending sightings not delivered: %v", err)
		}
		cancel()
		if n := dispatcher.Dropped(); n > 0 {
			log.Warnf("%d sightings were dropped because the queue was full", n)
		}
	}

	log.Info("facewatch stopped")
	return runErr
}

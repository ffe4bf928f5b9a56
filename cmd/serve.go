package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/ecoguard/api"
	"example.com/ecoguard/config"
	"example.com/ecoguard/internal/auth"
	"example.com/ecoguard/internal/cache"
	"example.com/ecoguard/internal/messaging"
	"example.com/ecoguard/internal/scheduler"
	"example.com/ecoguard/internal/service"
	"example.com/ecoguard/internal/session"
	"example.com/ecoguard/internal/telemetry"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	// Serve command flags
	disableNewRelic bool
	serverPort      int
	gracefulTimeout int
	storeBackend    string
	skipSeed        bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Starts the EcoGuard API server that ingests sensor readings, evaluates
thresholds, and serves the device, admin and user endpoints.

The server respects the configuration in config.yaml or specified via the --config flag.
It will gracefully shut down on receiving SIGINT or SIGTERM signals.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := startServer(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&disableNewRelic, "disable-newrelic", false, "Disable New Relic monitoring")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "Server port (overrides config file)")
	serveCmd.Flags().IntVar(&gracefulTimeout, "graceful-timeout", 30, "Graceful shutdown timeout in seconds")
	serveCmd.Flags().StringVar(&storeBackend, "store", storePostgres, "Storage backend (postgres, memory)")
	serveCmd.Flags().BoolVar(&skipSeed, "skip-seed", false, "Do not create the default users and thresholds on startup")
}

// startServer wires every component and blocks until a shutdown signal
func startServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if serverPort > 0 {
		cfg.Server.Port = serverPort
	}

	log.WithFields(logrus.Fields{
		"port":             cfg.Server.Port,
		"base_path":        cfg.Server.BasePath,
		"store":            storeBackend,
		"redis_enabled":    cfg.Redis.Enabled,
		"newrelic_enabled": cfg.NewRelic.Enabled && !disableNewRelic,
	}).Info("Initializing service components...")

	repo, closeRepo, err := openRepository(cfg, storeBackend, true)
	if err != nil {
		return err
	}
	defer closeRepo()

	log.Info("Connecting to Redis...")
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.WithField("error", err.Error()).Error("Error closing Redis connection")
		}
	}()

	sessions := newSessionStore(cfg, redisClient)
	defer sessions.Close()

	log.Info("Connecting to message broker...")
	msgClient, err := messaging.NewServiceBusClient(cfg.ServiceBus, "ecoguard-events", log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("Closing messaging connection...")
		if err := msgClient.Close(); err != nil {
			log.WithField("error", err.Error()).Error("Error closing messaging connection")
		}
	}()

	var nrApp *newrelic.Application
	if !disableNewRelic {
		nrApp, err = telemetry.InitNewRelic(cfg.NewRelic)
		if err != nil {
			log.Warnf("Failed to initialize New Relic: %v", err)
		} else if nrApp != nil {
			log.Info("New Relic monitoring initialized successfully")
			defer nrApp.Shutdown(5 * time.Second)
		}
	}

	log.Info("Initializing service layer...")
	svc, err := service.NewService(service.ServiceConfig{
		Repository:        repo,
		Cache:             redisClient,
		MessagingClient:   msgClient,
		Sessions:          sessions,
		Logger:            log,
		DeviceKey:         cfg.Device.Key,
		OnlineThreshold:   cfg.Device.OnlineThreshold(),
		HistoryLimit:      cfg.Device.HistoryLimit,
		NotifierWorkers:   cfg.Notifier.Workers,
		NotifierQueueSize: cfg.Notifier.QueueSize,
	})
	if err != nil {
		return err
	}
	defer func() {
		log.Info("Shutting down service components...")
		if err := svc.Shutdown(); err != nil {
			log.Warnf("Service shutdown error: %v", err)
		}
	}()

	if !skipSeed {
		if err := svc.Seed(context.Background()); err != nil {
			return err
		}
	}

	gate := auth.NewGate(cfg.Server.BasePath, cfg.Device.Key, sessions, log)
	server := api.NewServer(cfg, log, nrApp, svc, gate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	sched, err := scheduler.New(ctx, svc, scheduler.Config{
		SessionSweepInterval: cfg.Auth.SweepInterval,
		LivenessInterval:     cfg.Monitor.LivenessInterval,
	}, log)
	if err != nil {
		return err
	}

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return sched.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(gracefulTimeout)*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("Server shutdown complete")
	return nil
}

// newSessionStore keeps sessions in Redis when it is enabled so they survive restarts
func newSessionStore(cfg *config.Config, redisClient cache.RedisClient) session.Store {
	if redisClient.Enabled() {
		log.Info("Storing sessions in Redis")
		return session.NewRedisStore(redisClient, cfg.Auth.SessionTTL)
	}
	return session.NewMemoryStore(cfg.Auth.SessionTTL)
}

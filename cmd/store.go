package cmd

import (
	"fmt"
	"time"

	"example.com/ecoguard/config"
	"example.com/ecoguard/internal/database"
	"example.com/ecoguard/internal/messaging"
	"example.com/ecoguard/internal/repository"
	"example.com/ecoguard/internal/service"
	"example.com/ecoguard/internal/session"

	"github.com/sirupsen/logrus"
)

// Storage backends accepted by --store
const (
	storePostgres = "postgres"
	storeMemory   = "memory"
)

// connectDatabase connects to PostgreSQL, retrying with exponential backoff
func connectDatabase(cfg config.DatabaseConfig, maxRetries int) (database.DB, error) {
	var (
		db  database.DB
		err error
	)
	retryInterval := time.Second

	for i := 0; i < maxRetries; i++ {
		log.WithField("attempt", i+1).Info("Connecting to database...")
		db, err = database.Connect(cfg)
		if err == nil {
			log.Info("Successfully connected to database")
			return db, nil
		}

		log.WithFields(logrus.Fields{
			"error":         err.Error(),
			"retry_attempt": i + 1,
			"max_retries":   maxRetries,
		}).Error("Failed to connect to database, retrying...")

		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2
		}
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

// openRepository builds the repository for store. The returned func releases it.
func openRepository(cfg *config.Config, store string, migrate bool) (repository.Repository, func(), error) {
	switch store {
	case storeMemory:
		log.Warn("Using in-memory storage; data is lost on exit")
		return repository.NewMemoryRepository(), func() {}, nil
	case storePostgres, "":
	default:
		return nil, nil, fmt.Errorf("unknown store %q (want %s or %s)", store, storePostgres, storeMemory)
	}

	db, err := connectDatabase(cfg.Database, 5)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		log.Info("Closing database connection...")
		if err := db.Close(); err != nil {
			log.WithField("error", err.Error()).Error("Error closing database connection")
		}
	}

	if migrate {
		log.Info("Running database migrations...")
		if err := database.AutoMigrate(db); err != nil {
			closeDB()
			return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
	}

	return repository.NewRepository(db), closeDB, nil
}

// newOfflineService builds a service for one-shot commands that do not serve HTTP
func newOfflineService(cfg *config.Config, repo repository.Repository) (service.Service, error) {
	msgClient, err := messaging.NewServiceBusClient(config.ServiceBusConfig{}, "ecoguard-cli", log)
	if err != nil {
		return nil, err
	}

	return service.NewService(service.ServiceConfig{
		Repository:        repo,
		MessagingClient:   msgClient,
		Sessions:          session.NewMemoryStore(0),
		Logger:            log,
		DeviceKey:         cfg.Device.Key,
		OnlineThreshold:   cfg.Device.OnlineThreshold(),
		HistoryLimit:      cfg.Device.HistoryLimit,
		NotifierWorkers:   1,
		NotifierQueueSize: 1,
	})
}

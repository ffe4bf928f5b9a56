package service

import (
	"context"
	"errors"
	"time"

	"example.com/ecoguard/internal/cache"
	"example.com/ecoguard/internal/messaging"
	"example.com/ecoguard/internal/models"
	"example.com/ecoguard/internal/repository"
	"example.com/ecoguard/internal/session"

	"github.com/sirupsen/logrus"
)

// Service defines the business logic operations
type Service interface {
	// Ingestion
	IngestReading(ctx context.Context, in *ReadingInput) (*IngestResult, error)
	ListReadings(ctx context.Context, limit int) ([]*models.SensorReading, error)
	LatestReading(ctx context.Context) (*models.SensorReading, error)
	ReadingsBetween(ctx context.Context, start, end time.Time) ([]*models.SensorReading, error)

	// Thresholds
	ListThresholds(ctx context.Context) ([]*models.Threshold, error)
	GetThreshold(ctx context.Context, id uint) (*models.Threshold, error)
	GetThresholdByMetric(ctx context.Context, metric models.MetricType) (*models.Threshold, error)
	DeviceThresholds(ctx context.Context) ([]DeviceThreshold, error)
	UpdateThreshold(ctx context.Context, id uint, update models.ThresholdUpdate) (*models.Threshold, error)
	SetThreshold(ctx context.Context, metric models.MetricType, update models.ThresholdUpdate) (*models.Threshold, error)
	DeleteThreshold(ctx context.Context, id uint) error
	ThresholdAudits(ctx context.Context, limit int) ([]*models.ThresholdAudit, error)

	// Alerts
	ListAlerts(ctx context.Context, limit int) ([]*models.Alert, error)
	GetAlert(ctx context.Context, id uint) (*models.Alert, error)
	AcknowledgeAlert(ctx context.Context, id uint) (*models.Alert, error)

	// Command queue
	IssueCommand(ctx context.Context, in CommandInput) (*models.DeviceCommand, error)
	PendingCommands(ctx context.Context, deviceKey string) ([]*models.DeviceCommand, error)
	AcknowledgeCommand(ctx context.Context, deviceKey string, id uint) (*models.DeviceCommand, error)
	CommandHistory(ctx context.Context, deviceKey string, limit int) ([]*models.DeviceCommand, error)
	ListCommands(ctx context.Context) ([]*models.DeviceCommand, error)
	ListCommandsByDevice(ctx context.Context, deviceKey string) ([]*models.DeviceCommand, error)
	LastCommandOfType(ctx context.Context, commandType models.CommandType) (*models.DeviceCommand, error)

	// Status and health
	DeviceStatus(ctx context.Context) (*DeviceStatus, error)
	CheckLiveness(ctx context.Context) (bool, error)
	Health(ctx context.Context) *HealthReport

	// Accounts and sessions
	Login(ctx context.Context, username, password string) (*session.Session, error)
	Logout(ctx context.Context, token string) error
	UpdateDeviceToken(ctx context.Context, username, token string) error
	CreateUser(ctx context.Context, username, password string, role models.Role) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	Seed(ctx context.Context) error
	SweepSessions(ctx context.Context) (int, error)

	Shutdown() error
}

// service is an implementation of the Service interface
type service struct {
	repo     repository.Repository
	cache    cache.RedisClient
	sessions session.Store
	notifier *Notifier
	log      *logrus.Logger
	now      func() time.Time

	deviceKey         string
	onlineThreshold   time.Duration
	historyLimit      int
	thresholdCacheTTL time.Duration

	liveness livenessState
}

// ServiceConfig holds the configuration for the service
type ServiceConfig struct {
	Repository      repository.Repository
	Cache           cache.RedisClient
	MessagingClient messaging.ServiceBusClient
	Sessions        session.Store
	Logger          *logrus.Logger

	// DeviceKey receives the REFRESH_CONFIG command queued on threshold changes.
	DeviceKey         string
	OnlineThreshold   time.Duration
	HistoryLimit      int
	ThresholdCacheTTL time.Duration

	NotifierWorkers   int
	NotifierQueueSize int

	// Clock defaults to time.Now
	Clock func() time.Time
}

// NewService creates a new service instance
func NewService(config ServiceConfig) (Service, error) {
	if config.Repository == nil {
		return nil, errors.New("repository is required")
	}
	if config.MessagingClient == nil {
		return nil, errors.New("messaging client is required")
	}
	if config.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if config.DeviceKey == "" {
		return nil, errors.New("device key is required")
	}
	if config.Cache == nil {
		config.Cache = cache.Disabled()
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.OnlineThreshold <= 0 {
		config.OnlineThreshold = 20 * time.Second
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = 10
	}
	if config.ThresholdCacheTTL <= 0 {
		config.ThresholdCacheTTL = 5 * time.Minute
	}
	if config.NotifierWorkers <= 0 {
		config.NotifierWorkers = 4
	}
	if config.NotifierQueueSize <= 0 {
		config.NotifierQueueSize = 1000
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	notifier := NewNotifier(
		config.MessagingClient,
		config.Logger,
		config.NotifierWorkers,
		config.NotifierQueueSize,
	)

	return &service{
		repo:              config.Repository,
		cache:             config.Cache,
		sessions:          config.Sessions,
		notifier:          notifier,
		log:               config.Logger,
		now:               config.Clock,
		deviceKey:         config.DeviceKey,
		onlineThreshold:   config.OnlineThreshold,
		historyLimit:      config.HistoryLimit,
		thresholdCacheTTL: config.ThresholdCacheTTL,
	}, nil
}

// Shutdown drains the event notifier
func (s *service) Shutdown() error {
	s.notifier.Stop()
	return nil
}

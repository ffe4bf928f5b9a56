package repository

import (
	"context"
	"time"

	"example.com/ecoguard/internal/database"
	"example.com/ecoguard/internal/models"

	"gorm.io/gorm"
)

// Repository provides data access methods
type Repository interface {
	// Transaction support
	WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error

	// SensorReading operations
	CreateSensorReading(ctx context.Context, reading *models.SensorReading) error
	ListSensorReadings(ctx context.Context, limit int) ([]*models.SensorReading, error)
	LatestSensorReading(ctx context.Context) (*models.SensorReading, error)
	ListSensorReadingsBetween(ctx context.Context, start, end time.Time) ([]*models.SensorReading, error)
	CountSensorReadings(ctx context.Context) (int64, error)

	// Threshold operations
	ListThresholds(ctx context.Context) ([]*models.Threshold, error)
	FindThresholdByID(ctx context.Context, id uint) (*models.Threshold, error)
	FindThresholdByMetric(ctx context.Context, metric models.MetricType) (*models.Threshold, error)
	// LockThreshold reads the row for update. Only meaningful inside WithTransaction.
	LockThreshold(ctx context.Context, id uint) (*models.Threshold, error)
	SaveThreshold(ctx context.Context, threshold *models.Threshold) error
	DeleteThreshold(ctx context.Context, id uint) error

	// ThresholdAudit operations
	CreateThresholdAudit(ctx context.Context, audit *models.ThresholdAudit) error
	ListThresholdAudits(ctx context.Context, limit int) ([]*models.ThresholdAudit, error)

	// Alert operations
	CreateAlert(ctx context.Context, alert *models.Alert) error
	FindAlertByID(ctx context.Context, id uint) (*models.Alert, error)
	ListAlerts(ctx context.Context, limit int) ([]*models.Alert, error)
	LatestAlert(ctx context.Context) (*models.Alert, error)
	AcknowledgeAlert(ctx context.Context, id uint) (*models.Alert, error)

	// DeviceCommand operations
	CreateCommand(ctx context.Context, cmd *models.DeviceCommand) error
	ListCommands(ctx context.Context) ([]*models.DeviceCommand, error)
	ListCommandsByDevice(ctx context.Context, deviceKey string) ([]*models.DeviceCommand, error)
	ListPendingCommands(ctx context.Context, deviceKey string) ([]*models.DeviceCommand, error)
	CommandHistory(ctx context.Context, deviceKey string, limit int) ([]*models.DeviceCommand, error)
	// LockCommand reads a command owned by deviceKey for update. A command owned by
	// another device is reported as ErrNotFound.
	LockCommand(ctx context.Context, id uint, deviceKey string) (*models.DeviceCommand, error)
	SaveCommand(ctx context.Context, cmd *models.DeviceCommand) error
	LatestCommandOfType(ctx context.Context, commandType models.CommandType) (*models.DeviceCommand, error)

	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// repo is the gorm implementation of the Repository interface
type repo struct {
	db database.DB
}

// Helper type for transaction support
type dbWrapper struct {
	db *gorm.DB
}

func (w *dbWrapper) DB() (*gorm.DB, error) {
	return w.db, nil
}

func (w *dbWrapper) Close() error {
	return nil
}

// NewRepository creates a new repository instance
func NewRepository(db database.DB) Repository {
	return &repo{
		db: db,
	}
}

// WithTransaction executes the given function within a database transaction
func (r *repo) WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return err
	}

	return gormDB.Transaction(func(tx *gorm.DB) error {
		txRepo := &repo{
			db: &dbWrapper{db: tx},
		}
		return fn(ctx, txRepo)
	})
}

// conn returns the gorm handle bound to ctx
func (r *repo) conn(ctx context.Context) (*gorm.DB, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}
	return gormDB.WithContext(ctx), nil
}

// newestFirst orders rows by a timestamp column, breaking ties by id
func newestFirst(column string) string {
	return column + " DESC, id DESC"
}

func oldestFirst(column string) string {
	return column + " ASC, id ASC"
}

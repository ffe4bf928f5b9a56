package repository

import (
	"context"
	"time"

	"example.com/ecoguard/internal/models"
)

func (r *repo) CreateSensorReading(ctx context.Context, reading *models.SensorReading) error {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return gormDB.Create(reading).Error
}

// ListSensorReadings returns the newest readings first. A non-positive limit returns all.
func (r *repo) ListSensorReadings(ctx context.Context, limit int) ([]*models.SensorReading, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	q := gormDB.Order(newestFirst("timestamp"))
	if limit > 0 {
		q = q.Limit(limit)
	}

	var readings []*models.SensorReading
	if err := q.Find(&readings).Error; err != nil {
		return nil, err
	}
	return readings, nil
}

func (r *repo) LatestSensorReading(ctx context.Context) (*models.SensorReading, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var reading models.SensorReading
	if err := gormDB.Order(newestFirst("timestamp")).Take(&reading).Error; err != nil {
		return nil, translate(err)
	}
	return &reading, nil
}

// ListSensorReadingsBetween returns readings in [start, end], oldest first
func (r *repo) ListSensorReadingsBetween(ctx context.Context, start, end time.Time) ([]*models.SensorReading, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var readings []*models.SensorReading
	err = gormDB.
		Where("timestamp >= ? AND timestamp <= ?", start, end).
		Order(oldestFirst("timestamp")).
		Find(&readings).Error
	if err != nil {
		return nil, err
	}
	return readings, nil
}

func (r *repo) CountSensorReadings(ctx context.Context) (int64, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := gormDB.Model(&models.SensorReading{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

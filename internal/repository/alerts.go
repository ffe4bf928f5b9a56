package repository

import (
	"context"

	"example.com/ecoguard/internal/models"

	"gorm.io/gorm"
)

func (r *repo) CreateAlert(ctx context.Context, alert *models.Alert) error {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return gormDB.Create(alert).Error
}

func (r *repo) FindAlertByID(ctx context.Context, id uint) (*models.Alert, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var alert models.Alert
	if err := gormDB.First(&alert, id).Error; err != nil {
		return nil, translate(err)
	}
	return &alert, nil
}

// ListAlerts returns the newest alerts first. A non-positive limit returns all.
func (r *repo) ListAlerts(ctx context.Context, limit int) ([]*models.Alert, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	q := gormDB.Order(newestFirst("timestamp"))
	if limit > 0 {
		q = q.Limit(limit)
	}

	var alerts []*models.Alert
	if err := q.Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *repo) LatestAlert(ctx context.Context) (*models.Alert, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var alert models.Alert
	if err := gormDB.Order(newestFirst("timestamp")).Take(&alert).Error; err != nil {
		return nil, translate(err)
	}
	return &alert, nil
}

// AcknowledgeAlert sets the acknowledged flag. Acknowledging twice is not an error.
func (r *repo) AcknowledgeAlert(ctx context.Context, id uint) (*models.Alert, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var alert models.Alert
	err = gormDB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Alert{}).Where("id = ?", id).Update("acknowledged", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.First(&alert, id).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &alert, nil
}

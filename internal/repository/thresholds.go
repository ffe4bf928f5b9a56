package repository

import (
	"context"

	"example.com/ecoguard/internal/models"

	"gorm.io/gorm/clause"
)

// ListThresholds returns every threshold in id order
func (r *repo) ListThresholds(ctx context.Context) ([]*models.Threshold, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var thresholds []*models.Threshold
	if err := gormDB.Order("id ASC").Find(&thresholds).Error; err != nil {
		return nil, err
	}
	return thresholds, nil
}

func (r *repo) FindThresholdByID(ctx context.Context, id uint) (*models.Threshold, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var threshold models.Threshold
	if err := gormDB.First(&threshold, id).Error; err != nil {
		return nil, translate(err)
	}
	return &threshold, nil
}

func (r *repo) FindThresholdByMetric(ctx context.Context, metric models.MetricType) (*models.Threshold, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var threshold models.Threshold
	if err := gormDB.Where("metric_type = ?", metric).First(&threshold).Error; err != nil {
		return nil, translate(err)
	}
	return &threshold, nil
}

func (r *repo) LockThreshold(ctx context.Context, id uint) (*models.Threshold, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var threshold models.Threshold
	err = gormDB.Clauses(clause.Locking{Strength: "UPDATE"}).First(&threshold, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &threshold, nil
}

// SaveThreshold inserts a new threshold or updates an existing one. A second
// threshold for the same metric is rejected by the unique index.
func (r *repo) SaveThreshold(ctx context.Context, threshold *models.Threshold) error {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return translate(gormDB.Save(threshold).Error)
}

func (r *repo) DeleteThreshold(ctx context.Context, id uint) error {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return err
	}

	res := gormDB.Delete(&models.Threshold{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) CreateThresholdAudit(ctx context.Context, audit *models.ThresholdAudit) error {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return gormDB.Create(audit).Error
}

// ListThresholdAudits returns the newest audit entries first
func (r *repo) ListThresholdAudits(ctx context.Context, limit int) ([]*models.ThresholdAudit, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	q := gormDB.Order(newestFirst("updated_at"))
	if limit > 0 {
		q = q.Limit(limit)
	}

	var audits []*models.ThresholdAudit
	if err := q.Find(&audits).Error; err != nil {
		return nil, err
	}
	return audits, nil
}

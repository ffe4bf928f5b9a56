package service

import (
	"context"
	"time"

	"example.com/ecoguard/internal/messaging"
	"example.com/ecoguard/internal/metrics"
	"example.com/ecoguard/internal/models"
	"example.com/ecoguard/internal/repository"

	"github.com/shopspring/decimal"
)

// emitAlert records a THRESHOLD alert for a breaching metric value
func emitAlert(ctx context.Context, repo repository.Repository, metric models.MetricType, value decimal.Decimal, ts time.Time) (*models.Alert, error) {
	alert := &models.Alert{
		AlertType:    models.AlertTypeThreshold,
		MetricType:   metric,
		Value:        decimal.NewNullDecimal(value),
		Timestamp:    ts,
		Acknowledged: false,
	}
	if err := repo.CreateAlert(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// publishAlerts counts and announces alerts once they are committed
func (s *service) publishAlerts(alerts []*models.Alert) {
	for _, alert := range alerts {
		metrics.AlertsEmittedTotal.WithLabelValues(alert.MetricType.String()).Inc()
		s.notifier.Notify(messaging.NewEvent(messaging.EventAlertCreated, s.deviceKey, alert))
	}
}

// ListAlerts returns the newest alerts first. A non-positive limit returns all.
func (s *service) ListAlerts(ctx context.Context, limit int) ([]*models.Alert, error) {
	return s.repo.ListAlerts(ctx, limit)
}

func (s *service) GetAlert(ctx context.Context, id uint) (*models.Alert, error) {
	alert, err := s.repo.FindAlertByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "alert", id)
	}
	return alert, nil
}

// AcknowledgeAlert marks an alert as seen. Acknowledging it again succeeds and changes nothing.
func (s *service) AcknowledgeAlert(ctx context.Context, id uint) (*models.Alert, error) {
	alert, err := s.repo.AcknowledgeAlert(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "alert", id)
	}
	return alert, nil
}

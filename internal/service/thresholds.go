package service

import (
	"context"
	"encoding/json"
	"errors"

	"example.com/ecoguard/internal/messaging"
	"example.com/ecoguard/internal/metrics"
	"example.com/ecoguard/internal/models"
	"example.com/ecoguard/internal/repository"
	"example.com/ecoguard/internal/session"

	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	deviceThresholdsCacheKey = "ecoguard:thresholds:device"
	defaultAuditActor        = "admin"
)

// DeviceThreshold is the compact threshold form the device downloads
type DeviceThreshold struct {
	MetricType string          `json:"metricType"`
	MinValue   decimal.Decimal `json:"minValue"`
	MaxValue   decimal.Decimal `json:"maxValue"`
}

func (s *service) ListThresholds(ctx context.Context) ([]*models.Threshold, error) {
	return s.repo.ListThresholds(ctx)
}

func (s *service) GetThreshold(ctx context.Context, id uint) (*models.Threshold, error) {
	th, err := s.repo.FindThresholdByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "threshold", id)
	}
	return th, nil
}

func (s *service) GetThresholdByMetric(ctx context.Context, metric models.MetricType) (*models.Threshold, error) {
	if !metric.Valid() {
		return nil, validationf("unknown metric type %q", metric)
	}
	th, err := s.repo.FindThresholdByMetric(ctx, metric)
	if err != nil {
		return nil, notFoundOr(err, "threshold", metric)
	}
	return th, nil
}

// DeviceThresholds serves the device's threshold download, from the cache when possible
func (s *service) DeviceThresholds(ctx context.Context) ([]DeviceThreshold, error) {
	if raw, err := s.cache.Get(ctx, deviceThresholdsCacheKey); err == nil {
		var cached []DeviceThreshold
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached, nil
		}
		s.log.Warn("Discarding unreadable threshold snapshot")
	}

	list, err := s.repo.ListThresholds(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]DeviceThreshold, 0, len(list))
	for _, th := range list {
		out = append(out, DeviceThreshold{
			MetricType: th.MetricType.String(),
			MinValue:   th.MinValue,
			MaxValue:   th.MaxValue,
		})
	}

	if data, err := json.Marshal(out); err == nil {
		if err := s.cache.Set(ctx, deviceThresholdsCacheKey, string(data), s.thresholdCacheTTL); err != nil {
			s.log.WithError(err).Debug("Failed to cache threshold snapshot")
		}
	}
	return out, nil
}

// UpdateThreshold changes the bounds of threshold id. Omitted or null bounds are kept.
// The change, its audit entry and the device refresh command commit together.
func (s *service) UpdateThreshold(ctx context.Context, id uint, update models.ThresholdUpdate) (*models.Threshold, error) {
	var (
		result  *models.Threshold
		refresh *models.DeviceCommand
	)
	err := s.repo.WithTransaction(ctx, func(txCtx context.Context, tx repository.Repository) error {
		th, err := tx.LockThreshold(txCtx, id)
		if err != nil {
			return notFoundOr(err, "threshold", id)
		}
		result, refresh, err = s.applyThreshold(txCtx, tx, th, update)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "update threshold %d", id)
	}

	s.afterThresholdChange(ctx, refresh)
	return result, nil
}

// SetThreshold changes the bounds of the threshold for metric, creating it when
// both bounds are supplied and none exists yet.
func (s *service) SetThreshold(ctx context.Context, metric models.MetricType, update models.ThresholdUpdate) (*models.Threshold, error) {
	if !metric.Valid() {
		return nil, validationf("unknown metric type %q", metric)
	}

	var (
		result  *models.Threshold
		refresh *models.DeviceCommand
	)
	err := s.repo.WithTransaction(ctx, func(txCtx context.Context, tx repository.Repository) error {
		th, err := tx.FindThresholdByMetric(txCtx, metric)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			if !update.MinValue.Present() || !update.MaxValue.Present() {
				return validationf("minValue and maxValue are required to create the %s threshold", metric)
			}
			th = &models.Threshold{MetricType: metric}
		case err != nil:
			return err
		default:
			if th, err = tx.LockThreshold(txCtx, th.ID); err != nil {
				return notFoundOr(err, "threshold", metric)
			}
		}
		result, refresh, err = s.applyThreshold(txCtx, tx, th, update)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "set %s threshold", metric)
	}

	s.afterThresholdChange(ctx, refresh)
	return result, nil
}

// applyThreshold writes the new bounds, appends the audit entry and queues the
// REFRESH_CONFIG command. It must run inside a transaction.
func (s *service) applyThreshold(ctx context.Context, tx repository.Repository, th *models.Threshold, update models.ThresholdUpdate) (*models.Threshold, *models.DeviceCommand, error) {
	if update.MinValue.Present() {
		th.MinValue = update.MinValue.Value
	}
	if update.MaxValue.Present() {
		th.MaxValue = update.MaxValue.Value
	}
	if th.MinValue.GreaterThan(th.MaxValue) {
		s.log.WithFields(logrus.Fields{
			"metric_type": th.MetricType,
			"min_value":   th.MinValue.String(),
			"max_value":   th.MaxValue.String(),
		}).Warn("Threshold bounds are inverted, every reading will breach")
	}

	if err := tx.SaveThreshold(ctx, th); err != nil {
		return nil, nil, notFoundOr(err, "threshold", th.MetricType)
	}

	now := s.now()
	audit := &models.ThresholdAudit{
		ThresholdID: th.ID,
		MetricType:  th.MetricType,
		MinValue:    th.MinValue,
		MaxValue:    th.MaxValue,
		UpdatedBy:   session.Username(ctx, defaultAuditActor),
		UpdatedAt:   now,
	}
	if err := tx.CreateThresholdAudit(ctx, audit); err != nil {
		return nil, nil, pkgerrors.Wrap(err, "write threshold audit")
	}

	refresh := &models.DeviceCommand{
		DeviceKey:   s.deviceKey,
		CommandType: models.CommandRefreshConfig,
		CreatedAt:   now,
	}
	if err := tx.CreateCommand(ctx, refresh); err != nil {
		return nil, nil, pkgerrors.Wrap(err, "queue refresh command")
	}

	return th, refresh, nil
}

func (s *service) afterThresholdChange(ctx context.Context, refresh *models.DeviceCommand) {
	s.invalidateThresholdCache(ctx)
	if refresh != nil {
		metrics.CommandsIssuedTotal.WithLabelValues(string(refresh.CommandType)).Inc()
		s.notifier.Notify(messaging.NewEvent(messaging.EventCommandIssued, refresh.DeviceKey, refresh))
	}
}

func (s *service) invalidateThresholdCache(ctx context.Context) {
	if err := s.cache.Delete(ctx, deviceThresholdsCacheKey); err != nil {
		s.log.WithError(err).Warn("Failed to invalidate threshold snapshot")
	}
}

// DeleteThreshold removes a threshold. Later readings skip that metric.
func (s *service) DeleteThreshold(ctx context.Context, id uint) error {
	defer s.invalidateThresholdCache(ctx)

	if err := s.repo.DeleteThreshold(ctx, id); err != nil {
		return notFoundOr(err, "threshold", id)
	}
	return nil
}

// ThresholdAudits returns the newest audit entries. A non-positive limit uses the history limit.
func (s *service) ThresholdAudits(ctx context.Context, limit int) ([]*models.ThresholdAudit, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	return s.repo.ListThresholdAudits(ctx, limit)
}

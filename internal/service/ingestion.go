package service

import (
	"context"
	"time"

	"example.com/ecoguard/internal/metrics"
	"example.com/ecoguard/internal/models"
	"example.com/ecoguard/internal/repository"

	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Client-facing rejection messages for readings
const (
	msgPayloadRequired = "Payload required"
	msgMetricRequired  = "At least one metric (temperature, humidity, co2Level, lightLevel) required"
)

// readingDecimalLimit bounds temperature and humidity to what a numeric(5,2) column stores
var readingDecimalLimit = decimal.NewFromInt(1000)

// ReadingInput is the payload a device posts. Every field is optional.
type ReadingInput struct {
	Temperature decimal.NullDecimal `json:"temperature"`
	Humidity    decimal.NullDecimal `json:"humidity"`
	CO2Level    *int64              `json:"co2Level"`
	LightLevel  *int64              `json:"lightLevel"`
	Timestamp   *string             `json:"timestamp"`
}

// IngestResult identifies the stored reading and the alerts it raised,
// in evaluation order.
type IngestResult struct {
	SensorDataID  uint   `json:"sensorDataId"`
	AlertsCreated []uint `json:"alertsCreated"`
}

// IngestReading validates and stores a reading, then raises one alert per
// metric outside its threshold. Reading and alerts commit together.
func (s *service) IngestReading(ctx context.Context, in *ReadingInput) (*IngestResult, error) {
	if in == nil {
		metrics.ReadingsRejectedTotal.WithLabelValues("payload_missing").Inc()
		return nil, validationf(msgPayloadRequired)
	}

	reading := &models.SensorReading{
		Temperature: in.Temperature,
		Humidity:    in.Humidity,
		CO2Level:    in.CO2Level,
		LightLevel:  in.LightLevel,
	}
	if !reading.HasMetric() {
		metrics.ReadingsRejectedTotal.WithLabelValues("no_metric").Inc()
		return nil, validationf(msgMetricRequired)
	}
	if err := checkDecimalRange("temperature", in.Temperature); err != nil {
		return nil, err
	}
	if err := checkDecimalRange("humidity", in.Humidity); err != nil {
		return nil, err
	}

	reading.Timestamp = s.now()
	if in.Timestamp != nil && *in.Timestamp != "" {
		ts, err := models.ParseTimestamp(*in.Timestamp)
		if err != nil {
			metrics.ReadingsRejectedTotal.WithLabelValues("bad_timestamp").Inc()
			return nil, validationf("timestamp must be an ISO-8601 date-time")
		}
		reading.Timestamp = ts
	}

	var alerts []*models.Alert
	err := s.repo.WithTransaction(ctx, func(txCtx context.Context, tx repository.Repository) error {
		if err := tx.CreateSensorReading(txCtx, reading); err != nil {
			return pkgerrors.Wrap(err, "store reading")
		}

		thresholds, err := tx.ListThresholds(txCtx)
		if err != nil {
			return pkgerrors.Wrap(err, "load thresholds")
		}

		alerts, err = s.evaluateReading(txCtx, tx, reading, indexThresholds(thresholds))
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.ReadingsIngestedTotal.Inc()
	s.publishAlerts(alerts)

	result := &IngestResult{
		SensorDataID:  reading.ID,
		AlertsCreated: make([]uint, 0, len(alerts)),
	}
	for _, a := range alerts {
		result.AlertsCreated = append(result.AlertsCreated, a.ID)
	}

	s.log.WithFields(logrus.Fields{
		"reading_id": reading.ID,
		"alerts":     len(alerts),
	}).Debug("Reading ingested")

	return result, nil
}

func checkDecimalRange(name string, v decimal.NullDecimal) error {
	if v.Valid && v.Decimal.Round(2).Abs().GreaterThanOrEqual(readingDecimalLimit) {
		metrics.ReadingsRejectedTotal.WithLabelValues("out_of_range").Inc()
		return validationf("%s %s is out of range", name, v.Decimal)
	}
	return nil
}

// evaluateReading checks each metric in evaluation order and emits an alert per breach
func (s *service) evaluateReading(ctx context.Context, tx repository.Repository, reading *models.SensorReading, thresholds thresholdIndex) ([]*models.Alert, error) {
	var alerts []*models.Alert
	now := s.now()

	for _, metric := range models.AllMetrics {
		value, present := reading.MetricValue(metric)
		if Evaluate(thresholds[metric], value, present) != Breach {
			continue
		}

		alert, err := emitAlert(ctx, tx, metric, value, now)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "emit %s alert", metric)
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// ListReadings returns the newest readings first. A non-positive limit returns all.
func (s *service) ListReadings(ctx context.Context, limit int) ([]*models.SensorReading, error) {
	return s.repo.ListSensorReadings(ctx, limit)
}

func (s *service) LatestReading(ctx context.Context) (*models.SensorReading, error) {
	r, err := s.repo.LatestSensorReading(ctx)
	if err != nil {
		return nil, notFoundOr(err, "sensor reading", "latest")
	}
	return r, nil
}

// ReadingsBetween returns readings with start <= timestamp <= end, oldest first
func (s *service) ReadingsBetween(ctx context.Context, start, end time.Time) ([]*models.SensorReading, error) {
	if start.After(end) {
		return nil, validationf("start must not be after end")
	}
	return s.repo.ListSensorReadingsBetween(ctx, start, end)
}

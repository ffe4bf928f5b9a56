package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"example.com/ecoguard/internal/messaging"
	"example.com/ecoguard/internal/models"
	"example.com/ecoguard/internal/repository"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Health sub-status values
const (
	StatusUp       = "UP"
	StatusDown     = "DOWN"
	StatusDisabled = "DISABLED"
)

// DeviceStatus is the admin dashboard's summary of the device
type DeviceStatus struct {
	LastReadingTime      *time.Time          `json:"lastReadingTime"`
	Temperature          decimal.NullDecimal `json:"temperature"`
	Humidity             decimal.NullDecimal `json:"humidity"`
	CO2                  *int64              `json:"co2"`
	LightLevel           *int64              `json:"lightLevel"`
	LastAlertTime        *time.Time          `json:"lastAlertTime"`
	LastAlertType        *models.AlertType   `json:"lastAlertType"`
	LastAdminMessage     *string             `json:"lastAdminMessage"`
	Online               bool                `json:"online"`
	SecondsSinceLastSeen *int64              `json:"secondsSinceLastSeen"`
	// Errors names the sources that could not be read, keyed by source
	Errors map[string]string `json:"errors,omitempty"`
}

// DeviceStatus aggregates the latest reading, alert and display message. A source
// that fails to load is reported in Errors instead of failing the whole status.
func (s *service) DeviceStatus(ctx context.Context) (*DeviceStatus, error) {
	var (
		reading *models.SensorReading
		alert   *models.Alert
		message *models.DeviceCommand
	)
	var readErr, alertErr, msgErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reading, readErr = s.repo.LatestSensorReading(gctx)
		return nil
	})
	g.Go(func() error {
		alert, alertErr = s.repo.LatestAlert(gctx)
		return nil
	})
	g.Go(func() error {
		message, msgErr = s.repo.LatestCommandOfType(gctx, models.CommandDisplayMessage)
		return nil
	})
	_ = g.Wait()

	status := &DeviceStatus{}
	record := func(source string, err error) bool {
		if err == nil {
			return true
		}
		if !errors.Is(err, repository.ErrNotFound) {
			if status.Errors == nil {
				status.Errors = make(map[string]string)
			}
			status.Errors[source] = err.Error()
			s.log.WithError(err).WithField("source", source).Warn("Device status source unavailable")
		}
		return false
	}

	if record("sensorData", readErr) && reading != nil {
		ts := reading.Timestamp
		status.LastReadingTime = &ts
		status.Temperature = reading.Temperature
		status.Humidity = reading.Humidity
		status.CO2 = reading.CO2Level
		status.LightLevel = reading.LightLevel

		secs := s.secondsSince(ts)
		status.SecondsSinceLastSeen = &secs
		status.Online = s.isOnline(secs)
	}
	if record("alerts", alertErr) && alert != nil {
		ts := alert.Timestamp
		at := alert.AlertType
		status.LastAlertTime = &ts
		status.LastAlertType = &at
	}
	if record("commands", msgErr) && message != nil {
		status.LastAdminMessage = message.Parameters
	}

	return status, nil
}

// secondsSince returns whole seconds elapsed since ts, never negative
func (s *service) secondsSince(ts time.Time) int64 {
	secs := int64(s.now().Sub(ts) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}

func (s *service) isOnline(secondsSinceLastSeen int64) bool {
	return secondsSinceLastSeen <= int64(s.onlineThreshold/time.Second)
}

// livenessState remembers the last observed online flag
type livenessState struct {
	mu     sync.Mutex
	known  bool
	online bool
}

// observe records online and reports whether it differs from the previous observation.
// The first observation is never a transition.
func (l *livenessState) observe(online bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	changed := l.known && l.online != online
	l.known = true
	l.online = online
	return changed
}

// CheckLiveness evaluates whether the device is online and publishes
// device.online or device.offline when that changed since the last check.
func (s *service) CheckLiveness(ctx context.Context) (bool, error) {
	online := false
	var since *int64

	reading, err := s.repo.LatestSensorReading(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return false, err
	default:
		secs := s.secondsSince(reading.Timestamp)
		since = &secs
		online = s.isOnline(secs)
	}

	if s.liveness.observe(online) {
		eventType := messaging.EventDeviceOffline
		if online {
			eventType = messaging.EventDeviceOnline
		}
		s.notifier.Notify(messaging.NewEvent(eventType, s.deviceKey, map[string]interface{}{
			"online":               online,
			"secondsSinceLastSeen": since,
		}))
		s.log.WithField("online", online).Info("Device liveness changed")
	}
	return online, nil
}

// SubStatus is the health of one dependency
type SubStatus struct {
	Status          string `json:"status"`
	SensorDataCount *int64 `json:"sensorDataCount,omitempty"`
	Error           string `json:"error,omitempty"`
}

// HealthReport is served by the health endpoint. The service itself is always UP
// while it can answer; dependencies report their own status.
type HealthReport struct {
	Status string    `json:"status"`
	Time   string    `json:"time"`
	DB       SubStatus  `json:"db"`
	Cache    SubStatus  `json:"cache"`
	Notifier QueueStats `json:"notifier"`
}

func (s *service) Health(ctx context.Context) *HealthReport {
	report := &HealthReport{
		Status:   StatusUp,
		Time:     s.now().UTC().Format(time.RFC3339),
		Notifier: s.notifier.QueueStats(),
	}

	if count, err := s.repo.CountSensorReadings(ctx); err != nil {
		report.DB = SubStatus{Status: StatusDown, Error: err.Error()}
	} else {
		report.DB = SubStatus{Status: StatusUp, SensorDataCount: &count}
	}

	switch {
	case !s.cache.Enabled():
		report.Cache = SubStatus{Status: StatusDisabled}
	default:
		if err := s.cache.Ping(ctx); err != nil {
			report.Cache = SubStatus{Status: StatusDown, Error: err.Error()}
		} else {
			report.Cache = SubStatus{Status: StatusUp}
		}
	}

	return report
}

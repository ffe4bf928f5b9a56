package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"example.com/ecoguard/internal/cache"
	"example.com/ecoguard/internal/messaging"
	"example.com/ecoguard/internal/models"
	"example.com/ecoguard/internal/repository"
	"example.com/ecoguard/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func i64(v int64) *int64 { return &v }

func strp(s string) *string { return &s }

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceConfig{})
	assert.Error(t, err)

	_, err = NewService(ServiceConfig{
		Repository:      repository.NewMemoryRepository(),
		MessagingClient: &recordingBus{},
		Sessions:        session.NewMemoryStore(0),
	})
	assert.EqualError(t, err, "device key is required")
}

func TestIngestReadingBoundariesDoNotAlert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, temp := range []string{"10", "10.00", "30", "30.00", "20.5"} {
		res, err := env.svc.IngestReading(ctx, &ReadingInput{Temperature: dec(temp)})
		require.NoError(t, err, temp)
		assert.Empty(t, res.AlertsCreated, "temperature %s", temp)
		assert.NotNil(t, res.AlertsCreated)
	}

	res, err := env.svc.IngestReading(ctx, &ReadingInput{CO2Level: i64(1200), LightLevel: i64(0)})
	require.NoError(t, err)
	assert.Empty(t, res.AlertsCreated)

	alerts, err := env.svc.ListAlerts(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestIngestReadingJustOutsideBounds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.IngestReading(ctx, &ReadingInput{Temperature: dec("30.01")})
	require.NoError(t, err)
	require.Len(t, res.AlertsCreated, 1)

	res, err = env.svc.IngestReading(ctx, &ReadingInput{Temperature: dec("9.99")})
	require.NoError(t, err)
	require.Len(t, res.AlertsCreated, 1)

	alert, err := env.svc.GetAlert(ctx, res.AlertsCreated[0])
	require.NoError(t, err)
	assert.Equal(t, models.MetricTemp, alert.MetricType)
	assert.Equal(t, models.AlertTypeThreshold, alert.AlertType)
	assert.True(t, alert.Value.Decimal.Equal(decimal.RequireFromString("9.99")))
	assert.False(t, alert.Acknowledged)
}

func TestIngestReadingRequiresAMetric(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.IngestReading(ctx, &ReadingInput{Timestamp: strp("2025-03-01T10:00:00Z")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, msgMetricRequired, err.Error())

	_, err = env.svc.IngestReading(ctx, nil)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, msgPayloadRequired, err.Error())

	count, err := env.repo.CountSensorReadings(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIngestReadingRejectsUnstorableDecimals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, in := range []*ReadingInput{
		{Temperature: dec("1000")},
		{Temperature: dec("-1000")},
		{Humidity: dec("999.995")},
		{Humidity: dec("50"), Temperature: dec("12345.6")},
	} {
		_, err := env.svc.IngestReading(ctx, in)
		assert.True(t, errors.Is(err, ErrValidation), "%+v", in)
	}

	count, err := env.repo.CountSensorReadings(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = env.svc.IngestReading(ctx, &ReadingInput{Temperature: dec("999.99"), Humidity: dec("-999.99")})
	assert.NoError(t, err)
}

func TestIngestReadingSingleMetricBreach(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.IngestReading(ctx, &ReadingInput{Temperature: dec("35")})
	require.NoError(t, err)
	assert.NotZero(t, res.SensorDataID)
	require.Len(t, res.AlertsCreated, 1)

	alerts, err := env.svc.ListAlerts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.MetricTemp, alerts[0].MetricType)

	env.flush()
	assert.Equal(t, []string{messaging.EventAlertCreated}, env.bus.Types())
}

func TestIngestReadingAlertsFollowEvaluationOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.IngestReading(ctx, &ReadingInput{
		Temperature: dec("35"),
		Humidity:    dec("50"),
		CO2Level:    i64(1500),
		LightLevel:  i64(2000),
	})
	require.NoError(t, err)
	require.Len(t, res.AlertsCreated, 3)

	var got []models.MetricType
	for _, id := range res.AlertsCreated {
		a, err := env.svc.GetAlert(ctx, id)
		require.NoError(t, err)
		got = append(got, a.MetricType)
	}
	assert.Equal(t, []models.MetricType{models.MetricTemp, models.MetricCO2, models.MetricLight}, got)
}

func TestIngestReadingTimestamp(t *testing.T) {
	pinLocal(t, time.UTC)
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.IngestReading(ctx, &ReadingInput{Temperature: dec("20"), Timestamp: strp("2025-02-28T08:30:00")})
	require.NoError(t, err)

	latest, err := env.svc.LatestReading(ctx)
	require.NoError(t, err)
	assert.True(t, latest.Timestamp.Equal(time.Date(2025, 2, 28, 8, 30, 0, 0, time.UTC)))

	_, err = env.svc.IngestReading(ctx, &ReadingInput{Temperature: dec("20"), Timestamp: strp("yesterday")})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = env.svc.IngestReading(ctx, &ReadingInput{Humidity: dec("40")})
	require.NoError(t, err)
	latest, err = env.svc.LatestReading(ctx)
	require.NoError(t, err)
	assert.True(t, latest.Timestamp.Equal(env.clock.Now()))
}

func TestReadingsBetween(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	base := env.clock.Now()
	for i := 0; i < 5; i++ {
		ts := base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339)
		_, err := env.svc.IngestReading(ctx, &ReadingInput{LightLevel: i64(int64(i)), Timestamp: &ts})
		require.NoError(t, err)
	}

	list, err := env.svc.ReadingsBetween(ctx, base.Add(time.Minute), base.Add(3*time.Minute))
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, int64(1), *list[0].LightLevel)
	assert.Equal(t, int64(3), *list[2].LightLevel)

	_, err = env.svc.ReadingsBetween(ctx, base.Add(time.Hour), base)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = env.svc.LatestReading(ctx)
	require.NoError(t, err)
}

func TestDeletedThresholdSkipsMetric(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	th, err := env.svc.GetThresholdByMetric(ctx, models.MetricTemp)
	require.NoError(t, err)
	require.NoError(t, env.svc.DeleteThreshold(ctx, th.ID))

	res, err := env.svc.IngestReading(ctx, &ReadingInput{Temperature: dec("99")})
	require.NoError(t, err)
	assert.Empty(t, res.AlertsCreated)

	err = env.svc.DeleteThreshold(ctx, th.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUpdateThresholdWritesAuditAndRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	th, err := env.svc.GetThresholdByMetric(ctx, models.MetricHumidity)
	require.NoError(t, err)

	sess := &session.Session{Token: "t", Username: "erdem", Role: models.RoleAdmin}
	updated, err := env.svc.UpdateThreshold(session.NewContext(ctx, sess), th.ID, models.ThresholdUpdate{
		MaxValue: models.SomeDecimal(decimal.NewFromInt(80)),
	})
	require.NoError(t, err)
	assert.True(t, updated.MinValue.Equal(decimal.NewFromInt(30)), "omitted bound is kept")
	assert.True(t, updated.MaxValue.Equal(decimal.NewFromInt(80)))

	audits, err := env.svc.ThresholdAudits(ctx, 0)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, "erdem", audits[0].UpdatedBy)
	assert.Equal(t, th.ID, audits[0].ThresholdID)
	assert.True(t, audits[0].MaxValue.Equal(decimal.NewFromInt(80)))

	pending, err := env.svc.PendingCommands(ctx, testDeviceKey)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.CommandRefreshConfig, pending[0].CommandType)

	env.flush()
	assert.Equal(t, []string{messaging.EventCommandIssued}, env.bus.Types())
}

func TestUpdateThresholdDefaultsAuditActor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	th, err := env.svc.GetThresholdByMetric(ctx, models.MetricCO2)
	require.NoError(t, err)

	_, err = env.svc.UpdateThreshold(ctx, th.ID, models.ThresholdUpdate{MinValue: models.SomeDecimal(decimal.NewFromInt(350))})
	require.NoError(t, err)

	audits, err := env.svc.ThresholdAudits(ctx, 5)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, "admin", audits[0].UpdatedBy)
}

func TestUpdateThresholdAppliesSuppliedBoundsOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	th, err := env.svc.GetThresholdByMetric(ctx, models.MetricTemp)
	require.NoError(t, err)

	tests := []struct {
		name    string
		update  models.ThresholdUpdate
		wantMin int64
		wantMax int64
	}{
		{"min crosses max", models.ThresholdUpdate{MinValue: models.SomeDecimal(decimal.NewFromInt(40))}, 40, 30},
		{"max crosses back", models.ThresholdUpdate{MaxValue: models.SomeDecimal(decimal.NewFromInt(50))}, 40, 50},
		{"explicit null is ignored", models.ThresholdUpdate{MinValue: models.OptionalDecimal{Set: true, Null: true}}, 40, 50},
		{"empty update", models.ThresholdUpdate{}, 40, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.svc.UpdateThreshold(ctx, th.ID, tt.update)
			require.NoError(t, err)
			assert.True(t, got.MinValue.Equal(decimal.NewFromInt(tt.wantMin)), "min %s", got.MinValue)
			assert.True(t, got.MaxValue.Equal(decimal.NewFromInt(tt.wantMax)), "max %s", got.MaxValue)
		})
	}

	audits, err := env.svc.ThresholdAudits(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, audits, len(tests))

	pending, err := env.svc.PendingCommands(ctx, testDeviceKey)
	require.NoError(t, err)
	assert.Len(t, pending, len(tests))
	for _, cmd := range pending {
		assert.Equal(t, models.CommandRefreshConfig, cmd.CommandType)
	}
}

func TestUpdateUnknownThreshold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.UpdateThreshold(ctx, 999, models.ThresholdUpdate{MinValue: models.SomeDecimal(decimal.NewFromInt(1))})
	assert.True(t, errors.Is(err, ErrNotFound))

	audits, err := env.svc.ThresholdAudits(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, audits)

	pending, err := env.svc.PendingCommands(ctx, testDeviceKey)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSetThresholdByMetric(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	th, err := env.svc.GetThresholdByMetric(ctx, models.MetricLight)
	require.NoError(t, err)
	require.NoError(t, env.svc.DeleteThreshold(ctx, th.ID))

	_, err = env.svc.SetThreshold(ctx, models.MetricLight, models.ThresholdUpdate{MaxValue: models.SomeDecimal(decimal.NewFromInt(500))})
	assert.True(t, errors.Is(err, ErrValidation), "creation needs both bounds")

	created, err := env.svc.SetThreshold(ctx, models.MetricLight, models.ThresholdUpdate{
		MinValue: models.SomeDecimal(decimal.NewFromInt(5)),
		MaxValue: models.SomeDecimal(decimal.NewFromInt(500)),
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	updated, err := env.svc.SetThreshold(ctx, models.MetricLight, models.ThresholdUpdate{MaxValue: models.SomeDecimal(decimal.NewFromInt(600))})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.True(t, updated.MinValue.Equal(decimal.NewFromInt(5)))

	_, err = env.svc.SetThreshold(ctx, models.MetricType("NOISE"), models.ThresholdUpdate{})
	assert.True(t, errors.Is(err, ErrValidation))

	audits, err := env.svc.ThresholdAudits(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, audits, 2)
}

func TestDeviceThresholdsCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	env := newTestEnv(t, withCache(rc))
	ctx := context.Background()

	list, err := env.svc.DeviceThresholds(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.True(t, mr.Exists(deviceThresholdsCacheKey))

	th, err := env.svc.GetThresholdByMetric(ctx, models.MetricTemp)
	require.NoError(t, err)
	_, err = env.svc.UpdateThreshold(ctx, th.ID, models.ThresholdUpdate{MaxValue: models.SomeDecimal(decimal.NewFromInt(28))})
	require.NoError(t, err)
	assert.False(t, mr.Exists(deviceThresholdsCacheKey), "update invalidates the snapshot")

	list, err = env.svc.DeviceThresholds(ctx)
	require.NoError(t, err)
	for _, dt := range list {
		if dt.MetricType == "TEMP" {
			assert.True(t, dt.MaxValue.Equal(decimal.NewFromInt(28)))
		}
	}
}

func TestPendingCommandsExcludeExecuted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.IssueCommand(ctx, CommandInput{DeviceKey: testDeviceKey, CommandType: "SET_LED_COLOR", Parameters: strp("#ff0000")})
	require.NoError(t, err)
	env.clock.Advance(time.Second)
	second, err := env.svc.IssueCommand(ctx, CommandInput{DeviceKey: testDeviceKey, CommandType: "DISPLAY_MESSAGE", Parameters: strp("hello")})
	require.NoError(t, err)

	pending, err := env.svc.PendingCommands(ctx, testDeviceKey)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID, "oldest first")
	assert.Equal(t, models.CommandPending, pending[0].Status())

	acked, err := env.svc.AcknowledgeCommand(ctx, testDeviceKey, first.ID)
	require.NoError(t, err)
	assert.True(t, acked.Executed)
	require.NotNil(t, acked.ExecutedAt)

	pending, err = env.svc.PendingCommands(ctx, testDeviceKey)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
	for _, c := range pending {
		assert.False(t, c.Executed)
	}
}

func TestAcknowledgeCommandOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cmd, err := env.svc.IssueCommand(ctx, CommandInput{DeviceKey: testDeviceKey, CommandType: "BLE_BROADCAST"})
	require.NoError(t, err)

	_, err = env.svc.AcknowledgeCommand(ctx, "other-device", cmd.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = env.svc.AcknowledgeCommand(ctx, testDeviceKey, 9999)
	assert.True(t, errors.Is(err, ErrNotFound))

	pending, err := env.svc.PendingCommands(ctx, testDeviceKey)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, cmd.ID, pending[0].ID)
}

func TestAcknowledgeCommandTwiceRestamps(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cmd, err := env.svc.IssueCommand(ctx, CommandInput{DeviceKey: testDeviceKey, CommandType: "DISPLAY_MESSAGE", Parameters: strp("hi")})
	require.NoError(t, err)

	first, err := env.svc.AcknowledgeCommand(ctx, testDeviceKey, cmd.ID)
	require.NoError(t, err)
	env.clock.Advance(5 * time.Second)
	second, err := env.svc.AcknowledgeCommand(ctx, testDeviceKey, cmd.ID)
	require.NoError(t, err)

	assert.True(t, second.Executed)
	assert.Equal(t, 5*time.Second, second.ExecutedAt.Sub(*first.ExecutedAt))
}

func TestIssueCommandValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CommandInput
		msg  string
	}{
		{"missing device", CommandInput{CommandType: "BLE_BROADCAST"}, "deviceKey is required"},
		{"missing type", CommandInput{DeviceKey: testDeviceKey}, "commandType is required"},
		{"unknown type", CommandInput{DeviceKey: testDeviceKey, CommandType: "SELF_DESTRUCT"}, `unknown commandType "SELF_DESTRUCT"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.IssueCommand(ctx, tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Equal(t, tt.msg, err.Error())
		})
	}

	all, err := env.svc.ListCommands(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCommandHistoryIsCappedNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var ids []uint
	for i := 0; i < 12; i++ {
		cmd, err := env.svc.IssueCommand(ctx, CommandInput{DeviceKey: testDeviceKey, CommandType: "SET_LED_COLOR"})
		require.NoError(t, err)
		ids = append(ids, cmd.ID)
		env.clock.Advance(time.Second)
	}
	_, err := env.svc.AcknowledgeCommand(ctx, testDeviceKey, ids[11])
	require.NoError(t, err)

	history, err := env.svc.CommandHistory(ctx, testDeviceKey, 0)
	require.NoError(t, err)
	require.Len(t, history, 10)
	assert.Equal(t, ids[11], history[0].ID)
	assert.Equal(t, ids[2], history[9].ID)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].CreatedAt.After(history[i-1].CreatedAt))
	}

	byDevice, err := env.svc.ListCommandsByDevice(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, byDevice)
}

func TestAcknowledgeAlert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.IngestReading(ctx, &ReadingInput{Humidity: dec("95")})
	require.NoError(t, err)
	require.Len(t, res.AlertsCreated, 1)

	alert, err := env.svc.AcknowledgeAlert(ctx, res.AlertsCreated[0])
	require.NoError(t, err)
	assert.True(t, alert.Acknowledged)

	alert, err = env.svc.AcknowledgeAlert(ctx, res.AlertsCreated[0])
	require.NoError(t, err)
	assert.True(t, alert.Acknowledged)

	_, err = env.svc.AcknowledgeAlert(ctx, 404)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeviceStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	status, err := env.svc.DeviceStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.Online)
	assert.Nil(t, status.LastReadingTime)
	assert.Nil(t, status.SecondsSinceLastSeen)
	assert.Empty(t, status.Errors)

	_, err = env.svc.IngestReading(ctx, &ReadingInput{Temperature: dec("40"), CO2Level: i64(800)})
	require.NoError(t, err)
	_, err = env.svc.IssueCommand(ctx, CommandInput{DeviceKey: testDeviceKey, CommandType: "DISPLAY_MESSAGE", Parameters: strp("Open a window")})
	require.NoError(t, err)

	env.clock.Advance(20 * time.Second)
	status, err = env.svc.DeviceStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.Online, "exactly at the window is online")
	assert.Equal(t, int64(20), *status.SecondsSinceLastSeen)
	assert.Equal(t, int64(800), *status.CO2)
	assert.Equal(t, models.AlertTypeThreshold, *status.LastAlertType)
	assert.Equal(t, "Open a window", *status.LastAdminMessage)

	env.clock.Advance(time.Second)
	status, err = env.svc.DeviceStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.Online)
	assert.Equal(t, int64(21), *status.SecondsSinceLastSeen)
}

func TestDeviceStatusReadsZonelessTimestampAsLocal(t *testing.T) {
	pinLocal(t, time.FixedZone("UTC+3", 3*60*60))
	env := newTestEnv(t)
	ctx := context.Background()

	// Server now is 12:00 UTC, which is 15:00 on the device's wall clock.
	_, err := env.svc.IngestReading(ctx, &ReadingInput{LightLevel: i64(10), Timestamp: strp("2025-03-01T14:59:00")})
	require.NoError(t, err)

	status, err := env.svc.DeviceStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.Online)
	assert.Equal(t, int64(60), *status.SecondsSinceLastSeen)
}

func TestDeviceStatusFutureReadingIsOnline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	future := env.clock.Now().Add(time.Hour).Format(time.RFC3339)
	_, err := env.svc.IngestReading(ctx, &ReadingInput{LightLevel: i64(10), Timestamp: &future})
	require.NoError(t, err)

	status, err := env.svc.DeviceStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.Online)
	assert.Equal(t, int64(0), *status.SecondsSinceLastSeen)
}

// failingRepo breaks selected reads of an otherwise working repository
type failingRepo struct {
	repository.Repository
	alertsErr error
	countErr  error
}

func (f *failingRepo) LatestAlert(ctx context.Context) (*models.Alert, error) {
	if f.alertsErr != nil {
		return nil, f.alertsErr
	}
	return f.Repository.LatestAlert(ctx)
}

func (f *failingRepo) CountSensorReadings(ctx context.Context) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.Repository.CountSensorReadings(ctx)
}

func TestDeviceStatusDegradesPerSource(t *testing.T) {
	repo := &failingRepo{Repository: repository.NewMemoryRepository(), alertsErr: errors.New("connection reset")}
	env := newTestEnv(t, withRepository(repo))
	ctx := context.Background()

	_, err := env.svc.IngestReading(ctx, &ReadingInput{Temperature: dec("21")})
	require.NoError(t, err)

	status, err := env.svc.DeviceStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.Online)
	assert.Nil(t, status.LastAlertType)
	assert.Equal(t, map[string]string{"alerts": "connection reset"}, status.Errors)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.IngestReading(ctx, &ReadingInput{Temperature: dec("21")})
	require.NoError(t, err)

	report := env.svc.Health(ctx)
	assert.Equal(t, StatusUp, report.Status)
	assert.Equal(t, StatusUp, report.DB.Status)
	assert.Equal(t, int64(1), *report.DB.SensorDataCount)
	assert.Equal(t, StatusDisabled, report.Cache.Status)

	down := newTestEnv(t, withRepository(&failingRepo{
		Repository: repository.NewMemoryRepository(),
		countErr:   errors.New("dial tcp: refused"),
	}))
	report = down.svc.Health(ctx)
	assert.Equal(t, StatusUp, report.Status)
	assert.Equal(t, StatusDown, report.DB.Status)
	assert.Equal(t, "dial tcp: refused", report.DB.Error)
	assert.Nil(t, report.DB.SensorDataCount)
}

func TestCheckLivenessPublishesTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	online, err := env.svc.CheckLiveness(ctx)
	require.NoError(t, err)
	assert.False(t, online)

	_, err = env.svc.IngestReading(ctx, &ReadingInput{Temperature: dec("21")})
	require.NoError(t, err)

	online, err = env.svc.CheckLiveness(ctx)
	require.NoError(t, err)
	assert.True(t, online)

	online, err = env.svc.CheckLiveness(ctx)
	require.NoError(t, err)
	assert.True(t, online)

	env.clock.Advance(time.Minute)
	online, err = env.svc.CheckLiveness(ctx)
	require.NoError(t, err)
	assert.False(t, online)

	env.flush()
	assert.Equal(t, []string{messaging.EventDeviceOnline, messaging.EventDeviceOffline}, env.bus.Types())
}

func TestLoginAndLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.svc.Login(ctx, "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, sess.Role)
	assert.NotEmpty(t, sess.Token)

	got, err := env.sessions.Get(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Username)

	_, err = env.svc.Login(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.svc.Login(ctx, "ghost", "ghost")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	userSess, err := env.svc.Login(ctx, "dawood", "dawood")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, userSess.Role)

	require.NoError(t, env.svc.Logout(ctx, sess.Token))
	_, err = env.sessions.Get(ctx, sess.Token)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestSeedIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	th, err := env.svc.GetThresholdByMetric(ctx, models.MetricTemp)
	require.NoError(t, err)
	_, err = env.svc.UpdateThreshold(ctx, th.ID, models.ThresholdUpdate{MaxValue: models.SomeDecimal(decimal.NewFromInt(25))})
	require.NoError(t, err)

	require.NoError(t, env.svc.Seed(ctx))

	users, err := env.svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, len(defaultUsers))

	thresholds, err := env.svc.ListThresholds(ctx)
	require.NoError(t, err)
	assert.Len(t, thresholds, 4)

	th, err = env.svc.GetThreshold(ctx, th.ID)
	require.NoError(t, err)
	assert.True(t, th.MaxValue.Equal(decimal.NewFromInt(25)), "seeding keeps existing bounds")
}

func TestCreateUserAndDeviceToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateUser(ctx, "admin", "x", models.RoleUser)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.svc.CreateUser(ctx, "nobody", "x", models.Role("ROOT"))
	assert.ErrorIs(t, err, ErrValidation)

	u, err := env.svc.CreateUser(ctx, "  shadi ", "pw", models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, "shadi", u.Username)
	assert.NotEqual(t, "pw", u.PasswordHash)

	require.NoError(t, env.svc.UpdateDeviceToken(ctx, "shadi", "fcm-token-1"))
	stored, err := env.repo.FindUserByUsername(ctx, "shadi")
	require.NoError(t, err)
	require.NotNil(t, stored.DeviceToken)
	assert.Equal(t, "fcm-token-1", *stored.DeviceToken)

	assert.ErrorIs(t, env.svc.UpdateDeviceToken(ctx, "shadi", " "), ErrValidation)
	assert.ErrorIs(t, env.svc.UpdateDeviceToken(ctx, "ghost", "tok"), ErrNotFound)
}

func TestSweepSessions(t *testing.T) {
	clock := newFakeClock()
	store := session.NewMemoryStore(time.Minute).WithClock(clock.Now)
	svc, err := NewService(ServiceConfig{
		Repository:      repository.NewMemoryRepository(),
		MessagingClient: &recordingBus{},
		Sessions:        store,
		DeviceKey:       testDeviceKey,
		Clock:           clock.Now,
	})
	require.NoError(t, err)
	defer svc.Shutdown()
	ctx := context.Background()

	_, err = store.Create(ctx, "admin", models.RoleAdmin)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	n, err := svc.SweepSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, store.Len())
}

package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The device firmware parses JSON numbers, not quoted decimals.
	decimal.MarshalJSONWithoutQuotes = true
}

// SensorReading is one periodic sample sent by the device. Every metric is optional
// but a stored reading always carries at least one of them.
type SensorReading struct {
	ID          uint                `json:"id" gorm:"primarykey"`
	Temperature decimal.NullDecimal `json:"temperature" gorm:"type:numeric(5,2)"`
	Humidity    decimal.NullDecimal `json:"humidity" gorm:"type:numeric(5,2)"`
	CO2Level    *int64              `json:"co2Level" gorm:"Column:co2_level"`
	LightLevel  *int64              `json:"lightLevel" gorm:"Column:light_level"`
	Timestamp   time.Time           `json:"timestamp" gorm:"not null;index"`
}

// HasMetric reports whether at least one metric value is present.
func (r *SensorReading) HasMetric() bool {
	return r.Temperature.Valid || r.Humidity.Valid || r.CO2Level != nil || r.LightLevel != nil
}

// MetricValue returns the reading's value for m as a decimal, and false when absent.
func (r *SensorReading) MetricValue(m MetricType) (decimal.Decimal, bool) {
	switch m {
	case MetricTemp:
		return r.Temperature.Decimal, r.Temperature.Valid
	case MetricHumidity:
		return r.Humidity.Decimal, r.Humidity.Valid
	case MetricCO2:
		if r.CO2Level == nil {
			return decimal.Zero, false
		}
		return decimal.NewFromInt(*r.CO2Level), true
	case MetricLight:
		if r.LightLevel == nil {
			return decimal.Zero, false
		}
		return decimal.NewFromInt(*r.LightLevel), true
	}
	return decimal.Zero, false
}

// Threshold is the accepted [min, max] range for a metric. There is at most one per metric.
type Threshold struct {
	ID         uint            `json:"id" gorm:"primarykey"`
	MetricType MetricType      `json:"metricType" gorm:"type:varchar(10);uniqueIndex;not null"`
	MinValue   decimal.Decimal `json:"minValue" gorm:"type:numeric(10,2);not null"`
	MaxValue   decimal.Decimal `json:"maxValue" gorm:"type:numeric(10,2);not null"`
}

// ThresholdAudit is an append-only record of a threshold change
type ThresholdAudit struct {
	ID          uint            `json:"id" gorm:"primarykey"`
	ThresholdID uint            `json:"thresholdId" gorm:"index"`
	MetricType  MetricType      `json:"metricType" gorm:"type:varchar(10);not null"`
	MinValue    decimal.Decimal `json:"minValue" gorm:"type:numeric(10,2)"`
	MaxValue    decimal.Decimal `json:"maxValue" gorm:"type:numeric(10,2)"`
	UpdatedBy   string          `json:"updatedBy" gorm:"size:50"`
	UpdatedAt   time.Time       `json:"updatedAt" gorm:"not null;index;autoUpdateTime:false"`
}

// Alert records a threshold breach or an intruder event
type Alert struct {
	ID           uint                `json:"id" gorm:"primarykey"`
	AlertType    AlertType           `json:"alertType" gorm:"type:varchar(20);not null"`
	MetricType   MetricType          `json:"metricType" gorm:"type:varchar(10)"`
	Value        decimal.NullDecimal `json:"value" gorm:"type:numeric(10,2)"`
	Timestamp    time.Time           `json:"timestamp" gorm:"not null;index"`
	Acknowledged bool                `json:"acknowledged" gorm:"not null;default:false"`
}

// CommandStatus is the derived delivery state of a DeviceCommand
type CommandStatus string

const (
	CommandPending  CommandStatus = "PENDING"
	CommandExecuted CommandStatus = "EXECUTED"
)

// DeviceCommand is an instruction queued for the device. It moves from PENDING to
// EXECUTED exactly once, when the device acknowledges it.
type DeviceCommand struct {
	ID          uint        `json:"id" gorm:"primarykey"`
	DeviceKey   string      `json:"deviceKey" gorm:"size:100;not null;index:idx_commands_device_pending,priority:1"`
	CommandType CommandType `json:"commandType" gorm:"size:50;not null;index"`
	Parameters  *string     `json:"parameters" gorm:"size:500"`
	Executed    bool        `json:"executed" gorm:"not null;default:false;index:idx_commands_device_pending,priority:2"`
	CreatedAt   time.Time   `json:"createdAt" gorm:"not null;index"`
	ExecutedAt  *time.Time  `json:"executedAt"`
}

// Status derives the state machine position from the executed flag.
func (c DeviceCommand) Status() CommandStatus {
	if c.Executed {
		return CommandExecuted
	}
	return CommandPending
}

// MarshalJSON adds the derived status to the serialized command.
func (c DeviceCommand) MarshalJSON() ([]byte, error) {
	type plain DeviceCommand
	return json.Marshal(struct {
		plain
		Status CommandStatus `json:"status"`
	}{plain(c), c.Status()})
}

// User is an operator account that can log in to the admin or user views
type User struct {
	ID           uint      `json:"id" gorm:"primarykey"`
	Username     string    `json:"username" gorm:"size:50;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	Role         Role      `json:"role" gorm:"size:10;not null"`
	DeviceToken  *string   `json:"-" gorm:"size:255"` // push token of the user's phone
	CreatedAt    time.Time `json:"createdAt"`
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// MetricType identifies an environmental quantity tracked by the device.
// The same string form is used in the database, in JSON and in URL paths.
type MetricType string

const (
	MetricTemp     MetricType = "TEMP"
	MetricHumidity MetricType = "HUMIDITY"
	MetricCO2      MetricType = "CO2"
	MetricLight    MetricType = "LIGHT"
)

// AllMetrics lists every metric in evaluation order.
var AllMetrics = []MetricType{MetricTemp, MetricHumidity, MetricCO2, MetricLight}

// ParseMetricType converts a string into a MetricType. Matching is case-insensitive.
func ParseMetricType(s string) (MetricType, error) {
	m := MetricType(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown metric type %q", s)
	}
	return m, nil
}

// Valid reports whether m is one of the known metrics.
func (m MetricType) Valid() bool {
	switch m {
	case MetricTemp, MetricHumidity, MetricCO2, MetricLight:
		return true
	}
	return false
}

func (m MetricType) String() string {
	return string(m)
}

// MarshalJSON writes the canonical name. An empty metric (INTRUDER alerts) is written as null.
func (m MetricType) MarshalJSON() ([]byte, error) {
	if m == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(m))
}

// UnmarshalJSON accepts any casing of a known metric name.
func (m *MetricType) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMetricType(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer.
func (m MetricType) Value() (driver.Value, error) {
	if m == "" {
		return nil, nil
	}
	if !m.Valid() {
		return nil, fmt.Errorf("unknown metric type %q", string(m))
	}
	return string(m), nil
}

// Scan implements sql.Scanner.
func (m *MetricType) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = ""
		return nil
	case string:
		return m.scanString(v)
	case []byte:
		return m.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into MetricType", src)
	}
}

func (m *MetricType) scanString(s string) error {
	parsed, err := ParseMetricType(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// AlertType is the origin of an alert
type AlertType string

const (
	AlertTypeThreshold AlertType = "THRESHOLD"
	AlertTypeIntruder  AlertType = "INTRUDER"
)

// CommandType is an instruction the device knows how to execute
type CommandType string

const (
	CommandSetLEDColor    CommandType = "SET_LED_COLOR"
	CommandDisplayMessage CommandType = "DISPLAY_MESSAGE"
	CommandBLEBroadcast   CommandType = "BLE_BROADCAST"
	CommandRefreshConfig  CommandType = "REFRESH_CONFIG"
)

// ParseCommandType converts a string into a CommandType.
func ParseCommandType(s string) (CommandType, error) {
	c := CommandType(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case CommandSetLEDColor, CommandDisplayMessage, CommandBLEBroadcast, CommandRefreshConfig:
		return c, nil
	}
	return "", fmt.Errorf("unknown command type %q", s)
}

// Role is the access level of an authenticated user
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// ParseRole converts a string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleAdmin, RoleUser:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the service configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ServiceBus ServiceBusConfig
	NewRelic   NewRelicConfig
	Device     DeviceConfig
	Auth       AuthConfig
	Notifier   NotifierConfig
	Monitor    MonitorConfig
	Log        LogConfig
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port           int
	Mode           string // debug, release, test
	BasePath       string
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxIdle  int
	MaxOpen  int
}

// RedisConfig holds the Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// ServiceBusConfig holds the Azure Service Bus configuration
type ServiceBusConfig struct {
	ConnectionString string
	QueueName        string
}

// NewRelicConfig holds the New Relic configuration
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// DeviceConfig holds the device-facing settings
type DeviceConfig struct {
	// Key is the shared secret the device presents in X-Device-Key or ?key=.
	Key                    string
	OnlineThresholdSeconds int
	HistoryLimit           int
}

// AuthConfig holds session settings. A zero SessionTTL means sessions never expire.
type AuthConfig struct {
	SessionTTL    time.Duration
	SweepInterval time.Duration
}

// NotifierConfig sizes the outbound event worker pool
type NotifierConfig struct {
	Workers   int
	QueueSize int
}

// MonitorConfig holds the device liveness monitor settings
type MonitorConfig struct {
	LivenessInterval time.Duration
}

// LogConfig holds the optional rotated log file settings
type LogConfig struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// OnlineThreshold returns the device liveness window as a duration.
func (d DeviceConfig) OnlineThreshold() time.Duration {
	return time.Duration(d.OnlineThresholdSeconds) * time.Second
}

// InitConfig initializes the configuration using Viper
func InitConfig(cfgFile string) error {
	// A missing .env is fine; anything else is not.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error loading .env file: %w", err)
	}

	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/ecoguard")
		viper.SetConfigName("config")
	}

	// ECOGUARD_SERVER_PORT overrides server.port
	viper.SetEnvPrefix("ECOGUARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("No config file found, using defaults and environment variables")
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}

	return nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.basepath", "/api")
	viper.SetDefault("server.requesttimeout", "10s")
	viper.SetDefault("server.allowedorigins", []string{"*"})

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "ecoguard")
	viper.SetDefault("database.password", "ecoguard")
	viper.SetDefault("database.dbname", "ecoguard")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxidle", 10)
	viper.SetDefault("database.maxopen", 50)

	// Redis defaults
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Service Bus defaults - no default connection string for security
	viper.SetDefault("servicebus.queuename", "ecoguard-events")

	// New Relic defaults
	viper.SetDefault("newrelic.appname", "EcoGuard Local")
	viper.SetDefault("newrelic.enabled", false)

	// Device defaults
	viper.SetDefault("device.key", "demo-device-key")
	viper.SetDefault("device.onlinethresholdseconds", 20)
	viper.SetDefault("device.historylimit", 10)

	// Auth defaults
	viper.SetDefault("auth.sessionttl", "12h")
	viper.SetDefault("auth.sweepinterval", "5m")

	// Notifier defaults
	viper.SetDefault("notifier.workers", 4)
	viper.SetDefault("notifier.queuesize", 1000)

	// Monitor defaults
	viper.SetDefault("monitor.livenessinterval", "10s")

	// Log file defaults
	viper.SetDefault("log.maxsizemb", 100)
	viper.SetDefault("log.maxbackups", 5)
	viper.SetDefault("log.maxagedays", 28)
}

// Load loads the configuration
func Load() (*Config, error) {
	serverConfig := ServerConfig{
		Port:           viper.GetInt("server.port"),
		Mode:           viper.GetString("server.mode"),
		BasePath:       viper.GetString("server.basepath"),
		RequestTimeout: viper.GetDuration("server.requesttimeout"),
		AllowedOrigins: viper.GetStringSlice("server.allowedorigins"),
	}

	dbConfig := DatabaseConfig{
		Host:     viper.GetString("database.host"),
		Port:     viper.GetInt("database.port"),
		User:     viper.GetString("database.user"),
		Password: viper.GetString("database.password"),
		DBName:   viper.GetString("database.dbname"),
		SSLMode:  viper.GetString("database.sslmode"),
		MaxIdle:  viper.GetInt("database.maxidle"),
		MaxOpen:  viper.GetInt("database.maxopen"),
	}

	redisConfig := RedisConfig{
		Enabled:  viper.GetBool("redis.enabled"),
		Host:     viper.GetString("redis.host"),
		Port:     viper.GetInt("redis.port"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	}

	serviceBusConfig := ServiceBusConfig{
		ConnectionString: viper.GetString("servicebus.connectionstring"),
		QueueName:        viper.GetString("servicebus.queuename"),
	}

	newRelicConfig := NewRelicConfig{
		AppName:    viper.GetString("newrelic.appname"),
		LicenseKey: viper.GetString("newrelic.licensekey"),
		Enabled:    viper.GetBool("newrelic.enabled"),
	}

	deviceConfig := DeviceConfig{
		Key:                    viper.GetString("device.key"),
		OnlineThresholdSeconds: viper.GetInt("device.onlinethresholdseconds"),
		HistoryLimit:           viper.GetInt("device.historylimit"),
	}

	cfg := &Config{
		Server:     serverConfig,
		Database:   dbConfig,
		Redis:      redisConfig,
		ServiceBus: serviceBusConfig,
		NewRelic:   newRelicConfig,
		Device:     deviceConfig,
		Auth: AuthConfig{
			SessionTTL:    viper.GetDuration("auth.sessionttl"),
			SweepInterval: viper.GetDuration("auth.sweepinterval"),
		},
		Notifier: NotifierConfig{
			Workers:   viper.GetInt("notifier.workers"),
			QueueSize: viper.GetInt("notifier.queuesize"),
		},
		Monitor: MonitorConfig{
			LivenessInterval: viper.GetDuration("monitor.livenessinterval"),
		},
		Log: LogConfig{
			File:       viper.GetString("log.file"),
			MaxSizeMB:  viper.GetInt("log.maxsizemb"),
			MaxBackups: viper.GetInt("log.maxbackups"),
			MaxAgeDays: viper.GetInt("log.maxagedays"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the service cannot run without.
func (c *Config) Validate() error {
	if c.Device.Key == "" {
		return fmt.Errorf("device.key must not be empty")
	}
	if c.Device.OnlineThresholdSeconds <= 0 {
		return fmt.Errorf("device.onlinethresholdseconds must be positive")
	}
	if c.Device.HistoryLimit <= 0 {
		return fmt.Errorf("device.historylimit must be positive")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("server.basepath must start with /")
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	return nil
}

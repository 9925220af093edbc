package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// Config represents the entire application configuration
type Config struct {
	Env      string         `json:"env"`
	Port     int            `json:"port"`
	AppName  string         `json:"app_name"`
	Store    StoreConfig    `json:"store"`
	Report   ReportConfig   `json:"report"`
	MongoDB  MongoDBConfig  `json:"mongodb"`
	Redis    RedisConfig    `json:"redis"`
	RabbitMQ RabbitMQConfig `json:"rabbitmq"`
	Jobs     JobsConfig     `json:"jobs"`
	AWS      AWSConfig      `json:"aws"`
	Logging  LoggingConfig  `json:"logging"`
	CORS     CORSConfig     `json:"cors"`
}

// StoreConfig points at the game server management API
type StoreConfig struct {
	BaseURL           string `json:"base_url"`
	APIKey            string `json:"api_key"`
	TimeoutSeconds    int    `json:"timeout_seconds"`
	RequestsPerMinute int    `json:"requests_per_minute"`
}

// Timeout returns the per request timeout
func (s StoreConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// ReportConfig holds defaults for report rendering and caching
type ReportConfig struct {
	Timezone           string `json:"timezone"`
	CompactLimit       int    `json:"compact_limit"`
	CacheTTLSeconds    int    `json:"cache_ttl_seconds"`
	ExportBucketPrefix string `json:"export_bucket_prefix"`
}

// CacheTTL returns how long closed window reports stay cached
func (r ReportConfig) CacheTTL() time.Duration {
	return time.Duration(r.CacheTTLSeconds) * time.Second
}

type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

// RabbitMQConfig contains broker connection and topology settings
type RabbitMQConfig struct {
	Host          string `json:"host"`
	Port          int    `json:"port"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	VHost         string `json:"vhost"`
	ExchangeName  string `json:"exchange_name"`
	QueueName     string `json:"queue_name"`
	PrefetchCount int    `json:"prefetch_count"`
}

// JobsConfig controls the report job consumer
type JobsConfig struct {
	Consume           bool `json:"consume"`
	RetryDelaySeconds int  `json:"retry_delay_seconds"`
}

// RetryDelay is how long the consumer waits before reconnecting
func (j JobsConfig) RetryDelay() time.Duration {
	return time.Duration(j.RetryDelaySeconds) * time.Second
}

// AWSConfig holds the S3 credentials used for report exports
type AWSConfig struct {
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
}

// Enabled reports whether exports are configured
func (a AWSConfig) Enabled() bool {
	return a.Bucket != "" && a.Region != ""
}

// CORSConfig contains Cross-Origin Resource Sharing settings
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age,omitempty"`
}

// MongoDBConfig contains MongoDB connection details
type MongoDBConfig struct {
	URI      string `json:"uri"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       string `json:"db"`
}

// LoggingConfig contains logging-related configurations
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// LoadConfig reads configuration from the specified file path
func LoadConfig(filePath string) (*Config, error) {
	configData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(configData, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.AppName == "" {
		c.AppName = "gamewatch"
	}
	if c.Store.TimeoutSeconds == 0 {
		c.Store.TimeoutSeconds = 30
	}
	if c.Report.Timezone == "" {
		c.Report.Timezone = "utc"
	}
	if c.Report.CompactLimit == 0 {
		c.Report.CompactLimit = 10
	}
	if c.Report.CacheTTLSeconds == 0 {
		c.Report.CacheTTLSeconds = 3600
	}
	if c.Report.ExportBucketPrefix == "" {
		c.Report.ExportBucketPrefix = "reports"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = c.AppName
	}
	if c.RabbitMQ.Port == 0 {
		c.RabbitMQ.Port = 5672
	}
	if c.RabbitMQ.ExchangeName == "" {
		c.RabbitMQ.ExchangeName = "gamewatch"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "report_jobs"
	}
	if c.Jobs.RetryDelaySeconds == 0 {
		c.Jobs.RetryDelaySeconds = 5
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the settings the service cannot start without
func (c *Config) Validate() error {
	var errs []error
	if c.Store.BaseURL == "" {
		errs = append(errs, errors.New("store.base_url is required"))
	}
	if c.Store.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("store.requests_per_minute must not be negative"))
	}
	if c.Report.CompactLimit < 0 {
		errs = append(errs, errors.New("report.compact_limit must not be negative"))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	return errors.Join(errs...)
}

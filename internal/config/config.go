// Package config holds the application configuration loaded through viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration.
type Config struct {
	Worker     WorkerConfig     `mapstructure:"worker" yaml:"worker"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	NATS       NATSConfig       `mapstructure:"nats" yaml:"nats"`
	OpenAI     OpenAIConfig     `mapstructure:"openai" yaml:"openai"`
	Blob       BlobConfig       `mapstructure:"blob" yaml:"blob"`
	Processing ProcessingConfig `mapstructure:"processing" yaml:"processing"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

// WorkerConfig holds worker configuration.
type WorkerConfig struct {
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
	QueueGroup  string        `mapstructure:"queue_group" yaml:"queue_group"`
	DurableName string        `mapstructure:"durable_name" yaml:"durable_name"`
	JobTimeout  time.Duration `mapstructure:"job_timeout" yaml:"job_timeout"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	User            string        `mapstructure:"user" yaml:"user"`
	Password        string        `mapstructure:"password" yaml:"-"`
	Name            string        `mapstructure:"name" yaml:"name"`
	Schema          string        `mapstructure:"schema" yaml:"schema"`
	SSLMode         string        `mapstructure:"sslmode" yaml:"sslmode"`
	MaxConnections  int           `mapstructure:"max_connections" yaml:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections" yaml:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" yaml:"conn_max_idle_time"`
}

// DSN returns the database connection string.
func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, sslMode)
	if d.Schema != "" {
		dsn += fmt.Sprintf(" search_path=%s", d.Schema)
	}
	return dsn
}

// Validate checks the database configuration.
func (d DatabaseConfig) Validate() error {
	if d.Host == "" {
		return errors.New("database.host is required")
	}
	if d.Port < 1 || d.Port > 65535 {
		return errors.New("database.port must be between 1 and 65535")
	}
	if d.User == "" {
		return errors.New("database.user is required")
	}
	if d.Name == "" {
		return errors.New("database.name is required")
	}
	return nil
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL           string        `mapstructure:"url" yaml:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects" yaml:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait" yaml:"reconnect_wait"`
}

// OpenAIConfig holds Azure OpenAI configuration.
type OpenAIConfig struct {
	Endpoint            string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey              string        `mapstructure:"api_key" yaml:"-"`
	VisionDeployment    string        `mapstructure:"vision_deployment" yaml:"vision_deployment"`
	EmbeddingDeployment string        `mapstructure:"embedding_deployment" yaml:"embedding_deployment"`
	APIVersion          string        `mapstructure:"api_version" yaml:"api_version"`
	Timeout             time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries          int           `mapstructure:"max_retries" yaml:"max_retries"`
}

// BlobConfig holds Azure Blob Storage configuration.
type BlobConfig struct {
	AccountURL     string        `mapstructure:"account_url" yaml:"account_url"`
	Container      string        `mapstructure:"container" yaml:"container"`
	SASToken       string        `mapstructure:"sas_token" yaml:"-"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// ProcessingConfig holds image processing policy configuration.
type ProcessingConfig struct {
	MaxRetries      int           `mapstructure:"max_retries" yaml:"max_retries"`
	AckWait         time.Duration `mapstructure:"ack_wait" yaml:"ack_wait"`
	MaxAckPending   int           `mapstructure:"max_ack_pending" yaml:"max_ack_pending"`
	AnalysisTimeout time.Duration `mapstructure:"analysis_timeout" yaml:"analysis_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// New creates a new Config instance from Viper.
func New(v *viper.Viper) *Config {
	var config Config

	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("unable to decode config: %w", err))
	}

	if err := config.Validate(); err != nil {
		panic(fmt.Errorf("invalid configuration: %w", err))
	}

	return &config
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}

	if c.NATS.URL == "" {
		return errors.New("nats.url is required")
	}

	if c.Worker.Concurrency < 1 {
		return errors.New("worker.concurrency must be at least 1")
	}

	if c.Processing.MaxRetries < 0 {
		return errors.New("processing.max_retries cannot be negative")
	}

	return nil
}

package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Worker: WorkerConfig{
			Concurrency: 4,
			QueueGroup:  "image-workers",
			DurableName: "image-processor",
			JobTimeout:  2 * time.Minute,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "ruleindex",
			Password: "secret",
			Name:     "ruleindex",
		},
		NATS: NATSConfig{URL: "nats://localhost:4222"},
		Processing: ProcessingConfig{
			MaxRetries: 3,
			AckWait:    3 * time.Minute,
		},
	}
}

func TestDatabaseConfigDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "app",
		Password: "pw",
		Name:     "ruleindex",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=app password=pw dbname=ruleindex sslmode=disable",
		cfg.DSN())

	cfg.SSLMode = "require"
	cfg.Schema = "rules"
	assert.Equal(t,
		"host=db.internal port=5433 user=app password=pw dbname=ruleindex sslmode=require search_path=rules",
		cfg.DSN())
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing db host", func(c *Config) { c.Database.Host = "" }, "database.host"},
		{"port out of range", func(c *Config) { c.Database.Port = 70000 }, "database.port"},
		{"missing db user", func(c *Config) { c.Database.User = "" }, "database.user"},
		{"missing db name", func(c *Config) { c.Database.Name = "" }, "database.name"},
		{"missing nats url", func(c *Config) { c.NATS.URL = "" }, "nats.url"},
		{"zero concurrency", func(c *Config) { c.Worker.Concurrency = 0 }, "worker.concurrency"},
		{"negative retries", func(c *Config) { c.Processing.MaxRetries = -1 }, "processing.max_retries"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestNewFromViper(t *testing.T) {
	v := viper.New()
	v.Set("worker.concurrency", 2)
	v.Set("database.host", "localhost")
	v.Set("database.port", 5432)
	v.Set("database.user", "ruleindex")
	v.Set("database.name", "ruleindex")
	v.Set("nats.url", "nats://localhost:4222")
	v.Set("processing.max_retries", 3)

	cfg := New(v)
	assert.Equal(t, 2, cfg.Worker.Concurrency)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 3, cfg.Processing.MaxRetries)
}

func TestNewFromViperPanicsOnInvalid(t *testing.T) {
	v := viper.New()
	v.Set("database.host", "localhost")

	assert.Panics(t, func() { New(v) })
}

func TestRenderYAMLOmitsSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.OpenAI.APIKey = "sk-secret"
	cfg.Blob.SASToken = "sig=secret"

	out, err := cfg.RenderYAML()
	require.NoError(t, err)

	rendered := string(out)
	assert.NotContains(t, rendered, "secret")
	assert.Contains(t, rendered, "image-workers")
	assert.Contains(t, rendered, "nats://localhost:4222")
}

func TestParseConfigFromYAML(t *testing.T) {
	doc := []byte(`
worker:
  concurrency: 8
  queue_group: image-workers
database:
  host: localhost
  port: 5432
nats:
  url: nats://localhost:4222
processing:
  max_retries: 2
`)

	cfg, err := ParseConfigFromYAML(doc)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Worker.Concurrency)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 2, cfg.Processing.MaxRetries)
}

func TestParseConfigFromYAMLInvalid(t *testing.T) {
	_, err := ParseConfigFromYAML([]byte("worker: [not a map"))
	assert.Error(t, err)
}

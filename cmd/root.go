package cmd

import (
	"fmt"
	"os"
	"strings"

	"ruleindex/internal/application/common/slogger"
	"ruleindex/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ruleindex",
	Short: "A game rule booklet indexing and retrieval system",
	Long: `RuleIndex processes uploaded game rule booklet images and makes their
content searchable.

The system supports:
- Batch image upload tracking with automatic retry handling
- AI-driven extraction of text, visual descriptions and labels
- Per-channel embeddings stored with PostgreSQL/pgvector
- Similarity search over any extraction channel
- Asynchronous job processing with NATS JetStream`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "Log format (json, text)")

	// Bind flags to viper
	if err := viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding log-level flag: %v\n", err)
	}
	if err := viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding log-format flag: %v\n", err)
	}
}

func initConfig() {
	v := viper.New()

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Environment variables
	v.SetEnvPrefix("RULEINDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
		// Config file not found; use defaults and environment
	}

	cfg = config.New(v)
	slogger.Configure(cfg.Log.Level, cfg.Log.Format)
}

func setDefaults(v *viper.Viper) {
	// Worker defaults
	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.queue_group", "image-workers")
	v.SetDefault("worker.durable_name", "image-processor")
	v.SetDefault("worker.job_timeout", "5m")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "ruleindex")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 2)

	// NATS defaults
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.max_reconnects", 5)
	v.SetDefault("nats.reconnect_wait", "2s")

	// Processing defaults
	v.SetDefault("processing.max_retries", 3)
	v.SetDefault("processing.ack_wait", "3m")
	v.SetDefault("processing.max_ack_pending", 100)
	v.SetDefault("processing.analysis_timeout", "2m")

	// OpenAI defaults
	v.SetDefault("openai.api_version", "2024-06-01")
	v.SetDefault("openai.timeout", "60s")
	v.SetDefault("openai.max_retries", 3)

	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// GetConfig returns the loaded configuration
func GetConfig() *config.Config {
	return cfg
}

package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"`
	Port        string `mapstructure:"port"`

	// Out-of-band confirmation token required by the full-store reset.
	// Reset stays unreachable while this is empty.
	ResetToken string `mapstructure:"reset_token"`

	// Ingestion tuning
	LoaderBatchPauseMS      int `mapstructure:"loader_batch_pause_ms"`
	RollupQueueSize         int `mapstructure:"rollup_queue_size"`
	BackfillIntervalMinutes int `mapstructure:"backfill_interval_minutes"`
}

// App holds the global config instance
var App Config

// LoadConfig loads configuration from file and environment variables
func LoadConfig(path string) error {
	// Auto-load .env file if present (Local Development Convenience)
	// This makes 'go run' work without manually exporting env vars
	if err := godotenv.Load(); err == nil {
		log.Println("✅ Loaded .env file")
	}

	v := viper.New()

	// Set default values
	v.SetDefault("port", "8080")
	v.SetDefault("loader_batch_pause_ms", 100)
	v.SetDefault("rollup_queue_size", 256)
	v.SetDefault("backfill_interval_minutes", 10)

	// Config file settings
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("dev.config")
		v.SetConfigType("yaml")
	}

	// Environment variable settings
	v.SetEnvPrefix("callstat")

	// Bind standard environment variables (Docker/deploy compatibility)
	// This allows using standard keys like DATABASE_URL instead of CALLSTAT_DATABASE_URL
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("redis_url", "REDIS_URL")
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("reset_token", "CALLSTAT_RESET_TOKEN")
	_ = v.BindEnv("loader_batch_pause_ms", "CALLSTAT_LOADER_BATCH_PAUSE_MS")
	_ = v.BindEnv("rollup_queue_size", "CALLSTAT_ROLLUP_QUEUE_SIZE")
	_ = v.BindEnv("backfill_interval_minutes", "CALLSTAT_BACKFILL_INTERVAL_MINUTES")

	v.AutomaticEnv()

	// 1. Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("ℹ️  No config file found, using defaults and environment variables")
		} else {
			return err
		}
	} else {
		log.Printf("✅ Loaded config from: %s", v.ConfigFileUsed())
	}

	// 2. Unmarshal into struct
	if err := v.Unmarshal(&App); err != nil {
		return err
	}

	// 3. Backfill environment variables for tooling that still reads os.Getenv()
	setEnvIfEmpty("DATABASE_URL", App.DatabaseURL)
	setEnvIfEmpty("REDIS_URL", App.RedisURL)
	setEnvIfEmpty("PORT", App.Port)

	return nil
}

func setEnvIfEmpty(key, value string) {
	if value != "" && os.Getenv(key) == "" {
		os.Setenv(key, value)
	}
}

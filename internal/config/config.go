package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Settlement SettlementConfig
	DailyItem  DailyItemConfig
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port int `mapstructure:"SERVER_PORT"`
}

// DatabaseConfig holds the database configuration. Driver selects the
// store backend: "postgres" for production, "memory" for local runs
// without a database.
type DatabaseConfig struct {
	Driver   string `mapstructure:"STORE_DRIVER"`
	Host     string `mapstructure:"DB_HOST"`
	Port     int    `mapstructure:"DB_PORT"`
	Username string `mapstructure:"DB_USERNAME"`
	Password string `mapstructure:"DB_PASSWORD"`
	DBName   string `mapstructure:"DB_NAME"`
	SSLMode  string `mapstructure:"DB_SSLMODE"`
}

// RedisConfig holds the leaderboard cache configuration. An empty
// address disables the cache.
type RedisConfig struct {
	Addr           string `mapstructure:"REDIS_ADDR"`
	LeaderboardTTL int    `mapstructure:"LEADERBOARD_TTL_SECONDS"`
}

// AuthConfig holds the authentication configuration
type AuthConfig struct {
	JWTSecret  string `mapstructure:"JWT_SECRET"`
	AdminToken string `mapstructure:"ADMIN_TOKEN"`
}

// SettlementConfig holds the settlement scheduler configuration
type SettlementConfig struct {
	Schedule string `mapstructure:"SETTLEMENT_SCHEDULE"`
}

// DailyItemConfig holds the daily item provider configuration. An
// empty URL disables the provider and bids carry no item label.
type DailyItemConfig struct {
	URL            string `mapstructure:"DAILY_ITEM_URL"`
	TimeoutSeconds int    `mapstructure:"DAILY_ITEM_TIMEOUT_SECONDS"`
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.DBName, c.SSLMode,
	)
}

// LoadConfig reads configuration from environment variables
func LoadConfig() (*Config, error) {
	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("STORE_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USERNAME", "postgres")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "auction")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("LEADERBOARD_TTL_SECONDS", 30)
	viper.SetDefault("JWT_SECRET", "change-me")
	viper.SetDefault("ADMIN_TOKEN", "")
	viper.SetDefault("SETTLEMENT_SCHEDULE", "59 23 * * *") // daily, end of day
	viper.SetDefault("DAILY_ITEM_URL", "")
	viper.SetDefault("DAILY_ITEM_TIMEOUT_SECONDS", 3)
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg.Server); err != nil {
		return nil, err
	}
	if err := viper.Unmarshal(&cfg.Database); err != nil {
		return nil, err
	}
	if err := viper.Unmarshal(&cfg.Redis); err != nil {
		return nil, err
	}
	if err := viper.Unmarshal(&cfg.Auth); err != nil {
		return nil, err
	}
	if err := viper.Unmarshal(&cfg.Settlement); err != nil {
		return nil, err
	}
	if err := viper.Unmarshal(&cfg.DailyItem); err != nil {
		return nil, err
	}

	return &cfg, nil
}

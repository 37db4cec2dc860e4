// Package config provides configuration management using viper.
// It supports loading from YAML files, .env files and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	HTTP       HTTPConfig       `mapstructure:"http"`
	Database   DatabaseConfig   `mapstructure:"database"`
	GameServer GameServerConfig `mapstructure:"gameserver"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cases      CasesConfig      `mapstructure:"cases"`
	Bot        BotConfig        `mapstructure:"bot"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Log        LogConfig        `mapstructure:"log"`
}

// HTTPConfig holds the public API listener configuration.
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr" validate:"required"`
	AdminToken   string        `mapstructure:"admin_token"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host" validate:"required"`
	Port            int           `mapstructure:"port" validate:"gt=0"`
	User            string        `mapstructure:"user" validate:"required"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name" validate:"required"`
	PoolSize        int           `mapstructure:"pool_size" validate:"gt=0"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	MigrateOnStart  bool          `mapstructure:"migrate_on_start"`
}

// GameServerConfig holds the game server's MySQL database configuration.
// An empty host disables reconciliation and server stats.
type GameServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Name              string        `mapstructure:"name"`
	MaxOpenConns      int           `mapstructure:"max_open_conns"`
	MaxIdleConns      int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime   time.Duration `mapstructure:"conn_max_lifetime"`
	ServerIP          string        `mapstructure:"server_ip"`
	MaxPlayers        int           `mapstructure:"max_players" validate:"gte=0"`
	PlaceholderAvatar string        `mapstructure:"placeholder_avatar"`
}

// RedisConfig holds the catalog cache configuration.
// An empty address disables the cache.
type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	CatalogTTL time.Duration `mapstructure:"catalog_ttl"`
}

// CasesConfig holds daily case configuration.
type CasesConfig struct {
	CooldownHours int `mapstructure:"cooldown_hours" validate:"gt=0"`
	HistoryLimit  int `mapstructure:"history_limit" validate:"gt=0,lte=50"`
}

// BotConfig holds the admin Telegram bot configuration.
// An empty token disables the bot.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `mapstructure:"pretty"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Enabled reports whether the game server database is configured.
func (g *GameServerConfig) Enabled() bool {
	return g.Host != ""
}

// DSN returns the MySQL connection string.
func (g *GameServerConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		g.User, g.Password, g.Host, g.Port, g.Name,
	)
}

// CooldownWindow returns the daily spin cooldown as a duration.
func (c *CasesConfig) CooldownWindow() time.Duration {
	return time.Duration(c.CooldownHours) * time.Hour
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	// .env is optional; real environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g., HTTP_ADDR, DATABASE_HOST, GAMESERVER_PASSWORD
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration against its validate tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.admin_token", "")
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "dashboard")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "dashboard")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.migrate_on_start", true)

	// Keys without a default are invisible to AutomaticEnv during Unmarshal
	v.SetDefault("gameserver.host", "")
	v.SetDefault("gameserver.port", 3306)
	v.SetDefault("gameserver.user", "")
	v.SetDefault("gameserver.password", "")
	v.SetDefault("gameserver.name", "")
	v.SetDefault("gameserver.max_open_conns", 10)
	v.SetDefault("gameserver.max_idle_conns", 2)
	v.SetDefault("gameserver.conn_max_lifetime", "5m")
	v.SetDefault("gameserver.server_ip", "N/A")
	v.SetDefault("gameserver.max_players", 32)
	v.SetDefault("gameserver.placeholder_avatar", "https://via.placeholder.com/128")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.catalog_ttl", "1m")

	v.SetDefault("cases.cooldown_hours", 24)
	v.SetDefault("cases.history_limit", 50)

	v.SetDefault("bot.token", "")
	v.SetDefault("admin.ids", []int64{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

// IsAdmin checks if a Telegram user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix         = "RESTO"
	DefaultConfigFile = "config/config.yaml"

	StoreMemory   = "memory"
	StoreMySQL    = "mysql"
	StorePostgres = "postgres"
)

type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Store    StoreConfig    `mapstructure:"store"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	Outbox   OutboxConfig   `mapstructure:"outbox"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MongoDB  MongoDBConfig  `mapstructure:"mongodb"`
	Seed     SeedConfig     `mapstructure:"seed"`
}

type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
	File     string `mapstructure:"file"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type StoreConfig struct {
	Driver          string         `mapstructure:"driver"`
	MySQL           MySQLConfig    `mapstructure:"mysql"`
	Postgres        PostgresConfig `mapstructure:"postgres"`
	MaxOpenConns    int            `mapstructure:"max_open_conns"`
	MaxIdleConns    int            `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration  `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool           `mapstructure:"auto_migrate"`
	LogLevel        string         `mapstructure:"log_level"`
}

type MySQLConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

type CheckoutConfig struct {
	StockMode      string        `mapstructure:"stock_mode"`
	Currency       string        `mapstructure:"currency"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

type OutboxConfig struct {
	QueueSize      int           `mapstructure:"queue_size"`
	Concurrency    int           `mapstructure:"concurrency"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
	Channel  string `mapstructure:"channel"`
}

type MongoDBConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type SeedConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	File    string `mapstructure:"file"`
}

// Load reads path (or CONFIG_FILE, or the default file) over the built-in defaults. A missing
// file is not an error; every key can still come from RESTO_* variables.
func Load(path string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		path = DefaultConfigFile
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "restaurant-ordering")
	v.SetDefault("service.environment", "development")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 0)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.file", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")

	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("store.mysql.host", "127.0.0.1")
	v.SetDefault("store.mysql.port", 3306)
	v.SetDefault("store.mysql.username", "root")
	v.SetDefault("store.mysql.password", "")
	v.SetDefault("store.mysql.database", "restaurant")
	v.SetDefault("store.postgres.host", "127.0.0.1")
	v.SetDefault("store.postgres.port", 5432)
	v.SetDefault("store.postgres.username", "postgres")
	v.SetDefault("store.postgres.password", "")
	v.SetDefault("store.postgres.database", "restaurant")
	v.SetDefault("store.postgres.sslmode", "disable")
	v.SetDefault("store.max_open_conns", 20)
	v.SetDefault("store.max_idle_conns", 5)
	v.SetDefault("store.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("store.auto_migrate", true)
	v.SetDefault("store.log_level", "warn")

	v.SetDefault("checkout.stock_mode", "strict")
	v.SetDefault("checkout.currency", "DA")
	v.SetDefault("checkout.publish_timeout", 300*time.Millisecond)

	v.SetDefault("outbox.queue_size", 1024)
	v.SetDefault("outbox.concurrency", 8)
	v.SetDefault("outbox.handler_timeout", 30*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.channel", "restaurant:orders")

	v.SetDefault("mongodb.enabled", false)
	v.SetDefault("mongodb.uri", "mongodb://127.0.0.1:27017")
	v.SetDefault("mongodb.database", "restaurant")
	v.SetDefault("mongodb.collection", "order_audit")

	v.SetDefault("seed.enabled", true)
	v.SetDefault("seed.file", "config/seed.yaml")
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory, StoreMySQL, StorePostgres:
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	switch c.Checkout.StockMode {
	case "strict", "best_effort":
	default:
		return fmt.Errorf("config: unknown checkout.stock_mode %q", c.Checkout.StockMode)
	}
	if c.HTTP.Addr == "" {
		return errors.New("config: http.addr is required")
	}
	return nil
}

func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode)
}

// DSN returns the connection string for the configured SQL driver, or "" for the memory store.
func (c *StoreConfig) DSN() string {
	switch c.Driver {
	case StoreMySQL:
		return c.MySQL.DSN()
	case StorePostgres:
		return c.Postgres.DSN()
	}
	return ""
}

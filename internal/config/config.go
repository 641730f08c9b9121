package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`

	Store struct {
		Driver string `mapstructure:"driver"`
	} `mapstructure:"store"`

	Bus struct {
		Driver        string `mapstructure:"driver"`
		NATSURL       string `mapstructure:"nats_url"`
		SubjectPrefix string `mapstructure:"subject_prefix"`
	} `mapstructure:"bus"`

	API struct {
		Listen         string   `mapstructure:"listen"`
		AllowedOrigins []string `mapstructure:"allowed_origins"`
		AdminTokenHash string   `mapstructure:"admin_token_hash"`
	} `mapstructure:"api"`

	Hub struct {
		QueueSize           int           `mapstructure:"queue_size"`
		WriteTimeoutSeconds int           `mapstructure:"write_timeout_seconds"`
		PingIntervalSeconds int           `mapstructure:"ping_interval_seconds"`
		WriteTimeout        time.Duration `mapstructure:"-"`
		PingInterval        time.Duration `mapstructure:"-"`
	} `mapstructure:"hub"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverNATS     = "nats"

	MinQueueSize = 6
)

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("store.driver", DriverPostgres)
	v.SetDefault("bus.driver", DriverPostgres)
	v.SetDefault("bus.nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("bus.subject_prefix", "rushcast.")
	v.SetDefault("api.listen", "127.0.0.1:3000")
	v.SetDefault("api.allowed_origins", []string{})
	v.SetDefault("hub.queue_size", 64)
	v.SetDefault("hub.write_timeout_seconds", 10)
	v.SetDefault("hub.ping_interval_seconds", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Env overrides
	v.SetEnvPrefix("RUSHCAST")
	v.AutomaticEnv()
	_ = v.BindEnv("db.dsn", "RUSHCAST_DB_DSN")
	_ = v.BindEnv("store.driver", "RUSHCAST_STORE_DRIVER")
	_ = v.BindEnv("bus.driver", "RUSHCAST_BUS_DRIVER")
	_ = v.BindEnv("bus.nats_url", "RUSHCAST_BUS_NATS_URL")
	_ = v.BindEnv("api.listen", "RUSHCAST_API_LISTEN")
	_ = v.BindEnv("api.admin_token_hash", "RUSHCAST_API_ADMIN_TOKEN_HASH")
	_ = v.BindEnv("hub.ping_interval_seconds", "RUSHCAST_HUB_PING_INTERVAL_SECONDS")
	_ = v.BindEnv("hub.queue_size", "RUSHCAST_HUB_QUEUE_SIZE")
	_ = v.BindEnv("log.level", "RUSHCAST_LOG_LEVEL")
	_ = v.BindEnv("log.format", "RUSHCAST_LOG_FORMAT")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Hub.WriteTimeout = time.Duration(c.Hub.WriteTimeoutSeconds) * time.Second
	c.Hub.PingInterval = time.Duration(c.Hub.PingIntervalSeconds) * time.Second

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("store.driver %q unknown (use postgres|memory)", c.Store.Driver)
	}
	switch c.Bus.Driver {
	case DriverPostgres, DriverNATS, DriverMemory:
	default:
		return fmt.Errorf("bus.driver %q unknown (use postgres|nats|memory)", c.Bus.Driver)
	}
	if c.NeedsDB() && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required (set RUSHCAST_DB_DSN or config file)")
	}
	if c.Bus.Driver == DriverNATS && c.Bus.NATSURL == "" {
		return fmt.Errorf("bus.nats_url is required for the nats bus")
	}
	// Room for one initial snapshot per topic plus one broadcast per topic during priming.
	if c.Hub.QueueSize < MinQueueSize {
		return fmt.Errorf("hub.queue_size must be at least %d, got %d", MinQueueSize, c.Hub.QueueSize)
	}
	if c.Hub.WriteTimeout <= 0 {
		return fmt.Errorf("hub.write_timeout_seconds must be positive")
	}
	if c.Hub.PingInterval < 0 {
		return fmt.Errorf("hub.ping_interval_seconds must not be negative")
	}
	return nil
}

// NeedsDB reports whether any configured driver talks to Postgres.
func (c *Config) NeedsDB() bool {
	return c.Store.Driver == DriverPostgres || c.Bus.Driver == DriverPostgres
}

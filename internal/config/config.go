// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"chainlend-ledger/pkg/db" // Import db package for its Config struct
)

// AppConfig holds all application-wide configurations.
// MigrateOnStart applies the embedded migrations during Initialize; IndexerHealthPort
// serves /health for the chain-event indexer.
type AppConfig struct {
	ServerPort        string
	IndexerHealthPort string
	Env               string
	LogLevel          string
	DB                db.Config
	MigrateOnStart    bool
	NATS              NATSConfig
	Scoring           ScoringConfig
	HTTP              HTTPConfig
}

// NATSConfig configures chain-event ingestion.
type NATSConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	SubjectPrefix  string        `mapstructure:"subject_prefix"`
	ConsumerGroup  string        `mapstructure:"consumer_group"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	FetchBatch     int           `mapstructure:"fetch_batch"`
	AckWait        time.Duration `mapstructure:"ack_wait"`
}

// ScoringConfig tunes the payment classifier.
type ScoringConfig struct {
	DefaultLoanDurationDays float64 `mapstructure:"default_loan_duration_days"`
}

// HTTPConfig tunes the API server.
type HTTPConfig struct {
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Subject returns the NATS subject for one event kind under the configured prefix.
func (c NATSConfig) Subject(kind string) string {
	return c.SubjectPrefix + "." + kind
}

// LoadConfig loads configuration from an optional config.yaml and the environment.
// Nested keys map to env vars with '.' replaced by '_' (db.host -> DB_HOST).
func LoadConfig() (*AppConfig, error) {
	return load(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/chainlend-ledger")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	return v
}

func load(v *viper.Viper) (*AppConfig, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	// Leaf lookups so environment overrides apply to every nested key.
	natsCfg := NATSConfig{
		Enabled:        v.GetBool("nats.enabled"),
		URL:            v.GetString("nats.url"),
		StreamName:     v.GetString("nats.stream_name"),
		SubjectPrefix:  v.GetString("nats.subject_prefix"),
		ConsumerGroup:  v.GetString("nats.consumer_group"),
		ConnectTimeout: v.GetDuration("nats.connect_timeout"),
		ReconnectWait:  v.GetDuration("nats.reconnect_wait"),
		MaxReconnects:  v.GetInt("nats.max_reconnects"),
		FetchBatch:     v.GetInt("nats.fetch_batch"),
		AckWait:        v.GetDuration("nats.ack_wait"),
	}
	scoringCfg := ScoringConfig{
		DefaultLoanDurationDays: v.GetFloat64("scoring.default_loan_duration_days"),
	}
	httpCfg := HTTPConfig{
		AllowedOrigins: v.GetStringSlice("http.allowed_origins"),
		RequestTimeout: v.GetDuration("http.request_timeout"),
	}

	cfg := &AppConfig{
		ServerPort:        v.GetString("server.port"),
		IndexerHealthPort: v.GetString("indexer.health_port"),
		Env:               v.GetString("app.env"),
		LogLevel:          v.GetString("app.log_level"),
		DB: db.Config{
			Driver:          v.GetString("db.driver"),
			Host:            v.GetString("db.host"),
			Port:            v.GetInt("db.port"),
			User:            v.GetString("db.user"),
			Password:        v.GetString("db.password"),
			DBName:          v.GetString("db.name"),
			SSLMode:         v.GetString("db.sslmode"),
			Path:            v.GetString("db.path"),
			MaxOpenConns:    v.GetInt("db.max_open_conns"),
			MaxIdleConns:    v.GetInt("db.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db.conn_max_lifetime"),
		},
		MigrateOnStart: v.GetBool("db.migrate_on_start"),
		NATS:           natsCfg,
		Scoring:        scoringCfg,
		HTTP:           httpCfg,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("server.port is required")
	}
	switch c.DB.Driver {
	case db.DriverPostgres:
		if c.DB.Port <= 0 {
			return fmt.Errorf("invalid DB_PORT: %d", c.DB.Port)
		}
	case db.DriverSQLite:
		if c.DB.Path == "" {
			return fmt.Errorf("db.path is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported db.driver %q", c.DB.Driver)
	}
	if c.Scoring.DefaultLoanDurationDays <= 0 {
		return fmt.Errorf("scoring.default_loan_duration_days must be positive")
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("indexer.health_port", "8081")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("db.driver", db.DriverPostgres)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "user")
	v.SetDefault("db.password", "password")
	v.SetDefault("db.name", "ledgerdb")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.path", "data/ledger.db")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", "5m")
	v.SetDefault("db.migrate_on_start", true)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.stream_name", "CHAIN_EVENTS")
	v.SetDefault("nats.subject_prefix", "chainlend")
	v.SetDefault("nats.consumer_group", "ledger-indexer")
	v.SetDefault("nats.connect_timeout", "10s")
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.fetch_batch", 20)
	v.SetDefault("nats.ack_wait", "30s")

	v.SetDefault("scoring.default_loan_duration_days", 30)

	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("http.request_timeout", "15s")

	// Flat names used by earlier deployments.
	_ = v.BindEnv("db.name", "DB_NAME")
	_ = v.BindEnv("db.sslmode", "DB_SSLMODE")
	_ = v.BindEnv("nats.url", "NATS_URL")
}

package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"guarita-loadqueue/common/config"
)

// Snapshot source modes
const (
	SourcePostgres = "postgres"
	SourceREST     = "rest"
)

// Config loading queue service configuration
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	// Where snapshots are pulled from and transitions written to
	Source struct {
		Mode        string // "postgres" or "rest"
		HistoryDays int    // trip history pulled per refresh, default 62 days

		REST struct {
			BaseURL string
			APIKey  string
			Timeout time.Duration
		}
	}

	Engine struct {
		RefreshInterval time.Duration // default 60s
		Timezone        string        // facility timezone that defines "today"
		Location        *time.Location
		RankingLimit    int // top-N of ranking boards, default 10
	}

	ViewCache struct {
		Enabled bool
		Key     string
		TTL     time.Duration
	}

	// Preference lists (autocomplete) live under this Redis key prefix
	Preferences struct {
		KeyPrefix string
	}

	Alerts struct {
		MQTTEnabled   bool
		MQTTTopic     string
		StreamEnabled bool
		Stream        string
		StreamMaxLen  int64
	}

	HTTP struct {
		Addr string
	}

	Log struct {
		Level  string
		Format string
	}

	ServiceName string
}

// Load reads configuration from the environment
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database = config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "guarita",
		SSLMode:  "disable",
		MaxConns: 10,
		MaxIdle:  5,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis = config.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT = config.MQTTConfig{
		Broker:   "tcp://localhost:1883",
		ClientID: "guarita-loadqueue",
		QoS:      1,
	}
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Source.Mode = config.EnvString("SOURCE_MODE", SourcePostgres)
	cfg.Source.HistoryDays = config.EnvInt("TRIP_HISTORY_DAYS", 62)
	cfg.Source.REST.BaseURL = config.EnvString("REST_BASE_URL", "")
	cfg.Source.REST.APIKey = config.EnvString("REST_API_KEY", "")
	cfg.Source.REST.Timeout = config.EnvSeconds("REST_TIMEOUT", 15*time.Second)

	cfg.Engine.RefreshInterval = config.EnvSeconds("REFRESH_INTERVAL", 60*time.Second)
	cfg.Engine.Timezone = config.EnvString("FACILITY_TIMEZONE", "America/Sao_Paulo")
	cfg.Engine.RankingLimit = config.EnvInt("RANKING_LIMIT", 10)

	cfg.ViewCache.Enabled = config.EnvBool("VIEW_CACHE_ENABLED", true)
	cfg.ViewCache.Key = config.EnvString("VIEW_CACHE_KEY", "guarita:loadqueue:view")
	cfg.ViewCache.TTL = config.EnvSeconds("VIEW_CACHE_TTL", 5*time.Minute)

	cfg.Preferences.KeyPrefix = config.EnvString("PREFERENCES_KEY_PREFIX", "guarita")

	cfg.Alerts.MQTTEnabled = config.EnvBool("ALERT_MQTT_ENABLED", false)
	cfg.Alerts.MQTTTopic = config.EnvString("ALERT_MQTT_TOPIC", "guarita/dwell")
	cfg.Alerts.StreamEnabled = config.EnvBool("ALERT_STREAM_ENABLED", false)
	cfg.Alerts.Stream = config.EnvString("ALERT_STREAM", "guarita:dwell-alerts")
	cfg.Alerts.StreamMaxLen = int64(config.EnvInt("ALERT_STREAM_MAXLEN", 10000))

	cfg.HTTP.Addr = config.EnvString("HTTP_ADDR", ":8080")

	cfg.Log.Level = config.EnvString("LOG_LEVEL", "info")
	cfg.Log.Format = config.EnvString("LOG_FORMAT", "json")
	cfg.ServiceName = config.EnvString("SERVICE_NAME", "guarita-loadqueue")

	switch cfg.Source.Mode {
	case SourcePostgres:
	case SourceREST:
		if cfg.Source.REST.BaseURL == "" {
			return nil, fmt.Errorf("REST_BASE_URL is required when SOURCE_MODE=%s", SourceREST)
		}
	default:
		return nil, fmt.Errorf("invalid SOURCE_MODE %q", cfg.Source.Mode)
	}

	loc, err := time.LoadLocation(cfg.Engine.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid FACILITY_TIMEZONE %q: %w", cfg.Engine.Timezone, err)
	}
	cfg.Engine.Location = loc

	return cfg, nil
}

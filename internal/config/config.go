package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/cashbook/backend/internal/models"
)

// Config is everything a cash book process reads at startup
type Config struct {
	BookID       string
	Role         models.Role
	DeviceType   models.DeviceType
	RemoteURL    string
	PollInterval time.Duration
	SyncTimeout  time.Duration
	DateLayout   string
	LocalDriver  string
	StoreDriver  string
	Port         string
}

// SetDefaults registers the defaults on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("book.id", "")
	v.SetDefault("device.role", "")
	v.SetDefault("device.type", string(models.DeviceLaptop))
	v.SetDefault("sync.remote_url", "http://localhost:8080/api/v1/books")
	v.SetDefault("sync.poll_interval", 3*time.Second)
	v.SetDefault("sync.timeout", 10*time.Second)
	v.SetDefault("ledger.date_layout", "1/2/2006")
	v.SetDefault("local.driver", "memory")
	v.SetDefault("store.driver", "redis")
	v.SetDefault("server.port", "8080")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "cashbook")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "cashbook:")
}

var envBindings = map[string]string{
	"book.id":            "BOOK_ID",
	"device.role":        "DEVICE_ROLE",
	"device.type":        "DEVICE_TYPE",
	"sync.remote_url":    "SYNC_REMOTE_URL",
	"sync.poll_interval": "SYNC_POLL_INTERVAL",
	"sync.timeout":       "SYNC_TIMEOUT",
	"ledger.date_layout": "LEDGER_DATE_LAYOUT",
	"local.driver":       "LOCAL_DRIVER",
	"store.driver":       "STORE_DRIVER",
	"server.port":        "PORT",
	"database.host":      "DATABASE_HOST",
	"database.port":      "DATABASE_PORT",
	"database.user":      "DATABASE_USER",
	"database.password":  "DATABASE_PASSWORD",
	"database.name":      "DATABASE_NAME",
	"database.ssl_mode":  "DATABASE_SSL_MODE",
	"redis.host":         "REDIS_HOST",
	"redis.port":         "REDIS_PORT",
	"redis.password":     "REDIS_PASSWORD",
	"redis.db":           "REDIS_DB",
	"redis.prefix":       "REDIS_PREFIX",
}

// Init points the global viper at .env, binds the environment and
// registers defaults. A missing .env is not an error.
func Init() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	for key, env := range envBindings {
		viper.BindEnv(key, env)
	}
	SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		log.Debug().Err(err).Msg("Config file not found, using defaults")
	}
}

// Load reads a Config from v. An unset or unknown role is left empty so the
// session can fall back to the role the device stored last time.
func Load(v *viper.Viper) *Config {
	device := models.DeviceType(strings.ToUpper(strings.TrimSpace(v.GetString("device.type"))))
	role := models.Role(strings.ToUpper(strings.TrimSpace(v.GetString("device.role"))))
	if !role.Valid() {
		role = ""
	}

	return &Config{
		BookID:       v.GetString("book.id"),
		Role:         role,
		DeviceType:   device,
		RemoteURL:    v.GetString("sync.remote_url"),
		PollInterval: v.GetDuration("sync.poll_interval"),
		SyncTimeout:  v.GetDuration("sync.timeout"),
		DateLayout:   v.GetString("ledger.date_layout"),
		LocalDriver:  strings.ToLower(v.GetString("local.driver")),
		StoreDriver:  strings.ToLower(v.GetString("store.driver")),
		Port:         v.GetString("server.port"),
	}
}

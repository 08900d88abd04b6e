package courtdesk

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every configuration variable.
const EnvPrefix = "COURTDESK"

// LoadConfig reads configuration from COURTDESK_* environment variables on top of
// DefaultConfig. envFiles are loaded first with godotenv and never override variables
// already set; with no files given an optional ".env" is tried. The result is
// validated.
func LoadConfig(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("courtdesk: load .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return Config{}, fmt.Errorf("courtdesk: load env files: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	cfg := bindConfig(v)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("API_URL", d.API.BaseURL)
	v.SetDefault("LOCATION_URL", d.API.LocationURL)
	v.SetDefault("REQUEST_TIMEOUT", d.API.Timeout)
	v.SetDefault("LOGIN_PATH", d.API.LoginPath)
	v.SetDefault("FORBIDDEN_PATH", d.API.ForbiddenPath)

	v.SetDefault("STORAGE_BACKEND", d.Storage.Backend)
	v.SetDefault("STORAGE_KEY", d.Storage.Key)
	v.SetDefault("STORAGE_PATH", d.Storage.Path)
	v.SetDefault("REDIS_ADDR", d.Storage.RedisAddr)
	v.SetDefault("REDIS_PREFIX", d.Storage.RedisPrefix)
	v.SetDefault("REDIS_TTL", d.Storage.RedisTTL)

	v.SetDefault("LANGUAGE", d.Session.DefaultLanguage)

	v.SetDefault("WS_URL", d.Payment.WebsocketURL)
	v.SetDefault("PAYMENT_TIMEOUT", d.Payment.Timeout)
	v.SetDefault("PAYMENT_POLL_INTERVAL", d.Payment.PollInterval)

	v.SetDefault("NOTIFY_BUFFER", d.Notify.BufferSize)
	v.SetDefault("NOTIFY_DROP_IF_FULL", d.Notify.DropIfFull)
	v.SetDefault("NOTIFY_REPEAT_WINDOW", d.Notify.RepeatWindow)

	v.SetDefault("METRICS_ENABLED", d.Metrics.Enabled)
	v.SetDefault("METRICS_LATENCY_HISTOGRAMS", d.Metrics.EnableLatencyHistograms)

	v.SetDefault("LOG_LEVEL", d.Log.Level)
	v.SetDefault("LOG_FORMAT", d.Log.Format)

	v.SetDefault("COLOR_PRIMARY", d.Branding.ColorPrimary)
}

func bindConfig(v *viper.Viper) Config {
	var cfg Config

	cfg.API.BaseURL = v.GetString("API_URL")
	cfg.API.LocationURL = v.GetString("LOCATION_URL")
	cfg.API.Timeout = v.GetDuration("REQUEST_TIMEOUT")
	cfg.API.LoginPath = v.GetString("LOGIN_PATH")
	cfg.API.ForbiddenPath = v.GetString("FORBIDDEN_PATH")

	cfg.Storage.Backend = v.GetString("STORAGE_BACKEND")
	cfg.Storage.Key = v.GetString("STORAGE_KEY")
	cfg.Storage.Path = v.GetString("STORAGE_PATH")
	cfg.Storage.RedisAddr = v.GetString("REDIS_ADDR")
	cfg.Storage.RedisPrefix = v.GetString("REDIS_PREFIX")
	cfg.Storage.RedisTTL = v.GetDuration("REDIS_TTL")

	cfg.Session.DefaultLanguage = v.GetString("LANGUAGE")

	cfg.Payment.WebsocketURL = v.GetString("WS_URL")
	cfg.Payment.Timeout = v.GetDuration("PAYMENT_TIMEOUT")
	cfg.Payment.PollInterval = v.GetDuration("PAYMENT_POLL_INTERVAL")

	cfg.Notify.BufferSize = v.GetInt("NOTIFY_BUFFER")
	cfg.Notify.DropIfFull = v.GetBool("NOTIFY_DROP_IF_FULL")
	cfg.Notify.RepeatWindow = v.GetDuration("NOTIFY_REPEAT_WINDOW")

	cfg.Metrics.Enabled = v.GetBool("METRICS_ENABLED")
	cfg.Metrics.EnableLatencyHistograms = v.GetBool("METRICS_LATENCY_HISTOGRAMS")

	cfg.Log.Level = v.GetString("LOG_LEVEL")
	cfg.Log.Format = v.GetString("LOG_FORMAT")

	cfg.Branding.ColorPrimary = v.GetString("COLOR_PRIMARY")
	return cfg
}

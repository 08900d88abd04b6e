package courtdesk

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the complete Desk configuration. Build one with DefaultConfig or
// LoadConfig and treat it as immutable once handed to the Builder.
type Config struct {
	API      APIConfig
	Storage  StorageConfig
	Session  SessionConfig
	Payment  PaymentConfig
	Notify   NotifyConfig
	Metrics  MetricsConfig
	Log      LogConfig
	Branding BrandingConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the booking API and the location service.
type APIConfig struct {
	BaseURL     string        `validate:"required,url"`
	LocationURL string        `validate:"omitempty,url"`
	Timeout     time.Duration `validate:"gt=0"`
	// LoginPath is where a 401 sends the user; the originating path is kept in ?source=.
	LoginPath     string `validate:"required,startswith=/"`
	ForbiddenPath string `validate:"required,startswith=/"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig selects where the session and staged checkout are kept.
type StorageConfig struct {
	Backend string `validate:"oneof=memory file redis"`
	// Key encrypts the session at rest. Required for file and redis; the memory
	// backend draws a random per-process key when empty.
	Key         string
	Path        string `validate:"required_if=Backend file"`
	RedisAddr   string `validate:"required_if=Backend redis"`
	RedisPrefix string
	RedisTTL    time.Duration `validate:"gte=0"`
}

/*
====================================
SESSION CONFIG
====================================
*/

type SessionConfig struct {
	DefaultLanguage string `validate:"required,min=2,max=8"`
}

/*
====================================
PAYMENT CONFIG
====================================
*/

// PaymentConfig drives the payment watcher. An empty WebsocketURL disables it.
type PaymentConfig struct {
	WebsocketURL string        `validate:"omitempty,url"`
	Timeout      time.Duration `validate:"gt=0"`
	PollInterval time.Duration `validate:"gt=0"`
}

/*
====================================
NOTIFY CONFIG
====================================
*/

type NotifyConfig struct {
	BufferSize int `validate:"gte=1"`
	DropIfFull bool
	// RepeatWindow collapses identical toasts, such as the burst of 401s from parallel
	// requests. Zero shows every one.
	RepeatWindow time.Duration `validate:"gte=0"`
}

/*
====================================
METRICS CONFIG
====================================
*/

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
LOG CONFIG
====================================
*/

type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=console json"`
}

/*
====================================
BRANDING CONFIG
====================================
*/

// BrandingConfig carries the primary color token renderers may use.
type BrandingConfig struct {
	ColorPrimary string `validate:"omitempty,hexcolor"`
}

// DefaultConfig returns a configuration for a local API on the memory backend.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:       "http://localhost:8080",
			Timeout:       30 * time.Second,
			LoginPath:     "/login",
			ForbiddenPath: "/404",
		},
		Storage: StorageConfig{
			Backend:     BackendMemory,
			RedisPrefix: "courtdesk",
		},
		Session: SessionConfig{
			DefaultLanguage: "vi",
		},
		Payment: PaymentConfig{
			Timeout:      300 * time.Second,
			PollInterval: 5 * time.Second,
		},
		Notify: NotifyConfig{
			BufferSize:   64,
			DropIfFull:   true,
			RepeatWindow: 2 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field rules. Every failure wraps
// ErrInvalidConfig, except a missing storage key on a durable backend, which is
// ErrStorageKeyMissing.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.Storage.Backend != BackendMemory && strings.TrimSpace(c.Storage.Key) == "" {
		return ErrStorageKeyMissing
	}
	if c.Storage.Key != "" && len(c.Storage.Key) < 16 {
		return fmt.Errorf("%w: Storage.Key must be at least 16 bytes", ErrInvalidConfig)
	}
	if c.Payment.PollInterval >= c.Payment.Timeout {
		return fmt.Errorf("%w: Payment.PollInterval must be shorter than Payment.Timeout", ErrInvalidConfig)
	}
	return nil
}

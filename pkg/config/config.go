package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	FeatureFlags FeatureFlagsConfig
	Archive      ArchiveConfig
	Reminder     ReminderConfig
	Files        FilesConfig
	Display      DisplayConfig
	Broadcast    BroadcastConfig
	Staff        StaffConfig
	Transport    TransportConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FABSHOP_APP_ENV" default:"dev"`
	Port         string `envconfig:"FABSHOP_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"FABSHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FABSHOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	Driver string `envconfig:"FABSHOP_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"FABSHOP_DB_DSN" default:"fabshop.db"`

	MaxOpenConns    int           `envconfig:"FABSHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FABSHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FABSHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FABSHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FABSHOP_AUTO_MIGRATE" default:"false"`
}

type ArchiveConfig struct {
	// MaxSize bounds how many archived orders are retained system-wide.
	MaxSize int `envconfig:"FABSHOP_ARCHIVE_MAX_SIZE" default:"25"`
}

type ReminderConfig struct {
	Interval     time.Duration `envconfig:"FABSHOP_REMINDER_INTERVAL" default:"4h"`
	InitialDelay time.Duration `envconfig:"FABSHOP_REMINDER_INITIAL_DELAY" default:"30s"`
	ErrorBackoff time.Duration `envconfig:"FABSHOP_REMINDER_ERROR_BACKOFF" default:"1m"`
}

type FilesConfig struct {
	PhotosDir string `envconfig:"FABSHOP_FILES_PHOTOS_DIR" default:"files/photos"`
	ModelsDir string `envconfig:"FABSHOP_FILES_MODELS_DIR" default:"files/models"`

	PrintExtensions    []string `envconfig:"FABSHOP_PRINT_EXTENSIONS" default:".stl,.stp,.step"`
	LaserCutExtensions []string `envconfig:"FABSHOP_LASER_CUT_EXTENSIONS" default:".dxf"`
}

// AllowedExtensions returns the model-file extensions permitted for the
// given order type tag. Unknown tags get an empty list.
func (f FilesConfig) AllowedExtensions(orderType string) []string {
	switch orderType {
	case "print":
		return f.PrintExtensions
	case "laser_cut":
		return f.LaserCutExtensions
	default:
		return nil
	}
}

type DisplayConfig struct {
	// TimezoneOffsetHours shifts stored UTC timestamps for presentation only.
	TimezoneOffsetHours float64 `envconfig:"FABSHOP_TIMEZONE_OFFSET_HOURS" default:"3"`
}

// Location returns the fixed-offset zone used when formatting timestamps.
func (d DisplayConfig) Location() *time.Location {
	offset := int(d.TimezoneOffsetHours * 3600)
	return time.FixedZone("display", offset)
}

type BroadcastConfig struct {
	MessageDelay   time.Duration `envconfig:"FABSHOP_BROADCAST_MESSAGE_DELAY" default:"100ms"`
	RateLimitPause time.Duration `envconfig:"FABSHOP_BROADCAST_RATE_LIMIT_PAUSE" default:"1s"`
}

type TransportConfig struct {
	// WebhookURL is where outbound chat notifications are POSTed. When empty
	// the process falls back to a log-only sender.
	WebhookURL string        `envconfig:"FABSHOP_TRANSPORT_WEBHOOK_URL"`
	Timeout    time.Duration `envconfig:"FABSHOP_TRANSPORT_TIMEOUT" default:"10s"`
}

type StaffConfig struct {
	// APIToken guards the staff command routes on the HTTP surface.
	APIToken string `envconfig:"FABSHOP_STAFF_API_TOKEN"`
	// AdminIDs lists the chat identities allowed to trigger staff actions
	// through the transport.
	AdminIDs []int64 `envconfig:"FABSHOP_ADMIN_IDS"`
}

// IsAdmin reports whether the chat identity belongs to a staff member.
func (s StaffConfig) IsAdmin(userID int64) bool {
	for _, id := range s.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters shared by the alarm binaries.
type Config struct {
	// ServerAddress is the HTTP listen address of the alarm daemon.
	ServerAddress string `yaml:"server_addr"`
	// DatabaseFile is the path to the SQLite database storing alarm rows.
	DatabaseFile string `yaml:"database_file"`
	// Notifier selects the delivery mechanism: "desktop" or "log".
	Notifier string `yaml:"notifier"`
	// OverduePolicy controls registration of alarms whose target instant has
	// already passed: "fire" delivers immediately, "reject" refuses them.
	OverduePolicy string `yaml:"overdue_policy"`
	// DeliveryMaxAttempts bounds delivery retries per activation.
	DeliveryMaxAttempts int `yaml:"delivery_max_attempts"`
	// DeliveryRetryBackoff is the base delay between delivery attempts;
	// it doubles after every failed attempt.
	DeliveryRetryBackoff time.Duration `yaml:"delivery_retry_backoff"`
	// CORSAllowedOrigins lists browser origins allowed to call the API.
	// Empty means same-origin only.
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	// LogLevel is the minimum level for log output.
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for daemon settings.
	DefaultConfigFilename = "alarm-scheduler-settings.yaml"

	// DefaultDatabaseFilename is the default filename for the SQLite database.
	DefaultDatabaseFilename = "alarm-scheduler.db"

	// DefaultServerAddress is the default HTTP listen address.
	DefaultServerAddress = "localhost:8080"

	// DefaultDeliveryMaxAttempts is the default retry budget per activation.
	DefaultDeliveryMaxAttempts = 3

	// DefaultDeliveryRetryBackoff is the default base delay between attempts.
	DefaultDeliveryRetryBackoff = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// Notifier selections accepted by Validate.
const (
	// NotifierDesktop delivers notifications through the OS notification center.
	NotifierDesktop = "desktop"
	// NotifierLog writes notifications to the daemon log only.
	NotifierLog = "log"
)

// Overdue policies accepted by Validate.
const (
	// OverdueFire treats overdue alarms as due now and fires them immediately.
	OverdueFire = "fire"
	// OverdueReject refuses to register alarms whose instant already passed.
	OverdueReject = "reject"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownNotifier is returned when the notifier selection is not recognized.
	errUnknownNotifier = errors.New("notifier must be \"desktop\" or \"log\"")
	// errUnknownOverduePolicy is returned when the overdue policy is not recognized.
	errUnknownOverduePolicy = errors.New("overdue policy must be \"fire\" or \"reject\"")
)

// Load reads configuration from the provided path and validates essential fields.
// A missing file yields defaults so the daemon can start without any setup.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := &Config{}
			if err = Validate(cfg); err != nil {
				return nil, err
			}

			return cfg, nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting,
// filling in defaults for unset values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ServerAddress == "" {
		cfg.ServerAddress = DefaultServerAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ServerAddress); err != nil {
		return fmt.Errorf("invalid server address: %w", err)
	}

	if cfg.DatabaseFile == "" {
		cfg.DatabaseFile = DefaultDatabaseFilename
	}

	switch cfg.Notifier {
	case "":
		cfg.Notifier = NotifierDesktop
	case NotifierDesktop, NotifierLog:
	default:
		return errUnknownNotifier
	}

	switch cfg.OverduePolicy {
	case "":
		cfg.OverduePolicy = OverdueFire
	case OverdueFire, OverdueReject:
	default:
		return errUnknownOverduePolicy
	}

	if cfg.DeliveryMaxAttempts <= 0 {
		cfg.DeliveryMaxAttempts = DefaultDeliveryMaxAttempts
	}

	if cfg.DeliveryRetryBackoff <= 0 {
		cfg.DeliveryRetryBackoff = DefaultDeliveryRetryBackoff
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return nil
}

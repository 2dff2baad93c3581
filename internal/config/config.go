package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Chat    ChatConfig    `yaml:"chat"`
	Storage StorageConfig `yaml:"storage"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Remote  RemoteConfig  `yaml:"remote"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`
	QueueSize    int           `yaml:"queue_size" envconfig:"EVENT_QUEUE_SIZE"`
}

// ChatConfig controls which group chats are archived.
type ChatConfig struct {
	// MonitoredGroups are matched against the group's current display name.
	MonitoredGroups []string `yaml:"monitored_groups" envconfig:"MONITORED_GROUPS"`
	// Groups seeds the jid -> subject directory before any group update arrives.
	Groups map[string]string `yaml:"groups" ignored:"true"`
}

// StorageConfig holds local archive and database configuration.
type StorageConfig struct {
	DownloadsDir string `yaml:"downloads_dir" envconfig:"DOWNLOADS_DIR"`
	DBDriver     string `yaml:"db_driver" envconfig:"DB_DRIVER"`
	DBDSN        string `yaml:"db_dsn" envconfig:"DB_DSN"`
}

// FetchConfig holds external fetch tool configuration.
type FetchConfig struct {
	ToolPath string        `yaml:"tool_path" envconfig:"GALLERY_DL_PATH"`
	MaxItems int           `yaml:"max_items" envconfig:"FETCH_MAX_ITEMS"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"FETCH_TIMEOUT"`
}

// RemoteConfig holds optional cloud archive configuration. Nothing here is
// validated at startup; missing values surface when an upload is attempted.
type RemoteConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"REMOTE_ENABLED"`
	Backend string `yaml:"backend" envconfig:"REMOTE_BACKEND"`

	DriveCredentialsPath string `yaml:"gdrive_credentials_path" envconfig:"GDRIVE_OAUTH_CREDENTIALS_PATH"`
	DriveTokenPath       string `yaml:"gdrive_token_path" envconfig:"GDRIVE_OAUTH_TOKEN_PATH"`
	DriveRootFolderID    string `yaml:"gdrive_root_folder_id" envconfig:"GDRIVE_ROOT_FOLDER_ID"`

	S3Endpoint   string `yaml:"s3_endpoint" envconfig:"S3_ENDPOINT"`
	S3AccessKey  string `yaml:"s3_access_key" envconfig:"S3_ACCESS_KEY"`
	S3SecretKey  string `yaml:"s3_secret_key" envconfig:"S3_SECRET_KEY"`
	S3Bucket     string `yaml:"s3_bucket" envconfig:"S3_BUCKET"`
	S3Region     string `yaml:"s3_region" envconfig:"S3_REGION"`
	S3UseSSL     bool   `yaml:"s3_use_ssl" envconfig:"S3_USE_SSL"`
	S3RootPrefix string `yaml:"s3_root_prefix" envconfig:"S3_ROOT_PREFIX"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
}

// Remote backends.
const (
	BackendGoogleDrive = "gdrive"
	BackendS3          = "s3"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Default returns the configuration used when neither file nor environment
// sets a value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         9848,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			QueueSize:    256,
		},
		Storage: StorageConfig{
			DownloadsDir: "./downloads",
			DBDriver:     DriverSQLite,
		},
		Fetch: FetchConfig{
			ToolPath: "gallery-dl",
			MaxItems: 100,
			Timeout:  10 * time.Minute,
		},
		Remote: RemoteConfig{
			Backend:      BackendGoogleDrive,
			S3Region:     "us-east-1",
			S3UseSSL:     true,
			S3RootPrefix: "groupgrab",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from file and environment variables.
// Environment variables override file values, file values override defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	// GDRIVE_ENABLED is the older name of the switch.
	if _, ok := os.LookupEnv("REMOTE_ENABLED"); !ok {
		if v, ok := os.LookupEnv("GDRIVE_ENABLED"); ok {
			cfg.Remote.Enabled = strings.EqualFold(strings.TrimSpace(v), "true")
		}
	}

	cfg.Chat.MonitoredGroups = cleanList(cfg.Chat.MonitoredGroups)

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Storage.DownloadsDir == "" {
		return fmt.Errorf("DOWNLOADS_DIR is required")
	}
	switch c.Storage.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Storage.DBDriver)
	}
	if c.Storage.DBDriver == DriverPostgres && c.Storage.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required for the postgres driver")
	}
	if c.Fetch.ToolPath == "" {
		return fmt.Errorf("GALLERY_DL_PATH is required")
	}
	if c.Fetch.MaxItems <= 0 {
		return fmt.Errorf("FETCH_MAX_ITEMS must be positive")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	switch c.Remote.Backend {
	case BackendGoogleDrive, BackendS3:
	default:
		return fmt.Errorf("REMOTE_BACKEND must be %q or %q, got %q", BackendGoogleDrive, BackendS3, c.Remote.Backend)
	}
	return nil
}

// ValidateServer checks the settings only the HTTP server needs.
func (c *Config) ValidateServer() error {
	if c.Server.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT out of range: %d", c.Server.Port)
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseDSN returns the configured DSN, or the SQLite file next to the
// downloads directory.
func (c *StorageConfig) DatabaseDSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	return filepath.Join(c.DownloadsDir, "..", "db", "downloads.db")
}

// RootID returns the remote folder the archive tree hangs off.
func (c *RemoteConfig) RootID() string {
	if c.Backend == BackendS3 {
		return c.S3RootPrefix
	}
	return c.DriveRootFolderID
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

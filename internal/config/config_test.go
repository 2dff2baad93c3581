package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	return Default()
}

func TestConfig_Validate_Defaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() should pass for defaults, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"missing downloads dir", func(c *Config) { c.Storage.DownloadsDir = "" }, true},
		{"unknown driver", func(c *Config) { c.Storage.DBDriver = "mysql" }, true},
		{"postgres without dsn", func(c *Config) { c.Storage.DBDriver = DriverPostgres }, true},
		{"postgres with dsn", func(c *Config) {
			c.Storage.DBDriver = DriverPostgres
			c.Storage.DBDSN = "postgres://localhost/groupgrab"
		}, false},
		{"missing tool path", func(c *Config) { c.Fetch.ToolPath = "" }, true},
		{"zero max items", func(c *Config) { c.Fetch.MaxItems = 0 }, true},
		{"zero timeout", func(c *Config) { c.Fetch.Timeout = 0 }, true},
		{"unknown backend", func(c *Config) { c.Remote.Backend = "dropbox" }, true},
		{"remote enabled without settings", func(c *Config) { c.Remote.Enabled = true }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateServer(t *testing.T) {
	cfg := validConfig()
	if err := cfg.ValidateServer(); err == nil {
		t.Error("ValidateServer() should fail for missing API_KEY")
	}

	cfg.Server.APIKey = "secret"
	if err := cfg.ValidateServer(); err != nil {
		t.Errorf("ValidateServer() should pass, got %v", err)
	}

	cfg.Server.Port = 70000
	if err := cfg.ValidateServer(); err == nil {
		t.Error("ValidateServer() should fail for invalid port")
	}
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: 9848}
	if got := cfg.Address(); got != "127.0.0.1:9848" {
		t.Errorf("Address() = %q, want %q", got, "127.0.0.1:9848")
	}
}

func TestStorageConfig_DatabaseDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  StorageConfig
		want string
	}{
		{"derived from downloads dir", StorageConfig{DownloadsDir: "./downloads"}, filepath.Join("db", "downloads.db")},
		{"nested downloads dir", StorageConfig{DownloadsDir: "/data/downloads"}, filepath.Join("/data", "db", "downloads.db")},
		{"explicit dsn", StorageConfig{DownloadsDir: "./downloads", DBDSN: "/tmp/x.db"}, "/tmp/x.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.DatabaseDSN(); got != tt.want {
				t.Errorf("DatabaseDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRemoteConfig_RootID(t *testing.T) {
	cfg := RemoteConfig{Backend: BackendGoogleDrive, DriveRootFolderID: "root123", S3RootPrefix: "prefix"}
	if got := cfg.RootID(); got != "root123" {
		t.Errorf("RootID() = %q, want %q", got, "root123")
	}
	cfg.Backend = BackendS3
	if got := cfg.RootID(); got != "prefix" {
		t.Errorf("RootID() = %q, want %q", got, "prefix")
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
chat:
  monitored_groups: ["arte", " memes ", ""]
  groups:
    "123@g.us": arte
storage:
  downloads_dir: /srv/downloads
fetch:
  timeout: 2m
  max_items: 50
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.Chat.MonitoredGroups; len(got) != 2 || got[0] != "arte" || got[1] != "memes" {
		t.Errorf("MonitoredGroups = %v, want [arte memes]", got)
	}
	if cfg.Chat.Groups["123@g.us"] != "arte" {
		t.Errorf("Groups seed = %v", cfg.Chat.Groups)
	}
	if cfg.Storage.DownloadsDir != "/srv/downloads" {
		t.Errorf("DownloadsDir = %q", cfg.Storage.DownloadsDir)
	}
	if cfg.Fetch.Timeout != 2*time.Minute {
		t.Errorf("Fetch.Timeout = %v, want 2m", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.MaxItems != 50 {
		t.Errorf("Fetch.MaxItems = %d, want 50", cfg.Fetch.MaxItems)
	}
	// Untouched values keep their defaults.
	if cfg.Fetch.ToolPath != "gallery-dl" {
		t.Errorf("Fetch.ToolPath = %q, want gallery-dl", cfg.Fetch.ToolPath)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  downloads_dir: /from/file\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("DOWNLOADS_DIR", "/from/env")
	t.Setenv("MONITORED_GROUPS", "arte, memes,,")
	t.Setenv("FETCH_TIMEOUT", "30s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.DownloadsDir != "/from/env" {
		t.Errorf("DownloadsDir = %q, want /from/env", cfg.Storage.DownloadsDir)
	}
	if got := cfg.Chat.MonitoredGroups; len(got) != 2 || got[0] != "arte" || got[1] != "memes" {
		t.Errorf("MonitoredGroups = %v, want [arte memes]", got)
	}
	if cfg.Fetch.Timeout != 30*time.Second {
		t.Errorf("Fetch.Timeout = %v, want 30s", cfg.Fetch.Timeout)
	}
}

func TestLoad_LegacyDriveSwitch(t *testing.T) {
	t.Setenv("GDRIVE_ENABLED", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Remote.Enabled {
		t.Error("GDRIVE_ENABLED=true should enable remote archiving")
	}

	t.Setenv("REMOTE_ENABLED", "false")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Remote.Enabled {
		t.Error("REMOTE_ENABLED should take precedence over GDRIVE_ENABLED")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() should fail for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("storage: [unclosed"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail for invalid YAML")
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("FETCH_MAX_ITEMS", "lots")
	if _, err := Load(""); err == nil {
		t.Error("Load() should fail for non-numeric FETCH_MAX_ITEMS")
	}
}

// Package remote mirrors archived files into a cloud store under
// root/<group>/<platform>/.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/iconidentify/groupgrab/internal/config"
	"github.com/iconidentify/groupgrab/internal/domain"
)

// FolderStore is the minimal folder/file API a backend must offer.
type FolderStore interface {
	// FindFolder returns the id of the named child folder, or "" if none.
	FindFolder(ctx context.Context, parentID, name string) (string, error)

	// CreateFolder creates a child folder and returns its id.
	CreateFolder(ctx context.Context, parentID, name string) (string, error)

	// CreateFile uploads content into the parent folder and returns its id.
	CreateFile(ctx context.Context, parentID, name string, content io.Reader, size int64) (string, error)
}

// StoreFactory builds the backend on first use.
type StoreFactory func(ctx context.Context) (FolderStore, error)

// Config controls the archiver.
type Config struct {
	Enabled bool
	RootID  string
	Backend string
	Retry   RetryConfig
}

// ConfigFrom derives archiver settings from the remote config section.
func ConfigFrom(cfg config.RemoteConfig) Config {
	return Config{
		Enabled: cfg.Enabled,
		RootID:  cfg.RootID(),
		Backend: cfg.Backend,
		Retry:   DefaultRetryConfig(),
	}
}

// Archiver uploads local files below a folder path. It owns the folder
// cache, so two archivers never share resolved ids.
type Archiver struct {
	cfg     Config
	factory StoreFactory
	cache   *FolderCache
	logger  *slog.Logger

	mu    sync.Mutex
	store FolderStore
}

// NewArchiver creates an archiver. The store is not built until the first
// upload, so missing credentials do not block startup.
func NewArchiver(cfg Config, factory StoreFactory, logger *slog.Logger) *Archiver {
	return &Archiver{
		cfg:     cfg,
		factory: factory,
		cache:   NewFolderCache(),
		logger:  logger.With("backend", cfg.Backend),
	}
}

// Enabled reports whether uploads should be attempted.
func (a *Archiver) Enabled() bool {
	return a.cfg.Enabled
}

// Cache exposes the folder cache for stats.
func (a *Archiver) Cache() *FolderCache {
	return a.cache
}

// Upload stores filePath under root/segments[0]/segments[1]/... and
// returns the remote file id.
func (a *Archiver) Upload(ctx context.Context, filePath string, segments []string) (string, error) {
	if !a.cfg.Enabled {
		return "", domain.ErrRemoteDisabled
	}
	if a.cfg.RootID == "" {
		return "", fmt.Errorf("%w: remote root folder is not set", domain.ErrConfiguration)
	}

	store, err := a.storeFor(ctx)
	if err != nil {
		return "", err
	}

	parent := a.cfg.RootID
	for _, name := range segments {
		parent, err = a.ensureFolder(ctx, store, parent, name)
		if err != nil {
			return "", err
		}
	}

	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open upload source: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat upload source: %w", err)
	}

	name := filepath.Base(filePath)
	id, err := retry(ctx, a.cfg.Retry, func(attempt int) (string, error) {
		if attempt > 1 {
			a.logger.Warn("retrying upload", "file", name, "attempt", attempt)
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return "", err
			}
		}
		return store.CreateFile(ctx, parent, name, f, info.Size())
	})
	if err != nil {
		return "", fmt.Errorf("%w: upload %s: %v", domain.ErrRemoteCall, name, err)
	}

	a.logger.Info("file uploaded", "file", name, "remote_id", id, "size", info.Size())
	return id, nil
}

func (a *Archiver) ensureFolder(ctx context.Context, store FolderStore, parent, name string) (string, error) {
	if id, ok := a.cache.Get(parent, name); ok {
		return id, nil
	}

	id, err := store.FindFolder(ctx, parent, name)
	if err != nil {
		return "", fmt.Errorf("%w: find folder %q: %v", domain.ErrRemoteCall, name, err)
	}
	if id == "" {
		id, err = store.CreateFolder(ctx, parent, name)
		if err != nil {
			return "", fmt.Errorf("%w: create folder %q: %v", domain.ErrRemoteCall, name, err)
		}
		a.logger.Info("remote folder created", "name", name, "parent", parent, "id", id)
	}

	a.cache.Put(parent, name, id)
	return id, nil
}

func (a *Archiver) storeFor(ctx context.Context) (FolderStore, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.store != nil {
		return a.store, nil
	}
	if a.factory == nil {
		return nil, fmt.Errorf("%w: no remote backend", domain.ErrConfiguration)
	}

	store, err := a.factory(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrConfiguration) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: connect remote store: %v", domain.ErrRemoteCall, err)
	}
	a.store = store
	return store, nil
}

// FactoryFromConfig selects the backend named in config.
func FactoryFromConfig(cfg config.RemoteConfig) StoreFactory {
	return func(ctx context.Context) (FolderStore, error) {
		switch cfg.Backend {
		case config.BackendS3:
			return NewS3Store(cfg)
		case config.BackendGoogleDrive, "":
			return NewDriveStore(ctx, cfg.DriveCredentialsPath, cfg.DriveTokenPath)
		default:
			return nil, fmt.Errorf("%w: unknown remote backend %q", domain.ErrConfiguration, cfg.Backend)
		}
	}
}

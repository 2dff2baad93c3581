package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/iconidentify/groupgrab/internal/config"
	"github.com/iconidentify/groupgrab/internal/domain"
)

const (
	defaultMaxItems = 100
	defaultTimeout  = 10 * time.Minute

	// waitDelay bounds how long Wait blocks on output pipes after the
	// process has been killed.
	waitDelay = 5 * time.Second

	// skippedPrefix marks files the tool found already on disk.
	skippedPrefix = "# "
)

// FetchError describes a failed tool invocation.
type FetchError struct {
	URL    string
	Stderr string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Stderr)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

var _ Fetcher = (*GalleryDL)(nil)

// GalleryDL runs the gallery-dl command line tool.
type GalleryDL struct {
	toolPath string
	maxItems int
	timeout  time.Duration
	logger   *slog.Logger
}

// NewGalleryDL creates a fetcher from config. Zero values fall back to
// 100 items and a 10 minute timeout.
func NewGalleryDL(cfg config.FetchConfig, logger *slog.Logger) *GalleryDL {
	g := &GalleryDL{
		toolPath: cfg.ToolPath,
		maxItems: cfg.MaxItems,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
	if g.toolPath == "" {
		g.toolPath = "gallery-dl"
	}
	if g.maxItems <= 0 {
		g.maxItems = defaultMaxItems
	}
	if g.timeout <= 0 {
		g.timeout = defaultTimeout
	}
	return g
}

// Args returns the tool arguments for one URL.
func (g *GalleryDL) Args(url, destDir string) []string {
	return []string{url, "-D", destDir, "--range", fmt.Sprintf("1-%d", g.maxItems)}
}

// Available reports whether the tool can be resolved.
func (g *GalleryDL) Available() bool {
	_, err := exec.LookPath(g.toolPath)
	return err == nil
}

// ToolPath returns the configured executable.
func (g *GalleryDL) ToolPath() string {
	return g.toolPath
}

// Fetch downloads url into destDir. An empty result is not an error here.
func (g *GalleryDL) Fetch(ctx context.Context, url, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, g.toolPath, g.Args(url, destDir)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	logger := g.logger.With("url", url, "dest", destDir)
	logger.Debug("fetch started", "tool", g.toolPath)
	start := time.Now()

	if err := cmd.Run(); err != nil {
		fe := &FetchError{URL: url, Stderr: strings.TrimSpace(stderr.String())}
		switch {
		case ctx.Err() != nil:
			fe.Err = ctx.Err()
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			fe.Err = fmt.Errorf("%w: %w after %s", domain.ErrExternalTool, domain.ErrFetchTimeout, g.timeout)
		default:
			fe.Err = fmt.Errorf("%w: %v", domain.ErrExternalTool, err)
		}
		logger.Warn("fetch failed", "error", fe.Err, "stderr", fe.Stderr, "duration", time.Since(start))
		return nil, fe
	}

	files := ParseOutput(stdout.String())
	logger.Info("fetch complete", "files", len(files), "duration", time.Since(start))
	return files, nil
}

// ParseOutput turns tool stdout into file paths, one per non-blank line.
func ParseOutput(out string) []string {
	var files []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, skippedPrefix))
		if line == "" || line == "#" {
			continue
		}
		files = append(files, line)
	}
	return files
}

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/iconidentify/groupgrab/internal/repository"
	"github.com/iconidentify/groupgrab/internal/service"
)

var startTime = time.Now()

// Pinger checks a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ToolChecker reports whether the fetch tool is installed.
type ToolChecker interface {
	Available() bool
}

// PipelineStatter exposes pipeline totals.
type PipelineStatter interface {
	Stats() service.PipelineStats
}

// QueueStatter exposes dispatcher queue state.
type QueueStatter interface {
	Pending() int
	Processed() int64
}

// ArchiveCounter counts recorded rows.
type ArchiveCounter interface {
	Count(ctx context.Context, filter repository.ListFilter) (int, error)
}

// HealthDeps collects what the health handler inspects. Nil members are
// skipped.
type HealthDeps struct {
	DB           Pinger
	Tool         ToolChecker
	Pipeline     PipelineStatter
	Queue        QueueStatter
	Archive      ArchiveCounter
	DownloadsDir string
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	deps   HealthDeps
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps HealthDeps, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{deps: deps, logger: logger}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
	Queue     *QueueStats       `json:"queue,omitempty"`
}

// QueueStats contains dispatcher queue statistics.
type QueueStats struct {
	Pending   int   `json:"pending"`
	Processed int64 `json:"processed"`
}

func (h *HealthHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Live handles GET /health - liveness probe.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready - readiness probe. The database must answer and
// the fetch tool must be on PATH.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	ready := true

	if h.deps.DB != nil {
		if err := h.deps.DB.Ping(ctx); err != nil {
			h.logger.Warn("readiness: database ping failed", "error", err)
			checks["database"] = "error"
			ready = false
		} else {
			checks["database"] = "ok"
		}
	}
	if h.deps.Tool != nil {
		if h.deps.Tool.Available() {
			checks["fetch_tool"] = "ok"
		} else {
			checks["fetch_tool"] = "missing"
			ready = false
		}
	}

	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
	if h.deps.Queue != nil {
		resp.Queue = &QueueStats{
			Pending:   h.deps.Queue.Pending(),
			Processed: h.deps.Queue.Processed(),
		}
	}

	if !ready {
		resp.Status = "error"
		h.writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// SystemStats contains system resource and archive statistics.
type SystemStats struct {
	Uptime         int64                  `json:"uptime_seconds"`
	UptimeHuman    string                 `json:"uptime_human"`
	MemAllocMB     int64                  `json:"mem_alloc_mb"`
	MemSysMB       int64                  `json:"mem_sys_mb"`
	NumGoroutines  int                    `json:"num_goroutines"`
	NumCPU         int                    `json:"num_cpu"`
	DiskUsedBytes  int64                  `json:"disk_used_bytes"`
	DiskFreeBytes  int64                  `json:"disk_free_bytes"`
	DiskTotalBytes int64                  `json:"disk_total_bytes"`
	DiskUsedPct    float64                `json:"disk_used_pct"`
	DownloadsDir   string                 `json:"downloads_dir"`
	ArchivedRows   int                    `json:"archived_rows"`
	Pipeline       *service.PipelineStats `json:"pipeline,omitempty"`
	Queue          *QueueStats            `json:"queue,omitempty"`
}

// Stats handles GET /api/v1/stats.
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(startTime)
	stats := SystemStats{
		Uptime:        int64(uptime.Seconds()),
		UptimeHuman:   formatUptime(uptime),
		MemAllocMB:    int64(m.Alloc / 1024 / 1024),
		MemSysMB:      int64(m.Sys / 1024 / 1024),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		DownloadsDir:  h.deps.DownloadsDir,
	}

	if h.deps.DownloadsDir != "" {
		stats.DiskTotalBytes, stats.DiskFreeBytes, stats.DiskUsedBytes, stats.DiskUsedPct = getDiskStats(h.deps.DownloadsDir)
	}
	if h.deps.Archive != nil {
		n, err := h.deps.Archive.Count(r.Context(), repository.ListFilter{})
		if err != nil {
			h.logger.Warn("stats: count archive failed", "error", err)
		}
		stats.ArchivedRows = n
	}
	if h.deps.Pipeline != nil {
		ps := h.deps.Pipeline.Stats()
		stats.Pipeline = &ps
	}
	if h.deps.Queue != nil {
		stats.Queue = &QueueStats{
			Pending:   h.deps.Queue.Pending(),
			Processed: h.deps.Queue.Processed(),
		}
	}

	h.writeJSON(w, http.StatusOK, stats)
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

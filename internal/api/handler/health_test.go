package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iconidentify/groupgrab/internal/domain"
	"github.com/iconidentify/groupgrab/internal/service"
)

func TestHealthHandler_Live(t *testing.T) {
	handler := NewHealthHandler(HealthDeps{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.Live(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Content-Type = %q, want %q", contentType, "application/json")
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want %q", resp.Status, "ok")
	}
	if resp.Timestamp == "" {
		t.Error("timestamp should not be empty")
	}
}

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		tool       bool
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "all good",
			tool:       true,
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"database": "ok", "fetch_tool": "ok"},
		},
		{
			name:       "database down",
			pingErr:    errors.New("connection refused"),
			tool:       true,
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"database": "error", "fetch_tool": "ok"},
		},
		{
			name:       "tool missing",
			tool:       false,
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"database": "ok", "fetch_tool": "missing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockLinkRepo()
			repo.pingErr = tt.pingErr
			queue := &mockQueue{pending: 3, processed: 10}
			handler := NewHealthHandler(HealthDeps{
				DB:    repo,
				Tool:  mockTool{available: tt.tool},
				Queue: queue,
			}, testLogger())

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			w := httptest.NewRecorder()
			handler.Ready(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			for k, v := range tt.wantChecks {
				if resp.Checks[k] != v {
					t.Errorf("checks[%s] = %q, want %q", k, resp.Checks[k], v)
				}
			}
			if resp.Queue == nil || resp.Queue.Pending != 3 || resp.Queue.Processed != 10 {
				t.Errorf("queue = %+v", resp.Queue)
			}
		})
	}
}

func TestHealthHandler_Stats(t *testing.T) {
	repo := newMockLinkRepo()
	repo.links = []*domain.ArchivedLink{
		{URL: "https://x.com/a/status/1", Platform: domain.PlatformTwitter, GroupName: "arte"},
		{URL: "https://instagram.com/p/a", Platform: domain.PlatformInstagram, GroupName: "arte"},
	}
	handler := NewHealthHandler(HealthDeps{
		Archive:      repo,
		Pipeline:     mockPipeline{stats: service.PipelineStats{Events: 4, Recorded: 2}},
		Queue:        &mockQueue{pending: 1},
		DownloadsDir: t.TempDir(),
	}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	w := httptest.NewRecorder()
	handler.Stats(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var stats SystemStats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stats.ArchivedRows != 2 {
		t.Errorf("archived_rows = %d, want 2", stats.ArchivedRows)
	}
	if stats.Pipeline == nil || stats.Pipeline.Events != 4 || stats.Pipeline.Recorded != 2 {
		t.Errorf("pipeline = %+v", stats.Pipeline)
	}
	if stats.Queue == nil || stats.Queue.Pending != 1 {
		t.Errorf("queue = %+v", stats.Queue)
	}
	if stats.NumCPU <= 0 || stats.NumGoroutines <= 0 {
		t.Errorf("runtime stats missing: %+v", stats)
	}
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Minute, "5m"},
		{2*time.Hour + 3*time.Minute, "2h 3m"},
		{49*time.Hour + 10*time.Minute, "2d 1h 10m"},
	}
	for _, tt := range tests {
		if got := formatUptime(tt.d); got != tt.want {
			t.Errorf("formatUptime(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/iconidentify/groupgrab/internal/chat"
	"github.com/iconidentify/groupgrab/internal/domain"
	"github.com/iconidentify/groupgrab/internal/repository"
	"github.com/iconidentify/groupgrab/internal/service"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockQueue is a test implementation of EventQueue.
type mockQueue struct {
	submitted []chat.Event
	submitErr error
	report    service.BatchReport
	waitErr   error
	waitCalls int
	pending   int
	processed int64
}

func (m *mockQueue) Submit(ev chat.Event) (string, error) {
	if m.submitErr != nil {
		return "", m.submitErr
	}
	m.submitted = append(m.submitted, ev)
	return "batch-1", nil
}

func (m *mockQueue) SubmitWait(ctx context.Context, ev chat.Event) (service.BatchReport, error) {
	m.waitCalls++
	if m.waitErr != nil {
		return service.BatchReport{}, m.waitErr
	}
	m.submitted = append(m.submitted, ev)
	return m.report, nil
}

func (m *mockQueue) Pending() int     { return m.pending }
func (m *mockQueue) Processed() int64 { return m.processed }

// mockLinkRepo is a test implementation of LinkReader.
type mockLinkRepo struct {
	links      []*domain.ArchivedLink
	archived   map[string]bool
	err        error
	lastFilter repository.ListFilter
	pingErr    error
}

func newMockLinkRepo() *mockLinkRepo {
	return &mockLinkRepo{archived: make(map[string]bool)}
}

func (m *mockLinkRepo) IsArchived(ctx context.Context, url string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.archived[url], nil
}

func (m *mockLinkRepo) List(ctx context.Context, filter repository.ListFilter) ([]*domain.ArchivedLink, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.ArchivedLink
	for _, l := range m.links {
		if filter.GroupName != "" && l.GroupName != filter.GroupName {
			continue
		}
		if filter.Platform != "" && l.Platform != filter.Platform {
			continue
		}
		out = append(out, l)
	}
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *mockLinkRepo) Count(ctx context.Context, filter repository.ListFilter) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	filter.Limit, filter.Offset = 0, 0
	links, _ := m.List(ctx, filter)
	return len(links), nil
}

func (m *mockLinkRepo) Ping(ctx context.Context) error {
	return m.pingErr
}

type mockTool struct{ available bool }

func (m mockTool) Available() bool { return m.available }

type mockPipeline struct{ stats service.PipelineStats }

func (m mockPipeline) Stats() service.PipelineStats { return m.stats }

package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/iconidentify/groupgrab/internal/chat"
	"github.com/iconidentify/groupgrab/internal/domain"
)

// GroupResolver returns the current subject of a group chat.
type GroupResolver interface {
	GroupName(ctx context.Context, jid string) (string, error)
}

// GroupUpdater applies subject changes from groups.update events.
type GroupUpdater interface {
	Apply(groups []chat.GroupInfo)
}

// LinkStore is the part of the dedup store the pipeline needs.
type LinkStore interface {
	IsArchived(ctx context.Context, url string) (bool, error)
	RecordArchive(ctx context.Context, link *domain.ArchivedLink) error
}

// Fetcher downloads a URL into a directory.
type Fetcher interface {
	Fetch(ctx context.Context, url, destDir string) ([]string, error)
}

// Uploader mirrors a local file to the remote store.
type Uploader interface {
	Enabled() bool
	Upload(ctx context.Context, filePath string, segments []string) (string, error)
}

// PipelineConfig configures the message pipeline.
type PipelineConfig struct {
	// MonitoredGroups are group subjects to archive, matched exactly.
	MonitoredGroups []string
	// DownloadsDir is the root of the local archive tree.
	DownloadsDir string
	// ActivitySize bounds the recent-outcome log.
	ActivitySize int
}

// BatchReport summarizes one handled event.
type BatchReport struct {
	EventType     chat.EventType      `json:"event_type"`
	Messages      int                 `json:"messages"`
	Ignored       int                 `json:"ignored"`
	GroupsUpdated int                 `json:"groups_updated,omitempty"`
	URLs          []domain.URLOutcome `json:"urls"`
}

// Count returns the number of URLs that ended in state.
func (r BatchReport) Count(state domain.URLState) int {
	n := 0
	for _, u := range r.URLs {
		if u.State == state {
			n++
		}
	}
	return n
}

// PipelineStats are running totals since process start.
type PipelineStats struct {
	Events   int64 `json:"events"`
	Messages int64 `json:"messages"`
	Recorded int64 `json:"recorded"`
	Skipped  int64 `json:"skipped"`
	Failed   int64 `json:"failed"`
}

// Pipeline turns chat events into archived links. It is not safe for
// concurrent HandleEvent calls; the dispatcher serializes them.
type Pipeline struct {
	cfg       PipelineConfig
	monitored map[string]struct{}
	groups    GroupResolver
	store     LinkStore
	fetcher   Fetcher
	uploader  Uploader
	activity  *ActivityLog
	logger    *slog.Logger

	events   atomic.Int64
	messages atomic.Int64
	recorded atomic.Int64
	skipped  atomic.Int64
	failed   atomic.Int64
}

// NewPipeline creates a pipeline. uploader may be nil.
func NewPipeline(
	cfg PipelineConfig,
	groups GroupResolver,
	store LinkStore,
	fetcher Fetcher,
	uploader Uploader,
	logger *slog.Logger,
) *Pipeline {
	monitored := make(map[string]struct{}, len(cfg.MonitoredGroups))
	for _, g := range cfg.MonitoredGroups {
		monitored[g] = struct{}{}
	}
	return &Pipeline{
		cfg:       cfg,
		monitored: monitored,
		groups:    groups,
		store:     store,
		fetcher:   fetcher,
		uploader:  uploader,
		activity:  NewActivityLog(cfg.ActivitySize),
		logger:    logger,
	}
}

// Activity returns the recent-outcome log.
func (p *Pipeline) Activity() *ActivityLog {
	return p.activity
}

// Stats returns running totals.
func (p *Pipeline) Stats() PipelineStats {
	return PipelineStats{
		Events:   p.events.Load(),
		Messages: p.messages.Load(),
		Recorded: p.recorded.Load(),
		Skipped:  p.skipped.Load(),
		Failed:   p.failed.Load(),
	}
}

// HandleEvent processes one batch. Only notify batches are archived;
// group updates refresh the subject directory. Failures are reported per
// URL and never abort the batch.
func (p *Pipeline) HandleEvent(ctx context.Context, ev chat.Event) BatchReport {
	p.events.Add(1)
	report := BatchReport{EventType: ev.Type, Messages: len(ev.Messages)}

	switch ev.Type {
	case chat.EventGroupsUpdate:
		if u, ok := p.groups.(GroupUpdater); ok {
			u.Apply(ev.Groups)
			report.GroupsUpdated = len(ev.Groups)
		}
		p.logger.Debug("group subjects updated", "groups", len(ev.Groups))
		return report
	case chat.EventNotify:
	default:
		report.Ignored = len(ev.Messages)
		p.logger.Debug("event ignored", "type", ev.Type, "messages", len(ev.Messages))
		return report
	}

	for _, wm := range ev.Messages {
		p.messages.Add(1)
		outcomes, handled := p.HandleMessage(ctx, wm)
		if !handled {
			report.Ignored++
			continue
		}
		report.URLs = append(report.URLs, outcomes...)
	}
	return report
}

// HandleMessage archives the links in one message. It returns false when
// the message is ignored.
func (p *Pipeline) HandleMessage(ctx context.Context, wm chat.WireMessage) ([]domain.URLOutcome, bool) {
	msg := wm.Normalize()
	if !msg.IsGroup() {
		return nil, false
	}

	group, err := p.groups.GroupName(ctx, msg.ChatJID)
	if err != nil {
		p.logger.Warn("group lookup failed", "jid", msg.ChatJID, "error", err)
		return nil, false
	}
	if _, ok := p.monitored[group]; !ok {
		return nil, false
	}
	if !msg.HasText {
		return nil, false
	}

	urls := domain.ExtractRelevantURLs(msg.Text)
	if len(urls) == 0 {
		return nil, false
	}

	p.logger.Info("links found", "group", group, "message_id", msg.ID, "count", len(urls))

	outcomes := make([]domain.URLOutcome, 0, len(urls))
	for _, url := range urls {
		out := p.ProcessURL(ctx, group, url)
		p.activity.Add(out)
		outcomes = append(outcomes, out)
	}
	return outcomes, true
}

// ProcessURL runs one URL through dedup, fetch, upload and record.
func (p *Pipeline) ProcessURL(ctx context.Context, group, url string) domain.URLOutcome {
	out := domain.URLOutcome{URL: url, GroupName: group, State: domain.URLStatePending}
	logger := p.logger.With("url", url, "group", group)

	archived, err := p.store.IsArchived(ctx, url)
	if err != nil {
		return p.fail(logger, out, domain.StageDedup, err)
	}
	if archived {
		logger.Info("already archived")
		return p.skip(out)
	}

	platform := domain.Classify(url)
	out.Platform = platform
	if !platform.Known() {
		return p.fail(logger, out, domain.StageClassify, domain.ErrUnsupportedPlatform)
	}

	segments := []string{safeSegment(group), platform.String()}
	destDir := filepath.Join(append([]string{p.cfg.DownloadsDir}, segments...)...)

	files, err := p.fetcher.Fetch(ctx, url, destDir)
	if err != nil {
		return p.fail(logger, out, domain.StageFetch, err)
	}
	if len(files) == 0 {
		return p.fail(logger, out, domain.StageFetch, domain.ErrNoFilesProduced)
	}
	out.State = domain.URLStateDownloaded
	out.Files = files
	logger.Info("downloaded", "platform", platform, "files", len(files))

	remoteIDs := make([]string, len(files))
	for i, file := range files {
		remoteIDs[i] = p.upload(ctx, logger, file, segments)
		if remoteIDs[i] != "" {
			out.Uploaded++
		}

		link := &domain.ArchivedLink{
			URL:       domain.PerFileURL(url, file),
			Platform:  platform,
			GroupName: group,
			FilePath:  file,
			FileSize:  fileSize(file),
			RemoteID:  remoteIDs[i],
		}
		if err := p.store.RecordArchive(ctx, link); err != nil {
			if errors.Is(err, domain.ErrDuplicateArchival) {
				logger.Warn("file already recorded", "file", file)
				continue
			}
			return p.fail(logger, out, domain.StageRecord, err)
		}
	}

	primary := &domain.ArchivedLink{
		URL:       url,
		Platform:  platform,
		GroupName: group,
		FilePath:  files[0],
		FileSize:  fileSize(files[0]),
		RemoteID:  remoteIDs[0],
	}
	if err := p.store.RecordArchive(ctx, primary); err != nil {
		if errors.Is(err, domain.ErrDuplicateArchival) {
			logger.Info("archived concurrently")
			return p.skip(out)
		}
		return p.fail(logger, out, domain.StageRecord, err)
	}

	out.State = domain.URLStateRecorded
	p.recorded.Add(1)
	logger.Info("archived", "platform", platform, "files", len(files), "uploaded", out.Uploaded)
	return out
}

// upload returns the remote id, or "" when disabled or on failure.
// Upload failures never block the local record.
func (p *Pipeline) upload(ctx context.Context, logger *slog.Logger, file string, segments []string) string {
	if p.uploader == nil || !p.uploader.Enabled() {
		return ""
	}
	id, err := p.uploader.Upload(ctx, file, segments)
	if err != nil {
		logger.Warn("upload failed", "stage", domain.StageUpload, "file", file, "error", err)
		return ""
	}
	return id
}

func (p *Pipeline) skip(out domain.URLOutcome) domain.URLOutcome {
	out.State = domain.URLStateSkipped
	p.skipped.Add(1)
	return out
}

func (p *Pipeline) fail(logger *slog.Logger, out domain.URLOutcome, stage domain.Stage, err error) domain.URLOutcome {
	aerr := domain.NewArchiveError(out.URL, stage, err)
	out.State = domain.URLStateFailed
	out.Stage = stage
	out.Error = aerr.Error()
	p.failed.Add(1)
	logger.Error("archive failed", "stage", stage, "error", err)
	return out
}

// safeSegment makes a group subject usable as a single path element.
func safeSegment(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "_", `\`, "_").Replace(name)
	switch name {
	case "", ".", "..":
		return "_"
	}
	return name
}

func fileSize(path string) *int64 {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil
	}
	size := info.Size()
	return &size
}

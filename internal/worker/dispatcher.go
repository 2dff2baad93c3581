package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/iconidentify/groupgrab/internal/chat"
	"github.com/iconidentify/groupgrab/internal/domain"
	"github.com/iconidentify/groupgrab/internal/service"
)

var (
	// ErrShutdownTimeout is returned when the current event doesn't finish within timeout.
	ErrShutdownTimeout = errors.New("dispatcher shutdown timed out")

	// ErrQueueFull is returned when the event queue has no room.
	ErrQueueFull = errors.New("event queue full")

	// ErrStopped is returned when submitting to a stopped dispatcher.
	ErrStopped = errors.New("dispatcher stopped")
)

// EventHandler processes one event.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev chat.Event) service.BatchReport
}

// Config holds dispatcher configuration.
type Config struct {
	QueueSize int
}

type job struct {
	id    string
	event chat.Event
	done  chan service.BatchReport
}

// Dispatcher feeds events to a single handler goroutine in arrival order.
type Dispatcher struct {
	handler EventHandler
	logger  *slog.Logger
	queue   chan job

	mu      sync.RWMutex
	stopped bool
	quit    chan struct{}
	exited  chan struct{}

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	processed atomic.Int64
}

// NewDispatcher creates a dispatcher. Call Start before submitting.
func NewDispatcher(cfg Config, handler EventHandler, logger *slog.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		handler: handler,
		logger:  logger,
		queue:   make(chan job, cfg.QueueSize),
		quit:    make(chan struct{}),
		exited:  make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the consumer.
func (d *Dispatcher) Start() {
	d.logger.Info("starting event dispatcher", "queue_size", cap(d.queue))
	d.wg.Add(1)
	go d.run()
}

// Submit queues an event without waiting and returns its batch id.
func (d *Dispatcher) Submit(ev chat.Event) (string, error) {
	j := job{id: uuid.NewString(), event: ev}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return "", ErrStopped
	}

	select {
	case d.queue <- j:
		return j.id, nil
	default:
		return "", ErrQueueFull
	}
}

// SubmitWait queues an event, waiting for room, and returns its report
// once handled.
func (d *Dispatcher) SubmitWait(ctx context.Context, ev chat.Event) (service.BatchReport, error) {
	j := job{id: uuid.NewString(), event: ev, done: make(chan service.BatchReport, 1)}

	select {
	case <-d.quit:
		return service.BatchReport{}, ErrStopped
	default:
	}

	select {
	case d.queue <- j:
	case <-ctx.Done():
		return service.BatchReport{}, ctx.Err()
	case <-d.quit:
		return service.BatchReport{}, ErrStopped
	}

	select {
	case report := <-j.done:
		return report, nil
	case <-ctx.Done():
		return service.BatchReport{}, ctx.Err()
	case <-d.exited:
		// The loop may have finished this job just before exiting.
		select {
		case report := <-j.done:
			return report, nil
		default:
			return service.BatchReport{}, ErrStopped
		}
	}
}

// Pending returns the number of queued events.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Processed returns the number of handled events.
func (d *Dispatcher) Processed() int64 {
	return d.processed.Load()
}

// Stop lets the current event finish and discards the rest of the queue.
// If the event is still running after timeout its context is cancelled.
func (d *Dispatcher) Stop(timeout time.Duration) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.quit)
	d.mu.Unlock()

	d.logger.Info("stopping event dispatcher")

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		if n := len(d.queue); n > 0 {
			d.logger.Warn("discarded queued events", "count", n)
		}
		d.logger.Info("event dispatcher stopped gracefully")
		return nil
	case <-time.After(timeout):
		d.cancel()
		return ErrShutdownTimeout
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	defer close(d.exited)

	for {
		select {
		case <-d.quit:
			return
		case j := <-d.queue:
			select {
			case <-d.quit:
				return
			default:
			}
			d.handle(j)
		}
	}
}

func (d *Dispatcher) handle(j job) {
	logger := d.logger.With("batch_id", j.id, "type", j.event.Type)
	start := time.Now()

	report := d.handler.HandleEvent(d.ctx, j.event)
	d.processed.Add(1)

	if len(report.URLs) > 0 {
		logger.Info("batch processed",
			"messages", report.Messages,
			"urls", len(report.URLs),
			"failed", report.Count(domain.URLStateFailed),
			"duration", time.Since(start),
		)
	} else {
		logger.Debug("batch processed", "messages", report.Messages, "ignored", report.Ignored)
	}

	if j.done != nil {
		j.done <- report
	}
}

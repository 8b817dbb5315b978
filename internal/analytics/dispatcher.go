package analytics

import (
	"UTMTrack-Backend/internal/config"
	"UTMTrack-Backend/internal/domain"
	"UTMTrack-Backend/internal/metrics"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrQueueFull         = errors.New("forwarding queue is full")
	ErrDispatcherStopped = errors.New("dispatcher not running")
)

// job событие, ожидающее пересылки: клик или конверсия
type job struct {
	link  *domain.TrackingLink
	click *domain.ClickEvent
	conv  *domain.ConversionEvent
}

func (j job) kind() string {
	if j.conv != nil {
		return "conversion"
	}
	return "click"
}

func (j job) fields() []zap.Field {
	if j.conv != nil {
		return []zap.Field{zap.Int64("conversion_id", j.conv.ID), zap.String("event_type", j.conv.EventType)}
	}
	return []zap.Field{zap.Int64("link_id", j.link.ID)}
}

// Dispatcher пересылает клики провайдеру аналитики в фоне.
// Очередь ограничена, повторов нет: при переполнении событие отбрасывается.
type Dispatcher struct {
	config    config.Dispatcher
	forwarder Forwarder
	log       *zap.Logger
	queue     chan job
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	started   bool
	stopped   bool
	mu        sync.RWMutex

	submitted atomic.Int64
	forwarded atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewDispatcher creates a new forwarding dispatcher
func NewDispatcher(forwarder Forwarder, cfg config.Dispatcher, log *zap.Logger) *Dispatcher {
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		config:    cfg,
		forwarder: forwarder,
		log:       log.With(zap.String("component", "dispatcher")),
		queue:     make(chan job, cfg.BufferSize),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins forwarding queued clicks
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return fmt.Errorf("dispatcher already started")
	}
	if d.stopped {
		return fmt.Errorf("dispatcher cannot be restarted")
	}

	d.log.Info("starting forwarding dispatcher",
		zap.String("provider", d.forwarder.Name()),
		zap.Int("workers", d.config.WorkerCount),
		zap.Int("buffer_size", d.config.BufferSize),
		zap.Duration("event_timeout", d.config.EventTimeout),
	)

	for i := 0; i < d.config.WorkerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}

	d.started = true
	return nil
}

// Stop закрывает очередь и ждет, пока воркеры доотправят накопленное.
// По истечении ShutdownTimeout незавершенные запросы отменяются.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher not started")
	}
	d.started = false
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.log.Info("stopping forwarding dispatcher", zap.Int("pending", len(d.queue)))

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	defer d.cancel()

	var timeout <-chan time.Time
	if d.config.ShutdownTimeout > 0 {
		timer := time.NewTimer(d.config.ShutdownTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-done:
		d.log.Info("forwarding dispatcher stopped gracefully")
		return nil
	case <-timeout:
		d.log.Warn("forwarding dispatcher shutdown timeout reached")
		d.cancel()
		<-done
		return fmt.Errorf("shutdown timeout reached")
	}
}

// Submit ставит клик в очередь без блокировки
func (d *Dispatcher) Submit(link *domain.TrackingLink, click *domain.ClickEvent) error {
	return d.enqueue(job{link: link, click: click})
}

// SubmitConversion ставит конверсию в очередь без блокировки; link может быть nil
func (d *Dispatcher) SubmitConversion(conv *domain.ConversionEvent, link *domain.TrackingLink) error {
	return d.enqueue(job{link: link, conv: conv})
}

func (d *Dispatcher) enqueue(j job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.started {
		d.dropped.Add(1)
		metrics.EventsDropped.WithLabelValues("stopped").Inc()
		return ErrDispatcherStopped
	}

	select {
	case d.queue <- j:
		d.submitted.Add(1)
		metrics.ForwardQueueLength.Set(float64(len(d.queue)))
		return nil
	default:
		d.dropped.Add(1)
		metrics.EventsDropped.WithLabelValues("queue_full").Inc()
		d.log.Error("forwarding queue is full, dropping event",
			append(j.fields(), zap.String("kind", j.kind()), zap.Int("queue_size", len(d.queue)))...,
		)
		return ErrQueueFull
	}
}

func (d *Dispatcher) worker(workerID int) {
	defer d.wg.Done()

	log := d.log.With(zap.Int("worker_id", workerID))
	log.Debug("forwarding worker started")

	for j := range d.queue {
		metrics.ForwardQueueLength.Set(float64(len(d.queue)))
		d.forward(log, j)
	}

	log.Debug("forwarding worker stopped")
}

// forward одна попытка с таймаутом на событие
func (d *Dispatcher) forward(log *zap.Logger, j job) {
	ctx, cancel := context.WithTimeout(d.ctx, d.config.EventTimeout)
	defer cancel()

	provider := d.forwarder.Name()
	var err error
	if j.conv != nil {
		err = d.forwarder.SendConversionEvent(ctx, j.conv, j.link)
	} else {
		err = d.forwarder.SendClickEvent(ctx, j.link, j.click)
	}
	if err != nil {
		d.failed.Add(1)
		metrics.EventsForwarded.WithLabelValues(provider, "failure").Inc()

		fields := append(j.fields(), zap.String("kind", j.kind()), zap.Error(err))
		if errors.Is(err, ErrNotConfigured) {
			log.Debug("event not forwarded", fields...)
		} else {
			log.Warn("event forwarding failed", fields...)
		}
		return
	}

	d.forwarded.Add(1)
	metrics.EventsForwarded.WithLabelValues(provider, "success").Inc()
}

// GetStats returns dispatcher statistics
func (d *Dispatcher) GetStats() map[string]interface{} {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return map[string]interface{}{
		"started":        d.started,
		"provider":       d.forwarder.Name(),
		"queue_length":   len(d.queue),
		"queue_capacity": cap(d.queue),
		"worker_count":   d.config.WorkerCount,
		"submitted":      d.submitted.Load(),
		"forwarded":      d.forwarded.Load(),
		"failed":         d.failed.Load(),
		"dropped":        d.dropped.Load(),
	}
}

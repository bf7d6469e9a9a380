package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Dispatcher errors.
var (
	ErrQueueFull         = errors.New("notification queue is full")
	ErrDispatcherStopped = errors.New("notification dispatcher is stopped")
)

// DispatcherConfig tunes a Dispatcher.
type DispatcherConfig struct {
	// WorkerCount is the number of concurrent deliveries. Values below 1 mean 1.
	WorkerCount int

	// QueueSize bounds the number of pending notifications.
	QueueSize int

	// DeliveryTimeout bounds each call to the wrapped Notifier.
	DeliveryTimeout time.Duration
}

// DefaultDispatcherConfig returns a DispatcherConfig with reasonable defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		WorkerCount:     2,
		QueueSize:       256,
		DeliveryTimeout: 10 * time.Second,
	}
}

// Dispatcher queues notifications in memory and delivers them from a pool of
// worker goroutines. Notify never blocks on the transport.
//
// Queued notifications are dropped on Stop; delivery is at-most-once.
type Dispatcher struct {
	next       Notifier
	queue      chan Notification
	config     DispatcherConfig
	logger     *slog.Logger
	errHandler func(n Notification, err error)

	mu      sync.RWMutex
	started bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewDispatcher wraps next with a queue and worker pool.
func NewDispatcher(next Notifier, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	defaults := DefaultDispatcherConfig()
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.DeliveryTimeout <= 0 {
		config.DeliveryTimeout = defaults.DeliveryTimeout
	}

	logger = logger.With("component", "notify_dispatcher")
	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		next:   next,
		queue:  make(chan Notification, config.QueueSize),
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		errHandler: func(n Notification, err error) {
			logger.Error("notification delivery failed",
				"notification_id", n.ID,
				"subject", n.Subject,
				"error", err)
		},
	}
}

// SetErrorHandler replaces the default log-only delivery failure handler.
// Call it before Start.
func (d *Dispatcher) SetErrorHandler(handler func(n Notification, err error)) {
	d.errHandler = handler
}

// Notify enqueues n and returns immediately. A full queue or a stopped
// dispatcher yields a *DeliveryError.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return NewDeliveryError(n.Address, ErrDispatcherStopped)
	}

	select {
	case d.queue <- n:
		return nil
	case <-ctx.Done():
		return NewDeliveryError(n.Address, ctx.Err())
	default:
		return NewDeliveryError(n.Address, fmt.Errorf("%w: capacity %d reached", ErrQueueFull, cap(d.queue)))
	}
}

// Start launches the workers. Calling Start twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	for i := 0; i < d.config.WorkerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.logger.Info("notification dispatcher started",
		"worker_count", d.config.WorkerCount,
		"queue_size", d.config.QueueSize)
}

// Stop rejects new notifications, stops the workers, and waits for
// in-flight deliveries to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()

	if dropped := len(d.queue); dropped > 0 {
		d.logger.Warn("dropping queued notifications on shutdown", "count", dropped)
	}
}

// Run starts the dispatcher and stops it when ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.Start()
	<-ctx.Done()
	d.Stop()
	return nil
}

// Pending returns the number of queued notifications.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case n := <-d.queue:
			d.deliver(n, id)
		}
	}
}

func (d *Dispatcher) deliver(n Notification, workerID int) {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.DeliveryTimeout)
	defer cancel()

	if err := d.next.Notify(ctx, n); err != nil {
		var de *DeliveryError
		if !errors.As(err, &de) {
			err = NewDeliveryError(n.Address, err)
		}
		d.errHandler(n, err)
		return
	}
	d.logger.Debug("notification delivered", "notification_id", n.ID, "worker_id", workerID)
}

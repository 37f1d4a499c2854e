package notifier

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nkiryanov/walletledger/internal/logger"
	"github.com/nkiryanov/walletledger/internal/models"
)

const (
	defaultCountWorkers   = 4               // Number of workers publishing events
	defaultQueueSize      = 1024            // Events waiting for the publish
	defaultPublishTimeout = 5 * time.Second // Time to deliver one event
)

type DispatcherOpts struct {
	Workers        int
	QueueSize      int
	PublishTimeout time.Duration
}

// Dispatcher decouples committed transactions from the event delivery
// Notify never blocks: when the queue is full or the dispatcher is stopped the event is dropped and logged
type Dispatcher struct {
	countWorkers   int
	publishTimeout time.Duration

	queue   chan models.TransactionEvent
	dropped atomic.Int64

	mu      sync.RWMutex
	stopped bool

	publisher Publisher
	logger    logger.Logger
}

func NewDispatcher(publisher Publisher, logger logger.Logger, opts DispatcherOpts) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultCountWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = defaultPublishTimeout
	}

	return &Dispatcher{
		countWorkers:   opts.Workers,
		publishTimeout: opts.PublishTimeout,
		queue:          make(chan models.TransactionEvent, opts.QueueSize),
		publisher:      publisher,
		logger:         logger,
	}
}

func (d *Dispatcher) Notify(t models.Transaction) {
	event := models.NewTransactionEvent(t)

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.dropped.Add(1)
		d.logger.Error("Event dispatcher is stopped, transaction event dropped", "transaction_id", t.ID)
		return
	}

	select {
	case d.queue <- event:
	default:
		d.dropped.Add(1)
		d.logger.Error("Event queue is full, transaction event dropped", "transaction_id", t.ID)
	}
}

// Count of events dropped because the queue was full or the dispatcher was stopped
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Run workers until ctx is done. Events queued by that time are still published
// Returned channel is closed when all workers stopped
func (d *Dispatcher) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < d.countWorkers; i++ {
		wg.Add(1)
		go func() {
			d.worker(ctx)
			wg.Done()
		}()
	}

	go func() {
		defer close(idleStopped)
		wg.Wait()

		d.mu.Lock()
		d.stopped = true
		d.mu.Unlock()

		// Events queued while the workers were finishing
		d.drain(ctx)
		d.logger.Debug("Dispatcher stopped")
	}()

	return idleStopped
}

func (d *Dispatcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drain(ctx)
			return

		case event := <-d.queue:
			d.publish(ctx, event)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case event := <-d.queue:
			d.publish(ctx, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, event models.TransactionEvent) {
	// Delivery must outlive the request and the shutdown signal, but not forever
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.publishTimeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("Publisher panicked", "panic", p, "transaction_id", event.TransactionID)
		}
	}()

	err := d.publisher.Publish(ctx, event)
	if err != nil {
		d.logger.Error("Failed to publish transaction event", "error", err, "transaction_id", event.TransactionID)
		return
	}

	d.logger.Debug("Transaction event published", "transaction_id", event.TransactionID)
}

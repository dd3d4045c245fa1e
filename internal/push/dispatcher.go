package push

import (
	"context"
	"sync"
	"time"

	"pair-date-backend/internal/metrics"

	"github.com/rs/zerolog/log"
)

const sendTimeout = 10 * time.Second

// Dispatcher fans notifications out to a fixed pool of workers. Enqueue
// never blocks the caller.
type Dispatcher struct {
	sender  Sender
	metrics *metrics.Metrics
	queue   chan Notification

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts workers goroutines reading a queue of queueSize
func NewDispatcher(sender Sender, workers, queueSize int, m *metrics.Metrics) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	d := &Dispatcher{
		sender:  sender,
		metrics: m,
		queue:   make(chan Notification, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Enqueue schedules n for delivery. It reports false when the queue is
// full or the dispatcher is closed; the notification is then dropped.
func (d *Dispatcher) Enqueue(n Notification) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.metrics.IncPush("dropped")
		return false
	}

	select {
	case d.queue <- n:
		return true
	default:
		d.metrics.IncPush("dropped")
		log.Warn().Str("title", n.Title).Msg("Push queue full, notification dropped")
		return false
	}
}

// Close stops accepting notifications and waits for queued ones to finish
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	start := time.Now()
	err := d.sender.Send(ctx, n)
	d.metrics.ObservePushDuration(time.Since(start))
	if err != nil {
		d.metrics.IncPush("failed")
		log.Error().Err(err).Str("title", n.Title).Msg("Failed to send push notification")
		return
	}
	d.metrics.IncPush("sent")
}

// internal/service/notifier.go
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"example.com/ecoguard/internal/messaging"
	"example.com/ecoguard/internal/metrics"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull       = errors.New("event queue is full")
	ErrNotifierStopped = errors.New("notifier stopped")
)

const publishTimeout = 10 * time.Second

// Notifier publishes domain events to the message bus from a bounded worker pool.
// Publishing is best effort: callers never wait on the bus.
type Notifier struct {
	client  messaging.ServiceBusClient
	log     *logrus.Logger
	workers int
	queue   chan messaging.Event

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	done   chan struct{}

	queueCapacityAlertThreshold float64
}

// NewNotifier starts workers goroutines reading from a queue of queueSize events
func NewNotifier(client messaging.ServiceBusClient, log *logrus.Logger, workers, queueSize int) *Notifier {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if log == nil {
		log = logrus.New()
	}

	n := &Notifier{
		client:                      client,
		log:                         log,
		workers:                     workers,
		queue:                       make(chan messaging.Event, queueSize),
		done:                        make(chan struct{}),
		queueCapacityAlertThreshold: 0.8,
	}

	for i := 0; i < n.workers; i++ {
		n.wg.Add(1)
		go n.worker(i)
	}
	go n.monitorQueueCapacity()

	n.log.Infof("Started event notifier with %d workers", workers)
	return n
}

func (n *Notifier) worker(id int) {
	defer n.wg.Done()

	for ev := range n.queue {
		start := time.Now()
		n.publish(ev)
		metrics.NotifierQueueDepth.Set(float64(len(n.queue)))
		n.log.Debugf("Worker %d published %s in %v", id, ev.Type, time.Since(start))
	}
}

func (n *Notifier) publish(ev messaging.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	// Events of one device share a session so they are consumed in order.
	sessionID := ev.DeviceKey
	if sessionID == "" {
		sessionID = ev.Type
	}

	if err := n.client.SendMessage(ctx, ev, sessionID); err != nil {
		metrics.NotifierPublishFailedTotal.Inc()
		n.log.WithError(err).WithFields(logrus.Fields{
			"event_id":   ev.ID,
			"event_type": ev.Type,
		}).Error("Failed to publish event")
	}
}

// monitorQueueCapacity logs a warning when the queue is close to full
func (n *Notifier) monitorQueueCapacity() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-n.done:
			return
		case <-ticker.C:
			queueLength := len(n.queue)
			queueCapacity := cap(n.queue)
			metrics.NotifierQueueDepth.Set(float64(queueLength))

			usage := float64(queueLength) / float64(queueCapacity)
			if usage >= n.queueCapacityAlertThreshold {
				n.log.Warnf("Event queue at %d%% capacity (%d/%d)", int(usage*100), queueLength, queueCapacity)
			}
		}
	}
}

// Enqueue hands ev to the workers without blocking
func (n *Notifier) Enqueue(ev messaging.Event) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return ErrNotifierStopped
	}

	select {
	case n.queue <- ev:
		metrics.NotifierQueueDepth.Set(float64(len(n.queue)))
		return nil
	default:
		metrics.NotifierDroppedTotal.Inc()
		return ErrQueueFull
	}
}

// Notify enqueues ev and logs instead of failing when it cannot
func (n *Notifier) Notify(ev messaging.Event) {
	if err := n.Enqueue(ev); err != nil {
		n.log.WithError(err).WithField("event_type", ev.Type).Warn("Event not queued")
	}
}

// Stop refuses new events, lets the workers finish what is queued and waits for them
func (n *Notifier) Stop() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	close(n.done)
	n.mu.Unlock()

	n.log.Info("Stopping event notifier...")
	n.wg.Wait()
	n.log.Info("Event notifier stopped")
}

// QueueStats is a snapshot of the notifier queue
type QueueStats struct {
	Length   int `json:"queueLength"`
	Capacity int `json:"queueCapacity"`
	Workers  int `json:"workerCount"`
}

// QueueStats returns current queue statistics
func (n *Notifier) QueueStats() QueueStats {
	return QueueStats{
		Length:   len(n.queue),
		Capacity: cap(n.queue),
		Workers:  n.workers,
	}
}

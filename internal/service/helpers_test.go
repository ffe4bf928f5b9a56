package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"example.com/ecoguard/internal/cache"
	"example.com/ecoguard/internal/messaging"
	"example.com/ecoguard/internal/repository"
	"example.com/ecoguard/internal/session"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const testDeviceKey = "demo-device-key"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// pinLocal sets time.Local for the duration of the test
func pinLocal(t *testing.T, loc *time.Location) {
	t.Helper()
	prev := time.Local
	time.Local = loc
	t.Cleanup(func() { time.Local = prev })
}

// recordingBus keeps every event it is asked to send
type recordingBus struct {
	mu     sync.Mutex
	events []messaging.Event
}

func (b *recordingBus) SendMessage(ctx context.Context, body interface{}, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ev, ok := body.(messaging.Event); ok {
		b.events = append(b.events, ev)
	}
	return nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) Types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, ev := range b.events {
		out = append(out, ev.Type)
	}
	return out
}

type testEnv struct {
	svc      *service
	repo     repository.Repository
	clock    *fakeClock
	bus      *recordingBus
	sessions *session.MemoryStore
}

// flush stops the notifier so every queued event has reached the bus
func (e *testEnv) flush() {
	e.svc.notifier.Stop()
}

type envOption func(*ServiceConfig)

func withRepository(r repository.Repository) envOption {
	return func(c *ServiceConfig) { c.Repository = r }
}

func withCache(c cache.RedisClient) envOption {
	return func(cfg *ServiceConfig) { cfg.Cache = c }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	clock := newFakeClock()
	bus := &recordingBus{}
	sessions := session.NewMemoryStore(0).WithClock(clock.Now)

	cfg := ServiceConfig{
		Repository:        repository.NewMemoryRepository(),
		MessagingClient:   bus,
		Sessions:          sessions,
		Logger:            log,
		DeviceKey:         testDeviceKey,
		OnlineThreshold:   20 * time.Second,
		HistoryLimit:      10,
		NotifierWorkers:   1,
		NotifierQueueSize: 100,
		Clock:             clock.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	svc, err := NewService(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Shutdown() })

	s := svc.(*service)
	require.NoError(t, s.Seed(context.Background()))

	return &testEnv{svc: s, repo: cfg.Repository, clock: clock, bus: bus, sessions: sessions}
}

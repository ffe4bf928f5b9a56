package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"example.com/ecoguard/internal/models"
)

// memoryRepo keeps every table in process memory. It backs the service tests and
// the `serve --store memory` development mode. Transactions are serialized but
// not rolled back on error.
type memoryRepo struct {
	state *memoryState
}

type memoryState struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	nextID map[string]uint

	readings   map[uint]models.SensorReading
	thresholds map[uint]models.Threshold
	audits     map[uint]models.ThresholdAudit
	alerts     map[uint]models.Alert
	commands   map[uint]models.DeviceCommand
	users      map[uint]models.User
}

// NewMemoryRepository returns an empty in-memory Repository
func NewMemoryRepository() Repository {
	return &memoryRepo{state: &memoryState{
		nextID:     make(map[string]uint),
		readings:   make(map[uint]models.SensorReading),
		thresholds: make(map[uint]models.Threshold),
		audits:     make(map[uint]models.ThresholdAudit),
		alerts:     make(map[uint]models.Alert),
		commands:   make(map[uint]models.DeviceCommand),
		users:      make(map[uint]models.User),
	}}
}

func (s *memoryState) id(table string) uint {
	s.nextID[table]++
	return s.nextID[table]
}

func (m *memoryRepo) WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error {
	m.state.txMu.Lock()
	defer m.state.txMu.Unlock()
	return fn(ctx, m)
}

// SensorReading operations

func (m *memoryRepo) CreateSensorReading(ctx context.Context, reading *models.SensorReading) error {
	s := m.state
	s.mu.Lock()
	defer s.mu.Unlock()

	reading.ID = s.id("readings")
	s.readings[reading.ID] = *reading
	return nil
}

func (m *memoryRepo) sortedReadings(less func(a, b *models.SensorReading) bool) []*models.SensorReading {
	out := make([]*models.SensorReading, 0, len(m.state.readings))
	for _, r := range m.state.readings {
		r := r
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func readingNewer(a, b *models.SensorReading) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.ID > b.ID
}

func (m *memoryRepo) ListSensorReadings(ctx context.Context, limit int) ([]*models.SensorReading, error) {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()
	return truncate(m.sortedReadings(readingNewer), limit), nil
}

func (m *memoryRepo) LatestSensorReading(ctx context.Context) (*models.SensorReading, error) {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()

	all := m.sortedReadings(readingNewer)
	if len(all) == 0 {
		return nil, ErrNotFound
	}
	return all[0], nil
}

func (m *memoryRepo) ListSensorReadingsBetween(ctx context.Context, start, end time.Time) ([]*models.SensorReading, error) {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()

	all := m.sortedReadings(func(a, b *models.SensorReading) bool { return readingNewer(b, a) })
	out := make([]*models.SensorReading, 0, len(all))
	for _, r := range all {
		if r.Timestamp.Before(start) || r.Timestamp.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryRepo) CountSensorReadings(ctx context.Context) (int64, error) {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()
	return int64(len(m.state.readings)), nil
}

// Threshold operations

func (m *memoryRepo) ListThresholds(ctx context.Context) ([]*models.Threshold, error) {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()

	out := make([]*models.Threshold, 0, len(m.state.thresholds))
	for _, t := range m.state.thresholds {
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryRepo) FindThresholdByID(ctx context.Context, id uint) (*models.Threshold, error) {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()

	t, ok := m.state.thresholds[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *memoryRepo) FindThresholdByMetric(ctx context.Context, metric models.MetricType) (*models.Threshold, error) {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()

	for _, t := range m.state.thresholds {
		if t.MetricType == metric {
			t := t
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepo) LockThreshold(ctx context.Context, id uint) (*models.Threshold, error) {
	return m.FindThresholdByID(ctx, id)
}

func (m *memoryRepo) SaveThreshold(ctx context.Context, threshold *models.Threshold) error {
	s := m.state
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.thresholds {
		if t.MetricType == threshold.MetricType && id != threshold.ID {
			return ErrDuplicate
		}
	}
	if threshold.ID == 0 {
		threshold.ID = s.id("thresholds")
	}
	s.thresholds[threshold.ID] = *threshold
	return nil
}

func (m *memoryRepo) DeleteThreshold(ctx context.Context, id uint) error {
	s := m.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.thresholds[id]; !ok {
		return ErrNotFound
	}
	delete(s.thresholds, id)
	return nil
}

func (m *memoryRepo) CreateThresholdAudit(ctx context.Context, audit *models.ThresholdAudit) error {
	s := m.state
	s.mu.Lock()
	defer s.mu.Unlock()

	audit.ID = s.id("audits")
	s.audits[audit.ID] = *audit
	return nil
}

func (m *memoryRepo) ListThresholdAudits(ctx context.Context, limit int) ([]*models.ThresholdAudit, error) {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()

	out := make([]*models.ThresholdAudit, 0, len(m.state.audits))
	for _, a := range m.state.audits {
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return truncate(out, limit), nil
}

// Alert operations

func (m *memoryRepo) CreateAlert(ctx context.Context, alert *models.Alert) error {
	s := m.state
	s.mu.Lock()
	defer s.mu.Unlock()

	alert.ID = s.id("alerts")
	s.alerts[alert.ID] = *alert
	return nil
}

func (m *memoryRepo) FindAlertByID(ctx context.Context, id uint) (*models.Alert, error) {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()

	a, ok := m.state.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *memoryRepo) sortedAlerts() []*models.Alert {
	out := make([]*models.Alert, 0, len(m.state.alerts))
	for _, a := range m.state.alerts {
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *memoryRepo) ListAlerts(ctx context.Context, limit int) ([]*models.Alert, error) {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()
	return truncate(m.sortedAlerts(), limit), nil
}

func (m *memoryRepo) LatestAlert(ctx context.Context) (*models.Alert, error) {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()

	all := m.sortedAlerts()
	if len(all) == 0 {
		return nil, ErrNotFound
	}
	return all[0], nil
}

func (m *memoryRepo) AcknowledgeAlert(ctx context.Context, id uint) (*models.Alert, error) {
	s := m.state
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	a.Acknowledged = true
	s.alerts[id] = a
	return &a, nil
}

// DeviceCommand operations

func (m *memoryRepo) CreateCommand(ctx context.Context, cmd *models.DeviceCommand) error {
	s := m.state
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd.ID = s.id("commands")
	s.commands[cmd.ID] = *cmd
	return nil
}

// filterCommands returns the commands matching keep, newest first
func (m *memoryRepo) filterCommands(keep func(c *models.DeviceCommand) bool) []*models.DeviceCommand {
	out := make([]*models.DeviceCommand, 0)
	for _, c := range m.state.commands {
		c := c
		if keep(&c) {
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *memoryRepo) ListCommands(ctx context.Context) ([]*models.DeviceCommand, error) {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()
	return m.filterCommands(func(*models.DeviceCommand) bool { return true }), nil
}

func (m *memoryRepo) ListCommandsByDevice(ctx context.Context, deviceKey string) ([]*models.DeviceCommand, error) {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()
	return m.filterCommands(func(c *models.DeviceCommand) bool { return c.DeviceKey == deviceKey }), nil
}

func (m *memoryRepo) ListPendingCommands(ctx context.Context, deviceKey string) ([]*models.DeviceCommand, error) {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()

	out := m.filterCommands(func(c *models.DeviceCommand) bool {
		return c.DeviceKey == deviceKey && !c.Executed
	})
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (m *memoryRepo) CommandHistory(ctx context.Context, deviceKey string, limit int) ([]*models.DeviceCommand, error) {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()
	out := m.filterCommands(func(c *models.DeviceCommand) bool { return c.DeviceKey == deviceKey })
	return truncate(out, limit), nil
}

func (m *memoryRepo) LockCommand(ctx context.Context, id uint, deviceKey string) (*models.DeviceCommand, error) {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()

	c, ok := m.state.commands[id]
	if !ok || c.DeviceKey != deviceKey {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *memoryRepo) SaveCommand(ctx context.Context, cmd *models.DeviceCommand) error {
	s := m.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if cmd.ID == 0 {
		cmd.ID = s.id("commands")
	}
	s.commands[cmd.ID] = *cmd
	return nil
}

func (m *memoryRepo) LatestCommandOfType(ctx context.Context, commandType models.CommandType) (*models.DeviceCommand, error) {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()

	out := m.filterCommands(func(c *models.DeviceCommand) bool { return c.CommandType == commandType })
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out[0], nil
}

// User operations

func (m *memoryRepo) CreateUser(ctx context.Context, user *models.User) error {
	s := m.state
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return ErrDuplicate
		}
	}
	user.ID = s.id("users")
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	s.users[user.ID] = *user
	return nil
}

func (m *memoryRepo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()

	for _, u := range m.state.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepo) SaveUser(ctx context.Context, user *models.User) error {
	s := m.state
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, u := range s.users {
		if u.Username == user.Username && id != user.ID {
			return ErrDuplicate
		}
	}
	if user.ID == 0 {
		user.ID = s.id("users")
	}
	s.users[user.ID] = *user
	return nil
}

func (m *memoryRepo) ListUsers(ctx context.Context) ([]*models.User, error) {
	m.state.mu.RLock()
	defer m.state.mu.RUnlock()

	out := make([]*models.User, 0, len(m.state.users))
	for _, u := range m.state.users {
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

package repository

import (
	"context"

	"example.com/ecoguard/internal/models"

	"gorm.io/gorm/clause"
)

func (r *repo) CreateCommand(ctx context.Context, cmd *models.DeviceCommand) error {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return gormDB.Create(cmd).Error
}

// ListCommands returns every command, newest first
func (r *repo) ListCommands(ctx context.Context) ([]*models.DeviceCommand, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var cmds []*models.DeviceCommand
	if err := gormDB.Order(newestFirst("created_at")).Find(&cmds).Error; err != nil {
		return nil, err
	}
	return cmds, nil
}

// ListCommandsByDevice returns every command for deviceKey, newest first
func (r *repo) ListCommandsByDevice(ctx context.Context, deviceKey string) ([]*models.DeviceCommand, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var cmds []*models.DeviceCommand
	err = gormDB.Where("device_key = ?", deviceKey).Order(newestFirst("created_at")).Find(&cmds).Error
	if err != nil {
		return nil, err
	}
	return cmds, nil
}

// ListPendingCommands returns the unexecuted commands for deviceKey in delivery (FIFO) order
func (r *repo) ListPendingCommands(ctx context.Context, deviceKey string) ([]*models.DeviceCommand, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var cmds []*models.DeviceCommand
	err = gormDB.
		Where("device_key = ? AND executed = ?", deviceKey, false).
		Order(oldestFirst("created_at")).
		Find(&cmds).Error
	if err != nil {
		return nil, err
	}
	return cmds, nil
}

// CommandHistory returns up to limit commands for deviceKey in any state, newest first
func (r *repo) CommandHistory(ctx context.Context, deviceKey string, limit int) ([]*models.DeviceCommand, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	q := gormDB.Where("device_key = ?", deviceKey).Order(newestFirst("created_at"))
	if limit > 0 {
		q = q.Limit(limit)
	}

	var cmds []*models.DeviceCommand
	if err := q.Find(&cmds).Error; err != nil {
		return nil, err
	}
	return cmds, nil
}

func (r *repo) LockCommand(ctx context.Context, id uint, deviceKey string) (*models.DeviceCommand, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var cmd models.DeviceCommand
	err = gormDB.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND device_key = ?", id, deviceKey).
		Take(&cmd).Error
	if err != nil {
		return nil, translate(err)
	}
	return &cmd, nil
}

func (r *repo) SaveCommand(ctx context.Context, cmd *models.DeviceCommand) error {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return gormDB.Save(cmd).Error
}

// LatestCommandOfType returns the most recent command of commandType across all devices
func (r *repo) LatestCommandOfType(ctx context.Context, commandType models.CommandType) (*models.DeviceCommand, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var cmd models.DeviceCommand
	err = gormDB.Where("command_type = ?", commandType).Order(newestFirst("created_at")).Take(&cmd).Error
	if err != nil {
		return nil, translate(err)
	}
	return &cmd, nil
}

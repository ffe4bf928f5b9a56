package service

import (
	"context"
	"strings"

	"example.com/ecoguard/internal/messaging"
	"example.com/ecoguard/internal/metrics"
	"example.com/ecoguard/internal/models"
	"example.com/ecoguard/internal/repository"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// CommandInput is an administrator's request to queue a command
type CommandInput struct {
	DeviceKey   string  `json:"deviceKey"`
	CommandType string  `json:"commandType"`
	Parameters  *string `json:"parameters"`
}

// IssueCommand queues a PENDING command for a device
func (s *service) IssueCommand(ctx context.Context, in CommandInput) (*models.DeviceCommand, error) {
	deviceKey := strings.TrimSpace(in.DeviceKey)
	if deviceKey == "" {
		return nil, validationf("deviceKey is required")
	}
	if strings.TrimSpace(in.CommandType) == "" {
		return nil, validationf("commandType is required")
	}
	commandType, err := models.ParseCommandType(in.CommandType)
	if err != nil {
		return nil, validationf("unknown commandType %q", in.CommandType)
	}

	cmd := &models.DeviceCommand{
		DeviceKey:   deviceKey,
		CommandType: commandType,
		Parameters:  in.Parameters,
		CreatedAt:   s.now(),
	}
	if err := s.repo.CreateCommand(ctx, cmd); err != nil {
		return nil, pkgerrors.Wrap(err, "queue command")
	}

	metrics.CommandsIssuedTotal.WithLabelValues(string(commandType)).Inc()
	s.notifier.Notify(messaging.NewEvent(messaging.EventCommandIssued, deviceKey, cmd))

	s.log.WithFields(logrus.Fields{
		"command_id":   cmd.ID,
		"command_type": commandType,
		"device_key":   deviceKey,
	}).Info("Command queued")

	return cmd, nil
}

// PendingCommands returns the device's unexecuted commands, oldest first
func (s *service) PendingCommands(ctx context.Context, deviceKey string) ([]*models.DeviceCommand, error) {
	return s.repo.ListPendingCommands(ctx, deviceKey)
}

// AcknowledgeCommand marks command id EXECUTED for the device that owns it.
// A command owned by another device is reported as not found and left untouched.
// Acknowledging an executed command again succeeds and re-stamps executedAt.
func (s *service) AcknowledgeCommand(ctx context.Context, deviceKey string, id uint) (*models.DeviceCommand, error) {
	var cmd *models.DeviceCommand
	err := s.repo.WithTransaction(ctx, func(txCtx context.Context, tx repository.Repository) error {
		var err error
		cmd, err = tx.LockCommand(txCtx, id, deviceKey)
		if err != nil {
			return notFoundOr(err, "command", id)
		}

		now := s.now()
		cmd.Executed = true
		cmd.ExecutedAt = &now
		return tx.SaveCommand(txCtx, cmd)
	})
	if err != nil {
		return nil, err
	}

	metrics.CommandsAcknowledgedTotal.Inc()
	return cmd, nil
}

// CommandHistory returns the device's newest commands in any state. A non-positive
// limit uses the configured history limit.
func (s *service) CommandHistory(ctx context.Context, deviceKey string, limit int) ([]*models.DeviceCommand, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	return s.repo.CommandHistory(ctx, deviceKey, limit)
}

func (s *service) ListCommands(ctx context.Context) ([]*models.DeviceCommand, error) {
	return s.repo.ListCommands(ctx)
}

func (s *service) ListCommandsByDevice(ctx context.Context, deviceKey string) ([]*models.DeviceCommand, error) {
	return s.repo.ListCommandsByDevice(ctx, deviceKey)
}

// LastCommandOfType returns the newest command of commandType across all devices
func (s *service) LastCommandOfType(ctx context.Context, commandType models.CommandType) (*models.DeviceCommand, error) {
	cmd, err := s.repo.LatestCommandOfType(ctx, commandType)
	if err != nil {
		return nil, notFoundOr(err, "command", commandType)
	}
	return cmd, nil
}

// api/handlers/device_handler.go
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"example.com/ecoguard/api/middleware"
	"example.com/ecoguard/internal/models"
	"example.com/ecoguard/internal/service"
	"example.com/ecoguard/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/sirupsen/logrus"
)

// DeviceHandler serves the endpoints the sensor device calls
type DeviceHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewDeviceHandler creates a new DeviceHandler instance
func NewDeviceHandler(svc service.Service, log *logrus.Logger) *DeviceHandler {
	return &DeviceHandler{
		service: svc,
		log:     log,
	}
}

// pendingCommand is the command form the device polls for
type pendingCommand struct {
	ID          uint               `json:"id"`
	CommandType models.CommandType `json:"commandType"`
	Parameters  *string            `json:"parameters"`
}

// SubmitSensorData stores a reading and reports the alerts it raised
func (h *DeviceHandler) SubmitSensorData(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respondError(c, h.log, badRequest("Unreadable payload"), "Failed to read sensor data")
		return
	}

	var in *service.ReadingInput
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		in = &service.ReadingInput{}
		if err := json.Unmarshal(trimmed, in); err != nil {
			h.log.WithError(err).Warn("Invalid sensor data format")
			respondError(c, h.log, badRequest("Invalid sensor data format"), "Failed to decode sensor data")
			return
		}
	}

	endSegment := telemetry.StartSegment(nrgin.Transaction(c), "IngestReading")
	result, err := h.service.IngestReading(c.Request.Context(), in)
	endSegment()
	if err != nil {
		respondError(c, h.log, err, "Failed to ingest sensor data")
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetThresholds returns every threshold in the compact device form
func (h *DeviceHandler) GetThresholds(c *gin.Context) {
	list, err := h.service.DeviceThresholds(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to load device thresholds")
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetPendingCommands returns the caller's pending commands in delivery order
func (h *DeviceHandler) GetPendingCommands(c *gin.Context) {
	cmds, err := h.service.PendingCommands(c.Request.Context(), middleware.GetDeviceKey(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to list pending commands")
		return
	}

	out := make([]pendingCommand, 0, len(cmds))
	for _, cmd := range cmds {
		out = append(out, pendingCommand{
			ID:          cmd.ID,
			CommandType: cmd.CommandType,
			Parameters:  cmd.Parameters,
		})
	}
	c.JSON(http.StatusOK, out)
}

// AcknowledgeCommand marks one of the caller's commands as executed
func (h *DeviceHandler) AcknowledgeCommand(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, h.log, err, "Invalid command id")
		return
	}

	deviceKey := middleware.GetDeviceKey(c)
	if _, err := h.service.AcknowledgeCommand(c.Request.Context(), deviceKey, id); err != nil {
		respondError(c, h.log, err, "Failed to acknowledge command")
		return
	}

	h.log.WithFields(logrus.Fields{
		"command_id": id,
		"device_key": deviceKey,
	}).Info("Command acknowledged")
	c.JSON(http.StatusOK, gin.H{"message": "Command acknowledged"})
}

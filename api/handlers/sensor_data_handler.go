package handlers

import (
	"net/http"

	"example.com/ecoguard/internal/models"
	"example.com/ecoguard/internal/service"
	"example.com/ecoguard/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/sirupsen/logrus"
)

// SensorDataHandler serves stored readings and the aggregated device status
type SensorDataHandler struct {
	service service.Service
	log     *logrus.Logger
}

func NewSensorDataHandler(svc service.Service, log *logrus.Logger) *SensorDataHandler {
	return &SensorDataHandler{
		service: svc,
		log:     log,
	}
}

func (h *SensorDataHandler) ListReadings(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		respondError(c, h.log, err, "Invalid reading limit")
		return
	}

	readings, err := h.service.ListReadings(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.log, err, "Failed to list readings")
		return
	}
	c.JSON(http.StatusOK, readings)
}

func (h *SensorDataHandler) LatestReading(c *gin.Context) {
	reading, err := h.service.LatestReading(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to get latest reading")
		return
	}
	c.JSON(http.StatusOK, reading)
}

// ReadingsInRange returns readings between ?start= and ?end=, oldest first
func (h *SensorDataHandler) ReadingsInRange(c *gin.Context) {
	start, err := models.ParseTimestamp(c.Query("start"))
	if err != nil {
		respondError(c, h.log, badRequest("start must be an ISO-8601 date-time"), "Invalid range start")
		return
	}
	end, err := models.ParseTimestamp(c.Query("end"))
	if err != nil {
		respondError(c, h.log, badRequest("end must be an ISO-8601 date-time"), "Invalid range end")
		return
	}

	readings, err := h.service.ReadingsBetween(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, h.log, err, "Failed to list readings in range")
		return
	}
	c.JSON(http.StatusOK, readings)
}

// DeviceStatus returns the dashboard summary of the device
func (h *SensorDataHandler) DeviceStatus(c *gin.Context) {
	defer telemetry.StartSegment(nrgin.Transaction(c), "DeviceStatus")()

	status, err := h.service.DeviceStatus(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to build device status")
		return
	}
	c.JSON(http.StatusOK, status)
}

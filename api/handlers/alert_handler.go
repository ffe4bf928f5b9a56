package handlers

import (
	"net/http"

	"example.com/ecoguard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AlertHandler serves alert reads and acknowledgement
type AlertHandler struct {
	service service.Service
	log     *logrus.Logger
}

func NewAlertHandler(svc service.Service, log *logrus.Logger) *AlertHandler {
	return &AlertHandler{
		service: svc,
		log:     log,
	}
}

// ListAlerts returns alerts newest first, optionally capped by ?limit=
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		respondError(c, h.log, err, "Invalid alert limit")
		return
	}

	alerts, err := h.service.ListAlerts(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.log, err, "Failed to list alerts")
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *AlertHandler) GetAlert(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, h.log, err, "Invalid alert id")
		return
	}

	alert, err := h.service.GetAlert(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, "Failed to get alert")
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *AlertHandler) AcknowledgeAlert(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, h.log, err, "Invalid alert id")
		return
	}

	alert, err := h.service.AcknowledgeAlert(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, "Failed to acknowledge alert")
		return
	}
	c.JSON(http.StatusOK, alert)
}

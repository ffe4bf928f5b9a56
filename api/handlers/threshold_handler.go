package handlers

import (
	"net/http"

	"example.com/ecoguard/internal/models"
	"example.com/ecoguard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ThresholdHandler serves threshold reads for admins and users, and writes for admins
type ThresholdHandler struct {
	service service.Service
	log     *logrus.Logger
}

func NewThresholdHandler(svc service.Service, log *logrus.Logger) *ThresholdHandler {
	return &ThresholdHandler{
		service: svc,
		log:     log,
	}
}

func (h *ThresholdHandler) ListThresholds(c *gin.Context) {
	list, err := h.service.ListThresholds(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to list thresholds")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *ThresholdHandler) GetThreshold(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, h.log, err, "Invalid threshold id")
		return
	}

	th, err := h.service.GetThreshold(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, "Failed to get threshold")
		return
	}
	c.JSON(http.StatusOK, th)
}

func (h *ThresholdHandler) GetThresholdByMetric(c *gin.Context) {
	metric, err := metricParam(c)
	if err != nil {
		respondError(c, h.log, err, "Invalid metric type")
		return
	}

	th, err := h.service.GetThresholdByMetric(c.Request.Context(), metric)
	if err != nil {
		respondError(c, h.log, err, "Failed to get threshold")
		return
	}
	c.JSON(http.StatusOK, th)
}

// UpdateThreshold applies a partial bound update to threshold :id
func (h *ThresholdHandler) UpdateThreshold(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, h.log, err, "Invalid threshold id")
		return
	}

	var update models.ThresholdUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.log.WithError(err).Warn("Invalid threshold format")
		respondError(c, h.log, badRequest("Invalid threshold format"), "Failed to decode threshold")
		return
	}

	th, err := h.service.UpdateThreshold(c.Request.Context(), id, update)
	if err != nil {
		respondError(c, h.log, err, "Failed to update threshold")
		return
	}
	c.JSON(http.StatusOK, th)
}

// SetThreshold applies a bound update to the threshold of :metricType, creating it if needed
func (h *ThresholdHandler) SetThreshold(c *gin.Context) {
	metric, err := metricParam(c)
	if err != nil {
		respondError(c, h.log, err, "Invalid metric type")
		return
	}

	var update models.ThresholdUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.log.WithError(err).Warn("Invalid threshold format")
		respondError(c, h.log, badRequest("Invalid threshold format"), "Failed to decode threshold")
		return
	}

	th, err := h.service.SetThreshold(c.Request.Context(), metric, update)
	if err != nil {
		respondError(c, h.log, err, "Failed to set threshold")
		return
	}
	c.JSON(http.StatusOK, th)
}

// DeleteThreshold always answers 204. Failures are only logged.
func (h *ThresholdHandler) DeleteThreshold(c *gin.Context) {
	id, err := parseID(c, "id")
	if err == nil {
		err = h.service.DeleteThreshold(c.Request.Context(), id)
	}
	if err != nil {
		h.log.WithError(err).WithField("id", c.Param("id")).Warn("Threshold delete failed")
	}
	c.Status(http.StatusNoContent)
}

// ListAudits returns the newest threshold changes
func (h *ThresholdHandler) ListAudits(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		respondError(c, h.log, err, "Invalid audit limit")
		return
	}

	audits, err := h.service.ThresholdAudits(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.log, err, "Failed to list threshold audits")
		return
	}
	c.JSON(http.StatusOK, audits)
}

func metricParam(c *gin.Context) (models.MetricType, error) {
	metric, err := models.ParseMetricType(c.Param("metricType"))
	if err != nil {
		return "", badRequest(err.Error())
	}
	return metric, nil
}

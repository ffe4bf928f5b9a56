package handlers

import (
	"net/http"

	"example.com/ecoguard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CommandHandler serves the administrator's view of the command queue
type CommandHandler struct {
	service service.Service
	log     *logrus.Logger
}

func NewCommandHandler(svc service.Service, log *logrus.Logger) *CommandHandler {
	return &CommandHandler{
		service: svc,
		log:     log,
	}
}

// IssueCommand queues a command for a device
func (h *CommandHandler) IssueCommand(c *gin.Context) {
	var in service.CommandInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.log.WithError(err).Warn("Invalid command format")
		respondError(c, h.log, badRequest("Invalid command format"), "Failed to decode command")
		return
	}

	cmd, err := h.service.IssueCommand(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err, "Failed to issue command")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"commandId": cmd.ID,
		"message":   "Command sent to device",
	})
}

func (h *CommandHandler) ListCommands(c *gin.Context) {
	cmds, err := h.service.ListCommands(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to list commands")
		return
	}
	c.JSON(http.StatusOK, cmds)
}

func (h *CommandHandler) ListCommandsByDevice(c *gin.Context) {
	cmds, err := h.service.ListCommandsByDevice(c.Request.Context(), c.Param("deviceKey"))
	if err != nil {
		respondError(c, h.log, err, "Failed to list device commands")
		return
	}
	c.JSON(http.StatusOK, cmds)
}

// CommandHistory returns the device's most recent commands, newest first
func (h *CommandHandler) CommandHistory(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		respondError(c, h.log, err, "Invalid history limit")
		return
	}

	cmds, err := h.service.CommandHistory(c.Request.Context(), c.Param("deviceKey"), limit)
	if err != nil {
		respondError(c, h.log, err, "Failed to load command history")
		return
	}
	c.JSON(http.StatusOK, cmds)
}

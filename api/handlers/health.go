package handlers

import (
	"net/http"

	"example.com/ecoguard/internal/service"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports the service and its dependencies. Dependency failures are
// reported in the body and never change the status code.
func HealthCheck(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Health(c.Request.Context()))
	}
}

package routes

import (
	"example.com/ecoguard/api/handlers"
	"example.com/ecoguard/api/middleware"
	"example.com/ecoguard/internal/auth"
	"example.com/ecoguard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// SetupRoutes sets up all the routes for the server. Everything under basePath
// passes the session gate; /health and /metrics stay public.
func SetupRoutes(r *gin.Engine, basePath string, svc service.Service, gate *auth.Gate, log *logrus.Logger) {
	r.GET("/health", handlers.HealthCheck(svc))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sessionGate := middleware.SessionGate(gate, log)
	r.NoRoute(middleware.UnderPath(basePath, sessionGate), handlers.NotFound)

	api := r.Group(basePath)
	api.Use(sessionGate)

	authHandler := handlers.NewAuthHandler(svc, log)
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.PUT("/device-token", authHandler.UpdateDeviceToken)
	}

	deviceHandler := handlers.NewDeviceHandler(svc, log)
	device := api.Group("/device")
	{
		device.POST("/sensor-data", deviceHandler.SubmitSensorData)
		device.GET("/thresholds", deviceHandler.GetThresholds)
		device.GET("/commands", deviceHandler.GetPendingCommands)
		device.PUT("/commands/:id/ack", deviceHandler.AcknowledgeCommand)
	}

	commandHandler := handlers.NewCommandHandler(svc, log)
	thresholdHandler := handlers.NewThresholdHandler(svc, log)
	alertHandler := handlers.NewAlertHandler(svc, log)
	sensorHandler := handlers.NewSensorDataHandler(svc, log)

	admin := api.Group("/admin")
	{
		admin.GET("/device/status", sensorHandler.DeviceStatus)

		commands := admin.Group("/device/commands")
		commands.POST("", commandHandler.IssueCommand)
		commands.GET("", commandHandler.ListCommands)
		commands.GET("/by-device/:deviceKey", commandHandler.ListCommandsByDevice)
		commands.GET("/by-device/:deviceKey/history", commandHandler.CommandHistory)

		thresholds := admin.Group("/thresholds")
		thresholds.GET("", thresholdHandler.ListThresholds)
		thresholds.GET("/audit", thresholdHandler.ListAudits)
		thresholds.GET("/by-metric/:metricType", thresholdHandler.GetThresholdByMetric)
		thresholds.PUT("/by-metric/:metricType", thresholdHandler.SetThreshold)
		thresholds.GET("/:id", thresholdHandler.GetThreshold)
		thresholds.PUT("/:id", thresholdHandler.UpdateThreshold)
		thresholds.DELETE("/:id", thresholdHandler.DeleteThreshold)

		alerts := admin.Group("/alerts")
		alerts.GET("", alertHandler.ListAlerts)
		alerts.GET("/:id", alertHandler.GetAlert)
		alerts.PUT("/:id/ack", alertHandler.AcknowledgeAlert)

		readings := admin.Group("/sensor-data")
		readings.GET("", sensorHandler.ListReadings)
		readings.GET("/latest", sensorHandler.LatestReading)
		readings.GET("/range", sensorHandler.ReadingsInRange)
	}

	user := api.Group("/user")
	{
		user.GET("/thresholds", thresholdHandler.ListThresholds)
		user.GET("/thresholds/by-metric/:metricType", thresholdHandler.GetThresholdByMetric)
		user.GET("/alerts", alertHandler.ListAlerts)
	}
}

package api

import (
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Plans         *PlanHandler
	Connections   *ConnectionHandler
	Reviews       *ReviewHandler
	Notifications *NotificationHandler
}

// NewRouter builds the authenticated /api routes.
func NewRouter(jwtSecret string, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), Recovery())

	api := router.Group("/api", JWTAuth(jwtSecret))
	h.Plans.Register(api.Group("/plans"))
	h.Connections.Register(api.Group("/connections"))
	h.Reviews.Register(api)
	h.Notifications.Register(api.Group("/notifications"))
	return router
}

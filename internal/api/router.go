package api

import (
	"github.com/gin-gonic/gin"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal/auth"
	"github.com/SISIR-REDDY/calorie-vita-sub004/internal/config"
)

// NewRouter assembles the HTTP surface over the reconciliation core.
func NewRouter(app App, provider auth.Provider, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authed := r.Group("/api")
	authed.Use(auth.AuthMiddleware(provider, cfg))
	authed.GET("/metrics/today", GetToday(app))
	authed.GET("/metrics/history", GetHistory(app))
	authed.GET("/metrics/stream", StreamSnapshots(app))
	authed.PUT("/metrics/:metric/override", PutOverride(app))
	authed.POST("/refresh", PostRefresh(app))
	authed.GET("/streaks", GetStreaks(app))
	authed.PUT("/goals", PutGoal(app))
	return r
}

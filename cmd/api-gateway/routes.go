package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/busbuddy-api/internal/middleware"
	"github.com/noah-isme/busbuddy-api/internal/models"
	"github.com/noah-isme/busbuddy-api/pkg/config"
	"github.com/noah-isme/busbuddy-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/busbuddy-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/busbuddy-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, db *sqlx.DB, app *application, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(app.metrics))

	r.GET("/health", app.system.Health)
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", app.system.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Calendar clients and signed download links cannot send bearer tokens.
	api.GET("/activities/calendar.ics", app.calendar.Feed)
	if app.audits != nil {
		api.GET("/integrity/audits/download/:token", app.audits.Download)
	}

	secured := api.Group("", middleware.JWT(app.auth))
	writers := middleware.RequireRoles(models.RoleAdmin, models.RoleDispatcher)

	secured.GET("/routes", app.routes.List)
	secured.GET("/routes/:id", app.routes.Get)

	schedules := secured.Group("/activity-schedules")
	schedules.GET("", app.schedules.List)
	schedules.GET("/:id", app.schedules.Get)
	schedules.POST("", writers, middleware.Audit(logr, "CREATE", "activity_schedule"), app.schedules.Create)
	schedules.POST("/bulk", writers, middleware.Audit(logr, "BULK_CREATE", "activity_schedule"), app.schedules.BulkCreate)
	schedules.PUT("/:id", writers, middleware.Audit(logr, "UPDATE", "activity_schedule"), app.schedules.Update)
	schedules.DELETE("/:id", writers, middleware.Audit(logr, "DELETE", "activity_schedule"), app.schedules.Delete)

	secured.POST("/conflicts/check", app.conflicts.Check)

	integrity := secured.Group("/integrity")
	integrity.GET("/report", app.integrity.Report)
	if app.audits != nil {
		integrity.POST("/audits", writers, app.audits.Create)
		integrity.GET("/audits/:id", app.audits.Status)
	}
	integrity.GET("/:entity", app.integrity.EntityIssues)
	integrity.GET("/:entity/:id", app.integrity.EntityByID)

	secured.GET("/system/metrics", middleware.RequireRoles(models.RoleAdmin), app.system.Snapshot)

	return r
}

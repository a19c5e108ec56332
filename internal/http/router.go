package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/leadrouter/backend/internal/config"
	"github.com/leadrouter/backend/internal/db"
	"github.com/leadrouter/backend/internal/engine"
	"github.com/leadrouter/backend/internal/http/handlers"
	"github.com/leadrouter/backend/internal/http/middleware"

	_ "github.com/leadrouter/backend/docs"
)

func Router(cfg config.Config, store *db.Store, exec *engine.Executor, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:     store,
		Executor:  exec,
		Validator: validator.New(),
		Logger:    logger,
		AdminKey:  cfg.AdminKey,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/rules", h.RulesList)
		api.GET("/rules/:id", h.RuleGet)
		api.GET("/leads", h.LeadsList)
		api.GET("/leads/:id", h.LeadGet)
		api.GET("/reps", h.RepsList)
		api.GET("/assignments", h.AssignmentsList)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/rules", h.RuleCreate)
		admin.PUT("/rules/:id", h.RuleUpdate)
		admin.DELETE("/rules/:id", h.RuleDelete)
		admin.POST("/rules/reorder", h.RulesReorder)
		admin.PATCH("/rules/:id/toggle", h.RuleToggle)
		admin.POST("/rules/test", h.RuleTest)
		admin.POST("/leads", h.LeadCreate)
		admin.POST("/leads/:id/assign", h.LeadAssign)
		admin.POST("/reps", h.RepCreate)
		admin.POST("/assignments/:id/resolve", h.AssignmentResolve)
		admin.POST("/reps/workloads/recompute", h.WorkloadsRecompute)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// Package router assembles the gin engine and owns the HTTP server lifecycle.
package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cloudsentry/posture/internal/config"
	"github.com/cloudsentry/posture/internal/interfaces/http/handlers"
	"github.com/cloudsentry/posture/internal/interfaces/http/middleware"
	"github.com/cloudsentry/posture/pkg/logger"
)

// Router wires handlers onto the gin engine and runs the HTTP server.
type Router struct {
	engine            *gin.Engine
	config            *config.Config
	logger            logger.Logger
	healthHandler     *handlers.HealthHandler
	assessmentHandler *handlers.AssessmentHandler
	customerHandler   *handlers.CustomerHandler
	server            *http.Server
}

// New creates the router.
func New(
	cfg *config.Config,
	log logger.Logger,
	healthHandler *handlers.HealthHandler,
	assessmentHandler *handlers.AssessmentHandler,
	customerHandler *handlers.CustomerHandler,
) *Router {
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Router{
		engine:            gin.New(),
		config:            cfg,
		logger:            log.WithComponent("router"),
		healthHandler:     healthHandler,
		assessmentHandler: assessmentHandler,
		customerHandler:   customerHandler,
	}
}

// SetupRoutes installs the middleware chain and the route table.
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Recovery(r.logger))
	r.engine.Use(middleware.RequestLogger(r.logger))

	r.engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.engine.GET("/health/live", r.healthHandler.Live)
	r.engine.GET("/health/ready", r.healthHandler.Ready)

	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if r.config.Server.Mode == "debug" {
		pprof.Register(r.engine)
	}

	v1 := r.engine.Group("/api/v1")
	if r.config.Auth.Enabled {
		v1.Use(middleware.BearerAuth(r.config.Auth.JWTSecret))
	}
	{
		assessments := v1.Group("/assessments")
		{
			assessments.POST("", r.assessmentHandler.Create)
			assessments.POST("/save", r.assessmentHandler.Save)
			assessments.GET("", r.assessmentHandler.List)
			assessments.GET("/history", r.assessmentHandler.History)
		}

		v1.GET("/metrics/latest", r.assessmentHandler.LatestMetrics)

		customers := v1.Group("/customers")
		{
			customers.POST("", r.customerHandler.Register)
			customers.GET("", r.customerHandler.List)
			customers.GET("/:customer_id", r.customerHandler.Get)
			customers.GET("/by-domain/:domain", r.customerHandler.GetByDomain)
			customers.PUT("/:customer_id", r.customerHandler.Update)
			customers.DELETE("/:customer_id", r.customerHandler.Delete)
		}
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "The requested resource was not found",
		})
	})
}

// Start runs the HTTP server and blocks until it stops.
func (r *Router) Start() error {
	r.SetupRoutes()

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	r.server = &http.Server{
		Addr:           addr,
		Handler:        r.engine,
		ReadTimeout:    time.Duration(r.config.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(r.config.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	r.logger.Info(context.Background(), "Starting HTTP server", logger.String("address", addr))

	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.logger.Info(ctx, "Stopping HTTP server")
	return r.server.Shutdown(ctx)
}

// Engine exposes the gin engine for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

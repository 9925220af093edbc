package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) RegisterRoutes() http.Handler {
	s.initMetrics()

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), s.metricsMiddleware())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.CORS.AllowedOrigins,
		AllowMethods:     s.config.CORS.AllowedMethods,
		AllowHeaders:     s.config.CORS.AllowedHeaders,
		AllowCredentials: s.config.CORS.AllowCredentials,
		MaxAge:           time.Duration(s.config.CORS.MaxAge) * time.Second,
	}))

	r.GET("/health", s.healthHandler)
	r.GET("/ready", s.readyHandler)
	r.GET("/online", s.onlineHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	activity := r.Group("/activity")
	activity.GET("/instances", s.instanceActivityHandler)
	activity.GET("/players", s.playerActivityHandler)
	activity.GET("/chat", s.chatHandler)

	if s.rc != nil {
		r.GET("/reports", s.listReportsHandler)
		r.GET("/reports/:id", s.getReportHandler)
	}

	if s.jc != nil {
		jobs := r.Group("/jobs")
		jobs.POST("", s.createJobHandler)
		jobs.GET("", s.listJobsHandler)
		jobs.GET("/types", s.jobTypesHandler)
		jobs.POST("/types/:type/cancel", s.cancelJobHandler)
		jobs.GET("/:id", s.getJobHandler)
	}

	return r
}

package server

import (
	"fmt"
	"gamewatch/internal/config"
	"gamewatch/internal/controller"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Server struct {
	sc     controller.ServerController
	ac     controller.ActivityController
	rc     controller.ReportController
	jc     controller.JobController
	config config.Config
	now    func() time.Time

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
}

// New builds the HTTP server. rc and jc may be nil when MongoDB or RabbitMQ
// are not configured; their routes are then left out.
func New(cfg config.Config, sc controller.ServerController, ac controller.ActivityController,
	rc controller.ReportController, jc controller.JobController) *http.Server {
	server := &Server{
		sc:     sc,
		ac:     ac,
		rc:     rc,
		jc:     jc,
		config: cfg,
		now:    time.Now,
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%v", cfg.Port),
		Handler:      server.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Store.Timeout() + 30*time.Second,
	}
}

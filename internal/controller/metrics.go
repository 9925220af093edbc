package controller

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheLookups = register(prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamewatch",
		Subsystem: "reports",
		Name:      "cache_lookups_total",
		Help:      "Report cache lookups by report kind and result",
	}, []string{"kind", "result"}))

	reportsGenerated = register(prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamewatch",
		Subsystem: "reports",
		Name:      "generated_total",
		Help:      "Stored reports by kind and outcome",
	}, []string{"kind", "outcome"}))

	jobsProcessed = register(prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamewatch",
		Subsystem: "jobs",
		Name:      "processed_total",
		Help:      "Report jobs taken off the queue by final status",
	}, []string{"type", "status"}))

	jobDuration = register(prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gamewatch",
		Subsystem: "jobs",
		Name:      "duration_seconds",
		Help:      "Time spent running report jobs",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"type"}))
)

// register adds a collector to the default registry, reusing an identical
// collector registered earlier
func register[C prometheus.Collector](collector C) C {
	if err := prometheus.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return collector
}

package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	discoveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translation_migrations_discovered_total",
		Help: "Migration records created by discovery",
	}, []string{"interface"})

	appliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translation_migration_applies_total",
		Help: "Apply attempts by outcome",
	}, []string{"interface", "outcome"})

	rollbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translation_migration_rollbacks_total",
		Help: "Rollbacks by outcome",
	}, []string{"interface", "outcome"})

	applyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "translation_migration_apply_duration_seconds",
		Help:    "Duration of apply operations",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	rowsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "translation_rows_written_total",
		Help: "Translation value rows written by applies",
	})
)

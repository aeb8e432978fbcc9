// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Command outcome labels.
const (
	outcomeApplied     = "applied"
	outcomeRemoved     = "removed"
	outcomeCleared     = "cleared"
	outcomeInfo        = "info"
	outcomeForced      = "forced"
	outcomeQueued      = "queued"
	outcomeBlacklisted = "blacklisted"
	outcomeFailed      = "failed"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rlv_commands_total",
		Help: "Commands processed, by outcome.",
	}, []string{"outcome"})

	restrictionsActiveGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rlv_restrictions_active",
		Help: "Restrictions currently held in the store.",
	})

	queueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rlv_queue_depth",
		Help: "Commands deferred behind the startup or reattach gate.",
	})

	folderLockSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rlv_folder_lock_evaluation_seconds",
		Help:    "Folder lock evaluation latency.",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
	})

	gcSweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rlv_gc_sweeps_total",
		Help: "Garbage collection passes over the restriction store.",
	})

	gcSweptIssuersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rlv_gc_swept_issuers_total",
		Help: "Dead issuers whose restrictions were swept.",
	})
)

func recordCommand(outcome string) {
	commandsTotal.WithLabelValues(outcome).Inc()
}
